package main

// The ledgernode binary: a single long-running `serve` command wiring
// config, the ledger core, the peer/operator bus, and metrics together.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-labs/ledgernode/bus"
	"github.com/synnergy-labs/ledgernode/core"
	"github.com/synnergy-labs/ledgernode/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "ledgernode"}
	rootCmd.AddCommand(serveCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var env string
	var nodeName string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a ledgernode peer: load state, open the bus, and read operator commands from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(env, nodeName)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment name merged on top of ledgernode.yaml (e.g. dev, prod)")
	cmd.Flags().StringVar(&nodeName, "name", "", "this node's identity name announced to peers (defaults to hostname)")
	return cmd
}

func runServe(env, nodeName string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lvl, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	if nodeName == "" {
		nodeName, _ = os.Hostname()
	}

	persist, err := core.NewPersistence(cfg.Storage.SnapshotDir)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}

	pool, err := persist.LoadPool()
	if err != nil {
		return fmt.Errorf("load pool snapshot: %w", err)
	}
	dag, err := persist.LoadDAG(pool)
	if err != nil {
		return fmt.Errorf("load dag snapshot: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := core.NewMetrics(registry)
	metrics.RefreshDAGGauges(dag)

	engine := core.NewEngine(pool, dag, persist, metrics)
	dispatcher := bus.NewDispatcher(engine)

	var node *bus.Node
	if cfg.Network.ListenAddr != "" {
		node, err = bus.NewNode(bus.Config{
			ListenAddr:     cfg.Network.ListenAddr,
			DiscoveryTag:   cfg.Network.DiscoveryTag,
			BootstrapPeers: cfg.Network.BootstrapPeers,
		}, nodeName, dispatcher)
		if err != nil {
			return fmt.Errorf("start bus node: %w", err)
		}
		defer node.Close()
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			_ = metricsSrv.Shutdown(ctx)
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		os.Exit(0)
	}()

	op := bus.NewOperator(dispatcher, node)
	log.WithField("name", nodeName).Info("ledgernode ready, reading commands from stdin")
	return op.Run(os.Stdin, os.Stdout)
}
