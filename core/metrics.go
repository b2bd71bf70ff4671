package core

// Metrics instruments the engine and DAG with Prometheus collectors.

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/gauge the engine and DAG update. A nil
// *Metrics is valid everywhere it's consulted — each inc* method and
// RefreshDAGGauges tolerate a nil receiver.
type Metrics struct {
	ProposalsAccepted         prometheus.Counter
	ProposalsRejected         prometheus.Counter
	FinalizationsOK           prometheus.Counter
	FinalizationsNotFound     prometheus.Counter
	FinalizationsRejected     prometheus.Counter
	FinalizationsBadSig       prometheus.Counter
	FinalizationsInsufficient prometheus.Counter
	Rejections                prometheus.Counter
	DAGHeight                 prometheus.Gauge
	DAGTipCount               prometheus.Gauge
}

// NewMetrics constructs and registers every collector against reg. Passing
// prometheus.NewRegistry() keeps the collectors out of the default registry;
// cmd/node does this and serves that registry with promhttp.HandlerFor.
// Passing nil registers nothing.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProposalsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "proposals_accepted_total",
			Help: "Transaction proposals that were signed and queued pending.",
		}),
		ProposalsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "proposals_rejected_total",
			Help: "Transaction proposals rejected before signing.",
		}),
		FinalizationsOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "finalizations_total",
			Help: "Transactions successfully finalized and committed.",
		}),
		FinalizationsNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "finalizations_not_found_total",
			Help: "Confirm attempts against an unknown pending id.",
		}),
		FinalizationsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "finalizations_rejected_total",
			Help: "Confirm attempts rejected for reasons other than signature/balance.",
		}),
		FinalizationsBadSig: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "finalizations_bad_signature_total",
			Help: "Confirm attempts that failed re-verification.",
		}),
		FinalizationsInsufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "finalizations_insufficient_balance_total",
			Help: "Confirm attempts that failed the authoritative balance check.",
		}),
		Rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode", Subsystem: "engine", Name: "rejections_total",
			Help: "Pending transactions explicitly rejected by their receiver.",
		}),
		DAGHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledgernode", Subsystem: "dag", Name: "height",
			Help: "Current DAG height.",
		}),
		DAGTipCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledgernode", Subsystem: "dag", Name: "tip_count",
			Help: "Number of current DAG tips.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ProposalsAccepted, m.ProposalsRejected,
			m.FinalizationsOK, m.FinalizationsNotFound, m.FinalizationsRejected,
			m.FinalizationsBadSig, m.FinalizationsInsufficient, m.Rejections,
			m.DAGHeight, m.DAGTipCount,
		)
	}
	return m
}

// Each inc* method tolerates a nil receiver so Engine can run with
// Metrics: nil (as tests do) without a guard at every call site.
func (m *Metrics) incProposalsAccepted() {
	if m != nil {
		m.ProposalsAccepted.Inc()
	}
}
func (m *Metrics) incProposalsRejected() {
	if m != nil {
		m.ProposalsRejected.Inc()
	}
}
func (m *Metrics) incFinalizationsOK() {
	if m != nil {
		m.FinalizationsOK.Inc()
	}
}
func (m *Metrics) incFinalizationsNotFound() {
	if m != nil {
		m.FinalizationsNotFound.Inc()
	}
}
func (m *Metrics) incFinalizationsRejected() {
	if m != nil {
		m.FinalizationsRejected.Inc()
	}
}
func (m *Metrics) incFinalizationsBadSig() {
	if m != nil {
		m.FinalizationsBadSig.Inc()
	}
}
func (m *Metrics) incFinalizationsInsufficient() {
	if m != nil {
		m.FinalizationsInsufficient.Inc()
	}
}
func (m *Metrics) incRejections() {
	if m != nil {
		m.Rejections.Inc()
	}
}

// RefreshDAGGauges updates the height/tip-count gauges from the DAG's
// current state. Called at startup by cmd/node and after every commit made
// through Engine.FinalizeTransaction; PRINT_DAG_METRICS reads the gauges
// through Snapshot without refreshing them.
func (m *Metrics) RefreshDAGGauges(d *DAG) {
	if m == nil {
		return
	}
	m.DAGHeight.Set(float64(d.Height()))
	m.DAGTipCount.Set(float64(len(d.Tips())))
}

// metricValue reads the current numeric value off a prometheus.Metric via
// its Write method, the same introspection path promhttp itself uses to
// serialize a registry for scraping.
func metricValue(m prometheus.Metric) float64 {
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		return 0
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	if pb.Gauge != nil {
		return pb.Gauge.GetValue()
	}
	return 0
}

// Snapshot returns every instrument's current value by name, for
// PRINT_DAG_METRICS — a plain-text dump for operators running without a
// scrape endpoint.
func (m *Metrics) Snapshot() map[string]float64 {
	if m == nil {
		return nil
	}
	return map[string]float64{
		"proposals_accepted":          metricValue(m.ProposalsAccepted),
		"proposals_rejected":          metricValue(m.ProposalsRejected),
		"finalizations_total":         metricValue(m.FinalizationsOK),
		"finalizations_not_found":     metricValue(m.FinalizationsNotFound),
		"finalizations_rejected":      metricValue(m.FinalizationsRejected),
		"finalizations_bad_signature": metricValue(m.FinalizationsBadSig),
		"finalizations_insufficient":  metricValue(m.FinalizationsInsufficient),
		"rejections":                  metricValue(m.Rejections),
		"dag_height":                  metricValue(m.DAGHeight),
		"dag_tip_count":               metricValue(m.DAGTipCount),
	}
}
