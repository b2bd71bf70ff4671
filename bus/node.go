package bus

// Node is the LAN transport: it discovers peers via mDNS and exchanges
// Envelope-framed identity/command messages over direct libp2p streams, not
// a pubsub broadcast topic — delivering a textual command string to a peer
// and optionally returning an acknowledgment is all this surface promises.

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	log "github.com/sirupsen/logrus"
)

// Protocol is the libp2p stream protocol this node speaks.
const Protocol = protocol.ID("/ledgernode/envelope/1.0.0")

// Config carries the network parameters a Node is built from.
type Config struct {
	ListenAddr     string
	DiscoveryTag   string
	BootstrapPeers []string
}

// Node is this process's LAN peer. It owns a libp2p host, tracks known
// peers, and forwards inbound Command envelopes to a Dispatcher exactly as
// if they had been typed locally.
type Node struct {
	host       host.Host
	dispatcher *Dispatcher
	name       string

	peerLock sync.RWMutex
	peers    map[peer.ID]string // peer id -> identity name, once exchanged

	ctx    context.Context
	cancel context.CancelFunc
}

// NewNode creates and bootstraps a node: it opens a libp2p host listening on
// cfg.ListenAddr, registers the envelope stream handler, dials any
// bootstrap peers, and starts mDNS discovery under cfg.DiscoveryTag.
func NewNode(cfg Config, name string, dispatcher *Dispatcher) (*Node, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create host: %w", err)
	}

	n := &Node{
		host:       h,
		dispatcher: dispatcher,
		name:       name,
		peers:      make(map[peer.ID]string),
		ctx:        ctx,
		cancel:     cancel,
	}

	h.SetStreamHandler(Protocol, n.handleStream)

	for _, addr := range cfg.BootstrapPeers {
		pi, err := peer.AddrInfoFromString(addr)
		if err != nil {
			log.WithError(err).Warnf("invalid bootstrap addr %s", addr)
			continue
		}
		if err := h.Connect(ctx, *pi); err != nil {
			log.WithError(err).Warnf("connect to bootstrap peer %s", addr)
			continue
		}
	}

	// mDNS discovery: register n as the notifee, then start browsing. A
	// failure to start is logged; the node still serves inbound streams and
	// bootstrap peers.
	if err := mdns.NewMdnsService(h, cfg.DiscoveryTag, n).Start(); err != nil {
		log.WithError(err).Warn("failed to start mDNS discovery")
	}

	return n, nil
}

var _ mdns.Notifee = (*Node)(nil)

// HandlePeerFound implements mdns.Notifee: connect to a newly discovered
// peer and exchange identities over the envelope protocol.
func (n *Node) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.host.ID() {
		return
	}
	n.peerLock.RLock()
	_, known := n.peers[info.ID]
	n.peerLock.RUnlock()
	if known {
		return
	}

	if err := n.host.Connect(n.ctx, info); err != nil {
		log.WithError(err).Warnf("failed to connect to discovered peer %s", info.ID)
		return
	}

	ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
	defer cancel()
	s, err := n.host.NewStream(ctx, info.ID, Protocol)
	if err != nil {
		log.WithError(err).Warnf("failed to open stream to %s", info.ID)
		return
	}
	defer s.Close()

	if err := writeEnvelope(s, NewIdentity(n.name)); err != nil {
		log.WithError(err).Warn("failed to send identity")
		return
	}
	ack, err := readEnvelope(bufio.NewReader(s))
	if err != nil || ack.Kind != KindIdentityAck {
		log.Warn("no identity ack from discovered peer")
		return
	}

	log.Infof("connected to peer %s via mDNS", info.ID)
}

// handleStream services one inbound stream: it reads envelopes line by line
// until the peer closes the stream, dispatching Command envelopes to the
// local Dispatcher and echoing Identity with an IdentityAck.
func (n *Node) handleStream(s network.Stream) {
	defer s.Close()
	r := bufio.NewReader(s)
	for {
		env, err := readEnvelope(r)
		if err != nil {
			return
		}
		switch env.Kind {
		case KindIdentity:
			n.peerLock.Lock()
			n.peers[s.Conn().RemotePeer()] = env.Name
			n.peerLock.Unlock()
			_ = writeEnvelope(s, NewIdentityAck(true))
		case KindCommand:
			result := n.dispatcher.Execute(env.Command)
			ok := len(result) == 0 || result[:1] != "E"
			log.WithField("peer", s.Conn().RemotePeer()).Infof("executed peer command %q", env.Command)
			_ = writeEnvelope(s, NewCommandAck(ok))
		default:
			// IdentityAck/CommandAck received without a matching request on
			// this stream: nothing to do, acknowledgments are best-effort.
		}
	}
}

// Broadcast forwards command to every known peer, best-effort: a peer that
// fails to connect or never acknowledges does not block the others or the
// caller — a stalled peer cannot block local processing.
func (n *Node) Broadcast(command string) {
	n.peerLock.RLock()
	ids := make([]peer.ID, 0, len(n.peers))
	for id := range n.peers {
		ids = append(ids, id)
	}
	n.peerLock.RUnlock()

	for _, id := range ids {
		go n.sendCommand(id, command)
	}
}

func (n *Node) sendCommand(id peer.ID, command string) {
	ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
	defer cancel()
	s, err := n.host.NewStream(ctx, id, Protocol)
	if err != nil {
		log.WithError(err).Warnf("broadcast: failed to open stream to %s", id)
		return
	}
	defer s.Close()
	if err := writeEnvelope(s, NewCommand(command)); err != nil {
		log.WithError(err).Warnf("broadcast: failed to send command to %s", id)
		return
	}
	if _, err := readEnvelope(bufio.NewReader(s)); err != nil {
		log.WithError(err).Debugf("broadcast: no ack from %s", id)
	}
}

// Close tears the node down.
func (n *Node) Close() error {
	n.cancel()
	return n.host.Close()
}

func writeEnvelope(w io.Writer, e Envelope) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readEnvelope(r *bufio.Reader) (Envelope, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Envelope{}, err
	}
	return DecodeEnvelope(line)
}
