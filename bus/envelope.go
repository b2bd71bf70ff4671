// Package bus implements the peer/operator command surface: a textual
// command dispatcher the engine executes against, and the transport that
// carries command strings between the operator's stdin and discovered LAN
// peers. The core ledger has no notion of "bus" — it only consumes a
// command string and produces a one-line (or multi-line) result.
package bus

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the four Envelope variants exchanged between peers.
type Kind string

const (
	KindIdentity    Kind = "Identity"
	KindIdentityAck Kind = "IdentityAck"
	KindCommand     Kind = "Command"
	KindCommandAck  Kind = "CommandAck"
)

// Envelope is the closed tagged union exchanged between peers: exactly one
// of Name, Ack, or Command is populated, selected by Kind.
type Envelope struct {
	Kind    Kind   `json:"kind"`
	Name    string `json:"name,omitempty"`
	Ack     bool   `json:"ack,omitempty"`
	Command string `json:"command,omitempty"`
}

// NewIdentity builds an Identity{name} envelope, sent once when a peer
// connection is established.
func NewIdentity(name string) Envelope { return Envelope{Kind: KindIdentity, Name: name} }

// NewIdentityAck builds an IdentityAck{ack} envelope.
func NewIdentityAck(ack bool) Envelope { return Envelope{Kind: KindIdentityAck, Ack: ack} }

// NewCommand builds a Command{command} envelope carrying a textual operator
// command to be executed exactly as if typed locally.
func NewCommand(command string) Envelope { return Envelope{Kind: KindCommand, Command: command} }

// NewCommandAck builds a CommandAck{ack} envelope. Acknowledgments are
// best-effort — a peer that never replies does not block the sender's own
// processing.
func NewCommandAck(ack bool) Envelope { return Envelope{Kind: KindCommandAck, Ack: ack} }

// Encode serializes the envelope as a single line of JSON, newline-terminated
// so it composes with a bufio.Scanner on the wire.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeEnvelope parses a single JSON-encoded Envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}
