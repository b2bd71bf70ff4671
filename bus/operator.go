package bus

// Operator is the line-oriented stdin loop: the thinnest possible adapter
// from a terminal to a Dispatcher, one command per line, one response
// printed per line, with no flag parsing or subcommands — the cobra-based
// CLI lives in cmd/node instead, for process startup only.

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Operator reads commands from r, executes them against dispatcher, and
// writes results to w. If node is non-nil, every command whose response does
// not start with "Error" is also forwarded to known peers: peer commands run exactly as if typed
// locally, and the converse holds too — local commands are broadcast so
// peer state progresses in lockstep.
type Operator struct {
	Dispatcher *Dispatcher
	Node       *Node
}

// NewOperator wires a Dispatcher (and optionally a Node for broadcast) into
// an Operator.
func NewOperator(dispatcher *Dispatcher, node *Node) *Operator {
	return &Operator{Dispatcher: dispatcher, Node: node}
}

// Run blocks reading lines from r until EOF, executing each non-blank,
// non-comment line and writing its response to w, one response per command
// (dump commands respond with several lines).
func (o *Operator) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result := o.Dispatcher.Execute(line)
		fmt.Fprintln(w, result)
		if o.Node != nil && !strings.HasPrefix(result, "Error") {
			o.Node.Broadcast(line)
		}
	}
	return scanner.Err()
}
