package bus

// Dispatcher parses and executes the textual operator commands against a
// core.Engine. It is the only place command syntax is interpreted — the
// operator surface is an external collaborator, so this package, not core,
// owns parsing.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/synnergy-labs/ledgernode/core"
)

// Dispatcher executes one textual command at a time against a shared Engine.
// The same Dispatcher backs both the local stdin loop and inbound peer
// Command envelopes, executed exactly as if typed locally.
type Dispatcher struct {
	Engine *core.Engine
}

// NewDispatcher wraps engine for command execution.
func NewDispatcher(engine *core.Engine) *Dispatcher {
	return &Dispatcher{Engine: engine}
}

// Execute parses and runs a single command line, returning its response —
// usually one line, sometimes several for dump commands. Malformed input
// yields a one-line "Error: ..." response; exit codes are not part of this
// contract.
func (d *Dispatcher) Execute(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "Error: empty command"
	}

	switch fields[0] {
	case "ADD_USER":
		return d.addUser(fields[1:])
	case "ADD_USER_WITH_MNEMONIC":
		return d.addUserWithMnemonic(fields[1:])
	case "REPROVISION_KEY":
		return d.reprovisionKey(fields[1:])
	case "TRANSACTION":
		return d.transaction(fields[1:])
	case "VIEW_PENDING_TRANSACTIONS":
		return d.viewPending(fields[1:])
	case "CONFIRM_TRANSACTION":
		return d.confirm(fields[1:])
	case "REJECT_TRANSACTION":
		return d.reject(fields[1:])
	case "CHECK_BALANCE":
		return d.checkBalance(fields[1:])
	case "QUERY_TRANSACTION":
		return d.queryTransaction(fields[1:])
	case "VERIFY_TRANSACTION":
		return d.verifyTransaction(fields[1:])
	case "VALIDATE_LOCAL_DAG":
		return d.validateLocalDAG(fields[1:])
	case "FETCH_USER_DAGS":
		return d.fetchUserDAGs(fields[1:])
	case "PRINT_DAG":
		return d.printDAG()
	case "PRINT_USER_DAG":
		return d.printUserDAG(fields[1:])
	case "PRINT_DAG_METRICS":
		return d.printDAGMetrics()
	default:
		return fmt.Sprintf("Error: unknown command %q", fields[0])
	}
}

func (d *Dispatcher) addUser(args []string) string {
	if len(args) != 2 {
		return "Error: usage ADD_USER <name> <initial_balance>"
	}
	balance, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Sprintf("Error: invalid initial_balance %q", args[1])
	}
	if err := d.Engine.AddUser(args[0], balance); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("User %s added with balance %d", args[0], balance)
}

func (d *Dispatcher) addUserWithMnemonic(args []string) string {
	if len(args) < 3 {
		return "Error: usage ADD_USER_WITH_MNEMONIC <name> <initial_balance> <mnemonic...>"
	}
	balance, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Sprintf("Error: invalid initial_balance %q", args[1])
	}
	mnemonic := strings.Join(args[2:], " ")
	if err := d.Engine.AddUserWithMnemonic(args[0], balance, mnemonic); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("User %s added with balance %d (mnemonic-backed)", args[0], balance)
}

func (d *Dispatcher) reprovisionKey(args []string) string {
	if len(args) < 2 {
		return "Error: usage REPROVISION_KEY <name> <mnemonic...>"
	}
	mnemonic := strings.Join(args[1:], " ")
	if err := d.Engine.ReprovisionKey(args[0], mnemonic); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("%s reprovisioned", args[0])
}

// transaction parses one or more "TOKEN sender receiver amount" 4-tuples
// and proposes each in order.
func (d *Dispatcher) transaction(args []string) string {
	if len(args) == 0 || len(args)%4 != 0 {
		return "Error: usage TRANSACTION TOKEN <sender> <receiver> <amount> [TOKEN <sender> <receiver> <amount> ...]"
	}
	reqs := make([]core.TransferRequest, 0, len(args)/4)
	for i := 0; i+4 <= len(args); i += 4 {
		amount, err := strconv.ParseUint(args[i+3], 10, 64)
		if err != nil {
			return fmt.Sprintf("Error: invalid amount %q", args[i+3])
		}
		reqs = append(reqs, core.TransferRequest{
			Type:     args[i],
			Sender:   args[i+1],
			Receiver: args[i+2],
			Amount:   amount,
		})
	}

	results := d.Engine.ProcessTransactions(reqs)
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			lines = append(lines, fmt.Sprintf("Error: %v", r.Err))
			continue
		}
		lines = append(lines, r.Message)
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) viewPending(args []string) string {
	if len(args) != 1 {
		return "Error: usage VIEW_PENDING_TRANSACTIONS <user>"
	}
	pending := d.Engine.Pool.PendingByReceiver(args[0])
	if len(pending) == 0 {
		return fmt.Sprintf("No pending transactions for %s", args[0])
	}
	lines := make([]string, 0, len(pending))
	for _, tx := range pending {
		lines = append(lines, fmt.Sprintf("%s: %s -> %s amount=%d timestamp=%d", tx.ID, tx.Sender, tx.Receiver, tx.Amount, tx.Timestamp))
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) confirm(args []string) string {
	if len(args) != 2 {
		return "Error: usage CONFIRM_TRANSACTION <user> <tx_id>"
	}
	if err := d.Engine.FinalizeTransaction(args[0], args[1]); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Transaction %s confirmed", args[1])
}

func (d *Dispatcher) reject(args []string) string {
	if len(args) != 2 {
		return "Error: usage REJECT_TRANSACTION <user> <tx_id>"
	}
	if err := d.Engine.RejectTransaction(args[0], args[1]); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Transaction %s rejected", args[1])
}

func (d *Dispatcher) checkBalance(args []string) string {
	if len(args) != 1 {
		return "Error: usage CHECK_BALANCE <user>"
	}
	balance, ok := d.Engine.Pool.WalletBalanceOf(args[0])
	if !ok {
		return fmt.Sprintf("Error: %v", core.ErrUnknownUser)
	}
	return fmt.Sprintf("%s balance: %d", args[0], balance)
}

func (d *Dispatcher) queryTransaction(args []string) string {
	if len(args) != 1 {
		return "Error: usage QUERY_TRANSACTION <tx_id>"
	}
	tx, ok := d.Engine.QueryTransaction(args[0])
	if !ok {
		return fmt.Sprintf("Error: %v", core.ErrTxNotFound)
	}
	return fmt.Sprintf("id=%s sender=%s receiver=%s amount=%d timestamp=%d signature=%x",
		tx.ID, tx.Sender, tx.Receiver, tx.Amount, tx.Timestamp, tx.Signature)
}

func (d *Dispatcher) verifyTransaction(args []string) string {
	if len(args) != 1 {
		return "Error: usage VERIFY_TRANSACTION <tx_id>"
	}
	if err := d.Engine.VerifyTransaction(args[0]); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Transaction %s verified", args[0])
}

func (d *Dispatcher) validateLocalDAG(args []string) string {
	if len(args) != 1 {
		return "Error: usage VALIDATE_LOCAL_DAG <user>"
	}
	if err := d.Engine.ValidateLocalDAG(args[0]); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("%s local chain valid", args[0])
}

func (d *Dispatcher) fetchUserDAGs(args []string) string {
	if len(args) == 0 {
		return "Error: usage FETCH_USER_DAGS <user>..."
	}
	var out []string
	for _, name := range args {
		out = append(out, dumpUserChain(d.Engine, name))
	}
	return strings.Join(out, "\n")
}

func (d *Dispatcher) printDAG() string {
	var out []string
	for _, id := range d.Engine.DAG.AllBlockIDs() {
		blk, ok := d.Engine.DAG.BlockByID(id)
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf("block %s parents=%v children=%v txs=%d", blk.ID, blk.ParentIDs, blk.ChildIDs, len(blk.Transactions)))
	}
	return strings.Join(out, "\n")
}

func (d *Dispatcher) printUserDAG(args []string) string {
	if len(args) != 1 {
		return "Error: usage PRINT_USER_DAG <user>"
	}
	return dumpUserChain(d.Engine, args[0])
}

func dumpUserChain(engine *core.Engine, name string) string {
	chain, ok := engine.Pool.LocalChainOf(name)
	if !ok {
		return fmt.Sprintf("Error: %v: %s", core.ErrUnknownUser, name)
	}
	nodes := chain.Ordered()
	if len(nodes) == 0 {
		return fmt.Sprintf("%s: (empty)", name)
	}
	lines := make([]string, 0, len(nodes)+1)
	lines = append(lines, fmt.Sprintf("%s:", name))
	for _, n := range nodes {
		lines = append(lines, fmt.Sprintf("  %s: %s -> %s amount=%d timestamp=%d parent=%s", n.ID, n.Sender, n.Receiver, n.Amount, n.Timestamp, n.ParentID))
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) printDAGMetrics() string {
	snap := d.Engine.Metrics.Snapshot()
	if snap == nil {
		return "metrics disabled"
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s %g", k, snap[k]))
	}
	return strings.Join(lines, "\n")
}
