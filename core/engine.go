package core

// Transaction engine: propose and finalize, implementing a fine-grained
// locking discipline where the pool lock is never held across signing,
// verification, or DAG commit.

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Engine ties a UserPool, a DAG, persistence, and metrics together to
// implement the propose/finalize transaction lifecycle.
type Engine struct {
	Pool    *UserPool
	DAG     *DAG
	Persist *Persistence
	Metrics *Metrics
	Log     *log.Logger
}

// NewEngine wires the four collaborators together. persist and metrics may
// be nil (no snapshotting, no instrumentation — useful in tests).
func NewEngine(pool *UserPool, dag *DAG, persist *Persistence, metrics *Metrics) *Engine {
	return &Engine{Pool: pool, DAG: dag, Persist: persist, Metrics: metrics, Log: log.StandardLogger()}
}

// TransferRequest is one (tx_type, sender, receiver, amount) tuple from a
// TRANSACTION command.
type TransferRequest struct {
	Type     string
	Sender   string
	Receiver string
	Amount   uint64
}

// ProposeResult reports the outcome of proposing one TransferRequest.
type ProposeResult struct {
	Request TransferRequest
	TxID    string
	Message string
	Err     error
}

func nowSeconds() uint64 { return uint64(time.Now().Unix()) }

// ProcessTransactions proposes each request in order, independently: one
// tuple's rejection does not affect the others.
func (e *Engine) ProcessTransactions(reqs []TransferRequest) []ProposeResult {
	results := make([]ProposeResult, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, e.proposeOne(req))
	}
	return results
}

func (e *Engine) proposeOne(req TransferRequest) ProposeResult {
	if req.Type != "TOKEN" {
		e.Metrics.incProposalsRejected()
		return ProposeResult{Request: req, Err: ErrUnsupportedTxType}
	}

	// Step 2: advisory existence/balance check under independent read holds,
	// released before signing.
	if !e.Pool.Exists(req.Sender) || !e.Pool.Exists(req.Receiver) {
		e.Metrics.incProposalsRejected()
		return ProposeResult{Request: req, Err: ErrUnknownUser}
	}
	senderBalance, _ := e.Pool.WalletBalanceOf(req.Sender)
	if senderBalance < req.Amount {
		e.Metrics.incProposalsRejected()
		return ProposeResult{Request: req, Err: ErrInsufficientBalance}
	}
	if !e.Pool.CanSignOf(req.Sender) {
		e.Metrics.incProposalsRejected()
		return ProposeResult{Request: req, Err: ErrSign}
	}
	kp, _ := e.Pool.KeyPairOf(req.Sender)

	id := uuid.New().String()
	timestamp := nowSeconds()

	// Step 3/4: sign outside any lock.
	msg := CanonicalMessage(id, req.Sender, req.Receiver, req.Amount, timestamp)
	sig, err := kp.Sign(msg)
	if err != nil {
		e.Metrics.incProposalsRejected()
		return ProposeResult{Request: req, Err: ErrSign}
	}

	// Step 5: write hold to insert, then persist, then release.
	e.Pool.InsertPending(PendingTransaction{
		ID:        id,
		Sender:    req.Sender,
		Receiver:  req.Receiver,
		Amount:    req.Amount,
		Signature: sig,
		Timestamp: timestamp,
	})
	e.snapshotPool()

	e.Metrics.incProposalsAccepted()
	msgTxt := "Transaction " + id + " is pending confirmation from " + req.Receiver
	e.Log.WithField("tx", id).Info(msgTxt)
	return ProposeResult{Request: req, TxID: id, Message: msgTxt}
}

// FinalizeTransaction confirms a pending transaction on behalf of user.
// Failure ordering matters: the signature is re-verified before any balance
// mutation, and balance is re-checked after the signature so a bad
// signature never debits anyone and a bad balance never masks a forged
// signature.
func (e *Engine) FinalizeTransaction(user, txID string) error {
	// Step 1: remove under a write hold. A bad-signature failure from here
	// on does NOT restore the pending entry — a forged or stale signature is
	// never worth retrying, so it is dropped rather than left pending
	// forever. Every other failure before the balances are applied restores
	// it; a DAG commit failure after that point does not (see step 5).
	pending, ok := e.Pool.RemovePending(txID)
	if !ok {
		e.Metrics.incFinalizationsNotFound()
		return ErrTxNotFound
	}
	if pending.Receiver != user {
		e.Pool.InsertPending(pending)
		e.Metrics.incFinalizationsRejected()
		return ErrNotYours
	}

	// Step 2: re-verify signature against the sender's current public key.
	pub, ok := e.Pool.PublicKeyOf(pending.Sender)
	if !ok {
		e.Pool.InsertPending(pending)
		e.Metrics.incFinalizationsRejected()
		return ErrUnknownUser
	}
	msg := CanonicalMessage(pending.ID, pending.Sender, pending.Receiver, pending.Amount, pending.Timestamp)
	if err := Verify(pub, msg, pending.Signature); err != nil {
		e.Metrics.incFinalizationsBadSig()
		return ErrBadSignature
	}

	// Steps 3-4: under a single write hold, re-check balance, debit, credit,
	// append to both local chains. Unlike the bad-signature case above, a
	// failure here restores the pending entry: only a signature that fails
	// re-verification is treated as un-retriable, so a balance race loses the
	// race but not the transaction.
	if err := e.debitCreditAndAppend(pending); err != nil {
		e.Pool.InsertPending(pending)
		e.Metrics.incFinalizationsInsufficient()
		return err
	}

	// Step 5: commit to the DAG, outside the pool lock.
	if _, err := e.DAG.Commit([]BlockTransaction{pending.toBlockTransaction()}); err != nil {
		// The balance/chain mutation already happened; the DAG contract
		// promises commit atomicity for its own state, not a cross-resource
		// rollback into the pool. A signature that passed re-verification a
		// moment ago failing DAG verification would indicate the sender's
		// key changed mid-flight; surfaced, not silently swallowed.
		e.Log.WithField("tx", pending.ID).WithError(err).Error("dag commit failed after balance mutation")
		return err
	}

	// Step 6: snapshot both structures and refresh gauges.
	e.snapshotPool()
	e.snapshotDAG()
	e.Metrics.RefreshDAGGauges(e.DAG)

	e.Metrics.incFinalizationsOK()
	e.Log.WithFields(log.Fields{"tx": pending.ID, "sender": pending.Sender, "receiver": pending.Receiver, "amount": pending.Amount}).Info("finalized")
	return nil
}

func (e *Engine) debitCreditAndAppend(tx PendingTransaction) error {
	e.Pool.mu.Lock()
	defer e.Pool.mu.Unlock()

	sender, ok := e.Pool.users[tx.Sender]
	if !ok {
		return ErrUnknownUser
	}
	receiver, ok := e.Pool.users[tx.Receiver]
	if !ok {
		return ErrUnknownUser
	}
	if sender.WalletBalance < tx.Amount {
		return ErrInsufficientBalance
	}

	sender.WalletBalance -= tx.Amount
	receiver.WalletBalance += tx.Amount

	sender.LocalChain.Append(tx.ID, tx.Sender, tx.Receiver, tx.Amount, tx.Timestamp, tx.Signature)
	receiver.LocalChain.Append(tx.ID, tx.Sender, tx.Receiver, tx.Amount, tx.Timestamp, tx.Signature)
	return nil
}

// RejectTransaction drops a pending transaction with no balance or chain
// effect.
func (e *Engine) RejectTransaction(user, txID string) error {
	pending, ok := e.Pool.RemovePending(txID)
	if !ok {
		return ErrTxNotFound
	}
	if pending.Receiver != user {
		e.Pool.InsertPending(pending)
		return ErrNotYours
	}
	e.snapshotPool()
	e.Metrics.incRejections()
	return nil
}

func (e *Engine) snapshotPool() {
	if e.Persist == nil {
		return
	}
	if err := e.Persist.SnapshotPool(e.Pool); err != nil {
		e.Log.WithError(err).Error("pool snapshot failed")
	}
}

func (e *Engine) snapshotDAG() {
	if e.Persist == nil {
		return
	}
	if err := e.Persist.SnapshotDAG(e.DAG); err != nil {
		e.Log.WithError(err).Error("dag snapshot failed")
	}
}

