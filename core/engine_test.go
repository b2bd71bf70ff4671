package core

import "testing"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	pool := NewUserPool()
	dag := NewDAG(pool)
	return NewEngine(pool, dag, nil, nil)
}

func addTestUser(t *testing.T, e *Engine, name string, balance uint64) {
	t.Helper()
	if err := e.AddUser(name, balance); err != nil {
		t.Fatalf("AddUser(%s): %v", name, err)
	}
}

func TestSingleTransferHappyPath(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 100)
	addTestUser(t, e, "bob", 0)

	results := e.ProcessTransactions([]TransferRequest{{Type: "TOKEN", Sender: "alice", Receiver: "bob", Amount: 40}})
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("propose failed: %+v", results)
	}
	txID := results[0].TxID

	if err := e.FinalizeTransaction("bob", txID); err != nil {
		t.Fatalf("FinalizeTransaction: %v", err)
	}

	aliceBal, _ := e.Pool.WalletBalanceOf("alice")
	bobBal, _ := e.Pool.WalletBalanceOf("bob")
	if aliceBal != 60 {
		t.Fatalf("alice balance = %d, want 60", aliceBal)
	}
	if bobBal != 40 {
		t.Fatalf("bob balance = %d, want 40", bobBal)
	}

	if e.DAG.Height() != 2 {
		t.Fatalf("DAG height = %d, want 2", e.DAG.Height())
	}
	blk, ok := e.DAG.BlockByID("2")
	if !ok || len(blk.Transactions) != 1 || blk.Transactions[0].ID != txID {
		t.Fatalf("block 2 = %+v, ok=%v", blk, ok)
	}
	tips := e.DAG.Tips()
	if len(tips) != 1 || tips[0] != "2" {
		t.Fatalf("tips = %v, want [2]", tips)
	}
}

func TestSignatureTampering(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 100)
	addTestUser(t, e, "bob", 0)

	results := e.ProcessTransactions([]TransferRequest{{Type: "TOKEN", Sender: "alice", Receiver: "bob", Amount: 10}})
	txID := results[0].TxID

	pending, ok := e.Pool.GetPending(txID)
	if !ok {
		t.Fatalf("pending %s not found", txID)
	}
	pending.Signature[0] = 0
	e.Pool.RemovePending(txID)
	e.Pool.InsertPending(pending)

	if err := e.FinalizeTransaction("bob", txID); err != ErrBadSignature {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}

	aliceBal, _ := e.Pool.WalletBalanceOf("alice")
	if aliceBal != 100 {
		t.Fatalf("alice balance = %d, want 100 (unchanged)", aliceBal)
	}
	if _, ok := e.Pool.GetPending(txID); ok {
		t.Fatalf("pending entry must not be restored after BadSignature")
	}
}

func TestDoubleSpendGuard(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 10)
	addTestUser(t, e, "bob", 0)

	results := e.ProcessTransactions([]TransferRequest{
		{Type: "TOKEN", Sender: "alice", Receiver: "bob", Amount: 8},
		{Type: "TOKEN", Sender: "alice", Receiver: "bob", Amount: 8},
	})
	if results[0].Err != nil || results[1].Err != nil {
		t.Fatalf("both proposals should be advisory-accepted: %+v", results)
	}
	x1, x2 := results[0].TxID, results[1].TxID

	if err := e.FinalizeTransaction("bob", x1); err != nil {
		t.Fatalf("FinalizeTransaction(x1): %v", err)
	}
	aliceBal, _ := e.Pool.WalletBalanceOf("alice")
	if aliceBal != 2 {
		t.Fatalf("alice balance after x1 = %d, want 2", aliceBal)
	}

	if err := e.FinalizeTransaction("bob", x2); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance for x2, got %v", err)
	}
	aliceBal, _ = e.Pool.WalletBalanceOf("alice")
	bobBal, _ := e.Pool.WalletBalanceOf("bob")
	if aliceBal != 2 || bobBal != 8 {
		t.Fatalf("balances after failed x2: alice=%d bob=%d, want 2, 8", aliceBal, bobBal)
	}
}

func TestRejectPath(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 100)
	addTestUser(t, e, "bob", 0)

	results := e.ProcessTransactions([]TransferRequest{{Type: "TOKEN", Sender: "alice", Receiver: "bob", Amount: 10}})
	txID := results[0].TxID

	if err := e.RejectTransaction("bob", txID); err != nil {
		t.Fatalf("RejectTransaction: %v", err)
	}

	aliceBal, _ := e.Pool.WalletBalanceOf("alice")
	if aliceBal != 100 {
		t.Fatalf("alice balance = %d, want 100 (unchanged)", aliceBal)
	}
	if _, ok := e.DAG.GetTransaction(txID); ok {
		t.Fatalf("rejected transaction must not appear in the DAG")
	}
	if _, ok := e.Pool.GetPending(txID); ok {
		t.Fatalf("pending table must no longer contain %s", txID)
	}
}

func TestProcessTransactionsUnsupportedType(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 100)
	addTestUser(t, e, "bob", 0)

	results := e.ProcessTransactions([]TransferRequest{{Type: "NFT", Sender: "alice", Receiver: "bob", Amount: 1}})
	if results[0].Err != ErrUnsupportedTxType {
		t.Fatalf("expected ErrUnsupportedTxType, got %v", results[0].Err)
	}
}

func TestProcessTransactionsUnknownUser(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 100)

	results := e.ProcessTransactions([]TransferRequest{{Type: "TOKEN", Sender: "alice", Receiver: "ghost", Amount: 1}})
	if results[0].Err != ErrUnknownUser {
		t.Fatalf("expected ErrUnknownUser, got %v", results[0].Err)
	}
}

func TestFinalizeNotYoursIsRestored(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 100)
	addTestUser(t, e, "bob", 0)
	addTestUser(t, e, "carol", 0)

	results := e.ProcessTransactions([]TransferRequest{{Type: "TOKEN", Sender: "alice", Receiver: "bob", Amount: 10}})
	txID := results[0].TxID

	if err := e.FinalizeTransaction("carol", txID); err != ErrNotYours {
		t.Fatalf("expected ErrNotYours, got %v", err)
	}
	if _, ok := e.Pool.GetPending(txID); !ok {
		t.Fatalf("NotYours must restore the pending entry (unlike BadSignature)")
	}
}

func TestAddUserDuplicateRejected(t *testing.T) {
	e := newTestEngine(t)
	addTestUser(t, e, "alice", 100)
	if err := e.AddUser("alice", 0); err != ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}
