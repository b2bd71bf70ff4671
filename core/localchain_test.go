package core

import "testing"

func TestLocalChainAppendAndFind(t *testing.T) {
	c := NewLocalChain()
	if c.LatestID != "" {
		t.Fatalf("expected empty chain to have no latest_id")
	}
	c.Append("tx1", "alice", "bob", 10, 100, []byte{1})
	if c.LatestID != "tx1" {
		t.Fatalf("LatestID = %q, want tx1", c.LatestID)
	}
	n, ok := c.Find("tx1")
	if !ok || n.ParentID != "" {
		t.Fatalf("expected tx1 to be the root with no parent")
	}

	c.Append("tx2", "bob", "carol", 5, 101, []byte{2})
	if c.LatestID != "tx2" {
		t.Fatalf("LatestID = %q, want tx2", c.LatestID)
	}
	root, _ := c.Find("tx1")
	if len(root.ChildIDs) != 1 || root.ChildIDs[0] != "tx2" {
		t.Fatalf("expected tx1.child_ids = [tx2], got %v", root.ChildIDs)
	}
	tail, _ := c.Find("tx2")
	if tail.ParentID != "tx1" {
		t.Fatalf("expected tx2.parent_id = tx1, got %q", tail.ParentID)
	}
}

func TestLocalChainHashMatchesAcrossSenderReceiver(t *testing.T) {
	sender := NewLocalChain()
	receiver := NewLocalChain()
	sig := []byte{9, 9, 9}
	sender.Append("tx1", "alice", "bob", 10, 100, sig)
	receiver.Append("tx1", "alice", "bob", 10, 100, sig)

	hs, ok := sender.Hash("tx1")
	if !ok {
		t.Fatalf("sender chain missing tx1")
	}
	hr, ok := receiver.Hash("tx1")
	if !ok {
		t.Fatalf("receiver chain missing tx1")
	}
	if hs != hr {
		t.Fatalf("content hash differs between sender and receiver copies of tx1")
	}
}

func TestLocalChainValidateHappyPath(t *testing.T) {
	pool := NewUserPool()
	alice, err := NewUser("alice", 100)
	if err != nil {
		t.Fatalf("NewUser alice: %v", err)
	}
	bob, err := NewUser("bob", 0)
	if err != nil {
		t.Fatalf("NewUser bob: %v", err)
	}
	if err := pool.AddUser(alice); err != nil {
		t.Fatalf("AddUser alice: %v", err)
	}
	if err := pool.AddUser(bob); err != nil {
		t.Fatalf("AddUser bob: %v", err)
	}

	msg := CanonicalMessage("tx1", "alice", "bob", 40, 1700000000)
	sig, err := alice.KeyPair.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	alice.LocalChain.Append("tx1", "alice", "bob", 40, 1700000000, sig)
	bob.LocalChain.Append("tx1", "alice", "bob", 40, 1700000000, sig)

	if err := alice.LocalChain.Validate("alice", pool); err != nil {
		t.Fatalf("alice chain should validate: %v", err)
	}
	if err := bob.LocalChain.Validate("bob", pool); err != nil {
		t.Fatalf("bob chain should validate: %v", err)
	}
}

func TestLocalChainValidateDetectsTamperedSignature(t *testing.T) {
	pool := NewUserPool()
	alice, _ := NewUser("alice", 100)
	bob, _ := NewUser("bob", 0)
	_ = pool.AddUser(alice)
	_ = pool.AddUser(bob)

	msg := CanonicalMessage("tx1", "alice", "bob", 40, 1700000000)
	sig, _ := alice.KeyPair.Sign(msg)
	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0xFF
	alice.LocalChain.Append("tx1", "alice", "bob", 40, 1700000000, tampered)

	if err := alice.LocalChain.Validate("alice", pool); err != ErrBadSignature {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestLocalChainValidateDetectsInsufficientBalance(t *testing.T) {
	pool := NewUserPool()
	alice, _ := NewUser("alice", 10)
	bob, _ := NewUser("bob", 0)
	_ = pool.AddUser(alice)
	_ = pool.AddUser(bob)

	msg := CanonicalMessage("tx1", "alice", "bob", 40, 1700000000)
	sig, _ := alice.KeyPair.Sign(msg)
	alice.LocalChain.Append("tx1", "alice", "bob", 40, 1700000000, sig)

	if err := alice.LocalChain.Validate("alice", pool); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
