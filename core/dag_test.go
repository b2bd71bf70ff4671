package core

import (
	"crypto/ed25519"
	"testing"
)

// fixedPoolView is a minimal PoolView for DAG tests that don't need a full
// UserPool — just a name-to-public-key map.
type fixedPoolView map[string]ed25519.PublicKey

func (f fixedPoolView) PublicKeyOf(name string) (ed25519.PublicKey, bool) {
	k, ok := f[name]
	return k, ok
}
func (f fixedPoolView) InitialBalanceOf(name string) uint64 { return 0 }

func signedTx(t *testing.T, kp *KeyPair, id, sender, receiver string, amount, timestamp uint64) BlockTransaction {
	t.Helper()
	msg := CanonicalMessage(id, sender, receiver, amount, timestamp)
	sig, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return BlockTransaction{ID: id, Sender: sender, Receiver: receiver, Amount: amount, Timestamp: timestamp, Signature: sig}
}

func TestDAGGenesis(t *testing.T) {
	d := NewDAG(fixedPoolView{})
	if d.Height() != 1 {
		t.Fatalf("Height() = %d, want 1", d.Height())
	}
	tips := d.Tips()
	if len(tips) != 1 || tips[0] != "1" {
		t.Fatalf("Tips() = %v, want [1]", tips)
	}
	b, ok := d.BlockByID("1")
	if !ok || len(b.Transactions) != 0 || len(b.ParentIDs) != 0 {
		t.Fatalf("genesis block malformed: %+v", b)
	}
}

func TestDAGCommitSingleBlock(t *testing.T) {
	kp, _ := GenerateKeyPair()
	view := fixedPoolView{"alice": kp.Public}
	d := NewDAG(view)

	tx := signedTx(t, kp, "tx1", "alice", "bob", 40, 1700000000)
	blocks, err := d.Commit([]BlockTransaction{tx})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != "2" {
		t.Fatalf("expected single block id 2, got %+v", blocks)
	}
	if d.Height() != 2 {
		t.Fatalf("Height() = %d, want 2", d.Height())
	}
	tips := d.Tips()
	if len(tips) != 1 || tips[0] != "2" {
		t.Fatalf("Tips() = %v, want [2]", tips)
	}
	got, ok := d.GetTransaction("tx1")
	if !ok || got.Amount != 40 {
		t.Fatalf("GetTransaction(tx1) = %+v, ok=%v", got, ok)
	}
}

func TestDAGCommitSplitsAtK(t *testing.T) {
	kp, _ := GenerateKeyPair()
	view := fixedPoolView{"alice": kp.Public}
	d := NewDAG(view)

	txs := make([]BlockTransaction, 0, 6)
	for i := 0; i < 6; i++ {
		txs = append(txs, signedTx(t, kp, string(rune('a'+i)), "alice", "bob", 1, uint64(1700000000+i)))
	}
	blocks, err := d.Commit(txs)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks from a 6-tx batch, got %d", len(blocks))
	}
	if blocks[0].ID != "2.1" || len(blocks[0].Transactions) != 5 {
		t.Fatalf("blocks[0] = %+v, want id 2.1 with 5 txs", blocks[0])
	}
	if blocks[1].ID != "2.2" || len(blocks[1].Transactions) != 1 {
		t.Fatalf("blocks[1] = %+v, want id 2.2 with 1 tx", blocks[1])
	}
	if blocks[0].ParentIDs[0] != "1" || blocks[1].ParentIDs[0] != "1" {
		t.Fatalf("expected both chunks to share genesis as parent, got %v / %v", blocks[0].ParentIDs, blocks[1].ParentIDs)
	}

	genesis, _ := d.BlockByID("1")
	if len(genesis.ChildIDs) != 2 {
		t.Fatalf("expected genesis to fan out to both new blocks, got %v", genesis.ChildIDs)
	}

	tips := d.Tips()
	if len(tips) != 2 {
		t.Fatalf("expected 2 tips after a 2-chunk commit, got %v", tips)
	}
}

func TestDAGCommitAtomicOnBadSignature(t *testing.T) {
	kp, _ := GenerateKeyPair()
	view := fixedPoolView{"alice": kp.Public}
	d := NewDAG(view)

	good := signedTx(t, kp, "tx1", "alice", "bob", 10, 1700000000)
	bad := signedTx(t, kp, "tx2", "alice", "bob", 10, 1700000001)
	bad.Signature[0] ^= 0xFF

	beforeHeight := d.Height()
	beforeTips := d.Tips()

	_, err := d.Commit([]BlockTransaction{good, bad})
	if err == nil {
		t.Fatalf("expected Commit to fail on a batch containing a bad signature")
	}
	if d.Height() != beforeHeight {
		t.Fatalf("height changed after failed commit: %d -> %d", beforeHeight, d.Height())
	}
	if got := d.Tips(); len(got) != len(beforeTips) || got[0] != beforeTips[0] {
		t.Fatalf("tips changed after failed commit: %v -> %v", beforeTips, got)
	}
	if _, ok := d.GetTransaction("tx1"); ok {
		t.Fatalf("expected no partial commit: tx1 should not be findable")
	}
}

func TestDAGCommitEmptyIsNoOp(t *testing.T) {
	d := NewDAG(fixedPoolView{})
	before := d.Height()
	blocks, err := d.Commit(nil)
	if err != nil || blocks != nil {
		t.Fatalf("Commit(nil) = %v, %v, want nil, nil", blocks, err)
	}
	if d.Height() != before {
		t.Fatalf("height changed on empty commit")
	}
}
