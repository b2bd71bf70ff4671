package core

// Transaction record types and the content-hash function shared by the
// local chain and VERIFY_TRANSACTION.

import (
	"crypto/sha256"
	"encoding/binary"
)

// BlockTransaction is the canonical record committed to the global DAG.
type BlockTransaction struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    uint64 `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
	Signature []byte `json:"signature"`
}

// CanonicalMessage returns the exact bytes signed/verified for this tx.
func (tx BlockTransaction) CanonicalMessage() []byte {
	return CanonicalMessage(tx.ID, tx.Sender, tx.Receiver, tx.Amount, tx.Timestamp)
}

// ContentHash is the SHA-256 over
// id‖sender‖receiver‖amount-le64‖timestamp-le64‖signature, with fixed-width
// integers written via encoding/binary.LittleEndian so the encoding is
// unambiguous regardless of value.
func ContentHash(id, sender, receiver string, amount, timestamp uint64, signature []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(id))
	h.Write([]byte(sender))
	h.Write([]byte(receiver))

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], amount)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], timestamp)
	h.Write(buf[:])

	h.Write(signature)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// PendingTransaction is the full proposal envelope recorded in
// UserPool.pending until confirmed or rejected.
type PendingTransaction struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    uint64 `json:"amount"`
	Signature []byte `json:"signature"`
	Timestamp uint64 `json:"timestamp"`
}

func (p PendingTransaction) toBlockTransaction() BlockTransaction {
	return BlockTransaction{
		ID:        p.ID,
		Sender:    p.Sender,
		Receiver:  p.Receiver,
		Amount:    p.Amount,
		Timestamp: p.Timestamp,
		Signature: p.Signature,
	}
}
