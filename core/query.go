package core

// Read-only cross-checks spanning the pool and the DAG. These are queries,
// not part of the propose/finalize lifecycle, but they need both
// collaborators Engine already holds, so they live beside it rather than in
// UserPool or DAG individually.

// QueryTransaction returns the committed BlockTransaction with the given id,
// if any.
func (e *Engine) QueryTransaction(txID string) (BlockTransaction, bool) {
	return e.DAG.GetTransaction(txID)
}

// VerifyTransaction cross-checks a committed transaction against both the
// sender's and receiver's local chains: their content hashes must match the
// global record and each other, and the signature must still verify against
// the sender's current public key.
func (e *Engine) VerifyTransaction(txID string) error {
	global, ok := e.DAG.GetTransaction(txID)
	if !ok {
		return ErrTxNotFound
	}

	senderChain, ok := e.Pool.LocalChainOf(global.Sender)
	if !ok {
		return ErrUnknownUser
	}
	receiverChain, ok := e.Pool.LocalChainOf(global.Receiver)
	if !ok {
		return ErrUnknownUser
	}

	if _, ok := senderChain.Find(txID); !ok {
		return ErrHashMismatch
	}
	if _, ok := receiverChain.Find(txID); !ok {
		return ErrHashMismatch
	}

	globalHash := ContentHash(global.ID, global.Sender, global.Receiver, global.Amount, global.Timestamp, global.Signature)
	senderHash, _ := senderChain.Hash(txID)
	receiverHash, _ := receiverChain.Hash(txID)
	if globalHash != senderHash || globalHash != receiverHash {
		return ErrHashMismatch
	}

	pub, ok := e.Pool.PublicKeyOf(global.Sender)
	if !ok {
		return ErrUnknownUser
	}
	if err := Verify(pub, global.CanonicalMessage(), global.Signature); err != nil {
		return ErrBadSignature
	}
	return nil
}

// ValidateLocalDAG replays user's local chain from its root.
func (e *Engine) ValidateLocalDAG(user string) error {
	chain, ok := e.Pool.LocalChainOf(user)
	if !ok {
		return ErrUnknownUser
	}
	return chain.Validate(user, e.Pool)
}
