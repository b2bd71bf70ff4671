package core

import (
	"crypto/ed25519"
	"sync"
)

// PoolView is the read-only lookup capability the global DAG borrows from
// the pool (local-chain validation takes the *UserPool itself). The pool remains the authoritative owner
// of identities; PoolView deliberately exposes nothing that could mutate it.
type PoolView interface {
	PublicKeyOf(name string) (ed25519.PublicKey, bool)
	InitialBalanceOf(name string) uint64
}

// UserPool is the node's identity registry and pending-transaction table.
type UserPool struct {
	mu      sync.RWMutex
	users   map[string]*User
	pending map[string]*PendingTransaction
}

// NewUserPool returns an empty pool.
func NewUserPool() *UserPool {
	return &UserPool{
		users:   make(map[string]*User),
		pending: make(map[string]*PendingTransaction),
	}
}

// AddUser registers a new identity. Fails with ErrUserExists if the name is
// already registered. The user's initial balance is captured permanently
// here for later local-chain revalidation, independent of WalletBalance,
// which mutates as transfers finalize.
func (p *UserPool) AddUser(u *User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.users[u.Name]; exists {
		return ErrUserExists
	}
	p.users[u.Name] = u
	return nil
}

// Exists reports whether name is a registered user.
func (p *UserPool) Exists(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[name]
	return ok
}

// PublicKeyOf returns the current public key on file for name. Implements
// PoolView.
func (p *UserPool) PublicKeyOf(name string) (ed25519.PublicKey, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[name]
	if !ok {
		return nil, false
	}
	return append(ed25519.PublicKey(nil), u.PublicKey...), true
}

// InitialBalanceOf returns the balance name was admitted with, or 0 if name
// is unknown. Implements PoolView.
func (p *UserPool) InitialBalanceOf(name string) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[name]
	if !ok {
		return 0
	}
	return u.InitialBalance
}

// WalletBalanceOf returns the current wallet balance for name.
func (p *UserPool) WalletBalanceOf(name string) (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[name]
	if !ok {
		return 0, false
	}
	return u.WalletBalance, true
}

// LocalChainOf returns the local chain belonging to name.
func (p *UserPool) LocalChainOf(name string) (*LocalChain, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[name]
	if !ok {
		return nil, false
	}
	return u.LocalChain, true
}

// KeyPairOf returns the signing KeyPair for name, if the user has one
// (signing-capable) or not (reloaded, unprovisioned).
func (p *UserPool) KeyPairOf(name string) (*KeyPair, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[name]
	if !ok {
		return nil, false
	}
	return u.KeyPair, true
}

// CanSignOf reports whether name currently holds process-local signing key
// material. False for an unknown user and for one reloaded from a snapshot
// that has not yet been reprovisioned.
func (p *UserPool) CanSignOf(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[name]
	if !ok {
		return false
	}
	return u.CanSign()
}

// InsertPending records a proposed transfer. Callers hold no external lock;
// this method manages its own.
func (p *UserPool) InsertPending(tx PendingTransaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := tx
	p.pending[tx.ID] = &cp
}

// RemovePending deletes and returns the pending transaction with the given
// id, if present.
func (p *UserPool) RemovePending(id string) (PendingTransaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.pending[id]
	if !ok {
		return PendingTransaction{}, false
	}
	delete(p.pending, id)
	return *tx, true
}

// GetPending returns a copy of the pending transaction with the given id
// without removing it.
func (p *UserPool) GetPending(id string) (PendingTransaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.pending[id]
	if !ok {
		return PendingTransaction{}, false
	}
	return *tx, true
}

// PendingByReceiver lists pending transactions awaiting confirmation from
// receiver, for VIEW_PENDING_TRANSACTIONS.
func (p *UserPool) PendingByReceiver(receiver string) []PendingTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []PendingTransaction
	for _, tx := range p.pending {
		if tx.Receiver == receiver {
			out = append(out, *tx)
		}
	}
	return out
}

// Reprovision installs kp as name's signing KeyPair, restoring CanSign()
// after a reload. Callers must have already checked kp.Public matches the
// public key on file — Reprovision itself performs no such check, it only
// requires the user to exist.
func (p *UserPool) Reprovision(name string, kp *KeyPair) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[name]
	if !ok {
		return ErrUnknownUser
	}
	u.KeyPair = kp
	return nil
}

var _ PoolView = (*UserPool)(nil)
