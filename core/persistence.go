package core

// Snapshot persistence for the pool and DAG: a JSON encode of the whole
// structure written to a temp file in the same directory, fsynced, then
// renamed over the target, which is atomic on any POSIX filesystem —
// readers only ever see the old file or the new one, never a partial one.

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Persistence writes/reads pool and DAG snapshots under a single directory.
type Persistence struct {
	Dir string
}

// NewPersistence returns a Persistence rooted at dir, creating it if needed.
func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	return &Persistence{Dir: dir}, nil
}

func (p *Persistence) poolPath() string { return filepath.Join(p.Dir, "pool.json") }
func (p *Persistence) dagPath() string  { return filepath.Join(p.Dir, "dag.json") }

// writeAtomic encodes v as JSON into a temp file beside path, fsyncs it, and
// renames it over path.
func writeAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	tmpName := tmp.Name()
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	return nil
}

// poolSnapshot is the on-disk shape of a UserPool. Pending transactions
// round-trip in full (they carry no private key material); users round-trip
// everything except the signing key — private key material is never
// serialized.
type poolSnapshot struct {
	Users   []*User              `json:"users"`
	Pending []PendingTransaction `json:"pending"`
}

// SnapshotPool writes the pool's current state to pool.json.
func (p *Persistence) SnapshotPool(pool *UserPool) error {
	pool.mu.RLock()
	snap := poolSnapshot{}
	for _, u := range pool.users {
		snap.Users = append(snap.Users, u)
	}
	for _, tx := range pool.pending {
		snap.Pending = append(snap.Pending, *tx)
	}
	pool.mu.RUnlock()
	return writeAtomic(p.poolPath(), snap)
}

// LoadPool reads pool.json, if present, and rebuilds a UserPool. Every user
// comes back with CanSign() == false: its KeyPair holds only the public key
// until REPROVISION_KEY restores signing capability.
func (p *Persistence) LoadPool() (*UserPool, error) {
	pool := NewUserPool()
	data, err := os.ReadFile(p.poolPath())
	if os.IsNotExist(err) {
		return pool, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}

	var snap poolSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}

	for _, u := range snap.Users {
		u.KeyPair = KeyPairFromPublic(ed25519.PublicKey(u.PublicKey))
		pool.users[u.Name] = u
	}
	for _, tx := range snap.Pending {
		cp := tx
		pool.pending[tx.ID] = &cp
	}
	return pool, nil
}

// dagSnapshot is the on-disk shape of a DAG. The pool lookup capability is
// deliberately omitted — rebound via AttachPool after load, since the DAG
// never owns identity, only borrows it.
type dagSnapshot struct {
	Blocks        []*Block `json:"blocks"`
	Tips          []string `json:"tips"`
	CurrentHeight uint64   `json:"current_height"`
}

// SnapshotDAG writes the DAG's current state to dag.json.
func (p *Persistence) SnapshotDAG(d *DAG) error {
	d.mu.Lock()
	snap := dagSnapshot{CurrentHeight: d.currentHeight}
	for _, id := range d.sortedBlockIDsLocked() {
		snap.Blocks = append(snap.Blocks, cloneBlockPtr(d.blocks[id]))
	}
	for id := range d.tips {
		snap.Tips = append(snap.Tips, id)
	}
	sort.Strings(snap.Tips)
	d.mu.Unlock()
	return writeAtomic(p.dagPath(), snap)
}

func cloneBlockPtr(b *Block) *Block {
	c := cloneBlock(b)
	return &c
}

// LoadDAG reads dag.json, if present, and rebuilds a DAG bound to pool. If
// no snapshot exists, a fresh genesis DAG is returned.
func (p *Persistence) LoadDAG(pool PoolView) (*DAG, error) {
	data, err := os.ReadFile(p.dagPath())
	if os.IsNotExist(err) {
		return NewDAG(pool), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}

	var snap dagSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}

	d := &DAG{
		blocks:        make(map[string]*Block, len(snap.Blocks)),
		tips:          make(map[string]struct{}, len(snap.Tips)),
		currentHeight: snap.CurrentHeight,
		pool:          pool,
	}
	for _, b := range snap.Blocks {
		d.blocks[b.ID] = b
	}
	for _, id := range snap.Tips {
		d.tips[id] = struct{}{}
	}
	return d, nil
}
