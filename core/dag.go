package core

import (
	"fmt"
	"sort"
	"sync"
)

// DAG is the node's shared, append-only ledger of committed transaction
// blocks: tip-tracked, batching transactions into height-stamped blocks of
// up to K, guarded by a single mutual-exclusion lock so every commit and
// lookup serializes through it. It borrows a PoolView (never a *UserPool)
// to re-verify signatures during commit — the pool owns identities, the
// DAG only reads them.
type DAG struct {
	mu            sync.Mutex
	blocks        map[string]*Block
	tips          map[string]struct{}
	currentHeight uint64

	pool PoolView
}

// NewDAG creates a DAG seeded with the genesis block, id "1", no
// transactions, no parents.
func NewDAG(pool PoolView) *DAG {
	genesis := &Block{ID: "1"}
	return &DAG{
		blocks:        map[string]*Block{"1": genesis},
		tips:          map[string]struct{}{"1": {}},
		currentHeight: 1,
		pool:          pool,
	}
}

// AttachPool rebinds the pool lookup capability after a snapshot load,
// which omits the pool reference entirely.
func (d *DAG) AttachPool(pool PoolView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pool = pool
}

// Height returns the current height.
func (d *DAG) Height() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentHeight
}

// Tips returns a copy of the current tip set.
func (d *DAG) Tips() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.tips))
	for id := range d.tips {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// BlockByID returns a copy of the block with the given id.
func (d *DAG) BlockByID(id string) (Block, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.blocks[id]
	if !ok {
		return Block{}, false
	}
	return cloneBlock(b), true
}

func cloneBlock(b *Block) Block {
	out := Block{ID: b.ID}
	out.Transactions = append(out.Transactions, b.Transactions...)
	out.ParentIDs = append(out.ParentIDs, b.ParentIDs...)
	out.ChildIDs = append(out.ChildIDs, b.ChildIDs...)
	return out
}

// GetTransaction scans blocks for the first BlockTransaction with the given
// id and returns a copy.
func (d *DAG) GetTransaction(txID string) (BlockTransaction, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.sortedBlockIDsLocked() {
		b := d.blocks[id]
		for _, tx := range b.Transactions {
			if tx.ID == txID {
				return tx, true
			}
		}
	}
	return BlockTransaction{}, false
}

// AllBlockIDs returns every block id currently known, sorted, for PRINT_DAG.
func (d *DAG) AllBlockIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sortedBlockIDsLocked()
}

func (d *DAG) sortedBlockIDsLocked() []string {
	ids := make([]string, 0, len(d.blocks))
	for id := range d.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Commit batches transactions into one or more new blocks anchored on the
// current tip set. An empty list succeeds with no change. A single
// signature failure fails the whole batch atomically — no partial commit,
// and current_height/tips/blocks are left bytewise unchanged.
func (d *DAG) Commit(transactions []BlockTransaction) ([]Block, error) {
	if len(transactions) == 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, tx := range transactions {
		pub, ok := d.pool.PublicKeyOf(tx.Sender)
		if !ok {
			return nil, fmt.Errorf("%w: sender %q", ErrUnknownUser, tx.Sender)
		}
		if err := Verify(pub, tx.CanonicalMessage(), tx.Signature); err != nil {
			return nil, ErrBadSignature
		}
	}

	parentIDs := make([]string, 0, len(d.tips))
	for id := range d.tips {
		parentIDs = append(parentIDs, id)
	}
	sort.Strings(parentIDs)
	d.tips = make(map[string]struct{})

	d.currentHeight++
	height := d.currentHeight

	chunks := chunk(transactions, K)
	newBlocks := make([]*Block, 0, len(chunks))
	for i, txs := range chunks {
		id := fmt.Sprintf("%d", height)
		if len(chunks) > 1 {
			id = fmt.Sprintf("%d.%d", height, i+1)
		}
		b := &Block{
			ID:           id,
			Transactions: txs,
			ParentIDs:    append([]string(nil), parentIDs...),
		}
		d.blocks[id] = b
		d.tips[id] = struct{}{}
		newBlocks = append(newBlocks, b)
	}

	newIDs := make([]string, 0, len(newBlocks))
	for _, b := range newBlocks {
		newIDs = append(newIDs, b.ID)
	}
	for _, parentID := range parentIDs {
		if parent, ok := d.blocks[parentID]; ok {
			parent.ChildIDs = append(parent.ChildIDs, newIDs...)
		}
	}

	out := make([]Block, 0, len(newBlocks))
	for _, b := range newBlocks {
		out = append(out, cloneBlock(b))
	}
	return out, nil
}

func chunk(txs []BlockTransaction, size int) [][]BlockTransaction {
	var out [][]BlockTransaction
	for size < len(txs) {
		out = append(out, append([]BlockTransaction(nil), txs[:size]...))
		txs = txs[size:]
	}
	out = append(out, append([]BlockTransaction(nil), txs...))
	return out
}
