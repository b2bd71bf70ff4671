package core

// K is the maximum number of transactions a single block batches before a
// commit splits into more than one block.
const K = 5

// Block carries 1..K transactions and the DAG edges connecting it to its
// parents and children.
type Block struct {
	ID           string             `json:"id"`
	Transactions []BlockTransaction `json:"transactions"`
	ParentIDs    []string           `json:"parent_ids,omitempty"`
	ChildIDs     []string           `json:"child_ids,omitempty"`
}
