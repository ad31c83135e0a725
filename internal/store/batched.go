package store

import (
	"sync"

	"github.com/jward/arbor/internal/hast"
)

// NodeBatch buffers the nodes of one or more trees in memory so they can be
// committed in a single transaction. Each shared node is buffered once, in
// post-order, so children always precede their parents.
//
// Thread safety: Add may be called from several goroutines; the mutex
// protects the buffer and index.
type NodeBatch struct {
	acc hast.Accessor
	mu  sync.Mutex

	Nodes []PendingNode
	index map[hast.NodeID]int
}

// PendingNode is a buffered node. Key is its id in the source accessor.
type PendingNode struct {
	Key      hast.NodeID
	Type     string
	Label    string
	HasLabel bool
	Children []hast.NodeID
	Size     uint32
	Height   uint32
	Digest   string
}

// NewNodeBatch creates an empty batch reading nodes from acc.
func NewNodeBatch(acc hast.Accessor) *NodeBatch {
	return &NodeBatch{acc: acc, index: make(map[hast.NodeID]int)}
}

// Add buffers the subtree at root and returns the root's digest.
func (b *NodeBatch) Add(root hast.NodeID) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Nodes[b.add(root)].Digest
}

func (b *NodeBatch) add(id hast.NodeID) int {
	if i, ok := b.index[id]; ok {
		return i
	}
	n := b.acc.Node(id)
	digests := make([]string, len(n.Children))
	for i, c := range n.Children {
		digests[i] = b.Nodes[b.add(c)].Digest
	}
	p := PendingNode{
		Key:      id,
		Type:     n.Type,
		HasLabel: n.HasLabel(),
		Children: n.Children,
		Size:     n.Size,
		Height:   n.Height,
	}
	if p.HasLabel {
		p.Label = b.acc.LabelText(n.Label)
	}
	p.Digest = ComputeNodeDigest(p.Type, p.Label, p.HasLabel, digests)
	b.Nodes = append(b.Nodes, p)
	b.index[id] = len(b.Nodes) - 1
	return len(b.Nodes) - 1
}

// Len is the number of distinct buffered nodes.
func (b *NodeBatch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Nodes)
}
