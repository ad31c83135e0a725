// Package hast holds the shared, content-addressed syntax node graph that
// diffs read from. Identical subtrees are stored once and referenced by any
// number of file versions. The store is append-only: a NodeID stays valid
// and its node never changes once it has been returned.
package hast

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// NodeID identifies a shared node. The zero value is never assigned.
type NodeID uint32

// LabelID identifies an interned label. NoLabel marks an unlabeled node.
type LabelID uint32

// NoLabel is the LabelID of nodes without a label.
const NoLabel LabelID = 0

// Node is the immutable content of a shared node plus the metrics the
// matchers need, computed once at insertion.
type Node struct {
	Type     string
	Label    LabelID
	Children []NodeID

	// Size counts the nodes of the subtree, the node included.
	Size uint32
	// Height is 1 for leaves.
	Height uint32
	// Hash covers type, label and shape.
	Hash uint64
	// StructHash covers type and shape only.
	StructHash uint64
}

// HasLabel reports whether the node carries a label.
func (n Node) HasLabel() bool { return n.Label != NoLabel }

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return len(n.Children) == 0 }

// Accessor is the read-only view of a node graph used by the diff core.
// Implementations must be safe for concurrent readers.
type Accessor interface {
	Node(id NodeID) Node
	LabelText(id LabelID) string
}

// Store is an in-memory Accessor that deduplicates nodes by content.
type Store struct {
	mu     sync.RWMutex
	nodes  []Node // index 0 is unused
	byKey  map[string]NodeID
	labels []string // index 0 is unused
	byText map[string]LabelID
}

var _ Accessor = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		nodes:  make([]Node, 1),
		byKey:  make(map[string]NodeID),
		labels: make([]string, 1),
		byText: make(map[string]LabelID),
	}
}

// Intern returns the LabelID for text, allocating one if needed.
func (s *Store) Intern(text string) LabelID {
	s.mu.RLock()
	id, ok := s.byText[text]
	s.mu.RUnlock()
	if ok {
		return id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byText[text]; ok {
		return id
	}
	id = LabelID(len(s.labels))
	s.labels = append(s.labels, text)
	s.byText[text] = id
	return id
}

// Insert adds a node, or returns the existing id of an identical node.
// Children must already be in the store.
func (s *Store) Insert(typ string, label LabelID, children []NodeID) NodeID {
	key := nodeKey(typ, label, children)

	s.mu.RLock()
	id, ok := s.byKey[key]
	s.mu.RUnlock()
	if ok {
		return id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[key]; ok {
		return id
	}

	n := Node{
		Type:     typ,
		Label:    label,
		Children: append([]NodeID(nil), children...),
		Size:     1,
		Height:   1,
	}
	h := xxhash.New()
	sh := xxhash.New()
	_, _ = h.WriteString(typ)
	_, _ = sh.WriteString(typ)
	_, _ = h.Write([]byte{0})
	_, _ = sh.Write([]byte{0})
	if label != NoLabel {
		_, _ = h.WriteString(s.labels[label])
	}
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	for _, c := range children {
		if int(c) >= len(s.nodes) || c == 0 {
			panic("hast: child not in store")
		}
		child := &s.nodes[c]
		n.Size += child.Size
		n.Height = max(n.Height, child.Height+1)
		binary.LittleEndian.PutUint64(buf[:], child.Hash)
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], child.StructHash)
		_, _ = sh.Write(buf[:])
	}
	n.Hash = h.Sum64()
	n.StructHash = sh.Sum64()

	id = NodeID(len(s.nodes))
	s.nodes = append(s.nodes, n)
	s.byKey[key] = id
	return id
}

// Node resolves id. Unknown ids are an invariant breach and panic.
func (s *Store) Node(id NodeID) Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || int(id) >= len(s.nodes) {
		panic("hast: unknown node id")
	}
	return s.nodes[id]
}

// LabelText resolves an interned label. NoLabel resolves to "".
func (s *Store) LabelText(id LabelID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels[id]
}

// Len returns the number of distinct nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes) - 1
}

// Labels returns the number of interned labels.
func (s *Store) Labels() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels) - 1
}

func nodeKey(typ string, label LabelID, children []NodeID) string {
	var sb strings.Builder
	sb.Grow(len(typ) + 5 + 4*len(children))
	sb.WriteString(typ)
	sb.WriteByte(0)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(label))
	sb.Write(buf[:])
	for _, c := range children {
		binary.LittleEndian.PutUint32(buf[:], uint32(c))
		sb.Write(buf[:])
	}
	return sb.String()
}

// Text flattens the labels of a subtree in pre-order, separated by spaces.
func Text(acc Accessor, id NodeID) string {
	var parts []string
	var walk func(NodeID)
	walk = func(id NodeID) {
		n := acc.Node(id)
		if n.HasLabel() {
			parts = append(parts, acc.LabelText(n.Label))
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(id)
	return strings.Join(parts, " ")
}
