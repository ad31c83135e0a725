package mapping

import (
	"iter"
	"maps"
	"slices"
)

// MultiStore is a many-to-many relation. The subtree matcher collects every
// isomorphic candidate pair here before resolving them into a Store.
type MultiStore struct {
	srcToDst map[ID][]ID
	dstToSrc map[ID][]ID
}

func NewMulti() *MultiStore {
	return &MultiStore{
		srcToDst: make(map[ID][]ID),
		dstToSrc: make(map[ID][]ID),
	}
}

// Link adds a pair. Adding the same pair twice is a no-op.
func (m *MultiStore) Link(src, dst ID) {
	if slices.Contains(m.srcToDst[src], dst) {
		return
	}
	m.srcToDst[src] = append(m.srcToDst[src], dst)
	m.dstToSrc[dst] = append(m.dstToSrc[dst], src)
}

// Dsts returns the candidates of src in insertion order.
func (m *MultiStore) Dsts(src ID) []ID { return m.srcToDst[src] }

// Srcs returns the candidates of dst in insertion order.
func (m *MultiStore) Srcs(dst ID) []ID { return m.dstToSrc[dst] }

// IsUnique reports whether src has exactly one candidate and that
// candidate has no other.
func (m *MultiStore) IsUnique(src ID) bool {
	d := m.srcToDst[src]
	return len(d) == 1 && len(m.dstToSrc[d[0]]) == 1
}

// SrcIDs yields every src id with a candidate in ascending order.
func (m *MultiStore) SrcIDs() iter.Seq[ID] {
	return slices.Values(slices.Sorted(maps.Keys(m.srcToDst)))
}

// Len is the number of src ids with candidates.
func (m *MultiStore) Len() int { return len(m.srcToDst) }
