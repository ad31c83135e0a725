// Package mapping stores the partial bijection between the arena ids of the
// two sides of a diff.
package mapping

import (
	"errors"
	"fmt"
	"iter"

	"github.com/jward/arbor/internal/decompressed"
)

// ErrAlreadyMapped is the panic value cause when Link would break the
// bijection.
var ErrAlreadyMapped = errors.New("mapping: endpoint already mapped")

type ID = decompressed.ID

// Store is a one-to-one relation between src and dst ids. Both directions
// hold id+1 so that 0 means unmapped.
type Store struct {
	srcToDst []uint32
	dstToSrc []uint32
	n        int
}

// New allocates a store for arenas of the given sizes.
func New(srcLen, dstLen int) *Store {
	return &Store{
		srcToDst: make([]uint32, srcLen+1),
		dstToSrc: make([]uint32, dstLen+1),
	}
}

// Link maps src to dst. Linking an endpoint that is already mapped panics.
func (m *Store) Link(src, dst ID) {
	if m.srcToDst[src] != 0 || m.dstToSrc[dst] != 0 {
		panic(fmt.Errorf("%w: link %d -> %d", ErrAlreadyMapped, src, dst))
	}
	m.srcToDst[src] = uint32(dst) + 1
	m.dstToSrc[dst] = uint32(src) + 1
	m.n++
}

// LinkIfBothUnmapped links src and dst when neither is mapped and reports
// whether it did.
func (m *Store) LinkIfBothUnmapped(src, dst ID) bool {
	if m.srcToDst[src] != 0 || m.dstToSrc[dst] != 0 {
		return false
	}
	m.Link(src, dst)
	return true
}

// Unlink removes the link of src, if any. Only the forced root link uses
// it, to displace mappings that would otherwise block it.
func (m *Store) Unlink(src ID) {
	d := m.srcToDst[src]
	if d == 0 {
		return
	}
	m.srcToDst[src] = 0
	m.dstToSrc[d-1] = 0
	m.n--
}

func (m *Store) IsSrc(src ID) bool { return m.srcToDst[src] != 0 }

func (m *Store) IsDst(dst ID) bool { return m.dstToSrc[dst] != 0 }

func (m *Store) GetDst(src ID) (ID, bool) {
	d := m.srcToDst[src]
	if d == 0 {
		return 0, false
	}
	return ID(d - 1), true
}

func (m *Store) GetSrc(dst ID) (ID, bool) {
	s := m.dstToSrc[dst]
	if s == 0 {
		return 0, false
	}
	return ID(s - 1), true
}

// Has reports whether src is linked to dst.
func (m *Store) Has(src, dst ID) bool {
	return m.srcToDst[src] == uint32(dst)+1
}

// Len is the number of linked pairs.
func (m *Store) Len() int { return m.n }

// SrcLen and DstLen are the arena sizes the store was built for.
func (m *Store) SrcLen() int { return len(m.srcToDst) - 1 }
func (m *Store) DstLen() int { return len(m.dstToSrc) - 1 }

// All yields linked pairs in ascending src order.
func (m *Store) All() iter.Seq2[ID, ID] {
	return func(yield func(ID, ID) bool) {
		for s, d := range m.srcToDst {
			if d != 0 && !yield(ID(s), ID(d-1)) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (m *Store) Clone() *Store {
	return &Store{
		srcToDst: append([]uint32(nil), m.srcToDst...),
		dstToSrc: append([]uint32(nil), m.dstToSrc...),
		n:        m.n,
	}
}

// Inverse returns the same relation with src and dst swapped.
func (m *Store) Inverse() *Store {
	return &Store{
		srcToDst: append([]uint32(nil), m.dstToSrc...),
		dstToSrc: append([]uint32(nil), m.srcToDst...),
		n:        m.n,
	}
}

// Equal reports whether both stores hold the same pairs.
func (m *Store) Equal(o *Store) bool {
	if m.n != o.n || len(m.srcToDst) != len(o.srcToDst) {
		return false
	}
	for i, d := range m.srcToDst {
		if o.srcToDst[i] != d {
			return false
		}
	}
	return true
}
