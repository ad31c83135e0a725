package mapping

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LinkBijection(t *testing.T) {
	t.Parallel()
	m := New(4, 3)
	m.Link(0, 2)
	m.Link(3, 0)

	assert.Equal(t, 2, m.Len())
	for s, d := range m.All() {
		got, ok := m.GetDst(s)
		require.True(t, ok)
		assert.Equal(t, d, got)
		back, ok := m.GetSrc(d)
		require.True(t, ok)
		assert.Equal(t, s, back)
	}
	assert.True(t, m.IsSrc(0))
	assert.False(t, m.IsSrc(1))
	assert.True(t, m.IsDst(0))
	assert.False(t, m.IsDst(1))
	assert.True(t, m.Has(3, 0))
	assert.False(t, m.Has(3, 2))

	_, ok := m.GetDst(1)
	assert.False(t, ok)
}

func TestStore_DoubleLinkPanics(t *testing.T) {
	t.Parallel()
	m := New(2, 2)
	m.Link(0, 0)
	assert.PanicsWithError(t, "mapping: endpoint already mapped: link 0 -> 1", func() { m.Link(0, 1) })
	assert.Panics(t, func() { m.Link(1, 0) })
	assert.Equal(t, 1, m.Len())

	assert.False(t, m.LinkIfBothUnmapped(1, 0))
	assert.True(t, m.LinkIfBothUnmapped(1, 1))
	assert.Equal(t, 2, m.Len())
}

func TestStore_IdZeroIsMappable(t *testing.T) {
	t.Parallel()
	m := New(1, 1)
	assert.False(t, m.IsSrc(0))
	m.Link(0, 0)
	d, ok := m.GetDst(0)
	require.True(t, ok)
	assert.Equal(t, ID(0), d)
}

func TestStore_AllOrder(t *testing.T) {
	t.Parallel()
	m := New(5, 5)
	m.Link(4, 0)
	m.Link(1, 3)
	m.Link(2, 2)
	var srcs []ID
	for s := range m.All() {
		srcs = append(srcs, s)
	}
	assert.Equal(t, []ID{1, 2, 4}, srcs)
}

func TestStore_CloneInverseEqual(t *testing.T) {
	t.Parallel()
	m := New(3, 2)
	m.Link(2, 1)

	c := m.Clone()
	assert.True(t, m.Equal(c))
	c.Link(0, 0)
	assert.False(t, m.Equal(c))
	assert.Equal(t, 1, m.Len())

	inv := m.Inverse()
	assert.Equal(t, 2, inv.SrcLen())
	assert.Equal(t, 3, inv.DstLen())
	assert.True(t, inv.Has(1, 2))
	assert.True(t, inv.Inverse().Equal(m))
}

func TestMultiStore(t *testing.T) {
	t.Parallel()
	m := NewMulti()
	m.Link(5, 1)
	m.Link(5, 1)
	m.Link(2, 7)
	m.Link(3, 7)

	assert.Equal(t, []ID{1}, m.Dsts(5))
	assert.Equal(t, []ID{2, 3}, m.Srcs(7))
	assert.True(t, m.IsUnique(5))
	assert.False(t, m.IsUnique(2))
	assert.Equal(t, []ID{2, 3, 5}, slices.Collect(m.SrcIDs()))
	assert.Equal(t, 3, m.Len())
}

func TestStore_Unlink(t *testing.T) {
	t.Parallel()
	m := New(2, 2)
	m.Link(0, 1)
	m.Unlink(0)
	m.Unlink(1)
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.IsDst(1))
	m.Link(1, 1)
	assert.True(t, m.Has(1, 1))
}
