// Package treepath encodes root-to-node child index sequences into a compact
// nibble form so that edit actions can address nodes without live identity.
//
// Each value is written as a run of 4-bit codes. Codes 0 to 12 are literal
// and end the value. Codes 13, 14 and 15 add 13, 32 and 128 respectively and
// continue with the next nibble. Nibbles are packed high first; a path with
// an odd nibble count ends with a padding 15 that is never followed by a
// terminator, so the decoder drops it.
package treepath

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// MaxIndex is the largest child index Parse accepts. An index v encodes to
// roughly v/128 nibbles, so the codec suits child positions, not arbitrary
// integers.
const MaxIndex = 1<<20 - 1

// ErrIndexRange is returned by Parse for an index above MaxIndex.
var ErrIndexRange = errors.New("treepath: index out of range")

const (
	maxLiteral = 12

	esc13  = 13
	esc32  = 14
	esc128 = 15

	pad = 0xF
)

var escapes = [...]struct {
	code   byte
	offset uint32
}{
	{esc128, 128},
	{esc32, 32},
	{esc13, 13},
}

// Path is an immutable compressed path. The zero value is the root path.
// Paths are comparable as Go values, but two builders may pad differently,
// so use Equal to compare logical paths.
type Path struct {
	data string
	n    int // number of encoded values
}

// Root is the empty path.
var Root = Path{}

// Encode builds a Path from child indices ordered from the root down.
// Indices are child positions and are expected to stay small; see MaxIndex.
func Encode(values []uint32) Path {
	var w writer
	for _, v := range values {
		w.value(v)
	}
	return w.path(len(values))
}

// FromBytes rebuilds a Path from its byte form, as returned by Bytes.
func FromBytes(b []byte) Path {
	p := Path{data: string(b)}
	for range p.Decode() {
		p.n++
	}
	return p
}

// Bytes returns the encoded byte form.
func (p Path) Bytes() []byte { return []byte(p.data) }

// Len returns the number of indices in the path.
func (p Path) Len() int { return p.n }

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool { return p.n == 0 }

// Decode yields the child indices from the root down. The sequence can be
// ranged over any number of times.
func (p Path) Decode() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		var acc uint32
		for i := 0; i < len(p.data); i++ {
			b := p.data[i]
			for _, nib := range [2]byte{b >> 4, b & 0xF} {
				if nib <= maxLiteral {
					if !yield(acc + uint32(nib)) {
						return
					}
					acc = 0
					continue
				}
				acc += escapeOffset(nib)
			}
		}
	}
}

// Values decodes the whole path.
func (p Path) Values() []uint32 {
	out := make([]uint32, 0, p.n)
	for v := range p.Decode() {
		out = append(out, v)
	}
	return out
}

// Extend returns a new path with suffix appended. p is left untouched.
func (p Path) Extend(suffix ...uint32) Path {
	if len(suffix) == 0 {
		return p
	}
	var w writer
	for v := range p.Decode() {
		w.value(v)
	}
	for _, v := range suffix {
		w.value(v)
	}
	return w.path(p.n + len(suffix))
}

// Parent drops the last index. The root is its own parent.
func (p Path) Parent() Path {
	if p.n == 0 {
		return p
	}
	vals := p.Values()
	return Encode(vals[:len(vals)-1])
}

// Last returns the last index, or false for the root.
func (p Path) Last() (uint32, bool) {
	var last uint32
	ok := false
	for v := range p.Decode() {
		last, ok = v, true
	}
	return last, ok
}

// Equal compares decoded sequences.
func (p Path) Equal(o Path) bool {
	if p.n != o.n {
		return false
	}
	if p.data == o.data {
		return true
	}
	next, stop := iter.Pull(o.Decode())
	defer stop()
	for v := range p.Decode() {
		w, ok := next()
		if !ok || v != w {
			return false
		}
	}
	_, more := next()
	return !more
}

// String renders the path as dot separated indices, "" for the root.
func (p Path) String() string {
	var sb strings.Builder
	first := true
	for v := range p.Decode() {
		if !first {
			sb.WriteByte('.')
		}
		first = false
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	return sb.String()
}

// Parse is the inverse of String.
func Parse(s string) (Path, error) {
	if s == "" {
		return Root, nil
	}
	parts := strings.Split(s, ".")
	vals := make([]uint32, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Path{}, err
		}
		if v > MaxIndex {
			return Path{}, fmt.Errorf("%w: %d", ErrIndexRange, v)
		}
		vals[i] = uint32(v)
	}
	return Encode(vals), nil
}

func escapeOffset(nib byte) uint32 {
	switch nib {
	case esc13:
		return 13
	case esc32:
		return 32
	default:
		return 128
	}
}

type writer struct {
	buf  []byte
	half bool
}

func (w *writer) nibble(n byte) {
	if w.half {
		w.buf[len(w.buf)-1] |= n
	} else {
		w.buf = append(w.buf, n<<4)
	}
	w.half = !w.half
}

func (w *writer) value(v uint32) {
	for v > maxLiteral {
		for _, e := range escapes {
			if v >= e.offset {
				w.nibble(e.code)
				v -= e.offset
				break
			}
		}
	}
	w.nibble(byte(v))
}

func (w *writer) path(n int) Path {
	if w.half {
		w.buf[len(w.buf)-1] |= pad
	}
	return Path{data: string(w.buf), n: n}
}
