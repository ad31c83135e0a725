package hast

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape describes a tree to insert with Build. It is mostly used to write
// fixtures by hand.
type Shape struct {
	Type     string
	Label    string
	HasLabel bool
	Children []Shape
}

// T is an unlabeled node.
func T(typ string, children ...Shape) Shape {
	return Shape{Type: typ, Children: children}
}

// L is a labeled leaf.
func L(typ, label string) Shape {
	return Shape{Type: typ, Label: label, HasLabel: true}
}

// LT is a labeled node with children.
func LT(typ, label string, children ...Shape) Shape {
	return Shape{Type: typ, Label: label, HasLabel: true, Children: children}
}

// Build inserts sh bottom-up and returns the root id.
func (s *Store) Build(sh Shape) NodeID {
	children := make([]NodeID, len(sh.Children))
	for i, c := range sh.Children {
		children[i] = s.Build(c)
	}
	label := NoLabel
	if sh.HasLabel {
		label = s.Intern(sh.Label)
	}
	return s.Insert(sh.Type, label, children)
}

// Format renders a subtree as an s-expression:
//
//	(class_declaration (identifier "A") (class_body))
func Format(acc Accessor, id NodeID) string {
	var sb strings.Builder
	format(&sb, acc, id)
	return sb.String()
}

func format(sb *strings.Builder, acc Accessor, id NodeID) {
	n := acc.Node(id)
	sb.WriteByte('(')
	sb.WriteString(n.Type)
	if n.HasLabel() {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Quote(acc.LabelText(n.Label)))
	}
	for _, c := range n.Children {
		sb.WriteByte(' ')
		format(sb, acc, c)
	}
	sb.WriteByte(')')
}

// ParseSexp is the inverse of Format. Types are bare words, labels are Go
// quoted strings. Types containing spaces, quotes or parentheses (some
// tree-sitter punctuation tokens) do not round trip.
func (s *Store) ParseSexp(src string) (NodeID, error) {
	p := &sexpParser{src: src}
	sh, err := p.node()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("hast: trailing input at %d", p.pos)
	}
	return s.Build(sh), nil
}

type sexpParser struct {
	src string
	pos int
}

func (p *sexpParser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *sexpParser) node() (Shape, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return Shape{}, fmt.Errorf("hast: expected '(' at %d", p.pos)
	}
	p.pos++
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune(" \t\r\n()\"", rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return Shape{}, fmt.Errorf("hast: expected node type at %d", p.pos)
	}
	sh := Shape{Type: p.src[start:p.pos]}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Shape{}, fmt.Errorf("hast: unterminated node %q", sh.Type)
		}
		switch p.src[p.pos] {
		case ')':
			p.pos++
			return sh, nil
		case '"':
			lit, err := strconv.QuotedPrefix(p.src[p.pos:])
			if err != nil {
				return Shape{}, fmt.Errorf("hast: bad label at %d: %w", p.pos, err)
			}
			p.pos += len(lit)
			sh.Label, _ = strconv.Unquote(lit)
			sh.HasLabel = true
		default:
			child, err := p.node()
			if err != nil {
				return Shape{}, err
			}
			sh.Children = append(sh.Children, child)
		}
	}
}
