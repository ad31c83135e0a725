// Package actions turns a mapping into an edit script and replays scripts
// on mutable trees.
package actions

import (
	"fmt"
	"strconv"

	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/treepath"
)

// Kind tags an Action.
type Kind uint8

const (
	Insert Kind = iota + 1
	Delete
	Update
	Move
)

var kindNames = [...]string{Insert: "insert", Delete: "delete", Update: "update", Move: "move"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n != "" && n == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("actions: unknown kind %q", s)
}

// Action is one edit. Paths address nodes in the tree being edited as it
// is just before the action runs, so a script replays in order on a copy
// of the source tree.
type Action struct {
	Kind Kind

	// Path is the node acted on. For Insert it is where the new node ends up.
	Path treepath.Path
	// Parent and Index place the node for Insert and Move. For Move the
	// index applies after the node has been detached.
	Parent treepath.Path
	Index  int
	// Origin is the node's path in the destination tree for Insert and in
	// the source tree otherwise.
	Origin treepath.Path

	// Node is the inserted destination node.
	Node hast.NodeID
	// Type, Label and HasLabel describe the inserted node, or the new
	// content of an updated one.
	Type     string
	Label    string
	HasLabel bool
	// OldType and OldLabel are the content an Update replaces.
	OldType  string
	OldLabel string
}

func (a Action) String() string {
	switch a.Kind {
	case Insert:
		return fmt.Sprintf("insert %s at %s[%d] %s", describe(a.Type, a.Label, a.HasLabel), a.Parent, a.Index, a.Path)
	case Delete:
		return fmt.Sprintf("delete %s", a.Path)
	case Update:
		if a.OldType != a.Type {
			return fmt.Sprintf("update %s %s %q -> %s %q", a.Path, a.OldType, a.OldLabel, a.Type, a.Label)
		}
		return fmt.Sprintf("update %s %q -> %q", a.Path, a.OldLabel, a.Label)
	case Move:
		return fmt.Sprintf("move %s to %s[%d]", a.Path, a.Parent, a.Index)
	}
	return a.Kind.String()
}

func describe(typ, label string, hasLabel bool) string {
	if hasLabel {
		return typ + " " + strconv.Quote(label)
	}
	return typ
}

// Counts tallies a script by kind.
func Counts(script []Action) map[Kind]int {
	out := make(map[Kind]int, 4)
	for _, a := range script {
		out[a.Kind]++
	}
	return out
}

// Apply replays script on t in order.
func Apply(t *Tree, script []Action) error {
	for i, a := range script {
		if err := apply(t, a); err != nil {
			return fmt.Errorf("actions: step %d (%s): %w", i, a.Kind, err)
		}
	}
	return nil
}

func apply(t *Tree, a Action) error {
	switch a.Kind {
	case Insert:
		parent, err := t.Resolve(a.Parent)
		if err != nil {
			return err
		}
		if a.Index < 0 || a.Index > len(parent.Children) {
			return fmt.Errorf("insert index %d out of range", a.Index)
		}
		parent.insertChild(&Node{Type: a.Type, Label: a.Label, HasLabel: a.HasLabel, src: noID, dst: noID}, a.Index)

	case Delete:
		n, err := t.Resolve(a.Path)
		if err != nil {
			return err
		}
		if n.Parent == nil {
			return fmt.Errorf("cannot delete the root")
		}
		if len(n.Children) > 0 {
			return fmt.Errorf("delete of %s which still has %d children", a.Path, len(n.Children))
		}
		n.detach()

	case Update:
		n, err := t.Resolve(a.Path)
		if err != nil {
			return err
		}
		n.Type, n.Label, n.HasLabel = a.Type, a.Label, a.HasLabel

	case Move:
		n, err := t.Resolve(a.Path)
		if err != nil {
			return err
		}
		parent, err := t.Resolve(a.Parent)
		if err != nil {
			return err
		}
		if n.Parent == nil || n == parent || n.isAncestorOf(parent) {
			return fmt.Errorf("cannot move %s under %s", a.Path, a.Parent)
		}
		n.detach()
		if a.Index < 0 || a.Index > len(parent.Children) {
			return fmt.Errorf("move index %d out of range", a.Index)
		}
		parent.insertChild(n, a.Index)

	default:
		return fmt.Errorf("unknown action kind %d", a.Kind)
	}
	return nil
}
