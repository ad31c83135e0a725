package store

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"
)

// ComputeNodeDigest is the content address of a node: its type, its label
// if any and the digests of its children in order. Two subtrees get the
// same digest exactly when they are isomorphic, independent of any
// in-memory ids.
func ComputeNodeDigest(typ string, label string, hasLabel bool, children []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "type:%s\n", strconv.Quote(typ))
	if hasLabel {
		fmt.Fprintf(h, "label:%s\n", strconv.Quote(label))
	}
	for _, c := range children {
		io.WriteString(h, "child:"+c+"\n")
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ComputeSourceHash is the hash recorded with a version.
func ComputeSourceHash(src []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(src))
}
