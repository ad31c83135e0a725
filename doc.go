// Package arbor computes structural diffs of source code for 10 languages:
// Go, Java, JavaScript, TypeScript, Python, Rust, C, C++, Ruby, and PHP.
//
// # Pipeline
//
// Each diff runs four phases over two syntax trees:
//
//  1. Prepare: parse both sides with tree-sitter into a shared,
//     deduplicated node store and lay each tree out as a post-order arena
//     (eagerly, or lazily on demand).
//
//  2. Subtree: pair identical subtrees top-down, tallest first. Ambiguous
//     candidates are resolved greedily by context, or stably so that
//     swapping the inputs mirrors the mapping.
//
//  3. Bottom-up: pair containers whose mapped descendants overlap enough,
//     then recover unmatched children inside each new pair.
//
//  4. Script: derive the insert, delete, update and move actions that turn
//     the source tree into the destination tree.
//
// The named [Strategy] values select the variants: gumtree, gumtree_lazy,
// gumtree_stable, gumtree_stable_lazy, gumtree_hybrid, gumtree_hybrid_lazy,
// and lexical.
//
// # Usage
//
//	e, err := arbor.New("arbor.db", arbor.WithStrategy(arbor.GumtreeStable))
//	if err != nil { ... }
//	defer e.Close()
//
//	rep, err := e.DiffFiles(ctx, "old/main.go", "new/main.go")
//	for _, a := range rep.Script() {
//		fmt.Println(a)
//	}
//
// # Persistence
//
// Every diff is recorded in SQLite with its strategy, counts, phase timings
// and script. [Engine.DiffFiles], [Engine.DiffPatch] and [Engine.Watch]
// also record both sides as file versions; identical subtrees across
// versions share one row.
//
// # Scripts
//
// [Engine.RunScript] hands a [Report] to a Risor script, which sees the
// summary, actions and mappings as plain maps and lists. See the
// internal/runtime package for the full set of globals.
package arbor
