// Package scripts embeds the Risor report scripts shipped with arbor.
//
// Each script runs over one diff result and evaluates to a value the CLI
// prints next to the diff. Scripts see the globals documented in
// internal/runtime.
package scripts

import "embed"

//go:embed *.risor
var FS embed.FS
