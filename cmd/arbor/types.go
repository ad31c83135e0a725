package main

import "time"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLICounts tallies an edit script by kind.
type CLICounts struct {
	Inserts int `json:"inserts"`
	Deletes int `json:"deletes"`
	Updates int `json:"updates"`
	Moves   int `json:"moves"`
}

// Total is the number of actions.
func (c CLICounts) Total() int {
	return c.Inserts + c.Deletes + c.Updates + c.Moves
}

// CLIAction is a JSON-friendly edit action. Paths are dotted child
// indices from the root; the empty path is the root itself.
type CLIAction struct {
	Kind     string  `json:"kind"`
	Path     string  `json:"path"`
	Origin   string  `json:"origin"`
	Parent   *string `json:"parent,omitempty"`
	Index    *int    `json:"index,omitempty"`
	Type     string  `json:"type,omitempty"`
	Label    *string `json:"label,omitempty"`
	OldType  string  `json:"old_type,omitempty"`
	OldLabel *string `json:"old_label,omitempty"`
	Text     string  `json:"text"`
}

// CLIDiff is the outcome of one structural diff.
type CLIDiff struct {
	RunID      string      `json:"run_id"`
	Src        string      `json:"src,omitempty"`
	Dst        string      `json:"dst,omitempty"`
	Language   string      `json:"language"`
	Strategy   string      `json:"strategy"`
	SrcVersion *int64      `json:"src_version,omitempty"`
	DstVersion *int64      `json:"dst_version,omitempty"`
	SrcSize    int         `json:"src_size"`
	DstSize    int         `json:"dst_size"`
	Mappings   int         `json:"mappings"`
	Counts     CLICounts   `json:"counts"`
	TotalMS    float64     `json:"total_ms"`
	Actions    []CLIAction `json:"actions"`
	Script     any         `json:"script_result,omitempty"`
}

// CLIRun is a JSON-friendly recorded diff run.
type CLIRun struct {
	ID         string             `json:"id"`
	Strategy   string             `json:"strategy"`
	SrcVersion *int64             `json:"src_version,omitempty"`
	DstVersion *int64             `json:"dst_version,omitempty"`
	SrcSize    int                `json:"src_size"`
	DstSize    int                `json:"dst_size"`
	Mappings   int                `json:"mappings"`
	Counts     CLICounts          `json:"counts"`
	PhasesMS   map[string]float64 `json:"phases_ms"`
	TotalMS    float64            `json:"total_ms"`
	CreatedAt  time.Time          `json:"created_at"`
}

// CLIRunDetail is a run together with its stored script.
type CLIRunDetail struct {
	CLIRun
	Actions []CLIAction `json:"actions"`
}

// CLIVersion is a JSON-friendly recorded file version.
type CLIVersion struct {
	ID         int64     `json:"id"`
	Tag        string    `json:"tag,omitempty"`
	SourceHash string    `json:"source_hash"`
	RootNodeID int64     `json:"root_node_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CLITree is a recorded version rendered as an s-expression.
type CLITree struct {
	Version int64  `json:"version"`
	Tree    string `json:"tree"`
}

// CLIStrategy describes one named diff pipeline.
type CLIStrategy struct {
	Name   string `json:"name"`
	Lazy   bool   `json:"lazy"`
	Stable bool   `json:"stable"`
	Hybrid bool   `json:"hybrid"`
	Scorer string `json:"scorer"`
}
