package store

import "time"

// File is a tracked source path.
type File struct {
	ID       int64
	Path     string
	Language string
}

// Version is one parsed state of a file. RootNodeID is a nodes row.
type Version struct {
	ID         int64
	FileID     int64
	RootNodeID int64
	SourceHash string
	Tag        string
	CreatedAt  time.Time
}

// DiffRun is the summary of one recorded diff. Version ids are nil for
// diffs of sources that were not recorded as versions.
type DiffRun struct {
	ID           string
	SrcVersionID *int64
	DstVersionID *int64
	Strategy     string
	SrcSize      int
	DstSize      int
	Mappings     int
	Inserts      int
	Deletes      int
	Updates      int
	Moves        int
	Prepare      time.Duration
	Subtree      time.Duration
	BottomUp     time.Duration
	Script       time.Duration
	Total        time.Duration
	CreatedAt    time.Time
}

// Actions is the total number of edit actions in the run.
func (r *DiffRun) Actions() int {
	return r.Inserts + r.Deletes + r.Updates + r.Moves
}
