package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/arbor/internal/hast"
)

// CommitBatch inserts all buffered nodes within a single transaction and
// returns the row id of every buffered node keyed by its accessor id.
// Nodes whose digest is already stored are reused, with their children
// rows untouched.
//
// Buffer order is post-order, so every child row id is known before its
// parent is written.
func (s *Store) CommitBatch(batch *NodeBatch) (map[hast.NodeID]int64, error) {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	rowIDs := make(map[hast.NodeID]int64, len(batch.Nodes))
	labelIDs := make(map[string]int64)

	for _, n := range batch.Nodes {
		var labelID *int64
		if n.HasLabel {
			id, ok := labelIDs[n.Label]
			if !ok {
				id, err = insertLabelTx(tx, n.Label)
				if err != nil {
					return nil, fmt.Errorf("commit batch: label %q: %w", n.Label, err)
				}
				labelIDs[n.Label] = id
			}
			labelID = &id
		}

		id, created, err := insertNodeTx(tx, &n, labelID)
		if err != nil {
			return nil, fmt.Errorf("commit batch: node %s: %w", n.Type, err)
		}
		rowIDs[n.Key] = id
		if !created {
			continue
		}
		for i, c := range n.Children {
			if _, err := tx.Exec(
				"INSERT INTO node_children (parent_id, ordinal, child_id) VALUES (?, ?, ?)",
				id, i, rowIDs[c],
			); err != nil {
				return nil, fmt.Errorf("commit batch: children of %s: %w", n.Type, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return rowIDs, nil
}

// SaveTree commits the subtree at root and returns the root's row id.
func (s *Store) SaveTree(acc hast.Accessor, root hast.NodeID) (int64, error) {
	b := NewNodeBatch(acc)
	b.Add(root)
	ids, err := s.CommitBatch(b)
	if err != nil {
		return 0, err
	}
	return ids[root], nil
}

// --- Transaction-scoped insert helpers ---

func insertLabelTx(tx *sql.Tx, text string) (int64, error) {
	if _, err := tx.Exec("INSERT OR IGNORE INTO labels (text) VALUES (?)", text); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRow("SELECT id FROM labels WHERE text = ?", text).Scan(&id)
	return id, err
}

// insertNodeTx returns the row id for n and whether the row is new.
func insertNodeTx(tx *sql.Tx, n *PendingNode, labelID *int64) (int64, bool, error) {
	res, err := tx.Exec(
		"INSERT OR IGNORE INTO nodes (digest, type, label_id, size, height) VALUES (?, ?, ?, ?, ?)",
		n.Digest, n.Type, labelID, n.Size, n.Height,
	)
	if err != nil {
		return 0, false, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 1 {
		id, err := res.LastInsertId()
		return id, true, err
	}
	var id int64
	err = tx.QueryRow("SELECT id FROM nodes WHERE digest = ?", n.Digest).Scan(&id)
	return id, false, err
}
