package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/arbor/internal/hast"
)

type nodeRow struct {
	typ      string
	label    sql.NullString
	children []int64
}

// LoadTree reads the subtree stored at row id root into dst and returns
// its id there. Rows are fetched one tree level at a time.
func (s *Store) LoadTree(dst *hast.Store, root int64) (hast.NodeID, error) {
	rows := make(map[int64]*nodeRow)
	frontier := []int64{root}
	for len(frontier) > 0 {
		var next []int64
		for _, chunk := range chunks(frontier, maxParams) {
			if err := s.loadNodes(rows, chunk); err != nil {
				return 0, err
			}
			if err := s.loadChildren(rows, chunk); err != nil {
				return 0, err
			}
			for _, id := range chunk {
				for _, c := range rows[id].children {
					if _, seen := rows[c]; !seen {
						rows[c] = nil
						next = append(next, c)
					}
				}
			}
		}
		frontier = next
	}
	if rows[root] == nil {
		return 0, fmt.Errorf("load tree: node %d: %w", root, sql.ErrNoRows)
	}

	built := make(map[int64]hast.NodeID, len(rows))
	var build func(id int64) hast.NodeID
	build = func(id int64) hast.NodeID {
		if n, ok := built[id]; ok {
			return n
		}
		r := rows[id]
		kids := make([]hast.NodeID, len(r.children))
		for i, c := range r.children {
			kids[i] = build(c)
		}
		label := hast.NoLabel
		if r.label.Valid {
			label = dst.Intern(r.label.String)
		}
		n := dst.Insert(r.typ, label, kids)
		built[id] = n
		return n
	}
	return build(root), nil
}

func (s *Store) loadNodes(rows map[int64]*nodeRow, ids []int64) error {
	q, err := s.db.Query(
		`SELECT n.id, n.type, l.text FROM nodes n LEFT JOIN labels l ON l.id = n.label_id
		 WHERE n.id IN (`+placeholderList(len(ids))+`)`, int64sToArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load nodes: %w", err)
	}
	defer q.Close()
	found := 0
	for q.Next() {
		var id int64
		r := &nodeRow{}
		if err := q.Scan(&id, &r.typ, &r.label); err != nil {
			return fmt.Errorf("scan node: %w", err)
		}
		rows[id] = r
		found++
	}
	if err := q.Err(); err != nil {
		return err
	}
	if found != len(ids) {
		return fmt.Errorf("load nodes: %d of %d rows missing: %w", len(ids)-found, len(ids), sql.ErrNoRows)
	}
	return nil
}

func (s *Store) loadChildren(rows map[int64]*nodeRow, ids []int64) error {
	q, err := s.db.Query(
		`SELECT parent_id, child_id FROM node_children
		 WHERE parent_id IN (`+placeholderList(len(ids))+`) ORDER BY parent_id, ordinal`, int64sToArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load children: %w", err)
	}
	defer q.Close()
	for q.Next() {
		var parent, child int64
		if err := q.Scan(&parent, &child); err != nil {
			return fmt.Errorf("scan child: %w", err)
		}
		rows[parent].children = append(rows[parent].children, child)
	}
	return q.Err()
}

// NodeCount returns the number of distinct stored nodes.
func (s *Store) NodeCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&n); err != nil {
		return 0, fmt.Errorf("node count: %w", err)
	}
	return n, nil
}
