package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jward/arbor/internal/actions"
	"github.com/jward/arbor/internal/treepath"
)

// InsertRun records a diff run and its script in one transaction. An empty
// run id is filled with a fresh UUID.
func (s *Store) InsertRun(r *DiffRun, script []actions.Action) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert run: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO diff_runs (id, src_version_id, dst_version_id, strategy, src_size, dst_size,
			mappings, inserts, deletes, updates, moves,
			prepare_ns, subtree_ns, bottom_up_ns, script_ns, total_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SrcVersionID, r.DstVersionID, r.Strategy, r.SrcSize, r.DstSize,
		r.Mappings, r.Inserts, r.Deletes, r.Updates, r.Moves,
		r.Prepare.Nanoseconds(), r.Subtree.Nanoseconds(), r.BottomUp.Nanoseconds(),
		r.Script.Nanoseconds(), r.Total.Nanoseconds(), r.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO actions (run_id, ordinal, kind, path, parent_path, idx, origin_path,
			type, label, has_label, old_type, old_label)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("insert run: prepare: %w", err)
	}
	defer stmt.Close()
	for i, a := range script {
		var parent []byte
		if a.Kind == actions.Insert || a.Kind == actions.Move {
			parent = a.Parent.Bytes()
		}
		if _, err := stmt.Exec(
			r.ID, i, a.Kind.String(), a.Path.Bytes(), parent, a.Index, a.Origin.Bytes(),
			nullString(a.Type, a.Type != ""), nullString(a.Label, a.HasLabel), a.HasLabel,
			nullString(a.OldType, a.Kind == actions.Update), nullString(a.OldLabel, a.Kind == actions.Update),
		); err != nil {
			return fmt.Errorf("insert run: action %d: %w", i, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, src_version_id, dst_version_id, strategy, src_size, dst_size,
	mappings, inserts, deletes, updates, moves,
	prepare_ns, subtree_ns, bottom_up_ns, script_ns, total_ns, created_at`

func scanRun(sc interface{ Scan(...any) error }) (*DiffRun, error) {
	r := &DiffRun{}
	var src, dst sql.NullInt64
	var prep, sub, bu, scr, tot int64
	if err := sc.Scan(&r.ID, &src, &dst, &r.Strategy, &r.SrcSize, &r.DstSize,
		&r.Mappings, &r.Inserts, &r.Deletes, &r.Updates, &r.Moves,
		&prep, &sub, &bu, &scr, &tot, &r.CreatedAt); err != nil {
		return nil, err
	}
	if src.Valid {
		r.SrcVersionID = &src.Int64
	}
	if dst.Valid {
		r.DstVersionID = &dst.Int64
	}
	r.Prepare, r.Subtree, r.BottomUp = time.Duration(prep), time.Duration(sub), time.Duration(bu)
	r.Script, r.Total = time.Duration(scr), time.Duration(tot)
	return r, nil
}

// Run returns the run with id, or ErrRunNotFound.
func (s *Store) Run(id string) (*DiffRun, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM diff_runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return r, nil
}

// Runs lists the most recent runs first. limit <= 0 means all.
func (s *Store) Runs(limit int) ([]*DiffRun, error) {
	q := "SELECT " + runColumns + " FROM diff_runs ORDER BY created_at DESC, id"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var out []*DiffRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunActions returns the recorded script of a run in order.
func (s *Store) RunActions(id string) ([]actions.Action, error) {
	rows, err := s.db.Query(
		`SELECT kind, path, parent_path, idx, origin_path, type, label, has_label, old_type, old_label
		 FROM actions WHERE run_id = ? ORDER BY ordinal`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("run actions: %w", err)
	}
	defer rows.Close()
	var out []actions.Action
	for rows.Next() {
		var (
			kind                          string
			path, parent, origin          []byte
			typ, label, oldType, oldLabel sql.NullString
			a                             actions.Action
		)
		if err := rows.Scan(&kind, &path, &parent, &a.Index, &origin,
			&typ, &label, &a.HasLabel, &oldType, &oldLabel); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if a.Kind, err = actions.ParseKind(kind); err != nil {
			return nil, err
		}
		a.Path = treepath.FromBytes(path)
		a.Parent = treepath.FromBytes(parent)
		a.Origin = treepath.FromBytes(origin)
		a.Type, a.Label = typ.String, label.String
		a.OldType, a.OldLabel = oldType.String, oldLabel.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its actions.
func (s *Store) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM actions WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("delete actions: %w", err)
	}
	res, err := tx.Exec("DELETE FROM diff_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return tx.Commit()
}
