package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- File operations ---

// UpsertFile returns the id of path, creating the row if needed. The
// language is updated when it changed.
func (s *Store) UpsertFile(path, language string) (int64, error) {
	if _, err := s.db.Exec(
		`INSERT INTO files (path, language) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET language = excluded.language`,
		path, language,
	); err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	var id int64
	if err := s.db.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	return id, nil
}

// FileByPath returns nil, nil when path is not tracked.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, language FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Language)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// --- Version operations ---

func (s *Store) InsertVersion(v *Version) (int64, error) {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		"INSERT INTO versions (file_id, root_node_id, source_hash, tag, created_at) VALUES (?, ?, ?, ?, ?)",
		v.FileID, v.RootNodeID, v.SourceHash, v.Tag, v.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	v.ID = id
	return id, nil
}

// VersionByID returns nil, nil when id has no row.
func (s *Store) VersionByID(id int64) (*Version, error) {
	v := &Version{}
	var tag sql.NullString
	err := s.db.QueryRow(
		"SELECT id, file_id, root_node_id, source_hash, tag, created_at FROM versions WHERE id = ?", id,
	).Scan(&v.ID, &v.FileID, &v.RootNodeID, &v.SourceHash, &tag, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("version by id: %w", err)
	}
	v.Tag = tag.String
	return v, nil
}

// VersionsByFile lists the versions of path, oldest first.
func (s *Store) VersionsByFile(path string) ([]*Version, error) {
	rows, err := s.db.Query(
		`SELECT v.id, v.file_id, v.root_node_id, v.source_hash, v.tag, v.created_at
		 FROM versions v JOIN files f ON f.id = v.file_id
		 WHERE f.path = ? ORDER BY v.id`, path,
	)
	if err != nil {
		return nil, fmt.Errorf("versions by file: %w", err)
	}
	defer rows.Close()
	var out []*Version
	for rows.Next() {
		v := &Version{}
		var tag sql.NullString
		if err := rows.Scan(&v.ID, &v.FileID, &v.RootNodeID, &v.SourceHash, &tag, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		v.Tag = tag.String
		out = append(out, v)
	}
	return out, rows.Err()
}
