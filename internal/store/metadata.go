package store

import (
	"database/sql"
	"time"
)

// Import is one accepted question file.
type Import struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	Hash       string    `json:"hash"`
	Questions  int       `json:"questions"`
	ImportedAt time.Time `json:"importedAt"`
}

// RecordImport logs an accepted file. The newest entry describes the
// question set currently loaded.
func (s *Store) RecordImport(filename, hash string, questions int) error {
	_, err := s.db.Exec(
		`INSERT INTO imports (filename, hash, questions, imported_at) VALUES (?, ?, ?, ?)`,
		filename, hash, questions, time.Now(),
	)
	return err
}

// LastImport returns the most recent import, or nil if there is none.
func (s *Store) LastImport() (*Import, error) {
	var im Import
	err := s.db.QueryRow(
		`SELECT id, filename, hash, questions, imported_at FROM imports ORDER BY id DESC LIMIT 1`,
	).Scan(&im.ID, &im.Filename, &im.Hash, &im.Questions, &im.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &im, nil
}

// ListImports returns all imports, newest first.
func (s *Store) ListImports() ([]Import, error) {
	rows, err := s.db.Query(`SELECT id, filename, hash, questions, imported_at FROM imports ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Import
	for rows.Next() {
		var im Import
		if err := rows.Scan(&im.ID, &im.Filename, &im.Hash, &im.Questions, &im.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, im)
	}
	return out, rows.Err()
}
