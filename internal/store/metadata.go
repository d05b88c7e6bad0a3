package store

import "database/sql"

// ImportedFile records the content hash of an input evaluated into a run.
type ImportedFile struct {
	Path  string
	Hash  string
	RunID string
}

// SetImportedFile upserts the hash and run id recorded for path.
func (s *Store) SetImportedFile(f ImportedFile) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash, run_id) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?, run_id = ?`,
		f.Path, f.Hash, f.RunID, f.Hash, f.RunID,
	)
	return err
}

// GetImportedFile returns the record for path, or nil if it was never
// imported.
func (s *Store) GetImportedFile(path string) (*ImportedFile, error) {
	f := ImportedFile{Path: path}
	err := s.db.QueryRow(`SELECT hash, run_id FROM imported_files WHERE path = ?`, path).Scan(&f.Hash, &f.RunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
