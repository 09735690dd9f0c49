package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SnapshotStore persists lock registry snapshots to a local sqlite
// database so an in-memory (or restarted) server can recover active
// locks. WAL journaling, NORMAL sync and an in-memory temp store fit
// its single-writer, frequently-read workload.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens (creating if necessary) a sqlite database at
// path for lock snapshots.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_temp_store=MEMORY")
	if err != nil {
		return nil, fmt.Errorf("cache: open snapshot db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS lock_snapshot (
		token TEXT PRIMARY KEY,
		uri TEXT NOT NULL,
		record TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create snapshot table: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Put stores or replaces the snapshot for a lock token.
func (s *SnapshotStore) Put(token, uri, record string, expiresAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO lock_snapshot (token, uri, record, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET uri=excluded.uri, record=excluded.record, expires_at=excluded.expires_at`,
		token, uri, record, expiresAt.Unix(),
	)
	return err
}

// Remove deletes a lock token's snapshot.
func (s *SnapshotStore) Remove(token string) error {
	_, err := s.db.Exec(`DELETE FROM lock_snapshot WHERE token = ?`, token)
	return err
}

// LoadAll returns every non-expired snapshot record, keyed by token, for
// restoring the in-memory lock registry at startup.
func (s *SnapshotStore) LoadAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT token, record FROM lock_snapshot WHERE expires_at > ?`, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var token, record string
		if err := rows.Scan(&token, &record); err != nil {
			return nil, err
		}
		out[token] = record
	}
	return out, rows.Err()
}

// Prune deletes every snapshot that has already expired.
func (s *SnapshotStore) Prune() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM lock_snapshot WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases the underlying database handle.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
