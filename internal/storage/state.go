// Package storage persists small JSON state blobs in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Store keeps one versioned JSON document per (kind, id) in resource_state.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a store on an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Load decodes the document for (kind, id) into v.
// version is 0 and v untouched when nothing is stored.
func (s *Store) Load(kind, id string, v any) (version int64, err error) {
	var payload string
	err = s.db.QueryRow(
		`SELECT payload, version FROM resource_state WHERE kind = ? AND id = ?`,
		kind, id,
	).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", kind, id, err)
	}
	return version, nil
}

// Save encodes v and upserts it, bumping the version.
func (s *Store) Save(kind, id string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = version + 1,
			updated_at = excluded.updated_at
	`, kind, id, string(payload), s.now().UTC().Unix())
	if err != nil {
		return err
	}

	log.Debug().Str("kind", kind).Str("id", id).RawJSON("payload", payload).Msg("State saved")
	return nil
}

// Delete removes one document.
func (s *Store) Delete(kind, id string) error {
	_, err := s.db.Exec(`DELETE FROM resource_state WHERE kind = ? AND id = ?`, kind, id)
	return err
}

// Clear removes every document of kind, or everything when kind is empty.
func (s *Store) Clear(kind string) error {
	if kind == "" {
		_, err := s.db.Exec(`DELETE FROM resource_state`)
		return err
	}
	_, err := s.db.Exec(`DELETE FROM resource_state WHERE kind = ?`, kind)
	return err
}
