package index

import (
	"fmt"
	"time"
)

// UpsertRecord records that the document for record id now lives at path
// with the given content checksum.
func (db *DB) UpsertRecord(id, path, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO records (path, record_id, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			record_id  = excluded.record_id,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, path, id, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert record: %w", err)
	}
	return nil
}

// MarkPushed stores the checksum of the content last pushed from path.
func (db *DB) MarkPushed(path, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO records (path, record_id, checksum, pushed_checksum, pushed_at)
		VALUES (?, '', '', ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			pushed_checksum = excluded.pushed_checksum,
			pushed_at       = excluded.pushed_at
	`, path, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: mark pushed: %w", err)
	}
	return nil
}

// PushedChecksum returns the checksum last pushed from path, or empty
// string when the path was never pushed.
func (db *DB) PushedChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT pushed_checksum FROM records WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// DeletePath removes the state row for a vault path.
func (db *DB) DeletePath(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM records WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete path: %w", err)
	}
	return nil
}

// PathsForRecord returns every known vault path for a record id.
func (db *DB) PathsForRecord(id string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT path FROM records WHERE record_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("index: paths for record: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveSourceID caches the canonical source id for a profile index.
func (db *DB) SaveSourceID(profileIndex int, sourceID string) error {
	_, err := db.conn.Exec(`
		INSERT INTO source_registry (profile_idx, source_id)
		VALUES (?, ?)
		ON CONFLICT(profile_idx) DO UPDATE SET source_id = excluded.source_id
	`, profileIndex, sourceID)
	if err != nil {
		return fmt.Errorf("index: save source id: %w", err)
	}
	return nil
}

// SourceIDForProfile implements routing.Store: cached source id lookup.
func (db *DB) SourceIDForProfile(profileIndex int) (string, bool, error) {
	var id string
	err := db.conn.QueryRow(`SELECT source_id FROM source_registry WHERE profile_idx = ?`, profileIndex).Scan(&id)
	if err != nil {
		return "", false, nil
	}
	return id, true, nil
}
