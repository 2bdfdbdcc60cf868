package index

import (
	"fmt"
	"strconv"

	"github.com/halvard/vaultsync/internal/routing"
)

// Setting keys for the persisted routing context.
const (
	settingSourceID     = "routing.source_id"
	settingProfileIndex = "routing.profile_index"
	settingAlignment    = "routing.alignment"
	settingGuard        = "routing.guard"
)

func (db *DB) setSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("index: set setting %s: %w", key, err)
	}
	return nil
}

func (db *DB) getSetting(key string) (string, bool) {
	var v string
	if err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v); err != nil {
		return "", false
	}
	return v, true
}

// SaveContext implements routing.Store: persist the affirmed coordinates.
func (db *DB) SaveContext(sourceID string, profileIndex int, alignment, guard bool) error {
	if err := db.setSetting(settingSourceID, sourceID); err != nil {
		return err
	}
	if err := db.setSetting(settingProfileIndex, strconv.Itoa(profileIndex)); err != nil {
		return err
	}
	if err := db.setSetting(settingAlignment, strconv.FormatBool(alignment)); err != nil {
		return err
	}
	return db.setSetting(settingGuard, strconv.FormatBool(guard))
}

// LoadContext returns the persisted routing context, falling back to
// fallback for anything never affirmed.
func (db *DB) LoadContext(fallback routing.Context) routing.Context {
	out := fallback
	if v, ok := db.getSetting(settingSourceID); ok {
		out.SourceID = v
	}
	if v, ok := db.getSetting(settingProfileIndex); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			out.ProfileIndex = n
		}
	}
	if v, ok := db.getSetting(settingAlignment); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.AlignmentEnabled = b
		}
	}
	if v, ok := db.getSetting(settingGuard); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.GuardEnabled = b
		}
	}
	return out
}

// Verify *DB satisfies routing.Store at compile time.
var _ routing.Store = (*DB)(nil)
