package sync

import (
	"github.com/halvard/vaultsync/internal/models"
	"github.com/halvard/vaultsync/internal/storage"
)

// Strategy selects where pulled documents are written.
type Strategy string

const (
	// StrategyActiveOnly writes every record into the canonical folder.
	StrategyActiveOnly Strategy = "active-only"
	// StrategySplit is the legacy layout: bookmarked records go to the
	// bookmarks folder, and records with a known author also go to a
	// per-author folder.
	StrategySplit Strategy = "split"
)

// Folders names the destination roots inside the vault.
type Folders struct {
	Canonical string
	Bookmarks string
	Authors   string
}

// DestinationPlan returns the ordered set of vault paths a record's
// document should be written to. The plan never contains duplicates and is
// never empty: records the split strategy cannot place fall back to the
// canonical folder rather than being dropped.
func DestinationPlan(strategy Strategy, folders Folders, rec models.Record) []string {
	if strategy != StrategySplit {
		return []string{storage.NotePath(folders.Canonical, rec.ID)}
	}

	var out []string
	if rec.Bookmarked && folders.Bookmarks != "" {
		out = append(out, storage.NotePath(folders.Bookmarks, rec.ID))
	}
	if rec.AuthorID != "" && folders.Authors != "" {
		out = append(out, storage.NotePath(folders.Authors+"/"+rec.AuthorID, rec.ID))
	}
	if len(out) == 0 {
		out = append(out, storage.NotePath(folders.Canonical, rec.ID))
	}
	return out
}

// planFolders returns the distinct destination folders a strategy can
// write into. Used to refuse destructive pre-steps that would clear one
// folder while writing to several.
func planFolders(strategy Strategy, folders Folders) []string {
	if strategy != StrategySplit {
		return []string{folders.Canonical}
	}
	var out []string
	for _, f := range []string{folders.Bookmarks, folders.Authors, folders.Canonical} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
