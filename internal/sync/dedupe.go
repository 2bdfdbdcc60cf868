package sync

import (
	"github.com/halvard/vaultsync/internal/models"
	"github.com/halvard/vaultsync/internal/storage"
)

// canonicalBonus dominates any plausible unix-milli modification time, so
// residency in the canonical folder always beats recency: a stale file in
// the canonical folder wins over a fresh duplicate elsewhere.
const canonicalBonus = int64(1) << 62

// GroupByRecord buckets local files by record id (the filename stem),
// preserving encounter order within each group.
func GroupByRecord(files []models.LocalFile) map[string][]models.LocalFile {
	out := make(map[string][]models.LocalFile, len(files))
	for _, f := range files {
		id := storage.RecordID(f.Path)
		out[id] = append(out[id], f)
	}
	return out
}

// PickPreferred selects the canonical file among duplicates that all
// represent the same record. Pure and deterministic: scores are compared
// strictly, so ties resolve to the first-encountered element.
// Must be called with at least one file.
func PickPreferred(files []models.LocalFile, canonicalFolder string) models.LocalFile {
	best := files[0]
	bestScore := dedupeScore(best, canonicalFolder)
	for _, f := range files[1:] {
		if s := dedupeScore(f, canonicalFolder); s > bestScore {
			best = f
			bestScore = s
		}
	}
	return best
}

func dedupeScore(f models.LocalFile, canonicalFolder string) int64 {
	score := f.ModTime.UnixMilli()
	if storage.UnderFolder(f.Path, canonicalFolder) {
		score += canonicalBonus
	}
	return score
}
