package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/halvard/vaultsync/internal/checksum"
	"github.com/halvard/vaultsync/internal/merge"
	"github.com/halvard/vaultsync/internal/models"
	"github.com/halvard/vaultsync/internal/remote"
)

// PullOptions configures one pull pass.
type PullOptions struct {
	// Query filters which records the store returns. Limit and Offset are
	// managed by the pagination loop and ignored here.
	Query remote.ListQuery
	// ReplaceFirst deletes every note under the single destination folder
	// before pulling. Refused when the write strategy spans more than one
	// folder: clearing one folder while writing to several would strand
	// the others.
	ReplaceFirst bool
}

// Pull runs one remote-to-local pass: fetch pages of rendered notes, merge
// each into any existing local document, and write the result to every
// planned destination. A failure on one record never aborts the pass; it
// is counted and the loop moves on. Nothing is deleted here except under
// an accepted ReplaceFirst.
func (s *Syncer) Pull(ctx context.Context, opts PullOptions) (*PullSummary, error) {
	sum := &PullSummary{Stop: StopExhausted}
	defer s.recordPull(sum)

	if opts.ReplaceFirst {
		s.replaceBeforePull(sum)
	}

	q := opts.Query
	q.Limit = s.opts.PageSize
	q.Offset = 0

	for {
		page, err := s.remote.ListNotes(ctx, q)
		if err != nil {
			return sum, fmt.Errorf("sync: list notes at offset %d: %w", q.Offset, err)
		}
		sum.Pages++
		sum.Fetched += len(page.Notes)

		for _, rec := range page.Notes {
			if ctx.Err() != nil {
				sum.Stop = StopCancelled
				return sum, nil
			}
			if sum.Written >= s.opts.MaxWritten {
				sum.Stop = StopSafetyCap
				s.logger.Warn("pull: stopped at safety cap",
					slog.Int("cap", s.opts.MaxWritten),
					slog.Int("written", sum.Written))
				return sum, nil
			}
			s.reconcileIncoming(rec, sum)
		}

		if len(page.Notes) < q.Limit {
			return sum, nil
		}
		q.Offset += q.Limit
	}
}

// reconcileIncoming merges one fetched record into each planned
// destination, writing incoming verbatim where no local document exists.
func (s *Syncer) reconcileIncoming(rec models.Record, sum *PullSummary) {
	for _, path := range DestinationPlan(s.opts.Strategy, s.opts.Folders, rec) {
		content := rec.Markdown

		existing, err := s.store.Read(path)
		switch {
		case err == nil:
			content = merge.Merge(string(existing), rec.Markdown)
			sum.Merged++
		case errors.Is(err, os.ErrNotExist):
			// Fresh destination: incoming verbatim.
		default:
			sum.Failed++
			s.logger.Warn("pull: read failed",
				slog.String("id", rec.ID),
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}

		if err := s.store.Write(path, []byte(content)); err != nil {
			sum.Failed++
			s.logger.Warn("pull: write failed",
				slog.String("id", rec.ID),
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if err := s.db.UpsertRecord(rec.ID, path, checksum.Sum([]byte(content))); err != nil {
			s.logger.Warn("pull: index failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		sum.Written++
	}
}

// replaceBeforePull clears the destination folder ahead of the pass, or
// refuses with a warning when the strategy writes to several folders.
func (s *Syncer) replaceBeforePull(sum *PullSummary) {
	folders := planFolders(s.opts.Strategy, s.opts.Folders)
	if len(folders) != 1 {
		warning := fmt.Sprintf("replace refused: strategy %q writes to %d folders, clearing only one would be unsafe",
			s.opts.Strategy, len(folders))
		sum.Warnings = append(sum.Warnings, warning)
		s.logger.Warn("pull: " + warning)
		return
	}

	files, err := s.store.List(folders[0])
	if err != nil {
		sum.Warnings = append(sum.Warnings, fmt.Sprintf("replace skipped: list %s: %v", folders[0], err))
		return
	}
	for _, f := range files {
		if err := s.store.Delete(f.Path); err != nil {
			sum.Failed++
			s.logger.Warn("pull: replace delete failed",
				slog.String("path", f.Path),
				slog.String("error", err.Error()))
			continue
		}
		if err := s.db.DeletePath(f.Path); err != nil {
			s.logger.Warn("pull: index delete failed", slog.String("path", f.Path))
		}
		sum.Replaced++
	}
}
