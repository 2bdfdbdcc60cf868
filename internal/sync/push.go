package sync

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/halvard/vaultsync/internal/checksum"
	"github.com/halvard/vaultsync/internal/models"
	"github.com/halvard/vaultsync/internal/storage"
)

var errPushFailed = errors.New("sync: push failed")

// Push runs one local-to-remote pass: enumerate vault files, collapse
// duplicates per record id, and push each survivor's raw content upstream.
// Files whose content already matches the last push are skipped. When
// DeleteAfterPush is set, a survivor's file is removed only after its push
// succeeded.
func (s *Syncer) Push(ctx context.Context) (*PushSummary, error) {
	sum := &PushSummary{}
	defer s.recordPush(sum)

	files, err := s.collectLocalFiles()
	if err != nil {
		return sum, err
	}

	groups := GroupByRecord(files)
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic order across passes

	var survivors []models.LocalFile
	for _, id := range ids {
		group := groups[id]
		if len(group) > 1 {
			sum.DuplicateGroups++
		}
		survivors = append(survivors, PickPreferred(group, s.opts.Folders.Canonical))
	}
	sum.Candidates = len(survivors)

	if len(survivors) > s.opts.PushMax {
		s.logger.Warn("push: capping survivors",
			slog.Int("candidates", len(survivors)),
			slog.Int("cap", s.opts.PushMax))
		survivors = survivors[:s.opts.PushMax]
	}

	for _, f := range survivors {
		if ctx.Err() != nil {
			return sum, nil
		}
		s.pushFile(ctx, f, sum)
	}
	return sum, nil
}

// PushPath pushes a single vault file, used by the watcher after the
// debounce window closes.
func (s *Syncer) PushPath(ctx context.Context, path string) error {
	data, err := s.store.Read(path)
	if err != nil {
		return err
	}
	f := models.LocalFile{Path: path, Checksum: checksum.Sum(data)}
	sum := &PushSummary{}
	s.pushFile(ctx, f, sum)
	if sum.Failed > 0 {
		return errPushFailed
	}
	return nil
}

func (s *Syncer) pushFile(ctx context.Context, f models.LocalFile, sum *PushSummary) {
	data, err := s.store.Read(f.Path)
	if err != nil {
		sum.Failed++
		s.logger.Warn("push: read failed",
			slog.String("path", f.Path),
			slog.String("error", err.Error()))
		return
	}
	cs := checksum.Sum(data)

	if pushed, _ := s.db.PushedChecksum(f.Path); pushed != "" && pushed == cs {
		sum.Skipped++
		return
	}

	id := storage.RecordID(f.Path)
	if err := s.remote.PutNoteMarkdown(ctx, id, string(data)); err != nil {
		sum.Failed++
		s.logger.Warn("push: upstream failed",
			slog.String("id", id),
			slog.String("path", f.Path),
			slog.String("error", err.Error()))
		return
	}
	sum.Pushed++

	if err := s.db.MarkPushed(f.Path, cs); err != nil {
		s.logger.Warn("push: index failed", slog.String("path", f.Path))
	}

	if s.opts.DeleteAfterPush {
		if err := s.store.Delete(f.Path); err != nil {
			s.logger.Warn("push: delete after push failed",
				slog.String("path", f.Path),
				slog.String("error", err.Error()))
			return
		}
		if err := s.db.DeletePath(f.Path); err != nil {
			s.logger.Warn("push: index delete failed", slog.String("path", f.Path))
		}
		sum.Deleted++
	}
}

// collectLocalFiles lists every destination folder the current strategy
// can have written to.
func (s *Syncer) collectLocalFiles() ([]models.LocalFile, error) {
	seen := make(map[string]struct{})
	var out []models.LocalFile
	for _, folder := range collectFolders(s.opts.Folders) {
		files, err := s.store.List(folder)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			out = append(out, f)
		}
	}
	return out, nil
}

func collectFolders(f Folders) []string {
	var out []string
	for _, folder := range []string{f.Canonical, f.Bookmarks, f.Authors} {
		if folder != "" {
			out = append(out, folder)
		}
	}
	return out
}
