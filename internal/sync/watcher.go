package sync

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the vault root and pushes locally
// edited notes upstream after a quiet period. Each write event cancels and
// reschedules that path's timer, so a burst of rapid saves to one file
// coalesces into a single push of its final state. Pushes are performed on
// the watcher goroutine, one at a time.
//
// New directories created at runtime are added to the watch list. Deleted
// or renamed-away files only have their sync state dropped; the remote
// copy is never touched from here.
func (s *Syncer) Watch(ctx context.Context, vaultRoot string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	s.logger.Info("watcher: started",
		slog.String("root", vaultRoot),
		slog.Duration("debounce", s.opts.Debounce))

	timers := make(map[string]*time.Timer)
	due := make(chan string, 64)

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	schedule := func(rel string) {
		if t, ok := timers[rel]; ok {
			t.Stop()
		}
		timers[rel] = time.AfterFunc(s.opts.Debounce, func() {
			select {
			case due <- rel:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watcher: stopped")
			return nil

		case rel := <-due:
			delete(timers, rel)
			if err := s.PushPath(ctx, rel); err != nil {
				s.logger.Warn("watcher: push failed",
					slog.String("path", rel),
					slog.String("error", err.Error()))
				continue
			}
			s.logger.Debug("watcher: pushed", slog.String("path", rel))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						s.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if t, ok := timers[rel]; ok {
					t.Stop()
					delete(timers, rel)
				}
				if err := s.db.DeletePath(rel); err != nil {
					s.logger.Warn("watcher: index delete failed", slog.String("path", rel))
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
