// Package sync implements the reconciliation loop between the remote media
// store and the local vault: paginated fetch-merge-write on the way down,
// and collect-dedupe-push on the way up. Records are processed one at a
// time; neither the store nor the vault is safe under concurrent writes to
// the same record.
package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/halvard/vaultsync/internal/remote"
	"github.com/halvard/vaultsync/internal/storage"
)

// Remote is the slice of the store API the loop needs.
type Remote interface {
	ListNotes(ctx context.Context, q remote.ListQuery) (*remote.ListResult, error)
	PutNoteMarkdown(ctx context.Context, id, markdown string) error
}

// StateIndex persists per-path sync state between passes.
type StateIndex interface {
	UpsertRecord(id, path, checksum string) error
	MarkPushed(path, checksum string) error
	PushedChecksum(path string) (string, error)
	DeletePath(path string) error
}

// Options configures a Syncer.
type Options struct {
	Strategy        Strategy
	Folders         Folders
	PageSize        int
	MaxWritten      int // safety cap on records written per pull pass
	PushMax         int // cap on records pushed per push pass
	DeleteAfterPush bool
	Debounce        time.Duration
}

// StopReason says why a pull pass ended.
type StopReason string

const (
	// StopExhausted means the store returned a short page: no more results.
	StopExhausted StopReason = "exhausted"
	// StopSafetyCap means the written-records cap was hit before the
	// result set ran out. Distinct from exhaustion so callers can tell a
	// complete pass from a truncated one.
	StopSafetyCap StopReason = "safety cap reached"
	// StopCancelled means the caller aborted between records.
	StopCancelled StopReason = "cancelled"
)

// PullSummary reports one remote-to-local pass.
type PullSummary struct {
	Pages    int        `json:"pages"`
	Fetched  int        `json:"fetched"`
	Written  int        `json:"written"`
	Merged   int        `json:"merged"`
	Failed   int        `json:"failed"`
	Replaced int        `json:"replaced"`
	Warnings []string   `json:"warnings,omitempty"`
	Stop     StopReason `json:"stop"`
}

// PushSummary reports one local-to-remote pass.
type PushSummary struct {
	Candidates      int `json:"candidates"`
	DuplicateGroups int `json:"duplicate_groups"`
	Pushed          int `json:"pushed"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
	Deleted         int `json:"deleted"`
}

// Syncer orchestrates pull and push passes over one vault.
type Syncer struct {
	store  storage.Provider
	db     StateIndex
	remote Remote
	opts   Options
	logger *slog.Logger

	mu       stdsync.Mutex
	lastPull *PullSummary
	lastPush *PushSummary
}

// New creates a Syncer.
func New(store storage.Provider, db StateIndex, rc Remote, opts Options, logger *slog.Logger) *Syncer {
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.MaxWritten < 1 {
		opts.MaxWritten = 500
	}
	if opts.PushMax < 1 {
		opts.PushMax = 200
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 750 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, db: db, remote: rc, opts: opts, logger: logger}
}

// LastSummaries returns the most recent pull and push summaries, either of
// which may be nil before the first pass.
func (s *Syncer) LastSummaries() (*PullSummary, *PushSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPull, s.lastPush
}

func (s *Syncer) recordPull(sum *PullSummary) {
	s.mu.Lock()
	s.lastPull = sum
	s.mu.Unlock()
}

func (s *Syncer) recordPush(sum *PushSummary) {
	s.mu.Lock()
	s.lastPush = sum
	s.mu.Unlock()
}
