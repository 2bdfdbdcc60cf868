package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/halvard/vaultsync/internal/models"
	"github.com/halvard/vaultsync/internal/note"
	"github.com/halvard/vaultsync/internal/remote"
	"github.com/halvard/vaultsync/internal/storage"
	"github.com/halvard/vaultsync/internal/testutil"
)

type pushedNote struct {
	id      string
	content string
}

type fakeRemote struct {
	pages   [][]models.Record
	endless bool
	calls   int

	mu      stdsync.Mutex
	pushErr error
	pushed  []pushedNote
}

func (f *fakeRemote) ListNotes(_ context.Context, q remote.ListQuery) (*remote.ListResult, error) {
	if f.endless {
		notes := make([]models.Record, q.Limit)
		for i := range notes {
			id := fmt.Sprintf("e%d", q.Offset+i)
			notes[i] = models.Record{ID: id, Markdown: renderedNote(id)}
		}
		f.calls++
		return &remote.ListResult{Notes: notes, Total: 1 << 20}, nil
	}
	var notes []models.Record
	if f.calls < len(f.pages) {
		notes = f.pages[f.calls]
	}
	f.calls++
	return &remote.ListResult{Notes: notes, Total: 0}, nil
}

func (f *fakeRemote) PutNoteMarkdown(_ context.Context, id, markdown string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, pushedNote{id: id, content: markdown})
	return nil
}

func (f *fakeRemote) pushedNotes() []pushedNote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushedNote(nil), f.pushed...)
}

func (f *fakeRemote) setPushErr(err error) {
	f.mu.Lock()
	f.pushErr = err
	f.mu.Unlock()
}

func renderedNote(id string) string {
	return fmt.Sprintf("---\nid: %q\ncaption: template\n---\n\ntemplate body\n", id)
}

func makePages(sizes ...int) [][]models.Record {
	var out [][]models.Record
	n := 0
	for _, size := range sizes {
		page := make([]models.Record, size)
		for i := range page {
			id := fmt.Sprintf("r%d", n)
			page[i] = models.Record{ID: id, Markdown: renderedNote(id)}
			n++
		}
		out = append(out, page)
	}
	return out
}

func newTestSyncer(t *testing.T, rc Remote, opts Options) (*Syncer, string, storage.Provider) {
	t.Helper()
	root, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	if opts.Folders == (Folders{}) {
		opts.Folders = Folders{Canonical: "canonical", Bookmarks: "bookmarks", Authors: "authors"}
	}
	return New(store, db, rc, opts, testutil.Logger()), root, store
}

func TestPull_TerminatesOnShortPage(t *testing.T) {
	rc := &fakeRemote{pages: makePages(50, 50, 12)}
	s, _, _ := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 1000})

	sum, err := s.Pull(context.Background(), PullOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Pages != 3 || sum.Written != 112 {
		t.Errorf("pages=%d written=%d, want 3 and 112", sum.Pages, sum.Written)
	}
	if sum.Stop != StopExhausted {
		t.Errorf("stop = %q, want exhausted", sum.Stop)
	}
}

func TestPull_StopsAtSafetyCap(t *testing.T) {
	rc := &fakeRemote{endless: true}
	s, _, _ := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 120})

	sum, err := s.Pull(context.Background(), PullOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Stop != StopSafetyCap {
		t.Errorf("stop = %q, want safety cap", sum.Stop)
	}
	if sum.Written != 120 {
		t.Errorf("written = %d, want exactly the cap", sum.Written)
	}
}

func TestPull_MergesExistingUserContent(t *testing.T) {
	rc := &fakeRemote{pages: makePages(1)}
	s, _, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100})

	existing := "---\nid: \"r0\"\nrating: 5\n---\n\nold body\n" +
		note.UserSectionStart + "\nprecious notes\n" + note.UserSectionEnd + "\n"
	if err := store.Write("canonical/r0.md", []byte(existing)); err != nil {
		t.Fatal(err)
	}

	sum, err := s.Pull(context.Background(), PullOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Merged != 1 {
		t.Errorf("merged = %d, want 1", sum.Merged)
	}

	got, err := store.Read("canonical/r0.md")
	if err != nil {
		t.Fatal(err)
	}
	text := string(got)
	if !strings.Contains(text, "precious notes") {
		t.Errorf("user notes lost:\n%s", text)
	}
	if !strings.Contains(text, "template body") {
		t.Errorf("incoming body missing:\n%s", text)
	}
	v, _ := note.Parse(text).Frontmatter.Get("rating")
	if v.IntValue() != 5 {
		t.Errorf("rating = %#v, want preserved 5", v)
	}
}

func TestPull_SplitStrategyWritesBookmarkAndAuthorCopies(t *testing.T) {
	rec := models.Record{ID: "b1", Markdown: renderedNote("b1"), Bookmarked: true, AuthorID: "alice"}
	rc := &fakeRemote{pages: [][]models.Record{{rec}}}
	s, _, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100, Strategy: StrategySplit})

	if _, err := s.Pull(context.Background(), PullOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read("bookmarks/b1.md"); err != nil {
		t.Errorf("bookmarks copy missing: %v", err)
	}
	if _, err := store.Read("authors/alice/b1.md"); err != nil {
		t.Errorf("author copy missing: %v", err)
	}
}

func TestPull_RecordFailureDoesNotAbort(t *testing.T) {
	rc := &fakeRemote{pages: makePages(3)}
	s, root, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100})

	// A directory squatting on r1's path makes both read and write fail.
	if err := os.MkdirAll(filepath.Join(root, "canonical", "r1.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	sum, err := s.Pull(context.Background(), PullOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed == 0 {
		t.Error("expected a counted failure for the blocked record")
	}
	if _, err := store.Read("canonical/r0.md"); err != nil {
		t.Errorf("other records must still be written: %v", err)
	}
	if _, err := store.Read("canonical/r2.md"); err != nil {
		t.Errorf("records after the failure must still be written: %v", err)
	}
}

func TestReplaceFirst_RefusedUnderSplitStrategy(t *testing.T) {
	rc := &fakeRemote{pages: makePages(0)}
	s, _, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100, Strategy: StrategySplit})

	if err := store.Write("bookmarks/keep.md", []byte("x")); err != nil {
		t.Fatal(err)
	}

	sum, err := s.Pull(context.Background(), PullOptions{ReplaceFirst: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Warnings) == 0 {
		t.Error("expected a refusal warning")
	}
	if sum.Replaced != 0 {
		t.Errorf("replaced = %d, want 0", sum.Replaced)
	}
	if _, err := store.Read("bookmarks/keep.md"); err != nil {
		t.Error("refused replace must not delete anything")
	}
}

func TestReplaceFirst_ClearsSingleDestination(t *testing.T) {
	rc := &fakeRemote{pages: makePages(1)}
	s, _, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100})

	if err := store.Write("canonical/stale.md", []byte("old")); err != nil {
		t.Fatal(err)
	}

	sum, err := s.Pull(context.Background(), PullOptions{ReplaceFirst: true})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Replaced != 1 {
		t.Errorf("replaced = %d, want 1", sum.Replaced)
	}
	if _, err := store.Read("canonical/stale.md"); err == nil {
		t.Error("stale file should be gone")
	}
	if _, err := store.Read("canonical/r0.md"); err != nil {
		t.Errorf("fresh pull should have written r0: %v", err)
	}
}

func TestPickPreferred_CanonicalBeatsRecency(t *testing.T) {
	files := []models.LocalFile{
		{Path: "legacy/42.md", ModTime: time.UnixMilli(500)},
		{Path: "canonical/42.md", ModTime: time.UnixMilli(100)},
	}
	got := PickPreferred(files, "canonical")
	if got.Path != "canonical/42.md" {
		t.Errorf("picked %s, want the canonical-folder file", got.Path)
	}
}

func TestPickPreferred_TieIsStable(t *testing.T) {
	files := []models.LocalFile{
		{Path: "a/1.md", ModTime: time.UnixMilli(100)},
		{Path: "b/1.md", ModTime: time.UnixMilli(100)},
	}
	for i := 0; i < 5; i++ {
		if got := PickPreferred(files, "canonical"); got.Path != "a/1.md" {
			t.Fatalf("tie broke to %s, want first element", got.Path)
		}
	}
}

func TestPush_DeduplicatesByRecordID(t *testing.T) {
	rc := &fakeRemote{}
	s, root, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100})

	if err := store.Write("canonical/42.md", []byte("canonical copy")); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("bookmarks/42.md", []byte("legacy copy")); err != nil {
		t.Fatal(err)
	}
	// The legacy duplicate is fresher; canonical residency must still win.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(root, "canonical", "42.md"), old, old); err != nil {
		t.Fatal(err)
	}

	sum, err := s.Push(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.DuplicateGroups != 1 {
		t.Errorf("duplicate groups = %d, want 1", sum.DuplicateGroups)
	}
	pushed := rc.pushedNotes()
	if len(pushed) != 1 {
		t.Fatalf("pushed %d notes, want 1", len(pushed))
	}
	if pushed[0].id != "42" || pushed[0].content != "canonical copy" {
		t.Errorf("pushed %+v, want the canonical copy", pushed[0])
	}
}

func TestPush_SkipsUnchangedContent(t *testing.T) {
	rc := &fakeRemote{}
	s, _, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100})

	if err := store.Write("canonical/1.md", []byte("content")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Push(context.Background()); err != nil {
		t.Fatal(err)
	}
	sum, err := s.Push(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Skipped != 1 || sum.Pushed != 0 {
		t.Errorf("second pass skipped=%d pushed=%d, want 1 and 0", sum.Skipped, sum.Pushed)
	}
	if got := len(rc.pushedNotes()); got != 1 {
		t.Errorf("remote saw %d pushes, want 1", got)
	}
}

func TestPush_CapsSurvivors(t *testing.T) {
	rc := &fakeRemote{}
	s, _, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100, PushMax: 2})

	for i := 0; i < 5; i++ {
		if err := store.Write(fmt.Sprintf("canonical/n%d.md", i), []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	sum, err := s.Push(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Pushed != 2 {
		t.Errorf("pushed = %d, want capped 2", sum.Pushed)
	}
}

func TestPush_DeleteAfterPushOnlyOnSuccess(t *testing.T) {
	rc := &fakeRemote{}
	s, _, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100, DeleteAfterPush: true})

	if err := store.Write("canonical/1.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	sum, err := s.Push(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", sum.Deleted)
	}
	if _, err := store.Read("canonical/1.md"); err == nil {
		t.Error("pushed file should be deleted")
	}

	// Failed pushes must leave the file alone.
	rc.setPushErr(fmt.Errorf("store down"))
	if err := store.Write("canonical/2.md", []byte("y")); err != nil {
		t.Fatal(err)
	}
	sum, err = s.Push(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 || sum.Deleted != 0 {
		t.Errorf("failed=%d deleted=%d, want 1 and 0", sum.Failed, sum.Deleted)
	}
	if _, err := store.Read("canonical/2.md"); err != nil {
		t.Error("file must survive a failed push")
	}
}

func TestWatch_DebouncesRapidEdits(t *testing.T) {
	rc := &fakeRemote{}
	s, root, store := newTestSyncer(t, rc, Options{PageSize: 50, MaxWritten: 100, Debounce: 100 * time.Millisecond})

	if err := os.MkdirAll(filepath.Join(root, "canonical"), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx, root)
	}()

	// Give the watcher a moment to register directories.
	time.Sleep(150 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := store.Write("canonical/7.md", []byte(fmt.Sprintf("edit %d", i))); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	deadline := time.After(3 * time.Second)
	for {
		if len(rc.pushedNotes()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no push observed before deadline")
		case <-time.After(25 * time.Millisecond):
		}
	}
	// Let any stray timers fire.
	time.Sleep(300 * time.Millisecond)

	pushed := rc.pushedNotes()
	if len(pushed) != 1 {
		t.Errorf("pushes = %d, want a single coalesced push", len(pushed))
	}
	last := pushed[len(pushed)-1]
	if last.id != "7" || last.content != "edit 2" {
		t.Errorf("pushed %+v, want final state of the file", last)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop on cancel")
	}
}
