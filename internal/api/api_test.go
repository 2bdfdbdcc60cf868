package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/halvard/vaultsync/internal/models"
	"github.com/halvard/vaultsync/internal/remote"
	"github.com/halvard/vaultsync/internal/routing"
	"github.com/halvard/vaultsync/internal/sync"
	"github.com/halvard/vaultsync/internal/testutil"
)

type stubRemote struct {
	notes []models.Record
}

func (s *stubRemote) ListNotes(_ context.Context, q remote.ListQuery) (*remote.ListResult, error) {
	return &remote.ListResult{Notes: s.notes}, nil
}

func (s *stubRemote) PutNoteMarkdown(context.Context, string, string) error { return nil }

func newTestServer(t *testing.T, authEnabled bool, token string) (*httptest.Server, *Service) {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	rc := routing.Context{SourceID: "assets_2", ProfileIndex: 2, GenericPrefix: "assets"}

	syncer := sync.New(store, db, &stubRemote{notes: []models.Record{
		{ID: "n1", Markdown: "---\nid: \"n1\"\n---\n\nbody\n"},
	}}, sync.Options{Folders: sync.Folders{Canonical: "canonical"}}, testutil.Logger())

	svc := NewService(syncer, db, rc)
	r := NewRouter(svc, authEnabled, token)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, true, "secret")

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authorized status = %d, want 200", resp.StatusCode)
	}
}

func TestStatusReportsRouting(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Routing.SourceID != "assets_2" {
		t.Errorf("source id = %q", body.Routing.SourceID)
	}
	if body.Routing.Mismatch {
		t.Error("aligned context should not report a mismatch")
	}
	if body.LastPull != nil {
		t.Error("no pull has run yet")
	}
}

func TestPullEndpoint(t *testing.T) {
	srv, svc := newTestServer(t, false, "")

	resp, err := http.Post(srv.URL+"/sync/pull", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var sum sync.PullSummary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if sum.Written != 1 {
		t.Errorf("written = %d, want 1", sum.Written)
	}
	if pull, _ := svc.syncer.LastSummaries(); pull == nil {
		t.Error("pull summary should be recorded on the syncer")
	}
}

func TestAffirmEndpoint(t *testing.T) {
	srv, svc := newTestServer(t, false, "")

	resp, err := http.Post(srv.URL+"/routing/affirm", "application/json",
		strings.NewReader(`{"profile_index": 3}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body RoutingStatus
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.SourceID != "assets_3" || !body.AlignmentEnabled || !body.GuardEnabled {
		t.Errorf("affirmed routing = %+v", body)
	}
	if got := svc.Routing(); got.ProfileIndex != 3 {
		t.Errorf("service context index = %d, want 3", got.ProfileIndex)
	}
}

func TestAffirmRejectsInvalidIndex(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp, err := http.Post(srv.URL+"/routing/affirm", "application/json",
		strings.NewReader(`{"profile_index": 0}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
