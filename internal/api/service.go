package api

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/halvard/vaultsync/internal/remote"
	"github.com/halvard/vaultsync/internal/routing"
	"github.com/halvard/vaultsync/internal/sync"
)

// Service coordinates sync passes and routing state for the control API.
// It owns the live routing context: the remote client reads it through
// Routing, and Affirm is the only writer.
type Service struct {
	syncer *sync.Syncer
	store  routing.Store

	mu stdsync.Mutex
	rc routing.Context
}

// NewService creates a new control service with the routing context loaded
// at startup.
func NewService(syncer *sync.Syncer, store routing.Store, rc routing.Context) *Service {
	return &Service{syncer: syncer, store: store, rc: rc}
}

// Routing returns a snapshot of the current routing context. Passed to the
// remote client as its RoutingProvider.
func (s *Service) Routing() routing.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rc
}

// Affirm re-anchors routing to the given profile index and enables
// alignment and the write guard. The new context takes effect for every
// subsequent remote call.
func (s *Service) Affirm(profileIndex int) (routing.Context, error) {
	s.mu.Lock()
	prefix := s.rc.GenericPrefix
	s.mu.Unlock()

	rc, err := routing.Affirm(profileIndex, prefix, s.store)
	if err != nil {
		return routing.Context{}, err
	}
	s.mu.Lock()
	s.rc = rc
	s.mu.Unlock()
	return rc, nil
}

// Pull runs one remote-to-local pass.
func (s *Service) Pull(ctx context.Context, query remote.ListQuery, replaceFirst bool) (*sync.PullSummary, error) {
	return s.syncer.Pull(ctx, sync.PullOptions{Query: query, ReplaceFirst: replaceFirst})
}

// Push runs one local-to-remote pass.
func (s *Service) Push(ctx context.Context) (*sync.PushSummary, error) {
	return s.syncer.Push(ctx)
}

// RoutingStatus is the wire view of the routing context.
type RoutingStatus struct {
	SourceID          string `json:"source_id"`
	ProfileIndex      int    `json:"profile_index"`
	AlignmentEnabled  bool   `json:"alignment_enabled"`
	GuardEnabled      bool   `json:"guard_enabled"`
	EffectiveSourceID string `json:"effective_source_id"`
	EffectiveProfile  int    `json:"effective_profile_index"`
	Mismatch          bool   `json:"mismatch"`
}

func routingStatus(rc routing.Context) RoutingStatus {
	eff := rc.Effective()
	return RoutingStatus{
		SourceID:          rc.SourceID,
		ProfileIndex:      rc.ProfileIndex,
		AlignmentEnabled:  rc.AlignmentEnabled,
		GuardEnabled:      rc.GuardEnabled,
		EffectiveSourceID: eff.SourceID,
		EffectiveProfile:  eff.ProfileIndex,
		Mismatch:          rc.Mismatch(),
	}
}

// StatusResponse is the payload for GET /api/status.
type StatusResponse struct {
	Time     time.Time         `json:"time"`
	Routing  RoutingStatus     `json:"routing"`
	LastPull *sync.PullSummary `json:"last_pull,omitempty"`
	LastPush *sync.PushSummary `json:"last_push,omitempty"`
}

// Status reports routing state and the most recent sync summaries.
func (s *Service) Status() StatusResponse {
	pull, push := s.syncer.LastSummaries()
	return StatusResponse{
		Time:     time.Now().UTC(),
		Routing:  routingStatus(s.Routing()),
		LastPull: pull,
		LastPush: push,
	}
}
