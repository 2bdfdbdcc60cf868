package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/halvard/vaultsync/internal/remote"
	"github.com/halvard/vaultsync/internal/routing"
)

// Handler holds control API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// Routing handles GET /api/routing.
func (h *Handler) Routing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, routingStatus(h.svc.Routing()))
}

// Affirm handles POST /api/routing/affirm.
func (h *Handler) Affirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileIndex int `json:"profile_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rc, err := h.svc.Affirm(req.ProfileIndex)
	if err != nil {
		slog.Error("affirm failed", slog.Int("profile_index", req.ProfileIndex), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, routingStatus(rc))
}

// Pull handles POST /api/sync/pull.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := remote.ListQuery{
		Query:          q.Get("q"),
		Status:         q.Get("status"),
		Tag:            q.Get("tag"),
		BookmarkedOnly: q.Get("bookmarked") == "true",
	}
	replace, _ := strconv.ParseBool(q.Get("replace"))

	sum, err := h.svc.Pull(r.Context(), query, replace)
	if err != nil {
		slog.Error("pull failed", slog.String("error", err.Error()))
		writeJSON(w, syncErrorStatus(err), errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Push handles POST /api/sync/push.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Push(r.Context())
	if err != nil {
		slog.Error("push failed", slog.String("error", err.Error()))
		writeJSON(w, syncErrorStatus(err), errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// syncErrorStatus maps routing mismatches to 400 so a misrouted client sees
// a configuration error, not a server fault.
func syncErrorStatus(err error) int {
	var mismatch *routing.MismatchError
	if errors.As(err, &mismatch) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
