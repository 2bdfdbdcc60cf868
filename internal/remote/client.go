// Package remote is the HTTP client for the media store API. Every request
// is scoped to a logical partition via routing headers, and mutating calls
// are rejected client-side before any bytes leave the process when the
// routing guard detects a partition mismatch.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/vaultsync/internal/apperr"
	"github.com/halvard/vaultsync/internal/models"
	"github.com/halvard/vaultsync/internal/routing"
)

// Routing headers carried on every request, mirrored back by the server.
const (
	HeaderSourceID     = "X-Source-ID"
	HeaderProfileIndex = "X-Profile-Index"
	HeaderRequestID    = "X-Request-ID"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 30 * time.Second

// RoutingProvider supplies the current routing context per request, so an
// Affirm that happens mid-run is picked up without rebuilding the client.
type RoutingProvider func() routing.Context

// Client talks to the remote store.
type Client struct {
	base    *url.URL
	http    *http.Client
	auth    Authenticator
	routing RoutingProvider
}

// New creates a client for the store at baseURL.
func New(baseURL string, auth Authenticator, rp RoutingProvider) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if auth == nil {
		auth = NoAuth{}
	}
	return &Client{
		base:    u,
		http:    &http.Client{Timeout: DefaultTimeout},
		auth:    auth,
		routing: rp,
	}, nil
}

// ListQuery are the filters for a notes page.
type ListQuery struct {
	Query          string
	IDs            []string
	Status         string
	Tag            string
	RatingMin      *float64
	RatingMax      *float64
	HasNotes       *bool
	BookmarkedOnly bool
	Order          string
	Limit          int
	Offset         int
	Force          bool
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	for _, id := range q.IDs {
		v.Add("id", id)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	if q.RatingMin != nil {
		v.Set("rating_min", strconv.FormatFloat(*q.RatingMin, 'g', -1, 64))
	}
	if q.RatingMax != nil {
		v.Set("rating_max", strconv.FormatFloat(*q.RatingMax, 'g', -1, 64))
	}
	if q.HasNotes != nil {
		v.Set("has_notes", strconv.FormatBool(*q.HasNotes))
	}
	if q.BookmarkedOnly {
		v.Set("bookmarked_only", "true")
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.Force {
		v.Set("force", "true")
	}
	return v
}

// ListResult is one page of rendered notes.
type ListResult struct {
	Notes []models.Record `json:"notes"`
	Total int             `json:"total"`
}

// ListNotes fetches one page of rendered notes.
func (c *Client) ListNotes(ctx context.Context, q ListQuery) (*ListResult, error) {
	var out ListResult
	if err := c.do(ctx, http.MethodGet, "/notes", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetNote fetches the rendered document for one record. force asks the
// store to re-render even when a user-pushed version is cached.
func (c *Client) GetNote(ctx context.Context, id string, force bool) (*models.Record, error) {
	v := url.Values{}
	if force {
		v.Set("force", "true")
	}
	var out models.Record
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id)+"/note", v, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutNoteMarkdown pushes raw document content upstream. The store tags it
// template_version "user" so later fetches never regenerate over it
// without force.
func (c *Client) PutNoteMarkdown(ctx context.Context, id, markdown string) error {
	body := map[string]string{
		"markdown":         markdown,
		"template_version": "user",
	}
	return c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id)+"/note-md", nil, body, nil)
}

// PutMeta pushes structured user metadata for one record.
func (c *Client) PutMeta(ctx context.Context, id string, meta map[string]any) error {
	return c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id)+"/meta", nil, meta, nil)
}

// do builds, guards, and executes one request. Mutating verbs run through
// routing.AssertSafeForWrite first and are never sent on a mismatch.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	rc := routing.Context{}
	if c.routing != nil {
		rc = c.routing()
	}
	eff := rc.Effective()
	profileIdx := rc.ProfileIndex
	if profileIdx < 1 {
		profileIdx = eff.ProfileIndex
	}

	if err := routing.AssertSafeForWrite(method, eff.SourceID, profileIdx, rc.GuardEnabled); err != nil {
		return err
	}

	u := *c.base
	u.Path, _ = url.JoinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if eff.SourceID != "" {
		req.Header.Set(HeaderSourceID, eff.SourceID)
	}
	if profileIdx >= 1 {
		req.Header.Set(HeaderProfileIndex, strconv.Itoa(profileIdx))
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())
	c.auth.Apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrUnauthorized)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrConflict)
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}
