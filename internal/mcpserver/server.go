// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vaultsync operations for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/vaultsync/internal/api"
	"github.com/halvard/vaultsync/internal/remote"
	"github.com/halvard/vaultsync/internal/storage"
)

// Server wraps the MCP server with vaultsync tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *api.Service
	store storage.Provider
}

// New creates a new MCP server with all vaultsync tools registered.
func New(svc *api.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"vaultsync",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("pull_notes",
		mcp.WithDescription("Pull rendered notes from the remote store into the local vault. "+
			"Existing local edits (user-owned frontmatter fields and the user-notes section) are preserved."),
		mcp.WithString("query", mcp.Description("Optional search filter forwarded to the store")),
		mcp.WithString("status", mcp.Description("Optional status filter")),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.pullNotes)

	s.mcp.AddTool(mcp.NewTool("push_notes",
		mcp.WithDescription("Push locally edited notes back to the remote store. "+
			"Duplicates of the same record are collapsed to the canonical copy, and unchanged files are skipped."),
	), s.pushNotes)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Report the current routing context and the most recent pull and push summaries."),
	), s.syncStatus)

	s.mcp.AddTool(mcp.NewTool("routing_status",
		mcp.WithDescription("Report the routing coordinates used for remote calls, including the "+
			"effective partition and whether the configured source id and profile index disagree."),
	), s.routingStatus)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note file from the local vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. canonical/42.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List note files in the local vault, optionally under one folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note document contract: which frontmatter fields belong to the "+
			"user and how the user-notes section is delimited. Call this before editing note files."),
	), s.getNoteContract)

	// Resource: note document contract.
	s.mcp.AddResource(
		mcp.NewResource("vaultsync://note-format", "Note Document Contract",
			mcp.WithResourceDescription("Document layout and ownership rules for synced notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) pullNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var query remote.ListQuery
	if v, err := req.RequireString("query"); err == nil {
		query.Query = v
	}
	if v, err := req.RequireString("status"); err == nil {
		query.Status = v
	}
	if v, err := req.RequireString("tag"); err == nil {
		query.Tag = v
	}
	sum, err := s.svc.Pull(ctx, query, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(sum, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) pushNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.Push(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(sum, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Status(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) routingStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rc := s.svc.Routing()
	eff := rc.Effective()
	out, _ := json.MarshalIndent(map[string]any{
		"source_id":               rc.SourceID,
		"profile_index":           rc.ProfileIndex,
		"alignment_enabled":       rc.AlignmentEnabled,
		"guard_enabled":           rc.GuardEnabled,
		"effective_source_id":     eff.SourceID,
		"effective_profile_index": eff.ProfileIndex,
		"mismatch":                rc.Mismatch(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	files, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vaultsync://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
