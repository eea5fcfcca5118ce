// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Chronos tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/chronos/internal/apperr"
	"github.com/starford/chronos/internal/chronos"
	"github.com/starford/chronos/internal/service"
	"github.com/starford/chronos/internal/vault"
)

const defaultRecentLimit = 20

// Server wraps the MCP server with Chronos tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *service.Service
	store vault.Provider
}

// New creates a new MCP server with all Chronos tools registered.
func New(svc *service.Service, store vault.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Chronos",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recent_notes",
		mcp.WithDescription("List notes ordered by modification time."),
		mcp.WithString("order", mcp.Description("newest (default) or oldest"), mcp.Enum("newest", "oldest")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 20, 0 for all)")),
	), s.listRecentNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_neighbors",
		mcp.WithDescription("List the notes a note links to and the notes linking to it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note")),
	), s.getNeighbors)

	s.mcp.AddTool(mcp.NewTool("suggest_parents",
		mcp.WithDescription("Suggest parent (Map of Content) notes for a note. "+
			"Candidates are notes tagged as parents within two links of the note; "+
			"the count is how many of the note's neighbors lead to the candidate."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note")),
	), s.suggestParents)

	s.mcp.AddTool(mcp.NewTool("add_parents",
		mcp.WithDescription("Record a note as child of one or more parent notes by "+
			"appending [[note]] to each parent's front matter list."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the child note")),
		mcp.WithArray("parents", mcp.Required(), mcp.WithStringItems(), mcp.Description("Paths of the parent notes")),
	), s.addParents)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(path string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listRecentNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	order := chronos.ParseOrder(req.GetString("order", string(chronos.Newest)))
	limit := req.GetInt("limit", defaultRecentLimit)
	notes, err := s.svc.Timeline(ctx, order, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(notes)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(service.NotePath(path))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getNeighbors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.Neighbors(ctx, path)
	if err != nil {
		return errorResult(path, err), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no neighbors found"), nil
	}
	return jsonResult(notes)
}

func (s *Server) suggestParents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cs, err := s.svc.SuggestParents(ctx, path)
	if err != nil {
		return errorResult(path, err), nil
	}
	if len(cs) == 0 {
		return mcp.NewToolResultText("no parent candidates found"), nil
	}
	return jsonResult(cs)
}

func (s *Server) addParents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parents := req.GetStringSlice("parents", nil)
	if len(parents) == 0 {
		return mcp.NewToolResultError("parents must be a non-empty list of note paths"), nil
	}
	if err := s.svc.AddParents(ctx, path, parents); err != nil {
		return errorResult(path, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked %s under %d parent(s)", service.NotePath(path), len(parents))), nil
}
