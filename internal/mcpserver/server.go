// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Munin corpus tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/munin/internal/graphsvc"
)

// Server wraps the MCP server with Munin tools.
type Server struct {
	mcp *server.MCPServer
	svc *graphsvc.Service
}

// New creates a new MCP server with all Munin tools registered.
func New(svc *graphsvc.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Munin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_corpus",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCorpus)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content and metadata of a document."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Document id or relative path (e.g. books/mind.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by (exact match)")),
		mcp.WithNumber("limit", mcp.Description("Maximum documents to return (default 500)")),
		mcp.WithNumber("offset", mcp.Description("Documents to skip, for paging (default 0)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Document id or path to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_by_tag",
		mcp.WithDescription("List the ids of all documents carrying the given tag or theme."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to look up (exact, case-sensitive)")),
	), s.listByTag)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Export the full link graph as nodes and edges, including dangling edges."),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("validate_corpus",
		mcp.WithDescription("Report dangling links and parse diagnostics for the whole corpus."),
	), s.validateCorpus)

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

func (s *Server) searchCorpus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", ref)), nil
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	limit := req.GetInt("limit", 500)
	offset := req.GetInt("offset", 0)

	docs, total, err := s.svc.ListDocuments(ctx, limit, offset, tag, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if total > offset+len(ids) {
		ids = append(ids, fmt.Sprintf("... %d more, raise offset to page", total-offset-len(ids)))
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) listByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := s.svc.TagIndex(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultText("no documents with tag " + tag), nil
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, edges, err := s.svc.Graph(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"nodes": nodes, "edges": edges}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) validateCorpus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Validate(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
