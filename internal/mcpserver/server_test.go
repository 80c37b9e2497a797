package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/halvard/munin/internal/graphsvc"
	"github.com/halvard/munin/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	store := testutil.TestCorpus(t, map[string]string{
		"books/mind.md": `---
title: Mind
tags: [philosophy]
---
# Mind

See [[thoughts/self]].
`,
		"thoughts/self.md": `---
title: Self
tags: [philosophy]
---
Back to [[mind]] and a [[ghost]].
`,
	})
	db := testutil.TestDB(t)
	testutil.MustSync(t, db, store)

	return New(graphsvc.NewService(store, db))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_corpus":
		result, err = srv.searchCorpus(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "list_by_tag":
		result, err = srv.listByTag(ctx, req)
	case "get_graph":
		result, err = srv.getGraph(ctx, req)
	case "validate_corpus":
		result, err = srv.validateCorpus(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadDocument(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "read_document", map[string]any{"ref": "books/mind.md"})
	text := resultText(r)
	if !strings.Contains(text, `"id": "books/mind"`) {
		t.Errorf("read result = %q", text)
	}
	if !strings.Contains(text, `"title": "Mind"`) {
		t.Errorf("missing title in %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"ref": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListDocuments(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_documents", map[string]any{})
	text := resultText(r)
	if !strings.Contains(text, "books/mind") || !strings.Contains(text, "thoughts/self") {
		t.Errorf("list = %q", text)
	}
}

func TestListDocumentsPaging(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_documents", map[string]any{"limit": 1})
	lines := strings.Split(resultText(r), "\n")
	if len(lines) != 2 {
		t.Fatalf("page 1 = %q", lines)
	}
	if !strings.Contains(lines[1], "1 more") {
		t.Errorf("expected paging hint, got %q", lines[1])
	}

	r = callTool(t, srv, "list_documents", map[string]any{"limit": 1, "offset": 1})
	second := resultText(r)
	if strings.Contains(second, "more") {
		t.Errorf("page 2 should be the last page, got %q", second)
	}

	got := map[string]bool{lines[0]: true, second: true}
	for _, id := range []string{"books/mind", "thoughts/self"} {
		if !got[id] {
			t.Errorf("paging never returned %s (got %v)", id, got)
		}
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_backlinks", map[string]any{"ref": "thoughts/self"})
	if text := resultText(r); text != "books/mind" {
		t.Errorf("backlinks = %q, want books/mind", text)
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"ref": "ghost"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("ghost backlinks = %q", text)
	}
}

func TestListByTag(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_by_tag", map[string]any{"tag": "philosophy"})
	text := resultText(r)
	if !strings.Contains(text, "books/mind") || !strings.Contains(text, "thoughts/self") {
		t.Errorf("tag list = %q", text)
	}
}

func TestValidateCorpusReportsDangling(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "validate_corpus", map[string]any{})
	text := resultText(r)
	if !strings.Contains(text, `"ghost"`) {
		t.Errorf("validate output missing dangling target: %q", text)
	}
	if !strings.Contains(text, `"clean": false`) {
		t.Errorf("validate output should not be clean: %q", text)
	}
}

func TestGetGraph(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_graph", map[string]any{})
	text := resultText(r)
	if !strings.Contains(text, `"nodes"`) || !strings.Contains(text, `"edges"`) {
		t.Errorf("graph output = %q", text)
	}
}
