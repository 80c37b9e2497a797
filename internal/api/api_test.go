package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/halvard/munin/internal/graphsvc"
	"github.com/halvard/munin/internal/testutil"
)

// testEnv builds a corpus from files, indexes it, and returns a router.
// authToken="" means auth disabled; non-empty means token mode.
func testEnv(t *testing.T, authToken string, files map[string]string) http.Handler {
	t.Helper()

	store := testutil.TestCorpus(t, files)
	db := testutil.TestDB(t)
	testutil.MustSync(t, db, store)

	svc := graphsvc.NewService(store, db)
	return NewRouter(svc, authToken != "", authToken, nil)
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var corpusFiles = map[string]string{
	"books/mind.md": `---
title: Mind
tags: [philosophy]
---
# Mind

See [[thoughts/self|the self]].
`,
	"thoughts/self.md": `---
title: Self
tags: [philosophy, identity]
---
Points back to [[mind]] and to [[missing_note]].
`,
}

func TestGetDocument(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/documents/books/mind.md")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc graphsvc.DocumentDetail
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID != "books/mind" {
		t.Errorf("id = %q", doc.ID)
	}
	if doc.Title != "Mind" {
		t.Errorf("title = %q, want Mind", doc.Title)
	}
	if len(doc.Outgoing) != 1 {
		t.Fatalf("outgoing = %d, want 1", len(doc.Outgoing))
	}
	if doc.Outgoing[0].Resolved != "thoughts/self" {
		t.Errorf("resolved = %q", doc.Outgoing[0].Resolved)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/documents/nope.md")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/documents?tag=identity")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Documents []graphsvc.DocumentListItem `json:"documents"`
		Total     int                         `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Documents) != 1 {
		t.Fatalf("total = %d, docs = %d", resp.Total, len(resp.Documents))
	}
	if resp.Documents[0].ID != "thoughts/self" {
		t.Errorf("id = %q", resp.Documents[0].ID)
	}
}

func TestBacklinks(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/backlinks/thoughts/self")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Target    string   `json:"target"`
		Backlinks []string `json:"backlinks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Backlinks) != 1 || resp.Backlinks[0] != "books/mind" {
		t.Errorf("backlinks = %v", resp.Backlinks)
	}
}

func TestTags(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/tags")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Tags map[string]int `json:"tags"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Tags["philosophy"] != 2 {
		t.Errorf("philosophy count = %d, want 2", resp.Tags["philosophy"])
	}

	// Single tag lookup.
	w = get(t, router, "/tags?tag=identity")
	var single struct {
		Documents []string `json:"documents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &single); err != nil {
		t.Fatal(err)
	}
	if len(single.Documents) != 1 || single.Documents[0] != "thoughts/self" {
		t.Errorf("documents = %v", single.Documents)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = get(t, router, "/search?q=mind")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGraph(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/graph")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(resp.Nodes))
	}
	// Two resolved edges plus one dangling.
	if len(resp.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(resp.Edges))
	}
}

func TestValidateReportsDangling(t *testing.T) {
	router := testEnv(t, "", corpusFiles)

	w := get(t, router, "/validate")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var report graphsvc.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Clean {
		t.Error("report should not be clean, corpus has a dangling link")
	}
	if len(report.Dangling) != 1 {
		t.Fatalf("dangling = %d, want 1", len(report.Dangling))
	}
	if report.Dangling[0].Target != "missing_note" {
		t.Errorf("dangling target = %q", report.Dangling[0].Target)
	}
}

func TestAuthToken(t *testing.T) {
	router := testEnv(t, "sekret", corpusFiles)

	// No token.
	w := get(t, router, "/tags")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/tags", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/tags", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
