package index

import (
	"testing"
	"time"

	"github.com/halvard/munin/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUpsert(t *testing.T, db *DB, id, path, body string, tags, themes []string, links ...models.LinkRef) {
	t.Helper()
	row := DocRow{ID: id, Path: path, Title: id, Tags: tags, Themes: themes, Checksum: "cs-" + id, UpdatedAt: time.Now()}
	if err := db.UpsertDocument(row, body, links); err != nil {
		t.Fatalf("UpsertDocument(%s): %v", id, err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"documents", "links", "doc_tags", "diagnostics"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertOverwrites(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, "hello", "hello.md", "first body", []string{"go"}, nil)
	mustUpsert(t, db, "hello", "hello.md", "second body", []string{"philosophy"}, nil)

	d, err := db.GetDocument("hello")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if len(d.Tags) != 1 || d.Tags[0] != "philosophy" {
		t.Errorf("tags = %v, want [philosophy]", d.Tags)
	}

	// The old tag row must be gone.
	ids, err := db.TagIndex("go")
	if err != nil {
		t.Fatalf("TagIndex: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("stale tag rows survive: %v", ids)
	}
}

func TestBacklinksAfterResolve(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, "a", "a.md", "body", nil, nil, models.LinkRef{Target: "b", Label: "b"})
	mustUpsert(t, db, "c", "c.md", "body", nil, nil, models.LinkRef{Target: "b", Label: "b"})
	mustUpsert(t, db, "b", "b.md", "body", nil, nil)

	if _, _, err := db.ResolveAll(); err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}

	bl, err := db.Backlinks("b")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0] != "a" || bl[1] != "c" {
		t.Fatalf("backlinks = %v, want [a c]", bl)
	}

	// No resolved links to a missing document.
	bl, _ = db.Backlinks("nope")
	if len(bl) != 0 {
		t.Errorf("backlinks of unknown doc = %v, want empty", bl)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, "del", "del.md", "body", []string{"x"}, nil, models.LinkRef{Target: "target", Label: "target"})

	if err := db.DeleteDocument("del"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := db.GetDocument("del"); err == nil {
		t.Error("expected not-found after delete")
	}
	out, _ := db.Outgoing("del")
	if len(out) != 0 {
		t.Errorf("outgoing links survive delete: %v", out)
	}
	ids, _ := db.TagIndex("x")
	if len(ids) != 0 {
		t.Errorf("tag rows survive delete: %v", ids)
	}
}

func TestListDocuments_TagFilter(t *testing.T) {
	db := testDB(t)
	mustUpsert(t, db, "a", "a.md", "body", []string{"book"}, nil)
	mustUpsert(t, db, "b", "b.md", "body", nil, []string{"consciousness"})

	rows, total, err := db.ListDocuments(10, 0, "consciousness", "id")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != "b" {
		t.Errorf("rows = %v, total = %d", rows, total)
	}

	_, total, err = db.ListDocuments(10, 0, "", "id")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestDiagnosticsRoundtrip(t *testing.T) {
	db := testDB(t)
	if err := db.SetDiagnostic(models.DiagMalformedFrontmatter, "bad.md", "unterminated"); err != nil {
		t.Fatalf("SetDiagnostic: %v", err)
	}
	// Idempotent refresh.
	if err := db.SetDiagnostic(models.DiagMalformedFrontmatter, "bad.md", "still unterminated"); err != nil {
		t.Fatalf("SetDiagnostic update: %v", err)
	}
	diags, err := db.Diagnostics()
	if err != nil {
		t.Fatalf("Diagnostics: %v", err)
	}
	if len(diags) != 1 || diags[0].Detail != "still unterminated" {
		t.Errorf("diags = %v", diags)
	}
	if err := db.ClearDiagnostic(models.DiagMalformedFrontmatter, "bad.md"); err != nil {
		t.Fatalf("ClearDiagnostic: %v", err)
	}
	diags, _ = db.Diagnostics()
	if len(diags) != 0 {
		t.Errorf("diags after clear = %v", diags)
	}
}
