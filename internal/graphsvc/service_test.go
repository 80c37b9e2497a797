package graphsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	store := testutil.TestCorpus(t, map[string]string{
		"sources/books/der_ego_tunnel.md": "---\ntitle: Der Ego-Tunnel\nauthor: Thomas Metzinger\ntype: book\ntags: [source, book, psm]\n---\n- unterstützt: [[thinkers/metzinger/profile|Metzinger]]\nAlso [[thoughts/missing_one]].\n",
		"thinkers/metzinger/profile.md":   "---\ntitle: Thomas Metzinger\ntype: profile\ntags: [thinker]\n---\nProfile body.\n",
	})
	db := testutil.TestDB(t)
	testutil.MustSync(t, db, store)
	return NewService(store, db)
}

func TestGetDocument_Detail(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	// Lookup works by path as well as by id.
	d, err := svc.GetDocument(ctx, "sources/books/der_ego_tunnel.md")
	require.NoError(t, err)
	assert.Equal(t, "sources/books/der_ego_tunnel", d.ID)
	assert.Equal(t, "Der Ego-Tunnel", d.Title)
	assert.Equal(t, "Thomas Metzinger", d.Meta.Author)
	require.Len(t, d.Outgoing, 2)
	assert.Equal(t, "thinkers/metzinger/profile", d.Outgoing[0].Resolved)
	assert.Equal(t, "unterstützt", d.Outgoing[0].Kind)
	assert.Empty(t, d.Outgoing[1].Resolved)

	p, err := svc.GetDocument(ctx, "thinkers/metzinger/profile")
	require.NoError(t, err)
	assert.Equal(t, []string{"sources/books/der_ego_tunnel"}, p.Backlinks)
}

func TestGetDocument_NotFound(t *testing.T) {
	svc := testService(t)
	_, err := svc.GetDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTagQueries(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	ids, err := svc.TagIndex(ctx, "psm")
	require.NoError(t, err)
	assert.Equal(t, []string{"sources/books/der_ego_tunnel"}, ids)

	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tags["thinker"])
	assert.Equal(t, 1, tags["psm"])
}

func TestGraph_GroupsRelationKinds(t *testing.T) {
	svc := testService(t)
	nodes, edges, err := svc.Graph(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	require.Len(t, edges, 2)
	assert.Equal(t, "unterstützt", edges[0].Kind)
	assert.Equal(t, "supports", edges[0].Group)
	assert.Empty(t, edges[1].Group)
}

func TestValidate_ReportsDangling(t *testing.T) {
	svc := testService(t)
	report, err := svc.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.False(t, report.Clean)
	require.Len(t, report.Dangling, 1)
	assert.Equal(t, "thoughts/missing_one", report.Dangling[0].Target)
	assert.Empty(t, report.Diagnostics)
}
