package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLocal(t *testing.T) *LocalStore {
	t.Helper()
	s, err := OpenLocal(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLocalStore_GetMissing(t *testing.T) {
	s := openTestLocal(t)

	_, err := s.Get(context.Background(), "tasks", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_UpsertMerges(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "tasks", "t1", map[string]any{
		"title": "Clean lobby",
		"state": "available",
		"meta":  map[string]any{"floor": 2},
	}))
	require.NoError(t, s.Upsert(ctx, "tasks", "t1", map[string]any{
		"state":      "claimed",
		"assigneeId": "op-7",
	}))

	doc, err := s.Get(ctx, "tasks", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", doc.ID)
	assert.Equal(t, "Clean lobby", doc.Fields["title"])
	assert.Equal(t, "claimed", doc.Fields["state"])
	assert.Equal(t, "op-7", doc.Fields["assigneeId"])
	assert.Equal(t, map[string]any{"floor": int64(2)}, doc.Fields["meta"])
	assert.False(t, doc.CreateTime.IsZero())
}

func TestLocalStore_ValueTypesRoundTrip(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()
	ts := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	fields := map[string]any{
		"null":    nil,
		"flag":    false,
		"count":   0,
		"ratio":   29.97,
		"name":    "",
		"at":      ts,
		"raw":     []byte{1, 2, 3},
		"tags":    []string{"a", "b"},
		"nested":  map[string]any{"inner": []any{int64(1), "x"}},
		"pointer": &ts,
	}
	require.NoError(t, s.Upsert(ctx, "media", "m1", fields))

	doc, err := s.Get(ctx, "media", "m1")
	require.NoError(t, err)
	assert.Nil(t, doc.Fields["null"])
	assert.Contains(t, doc.Fields, "null")
	assert.Equal(t, false, doc.Fields["flag"])
	assert.Equal(t, int64(0), doc.Fields["count"])
	assert.Equal(t, 29.97, doc.Fields["ratio"])
	assert.Equal(t, "", doc.Fields["name"])
	assert.Equal(t, ts, doc.Fields["at"])
	assert.Equal(t, ts, doc.Fields["pointer"])
	assert.Equal(t, []byte{1, 2, 3}, doc.Fields["raw"])
	assert.Equal(t, []any{"a", "b"}, doc.Fields["tags"])
	assert.Equal(t, map[string]any{"inner": []any{int64(1), "x"}}, doc.Fields["nested"])
}

func TestLocalStore_ListOrderedAndFiltered(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Upsert(ctx, "moments", id, map[string]any{"taskId": "t1"}))
	}
	require.NoError(t, s.Upsert(ctx, "moments", "d", map[string]any{"taskId": "t2"}))
	require.NoError(t, s.Upsert(ctx, "tasks", "a", map[string]any{"taskId": "t1"}))

	all, err := s.List(ctx, "moments", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(all))

	filtered, err := s.List(ctx, "moments", Filter{"taskId": "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(filtered))

	empty, err := s.List(ctx, "sessions", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalStore_UnsupportedValue(t *testing.T) {
	s := openTestLocal(t)

	err := s.Upsert(context.Background(), "tasks", "t1", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestFilter_Matches(t *testing.T) {
	doc := Document{ID: "x", Fields: map[string]any{
		"state":  "active",
		"count":  int64(3),
		"closed": nil,
	}}

	assert.True(t, Filter(nil).Matches(doc))
	assert.True(t, Filter{"state": "active"}.Matches(doc))
	assert.True(t, Filter{"count": 3}.Matches(doc))
	assert.True(t, Filter{"count": 3.0}.Matches(doc))
	assert.True(t, Filter{"closed": nil}.Matches(doc))
	assert.True(t, Filter{"missing": nil}.Matches(doc))
	assert.False(t, Filter{"state": "ended"}.Matches(doc))
	assert.False(t, Filter{"missing": "x"}.Matches(doc))
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestLocalStore_EmptyUpsertKeepsFields(t *testing.T) {
	s := openTestLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "locations", "loc1", map[string]any{}))
	doc, err := s.Get(ctx, "locations", "loc1")
	require.NoError(t, err)
	assert.Empty(t, doc.Fields)

	require.NoError(t, s.Upsert(ctx, "locations", "loc1", map[string]any{"name": "HQ"}))
	before, err := s.Get(ctx, "locations", "loc1")
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, "locations", "loc1", nil))
	after, err := s.Get(ctx, "locations", "loc1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "HQ"}, after.Fields)
	assert.Equal(t, before.UpdateTime, after.UpdateTime)
}
