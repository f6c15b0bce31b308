package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/taskbounty/bountyctl/internal/cache"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func TestPageRoundtrip(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	page := json.RawMessage(`[{"id":"b1","title":"First"}]`)
	if err := st.Put(ctx, "bounty_post_cache", "_most_upvoted_0", page); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.Get(ctx, "bounty_post_cache", "_most_upvoted_0")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(page) {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestGetMiss(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	_, err := st.Get(context.Background(), "bounty_post_cache", "nope")
	if !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.Put(ctx, "comments_p1", "0", json.RawMessage(`["old"]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.Put(ctx, "comments_p1", "0", json.RawMessage(`["new"]`)); err != nil {
		t.Fatalf("put again: %v", err)
	}

	got, err := st.Get(ctx, "comments_p1", "0")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `["new"]` {
		t.Fatalf("expected overwrite, got %s", got)
	}
}

func TestCorruptPayloadIsAMissAndSelfHeals(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	// Write a broken payload directly; Put never validates.
	if _, err := st.db.ExecContext(ctx, `
INSERT INTO pages (namespace, key, payload, updated_at) VALUES (?, ?, ?, 0)
`, "bounty_post_cache", "0", `{"truncated`); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	if _, err := st.Get(ctx, "bounty_post_cache", "0"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("corrupt payload should read as a miss, got %v", err)
	}

	// The row is gone; a good payload can take its place.
	var count int
	if err := st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("corrupt row should have been deleted, %d rows remain", count)
	}
}

func TestInvalidateAllScopedToNamespace(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	pages := map[[2]string]string{
		{"bounty_post_cache", "_newest_0"}: `["a"]`,
		{"bounty_post_cache", "_newest_1"}: `["b"]`,
		{"comments_p1", "0"}:               `["c"]`,
	}
	for k, v := range pages {
		if err := st.Put(ctx, k[0], k[1], json.RawMessage(v)); err != nil {
			t.Fatalf("put %v: %v", k, err)
		}
	}

	if err := st.InvalidateAll(ctx, "bounty_post_cache"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, err := st.Get(ctx, "bounty_post_cache", "_newest_0"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected miss after invalidation, got %v", err)
	}
	if _, err := st.Get(ctx, "bounty_post_cache", "_newest_1"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected miss after invalidation, got %v", err)
	}
	if _, err := st.Get(ctx, "comments_p1", "0"); err != nil {
		t.Fatalf("other namespace should survive, got %v", err)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := st.Put(context.Background(), "ns", "0", json.RawMessage(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Second open over the same database must not re-run migrations.
	st2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if _, err := st2.Get(context.Background(), "ns", "0"); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	st2.Close()
	st.Close()
}
