package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryInsertAndGet(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	ctx := context.Background()
	doc, err := store.Insert(ctx, "things", "owner-1", map[string]interface{}{"name": "a"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if !doc.CreatedAt.Equal(doc.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at on insert")
	}
	got, err := store.Get(ctx, "things", doc.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Data["name"] != "a" || got.OwnerID != "owner-1" {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestMemoryUpdateMergesPatch(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	ctx := context.Background()
	doc, err := store.Insert(ctx, "things", "owner-1", map[string]interface{}{"name": "a", "phone": "1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	updated, err := store.Update(ctx, "things", doc.ID, map[string]interface{}{"phone": "2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Data["name"] != "a" || updated.Data["phone"] != "2" {
		t.Fatalf("patch not merged: %+v", updated.Data)
	}
	if !updated.CreatedAt.Equal(doc.CreatedAt) {
		t.Fatalf("created_at must not change on update")
	}
}

func TestMemoryUpdateMissing(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	if _, err := store.Update(context.Background(), "things", "nope", map[string]interface{}{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDeleteMissing(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	if err := store.Delete(context.Background(), "things", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryFindFiltersAndOrders(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := store.Insert(ctx, "things", "owner-1", map[string]interface{}{"name": name}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if _, err := store.Insert(ctx, "things", "owner-2", map[string]interface{}{"name": "zed"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	byName, err := store.Find(ctx, Query{Collection: "things", OwnerID: "owner-1", OrderBy: Order{Field: "name"}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(byName) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(byName))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		if byName[i].Data["name"] != want {
			t.Fatalf("position %d: expected %s, got %v", i, want, byName[i].Data["name"])
		}
	}

	newestFirst, err := store.Find(ctx, Query{Collection: "things", OwnerID: "owner-1", OrderBy: Order{Field: "createdAt", Descending: true}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for i := 1; i < len(newestFirst); i++ {
		if newestFirst[i].CreatedAt.After(newestFirst[i-1].CreatedAt) {
			t.Fatalf("expected non-increasing created_at")
		}
	}

	filtered, err := store.Find(ctx, Query{Collection: "things", OwnerID: "owner-1", Filters: []Filter{{Field: "name", Value: "bob"}}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Data["name"] != "bob" {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}
}

func TestMemoryWatchSignalsOnMutation(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals, err := store.Watch(ctx, "things", "owner-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	waitSignal(t, signals) // initial

	doc, err := store.Insert(ctx, "things", "owner-1", map[string]interface{}{"name": "a"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	waitSignal(t, signals)

	if _, err := store.Insert(ctx, "things", "owner-2", nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	select {
	case <-signals:
		t.Fatalf("watch must not fire for another owner")
	case <-time.After(50 * time.Millisecond):
	}

	if err := store.Delete(ctx, "things", doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitSignal(t, signals)

	cancel()
	select {
	case _, ok := <-signals:
		if ok {
			// a pending coalesced signal may arrive first; the close must follow
			if _, ok := <-signals; ok {
				t.Fatalf("expected channel close after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatalf("watch channel not closed after cancel")
	}
}

func waitSignal(t *testing.T, signals <-chan struct{}) {
	t.Helper()
	select {
	case <-signals:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for change signal")
	}
}
