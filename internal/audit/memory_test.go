package audit

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreAppendAssignsMonotonicIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, err := store.Append(ctx, &Entry{UserID: "u1", Message: "m", Response: "r"})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if id <= last {
			t.Errorf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	ids := make(chan int64, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := store.Append(ctx, &Entry{UserID: "u", Message: "m", Response: "r"})
				if err != nil {
					t.Errorf("append failed: %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d under concurrent appends", id)
		}
		seen[id] = true
	}
	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique ids, got %d", workers*perWorker, len(seen))
	}
}

func TestMemoryStoreListByUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store.Append(ctx, &Entry{UserID: "alice", Message: "m", Response: "r"})
	}
	store.Append(ctx, &Entry{UserID: "bob", Message: "m", Response: "r"})

	t.Run("NewestFirst", func(t *testing.T) {
		entries, err := store.ListByUser(ctx, "alice", 10)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].ID >= entries[i-1].ID {
				t.Errorf("entries not newest-first: %d before %d", entries[i-1].ID, entries[i].ID)
			}
		}
	})

	t.Run("Limit", func(t *testing.T) {
		entries, _ := store.ListByUser(ctx, "alice", 2)
		if len(entries) != 2 {
			t.Errorf("expected limit to truncate to 2, got %d", len(entries))
		}
	})

	t.Run("OtherUserInvisible", func(t *testing.T) {
		entries, _ := store.ListByUser(ctx, "bob", 10)
		if len(entries) != 1 {
			t.Errorf("expected 1 entry for bob, got %d", len(entries))
		}
	})
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, _ := store.Append(ctx, &Entry{UserID: "alice", Message: "m", Response: "r"})

	deleted, err := store.DeleteByID(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("first delete = (%v, %v), want (true, nil)", deleted, err)
	}

	entries, _ := store.ListByUser(ctx, "alice", 10)
	for _, e := range entries {
		if e.ID == id {
			t.Errorf("deleted id %d still returned by query", id)
		}
	}

	deleted, err = store.DeleteByID(ctx, id)
	if err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
	if deleted {
		t.Error("second delete of same id reported true")
	}
}
