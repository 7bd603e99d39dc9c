package idempotency

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if rec, _ := store.Get(ctx, "missing"); rec != nil {
		t.Fatalf("expected nil for missing key")
	}

	record := Record{
		ItemID:     1,
		StatusCode: 202,
		Body:       []byte("ok"),
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(time.Minute),
	}
	if err := store.Save(ctx, "abc", record); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, _ := store.Get(ctx, "abc")
	if got == nil || string(got.Body) != "ok" || got.ItemID != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Save(ctx, "k", Record{StatusCode: 202, ExpiresAt: now.Add(time.Second)})
	now = now.Add(2 * time.Second)
	if rec, _ := store.Get(ctx, "k"); rec != nil {
		t.Fatalf("expected expired record to be hidden")
	}

	_ = store.Save(ctx, "other", Record{StatusCode: 202, ExpiresAt: now.Add(time.Minute)})
	if _, ok := store.data["k"]; ok {
		t.Fatalf("expected expired record to be swept on save")
	}
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idem.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	ctx := context.Background()
	record := Record{
		ItemID:     2,
		StatusCode: 202,
		Body:       []byte("resp"),
		CreatedAt:  time.Unix(0, 0),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := store.Save(ctx, "key", record); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	store2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}

	got, _ := store2.Get(ctx, "key")
	if got == nil || string(got.Body) != "resp" || got.ItemID != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestOpenPicksBackend(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, "", "")
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	closeFn()
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}

	s, closeFn, err = Open(ctx, "", filepath.Join(t.TempDir(), "idem.json"))
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	closeFn()
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected file store, got %T", s)
	}
}
