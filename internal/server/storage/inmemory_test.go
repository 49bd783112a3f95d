package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/keygate/internal/common"
)

func TestInMemoryStore_CreateGet(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	item := &Item{ID: "u1", SortKey: "user", Doc: json.RawMessage(`{"username":"alice"}`)}
	if err := s.Create(ctx, item); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.Get(ctx, "u1", "user")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
	if string(got.Doc) != `{"username":"alice"}` {
		t.Fatalf("unexpected doc: %s", got.Doc)
	}
}

func TestInMemoryStore_CreateDuplicate(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	item := &Item{ID: "u1", SortKey: "user", Doc: json.RawMessage(`{}`)}
	if err := s.Create(ctx, item); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Create(ctx, item); !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestInMemoryStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()

	if _, err := s.Get(context.Background(), "nope", "user"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_UpdateBumpsVersion(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, &Item{ID: "u1", SortKey: "user", Doc: json.RawMessage(`{"n":1}`)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	err := s.Update(ctx, "u1", "user", func(item *Item) error {
		item.Doc = json.RawMessage(`{"n":2}`)
		return nil
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, err := s.Get(ctx, "u1", "user")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
	if string(got.Doc) != `{"n":2}` {
		t.Fatalf("unexpected doc: %s", got.Doc)
	}
}

func TestInMemoryStore_UpdateMissing(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()

	err := s.Update(context.Background(), "nope", "user", func(item *Item) error { return nil })
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_UpdateCallbackError(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, &Item{ID: "u1", SortKey: "user", Doc: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	boom := errors.New("boom")
	if err := s.Update(ctx, "u1", "user", func(item *Item) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	// failed update must not change the record
	got, _ := s.Get(ctx, "u1", "user")
	if got.Version != 1 {
		t.Fatalf("version changed after failed update: %d", got.Version)
	}
}

func TestInMemoryStore_DeleteIdempotent(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, &Item{ID: "u1", SortKey: "user", Doc: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Delete(ctx, "u1", "user"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := s.Delete(ctx, "u1", "user"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
	if _, err := s.Get(ctx, "u1", "user"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInMemoryStore_ListByPrefixDescending(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	for _, sk := range []string{"entry#2021", "entry#2023", "entry#2022", "user"} {
		if err := s.Create(ctx, &Item{ID: "u1", SortKey: sk, Doc: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if err := s.Create(ctx, &Item{ID: "u2", SortKey: "entry#2024", Doc: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	items, err := s.List(ctx, "u1", "entry#")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	want := []string{"entry#2023", "entry#2022", "entry#2021"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, sk := range want {
		if items[i].SortKey != sk {
			t.Fatalf("position %d: got %q want %q", i, items[i].SortKey, sk)
		}
	}
}
