package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("")
	if rec.ID == "" {
		t.Error("empty ID not replaced with a UUID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("creation time not stamped")
	}

	rec = NewRecord("0b38171e-8d0c-4b2f-8a3e-111111111111")
	if rec.ID != "0b38171e-8d0c-4b2f-8a3e-111111111111" {
		t.Errorf("explicit ID replaced: %s", rec.ID)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close(ctx)

	theta := 0.25
	rec := NewRecord("")
	rec.Individuals = 42
	rec.Generations = 7
	rec.Founders = 1
	rec.Pedigrees = 1
	rec.PopulationHash = "abc"
	rec.ThetaEstimate = &theta
	rec.Options = json.RawMessage(`{"population_size":10}`)

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Individuals != 42 || got.PopulationHash != "abc" {
		t.Errorf("record fields lost: %+v", got)
	}
	if got.ThetaEstimate == nil || *got.ThetaEstimate != theta {
		t.Error("theta estimate lost")
	}

	if err := store.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
	// Deleting a missing record is fine.
	if err := store.Delete(ctx, rec.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestFileStoreListOrder(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	older := NewRecord("")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := NewRecord("")

	if err := store.Save(ctx, older); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if err := store.Save(ctx, newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	recs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("listed %d records, want 2", len(recs))
	}
	if recs[0].ID != newer.ID {
		t.Error("list not ordered newest first")
	}
}

func TestStoreRejectsInvalidIDs(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, id := range []string{"", "not-a-uuid", "../escape"} {
		if err := store.Save(ctx, Record{ID: id}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Save(%q): err = %v, want ErrInvalidID", id, err)
		}
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Get(%q): err = %v, want ErrInvalidID", id, err)
		}
	}
}
