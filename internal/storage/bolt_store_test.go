package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

func TestBoltStoreRoundTripAndReplace(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	first := []domain.JobRecord{
		testRecord("Clerk", time.Now()),
		testRecord("Engineer", time.Now()),
	}
	if err := store.SaveKnown(first); err != nil {
		t.Fatalf("SaveKnown: %v", err)
	}

	loaded, err := store.LoadKnown()
	if err != nil {
		t.Fatalf("LoadKnown: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Title != "Clerk" || loaded[1].Title != "Engineer" {
		t.Fatalf("round trip lost order or records: %+v", loaded)
	}

	// Full-replace semantics: old entries must not leak through.
	if err := store.SaveKnown([]domain.JobRecord{testRecord("Stenographer", time.Now())}); err != nil {
		t.Fatalf("SaveKnown replace: %v", err)
	}
	loaded, _ = store.LoadKnown()
	if len(loaded) != 1 || loaded[0].Title != "Stenographer" {
		t.Fatalf("replace semantics broken: %+v", loaded)
	}
}

func TestBoltStorePruneKeepsUnparsable(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer storeRaw.Close()

	old := testRecord("Old", time.Now().Add(-10*24*time.Hour))
	broken := testRecord("Broken", time.Now())
	broken.ScrapedAt = "???"
	if err := storeRaw.SaveKnown([]domain.JobRecord{old, broken}); err != nil {
		t.Fatalf("SaveKnown: %v", err)
	}

	dropped, err := storeRaw.PruneKnown(7 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneKnown: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	remaining, _ := storeRaw.LoadKnown()
	if len(remaining) != 1 || remaining[0].Title != "Broken" {
		t.Fatalf("unparsable record should survive, got %+v", remaining)
	}
}

func TestBoltStoreDeliveredSet(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer storeRaw.Close()

	rec := domain.DeliveryRecord{
		JobRecord:   testRecord("Clerk", time.Now()),
		DeliveredAt: domain.FormatTimestamp(time.Now()),
	}
	if err := storeRaw.SaveDelivered([]domain.DeliveryRecord{rec}); err != nil {
		t.Fatalf("SaveDelivered: %v", err)
	}
	loaded, err := storeRaw.LoadDelivered()
	if err != nil {
		t.Fatalf("LoadDelivered: %v", err)
	}
	if len(loaded) != 1 || loaded[0].DeliveredAt == "" {
		t.Fatalf("delivered record lost: %+v", loaded)
	}
}
