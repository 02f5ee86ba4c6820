package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

// Package storage owns the persisted record sets. Components never share
// mutable state with a Store: loads return copies and saves replace the whole
// set, so a failed delivery pass can never leave a half-mutated history.

// Store persists the known-set and the delivered-set.
//
// Load methods degrade to an empty set on unreadable or corrupt state (a
// first run and a corrupted history are indistinguishable on purpose). Save
// methods are full-replace: either the new set is durably visible or the old
// one still is.
type Store interface {
	Close() error

	LoadKnown() ([]domain.JobRecord, error)
	SaveKnown(records []domain.JobRecord) error

	LoadDelivered() ([]domain.DeliveryRecord, error)
	SaveDelivered(records []domain.DeliveryRecord) error

	// PruneKnown removes known records scraped before now-olderThan and
	// reports how many were dropped. Records whose ScrapedAt does not parse
	// are kept.
	PruneKnown(olderThan time.Duration) (int, error)

	// PruneDelivered removes delivered records published before
	// now-olderThan. Unparsable DeliveredAt values are kept.
	PruneDelivered(olderThan time.Duration) (int, error)
}

// Paths locates the concrete store backend files.
type Paths struct {
	KnownFile     string
	DeliveredFile string
	BoltFile      string
}

// NewStore creates the configured storage backend.
func NewStore(typ string, paths Paths) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "json":
		if strings.TrimSpace(paths.KnownFile) == "" || strings.TrimSpace(paths.DeliveredFile) == "" {
			return nil, fmt.Errorf("json storage requires known and delivered file paths")
		}
		return newJSONStore(paths.KnownFile, paths.DeliveredFile), nil
	case "bbolt":
		if strings.TrimSpace(paths.BoltFile) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(paths.BoltFile)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// pruneKnownSet filters records older than the cutoff, keeping anything whose
// timestamp does not parse. Shared by backends.
func pruneKnownSet(records []domain.JobRecord, cutoff time.Time) (kept []domain.JobRecord, dropped int) {
	kept = make([]domain.JobRecord, 0, len(records))
	for _, rec := range records {
		scraped, ok := rec.ScrapedTime()
		if ok && scraped.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, dropped
}

func pruneDeliveredSet(records []domain.DeliveryRecord, cutoff time.Time) (kept []domain.DeliveryRecord, dropped int) {
	kept = make([]domain.DeliveryRecord, 0, len(records))
	for _, rec := range records {
		delivered, ok := rec.DeliveredTime()
		if ok && delivered.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, dropped
}

type noopStore struct{}

func (noopStore) Close() error                                    { return nil }
func (noopStore) LoadKnown() ([]domain.JobRecord, error)          { return nil, nil }
func (noopStore) SaveKnown([]domain.JobRecord) error              { return nil }
func (noopStore) LoadDelivered() ([]domain.DeliveryRecord, error) { return nil, nil }
func (noopStore) SaveDelivered([]domain.DeliveryRecord) error     { return nil }
func (noopStore) PruneKnown(time.Duration) (int, error)           { return 0, nil }
func (noopStore) PruneDelivered(time.Duration) (int, error)       { return 0, nil }
