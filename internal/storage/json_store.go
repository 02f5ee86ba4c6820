package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/internal/logger"
)

// jsonStore keeps each record set in a human-diffable JSON array file.
// Writes go to a temp file in the same directory followed by an atomic
// rename, so a crash mid-save leaves the previous file intact.
type jsonStore struct {
	mu            sync.Mutex
	knownFile     string
	deliveredFile string
}

func newJSONStore(knownFile, deliveredFile string) *jsonStore {
	return &jsonStore{knownFile: knownFile, deliveredFile: deliveredFile}
}

func (s *jsonStore) Close() error { return nil }

func (s *jsonStore) LoadKnown() ([]domain.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []domain.JobRecord
	loadRecordFile(s.knownFile, &records)
	return records, nil
}

func (s *jsonStore) SaveKnown(records []domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if records == nil {
		records = []domain.JobRecord{}
	}
	return saveRecordFile(s.knownFile, records)
}

func (s *jsonStore) LoadDelivered() ([]domain.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []domain.DeliveryRecord
	loadRecordFile(s.deliveredFile, &records)
	return records, nil
}

func (s *jsonStore) SaveDelivered(records []domain.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if records == nil {
		records = []domain.DeliveryRecord{}
	}
	return saveRecordFile(s.deliveredFile, records)
}

func (s *jsonStore) PruneKnown(olderThan time.Duration) (int, error) {
	records, err := s.LoadKnown()
	if err != nil {
		return 0, err
	}

	kept, dropped := pruneKnownSet(records, time.Now().Add(-olderThan))
	if dropped == 0 {
		return 0, nil
	}
	if err := s.SaveKnown(kept); err != nil {
		return 0, fmt.Errorf("save pruned known set: %w", err)
	}
	return dropped, nil
}

func (s *jsonStore) PruneDelivered(olderThan time.Duration) (int, error) {
	records, err := s.LoadDelivered()
	if err != nil {
		return 0, err
	}

	kept, dropped := pruneDeliveredSet(records, time.Now().Add(-olderThan))
	if dropped == 0 {
		return 0, nil
	}
	if err := s.SaveDelivered(kept); err != nil {
		return 0, fmt.Errorf("save pruned delivered set: %w", err)
	}
	return dropped, nil
}

// loadRecordFile reads a JSON array into out. Missing and corrupt files both
// leave out empty; corruption is logged but never fatal.
func loadRecordFile(path string, out any) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.WarnObj("record file unreadable, starting empty", "storage_read_error", map[string]any{
				"path":  path,
				"error": err.Error(),
			})
		}
		return
	}

	if err := json.Unmarshal(raw, out); err != nil {
		logger.WarnObj("record file corrupt, starting empty", "storage_decode_error", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// saveRecordFile replaces path with the JSON encoding of records using
// write-to-temp + rename.
func saveRecordFile(path string, records any) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace record file: %w", err)
	}
	return nil
}
