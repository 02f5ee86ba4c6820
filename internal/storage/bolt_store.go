package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/internal/logger"
)

const (
	knownBucket     = "known"
	deliveredBucket = "delivered"
)

// boltStore implements Store on BoltDB: one bucket per record set, keyed by
// fingerprint with an order-preserving sequence prefix. Full-replace saves
// run as a single transaction, so the atomicity contract matches the JSON
// backend.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{knownBucket, deliveredBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) LoadKnown() ([]domain.JobRecord, error) {
	var records []domain.JobRecord
	err := b.loadBucket(knownBucket, func(value []byte) {
		var rec domain.JobRecord
		if decodeRecord(knownBucket, value, &rec) {
			records = append(records, rec)
		}
	})
	return records, err
}

func (b *boltStore) SaveKnown(records []domain.JobRecord) error {
	values := make([][]byte, 0, len(records))
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode known record: %w", err)
		}
		values = append(values, payload)
		keys = append(keys, rec.Fingerprint)
	}
	return b.replaceBucket(knownBucket, keys, values)
}

func (b *boltStore) LoadDelivered() ([]domain.DeliveryRecord, error) {
	var records []domain.DeliveryRecord
	err := b.loadBucket(deliveredBucket, func(value []byte) {
		var rec domain.DeliveryRecord
		if decodeRecord(deliveredBucket, value, &rec) {
			records = append(records, rec)
		}
	})
	return records, err
}

func (b *boltStore) SaveDelivered(records []domain.DeliveryRecord) error {
	values := make([][]byte, 0, len(records))
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode delivered record: %w", err)
		}
		values = append(values, payload)
		keys = append(keys, rec.Fingerprint)
	}
	return b.replaceBucket(deliveredBucket, keys, values)
}

func (b *boltStore) PruneKnown(olderThan time.Duration) (int, error) {
	records, err := b.LoadKnown()
	if err != nil {
		return 0, err
	}
	kept, dropped := pruneKnownSet(records, time.Now().Add(-olderThan))
	if dropped == 0 {
		return 0, nil
	}
	return dropped, b.SaveKnown(kept)
}

func (b *boltStore) PruneDelivered(olderThan time.Duration) (int, error) {
	records, err := b.LoadDelivered()
	if err != nil {
		return 0, err
	}
	kept, dropped := pruneDeliveredSet(records, time.Now().Add(-olderThan))
	if dropped == 0 {
		return 0, nil
	}
	return dropped, b.SaveDelivered(kept)
}

func (b *boltStore) loadBucket(name string, visit func(value []byte)) error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(name))
		if bucket == nil {
			return fmt.Errorf("%s bucket missing", name)
		}
		return bucket.ForEach(func(_, v []byte) error {
			visit(v)
			return nil
		})
	})
}

// replaceBucket drops and refills a bucket in one transaction. Keys carry an
// 8-byte sequence prefix so iteration returns records in save order.
func (b *boltStore) replaceBucket(name string, keys []string, values [][]byte) error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(name)); err != nil {
			return fmt.Errorf("reset %s bucket: %w", name, err)
		}
		bucket, err := tx.CreateBucket([]byte(name))
		if err != nil {
			return fmt.Errorf("recreate %s bucket: %w", name, err)
		}
		for i, value := range values {
			if err := bucket.Put(orderedKey(uint64(i), keys[i]), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func orderedKey(seq uint64, fingerprint string) []byte {
	key := make([]byte, 8+len(fingerprint))
	binary.BigEndian.PutUint64(key, seq)
	copy(key[8:], fingerprint)
	return key
}

func decodeRecord(bucket string, value []byte, out any) bool {
	if err := json.Unmarshal(value, out); err != nil {
		logger.WarnObj("stored record undecodable, skipping", "storage_decode_error", map[string]any{
			"bucket": bucket,
			"error":  err.Error(),
		})
		return false
	}
	return true
}
