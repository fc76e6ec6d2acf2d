package store

import (
	"context"
	"encoding/binary"
	"fmt"

	bbolt "go.etcd.io/bbolt"
)

// BoltStore keeps each collection in its own bbolt bucket. Values are an
// 8-byte big-endian version followed by the JSON document.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates a bbolt database file and ensures the given
// collection buckets exist.
func OpenBolt(path string, collections ...string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func encodeValue(version int64, data []byte) []byte {
	buf := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(buf, uint64(version))
	copy(buf[8:], data)
	return buf
}

func decodeValue(key, raw []byte) (Record, error) {
	if len(raw) < 8 {
		return Record{}, fmt.Errorf("store: corrupt value for %q", key)
	}
	data := make([]byte, len(raw)-8)
	copy(data, raw[8:])
	return Record{
		Key:     string(key),
		Data:    data,
		Version: int64(binary.BigEndian.Uint64(raw[:8])),
	}, nil
}

// Load retrieves a record by collection and key.
func (s *BoltStore) Load(_ context.Context, collection, key string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return ErrNotFound
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		r, err := decodeValue([]byte(key), raw)
		if err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// LoadAll retrieves every record in a collection in key order.
func (s *BoltStore) LoadAll(_ context.Context, collection string) ([]Record, error) {
	var recs []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			r, err := decodeValue(k, v)
			if err != nil {
				return err
			}
			recs = append(recs, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Save writes a record inside a single update transaction with a version check.
func (s *BoltStore) Save(_ context.Context, collection string, rec Record) (int64, error) {
	var version int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}

		var current int64
		if raw := b.Get([]byte(rec.Key)); raw != nil {
			r, err := decodeValue([]byte(rec.Key), raw)
			if err != nil {
				return err
			}
			current = r.Version
		}
		if current != rec.Version {
			return ErrVersionConflict
		}

		version = current + 1
		return b.Put([]byte(rec.Key), encodeValue(version, rec.Data))
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
