package kv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/chubaodb-go/pkg/metrics"
	bolt "go.etcd.io/bbolt"
)

var bucketData = []byte("data")

// BoltStore implements Store on top of a single bbolt bucket, keyed by the
// full prefixed byte string (see doc.go), using bbolt's db.Update/db.View/
// ForEach idiom directly against one bucket so that a prefix scan over
// "D|" sees every document in iid order.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating dataDir and the file if absent) the bbolt file at
// dataDir/partition.db.
func Open(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create kv dir: %w", err)
	}
	dbPath := filepath.Join(dataDir, "partition.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketData)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create data bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketData).Get(key)
		if v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (s *BoltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).Put(key, value)
	})
}

func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).Delete(key)
	})
}

func (s *BoltStore) Batch(ops []Op) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.KVBatchDuration)

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketData)
		for _, op := range ops {
			switch op.Kind {
			case OpPut:
				if err := b.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := b.Delete(op.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *BoltStore) PrefixIterate(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketData).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			cont, err := fn(append([]byte{}, k...), append([]byte{}, v...))
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

func (s *BoltStore) Snapshot() (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).ForEach(func(k, v []byte) error {
			out[string(k)] = append([]byte{}, v...)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Load(data map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketData); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketData)
		if err != nil {
			return err
		}
		for k, v := range data {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
