package prefs

import (
	"context"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

const prefsBucketName = "view_prefs"

// BoltStore keeps preferences in a bbolt file, for clients that browse a
// remote source and have no SQLite database of their own.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, os.FileMode(0o600), &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open prefs db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(prefsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init prefs db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load implements Store.
func (s *BoltStore) Load(_ context.Context, viewID string) (Prefs, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// bbolt values are only valid inside the transaction
		if v := tx.Bucket([]byte(prefsBucketName)).Get([]byte(viewID)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return Prefs{}, false, fmt.Errorf("load prefs: %w", err)
	}
	if data == nil {
		return Prefs{}, false, nil
	}
	p, err := decode(data)
	if err != nil {
		return Prefs{}, false, err
	}
	return p, true, nil
}

// Save implements Store.
func (s *BoltStore) Save(_ context.Context, viewID string, p Prefs) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(prefsBucketName)).Put([]byte(viewID), data)
	})
	if err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}
