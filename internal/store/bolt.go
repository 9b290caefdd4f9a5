package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketDevice = []byte("device")

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDevice)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func snapshotKey(nodeID uint8) []byte {
	return []byte{nodeID}
}

func (s *BoltStore) SaveSnapshot(snap *Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevice)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevice)
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		return b.Put(snapshotKey(snap.NodeID), data)
	})
}

func (s *BoltStore) GetSnapshot(nodeID uint8) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevice)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevice)
		}
		data := b.Get(snapshotKey(nodeID))
		if data == nil {
			return fmt.Errorf("node %d: %w", nodeID, ErrNotFound)
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *BoltStore) DeleteSnapshot(nodeID uint8) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevice)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevice)
		}
		return b.Delete(snapshotKey(nodeID))
	})
}

func (s *BoltStore) UpdateSnapshot(nodeID uint8, fn func(snap *Snapshot) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevice)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketDevice)
		}
		data := b.Get(snapshotKey(nodeID))
		if data == nil {
			return fmt.Errorf("node %d: %w", nodeID, ErrNotFound)
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return err
		}
		if err := fn(&snap); err != nil {
			return err
		}
		out, err := json.Marshal(&snap)
		if err != nil {
			return err
		}
		return b.Put(snapshotKey(nodeID), out)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
