// Package store persists client-side settings (notification history, fired reminder markers,
// auto-reminder hours, push token) in a local bbolt file.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Setting keys shared by the client components.
const (
	KeyNotificationHistory = "notificationHistory"
	KeyFiredReminders      = "firedReminderIds"
	KeyAutoReminderTimes   = "autoReminderTimes"
	KeyUserID              = "userId"
	KeyPushToken           = "pushToken"
	KeyServerURL           = "serverUrl"
)

var bucketSettings = []byte("settings")

// BoltStore is a JSON-valued key/value store on bbolt.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) settings.db inside dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "settings.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSettings); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketSettings, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get decodes the value under key into dst. It reports false, leaving dst untouched, when the key is unset.
func (s *BoltStore) Get(key string, dst any) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSettings).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, dst)
	})
	if err != nil {
		return false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return found, nil
}

// Set stores v under key as JSON.
func (s *BoltStore) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put([]byte(key), data)
	})
}

// Delete removes key; unset keys are ignored.
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Delete([]byte(key))
	})
}

// GetString is a convenience for plain string settings.
func (s *BoltStore) GetString(key, fallback string) string {
	var v string
	if ok, err := s.Get(key, &v); err != nil || !ok {
		return fallback
	}
	return v
}
