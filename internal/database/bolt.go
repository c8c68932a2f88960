package database

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// OpenBolt opens the embedded bbolt file at path, waiting at most a second
// for another process to release its lock.
func OpenBolt(path string) (*bbolt.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path must not be empty")
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	return db, nil
}
