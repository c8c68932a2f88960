package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"github.com/lyycrypto/jebalrepository/internal/models"
)

var (
	assignmentsBucket = []byte("assignments")
	metaBucket        = []byte("meta")
	scheduleImageKey  = []byte(PathScheduleImage)
)

// BoltStore is the single-node adapter over an embedded bbolt file. Changes are
// announced to in-process subscribers only.
type BoltStore struct {
	db     *bbolt.DB
	feed   *feed
	logger zerolog.Logger
}

// NewBoltStore creates the buckets it needs on an already opened database.
func NewBoltStore(db *bbolt.DB, logger zerolog.Logger) (*BoltStore, error) {
	if db == nil {
		return nil, errors.New("bolt database must not be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{assignmentsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bolt buckets: %w", err)
	}

	storeLogger := logger.With().Str("component", "bolt_store").Logger()
	return &BoltStore{
		db:     db,
		feed:   newFeed(storeLogger),
		logger: storeLogger,
	}, nil
}

func (s *BoltStore) SubscribeAssignments(ctx context.Context, fn AssignmentsListener) (func(), error) {
	if fn == nil {
		return nil, errors.New("listener must not be nil")
	}

	return s.feed.watch(ctx, PathAssignments, func(context.Context) error {
		records, err := s.loadAssignments()
		if err != nil {
			return err
		}
		fn(records)
		return nil
	}), nil
}

func (s *BoltStore) SubscribeScheduleImage(ctx context.Context, fn ImageListener) (func(), error) {
	if fn == nil {
		return nil, errors.New("listener must not be nil")
	}

	return s.feed.watch(ctx, PathScheduleImage, func(context.Context) error {
		var value string
		err := s.db.View(func(tx *bbolt.Tx) error {
			value = string(tx.Bucket(metaBucket).Get(scheduleImageKey))
			return nil
		})
		if err != nil {
			return err
		}
		fn(value)
		return nil
	}), nil
}

func (s *BoltStore) PutAssignment(_ context.Context, id string, record models.AssignmentRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(assignmentsBucket).Put([]byte(id), payload)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", AssignmentPath(id), err)
	}

	s.feed.notify(PathAssignments)
	return nil
}

func (s *BoltStore) SetCompleted(_ context.Context, id string, completed bool) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(assignmentsBucket)
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}

		var record models.AssignmentRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		record.Completed = completed

		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), payload)
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to write %s/completed: %w", AssignmentPath(id), err)
	}

	s.feed.notify(PathAssignments)
	return nil
}

func (s *BoltStore) DeleteAssignment(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(assignmentsBucket).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", AssignmentPath(id), err)
	}

	s.feed.notify(PathAssignments)
	return nil
}

func (s *BoltStore) SetScheduleImage(_ context.Context, dataURI string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put(scheduleImageKey, []byte(dataURI))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", PathScheduleImage, err)
	}

	s.feed.notify(PathScheduleImage)
	return nil
}

func (s *BoltStore) RemoveScheduleImage(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Delete(scheduleImageKey)
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", PathScheduleImage, err)
	}

	s.feed.notify(PathScheduleImage)
	return nil
}

// Close stops subscriptions and closes the database file.
func (s *BoltStore) Close() error {
	s.feed.closeAll()
	return s.db.Close()
}

func (s *BoltStore) loadAssignments() (map[string]models.AssignmentRecord, error) {
	records := make(map[string]models.AssignmentRecord)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(assignmentsBucket).ForEach(func(k, v []byte) error {
			var record models.AssignmentRecord
			if err := json.Unmarshal(v, &record); err != nil {
				s.logger.Warn().Err(err).Str("id", string(k)).Msg("skipping undecodable assignment")
				return nil
			}
			records[string(k)] = record
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	return records, nil
}
