package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lyycrypto/jebalrepository/internal/models"
)

type assignmentRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	Subject     string `gorm:"size:64"`
	DueDate     string `gorm:"size:10;index"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Completed   bool   `gorm:"not null;default:false"`
}

func (assignmentRow) TableName() string {
	return "assignments"
}

type valueRow struct {
	Slot  string `gorm:"primaryKey;size:64"`
	Value string `gorm:"type:text"`
}

func (valueRow) TableName() string {
	return "store_values"
}

// SQLStore maps the store paths onto two tables through GORM. Like BoltStore it
// only notifies subscribers inside the same process.
type SQLStore struct {
	db     *gorm.DB
	feed   *feed
	logger zerolog.Logger
}

// NewSQLStore migrates the tables it owns.
func NewSQLStore(db *gorm.DB, logger zerolog.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("database must not be nil")
	}

	if err := db.AutoMigrate(&assignmentRow{}, &valueRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store tables: %w", err)
	}

	storeLogger := logger.With().Str("component", "sql_store").Logger()
	return &SQLStore{
		db:     db,
		feed:   newFeed(storeLogger),
		logger: storeLogger,
	}, nil
}

func (s *SQLStore) SubscribeAssignments(ctx context.Context, fn AssignmentsListener) (func(), error) {
	if fn == nil {
		return nil, errors.New("listener must not be nil")
	}

	return s.feed.watch(ctx, PathAssignments, func(ctx context.Context) error {
		var rows []assignmentRow
		if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to load assignments: %w", err)
		}

		records := make(map[string]models.AssignmentRecord, len(rows))
		for _, row := range rows {
			records[row.ID] = models.AssignmentRecord{
				Subject:     row.Subject,
				DueDate:     row.DueDate,
				Name:        row.Name,
				Description: row.Description,
				Completed:   row.Completed,
			}
		}
		fn(records)
		return nil
	}), nil
}

func (s *SQLStore) SubscribeScheduleImage(ctx context.Context, fn ImageListener) (func(), error) {
	if fn == nil {
		return nil, errors.New("listener must not be nil")
	}

	return s.feed.watch(ctx, PathScheduleImage, func(ctx context.Context) error {
		var rows []valueRow
		if err := s.db.WithContext(ctx).Where("slot = ?", PathScheduleImage).Limit(1).Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to load schedule image: %w", err)
		}

		value := ""
		if len(rows) > 0 {
			value = rows[0].Value
		}
		fn(value)
		return nil
	}), nil
}

func (s *SQLStore) PutAssignment(ctx context.Context, id string, record models.AssignmentRecord) error {
	row := assignmentRow{
		ID:          id,
		Subject:     record.Subject,
		DueDate:     record.DueDate,
		Name:        record.Name,
		Description: record.Description,
		Completed:   record.Completed,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", AssignmentPath(id), err)
	}

	s.feed.notify(PathAssignments)
	return nil
}

func (s *SQLStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	result := s.db.WithContext(ctx).Model(&assignmentRow{}).Where("id = ?", id).Update("completed", completed)
	if result.Error != nil {
		return fmt.Errorf("failed to write %s/completed: %w", AssignmentPath(id), result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.feed.notify(PathAssignments)
	return nil
}

func (s *SQLStore) DeleteAssignment(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&assignmentRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", AssignmentPath(id), err)
	}

	s.feed.notify(PathAssignments)
	return nil
}

func (s *SQLStore) SetScheduleImage(ctx context.Context, dataURI string) error {
	row := valueRow{Slot: PathScheduleImage, Value: dataURI}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", PathScheduleImage, err)
	}

	s.feed.notify(PathScheduleImage)
	return nil
}

func (s *SQLStore) RemoveScheduleImage(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Delete(&valueRow{}, "slot = ?", PathScheduleImage).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", PathScheduleImage, err)
	}

	s.feed.notify(PathScheduleImage)
	return nil
}

// Close stops subscriptions and releases the underlying connection pool.
func (s *SQLStore) Close() error {
	s.feed.closeAll()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
