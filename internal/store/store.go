// Package store adapts path-addressed key-value backends to the contract the
// homework board relies on: a mapping of assignments/{id} records, an
// independently writable assignments/{id}/completed field and a single
// scheduleImage slot, each observable through change subscriptions.
package store

import (
	"context"
	"errors"

	"github.com/lyycrypto/jebalrepository/internal/models"
)

const (
	// PathAssignments is the mapping of assignment id to record.
	PathAssignments = "assignments"
	// PathScheduleImage holds the timetable image as a data URI.
	PathScheduleImage = "scheduleImage"
)

// ErrNotFound indicates a partial write addressed a record that does not exist.
var ErrNotFound = errors.New("store: path not found")

// AssignmentsListener receives the full assignments mapping, empty when nothing is stored.
type AssignmentsListener func(map[string]models.AssignmentRecord)

// ImageListener receives the current schedule image, empty when absent.
type ImageListener func(string)

// Store is the external real-time store the projections mirror.
type Store interface {
	// SubscribeAssignments fires once with the current mapping and again after every change.
	SubscribeAssignments(ctx context.Context, fn AssignmentsListener) (func(), error)
	// SubscribeScheduleImage fires once with the current image and again after every change.
	SubscribeScheduleImage(ctx context.Context, fn ImageListener) (func(), error)
	// PutAssignment writes the full value of assignments/{id}.
	PutAssignment(ctx context.Context, id string, record models.AssignmentRecord) error
	// SetCompleted writes assignments/{id}/completed only.
	SetCompleted(ctx context.Context, id string, completed bool) error
	// DeleteAssignment removes assignments/{id}.
	DeleteAssignment(ctx context.Context, id string) error
	SetScheduleImage(ctx context.Context, dataURI string) error
	RemoveScheduleImage(ctx context.Context) error
	Close() error
}

// AssignmentPath returns the store path of one record.
func AssignmentPath(id string) string {
	return PathAssignments + "/" + id
}
