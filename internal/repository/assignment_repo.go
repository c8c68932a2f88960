package repository

import (
	"sort"
	"sync"

	"github.com/lyycrypto/jebalrepository/internal/models"
)

// AssignmentRepository is the in-memory mirror of the assignments mapping. It is
// only ever replaced wholesale by store snapshots and never talks to the store.
type AssignmentRepository struct {
	mu      sync.RWMutex
	records []models.Assignment
	index   map[string]int
	loaded  bool
	version uint64
}

// NewAssignmentRepository returns an empty, not yet loaded projection.
func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{index: map[string]int{}}
}

// ApplySnapshot replaces the held set with raw. Records are ordered by id, the
// order a key-addressed store reports its children in.
func (r *AssignmentRepository) ApplySnapshot(raw map[string]models.AssignmentRecord) {
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]models.Assignment, 0, len(ids))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		records = append(records, models.Assignment{ID: id, AssignmentRecord: raw[id]})
		index[id] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = records
	r.index = index
	r.loaded = true
	r.version++
}

// All returns a copy of the current set.
func (r *AssignmentRepository) All() []models.Assignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Assignment, len(r.records))
	copy(out, r.records)
	return out
}

// Get looks a single record up by id.
func (r *AssignmentRepository) Get(id string) (models.Assignment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return models.Assignment{}, false
	}
	return r.records[i], true
}

// Loaded reports whether a first snapshot has arrived.
func (r *AssignmentRepository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Version counts applied snapshots.
func (r *AssignmentRepository) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
