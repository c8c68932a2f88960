package repository

import "sync"

// ScheduleImageRepository mirrors the single scheduleImage slot.
type ScheduleImageRepository struct {
	mu    sync.RWMutex
	value string
}

func NewScheduleImageRepository() *ScheduleImageRepository {
	return &ScheduleImageRepository{}
}

// Apply replaces the held value; an empty value means no image.
func (r *ScheduleImageRepository) Apply(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = value
}

// Current returns the held data URI and whether one is present.
func (r *ScheduleImageRepository) Current() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.value != ""
}
