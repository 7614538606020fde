package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pathakanu/remindme/internal/model"
)

// Memory keeps reminders in a map. Used in tests and for local runs.
type Memory struct {
	mu        sync.RWMutex
	reminders map[string]model.Reminder
}

func NewMemory() *Memory {
	return &Memory{reminders: make(map[string]model.Reminder)}
}

func (m *Memory) Add(_ context.Context, r model.Reminder) (string, error) {
	if err := validate(r); err != nil {
		return "", err
	}
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders[r.ID] = r
	return r.ID, nil
}

func (m *Memory) DueBefore(_ context.Context, asOf time.Time) ([]model.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []model.Reminder
	for _, r := range m.reminders {
		if !r.DueAt.After(asOf) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	return due, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reminders[id]; !ok {
		return ErrNotFound
	}
	delete(m.reminders, id)
	return nil
}

// Len returns the number of stored reminders.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reminders)
}

func (m *Memory) Close() error { return nil }
