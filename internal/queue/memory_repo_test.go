package queue

import (
	"context"
	"sync"
	"time"
)

// memoryRepo mirrors PgRepository: numbers come from a counter that only
// grows, and List returns entries in priority order.
type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	lastNum int64
	entries map[int64]Entry
	doctors map[int64]bool
	listErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: map[int64]Entry{}, doctors: map[int64]bool{1: true, 2: true}}
}

func (m *memoryRepo) Create(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	for _, other := range m.entries {
		if other.QueueNumber > m.lastNum {
			m.lastNum = other.QueueNumber
		}
	}
	m.lastNum++
	e.ID = m.nextID
	e.QueueNumber = m.lastNum
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.entries[e.ID] = *e
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}

func (m *memoryRepo) Save(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return ErrEntryNotFound
	}
	e.UpdatedAt = time.Now()
	m.entries[e.ID] = *e
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *memoryRepo) List(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []Entry{}
	for _, e := range m.entries {
		if (f.Status == "" || e.Status == f.Status) && (f.Priority == "" || e.Priority == f.Priority) {
			out = append(out, e)
		}
	}
	SortByPriority(out)
	return out, nil
}

func (m *memoryRepo) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[Status]int{}
	for _, e := range m.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (m *memoryRepo) DoctorExists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doctors[id], nil
}
