package taskstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tasks in process memory with lazy TTL expiry. Suitable
// for single-instance deployments and tests; use RedisStore when results must
// survive restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry struct {
	task      Task
	expiresAt time.Time
}

// NewMemoryStore builds a store whose records expire ttl after creation,
// whatever state they are in by then.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, taskID, filename, callbackURL string) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[taskID] = &memoryEntry{
		task: Task{
			TaskID:      taskID,
			Status:      StatusPending,
			Filename:    filename,
			CallbackURL: callbackURL,
			CreatedAt:   float64(now.UnixNano()) / float64(time.Second),
		},
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, taskID string, u Update) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[taskID]
	if !ok || now.After(entry.expiresAt) {
		delete(s.tasks, taskID)
		return ErrNotFound
	}

	if u.Status != "" {
		entry.task.Status = u.Status
	}
	if u.Progress != nil {
		entry.task.Progress = *u.Progress
	}
	if u.Results != nil {
		entry.task.Results = u.Results
	}
	if u.Error != nil {
		entry.task.Error = *u.Error
	}
	entry.task.CompletedAt = float64(now.UnixNano()) / float64(time.Second)
	return nil
}

// Get copies the task while still holding the read lock; Update mutates the
// same entry concurrently from the worker goroutine.
func (s *MemoryStore) Get(ctx context.Context, taskID string) (*Task, error) {
	now := s.now()
	s.mu.RLock()
	entry, ok := s.tasks[taskID]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	if now.After(entry.expiresAt) {
		s.mu.RUnlock()
		s.mu.Lock()
		delete(s.tasks, taskID)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	task := entry.task
	if entry.task.Results != nil {
		task.Results = append([]Result(nil), entry.task.Results...)
	}
	s.mu.RUnlock()
	return &task, nil
}

func (s *MemoryStore) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	return nil
}
