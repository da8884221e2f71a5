package progress

import (
	"context"
	"fmt"
	"sync"
)

// Store is the persistence hook for student progress records. Implementations
// are keyed by student id; Load returns ErrStudentNotFound for unknown
// students.
type Store interface {
	Load(ctx context.Context, studentID string) (*StudentRecord, error)
	Save(ctx context.Context, rec *StudentRecord) error
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*StudentRecord
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*StudentRecord),
	}
}

func (s *MemoryStore) Load(_ context.Context, studentID string) (*StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[studentID]
	if !ok {
		return nil, fmt.Errorf("student %q: %w", studentID, ErrStudentNotFound)
	}
	return rec.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, rec *StudentRecord) error {
	if rec == nil || rec.StudentID == "" {
		return fmt.Errorf("student record with student_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.StudentID] = rec.clone()
	return nil
}
