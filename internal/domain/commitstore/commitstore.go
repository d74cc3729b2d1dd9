// Package commitstore keeps a solver's committed answers until they are revealed.
package commitstore

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 1024

// Store records one answer per task id. An answer is write-once: the commit
// digest has already been sent, so a later answer for the same task must not
// replace it.
type Store interface {
	// Put records answer for taskID. Returns false if taskID already has an answer.
	Put(ctx context.Context, taskID, answer string) bool

	// Get returns the committed answer without removing it.
	Get(ctx context.Context, taskID string) (string, bool)

	// Take returns and removes the committed answer.
	Take(ctx context.Context, taskID string) (string, bool)

	Size() int
}

type entry struct {
	taskID string
	answer string
}

// inMemoryStore is bounded; when full the oldest commitment is evicted.
type inMemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int
}

// NewInMemoryStore creates a bounded commit store with configuration options.
func NewInMemoryStore(opts ...Option) Store {
	s := &inMemoryStore{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[string]*list.Element, s.maxSize)
	s.order = list.New()
	return s
}

func (s *inMemoryStore) Put(_ context.Context, taskID, answer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[taskID]; exists {
		return false
	}
	if s.order.Len() >= s.maxSize {
		if oldest := s.order.Front(); oldest != nil {
			delete(s.byID, oldest.Value.(entry).taskID)
			s.order.Remove(oldest)
		}
	}
	s.byID[taskID] = s.order.PushBack(entry{taskID: taskID, answer: answer})
	return true
}

func (s *inMemoryStore) Get(_ context.Context, taskID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byID[taskID]
	if !ok {
		return "", false
	}
	return el.Value.(entry).answer, true
}

func (s *inMemoryStore) Take(_ context.Context, taskID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byID[taskID]
	if !ok {
		return "", false
	}
	delete(s.byID, taskID)
	s.order.Remove(el)
	return el.Value.(entry).answer, true
}

func (s *inMemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
