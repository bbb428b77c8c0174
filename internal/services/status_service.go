package services

import (
	"sync"

	"github.com/google/uuid"
)

// StatusService counts actions a user has queued while offline. The counter
// never drops below zero.
type StatusService interface {
	Increment(userID uuid.UUID) int
	Decrement(userID uuid.UUID) int
	Pending(userID uuid.UUID) int
}

type statusService struct {
	mu      sync.Mutex
	pending map[uuid.UUID]int
}

func NewStatusService() StatusService {
	return &statusService{pending: make(map[uuid.UUID]int)}
}

func (s *statusService) Increment(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID]++
	return s.pending[userID]
}

func (s *statusService) Decrement(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[userID] > 0 {
		s.pending[userID]--
	}
	if s.pending[userID] == 0 {
		delete(s.pending, userID)
		return 0
	}
	return s.pending[userID]
}

func (s *statusService) Pending(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[userID]
}
