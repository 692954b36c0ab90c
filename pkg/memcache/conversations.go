// pkg/memcache/conversations.go
package mem

import (
	"sync"
	"time"
)

type Step int

const (
	StepNone Step = iota
	StepFoodName
	StepCalories
)

// Conversation is the state of a multi-step command for one user.
type Conversation struct {
	Step     Step
	FoodName string
}

type ConversationStore interface {
	Set(userID int64, conv Conversation, ttl time.Duration)

	// Get returns the conversation if it exists and has not expired.
	Get(userID int64) (Conversation, bool)

	Clear(userID int64)

	// Sweep drops expired entries and reports how many were removed.
	Sweep() int
}

type entry struct {
	conv      Conversation
	expiresAt time.Time
}

type Conversations struct {
	mu   sync.RWMutex
	data map[int64]entry
	now  func() time.Time
}

func NewConversations() *Conversations {
	return &Conversations{
		data: make(map[int64]entry),
		now:  time.Now,
	}
}

func (s *Conversations) Set(userID int64, conv Conversation, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = entry{
		conv:      conv,
		expiresAt: s.now().Add(ttl),
	}
}

func (s *Conversations) Get(userID int64) (Conversation, bool) {
	s.mu.RLock()
	e, ok := s.data[userID]
	s.mu.RUnlock()
	if !ok {
		return Conversation{}, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.data[userID]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.data, userID)
		}
		s.mu.Unlock()
		return Conversation{}, false
	}
	return e.conv, true
}

func (s *Conversations) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
}

func (s *Conversations) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}
