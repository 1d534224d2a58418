// Package board implements the open, unauthenticated message board.
package board

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/zhouzirui/z-relay/internal/model/board"
)

var ErrMissingFields = errors.New("missing user or text")

// Option customises a Service.
type Option func(*Service)

// WithCapacity caps the number of retained messages. Zero keeps every message.
func WithCapacity(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service stores board messages in insertion order.
type Service struct {
	mu       sync.RWMutex
	messages []board.Message
	capacity int
	now      func() time.Time
}

// NewService returns an empty board. Without WithCapacity it never evicts.
func NewService(opts ...Option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Post appends a message from user.
func (s *Service) Post(_ context.Context, user, text string) (board.Message, error) {
	if user == "" || text == "" {
		return board.Message{}, ErrMissingFields
	}

	message := board.Message{
		User: user,
		Text: text,
		Time: board.FormatTime(s.now()),
	}

	s.mu.Lock()
	s.messages = append(s.messages, message)
	if s.capacity > 0 {
		if over := len(s.messages) - s.capacity; over > 0 {
			s.messages = slices.Delete(s.messages, 0, over)
		}
	}
	s.mu.Unlock()

	return message, nil
}

// List returns a copy of every stored message, oldest first.
func (s *Service) List(_ context.Context) []board.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]board.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}
