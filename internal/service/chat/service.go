package chat

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/zhouzirui/z-relay/internal/model/chat"
)

const (
	// DefaultCapacity bounds the number of retained messages.
	DefaultCapacity = 500
	// DefaultMaxLength bounds a message's content, in UTF-16 code units.
	DefaultMaxLength = 200
	// subscriberBuffer is the per-subscriber queue depth.
	subscriberBuffer = 32
)

var ErrInvalidContent = errors.New("invalid message content")

// Option customises a Service.
type Option func(*Service)

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithMaxLength overrides DefaultMaxLength. Non-positive values are ignored.
func WithMaxLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLength = n
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

// Service is the size-capped, append-only chat log.
type Service struct {
	mu        sync.RWMutex
	messages  []chat.Message
	capacity  int
	maxLength int
	now       func() time.Time

	subMu       sync.Mutex
	subscribers map[int]chan chat.Message
	nextSubID   int
}

// NewService returns an empty log.
func NewService(opts ...Option) *Service {
	s := &Service{
		capacity:    DefaultCapacity,
		maxLength:   DefaultMaxLength,
		now:         time.Now,
		subscribers: make(map[int]chan chat.Message),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = make([]chat.Message, 0, s.capacity)
	return s
}

// Append stores a message from author at the tail of the log, dropping the
// oldest entries once the capacity is exceeded.
func (s *Service) Append(_ context.Context, author, content string) (chat.Message, error) {
	if content == "" || contentLength(content) > s.maxLength {
		return chat.Message{}, ErrInvalidContent
	}

	message := chat.Message{
		Username:  author,
		Content:   content,
		Timestamp: s.now().Unix(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, message)
	if over := len(s.messages) - s.capacity; over > 0 {
		s.messages = slices.Delete(s.messages, 0, over)
	}

	// Published under mu so subscribers observe insertion order.
	s.publish(message)
	return message, nil
}

// ListSince returns the retained messages newer than since, oldest first.
func (s *Service) ListSince(_ context.Context, since float64) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]chat.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if float64(m.Timestamp) > since {
			result = append(result, m)
		}
	}
	return result
}

// Len returns the number of retained messages.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Subscribe registers a listener for newly appended messages. Delivery never
// blocks Append: a subscriber whose queue is full misses the message. The
// returned cancel func unregisters the listener and closes the channel.
func (s *Service) Subscribe() (<-chan chat.Message, func()) {
	ch := make(chan chat.Message, subscriberBuffer)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Service) publish(message chat.Message) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- message:
		default:
		}
	}
}

// contentLength counts UTF-16 code units, so characters outside the Basic
// Multilingual Plane (most emoji) count as two.
func contentLength(content string) int {
	return len(utf16.Encode([]rune(content)))
}
