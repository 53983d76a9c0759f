package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nfrund/refbot/internal/domain"
)

// MemoryMatchStore is an in-memory domain.MatchStore. It backs unit tests and
// local development without a database.
type MemoryMatchStore struct {
	mu      sync.Mutex
	matches map[int64]*domain.Match
}

// NewMemoryMatchStore creates an empty store.
func NewMemoryMatchStore() *MemoryMatchStore {
	return &MemoryMatchStore{matches: make(map[int64]*domain.Match)}
}

// Insert stores a new open match row.
func (s *MemoryMatchStore) Insert(ctx context.Context, m domain.Match) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[m.OsuMatchID]; exists {
		return nil, domain.ErrMatchAlreadyExists
	}

	m.ID = "match:" + uuid.NewString()
	m.Closed = false
	stored := m
	s.matches[m.OsuMatchID] = &stored

	out := stored
	return &out, nil
}

// FindByOsuMatchID returns a copy of the stored row, or nil, nil.
func (s *MemoryMatchStore) FindByOsuMatchID(ctx context.Context, osuMatchID int64) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[osuMatchID]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

// MarkClosed closes an open row; a row that is absent or already closed
// yields nil, nil.
func (s *MemoryMatchStore) MarkClosed(ctx context.Context, osuMatchID int64) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[osuMatchID]
	if !ok || m.Closed {
		return nil, nil
	}
	m.Closed = true
	out := *m
	return &out, nil
}

// MemoryMessageStore is an in-memory domain.MessageStore.
type MemoryMessageStore struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

// NewMemoryMessageStore creates an empty store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{}
}

// Record appends one chat line.
func (s *MemoryMessageStore) Record(ctx context.Context, channel, sender, text string) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.ChatMessage{
		ID:      "message:" + uuid.NewString(),
		Channel: channel,
		Sender:  sender,
		Text:    text,
	}
	s.messages = append(s.messages, msg)
	out := msg
	return &out, nil
}

// Messages returns a snapshot of everything recorded so far.
func (s *MemoryMessageStore) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
