// Package message archives raw channel chat. Every PRIVMSG is recorded, even
// bodies that classify to no typed event.
package message

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/domain"
)

// Service persists observed chat lines.
type Service struct {
	store  domain.MessageStore
	logger *slog.Logger
}

// NewService wires the recorder.
func NewService(store domain.MessageStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Record archives one observed message.
func (s *Service) Record(ctx context.Context, ev bancho.PrivMsg) (*domain.ChatMessage, error) {
	created, err := s.store.Record(ctx, ev.Channel, ev.User, ev.Message)
	if err != nil {
		return nil, fmt.Errorf("record message in %s: %w", ev.Channel, err)
	}
	return created, nil
}
