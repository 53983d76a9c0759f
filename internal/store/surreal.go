package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nfrund/refbot/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// Config holds the SurrealDB connection parameters.
type Config struct {
	URL       string
	Namespace string
	Database  string
	User      string
	Pass      string
}

// Connect opens, authenticates and scopes a SurrealDB connection.
func Connect(ctx context.Context, cfg Config) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}

	if _, err = db.SignIn(ctx, &surrealdb.Auth{Username: cfg.User, Password: cfg.Pass}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err = db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.Info("connected to surrealdb", "url", cfg.URL, "ns", cfg.Namespace, "db", cfg.Database)
	return db, nil
}

// matchRecord is the storage shape of domain.Match.
type matchRecord struct {
	ID           *models.RecordID      `json:"id,omitempty"`
	OsuMatchID   int64                 `json:"matchId"`
	Channel      string                `json:"channel"`
	Name         string                `json:"name"`
	CreationTime models.CustomDateTime `json:"creationTime"`
	Closed       bool                  `json:"closed"`
}

func (r matchRecord) toDomain() *domain.Match {
	m := &domain.Match{
		OsuMatchID:   r.OsuMatchID,
		Channel:      r.Channel,
		Name:         r.Name,
		CreationTime: r.CreationTime.Time,
		Closed:       r.Closed,
	}
	if r.ID != nil {
		m.ID = r.ID.String()
	}
	return m
}

// SurrealMatchStore implements domain.MatchStore on SurrealDB.
type SurrealMatchStore struct {
	db *surrealdb.DB
}

// NewSurrealMatchStore wraps an open connection.
func NewSurrealMatchStore(db *surrealdb.DB) *SurrealMatchStore {
	return &SurrealMatchStore{db: db}
}

// Insert persists a new open match row. A unique-index violation on the osu!
// match id maps to domain.ErrMatchAlreadyExists.
func (s *SurrealMatchStore) Insert(ctx context.Context, m domain.Match) (*domain.Match, error) {
	query := `CREATE match CONTENT {
		matchId: $matchId,
		channel: $channel,
		name: $name,
		creationTime: $creationTime,
		closed: false
	}`
	params := map[string]any{
		"matchId":      m.OsuMatchID,
		"channel":      m.Channel,
		"name":         m.Name,
		"creationTime": models.CustomDateTime{Time: m.CreationTime},
	}

	created, err := QueryOne[matchRecord](ctx, s.db, query, params)
	if err != nil {
		if strings.Contains(err.Error(), "already contains") || strings.Contains(err.Error(), "already exists") {
			return nil, domain.ErrMatchAlreadyExists
		}
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("create returned no row for match %d", m.OsuMatchID)
	}
	return created.toDomain(), nil
}

// FindByOsuMatchID returns the match row for an osu! match id, or nil, nil.
func (s *SurrealMatchStore) FindByOsuMatchID(ctx context.Context, osuMatchID int64) (*domain.Match, error) {
	row, err := QueryOne[matchRecord](ctx, s.db,
		"SELECT * FROM match WHERE matchId = $matchId",
		map[string]any{"matchId": osuMatchID})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return row.toDomain(), nil
}

// MarkClosed flips closed to true in one update. The WHERE clause makes the
// transition monotonic: a second call finds no open row and returns nil, nil.
func (s *SurrealMatchStore) MarkClosed(ctx context.Context, osuMatchID int64) (*domain.Match, error) {
	row, err := QueryOne[matchRecord](ctx, s.db,
		"UPDATE match SET closed = true WHERE matchId = $matchId AND closed = false",
		map[string]any{"matchId": osuMatchID})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return row.toDomain(), nil
}

// messageRecord is the storage shape of domain.ChatMessage.
type messageRecord struct {
	ID      *models.RecordID      `json:"id,omitempty"`
	Channel string                `json:"channel"`
	Sender  string                `json:"sender"`
	Text    string                `json:"text"`
	SentAt  models.CustomDateTime `json:"sentAt"`
}

// SurrealMessageStore implements domain.MessageStore on SurrealDB.
type SurrealMessageStore struct {
	db *surrealdb.DB
}

// NewSurrealMessageStore wraps an open connection.
func NewSurrealMessageStore(db *surrealdb.DB) *SurrealMessageStore {
	return &SurrealMessageStore{db: db}
}

// Record archives one chat line.
func (s *SurrealMessageStore) Record(ctx context.Context, channel, sender, text string) (*domain.ChatMessage, error) {
	query := `CREATE message CONTENT {
		channel: $channel,
		sender: $sender,
		text: $text,
		sentAt: $sentAt
	}`
	params := map[string]any{
		"channel": channel,
		"sender":  sender,
		"text":    text,
		"sentAt":  models.CustomDateTime{Time: time.Now().UTC()},
	}

	created, err := QueryOne[messageRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("create returned no row for message in %s", channel)
	}

	msg := &domain.ChatMessage{Channel: created.Channel, Sender: created.Sender, Text: created.Text}
	if created.ID != nil {
		msg.ID = created.ID.String()
	}
	return msg, nil
}
