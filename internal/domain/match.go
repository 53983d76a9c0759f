// Package domain holds the core models of the referee bot and the storage
// contracts they require. Repository interfaces live here because they are a
// requirement of the domain, not of any particular database.
package domain

import (
	"context"
	"time"
)

// Match is a persisted osu! multiplayer match tracked by the bot. Exactly one
// open row may exist per OsuMatchID; closure is monotonic and rows are never
// hard-deleted by the bot.
type Match struct {
	ID           string    `json:"id,omitempty"`
	OsuMatchID   int64     `json:"matchId"`
	Channel      string    `json:"channel"`
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creationTime"`
	Closed       bool      `json:"closed"`
}

// ChatMessage is one archived line of channel chat.
type ChatMessage struct {
	ID      string `json:"id,omitempty"`
	Channel string `json:"channel"`
	Sender  string `json:"sender"`
	Text    string `json:"text"`
}

// MatchStore persists match lifecycle state.
type MatchStore interface {
	Insert(ctx context.Context, m Match) (*Match, error)

	// FindByOsuMatchID returns nil, nil when no row exists.
	FindByOsuMatchID(ctx context.Context, osuMatchID int64) (*Match, error)

	// MarkClosed flips Closed to true in a single update and returns the
	// updated row, or nil, nil when no row exists. Closed is never reset.
	MarkClosed(ctx context.Context, osuMatchID int64) (*Match, error)
}

// MessageStore archives raw channel chat.
type MessageStore interface {
	Record(ctx context.Context, channel, sender, text string) (*ChatMessage, error)
}
