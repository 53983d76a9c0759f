// Package chat classifies BanchoBot's free-text match announcements into
// typed match-lifecycle events. It is a second bus layered over the PRIVMSG
// protocol event: the message body is the classification token.
package chat

import (
	"log/slog"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/bus"
)

// Event tags the match-lifecycle events extracted from announcer chat.
type Event string

const (
	EventMatchLimitExceeded Event = "MATCH_LIMIT_EXCEEDED"
	EventMatchCreated       Event = "MATCH_CREATED"
	EventSlotJoined         Event = "MATCH_SLOT_JOINED"
	EventPasswordChanged    Event = "MATCH_PASSWORD_CHANGED"
	EventSlotMoved          Event = "MATCH_SLOT_MOVED"
	EventHostChanged        Event = "MATCH_HOST_CHANGED"
	EventBeatmapChanged     Event = "MATCH_BEATMAP_CHANGED"
	EventAllReady           Event = "MATCH_ALL_READY"
	EventStarted            Event = "MATCH_STARTED"
	EventAborted            Event = "MATCH_ABORTED"
	EventHostChanging       Event = "MATCH_HOST_CHANGING"
	EventPlayerFinished     Event = "MATCH_PLAYER_FINISHED"
	EventMatchClosed        Event = "MATCH_CLOSED"
)

// Announcer is the fixed automated account whose messages report match-room
// state changes.
const Announcer = "BanchoBot"

// Every payload derives exclusively from the announcement text; no variant
// carries information not present in the source message.

// MatchLimitExceeded reports that no further tournament matches can be made.
type MatchLimitExceeded struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// MatchCreated reports a new match room. The id is embedded either in a match
// URL or in the literal #mp_ channel form; both describe the same match.
type MatchCreated struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	MatchID int64  `json:"matchId"`
	URL     string `json:"url"`
	Name    string `json:"name"`
}

// SlotJoined reports a player joining a 1-based lobby slot.
type SlotJoined struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	Slot    int    `json:"slot"`
}

// SlotMoved reports a player moving to another slot.
type SlotMoved struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	Slot    int    `json:"slot"`
}

// PasswordChanged reports a room password change.
type PasswordChanged struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// HostChanged reports a new room host.
type HostChanged struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	Host    string `json:"host"`
}

// BeatmapChanged reports a beatmap selection with its URL.
type BeatmapChanged struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	Beatmap string `json:"beatmap"`
	URL     string `json:"url"`
}

// AllReady reports that every player is ready.
type AllReady struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// Started reports match start.
type Started struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// Aborted reports match abort.
type Aborted struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// HostChanging reports that the host is picking a new map.
type HostChanging struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// PlayerFinished reports one player's final score and grade.
type PlayerFinished struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	Score   int64  `json:"score"`
	Result  string `json:"result"`
}

// MatchClosed reports a room closure. MatchID is nil when the announcement
// carries no embedded id ("Match closed").
type MatchClosed struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	MatchID *int64 `json:"matchId,omitempty"`
}

// Bus is the chat-content event bus. Its meta is the same as the protocol
// bus: the wire message that carried the announcement.
type Bus = bus.Bus[Event, bancho.Meta]

// NewBus builds the chat-content bus with its classifier installed.
func NewBus(logger *slog.Logger) *Bus {
	return bus.New[Event, bancho.Meta]("bancho.chat", classifier{}, logger)
}

// AnnouncerOnly is a middleware that aborts dispatch for any body that did not
// originate from the automated announcer account.
func AnnouncerOnly() bus.Middleware[Event, bancho.Meta] {
	return func(c *bus.Context[Event, bancho.Meta]) bool {
		return c.Meta.Msg.Sender() == Announcer
	}
}
