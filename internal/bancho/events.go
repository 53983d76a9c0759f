// Package bancho classifies the raw osu! IRC stream into typed protocol
// events. Only the wire commands the referee flow cares about are modeled;
// everything else is dropped by the bus without error.
package bancho

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nfrund/refbot/internal/bus"
	"github.com/nfrund/refbot/internal/osuirc"
)

// Event tags the protocol-level events. Values are the raw wire tokens so
// classification is a direct lookup.
type Event string

const (
	// EventCreationTime is RPL_CREATIONTIME: Bancho reports the creation
	// timestamp of a channel the client joined.
	EventCreationTime Event = "329"

	// EventPrivMsg is a channel or private message line.
	EventPrivMsg Event = "PRIVMSG"
)

// Meta accompanies every dispatched protocol event.
type Meta struct {
	// Msg is the tokenized wire line that produced the event.
	Msg osuirc.Message
}

// CreationTime is the payload of EventCreationTime.
type CreationTime struct {
	User         string
	Channel      string
	CreationTime time.Time
}

// PrivMsg is the payload of EventPrivMsg.
type PrivMsg struct {
	User    string
	Channel string
	Message string
}

// Bus is the protocol-level event bus.
type Bus = bus.Bus[Event, Meta]

// NewBus builds the protocol bus with its classifier installed.
func NewBus(logger *slog.Logger) *Bus {
	return bus.New[Event, Meta]("bancho", classifier{}, logger)
}

type classifier struct{}

func (classifier) Event(raw string) (Event, bool) {
	switch Event(raw) {
	case EventCreationTime, EventPrivMsg:
		return Event(raw), true
	default:
		return "", false
	}
}

func (classifier) Parse(event Event, meta Meta, args []string) (any, error) {
	switch event {
	case EventCreationTime:
		if len(args) < 3 {
			return nil, fmt.Errorf("creation time reply has %d args, want 3", len(args))
		}
		secs, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid creation timestamp %q: %w", args[2], err)
		}
		return CreationTime{
			User:         args[0],
			Channel:      args[1],
			CreationTime: time.Unix(secs, 0).UTC(),
		}, nil

	case EventPrivMsg:
		if len(args) < 2 {
			return nil, fmt.Errorf("privmsg has %d args, want 2", len(args))
		}
		return PrivMsg{
			User:    meta.Msg.Sender(),
			Channel: args[0],
			Message: args[1],
		}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", event)
	}
}
