package bancho

import (
	"context"
	"testing"
	"time"

	"github.com/nfrund/refbot/internal/bus"
	"github.com/nfrund/refbot/internal/osuirc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metaFor(msg osuirc.Message) Meta {
	return Meta{Msg: msg}
}

func TestCreationTimeParsing(t *testing.T) {
	b := NewBus(nil)

	got := make(chan CreationTime, 1)
	bus.Listen(b, EventCreationTime, func(ctx context.Context, data CreationTime, meta Meta) error {
		got <- data
		return nil
	})

	msg := osuirc.Message{Command: "329", RawCommand: "329", Args: []string{"refbot", "#mp_12345", "1717171717"}}
	err := b.Emit(context.Background(), msg.RawCommand, msg.Args, metaFor(msg))
	require.NoError(t, err)
	b.Wait()

	data := <-got
	assert.Equal(t, "refbot", data.User)
	assert.Equal(t, "#mp_12345", data.Channel)
	assert.Equal(t, time.Unix(1717171717, 0).UTC(), data.CreationTime)
}

func TestCreationTimeRejectsNonNumericTimestamp(t *testing.T) {
	b := NewBus(nil)

	msg := osuirc.Message{RawCommand: "329", Args: []string{"refbot", "#mp_12345", "yesterday"}}
	err := b.Emit(context.Background(), msg.RawCommand, msg.Args, metaFor(msg))
	assert.Error(t, err)
}

func TestPrivMsgResolvesUserFromPrefix(t *testing.T) {
	b := NewBus(nil)

	got := make(chan PrivMsg, 1)
	bus.Listen(b, EventPrivMsg, func(ctx context.Context, data PrivMsg, meta Meta) error {
		got <- data
		return nil
	})

	msg := osuirc.Message{
		RawCommand: "PRIVMSG",
		Args:       []string{"#mp_12345", "hello there"},
		Nick:       "BanchoBot",
	}
	require.NoError(t, b.Emit(context.Background(), msg.RawCommand, msg.Args, metaFor(msg)))
	b.Wait()

	data := <-got
	assert.Equal(t, PrivMsg{User: "BanchoBot", Channel: "#mp_12345", Message: "hello there"}, data)
}

func TestUninterestingCommandsAreDropped(t *testing.T) {
	b := NewBus(nil)

	var called bool
	bus.Listen(b, EventPrivMsg, func(ctx context.Context, data PrivMsg, meta Meta) error {
		called = true
		return nil
	})

	for _, cmd := range []string{"QUIT", "JOIN", "372", "PING"} {
		msg := osuirc.Message{RawCommand: cmd, Args: []string{"x"}}
		require.NoError(t, b.Emit(context.Background(), cmd, msg.Args, metaFor(msg)))
	}
	b.Wait()

	assert.False(t, called)
}
