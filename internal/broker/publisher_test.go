package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/bancho/chat"
	"github.com/nfrund/refbot/internal/bus"
	"github.com/nfrund/refbot/internal/osuirc"
)

type fakePublishAPI struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakePublishAPI) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: EventsStream}, nil
}

func TestPublishPrivMsgShapeAndDedupID(t *testing.T) {
	api := &fakePublishAPI{}
	p := NewPublisher(api, nil)

	ev := bancho.PrivMsg{User: "BanchoBot", Channel: "#mp_12345", Message: "The match has started!"}
	require.NoError(t, p.PublishPrivMsg(context.Background(), ev))
	require.Len(t, api.msgs, 1)

	msg := api.msgs[0]
	assert.Equal(t, SubjectPrivMsg, msg.Subject)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, map[string]string{
		"user":    "BanchoBot",
		"channel": "#mp_12345",
		"message": "The match has started!",
	}, payload)

	id := msg.Header.Get(nats.MsgIdHdr)
	assert.Len(t, id, 64)

	// Same content, same id; the duplicate window absorbs the replay.
	require.NoError(t, p.PublishPrivMsg(context.Background(), ev))
	assert.Equal(t, id, api.msgs[1].Header.Get(nats.MsgIdHdr))

	// Different content, different id.
	ev.Message = "Aborted the match"
	require.NoError(t, p.PublishPrivMsg(context.Background(), ev))
	assert.NotEqual(t, id, api.msgs[2].Header.Get(nats.MsgIdHdr))
}

func TestPublishChatEventShape(t *testing.T) {
	api := &fakePublishAPI{}
	p := NewPublisher(api, nil)

	err := p.PublishChatEvent(context.Background(), chat.EventSlotJoined,
		chat.SlotJoined{User: "BanchoBot", Channel: "#mp_12345", Slot: 3}, "#mp_12345")
	require.NoError(t, err)
	require.Len(t, api.msgs, 1)
	assert.Equal(t, SubjectChatEvent, api.msgs[0].Subject)

	var payload struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
		Channel string          `json:"channel"`
	}
	require.NoError(t, json.Unmarshal(api.msgs[0].Data, &payload))
	assert.Equal(t, string(chat.EventSlotJoined), payload.Event)
	assert.Equal(t, "#mp_12345", payload.Channel)

	// Nested payload fields serialize camelCase; downstream consumers key on
	// the original field names.
	assert.Contains(t, string(payload.Payload), `"slot":3`)
	assert.Contains(t, string(payload.Payload), `"user":"BanchoBot"`)
	assert.NotContains(t, string(payload.Payload), `"Slot"`)
}

func TestMiddlewareNeverAbortsOnPublishFailure(t *testing.T) {
	p := NewPublisher(&fakePublishAPI{err: errors.New("broker down")}, nil)
	ctx := context.Background()

	privMw := p.PrivMsgMiddleware(ctx)
	ok := privMw(&bus.Context[bancho.Event, bancho.Meta]{
		Event: bancho.EventPrivMsg,
		Data:  bancho.PrivMsg{Channel: "#mp_1", Message: "hi"},
	})
	assert.True(t, ok)

	chatMw := p.ChatEventMiddleware(ctx)
	ok = chatMw(&bus.Context[chat.Event, bancho.Meta]{
		Event: chat.EventAllReady,
		Data:  chat.AllReady{Channel: "#mp_1"},
		Meta:  bancho.Meta{Msg: osuirc.Message{Args: []string{"#mp_1"}}},
	})
	assert.True(t, ok)
}

func TestChatMiddlewareTakesChannelFromWireMessage(t *testing.T) {
	api := &fakePublishAPI{}
	p := NewPublisher(api, nil)

	mw := p.ChatEventMiddleware(context.Background())
	mw(&bus.Context[chat.Event, bancho.Meta]{
		Event: chat.EventStarted,
		Data:  chat.Started{User: "BanchoBot", Channel: "#mp_77"},
		Meta:  bancho.Meta{Msg: osuirc.Message{Args: []string{"#mp_77", "The match has started!"}}},
	})

	require.Len(t, api.msgs, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(api.msgs[0].Data, &payload))
	assert.Equal(t, "#mp_77", payload["channel"])
}
