package broker

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/zeebo/blake3"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/bancho/chat"
	"github.com/nfrund/refbot/internal/bus"
	"github.com/nfrund/refbot/internal/metrics"
)

// PublishAPI is the slice of JetStream the publisher needs.
// jetstream.JetStream satisfies it.
type PublishAPI interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// privMsgPayload is the wire shape on SubjectPrivMsg.
type privMsgPayload struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// chatEventPayload is the wire shape on SubjectChatEvent.
type chatEventPayload struct {
	Event   chat.Event `json:"event"`
	Payload any        `json:"payload"`
	Channel string     `json:"channel"`
}

// Publisher fans observed chat traffic onto the events stream. Every publish
// carries a content-hash Nats-Msg-Id, so a reconnect replaying recent lines
// is absorbed by the stream's duplicate window instead of producing double
// events downstream.
type Publisher struct {
	js     PublishAPI
	logger *slog.Logger
}

// NewPublisher wires the event publisher.
func NewPublisher(js PublishAPI, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{js: js, logger: logger}
}

// PublishPrivMsg publishes one raw channel message.
func (p *Publisher) PublishPrivMsg(ctx context.Context, ev bancho.PrivMsg) error {
	return p.publish(ctx, SubjectPrivMsg, privMsgPayload{
		User:    ev.User,
		Channel: ev.Channel,
		Message: ev.Message,
	})
}

// PublishChatEvent publishes one classified match-lifecycle event.
func (p *Publisher) PublishChatEvent(ctx context.Context, event chat.Event, payload any, channel string) error {
	return p.publish(ctx, SubjectChatEvent, chatEventPayload{
		Event:   event,
		Payload: payload,
		Channel: channel,
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, messageID(subject, data))

	if _, err := p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// messageID derives the deduplication id from subject and payload bytes, so
// identical content on the same subject always collides inside the duplicate
// window.
func messageID(subject string, payload []byte) string {
	h := blake3.New()
	h.Write([]byte(subject))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// PrivMsgMiddleware installs the raw fan-out on the protocol bus. Publish
// failures are logged and counted, never aborting dispatch: local listeners
// must keep working when the broker is down.
func (p *Publisher) PrivMsgMiddleware(ctx context.Context) bus.Middleware[bancho.Event, bancho.Meta] {
	return func(c *bus.Context[bancho.Event, bancho.Meta]) bool {
		ev, ok := c.Data.(bancho.PrivMsg)
		if !ok {
			return true
		}
		if err := p.PublishPrivMsg(ctx, ev); err != nil {
			metrics.RecordPublishFailure(SubjectPrivMsg)
			p.logger.Error("publish failed", "subject", SubjectPrivMsg, "channel", ev.Channel, "error", err)
		}
		return true
	}
}

// ChatEventMiddleware installs the classified fan-out on the chat bus, with
// the same never-abort contract as PrivMsgMiddleware.
func (p *Publisher) ChatEventMiddleware(ctx context.Context) bus.Middleware[chat.Event, bancho.Meta] {
	return func(c *bus.Context[chat.Event, bancho.Meta]) bool {
		channel := ""
		if len(c.Meta.Msg.Args) > 0 {
			channel = c.Meta.Msg.Args[0]
		}
		if err := p.PublishChatEvent(ctx, c.Event, c.Data, channel); err != nil {
			metrics.RecordPublishFailure(SubjectChatEvent)
			p.logger.Error("publish failed", "subject", SubjectChatEvent, "event", string(c.Event), "error", err)
		}
		return true
	}
}
