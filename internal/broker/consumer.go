package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/nfrund/refbot/internal/domain"
	"github.com/nfrund/refbot/internal/metrics"
)

// Maker issues the private-room creation chat command.
type Maker interface {
	MpMakePrivate(name string)
}

// MatchCloser closes a tracked match.
type MatchCloser interface {
	Close(ctx context.Context, osuMatchID int64) (*domain.Match, error)
}

// ConsumerLookup resolves durable consumers on a stream. jetstream.JetStream
// satisfies it.
type ConsumerLookup interface {
	Consumer(ctx context.Context, stream string, consumer string) (jetstream.Consumer, error)
}

// inbound is the slice of a delivered message the processing path touches.
// jetstream.Msg satisfies it.
type inbound interface {
	Subject() string
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// errMalformed marks payloads that can never succeed. They are terminated,
// not redelivered.
var errMalformed = errors.New("malformed command payload")

type createPrivateMatchCommand struct {
	Name string `json:"name" validate:"required"`
}

type closeMatchCommand struct {
	OsuMatchID int64 `json:"osuMatchId" validate:"required"`
}

type handlerFunc func(ctx context.Context, data []byte) error

// Consumer runs one pull-consume loop per durable command consumer. Handler
// outcomes map onto broker acknowledgement: success acks, a permanently
// undecodable payload terminates, and any handler failure naks so the broker
// redelivers. Redelivery is the only retry mechanism.
type Consumer struct {
	js       ConsumerLookup
	irc      Maker
	matches  MatchCloser
	validate *validator.Validate
	logger   *slog.Logger

	startOnce sync.Once
	mu        sync.Mutex
	iters     []jetstream.MessagesContext
	wg        sync.WaitGroup
}

// NewConsumer wires the command consumer. Nothing is consumed until Start.
func NewConsumer(js ConsumerLookup, irc Maker, matches MatchCloser, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		js:       js,
		irc:      irc,
		matches:  matches,
		validate: validator.New(),
		logger:   logger,
	}
}

// Start launches the consume loops. It is safe to call more than once; only
// the first call has any effect, so the registration hook can fire it without
// coordination.
func (c *Consumer) Start(ctx context.Context) error {
	var startErr error
	c.startOnce.Do(func() {
		bindings := []struct {
			durable string
			subject string
			handle  handlerFunc
		}{
			{DurableCreateMatch, SubjectCreateMatch, c.handleCreate},
			{DurableCloseMatch, SubjectCloseMatch, c.handleClose},
		}

		for _, b := range bindings {
			cons, err := c.js.Consumer(ctx, CommandsStream, b.durable)
			if err != nil {
				startErr = fmt.Errorf("lookup consumer %s: %w", b.durable, err)
				return
			}
			iter, err := cons.Messages()
			if err != nil {
				startErr = fmt.Errorf("consume %s: %w", b.durable, err)
				return
			}

			c.mu.Lock()
			c.iters = append(c.iters, iter)
			c.mu.Unlock()

			c.wg.Add(1)
			go c.loop(ctx, iter, b.subject, b.handle)
			c.logger.Info("consuming commands", "consumer", b.durable, "subject", b.subject)
		}
	})
	return startErr
}

// Stop halts the consume loops and waits for in-flight handlers.
func (c *Consumer) Stop() {
	c.mu.Lock()
	iters := c.iters
	c.iters = nil
	c.mu.Unlock()

	for _, iter := range iters {
		iter.Stop()
	}
	c.wg.Wait()
}

func (c *Consumer) loop(ctx context.Context, iter jetstream.MessagesContext, subject string, handle handlerFunc) {
	defer c.wg.Done()
	for {
		msg, err := iter.Next()
		if err != nil {
			if !errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				c.logger.Error("command iterator stopped", "subject", subject, "error", err)
			}
			return
		}
		c.process(ctx, msg, handle)
	}
}

func (c *Consumer) process(ctx context.Context, msg inbound, handle handlerFunc) {
	err := handle(ctx, msg.Data())
	switch {
	case err == nil:
		if err := msg.Ack(); err != nil {
			c.logger.Warn("ack failed", "subject", msg.Subject(), "error", err)
		}
		metrics.RecordCommandProcessed(msg.Subject(), "ack")

	case errors.Is(err, errMalformed):
		c.logger.Error("dropping unprocessable command",
			"subject", msg.Subject(), "payload", string(msg.Data()), "error", err)
		if err := msg.Term(); err != nil {
			c.logger.Warn("term failed", "subject", msg.Subject(), "error", err)
		}
		metrics.RecordCommandProcessed(msg.Subject(), "term")

	default:
		c.logger.Error("command failed, requesting redelivery",
			"subject", msg.Subject(), "error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("nak failed", "subject", msg.Subject(), "error", err)
		}
		metrics.RecordCommandProcessed(msg.Subject(), "nak")
	}
}

func (c *Consumer) handleCreate(ctx context.Context, data []byte) error {
	var cmd createPrivateMatchCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := c.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	c.irc.MpMakePrivate(cmd.Name)
	c.logger.Info("requested private match", "name", cmd.Name)
	return nil
}

func (c *Consumer) handleClose(ctx context.Context, data []byte) error {
	var cmd closeMatchCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := c.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	if _, err := c.matches.Close(ctx, cmd.OsuMatchID); err != nil {
		return fmt.Errorf("close match %d: %w", cmd.OsuMatchID, err)
	}
	return nil
}
