package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamManager is the slice of the JetStream management API the reconciler
// needs. jetstream.JetStream satisfies it.
type StreamManager interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// Reconcile drives the broker topology to the desired state: both streams
// exist with the right subjects and storage, and the durable command
// consumers exist. It is idempotent; running it against an already-correct
// topology performs no write. A failure here is fatal to startup, so the bot
// never runs against a half-configured broker.
func Reconcile(ctx context.Context, js StreamManager, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	for _, desired := range []jetstream.StreamConfig{eventsStreamConfig(), commandsStreamConfig()} {
		if err := ensureStream(ctx, js, desired, logger); err != nil {
			return fmt.Errorf("ensure stream %s: %w", desired.Name, err)
		}
	}

	commands, err := js.Stream(ctx, CommandsStream)
	if err != nil {
		return fmt.Errorf("lookup stream %s: %w", CommandsStream, err)
	}
	for _, cfg := range commandConsumerConfigs() {
		if err := ensureConsumer(ctx, commands, cfg, logger); err != nil {
			return fmt.Errorf("ensure consumer %s: %w", cfg.Durable, err)
		}
	}
	return nil
}

func ensureStream(ctx context.Context, js StreamManager, desired jetstream.StreamConfig, logger *slog.Logger) error {
	existing, err := js.Stream(ctx, desired.Name)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := js.CreateStream(ctx, desired); err != nil {
			return err
		}
		logger.Info("created stream", "stream", desired.Name, "subjects", desired.Subjects)
		return nil
	}
	if err != nil {
		return err
	}

	current := existing.CachedInfo().Config
	if streamUpToDate(current, desired) {
		return nil
	}
	if _, err := js.UpdateStream(ctx, desired); err != nil {
		return err
	}
	logger.Info("updated stream", "stream", desired.Name, "subjects", desired.Subjects)
	return nil
}

// streamUpToDate compares only the fields the bot manages. Server-side
// defaults on the remaining fields must not count as drift, or every startup
// would issue an update.
func streamUpToDate(current, desired jetstream.StreamConfig) bool {
	return slices.Equal(current.Subjects, desired.Subjects) &&
		current.Storage == desired.Storage &&
		current.Duplicates == desired.Duplicates
}

func ensureConsumer(ctx context.Context, stream jetstream.Stream, cfg jetstream.ConsumerConfig, logger *slog.Logger) error {
	_, err := stream.CreateConsumer(ctx, cfg)
	if errors.Is(err, jetstream.ErrConsumerExists) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("created durable consumer", "consumer", cfg.Durable, "subject", cfg.FilterSubject)
	return nil
}
