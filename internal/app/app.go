package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/bancho/chat"
	"github.com/nfrund/refbot/internal/broker"
	"github.com/nfrund/refbot/internal/bus"
	"github.com/nfrund/refbot/internal/config"
	"github.com/nfrund/refbot/internal/health"
	"github.com/nfrund/refbot/internal/match"
	"github.com/nfrund/refbot/internal/message"
	"github.com/nfrund/refbot/internal/metrics"
	"github.com/nfrund/refbot/internal/osuapi"
	"github.com/nfrund/refbot/internal/osuirc"
	"github.com/nfrund/refbot/internal/store"
)

// App owns every long-lived collaborator of the bot.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	db        *surrealdb.DB
	nc        *nats.Conn
	irc       *osuirc.Client
	protoBus  *bancho.Bus
	chatBus   *chat.Bus
	publisher *broker.Publisher
	consumer  *broker.Consumer
	matchSvc  *match.Service
	msgSvc    *message.Service
	ops       *health.Server

	components []Component
	fatal      chan error
}

// New builds the application graph. It connects to SurrealDB and NATS and
// reconciles the broker topology; any failure here is fatal, nothing is left
// half-started.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := store.Connect(ctx, store.Config{
		URL:       cfg.DBUrl,
		Namespace: cfg.DBNs,
		Database:  cfg.DBDb,
		User:      cfg.DBUser,
		Pass:      cfg.DBPass,
	})
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.NatsURL, nats.Name("refbot"))
	if err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		db.Close(ctx)
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := broker.Reconcile(ctx, js, logger); err != nil {
		nc.Close()
		db.Close(ctx)
		return nil, fmt.Errorf("reconcile broker topology: %w", err)
	}

	ircClient := osuirc.NewClient(osuirc.Config{
		Host:     cfg.IRCHost,
		Port:     cfg.IRCPort,
		Nick:     cfg.IRCNick,
		Password: cfg.IRCPassword,
	}, logger)

	api := osuapi.New(cfg.OsuClientID, cfg.OsuClientSecret)
	matchSvc := match.NewService(store.NewSurrealMatchStore(db), api, ircClient,
		cfg.MatchPassword, cfg.Referee, logger)
	msgSvc := message.NewService(store.NewSurrealMessageStore(db), logger)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		nc:        nc,
		irc:       ircClient,
		protoBus:  bancho.NewBus(logger),
		chatBus:   chat.NewBus(logger),
		publisher: broker.NewPublisher(js, logger),
		consumer:  broker.NewConsumer(js, ircClient, matchSvc, logger),
		matchSvc:  matchSvc,
		msgSvc:    msgSvc,
		fatal:     make(chan error, 4),
	}
	a.ops = health.NewServer(cfg.HTTPAddr, ircClient.Registered, logger)
	a.components = a.buildComponents()
	return a, nil
}

// buildComponents is the ordered list of everything the bot runs. Order
// matters: the pipeline must be fully wired before the session connects, and
// the connections are released last.
func (a *App) buildComponents() []Component {
	return []Component{
		{
			Name: "surrealdb",
			Stop: func(ctx context.Context) error { return a.db.Close(ctx) },
		},
		{
			Name: "nats",
			Stop: func(ctx context.Context) error { return a.nc.Drain() },
		},
		{
			Name: "ops-server",
			Start: func(ctx context.Context) error {
				go func() {
					if err := a.ops.Start(); err != nil {
						a.fatal <- fmt.Errorf("ops server: %w", err)
					}
				}()
				return nil
			},
			Stop: func(ctx context.Context) error { return a.ops.Shutdown(ctx) },
		},
		{
			Name: "pipeline",
			Start: func(ctx context.Context) error {
				a.wire(ctx)
				return nil
			},
			Stop: func(ctx context.Context) error {
				a.consumer.Stop()
				a.protoBus.Wait()
				a.chatBus.Wait()
				return nil
			},
		},
		{
			Name: "bancho-session",
			Start: func(ctx context.Context) error {
				go func() {
					err := a.irc.Run(ctx)
					if err != nil && ctx.Err() == nil {
						a.fatal <- fmt.Errorf("bancho session: %w", err)
					}
				}()
				return nil
			},
		},
	}
}

// wire connects the buses, the session handler and the gated command
// consumer. Called once, before the session starts.
func (a *App) wire(ctx context.Context) {
	// Protocol bus: count, fan out raw, then dispatch.
	a.protoBus.Use(func(c *bus.Context[bancho.Event, bancho.Meta]) bool {
		metrics.RecordEventClassified("bancho", string(c.Event))
		return true
	})
	a.protoBus.Use(a.publisher.PrivMsgMiddleware(ctx))

	bus.Listen(a.protoBus, bancho.EventCreationTime,
		func(ctx context.Context, data bancho.CreationTime, meta bancho.Meta) error {
			if !match.IsMPChannel(data.Channel) {
				return nil
			}
			_, err := a.matchSvc.Create(ctx, data)
			return err
		})

	bus.Listen(a.protoBus, bancho.EventPrivMsg,
		func(ctx context.Context, data bancho.PrivMsg, meta bancho.Meta) error {
			if _, err := a.msgSvc.Record(ctx, data); err != nil {
				return err
			}
			metrics.RecordMessageRecorded()
			return nil
		})

	bus.Listen(a.protoBus, bancho.EventPrivMsg,
		func(ctx context.Context, data bancho.PrivMsg, meta bancho.Meta) error {
			return a.chatBus.Emit(ctx, data.Message, []string{data.Channel, data.Message}, meta)
		})

	// Chat bus: announcer messages only, counted and fanned out.
	a.chatBus.Use(chat.AnnouncerOnly())
	a.chatBus.Use(func(c *bus.Context[chat.Event, bancho.Meta]) bool {
		metrics.RecordEventClassified("bancho.chat", string(c.Event))
		return true
	})
	a.chatBus.Use(a.publisher.ChatEventMiddleware(ctx))

	bus.Listen(a.chatBus, chat.EventMatchClosed,
		func(ctx context.Context, data chat.MatchClosed, meta bancho.Meta) error {
			if data.MatchID == nil {
				return nil
			}
			_, err := a.matchSvc.Close(ctx, *data.MatchID)
			return err
		})

	a.irc.Handle(func(ctx context.Context, msg osuirc.Message) {
		meta := bancho.Meta{Msg: msg}
		if err := a.protoBus.Emit(ctx, msg.Command, msg.Args, meta); err != nil {
			a.logger.Error("event dispatch failed", "command", msg.Command, "error", err)
		}
	})

	// Commands are only consumed once the session is registered; a command
	// arriving before that would be acted on into a dead session.
	a.irc.OnRegistered(func() {
		if err := a.consumer.Start(ctx); err != nil {
			a.fatal <- fmt.Errorf("command consumer: %w", err)
		}
	})
}

// Run starts every component in order and blocks until the context is
// canceled or a component fails fatally, then stops everything in reverse.
func (a *App) Run(ctx context.Context) error {
	var started []Component
	for _, c := range a.components {
		if c.Start != nil {
			if err := c.Start(ctx); err != nil {
				a.stop(started)
				return fmt.Errorf("start %s: %w", c.Name, err)
			}
		}
		a.logger.Info("component started", "component", c.Name)
		started = append(started, c)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-a.fatal:
		a.logger.Error("component failed", "error", err)
		runErr = err
	}

	a.stop(started)
	return runErr
}

func (a *App) stop(started []Component) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(started) - 1; i >= 0; i-- {
		c := started[i]
		if c.Stop == nil {
			continue
		}
		if err := c.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("component stop failed", "component", c.Name, "error", err)
			continue
		}
		a.logger.Info("component stopped", "component", c.Name)
	}
}
