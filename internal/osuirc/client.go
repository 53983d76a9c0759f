package osuirc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	irc "gopkg.in/irc.v4"
)

// Config holds the connection parameters for the Bancho IRC endpoint.
type Config struct {
	Host     string
	Port     int
	Nick     string
	Password string
}

// Handler receives every tokenized line from the session.
type Handler func(ctx context.Context, msg Message)

// Client maintains the single persistent chat-protocol session. Outbound
// command methods come from the embedded Commands surface; inbound lines are
// delivered to the registered Handler one at a time, in wire order.
type Client struct {
	*Commands

	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	handler      Handler
	onRegistered []func()

	conn       atomic.Pointer[irc.Client]
	registered atomic.Bool
	runCtx     context.Context
}

// NewClient builds a client for the given endpoint. Run must be called before
// any outbound command reaches the wire.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{cfg: cfg, logger: logger}
	c.Commands = NewCommands(c.say)
	return c
}

// Handle installs the inbound message handler. It must be set before Run.
func (c *Client) Handle(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// OnRegistered registers a hook fired once after the server accepts the
// session (RPL_WELCOME). Hooks added after registration never fire.
func (c *Client) OnRegistered(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRegistered = append(c.onRegistered, fn)
}

// Registered reports whether the session has completed the handshake.
func (c *Client) Registered() bool {
	return c.registered.Load()
}

// Run dials the server and processes the session until the context is
// canceled or the connection drops. It blocks for the session lifetime.
func (c *Client) Run(ctx context.Context) error {
	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("osuirc: dial %s: %w", addr, err)
	}
	defer conn.Close()

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick:          c.cfg.Nick,
		Pass:          c.cfg.Password,
		User:          c.cfg.Nick,
		Name:          c.cfg.Nick,
		PingFrequency: 60 * time.Second,
		PingTimeout:   20 * time.Second,
		Handler:       irc.HandlerFunc(c.handleWire),
	})

	c.runCtx = ctx
	c.conn.Store(client)
	defer func() {
		c.conn.Store(nil)
		c.registered.Store(false)
	}()

	c.logger.Info("connecting to bancho", "addr", addr, "nick", c.cfg.Nick)
	return client.RunContext(ctx)
}

func (c *Client) handleWire(_ *irc.Client, m *irc.Message) {
	// 001 is RPL_WELCOME: the server accepted the registration.
	if m.Command == "001" {
		if c.registered.CompareAndSwap(false, true) {
			c.logger.Info("bancho session registered")
			c.mu.Lock()
			hooks := c.onRegistered
			c.mu.Unlock()
			for _, fn := range hooks {
				fn()
			}
		}
	}

	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return
	}

	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	h(ctx, fromWire(m))
}

// say delivers a PRIVMSG on the live session. Writes before the session is up
// are dropped with a warning; the transport itself serializes writes issued
// from concurrent contexts.
func (c *Client) say(target, text string) {
	client := c.conn.Load()
	if client == nil {
		c.logger.Warn("dropping outbound message, session not connected",
			"target", target, "text", text)
		return
	}
	client.Writef("PRIVMSG %s :%s", target, text)
}
