package match

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/domain"
	"github.com/nfrund/refbot/internal/osuapi"
)

// Commander is the slice of the chat-protocol surface the coordinator needs.
type Commander interface {
	MpClose(channel string)
	MpPassword(channel, password string)
	MpInvite(channel, username string)
}

// SnapshotFetcher looks up match state on the osu! API.
type SnapshotFetcher interface {
	GetMatch(ctx context.Context, matchID int64) (*osuapi.MatchSnapshot, error)
}

// Service drives each match through NonExistent -> Creating -> Open -> Closed.
type Service struct {
	store    domain.MatchStore
	api      SnapshotFetcher
	irc      Commander
	logger   *slog.Logger
	password string
	referee  string
}

// NewService wires the coordinator. password is set on every created match;
// referee is the account invited into every new room.
func NewService(store domain.MatchStore, api SnapshotFetcher, irc Commander, password, referee string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		api:      api,
		irc:      irc,
		logger:   logger,
		password: password,
		referee:  referee,
	}
}

// Create handles a channel creation-time report for a #mp_ channel: it
// resolves the match on the osu! API, persists the open row, then secures the
// room. The password and invite are best-effort; their failure never rolls
// back the persisted match. Any failure before persistence succeeds triggers
// a compensating close of the half-created room and re-raises the error.
func (s *Service) Create(ctx context.Context, ev bancho.CreationTime) (*domain.Match, error) {
	osuMatchID, err := ParseMPChannel(ev.Channel)
	if err != nil {
		return nil, err
	}

	created, err := s.create(ctx, osuMatchID, ev)
	if err != nil {
		s.logger.Error("reverting: match creation failed",
			"channel", ev.Channel, "osuMatchId", osuMatchID, "error", err)
		s.irc.MpClose(ev.Channel)
		return nil, err
	}

	s.irc.MpPassword(created.Channel, s.password)
	s.irc.MpInvite(created.Channel, s.referee)

	s.logger.Info("match created",
		"osuMatchId", created.OsuMatchID, "channel", created.Channel, "name", created.Name)
	return created, nil
}

func (s *Service) create(ctx context.Context, osuMatchID int64, ev bancho.CreationTime) (*domain.Match, error) {
	snapshot, err := s.api.GetMatch(ctx, osuMatchID)
	if err != nil {
		return nil, fmt.Errorf("fetch match %d: %w", osuMatchID, err)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("fetch match %d: %w", osuMatchID, osuapi.ErrNotFound)
	}

	created, err := s.store.Insert(ctx, domain.Match{
		OsuMatchID:   osuMatchID,
		Channel:      ev.Channel,
		Name:         snapshot.Name,
		CreationTime: ev.CreationTime,
	})
	if err != nil {
		return nil, fmt.Errorf("persist match %d: %w", osuMatchID, err)
	}
	return created, nil
}

// Close transitions a match to Closed. Closing an unknown or already-closed
// match is a no-op returning nil, nil; closure is idempotent, so concurrent
// attempts race benignly to the same end state.
func (s *Service) Close(ctx context.Context, osuMatchID int64) (*domain.Match, error) {
	candidate, err := s.store.FindByOsuMatchID(ctx, osuMatchID)
	if err != nil {
		return nil, fmt.Errorf("find match %d: %w", osuMatchID, err)
	}
	if candidate == nil || candidate.Closed {
		return nil, nil
	}

	s.irc.MpClose(candidate.Channel)

	closed, err := s.store.MarkClosed(ctx, osuMatchID)
	if err != nil {
		return nil, fmt.Errorf("close match %d: %w", osuMatchID, err)
	}
	if closed != nil {
		s.logger.Info("match closed", "osuMatchId", osuMatchID, "channel", candidate.Channel)
	}
	return closed, nil
}
