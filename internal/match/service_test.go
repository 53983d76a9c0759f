package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/domain"
	"github.com/nfrund/refbot/internal/osuapi"
	"github.com/nfrund/refbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	snapshots map[int64]*osuapi.MatchSnapshot
	err       error
}

func (f *fakeAPI) GetMatch(ctx context.Context, matchID int64) (*osuapi.MatchSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	snap, ok := f.snapshots[matchID]
	if !ok {
		return nil, osuapi.ErrNotFound
	}
	return snap, nil
}

type fakeCommander struct {
	mu        sync.Mutex
	closes    []string
	passwords []string
	invites   []string
}

func (f *fakeCommander) MpClose(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, channel)
}

func (f *fakeCommander) MpPassword(channel, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords = append(f.passwords, channel+" "+password)
}

func (f *fakeCommander) MpInvite(channel, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites = append(f.invites, channel+" "+username)
}

func newService(api *fakeAPI) (*Service, *store.MemoryMatchStore, *fakeCommander) {
	matches := store.NewMemoryMatchStore()
	irc := &fakeCommander{}
	svc := NewService(matches, api, irc, "hunter2", "-Nervi", nil)
	return svc, matches, irc
}

func creationEvent(channel string) bancho.CreationTime {
	return bancho.CreationTime{
		User:         "refbot",
		Channel:      channel,
		CreationTime: time.Unix(1717171717, 0).UTC(),
	}
}

func TestParseMPChannel(t *testing.T) {
	id, err := ParseMPChannel("#mp_12345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	for _, channel := range []string{"#osu", "mp_12345", "#mp_", "#mp_12x45", "#mp_-3"} {
		_, err := ParseMPChannel(channel)
		assert.ErrorIs(t, err, ErrNotMPChannel, "channel %q", channel)
	}

	assert.True(t, IsMPChannel("#mp_1"))
	assert.False(t, IsMPChannel("#lobby"))
	assert.Equal(t, "#mp_12345", ChannelForID(12345))
}

func TestCreatePersistsAndSecuresRoom(t *testing.T) {
	api := &fakeAPI{snapshots: map[int64]*osuapi.MatchSnapshot{
		12345: {ID: 12345, Name: "Grand Final"},
	}}
	svc, matches, irc := newService(api)

	created, err := svc.Create(context.Background(), creationEvent("#mp_12345"))
	require.NoError(t, err)

	assert.Equal(t, int64(12345), created.OsuMatchID)
	assert.Equal(t, "#mp_12345", created.Channel)
	assert.Equal(t, "Grand Final", created.Name)
	assert.False(t, created.Closed)

	stored, err := matches.FindByOsuMatchID(context.Background(), 12345)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Closed)

	assert.Equal(t, []string{"#mp_12345 hunter2"}, irc.passwords)
	assert.Equal(t, []string{"#mp_12345 -Nervi"}, irc.invites)
	assert.Empty(t, irc.closes)
}

func TestCreateRejectsForeignChannels(t *testing.T) {
	svc, matches, irc := newService(&fakeAPI{})

	_, err := svc.Create(context.Background(), creationEvent("#lobby"))
	assert.ErrorIs(t, err, ErrNotMPChannel)

	stored, err := matches.FindByOsuMatchID(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Empty(t, irc.closes)
}

func TestCreateRollsBackWhenAPIFails(t *testing.T) {
	svc, matches, irc := newService(&fakeAPI{err: errors.New("api down")})

	_, err := svc.Create(context.Background(), creationEvent("#mp_12345"))
	require.Error(t, err)

	// The half-created room is abandoned and nothing is persisted.
	assert.Equal(t, []string{"#mp_12345"}, irc.closes)
	stored, err := matches.FindByOsuMatchID(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Empty(t, irc.passwords)
	assert.Empty(t, irc.invites)
}

func TestCreateRollsBackWhenSnapshotAbsent(t *testing.T) {
	svc, _, irc := newService(&fakeAPI{snapshots: map[int64]*osuapi.MatchSnapshot{}})

	_, err := svc.Create(context.Background(), creationEvent("#mp_12345"))
	assert.ErrorIs(t, err, osuapi.ErrNotFound)
	assert.Equal(t, []string{"#mp_12345"}, irc.closes)
}

func TestCreateRollsBackWhenInsertFails(t *testing.T) {
	api := &fakeAPI{snapshots: map[int64]*osuapi.MatchSnapshot{
		12345: {ID: 12345, Name: "Grand Final"},
	}}
	svc, matches, irc := newService(api)

	// Occupy the unique id so the second insert fails.
	_, err := matches.Insert(context.Background(), domain.Match{OsuMatchID: 12345, Channel: "#mp_12345"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), creationEvent("#mp_12345"))
	assert.ErrorIs(t, err, domain.ErrMatchAlreadyExists)
	assert.Equal(t, []string{"#mp_12345"}, irc.closes)
}

func TestCloseFlipsStateOnce(t *testing.T) {
	api := &fakeAPI{snapshots: map[int64]*osuapi.MatchSnapshot{
		12345: {ID: 12345, Name: "Grand Final"},
	}}
	svc, _, irc := newService(api)

	_, err := svc.Create(context.Background(), creationEvent("#mp_12345"))
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), 12345)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.True(t, closed.Closed)
	assert.Equal(t, []string{"#mp_12345"}, irc.closes)

	// A second identical close flips nothing and issues no further action.
	again, err := svc.Close(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, []string{"#mp_12345"}, irc.closes)
}

func TestCloseUnknownMatchIsNoOp(t *testing.T) {
	svc, _, irc := newService(&fakeAPI{})

	closed, err := svc.Close(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, closed)
	assert.Empty(t, irc.closes)
}
