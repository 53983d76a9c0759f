package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/refbot/internal/domain"
)

type fakeMaker struct {
	names []string
}

func (f *fakeMaker) MpMakePrivate(name string) {
	f.names = append(f.names, name)
}

type fakeCloser struct {
	ids []int64
	err error
}

func (f *fakeCloser) Close(ctx context.Context, osuMatchID int64) (*domain.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ids = append(f.ids, osuMatchID)
	return &domain.Match{OsuMatchID: osuMatchID, Closed: true}, nil
}

type fakeMsg struct {
	subject string
	data    []byte
	acked   bool
	naked   bool
	termed  bool
}

func (f *fakeMsg) Subject() string { return f.subject }
func (f *fakeMsg) Data() []byte    { return f.data }
func (f *fakeMsg) Ack() error      { f.acked = true; return nil }
func (f *fakeMsg) Nak() error      { f.naked = true; return nil }
func (f *fakeMsg) Term() error     { f.termed = true; return nil }

func newTestConsumer(closeErr error) (*Consumer, *fakeMaker, *fakeCloser) {
	maker := &fakeMaker{}
	closer := &fakeCloser{err: closeErr}
	return NewConsumer(nil, maker, closer, nil), maker, closer
}

func TestCreateCommandIssuesMakePrivate(t *testing.T) {
	c, maker, _ := newTestConsumer(nil)
	msg := &fakeMsg{subject: SubjectCreateMatch, data: []byte(`{"name":"OWC: (US) vs (KR)"}`)}

	c.process(context.Background(), msg, c.handleCreate)

	assert.Equal(t, []string{"OWC: (US) vs (KR)"}, maker.names)
	assert.True(t, msg.acked)
	assert.False(t, msg.naked)
	assert.False(t, msg.termed)
}

func TestCloseCommandClosesMatch(t *testing.T) {
	c, _, closer := newTestConsumer(nil)
	msg := &fakeMsg{subject: SubjectCloseMatch, data: []byte(`{"osuMatchId":12345}`)}

	c.process(context.Background(), msg, c.handleClose)

	assert.Equal(t, []int64{12345}, closer.ids)
	assert.True(t, msg.acked)
}

func TestMalformedPayloadIsTerminated(t *testing.T) {
	c, maker, closer := newTestConsumer(nil)

	for _, payload := range []string{
		"not json at all",
		`{"name":""}`,
		`{}`,
		`{"osuMatchId":"12345"}`,
	} {
		create := &fakeMsg{subject: SubjectCreateMatch, data: []byte(payload)}
		c.process(context.Background(), create, c.handleCreate)
		assert.True(t, create.termed, "payload %q", payload)
		assert.False(t, create.acked, "payload %q", payload)
		assert.False(t, create.naked, "payload %q", payload)
	}

	closeMsg := &fakeMsg{subject: SubjectCloseMatch, data: []byte(`{"osuMatchId":0}`)}
	c.process(context.Background(), closeMsg, c.handleClose)
	assert.True(t, closeMsg.termed)

	// A terminated command never reaches a handler.
	assert.Empty(t, maker.names)
	assert.Empty(t, closer.ids)
}

func TestHandlerFailureIsNakedForRedelivery(t *testing.T) {
	c, _, _ := newTestConsumer(errors.New("store unavailable"))
	msg := &fakeMsg{subject: SubjectCloseMatch, data: []byte(`{"osuMatchId":12345}`)}

	c.process(context.Background(), msg, c.handleClose)

	assert.True(t, msg.naked)
	assert.False(t, msg.acked)
	assert.False(t, msg.termed)
}

func TestCloseOfUnknownMatchStillAcks(t *testing.T) {
	// The coordinator treats unknown ids as an idempotent no-op, so the
	// delivery must not be redelivered forever.
	c, _, closer := newTestConsumer(nil)
	msg := &fakeMsg{subject: SubjectCloseMatch, data: []byte(`{"osuMatchId":999}`)}

	c.process(context.Background(), msg, c.handleClose)

	require.Equal(t, []int64{999}, closer.ids)
	assert.True(t, msg.acked)
}
