package message

import (
	"context"
	"errors"
	"testing"

	"github.com/nfrund/refbot/internal/bancho"
	"github.com/nfrund/refbot/internal/domain"
	"github.com/nfrund/refbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMessageStore struct{}

func (failingMessageStore) Record(ctx context.Context, channel, sender, text string) (*domain.ChatMessage, error) {
	return nil, errors.New("db down")
}

func TestRecordArchivesMessage(t *testing.T) {
	backing := store.NewMemoryMessageStore()
	svc := NewService(backing, nil)

	created, err := svc.Record(context.Background(), bancho.PrivMsg{
		User:    "BanchoBot",
		Channel: "#mp_12345",
		Message: "All players are ready",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	all := backing.Messages()
	require.Len(t, all, 1)
	assert.Equal(t, "#mp_12345", all[0].Channel)
	assert.Equal(t, "BanchoBot", all[0].Sender)
	assert.Equal(t, "All players are ready", all[0].Text)
}

func TestRecordPropagatesStoreErrors(t *testing.T) {
	svc := NewService(failingMessageStore{}, nil)

	_, err := svc.Record(context.Background(), bancho.PrivMsg{Channel: "#mp_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#mp_1")
}
