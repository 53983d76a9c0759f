// Package broker connects the bot to NATS JetStream: it reconciles the stream
// topology at startup, consumes remote commands from durable consumers, and
// fans observed chat events back out with content-hash deduplication.
//
// Subject and durable names are a versioned wire contract shared with the
// services on the other side of the broker; renaming any of them is a breaking
// change.
package broker

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// EventsStream carries everything the bot observes on the chat side.
	EventsStream = "EVENTS"

	// CommandsStream carries commands addressed to the bot.
	CommandsStream = "COMMANDS"
)

const (
	// SubjectPrivMsg carries every raw channel message the bot sees.
	SubjectPrivMsg = "events.osu_privmsg"

	// SubjectChatEvent carries classified match-lifecycle chat events.
	SubjectChatEvent = "events.osu.chat"

	// SubjectCreateMatch requests a new private tournament match.
	SubjectCreateMatch = "cmd.osu.create-private-match"

	// SubjectCloseMatch requests closure of a tracked match.
	SubjectCloseMatch = "cmd.osu.close-match"
)

const (
	// DurableCreateMatch names the durable consumer for match creation.
	DurableCreateMatch = "osu_create_private_match"

	// DurableCloseMatch names the durable consumer for match closure.
	DurableCloseMatch = "osu_close_match"
)

// duplicateWindow is how long a stream remembers message ids for publish
// deduplication. It is set explicitly on every managed stream: the server
// defaults an unset window to a non-zero value, and a config field we manage
// must never disagree with what the server persists, or reconciliation would
// see drift on every startup.
const duplicateWindow = 2 * time.Minute

func eventsStreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       EventsStream,
		Subjects:   []string{"events.>"},
		Storage:    jetstream.FileStorage,
		Duplicates: duplicateWindow,
	}
}

func commandsStreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       CommandsStream,
		Subjects:   []string{SubjectCreateMatch, SubjectCloseMatch},
		Storage:    jetstream.FileStorage,
		Duplicates: duplicateWindow,
	}
}

func commandConsumerConfigs() []jetstream.ConsumerConfig {
	return []jetstream.ConsumerConfig{
		{
			Durable:       DurableCreateMatch,
			FilterSubject: SubjectCreateMatch,
			AckPolicy:     jetstream.AckExplicitPolicy,
		},
		{
			Durable:       DurableCloseMatch,
			FilterSubject: SubjectCloseMatch,
			AckPolicy:     jetstream.AckExplicitPolicy,
		},
	}
}
