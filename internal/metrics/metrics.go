// Package metrics provides Prometheus metrics for the referee bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsClassifiedTotal counts chat lines classified into typed events,
	// by bus and event tag.
	EventsClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refbot_events_classified_total",
		Help: "Total number of classified events, by bus and event.",
	}, []string{"bus", "event"})

	// CommandsProcessedTotal counts broker command deliveries, by subject and
	// outcome (ack, nak, term).
	CommandsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refbot_commands_processed_total",
		Help: "Total number of processed broker commands, by subject and outcome.",
	}, []string{"subject", "outcome"})

	// PublishFailuresTotal counts failed event publishes, by subject.
	PublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refbot_publish_failures_total",
		Help: "Total number of failed broker publishes, by subject.",
	}, []string{"subject"})

	// MessagesRecordedTotal counts chat messages archived to the store.
	MessagesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refbot_messages_recorded_total",
		Help: "Total number of chat messages archived.",
	})
)

// RecordEventClassified increments the classification counter.
func RecordEventClassified(bus, event string) {
	EventsClassifiedTotal.WithLabelValues(bus, event).Inc()
}

// RecordCommandProcessed increments the command counter for one delivery.
func RecordCommandProcessed(subject, outcome string) {
	CommandsProcessedTotal.WithLabelValues(subject, outcome).Inc()
}

// RecordPublishFailure increments the publish failure counter.
func RecordPublishFailure(subject string) {
	PublishFailuresTotal.WithLabelValues(subject).Inc()
}

// RecordMessageRecorded increments the archived message counter.
func RecordMessageRecorded() {
	MessagesRecordedTotal.Inc()
}
