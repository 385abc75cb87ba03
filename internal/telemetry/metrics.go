// Package telemetry registers the bot's Prometheus metrics.
//
// Call [Init] once at startup; the record helpers are no-ops until then.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// TracksRegistered counts shared track links by outcome (created, existing, invalid, fetch_failed, error).
	TracksRegistered *prometheus.CounterVec
	// Reactions counts reaction events by direction and outcome.
	Reactions *prometheus.CounterVec
	// Commands counts slash commands by name and outcome.
	Commands *prometheus.CounterVec
	// ExternalRequests counts outbound API calls by service and outcome.
	ExternalRequests *prometheus.CounterVec
	// RequestDuration observes inbound HTTP handling time by route.
	RequestDuration *prometheus.HistogramVec
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		TracksRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ratebot_tracks_registered_total",
			Help: "Shared track links by outcome",
		}, []string{"outcome"})
		Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ratebot_reactions_total",
			Help: "Reaction events by direction and outcome",
		}, []string{"direction", "outcome"})
		Commands = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ratebot_commands_total",
			Help: "Slash commands by name and outcome",
		}, []string{"command", "outcome"})
		ExternalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ratebot_external_requests_total",
			Help: "Outbound API requests by service and outcome",
		}, []string{"service", "outcome"})
		RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratebot_http_request_duration_seconds",
			Help:    "Inbound HTTP request duration seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})
	})
}

func inc(vec *prometheus.CounterVec, labels ...string) {
	if vec != nil {
		vec.WithLabelValues(labels...).Inc()
	}
}

// RecordTrack counts a shared link outcome.
func RecordTrack(outcome string) { inc(TracksRegistered, outcome) }

// RecordReaction counts a reaction event outcome.
func RecordReaction(direction, outcome string) { inc(Reactions, direction, outcome) }

// RecordCommand counts a slash command outcome.
func RecordCommand(command, outcome string) { inc(Commands, command, outcome) }

// RecordExternal counts an outbound API call outcome.
func RecordExternal(service, outcome string) { inc(ExternalRequests, service, outcome) }

// ObserveRequest records seconds spent handling route.
func ObserveRequest(route string, seconds float64) {
	if RequestDuration != nil {
		RequestDuration.WithLabelValues(route).Observe(seconds)
	}
}
