package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the party quiz server.
//
// Naming convention: namespace_subsystem_name
//   - namespace: partyquiz (application-level grouping)
//   - subsystem: room, transport, quiz, rate_limit, janitor (feature-level grouping)
//   - name: specific metric (rooms_active, commands_total, etc.)
//
// Metric Types:
//   - Gauge: current state (rooms, connections, players in a room)
//   - Counter: cumulative events (commands processed, errors)
//   - Histogram: latency/duration distributions (command processing time,
//     phase duration)
var (
	// ActiveConnections tracks the current number of live websocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "partyquiz",
		Subsystem: "transport",
		Name:      "connections_active",
		Help:      "Current number of active websocket connections",
	})

	// ActiveRooms tracks the current number of rooms in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "partyquiz",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of rooms in the registry",
	})

	// RoomPlayers tracks the number of players currently in each room.
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "partyquiz",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players currently in each room",
	}, []string{"room_code"})

	// CommandsTotal tracks inbound transport commands processed.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "partyquiz",
		Subsystem: "transport",
		Name:      "commands_total",
		Help:      "Total inbound commands processed",
	}, []string{"command", "status"})

	// CommandProcessingDuration tracks the time spent handling an inbound command.
	CommandProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "partyquiz",
		Subsystem: "transport",
		Name:      "command_processing_seconds",
		Help:      "Time spent processing an inbound command",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"command"})

	// PhaseTransitionsTotal tracks quiz engine phase transitions.
	PhaseTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "partyquiz",
		Subsystem: "quiz",
		Name:      "phase_transitions_total",
		Help:      "Total quiz phase transitions",
	}, []string{"phase"})

	// PhaseDuration tracks how long a room actually spent in a timed phase.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "partyquiz",
		Subsystem: "quiz",
		Name:      "phase_duration_seconds",
		Help:      "Wall-clock time spent in a timed phase before transition",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	// AnswersSubmittedTotal tracks submitted answers/votes by round type. Its
	// "correct" label is "true" when the submission was accepted and "false"
	// when it was rejected; it does not record whether the answer was right.
	AnswersSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "partyquiz",
		Subsystem: "quiz",
		Name:      "answers_submitted_total",
		Help:      "Total answers submitted",
	}, []string{"round_type", "correct"})

	// RateLimitExceeded tracks rejected inbound commands due to rate limiting.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "partyquiz",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of commands that exceeded the rate limit",
	}, []string{"action", "reason"})

	// JanitorRoomsRemoved tracks rooms removed by the janitor, by reason.
	JanitorRoomsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "partyquiz",
		Subsystem: "janitor",
		Name:      "rooms_removed_total",
		Help:      "Total rooms removed by the janitor",
	}, []string{"reason"})

	// JanitorPlayersRemoved tracks disconnected players evicted by the janitor.
	JanitorPlayersRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "partyquiz",
		Subsystem: "janitor",
		Name:      "players_removed_total",
		Help:      "Total disconnected players evicted by the janitor",
	})
)

// IncConnection increments the active websocket connection gauge.
func IncConnection() {
	ActiveConnections.Inc()
}

// DecConnection decrements the active websocket connection gauge.
func DecConnection() {
	ActiveConnections.Dec()
}
