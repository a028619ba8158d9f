package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCommandsTotal(t *testing.T) {
	CommandsTotal.WithLabelValues("submit_answer", "success").Inc()

	val := testutil.ToFloat64(CommandsTotal.WithLabelValues("submit_answer", "success"))
	if val < 1 {
		t.Errorf("expected CommandsTotal to be at least 1, got %v", val)
	}
}

func TestRoomPlayersGauge(t *testing.T) {
	RoomPlayers.WithLabelValues("ABCD").Set(3)

	val := testutil.ToFloat64(RoomPlayers.WithLabelValues("ABCD"))
	if val != 3 {
		t.Errorf("expected RoomPlayers to be 3, got %v", val)
	}
}

func TestConnectionGauge(t *testing.T) {
	before := testutil.ToFloat64(ActiveConnections)
	IncConnection()
	IncConnection()
	DecConnection()

	after := testutil.ToFloat64(ActiveConnections)
	if after != before+1 {
		t.Errorf("expected ActiveConnections to increase by 1, got %v -> %v", before, after)
	}
}

func TestPhaseDurationHistogram(t *testing.T) {
	PhaseDuration.WithLabelValues("Answering").Observe(3.5)
	// No panic implies correct registration; histograms aren't easily asserted by value.
}
