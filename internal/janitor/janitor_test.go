package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLobby struct {
	hostless       []string
	removedRooms   []string
	evictedCalls   []string
	evictedCount   int
	allCodes       []string
}

func (f *fakeLobby) HostlessRoomsForCleanup(ttl time.Duration) []string { return f.hostless }

func (f *fakeLobby) RemoveDisconnectedPlayers(_ context.Context, code string, _ time.Duration) (int, error) {
	f.evictedCalls = append(f.evictedCalls, code)
	return f.evictedCount, nil
}

func (f *fakeLobby) RemoveRoom(_ context.Context, code string) {
	f.removedRooms = append(f.removedRooms, code)
}

func (f *fakeLobby) AllRoomCodes() []string { return f.allCodes }

type fakeStopper struct {
	stopped []string
}

func (f *fakeStopper) StopGame(code string) { f.stopped = append(f.stopped, code) }

func TestSweep_RemovesHostlessRooms_AndStopsTheirGame(t *testing.T) {
	lobby := &fakeLobby{hostless: []string{"AAAA"}, allCodes: []string{"AAAA", "BBBB"}}
	stopper := &fakeStopper{}
	j := New(lobby, stopper, Config{Interval: time.Second, RoomWithoutHostTTL: time.Minute, DisconnectedPlayerGrace: time.Minute})

	j.sweep(context.Background())

	assert.Equal(t, []string{"AAAA"}, lobby.removedRooms)
	assert.Equal(t, []string{"AAAA"}, stopper.stopped)
	// BBBB isn't stale, so it still gets swept for disconnected players.
	assert.Equal(t, []string{"BBBB"}, lobby.evictedCalls)
}

func TestCheck_UnhealthyAfterMissedSweeps(t *testing.T) {
	lobby := &fakeLobby{}
	j := New(lobby, nil, Config{Interval: time.Millisecond})

	assert.Equal(t, "healthy", j.Check(context.Background()))

	j.sweep(context.Background())
	assert.Equal(t, "healthy", j.Check(context.Background()))

	j.lastSweep.Store(time.Now().Add(-time.Hour))
	assert.Equal(t, "unhealthy", j.Check(context.Background()))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	lobby := &fakeLobby{}
	j := New(lobby, nil, Config{Interval: time.Millisecond, RoomWithoutHostTTL: time.Minute, DisconnectedPlayerGrace: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "Run did not return after context cancellation")
	}
}
