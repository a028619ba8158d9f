package autoplay

import (
	"context"
	"testing"
	"time"

	"github.com/partyquiz/server/internal/lobby"
	"github.com/partyquiz/server/internal/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGames struct {
	snapshot       quiz.QuizSnapshot
	hasSnapshot    bool
	submittedKey   string
	submittedCalls int
}

func (f *fakeGames) SnapshotFor(_, _ string) (quiz.QuizSnapshot, bool) {
	return f.snapshot, f.hasSnapshot
}

func (f *fakeGames) SubmitAnswer(_ context.Context, _, _, optionKey string) error {
	f.submittedKey = optionKey
	f.submittedCalls++
	return nil
}

func (f *fakeGames) SubmitRankingVote(_ context.Context, _, _, votedForID string) error {
	f.submittedKey = votedForID
	f.submittedCalls++
	return nil
}

type fakeRooms struct {
	bots []lobby.BotPlayer
}

func (f *fakeRooms) BotPlayers() []lobby.BotPlayer { return f.bots }

func TestAct_SubmitsALegalAnswerDuringAnswering(t *testing.T) {
	games := &fakeGames{
		hasSnapshot: true,
		snapshot: quiz.QuizSnapshot{
			Phase:   quiz.PhaseAnswering,
			Options: []quiz.OptionView{{Key: "A", Text: "foo"}, {Key: "B", Text: "bar"}},
		},
	}
	rooms := &fakeRooms{bots: []lobby.BotPlayer{{RoomCode: "ABCD", PlayerID: "bot1"}}}
	d := New(games, rooms, Config{PollInterval: time.Millisecond, MinActionDelay: 0, MaxActionDelay: 0}, 1)

	d.act(context.Background(), lobby.BotPlayer{RoomCode: "ABCD", PlayerID: "bot1"})

	assert.Equal(t, 1, games.submittedCalls)
	assert.Contains(t, []string{"A", "B"}, games.submittedKey)
}

func TestAct_NoOpWhenPhaseHasNoAction(t *testing.T) {
	games := &fakeGames{hasSnapshot: true, snapshot: quiz.QuizSnapshot{Phase: quiz.PhaseScoreboard}}
	rooms := &fakeRooms{}
	d := New(games, rooms, Config{PollInterval: time.Millisecond}, 1)

	d.act(context.Background(), lobby.BotPlayer{RoomCode: "ABCD", PlayerID: "bot1"})

	assert.Equal(t, 0, games.submittedCalls)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	games := &fakeGames{}
	rooms := &fakeRooms{}
	d := New(games, rooms, Config{PollInterval: time.Millisecond}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "Run did not return after context cancellation")
	}
}
