package quiz

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/partyquiz/server/internal/apierr"
	"github.com/partyquiz/server/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuestions = `{
	"schemaVersion": 1,
	"packId": "general-en",
	"title": "General Knowledge",
	"locale": "en",
	"questions": [
		{"id": "q1", "text": "2+2?", "difficulty": 1, "category": "maths",
		 "options": [{"key":"A","text":"3"},{"key":"B","text":"4"},{"key":"C","text":"5"},{"key":"D","text":"6"}],
		 "correctOptionKey": "B"},
		{"id": "q2", "text": "Capital of France?", "difficulty": 2, "category": "geography",
		 "options": [{"key":"A","text":"Berlin"},{"key":"B","text":"Madrid"},{"key":"C","text":"Paris"},{"key":"D","text":"Rome"}],
		 "correctOptionKey": "C"},
		{"id": "q3", "text": "Capital of Italy?", "difficulty": 1, "category": "geography",
		 "options": [{"key":"A","text":"Berlin"},{"key":"B","text":"Madrid"},{"key":"C","text":"Paris"},{"key":"D","text":"Rome"}],
		 "correctOptionKey": "D"}
	]
}`

const testDictionary = `[
	{"word": "Ephemeral", "definition": "Lasting for a very short time"},
	{"word": "Ubiquitous", "definition": "Present everywhere"},
	{"word": "Serendipity", "definition": "A fortunate accident"},
	{"word": "Mellifluous", "definition": "Sweet sounding"}
]`

const testRanking = `[
	{"id": "r1", "prompt": "Most likely to be late"},
	{"id": "r2", "prompt": "Most likely to win the lottery"},
	{"id": "r3", "prompt": "Most likely to become famous"}
]`

func newTestStore(t *testing.T) *content.Store {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "questions.en.json"), []byte(testQuestions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dictionary.en.json"), []byte(testDictionary), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rankingstars.en.json"), []byte(testRanking), 0o644))
	store, err := content.LoadDir(dir)
	require.NoError(t, err)
	return store
}

func TestRevealQuestion_SpeedRanking(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2"}, nil)
	store := newTestStore(t)
	durations := DefaultDurations()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	StartCategoryQuizRound(state, store, durations, now)
	require.NoError(t, SelectCategory(state, store, durations, state.Question.LeaderID, state.Question.AvailableCategories[0], now))
	BeginAnswering(state, durations, now)

	correct := state.Question.CurrentQuestion.CorrectOptionKey
	require.NoError(t, SubmitAnswer(state, "p1", correct, now))
	require.NoError(t, SubmitAnswer(state, "p2", correct, now.Add(500*time.Millisecond)))

	RevealQuestion(state, durations, now.Add(1*time.Second))

	assert.Equal(t, 100, state.Scoreboard["p1"].Score)
	assert.Equal(t, 90, state.Scoreboard["p2"].Score)
	assert.Equal(t, 1, state.Scoreboard["p1"].Position)
	assert.Equal(t, 2, state.Scoreboard["p2"].Position)
}

func TestSubmitAnswer_IdempotentFirstSubmissionWins(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2"}, nil)
	store := newTestStore(t)
	durations := DefaultDurations()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	StartCategoryQuizRound(state, store, durations, now)
	require.NoError(t, SelectCategory(state, store, durations, state.Question.LeaderID, state.Question.AvailableCategories[0], now))
	BeginAnswering(state, durations, now)

	options := state.Question.CurrentQuestion.Options
	require.NoError(t, SubmitAnswer(state, "p1", options[0].Key, now))
	require.NoError(t, SubmitAnswer(state, "p1", options[1].Key, now.Add(time.Second)))

	assert.Equal(t, options[0].Key, state.Question.Answers["p1"].Value)
}

func TestSubmitAnswer_RejectsUnknownPlayer(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2"}, nil)
	store := newTestStore(t)
	durations := DefaultDurations()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	StartCategoryQuizRound(state, store, durations, now)
	require.NoError(t, SelectCategory(state, store, durations, state.Question.LeaderID, state.Question.AvailableCategories[0], now))
	BeginAnswering(state, durations, now)

	err := SubmitAnswer(state, "ghost", "A", now)
	require.Error(t, err)
	kind, ok := apierr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierr.InvalidState, kind)
}

func TestSelectCategory_RejectsNonLeader(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2"}, nil)
	store := newTestStore(t)
	durations := DefaultDurations()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	StartCategoryQuizRound(state, store, durations, now)
	notLeader := "p1"
	if state.Question.LeaderID == "p1" {
		notLeader = "p2"
	}

	err := SelectCategory(state, store, durations, notLeader, state.Question.AvailableCategories[0], now)
	require.Error(t, err)
	kind, _ := apierr.KindOf(err)
	assert.Equal(t, apierr.NotRoundLeader, kind)
}

func TestCatchUpBonus_AppliedBelowMedian(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2", "p3", "p4"}, nil)
	state.Scoreboard["p1"].Score = 500
	state.Scoreboard["p2"].Score = 400
	state.Scoreboard["p3"].Score = 100
	state.Scoreboard["p4"].Score = 0

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	answers := map[string]*AnswerRecord{
		"p1": {Value: "A", SubmittedAt: now},
		"p2": nil,
		"p3": {Value: "A", SubmittedAt: now.Add(time.Millisecond)},
		"p4": {Value: "A", SubmittedAt: now.Add(2 * time.Millisecond)},
	}
	state.applySpeedScoring(answers, func(v string) bool { return v == "A" })

	// median of {500,400,100,0} sorted -> {0,100,400,500}, middle index 2 -> 400
	assert.Equal(t, 500+100, state.Scoreboard["p1"].Score) // rank 0 (100pts), above median: no bonus
	assert.Equal(t, 400, state.Scoreboard["p2"].Score)      // unanswered, untouched
	assert.Equal(t, 100+90+catchUpBonus, state.Scoreboard["p3"].Score)
	assert.Equal(t, 0+85+catchUpBonus, state.Scoreboard["p4"].Score)
}

func TestDictionaryRound_IsAlwaysLast(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2"}, nil)
	assert.Equal(t, RoundDictionary, state.PlannedRounds[len(state.PlannedRounds)-1])
}

func TestRankingReveal_TieSharesWin(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2", "p3", "p4"}, nil)
	store := newTestStore(t)
	durations := DefaultDurations()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	StartRankingRound(state, store, durations, now)
	BeginRankingVoting(state, durations, now)

	require.NoError(t, SubmitRankingVote(state, "p1", "p3", now))
	require.NoError(t, SubmitRankingVote(state, "p2", "p4", now))
	require.NoError(t, SubmitRankingVote(state, "p3", "p4", now))
	require.NoError(t, SubmitRankingVote(state, "p4", "p3", now))

	RevealRanking(state, durations, now.Add(time.Second))

	winners := state.WinnerPlayerIDs()
	assert.ElementsMatch(t, []string{"p3", "p4"}, winners)
}

// beginAnsweringPhase fast-forwards a fresh two-player game into the
// Answering phase of a category-quiz question, the setup every booster
// test shares.
func beginAnsweringPhase(t *testing.T, playerIDs ...string) (*QuizGameState, time.Time) {
	t.Helper()
	state := NewGameState("ABCD", "en", playerIDs, nil)
	store := newTestStore(t)
	durations := DefaultDurations()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	StartCategoryQuizRound(state, store, durations, now)
	require.NoError(t, SelectCategory(state, store, durations, state.Question.LeaderID, state.Question.AvailableCategories[0], now))
	BeginAnswering(state, durations, now)
	return state, now
}

func TestActivateBooster_ShieldBlocksNope(t *testing.T) {
	state, now := beginAnsweringPhase(t, "p1", "p2")
	state.Boosters["p1"] = &BoosterAssignment{PlayerID: "p1", Kind: BoosterShield}
	state.Boosters["p2"] = &BoosterAssignment{PlayerID: "p2", Kind: BoosterNope}

	_, err := ActivateBooster(state, "p1", "", now)
	require.NoError(t, err)

	_, err = ActivateBooster(state, "p2", "p1", now)
	require.Error(t, err)
	kind, ok := apierr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierr.BoosterBlockedByShield, kind)

	// A blocked activation must not consume the booster.
	assert.False(t, state.Boosters["p2"].Used)
	assert.True(t, state.Boosters["p1"].Used)
}

func TestActivateBooster_WildcardAllowsResubmission(t *testing.T) {
	state, now := beginAnsweringPhase(t, "p1", "p2")
	state.Boosters["p1"] = &BoosterAssignment{PlayerID: "p1", Kind: BoosterWildcard}

	options := state.Question.CurrentQuestion.Options
	require.NoError(t, SubmitAnswer(state, "p1", options[0].Key, now))

	_, err := ActivateBooster(state, "p1", "", now)
	require.NoError(t, err)

	require.NoError(t, SubmitAnswer(state, "p1", options[1].Key, now.Add(time.Second)))
	assert.Equal(t, options[1].Key, state.Question.Answers["p1"].Value)
}

func TestActivateBooster_LateLockExtendsPersonalDeadline(t *testing.T) {
	state, now := beginAnsweringPhase(t, "p1", "p2")
	state.Boosters["p1"] = &BoosterAssignment{PlayerID: "p1", Kind: BoosterLateLock}

	_, err := ActivateBooster(state, "p1", "", now)
	require.NoError(t, err)

	assert.Equal(t, state.PhaseEndsAt.Add(lateLockExtension), state.EffectiveDeadline())

	// Past the room deadline but inside the holder's extension: accepted
	// for the holder, rejected for everyone else.
	late := state.PhaseEndsAt.Add(time.Second)
	options := state.Question.CurrentQuestion.Options
	require.NoError(t, SubmitAnswer(state, "p1", options[0].Key, late))

	err = SubmitAnswer(state, "p2", options[0].Key, late)
	require.Error(t, err)
	kind, _ := apierr.KindOf(err)
	assert.Equal(t, apierr.InvalidState, kind)
}

func TestActivateBooster_SingleUse(t *testing.T) {
	state, now := beginAnsweringPhase(t, "p1", "p2")
	state.Boosters["p1"] = &BoosterAssignment{PlayerID: "p1", Kind: BoosterLateLock}

	_, err := ActivateBooster(state, "p1", "", now)
	require.NoError(t, err)

	_, err = ActivateBooster(state, "p1", "", now)
	require.Error(t, err)
	kind, _ := apierr.KindOf(err)
	assert.Equal(t, apierr.InvalidState, kind)
}

func TestAllPlayersAnswered_RespectsNoped(t *testing.T) {
	state := NewGameState("ABCD", "en", []string{"p1", "p2"}, nil)
	store := newTestStore(t)
	durations := DefaultDurations()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	StartCategoryQuizRound(state, store, durations, now)
	require.NoError(t, SelectCategory(state, store, durations, state.Question.LeaderID, state.Question.AvailableCategories[0], now))
	BeginAnswering(state, durations, now)

	state.Boosters["p1"] = &BoosterAssignment{PlayerID: "p1", Kind: BoosterNope}
	_, err := ActivateBooster(state, "p1", "p2", now)
	require.NoError(t, err)

	eligible := state.EligiblePlayerIDs()
	assert.NotContains(t, eligible, "p2")

	require.NoError(t, SubmitAnswer(state, "p1", "A", now))
	assert.True(t, AllPlayersAnswered(state, eligible))
}
