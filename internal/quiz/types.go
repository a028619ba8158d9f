// Package quiz is the pure Quiz Engine: a collection of functions over
// QuizGameState that perform no I/O and start no timers. The Quiz
// Orchestrator is the only caller, and is the one that couples these
// transitions to real time and to broadcasts.
package quiz

import (
	"time"

	"github.com/partyquiz/server/internal/content"
	"k8s.io/utils/set"
)

// RoundType is one of the three playable round kinds.
type RoundType string

const (
	RoundCategoryQuiz RoundType = "CategoryQuiz"
	RoundRankingStars RoundType = "RankingStars"
	RoundDictionary   RoundType = "DictionaryGame"
)

// Phase is a point in the per-round question-level sub-machine, plus the
// two phases shared across all round types (Scoreboard, Finished).
type Phase string

const (
	PhaseCategorySelection   Phase = "CategorySelection"
	PhaseQuestion            Phase = "Question"
	PhaseAnswering           Phase = "Answering"
	PhaseReveal              Phase = "Reveal"
	PhaseDictionaryWord      Phase = "DictionaryWord"
	PhaseDictionaryAnswering Phase = "DictionaryAnswering"
	PhaseRankingPrompt       Phase = "RankingPrompt"
	PhaseRankingVoting       Phase = "RankingVoting"
	PhaseRankingReveal       Phase = "RankingReveal"
	PhaseScoreboard          Phase = "Scoreboard"
	PhaseFinished            Phase = "Finished"
)

// Durations are the tunable timed-phase lengths. Only CategorySelection's
// and Answering's lengths are left unstated by the design the orchestrator
// follows; the rest are fixed by it.
type Durations struct {
	CategorySelection time.Duration
	QuestionDisplay   time.Duration
	Answering         time.Duration
	Reveal            time.Duration
	DictionaryWord    time.Duration
	DictionaryAnswer  time.Duration
	RankingPrompt     time.Duration
	RankingVoting     time.Duration
	RankingReveal     time.Duration
	Scoreboard        time.Duration
}

// DefaultDurations is the production phase-length table.
func DefaultDurations() Durations {
	return Durations{
		CategorySelection: 10 * time.Second,
		QuestionDisplay:   3 * time.Second,
		Answering:         15 * time.Second,
		Reveal:            5 * time.Second,
		DictionaryWord:    3 * time.Second,
		DictionaryAnswer:  12 * time.Second,
		RankingPrompt:     2 * time.Second,
		RankingVoting:     15 * time.Second,
		RankingReveal:     6 * time.Second,
		Scoreboard:        5 * time.Second,
	}
}

// questionsPerCategoryRound, wordsPerRound and promptsPerRound are all fixed at 3.
const itemsPerRound = 3

// PlayerScore is one player's running tally and per-question bookkeeping.
// The LastX fields describe the most recently revealed
// question/word/prompt only; they are overwritten on every reveal.
type PlayerScore struct {
	PlayerID  string
	Score     int
	Position  int
	Connected bool

	LastAnsweredCorrectly bool
	LastSelectedOption    string
	LastPointsEarned      int
	LastSpeedBonus        bool
	LastRankingStar       bool
	LastRankingVotes      int
}

// AnswerRecord is one submission: an option key for CategoryQuiz, a
// stringified index for DictionaryGame, or a target player id for
// RankingStars votes.
type AnswerRecord struct {
	Value       string
	SubmittedAt time.Time
}

// QuestionRoundState is the sub-state for an in-progress CategoryQuiz round.
type QuestionRoundState struct {
	LeaderID            string
	AvailableCategories []string
	SelectedCategory    string
	QuestionsAsked      int
	CurrentQuestion     *content.Question
	Answers             map[string]*AnswerRecord
}

// DictionaryRoundState is the sub-state for an in-progress DictionaryGame round.
type DictionaryRoundState struct {
	WordsAsked  int
	CurrentWord *content.DictionaryDraw
	Options     []string
	Answers     map[string]*AnswerRecord
}

// RankingRoundState is the sub-state for an in-progress RankingStars round.
type RankingRoundState struct {
	PromptsAsked  int
	CurrentPrompt *content.RankingPrompt
	Votes         map[string]*AnswerRecord
}

// QuizGameState is the entire state of one room's in-progress game. Every
// Quiz Engine function takes a *QuizGameState and mutates it in place; the
// Orchestrator is the only thing that persists or broadcasts it.
type QuizGameState struct {
	RoomCode string
	Locale   string

	PlannedRounds []RoundType
	RoundIndex    int
	CurrentRound  RoundType

	Question   *QuestionRoundState
	Dictionary *DictionaryRoundState
	Ranking    *RankingRoundState

	Phase       Phase
	PhaseEndsAt time.Time

	Scoreboard    map[string]*PlayerScore
	LeaderHistory []string

	UsedCategories set.Set[string]
	UsedQuestions  set.Set[string]
	UsedWords      set.Set[string]
	UsedPrompts    set.Set[string]

	Boosters map[string]*BoosterAssignment

	// ActiveEffects holds the resolved effect of every booster activated
	// for the current question, keyed by the player it affects (the
	// target for Nope, the activator itself for Shield/Wildcard/LateLock).
	// Cleared at the start of every question/word/prompt.
	ActiveEffects map[string]*Effect

	// Names is the display name snapshot taken at game start, keyed by
	// player id. It exists so the engine's own tie-break ordering
	// (score desc, displayName asc) can be computed without reaching
	// back out to the room roster, which the engine never holds live.
	Names map[string]string
}

// NewGameState builds the default planned-round sequence (two CategoryQuiz,
// one RankingStars, one DictionaryGame - the last round is always
// DictionaryGame) and a zeroed scoreboard for playerIDs. names maps
// playerId -> displayName as of game start; a playerID missing from names
// (or a nil names map) falls back to using the id itself so callers that
// don't care about name-ordering (e.g. tests) can pass nil.
func NewGameState(roomCode, locale string, playerIDs []string, names map[string]string) *QuizGameState {
	scoreboard := make(map[string]*PlayerScore, len(playerIDs))
	snapshotNames := make(map[string]string, len(playerIDs))
	for _, id := range playerIDs {
		scoreboard[id] = &PlayerScore{PlayerID: id, Connected: true}
		snapshotNames[id] = displayNameOrID(names, id)
	}

	return &QuizGameState{
		RoomCode:       roomCode,
		Locale:         locale,
		PlannedRounds:  []RoundType{RoundCategoryQuiz, RoundCategoryQuiz, RoundRankingStars, RoundDictionary},
		RoundIndex:     -1,
		Phase:          "",
		Scoreboard:     scoreboard,
		UsedCategories: set.New[string](),
		UsedQuestions:  set.New[string](),
		UsedWords:      set.New[string](),
		UsedPrompts:    set.New[string](),
		Boosters:       make(map[string]*BoosterAssignment),
		ActiveEffects:  make(map[string]*Effect),
		Names:          snapshotNames,
	}
}

// displayNameOrID returns names[id], falling back to id itself when the
// name is absent or empty.
func displayNameOrID(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

// EligiblePlayerIDs returns the connected players not currently blocked by a
// booster effect (e.g. Noped). Used for early-advancement checks.
func (s *QuizGameState) EligiblePlayerIDs() []string {
	var out []string
	for id, p := range s.Scoreboard {
		if !p.Connected {
			continue
		}
		if eff, ok := s.ActiveEffects[id]; ok && eff.IsNoped {
			continue
		}
		out = append(out, id)
	}
	return out
}

// resetActiveEffects clears per-question booster effects. Called whenever a
// new question/word/prompt begins.
func (s *QuizGameState) resetActiveEffects() {
	s.ActiveEffects = make(map[string]*Effect)
}

// medianScore returns the median pre-reveal score across all scoreboard
// entries, used for the catch-up bonus.
func (s *QuizGameState) medianScore() int {
	scores := make([]int, 0, len(s.Scoreboard))
	for _, p := range s.Scoreboard {
		scores = append(scores, p.Score)
	}
	return medianOf(scores)
}

// recomputePositions ranks players by (score desc, displayName asc) and
// writes back the Position field, using the Names snapshot taken at game
// start for the tie-break.
func (s *QuizGameState) recomputePositions() {
	ids := make([]string, 0, len(s.Scoreboard))
	for id := range s.Scoreboard {
		ids = append(ids, id)
	}
	sortByScoreDescThenName(ids, s.Scoreboard, s.Names)
	for i, id := range ids {
		s.Scoreboard[id].Position = i + 1
	}
}
