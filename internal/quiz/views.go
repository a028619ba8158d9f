package quiz

import (
	"sort"
	"time"
)

// ScoreboardEntry is the wire-safe view of one player's PlayerScore, with
// the display name the orchestrator looks up from the room roster (the
// engine's own Names snapshot is used only for tie-break ordering).
type ScoreboardEntry struct {
	PlayerID              string `json:"playerId"`
	DisplayName           string `json:"displayName"`
	Score                 int    `json:"score"`
	Position              int    `json:"position"`
	AnsweredCorrectly     bool   `json:"answeredCorrectly,omitempty"`
	SelectedOption        string `json:"selectedOption,omitempty"`
	PointsEarnedLastQ     int    `json:"pointsEarnedLastQuestion,omitempty"`
	SpeedBonus            bool   `json:"speedBonus,omitempty"`
	RankingStar           bool   `json:"rankingStar,omitempty"`
	RankingVotesReceived  int    `json:"rankingVotesReceived,omitempty"`
	HasAnswered           bool   `json:"hasAnswered"`
	Connected             bool   `json:"connected"`
}

// OptionView is the wire-safe view of a single answer option.
type OptionView struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// PrivateViewerEffects surfaces the effects of boosters active against (or
// held by) the viewer this question, so the transport layer can render a
// personalised deadline, option filter, or answer-change affordance
// without reaching back into the engine.
type PrivateViewerEffects struct {
	IsNoped          bool  `json:"isNoped,omitempty"`
	ExtendedDeadline int64 `json:"extendedDeadlineMs,omitempty"`
	CanChangeAnswer  bool  `json:"canChangeAnswer,omitempty"`
}

// QuizSnapshot is the QuizStateUpdated broadcast DTO. Two invariants are
// enforced by View itself, not by the caller: CorrectOptionKey is empty
// outside reveal-ish phases, and another player's submitted answer is
// never exposed before reveal.
type QuizSnapshot struct {
	RoomCode            string                `json:"roomCode"`
	Locale              string                `json:"locale"`
	Phase               Phase                 `json:"phase"`
	RemainingSeconds    int                   `json:"remainingSeconds"`
	RoundNumber         int                   `json:"roundNumber"`
	RoundType           RoundType             `json:"roundType"`
	LeaderID            string                `json:"leaderId,omitempty"`
	Category            string                `json:"category,omitempty"`
	AvailableCategories []string              `json:"availableCategories,omitempty"`
	QuestionText        string                `json:"questionText,omitempty"`
	Options             []OptionView          `json:"options,omitempty"`
	CorrectOptionKey    string                `json:"correctOptionKey,omitempty"`
	Explanation         string                `json:"explanation,omitempty"`
	WordOptions         []string              `json:"wordOptions,omitempty"`
	Word                string                `json:"word,omitempty"`
	Prompt              string                `json:"prompt,omitempty"`
	WinnerPlayerIDs     []string              `json:"winnerPlayerIds,omitempty"`
	Scoreboard          []ScoreboardEntry     `json:"scoreboard"`
	Private             *PrivateViewerEffects `json:"private,omitempty"`
}

var revealPhases = map[Phase]bool{
	PhaseReveal:        true,
	PhaseRankingReveal: true,
	PhaseScoreboard:    true,
	PhaseFinished:      true,
}

// View renders s into the broadcast DTO as seen by viewerID (empty string
// for the host, who always gets the baseline, non-private view). names
// maps playerId -> displayName from the room roster.
func View(s *QuizGameState, viewerID string, names map[string]string, now time.Time) QuizSnapshot {
	remaining := 0
	if !s.PhaseEndsAt.IsZero() {
		if d := s.PhaseEndsAt.Sub(now); d > 0 {
			remaining = int(d.Seconds())
		}
	}

	snap := QuizSnapshot{
		RoomCode:         s.RoomCode,
		Locale:           s.Locale,
		Phase:            s.Phase,
		RemainingSeconds: remaining,
		RoundNumber:      s.RoundNumber(),
		RoundType:        s.CurrentRound,
		Scoreboard:       buildScoreboard(s, names),
	}

	switch s.CurrentRound {
	case RoundCategoryQuiz:
		populateCategoryQuizView(&snap, s)
	case RoundDictionary:
		populateDictionaryView(&snap, s)
	case RoundRankingStars:
		populateRankingView(&snap, s)
	}

	if viewerID != "" {
		snap.Private = viewerPrivateEffects(s, viewerID)
	}

	return snap
}

func populateCategoryQuizView(snap *QuizSnapshot, s *QuizGameState) {
	if s.Question == nil {
		return
	}
	snap.LeaderID = s.Question.LeaderID
	if s.Phase == PhaseCategorySelection {
		snap.AvailableCategories = s.Question.AvailableCategories
	}
	snap.Category = s.Question.SelectedCategory

	q := s.Question.CurrentQuestion
	if q == nil {
		return
	}
	if s.Phase == PhaseQuestion || s.Phase == PhaseAnswering || revealPhases[s.Phase] {
		snap.QuestionText = q.Text
		for _, opt := range q.Options {
			snap.Options = append(snap.Options, OptionView{Key: opt.Key, Text: opt.Text})
		}
	}
	if revealPhases[s.Phase] {
		snap.CorrectOptionKey = q.CorrectOptionKey
		snap.Explanation = q.Explanation
	}
}

func populateDictionaryView(snap *QuizSnapshot, s *QuizGameState) {
	if s.Dictionary == nil || s.Dictionary.CurrentWord == nil {
		return
	}
	if s.Phase == PhaseDictionaryWord || s.Phase == PhaseDictionaryAnswering || revealPhases[s.Phase] {
		snap.Word = s.Dictionary.CurrentWord.Word
		snap.WordOptions = s.Dictionary.Options
	}
	if revealPhases[s.Phase] {
		snap.CorrectOptionKey = indexToString(CorrectIndex(s.Dictionary.CurrentWord, s.Dictionary.Options))
	}
}

func populateRankingView(snap *QuizSnapshot, s *QuizGameState) {
	if s.Ranking == nil || s.Ranking.CurrentPrompt == nil {
		return
	}
	if s.Phase == PhaseRankingPrompt || s.Phase == PhaseRankingVoting || revealPhases[s.Phase] {
		snap.Prompt = s.Ranking.CurrentPrompt.Prompt
	}
	if s.Phase == PhaseRankingReveal {
		snap.WinnerPlayerIDs = s.WinnerPlayerIDs()
	}
}

func viewerPrivateEffects(s *QuizGameState, viewerID string) *PrivateViewerEffects {
	eff, ok := s.ActiveEffects[viewerID]
	if !ok {
		return nil
	}
	return &PrivateViewerEffects{
		IsNoped:          eff.IsNoped,
		ExtendedDeadline: eff.ExtendedDeadline.Milliseconds(),
		CanChangeAnswer:  eff.CanChangeAnswer,
	}
}

func buildScoreboard(s *QuizGameState, names map[string]string) []ScoreboardEntry {
	ids := make([]string, 0, len(s.Scoreboard))
	for id := range s.Scoreboard {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.Scoreboard[ids[i]].Position < s.Scoreboard[ids[j]].Position })

	answers := currentAnswerMap(s)
	showPerQuestion := revealPhases[s.Phase]

	entries := make([]ScoreboardEntry, 0, len(ids))
	for _, id := range ids {
		p := s.Scoreboard[id]
		entry := ScoreboardEntry{
			PlayerID:    id,
			DisplayName: names[id],
			Score:       p.Score,
			Position:    p.Position,
			Connected:   p.Connected,
		}
		if rec, ok := answers[id]; ok && rec != nil {
			entry.HasAnswered = true
		}
		if showPerQuestion {
			entry.AnsweredCorrectly = p.LastAnsweredCorrectly
			entry.SelectedOption = p.LastSelectedOption
			entry.PointsEarnedLastQ = p.LastPointsEarned
			entry.SpeedBonus = p.LastSpeedBonus
			entry.RankingStar = p.LastRankingStar
			entry.RankingVotesReceived = p.LastRankingVotes
		}
		entries = append(entries, entry)
	}
	return entries
}
