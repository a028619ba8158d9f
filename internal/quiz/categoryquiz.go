package quiz

import (
	"time"

	"github.com/partyquiz/server/internal/apierr"
	"github.com/partyquiz/server/internal/content"
)

const questionsPerCategoryRound = itemsPerRound

// StartCategoryQuizRound begins a CategoryQuiz round: selects the round
// leader, offers them CategoryCount candidate categories excluding those
// already used this game, and enters CategorySelection.
func StartCategoryQuizRound(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	s.CurrentRound = RoundCategoryQuiz
	leader := s.selectRoundLeader()
	categories := store.RandomCategories(s.Locale, CategoryCount, s.UsedCategories)

	s.Question = &QuestionRoundState{
		LeaderID:            leader,
		AvailableCategories: categories,
		Answers:             make(map[string]*AnswerRecord),
	}
	s.Phase = PhaseCategorySelection
	s.PhaseEndsAt = now.Add(durations.CategorySelection)
}

// SelectCategory records the round leader's chosen category and begins the
// first question of the round. Only the recorded leader may call this;
// anyone else gets NOT_ROUND_LEADER. An unlisted category is
// INVALID_CATEGORY.
func SelectCategory(s *QuizGameState, store *content.Store, durations Durations, playerID, category string, now time.Time) error {
	if s.Phase != PhaseCategorySelection || s.Question == nil {
		return apierr.New(apierr.InvalidState, "not in category selection")
	}
	if playerID != s.Question.LeaderID {
		return apierr.New(apierr.NotRoundLeader, "only the round leader may select a category")
	}
	if !containsString(s.Question.AvailableCategories, category) {
		return apierr.New(apierr.InvalidCategory, "category not offered this round")
	}

	s.Question.SelectedCategory = category
	beginQuestion(s, store, durations, now)
	return nil
}

// AutoSelectCategory is called by the orchestrator when the
// CategorySelection timer fires without the leader having chosen: it picks
// the first offered category deterministically and proceeds exactly as a
// manual selection would.
func AutoSelectCategory(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	if s.Phase != PhaseCategorySelection || s.Question == nil {
		return
	}
	category := ""
	if len(s.Question.AvailableCategories) > 0 {
		category = s.Question.AvailableCategories[0]
	}
	s.Question.SelectedCategory = category
	beginQuestion(s, store, durations, now)
}

// beginQuestion draws the next question in the round and enters the
// Question (display-only) phase. If no candidate question remains, the
// round ends here, same as running out of planned questions.
func beginQuestion(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	q, ok := store.RandomQuestion(s.Locale, content.QuestionFilter{
		Category: s.Question.SelectedCategory,
		Exclude:  s.UsedQuestions,
	})
	if !ok {
		endCategoryQuizRound(s, durations, now)
		return
	}

	s.UsedQuestions.Insert(q.ID)
	if s.Question.SelectedCategory != "" {
		s.UsedCategories.Insert(s.Question.SelectedCategory)
	}
	s.Question.CurrentQuestion = &q
	s.Question.Answers = seedAnswers(s)
	s.resetActiveEffects()

	s.Phase = PhaseQuestion
	s.PhaseEndsAt = now.Add(durations.QuestionDisplay)
}

// seedAnswers builds the Pending/NotInGame answer map for every scoreboard
// player at the moment a question is drawn: every currently tracked
// player is present with a nil record, distinguishing "has not yet
// answered" from "was never in the game".
func seedAnswers(s *QuizGameState) map[string]*AnswerRecord {
	answers := make(map[string]*AnswerRecord, len(s.Scoreboard))
	for id := range s.Scoreboard {
		answers[id] = nil
	}
	return answers
}

// BeginAnswering moves from the timed Question display into Answering,
// where submissions are accepted.
func BeginAnswering(s *QuizGameState, durations Durations, now time.Time) {
	if s.Phase != PhaseQuestion {
		return
	}
	s.Phase = PhaseAnswering
	s.PhaseEndsAt = now.Add(durations.Answering)
}

// SubmitAnswer records playerID's option-key submission for the current
// CategoryQuiz question. First submission wins; repeats are silently
// ignored unless the player holds an active Wildcard (CanChangeAnswer).
func SubmitAnswer(s *QuizGameState, playerID, optionKey string, now time.Time) error {
	if s.Phase != PhaseAnswering || s.Question == nil || s.Question.CurrentQuestion == nil {
		return notAcceptingErr()
	}
	rec, inGame := s.Question.Answers[playerID]
	if !inGame {
		return notInGameErr()
	}
	if eff, noped := s.ActiveEffects[playerID]; noped && eff.IsNoped {
		return nopedErr()
	}
	if !validOptionKey(s.Question.CurrentQuestion, optionKey) {
		return invalidStateErr("unknown option key")
	}
	if rec != nil && !s.canChangeAnswer(playerID) {
		return nil // idempotent: first submission wins
	}

	if now.After(s.personalDeadline(playerID)) {
		return invalidStateErr("answer window has closed")
	}

	s.Question.Answers[playerID] = &AnswerRecord{Value: optionKey, SubmittedAt: now}
	return nil
}

func validOptionKey(q *content.Question, key string) bool {
	for _, opt := range q.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// AllPlayersAnswered reports whether every eligible player has a non-nil
// answer recorded for the current question/word/prompt.
func AllPlayersAnswered(s *QuizGameState, eligibleIDs []string) bool {
	answers := currentAnswerMap(s)
	if answers == nil {
		return false
	}
	for _, id := range eligibleIDs {
		rec, ok := answers[id]
		if !ok || rec == nil {
			return false
		}
	}
	return true
}

func currentAnswerMap(s *QuizGameState) map[string]*AnswerRecord {
	switch s.CurrentRound {
	case RoundCategoryQuiz:
		if s.Question != nil {
			return s.Question.Answers
		}
	case RoundDictionary:
		if s.Dictionary != nil {
			return s.Dictionary.Answers
		}
	case RoundRankingStars:
		if s.Ranking != nil {
			return s.Ranking.Votes
		}
	}
	return nil
}

// RevealQuestion scores the just-closed CategoryQuiz question and enters
// Reveal.
func RevealQuestion(s *QuizGameState, durations Durations, now time.Time) {
	if s.Question == nil || s.Question.CurrentQuestion == nil {
		return
	}
	correct := s.Question.CurrentQuestion.CorrectOptionKey
	s.applySpeedScoring(s.Question.Answers, func(value string) bool {
		return equalFoldKey(value, correct)
	})
	s.Question.QuestionsAsked++

	s.Phase = PhaseReveal
	s.PhaseEndsAt = now.Add(durations.Reveal)
}

// HasMoreQuestionsInRound reports whether the current CategoryQuiz round
// has asked fewer than questionsPerCategoryRound questions.
func (s *QuizGameState) HasMoreQuestionsInRound() bool {
	return s.Question != nil && s.Question.QuestionsAsked < questionsPerCategoryRound
}

// AfterQuestionReveal is called when the Reveal timer fires for a
// CategoryQuiz question: either the next question begins, or the round
// ends at Scoreboard.
func AfterQuestionReveal(s *QuizGameState, store *content.Store, durations Durations, now time.Time) {
	if s.HasMoreQuestionsInRound() {
		beginQuestion(s, store, durations, now)
		return
	}
	endCategoryQuizRound(s, durations, now)
}

func endCategoryQuizRound(s *QuizGameState, durations Durations, now time.Time) {
	BeginScoreboard(s, durations, now)
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func equalFoldKey(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
