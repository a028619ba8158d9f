package content

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"k8s.io/utils/set"
)

// Store serves deterministic-under-seed random draws from the loaded
// content packs. It is read-only after LoadDir returns and safe for
// concurrent use by many rooms.
type Store struct {
	mu sync.RWMutex

	questionsByLocale   map[string][]Question
	dictionaryByLocale  map[string][]DictionaryItem
	rankingByLocale     map[string][]RankingPrompt
	categoriesByLocale  map[string][]string

	randMu sync.Mutex
	rand   *rand.Rand
}

func newStore() *Store {
	return &Store{
		questionsByLocale:  make(map[string][]Question),
		dictionaryByLocale: make(map[string][]DictionaryItem),
		rankingByLocale:    make(map[string][]RankingPrompt),
		categoriesByLocale: make(map[string][]string),
		rand:               rand.New(rand.NewSource(1)),
	}
}

// SetRand overrides the random source, used by tests that need
// deterministic draws.
func (s *Store) SetRand(r *rand.Rand) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand = r
}

func (s *Store) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Intn(n)
}

func (s *Store) addQuestionPack(locale string, pack QuestionPack) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.questionsByLocale[locale] = append(s.questionsByLocale[locale], pack.Questions...)

	seen := set.New(s.categoriesByLocale[locale]...)
	for _, q := range pack.Questions {
		if q.Category != "" && !seen.Has(q.Category) {
			seen.Insert(q.Category)
			s.categoriesByLocale[locale] = append(s.categoriesByLocale[locale], q.Category)
		}
	}
}

func (s *Store) addDictionaryPack(locale string, items []DictionaryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryByLocale[locale] = append(s.dictionaryByLocale[locale], items...)
}

func (s *Store) addRankingPack(locale string, prompts []RankingPrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankingByLocale[locale] = append(s.rankingByLocale[locale], prompts...)
}

// RandomCategories returns up to n categories for locale, excluding any in
// exclude, in a stable but randomized order.
func (s *Store) RandomCategories(locale string, n int, exclude set.Set[string]) []string {
	s.mu.RLock()
	all := s.categoriesByLocale[locale]
	s.mu.RUnlock()

	candidates := make([]string, 0, len(all))
	for _, c := range all {
		if exclude == nil || !exclude.Has(c) {
			candidates = append(candidates, c)
		}
	}

	s.shuffleStrings(candidates)
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// QuestionFilter narrows a RandomQuestion draw.
type QuestionFilter struct {
	Category      string
	MinDifficulty int
	MaxDifficulty int
	Tags          []string
	Exclude       set.Set[string]
}

// RandomQuestion draws one question for locale matching filter, or false if
// no candidate remains (the round should then end).
func (s *Store) RandomQuestion(locale string, filter QuestionFilter) (Question, bool) {
	s.mu.RLock()
	all := s.questionsByLocale[locale]
	s.mu.RUnlock()

	var candidates []Question
	for _, q := range all {
		if filter.Exclude != nil && filter.Exclude.Has(q.ID) {
			continue
		}
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.MinDifficulty > 0 && q.Difficulty < filter.MinDifficulty {
			continue
		}
		if filter.MaxDifficulty > 0 && q.Difficulty > filter.MaxDifficulty {
			continue
		}
		if len(filter.Tags) > 0 && !hasAnyTag(q.Tags, filter.Tags) {
			continue
		}
		candidates = append(candidates, q)
	}

	if len(candidates) == 0 {
		return Question{}, false
	}

	return candidates[s.intn(len(candidates))], true
}

func hasAnyTag(have, want []string) bool {
	haveSet := set.New(have...)
	for _, w := range want {
		if haveSet.Has(w) {
			return true
		}
	}
	return false
}

// DictionaryDraw is a dictionary word plus its multiple-choice definitions:
// the correct one and three distractors drawn from other pack items.
type DictionaryDraw struct {
	Word              string
	CorrectDefinition string
	Distractors       []string
}

// RandomDictionaryWord draws one word (excluding ids in exclude, keyed by
// word) with three distractor definitions from other items in the same pack.
func (s *Store) RandomDictionaryWord(locale string, exclude set.Set[string]) (DictionaryDraw, bool) {
	s.mu.RLock()
	all := s.dictionaryByLocale[locale]
	s.mu.RUnlock()

	var candidates []DictionaryItem
	for _, item := range all {
		if exclude == nil || !exclude.Has(item.Word) {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 || len(all) < 4 {
		return DictionaryDraw{}, false
	}

	chosen := candidates[s.intn(len(candidates))]

	var others []DictionaryItem
	for _, item := range all {
		if item.Word != chosen.Word {
			others = append(others, item)
		}
	}
	s.shuffleDictionary(others)

	distractors := make([]string, 0, 3)
	for _, item := range others {
		if len(distractors) == 3 {
			break
		}
		distractors = append(distractors, item.Definition)
	}

	return DictionaryDraw{
		Word:              chosen.Word,
		CorrectDefinition: chosen.Definition,
		Distractors:       distractors,
	}, true
}

// RandomRankingPrompt draws one ranking prompt, excluding ids in exclude.
func (s *Store) RandomRankingPrompt(locale string, exclude set.Set[string]) (RankingPrompt, bool) {
	s.mu.RLock()
	all := s.rankingByLocale[locale]
	s.mu.RUnlock()

	var candidates []RankingPrompt
	for _, p := range all {
		if exclude == nil || !exclude.Has(p.ID) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return RankingPrompt{}, false
	}

	return candidates[s.intn(len(candidates))], true
}

func (s *Store) shuffleStrings(items []string) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

func (s *Store) shuffleDictionary(items []DictionaryItem) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

// Locales returns the sorted list of locales with at least a question pack
// loaded.
func (s *Store) Locales() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locales := make([]string, 0, len(s.questionsByLocale))
	for l := range s.questionsByLocale {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}

// Check implements health.ContentChecker: the content pack is healthy once
// at least one locale has a non-empty question bank.
func (s *Store) Check(_ context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, qs := range s.questionsByLocale {
		if len(qs) > 0 {
			return "healthy"
		}
	}
	return "unhealthy"
}
