package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/set"
)

const validQuestions = `{
	"schemaVersion": 1,
	"packId": "general-en",
	"title": "General Knowledge",
	"locale": "en",
	"tags": ["general"],
	"questions": [
		{"id": "q1", "text": "2+2?", "difficulty": 1, "category": "maths",
		 "options": [{"key":"A","text":"3"},{"key":"B","text":"4"},{"key":"C","text":"5"},{"key":"D","text":"6"}],
		 "correctOptionKey": "B"},
		{"id": "q2", "text": "Capital of France?", "difficulty": 2, "category": "geography",
		 "options": [{"key":"A","text":"Berlin"},{"key":"B","text":"Madrid"},{"key":"C","text":"Paris"},{"key":"D","text":"Rome"}],
		 "correctOptionKey": "C"}
	]
}`

const validDictionary = `[
	{"word": "Ephemeral", "definition": "Lasting for a very short time"},
	{"word": "Ubiquitous", "definition": "Present everywhere"},
	{"word": "Serendipity", "definition": "A fortunate accident"},
	{"word": "Mellifluous", "definition": "Sweet sounding"}
]`

const validRanking = `[
	{"id": "r1", "prompt": "Most likely to be late"},
	{"id": "r2", "prompt": "Most likely to win the lottery"}
]`

func writePack(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir_ValidPacks(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "questions.en.json", validQuestions)
	writePack(t, dir, "dictionary.en.json", validDictionary)
	writePack(t, dir, "rankingstars.en.json", validRanking)

	store, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, store.Locales())

	q, ok := store.RandomQuestion("en", QuestionFilter{})
	assert.True(t, ok)
	assert.NotEmpty(t, q.ID)

	word, ok := store.RandomDictionaryWord("en", nil)
	assert.True(t, ok)
	assert.NotEmpty(t, word.Word)
	assert.Len(t, word.Distractors, 3)

	prompt, ok := store.RandomRankingPrompt("en", nil)
	assert.True(t, ok)
	assert.NotEmpty(t, prompt.ID)

	cats := store.RandomCategories("en", 3, nil)
	assert.ElementsMatch(t, []string{"maths", "geography"}, cats)
}

func TestLoadDir_InvalidQuestionPack(t *testing.T) {
	dir := t.TempDir()
	bad := `{"schemaVersion":1,"packId":"x","title":"X","locale":"en","questions":[
		{"id":"","text":"","difficulty":9,"options":[{"key":"A","text":"a"}],"correctOptionKey":"Z"}
	]}`
	writePack(t, dir, "questions.en.json", bad)

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "questions.en.json")
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir("/nonexistent/path/does/not/exist")
	assert.Error(t, err)
}

func TestRandomQuestion_ExcludesSeenIDs(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "questions.en.json", validQuestions)
	store, err := LoadDir(dir)
	require.NoError(t, err)

	exclude := set.New("q1", "q2")
	_, ok := store.RandomQuestion("en", QuestionFilter{Exclude: exclude})
	assert.False(t, ok, "all questions excluded should yield no candidate")
}

func TestRandomQuestion_FiltersByCategory(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "questions.en.json", validQuestions)
	store, err := LoadDir(dir)
	require.NoError(t, err)

	q, ok := store.RandomQuestion("en", QuestionFilter{Category: "maths"})
	require.True(t, ok)
	assert.Equal(t, "q1", q.ID)
}

func TestContentChecker_HealthyOnceLoaded(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "questions.en.json", validQuestions)
	store, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "healthy", store.Check(nil))
}
