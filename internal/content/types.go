// Package content loads and serves read-only draws from the JSON content
// packs: the question bank, the dictionary pack, and the ranking-prompt
// pack. All packs are loaded once at startup and not modified afterward;
// lookups take the Store's read lock.
package content

// Option is one answer choice for a category-quiz question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a single category-quiz question.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	Difficulty       int      `json:"difficulty"`
	Options          []Option `json:"options"`
	CorrectOptionKey string   `json:"correctOptionKey"`
	Explanation      string   `json:"explanation,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Category         string   `json:"category,omitempty"`
}

// QuestionPack is the on-disk shape of questions.<locale>.json.
type QuestionPack struct {
	SchemaVersion int        `json:"schemaVersion"`
	PackID        string     `json:"packId"`
	Title         string     `json:"title"`
	Locale        string     `json:"locale"`
	Tags          []string   `json:"tags,omitempty"`
	Questions     []Question `json:"questions"`
}

// DictionaryItem is a single word/definition pair for the dictionary round.
type DictionaryItem struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

// RankingPrompt is a single prompt for the ranking-stars round.
type RankingPrompt struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}
