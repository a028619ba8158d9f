package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var localeFilePattern = regexp.MustCompile(`^(questions|dictionary|rankingstars)\.([a-zA-Z-]+)\.json$`)

// LoadDir walks dir for questions.<locale>.json, dictionary.<locale>.json and
// rankingstars.<locale>.json files, validates each fail-fast (naming the file
// and enumerating every problem found), and returns a Store ready to serve
// random draws.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("content: reading pack directory %q: %w", dir, err)
	}

	store := newStore()
	var problems []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		m := localeFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		kind, locale := m[1], strings.ToLower(m[2])

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		switch kind {
		case "questions":
			if err := loadQuestionPack(store, entry.Name(), locale, raw); err != nil {
				problems = append(problems, err.Error())
			}
		case "dictionary":
			if err := loadDictionaryPack(store, entry.Name(), locale, raw); err != nil {
				problems = append(problems, err.Error())
			}
		case "rankingstars":
			if err := loadRankingPack(store, entry.Name(), locale, raw); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("content: pack validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	if len(store.questionsByLocale) == 0 {
		return nil, fmt.Errorf("content: no question packs found in %q", dir)
	}

	return store, nil
}

func loadQuestionPack(store *Store, filename, locale string, raw []byte) error {
	var pack QuestionPack
	if err := json.Unmarshal(raw, &pack); err != nil {
		return fmt.Errorf("%s: invalid json: %w", filename, err)
	}

	var errs []string
	if pack.Title == "" {
		errs = append(errs, "title is empty")
	}
	seenIDs := make(map[string]bool)

	for i, q := range pack.Questions {
		prefix := fmt.Sprintf("question[%d]", i)
		if q.ID == "" {
			errs = append(errs, prefix+": id is empty")
		} else if seenIDs[q.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate id %q", prefix, q.ID))
		}
		seenIDs[q.ID] = true

		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, prefix+": text is empty")
		}
		if q.Difficulty < 1 || q.Difficulty > 5 {
			errs = append(errs, fmt.Sprintf("%s: difficulty %d out of range [1,5]", prefix, q.Difficulty))
		}
		if len(q.Options) != 4 {
			errs = append(errs, fmt.Sprintf("%s: expected exactly 4 options, got %d", prefix, len(q.Options)))
		}

		keys := make(map[string]bool)
		for _, opt := range q.Options {
			if opt.Key == "" {
				errs = append(errs, prefix+": option with empty key")
				continue
			}
			if keys[opt.Key] {
				errs = append(errs, fmt.Sprintf("%s: duplicate option key %q", prefix, opt.Key))
			}
			keys[opt.Key] = true
		}

		if q.CorrectOptionKey == "" || !keys[q.CorrectOptionKey] {
			errs = append(errs, fmt.Sprintf("%s: correctOptionKey %q does not match any option", prefix, q.CorrectOptionKey))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %s", filename, strings.Join(errs, "; "))
	}

	store.addQuestionPack(locale, pack)
	return nil
}

func loadDictionaryPack(store *Store, filename, locale string, raw []byte) error {
	var items []DictionaryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%s: invalid json: %w", filename, err)
	}

	var errs []string
	seen := make(map[string]bool)
	for i, item := range items {
		prefix := fmt.Sprintf("item[%d]", i)
		if strings.TrimSpace(item.Word) == "" {
			errs = append(errs, prefix+": word is empty")
		} else if seen[strings.ToLower(item.Word)] {
			errs = append(errs, fmt.Sprintf("%s: duplicate word %q", prefix, item.Word))
		}
		seen[strings.ToLower(item.Word)] = true

		if strings.TrimSpace(item.Definition) == "" {
			errs = append(errs, prefix+": definition is empty")
		}
	}

	if len(items) < 4 {
		errs = append(errs, fmt.Sprintf("pack has %d items, need at least 4 to draw distractors", len(items)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %s", filename, strings.Join(errs, "; "))
	}

	store.addDictionaryPack(locale, items)
	return nil
}

func loadRankingPack(store *Store, filename, locale string, raw []byte) error {
	var prompts []RankingPrompt
	if err := json.Unmarshal(raw, &prompts); err != nil {
		return fmt.Errorf("%s: invalid json: %w", filename, err)
	}

	var errs []string
	seen := make(map[string]bool)
	for i, p := range prompts {
		prefix := fmt.Sprintf("prompt[%d]", i)
		if p.ID == "" {
			errs = append(errs, prefix+": id is empty")
		} else if seen[p.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate id %q", prefix, p.ID))
		}
		seen[p.ID] = true

		if strings.TrimSpace(p.Prompt) == "" {
			errs = append(errs, prefix+": prompt text is empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %s", filename, strings.Join(errs, "; "))
	}

	store.addRankingPack(locale, prompts)
	return nil
}
