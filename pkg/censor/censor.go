// Package censor provides lexical filtering of comment texts against a list of banned words.
package censor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
)

type Word struct {
	Text       string   `json:"text"`
	Pattern    string   `json:"pattern"`
	Exceptions []string `json:"exceptions"`

	regexPattern *regexp.Regexp
}

type Censor struct {
	bannedWords []Word
}

// New returns an empty Censor instance.
func New() *Censor {
	return &Censor{}
}

// LoadFromJSON loads banned words from a JSON file and compiles regexes.
func (c *Censor) LoadFromJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var words []Word
	if err := json.Unmarshal(data, &words); err != nil {
		return err
	}

	for i, word := range words {
		words[i].regexPattern, err = regexp.Compile(word.Pattern)
		if err != nil {
			return fmt.Errorf("failed to compile pattern %q: %w", word.Pattern, err)
		}
	}

	c.bannedWords = words
	return nil
}

// normalize lower-cases the text and maps common digit look-alikes to letters.
func normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.NewReplacer("0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "@", "a", "$", "s").Replace(text)
	return strings.TrimSpace(text)
}

// Banned scans text for banned vocabulary. Returns true if any word:
//   - Matches prohibited pattern(s)
//   - Isn't explicitly allowed in exceptions
func (c *Censor) Banned(text string) bool {
	words := strings.FieldsFunc(normalize(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})

	for _, w := range words {
		for _, banned := range c.bannedWords {
			match := banned.regexPattern.FindString(w)
			if match == "" {
				continue
			}

			isException := false
			for _, exc := range banned.Exceptions {
				if exc == w {
					isException = true
					break
				}
			}

			if !isException {
				return true
			}
		}
	}

	return false
}

// Allowed reports whether text may be published.
func (c *Censor) Allowed(_ context.Context, text string) (bool, error) {
	return !c.Banned(text), nil
}
