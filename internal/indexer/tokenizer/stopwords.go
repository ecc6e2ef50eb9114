package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// StopWords is a set of lower-cased words excluded from indexing and queries.
type StopWords map[string]struct{}

// NewStopWords builds a set from the given words.
func NewStopWords(words ...string) StopWords {
	set := make(StopWords, len(words))
	for _, w := range words {
		set.Add(w)
	}
	return set
}

// LoadStopWords reads a whitespace separated word list. An empty path yields
// an empty set.
func LoadStopWords(path string) (StopWords, error) {
	set := make(StopWords)
	if path == "" {
		return set, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return set, fmt.Errorf("opening stop list %s: %w", path,
			apperrors.New(apperrors.ErrStopListUnreadable, err.Error()))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		set.Add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return set, fmt.Errorf("reading stop list %s: %w", path,
			apperrors.New(apperrors.ErrStopListUnreadable, err.Error()))
	}
	return set, nil
}

func (s StopWords) Add(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word != "" {
		s[word] = struct{}{}
	}
}

// Contains reports whether word is a stop-word. A nil set contains nothing.
func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

func (s StopWords) Len() int {
	return len(s)
}
