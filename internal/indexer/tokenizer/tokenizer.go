// Package tokenizer provides text tokenisation for the indexer and the
// ranker. It lower-cases input, extracts word runs (alphanumerics with single
// embedded dots, so "u.s.a" and "3.14" stay whole), removes stop-words, and
// stems with the English Snowball stemmer.
package tokenizer

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

var wordPattern = regexp.MustCompile(`\w+(\.?\w+)*`)

// Token represents a single normalised term and its 1-based position in the
// original text. Positions count every matched word, stop-words included.
type Token struct {
	Term     string
	Position int
}

// Stemmer reduces a lower-cased word to its stem.
type Stemmer interface {
	Stem(word string) (string, error)
}

// SnowballStemmer stems English words with the Snowball algorithm.
type SnowballStemmer struct{}

func (SnowballStemmer) Stem(word string) (string, error) {
	return snowball.Stem(word, "english", true)
}

// Normalizer turns raw text into index terms. It is safe for concurrent use
// once constructed.
type Normalizer struct {
	stopWords StopWords
	stemmer   Stemmer
	logger    *slog.Logger
}

// New creates a Normalizer. A nil stop set filters nothing and a nil stemmer
// defaults to SnowballStemmer.
func New(stopWords StopWords, stemmer Stemmer) *Normalizer {
	if stemmer == nil {
		stemmer = SnowballStemmer{}
	}
	return &Normalizer{
		stopWords: stopWords,
		stemmer:   stemmer,
		logger:    slog.Default().With("component", "normalizer"),
	}
}

// Normalize case-folds a single raw token, rejects it when it is a stop-word,
// and stems it otherwise. When stemming fails the lower-cased token is kept.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	word := strings.ToLower(raw)
	if word == "" || n.stopWords.Contains(word) {
		return "", false
	}
	return n.stem(word), true
}

// Tokenize breaks text into normalised Tokens in reading order.
func (n *Normalizer) Tokenize(text string) []Token {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]Token, 0, len(words))
	for i, word := range words {
		if n.stopWords.Contains(word) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     n.stem(word),
			Position: i + 1,
		})
	}
	return tokens
}

// Terms returns only the normalised terms of text, in reading order.
func (n *Normalizer) Terms(text string) []string {
	tokens := n.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

func (n *Normalizer) stem(word string) string {
	stemmed, err := n.stemmer.Stem(word)
	if err != nil || stemmed == "" {
		n.logger.Warn("stemming failed, keeping token as is",
			"token", word,
			"error", err,
		)
		return word
	}
	return stemmed
}
