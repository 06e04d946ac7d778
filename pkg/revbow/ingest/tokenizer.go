package ingest

import (
	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// DefaultMinLength is the shortest token kept after stopword removal.
const DefaultMinLength = 3

// Stemmer reduces an inflected word to its root.
type Stemmer interface {
	Stem(word string) string
}

// PorterStemmer applies the Porter suffix-stripping algorithm.
type PorterStemmer struct{}

// Stem implements Stemmer.
func (PorterStemmer) Stem(word string) string {
	return porterstemmer.StemString(word)
}

// noStem leaves tokens unchanged.
type noStem struct{}

func (noStem) Stem(word string) string { return word }

// NoStemmer returns a Stemmer that does nothing.
func NoStemmer() Stemmer { return noStem{} }

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stopwords map[string]struct{}
	minLength int
	stemmer   Stemmer
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithMinLength drops tokens shorter than n characters.
func WithMinLength(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.minLength = n
		}
	}
}

// WithStemmer replaces the Porter stemmer.
func WithStemmer(s Stemmer) Option {
	return func(t *Tokenizer) {
		if s != nil {
			t.stemmer = s
		}
	}
}

// NewTokenizer creates a new tokenizer with the given stopword list.
// Stopwords are matched exactly against lowercased tokens.
func NewTokenizer(stopwords []string, opts ...Option) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[w] = struct{}{}
	}
	t := &Tokenizer{
		stopwords: stops,
		minLength: DefaultMinLength,
		stemmer:   PorterStemmer{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize lowercases text, splits it into runs of ASCII letters, drops
// stopwords and short tokens, then stems what is left.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	start := -1
	buf := make([]byte, 0, 32)

	flush := func() {
		if start < 0 {
			return
		}
		if word := t.processToken(string(buf)); word != "" {
			tokens = append(tokens, word)
		}
		buf = buf[:0]
		start = -1
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'a' && c <= 'z':
			buf = append(buf, c)
		case c >= 'A' && c <= 'Z':
			buf = append(buf, c+('a'-'A'))
		default:
			flush()
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush()

	return tokens
}

// processToken applies stopword filtering, the length filter and stemming.
func (t *Tokenizer) processToken(word string) string {
	if t.isStopword(word) {
		return ""
	}
	if len(word) < t.minLength {
		return ""
	}
	return t.stemmer.Stem(word)
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[word] = struct{}{}
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	delete(t.stopwords, word)
}
