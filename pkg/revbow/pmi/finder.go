package pmi

import (
	"sort"
)

// Bigram is an ordered pair of adjacent tokens.
type Bigram struct {
	W1, W2 string
}

// String joins the pair with an underscore.
func (b Bigram) String() string {
	return b.W1 + "_" + b.W2
}

// Scored is a bigram with its association scores. Ranking uses Score (PMI);
// NPMI is the same association normalized to [-1, 1].
type Scored struct {
	Bigram
	Count int64
	Score float64
	NPMI  float64
}

// Finder counts words and adjacent word pairs over a set of documents.
// Pairs never span two documents; word counts cover every token.
type Finder struct {
	words   map[string]int64
	bigrams map[Bigram]int64
	total   int64
}

// NewFinder creates an empty finder.
func NewFinder() *Finder {
	return &Finder{
		words:   make(map[string]int64),
		bigrams: make(map[Bigram]int64),
	}
}

// FromDocuments counts every document in docs.
func FromDocuments(docs [][]string) *Finder {
	f := NewFinder()
	for _, doc := range docs {
		f.Add(doc)
	}
	return f
}

// Add counts one document.
func (f *Finder) Add(doc []string) {
	for i, w := range doc {
		f.words[w]++
		f.total++
		if i+1 < len(doc) {
			f.bigrams[Bigram{W1: w, W2: doc[i+1]}]++
		}
	}
}

// Merge adds the counts of other into f.
func (f *Finder) Merge(other *Finder) {
	for w, n := range other.words {
		f.words[w] += n
	}
	for b, n := range other.bigrams {
		f.bigrams[b] += n
	}
	f.total += other.total
}

// ApplyFreqFilter drops bigrams seen fewer than minCount times.
// Word counts are left untouched.
func (f *Finder) ApplyFreqFilter(minCount int64) {
	for b, n := range f.bigrams {
		if n < minCount {
			delete(f.bigrams, b)
		}
	}
}

// WordCount returns how often w occurred.
func (f *Finder) WordCount(w string) int64 {
	return f.words[w]
}

// BigramCount returns how often w1 was directly followed by w2.
func (f *Finder) BigramCount(w1, w2 string) int64 {
	return f.bigrams[Bigram{W1: w1, W2: w2}]
}

// TotalWords returns the number of tokens counted.
func (f *Finder) TotalWords() int64 {
	return f.total
}

// UniqueBigrams returns the number of distinct bigrams still held.
func (f *Finder) UniqueBigrams() int {
	return len(f.bigrams)
}

// Score rates every held bigram with calc, best first.
// Equal scores are ordered by (W1, W2).
func (f *Finder) Score(calc *Calculator) []Scored {
	out := make([]Scored, 0, len(f.bigrams))
	for b, n := range f.bigrams {
		nA, nB := f.words[b.W1], f.words[b.W2]
		out = append(out, Scored{
			Bigram: b,
			Count:  n,
			Score:  calc.PMI(n, nA, nB, f.total),
			NPMI:   calc.NPMI(n, nA, nB, f.total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].W1 != out[j].W1 {
			return out[i].W1 < out[j].W1
		}
		return out[i].W2 < out[j].W2
	})
	return out
}

// NBest returns the top n bigrams by score.
func (f *Finder) NBest(calc *Calculator, n int) []Scored {
	scored := f.Score(calc)
	if n >= 0 && len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
