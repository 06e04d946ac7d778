package vocab

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/cognicore/revbow/pkg/revbow/internalerr"
)

// Entry is one vocabulary term and its column index.
type Entry struct {
	Term  string
	Index int
}

// Vocabulary maps terms to dense indices 0..N-1 in byte-wise sorted order.
// It is read-only after construction.
type Vocabulary struct {
	terms []string
	index map[string]int
}

// FromTerms sorts and deduplicates terms and indexes them.
func FromTerms(terms []string) *Vocabulary {
	sorted := lo.Uniq(terms)
	sort.Strings(sorted)

	index := make(map[string]int, len(sorted))
	for i, t := range sorted {
		index[t] = i
	}
	return &Vocabulary{terms: sorted, index: index}
}

// Lookup returns the index of term.
func (v *Vocabulary) Lookup(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the term at index i.
func (v *Vocabulary) Term(i int) (string, bool) {
	if i < 0 || i >= len(v.terms) {
		return "", false
	}
	return v.terms[i], true
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Terms returns a copy of the terms in index order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Entries returns every term with its index, in index order.
func (v *Vocabulary) Entries() []Entry {
	out := make([]Entry, len(v.terms))
	for i, t := range v.terms {
		out[i] = Entry{Term: t, Index: i}
	}
	return out
}

// IsBigram reports whether term is an underscore-joined pair.
func IsBigram(term string) bool {
	return strings.Contains(term, "_")
}

// WriteTo writes one "term:index" line per entry.
func (v *Vocabulary) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for i, t := range v.terms {
		n, err := fmt.Fprintf(bw, "%s:%d\n", t, i)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// Read parses "term:index" lines. Indices must be dense, and terms must be
// sorted consistently with their indices.
func Read(r io.Reader) (*Vocabulary, error) {
	byIndex := make(map[int]string)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		sep := strings.LastIndex(text, ":")
		if sep <= 0 {
			return nil, fmt.Errorf("%w: vocabulary line %d: missing separator", internalerr.ErrInvalidInput, line)
		}
		idx, err := strconv.Atoi(text[sep+1:])
		if err != nil {
			return nil, fmt.Errorf("%w: vocabulary line %d: bad index: %v", internalerr.ErrInvalidInput, line, err)
		}
		if _, dup := byIndex[idx]; dup {
			return nil, fmt.Errorf("%w: vocabulary line %d: duplicate index %d", internalerr.ErrInvalidInput, line, idx)
		}
		byIndex[idx] = text[:sep]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	terms := make([]string, len(byIndex))
	for i := range terms {
		t, ok := byIndex[i]
		if !ok {
			return nil, fmt.Errorf("%w: vocabulary index %d missing", internalerr.ErrInvalidInput, i)
		}
		if i > 0 && terms[i-1] >= t {
			return nil, fmt.Errorf("%w: vocabulary term %q out of order", internalerr.ErrInvalidInput, t)
		}
		terms[i] = t
	}

	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = i
	}
	return &Vocabulary{terms: terms, index: index}, nil
}
