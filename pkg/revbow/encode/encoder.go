package encode

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/revbow/pkg/revbow/group"
	"github.com/cognicore/revbow/pkg/revbow/ingest"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/vocab"
)

// Entry is one non-zero cell of a sparse vector.
type Entry struct {
	Index int
	Count int
}

// Vector is the sparse term-count vector of one product group.
// Entries are sorted by index and never hold a zero count.
type Vector struct {
	ParentID string
	Entries  []Entry
}

// Encoder maps token streams onto vocabulary counts.
type Encoder struct {
	pipeline *ingest.Pipeline
	vocab    *vocab.Vocabulary
}

// NewEncoder creates an encoder. pipeline must tokenize exactly as the one
// the vocabulary was built with.
func NewEncoder(pipeline *ingest.Pipeline, v *vocab.Vocabulary) *Encoder {
	return &Encoder{pipeline: pipeline, vocab: v}
}

// EncodeTokens counts every unigram and every adjacent pair of tokens that
// is in the vocabulary. A token inside a counted pair is still counted on
// its own.
func (e *Encoder) EncodeTokens(parentID string, tokens []string) Vector {
	counts := make(map[int]int)
	for i, tok := range tokens {
		if idx, ok := e.vocab.Lookup(tok); ok {
			counts[idx]++
		}
		if i+1 < len(tokens) {
			if idx, ok := e.vocab.Lookup(tok + "_" + tokens[i+1]); ok {
				counts[idx]++
			}
		}
	}

	entries := make([]Entry, 0, len(counts))
	for idx, n := range counts {
		entries = append(entries, Entry{Index: idx, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Index < entries[j].Index
	})
	return Vector{ParentID: parentID, Entries: entries}
}

// Encode tokenizes the group's review texts as one stream and encodes it.
func (e *Encoder) Encode(g group.Group) Vector {
	return e.EncodeTokens(g.ParentID, e.pipeline.Stream(g.Texts()))
}

// EncodeAll encodes groups in parallel. Vectors come back sorted by parent id.
func (e *Encoder) EncodeAll(ctx context.Context, groups []group.Group, workers int) ([]Vector, error) {
	out := make([]Vector, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, grp := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = e.Encode(grp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ParentID < out[j].ParentID
	})
	return out, nil
}

// Decode maps the vector back to term counts.
func (v Vector) Decode(voc *vocab.Vocabulary) (map[string]int, error) {
	out := make(map[string]int, len(v.Entries))
	for _, en := range v.Entries {
		term, ok := voc.Term(en.Index)
		if !ok {
			return nil, fmt.Errorf("%w: index %d outside vocabulary of %d terms", internalerr.ErrInvalidInput, en.Index, voc.Len())
		}
		out[term] = en.Count
	}
	return out, nil
}

// Total returns the sum of all counts.
func (v Vector) Total() int {
	total := 0
	for _, en := range v.Entries {
		total += en.Count
	}
	return total
}
