package vocab

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/revbow/pkg/revbow/analytics"
	"github.com/cognicore/revbow/pkg/revbow/group"
	"github.com/cognicore/revbow/pkg/revbow/ingest"
	"github.com/cognicore/revbow/pkg/revbow/pmi"
)

// Scope selects what counts as one document for bigram counting.
type Scope string

const (
	// ScopeGroup uses each product group's concatenated stream.
	ScopeGroup Scope = "group"
	// ScopeReview uses each review separately.
	ScopeReview Scope = "review"
)

// Options configures vocabulary construction.
type Options struct {
	MinReviews    int
	Band          analytics.Band
	MinBigramFreq int64
	TopBigrams    int
	Scope         Scope
	Workers       int
}

// DefaultOptions mirrors the thresholds used for the published matrices.
func DefaultOptions() Options {
	return Options{
		MinReviews:    group.DefaultMinReviews,
		Band:          analytics.DefaultBand(),
		MinBigramFreq: 2,
		TopBigrams:    200,
		Scope:         ScopeGroup,
	}
}

// Result is everything a vocabulary build produced.
type Result struct {
	Vocabulary *Vocabulary
	Eligible   []group.Group
	Unigrams   []string
	Bigrams    []pmi.Scored
	DocFreq    *analytics.DocFreq
}

// Builder derives a vocabulary from product groups.
type Builder struct {
	pipeline *ingest.Pipeline
	calc     *pmi.Calculator
	opts     Options
}

// NewBuilder creates a builder that tokenizes with pipeline.
func NewBuilder(pipeline *ingest.Pipeline, opts Options) *Builder {
	return &Builder{
		pipeline: pipeline,
		calc:     pmi.NewCalculator(0),
		opts:     opts,
	}
}

// Build runs the document-frequency prune, then scores bigrams over the
// pruned streams, then merges both into one sorted vocabulary.
func (b *Builder) Build(ctx context.Context, groups []group.Group) (*Result, error) {
	eligible := group.Eligible(groups, b.opts.MinReviews)

	texts := lo.Map(eligible, func(g group.Group, _ int) []string {
		return g.Texts()
	})

	streams, err := b.pipeline.StreamAll(ctx, texts, b.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("tokenize groups: %w", err)
	}

	df := analytics.NewDocFreq()
	if err := df.ProcessAll(ctx, streams, b.opts.Workers); err != nil {
		return nil, fmt.Errorf("document frequency: %w", err)
	}

	unigrams := df.Filter(b.opts.Band)
	kept := make(map[string]struct{}, len(unigrams))
	for _, u := range unigrams {
		kept[u] = struct{}{}
	}

	finder, err := b.countBigrams(ctx, texts, streams, kept)
	if err != nil {
		return nil, fmt.Errorf("bigram documents: %w", err)
	}
	finder.ApplyFreqFilter(b.opts.MinBigramFreq)
	bigrams := finder.NBest(b.calc, b.opts.TopBigrams)

	terms := make([]string, 0, len(unigrams)+len(bigrams))
	terms = append(terms, unigrams...)
	for _, bg := range bigrams {
		terms = append(terms, bg.String())
	}

	return &Result{
		Vocabulary: FromTerms(terms),
		Eligible:   eligible,
		Unigrams:   unigrams,
		Bigrams:    bigrams,
		DocFreq:    df,
	}, nil
}

// countBigrams counts words and bigrams over documents restricted to kept
// unigrams. In review scope each group is counted on its own and the counts
// are merged in group order.
func (b *Builder) countBigrams(ctx context.Context, texts, streams [][]string, kept map[string]struct{}) (*pmi.Finder, error) {
	if b.opts.Scope != ScopeReview {
		return pmi.FromDocuments(lo.Map(streams, func(s []string, _ int) []string {
			return restrict(s, kept)
		})), nil
	}

	perGroup := make([]*pmi.Finder, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	if b.opts.Workers > 0 {
		g.SetLimit(b.opts.Workers)
	}
	for i, groupTexts := range texts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs := b.pipeline.Documents(groupTexts)
			for j := range docs {
				docs[j] = restrict(docs[j], kept)
			}
			perGroup[i] = pmi.FromDocuments(docs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	finder := pmi.NewFinder()
	for _, f := range perGroup {
		finder.Merge(f)
	}
	return finder, nil
}

func restrict(tokens []string, kept map[string]struct{}) []string {
	return lo.Filter(tokens, func(tok string, _ int) bool {
		_, ok := kept[tok]
		return ok
	})
}
