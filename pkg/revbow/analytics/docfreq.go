package analytics

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DocFreq counts, per token, how many product groups contain it.
// Each call to Process is one group; repeated tokens inside a group count once.
type DocFreq struct {
	groups int64 // groups with at least one token
	df     map[string]int64
}

// NewDocFreq creates an empty counter.
func NewDocFreq() *DocFreq {
	return &DocFreq{df: make(map[string]int64)}
}

// Process consumes one group's token stream.
func (a *DocFreq) Process(tokens []string) {
	a.reduce(uniqueSet(tokens))
}

// ProcessAll consumes many groups. Distinct-token sets are built in parallel
// and folded into the counts on the calling goroutine.
func (a *DocFreq) ProcessAll(ctx context.Context, streams [][]string, workers int) error {
	sets := make([]map[string]struct{}, len(streams))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, tokens := range streams {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sets[i] = uniqueSet(tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, set := range sets {
		a.reduce(set)
	}
	return nil
}

func (a *DocFreq) reduce(set map[string]struct{}) {
	if len(set) == 0 {
		return
	}
	a.groups++
	for tok := range set {
		a.df[tok]++
	}
}

func uniqueSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// Groups returns the number of groups that contributed at least one token.
func (a *DocFreq) Groups() int64 {
	return a.groups
}

// DF returns the number of groups containing token.
func (a *DocFreq) DF(token string) int64 {
	return a.df[token]
}

// Len returns the number of distinct tokens seen.
func (a *DocFreq) Len() int {
	return len(a.df)
}

// Snapshot returns a copy of the per-token group counts.
func (a *DocFreq) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(a.df))
	for tok, n := range a.df {
		out[tok] = n
	}
	return out
}

// Band bounds the share of groups a kept token may appear in.
// Low is inclusive, High exclusive.
type Band struct {
	Low  float64
	High float64
}

// DefaultBand keeps tokens found in at least 5% and under 95% of groups.
func DefaultBand() Band {
	return Band{Low: 0.05, High: 0.95}
}

// Keeps reports whether a token seen in df of groups groups passes the band.
func (b Band) Keeps(df, groups int64) bool {
	p := float64(groups)
	c := float64(df)
	return c >= b.Low*p && c < b.High*p
}

// Filter returns the tokens inside band, sorted.
func (a *DocFreq) Filter(band Band) []string {
	var kept []string
	for tok, n := range a.df {
		if band.Keeps(n, a.groups) {
			kept = append(kept, tok)
		}
	}
	sort.Strings(kept)
	return kept
}
