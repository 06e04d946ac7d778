package extract

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

// Extractor pulls review records out of tag-delimited text.
// It holds only compiled patterns and is safe for concurrent use.
type Extractor struct {
	boundary *regexp.Regexp
	fields   []fieldMatcher
}

type fieldMatcher struct {
	field record.Field
	re    *regexp.Regexp
}

// Stats counts what extraction saw.
type Stats struct {
	Records int
	Missing map[record.Field]int
}

// Merge adds other into s.
func (s *Stats) Merge(other Stats) {
	s.Records += other.Records
	if s.Missing == nil {
		s.Missing = make(map[record.Field]int)
	}
	for f, n := range other.Missing {
		s.Missing[f] += n
	}
}

// MissingTotal returns the number of fields that fell back to the sentinel.
func (s Stats) MissingTotal() int {
	total := 0
	for _, n := range s.Missing {
		total += n
	}
	return total
}

// Compile validates the grammar and builds an Extractor from it.
func Compile(g Grammar) (*Extractor, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	boundary, err := regexp.Compile(recordPattern(g.RecordOpen, g.RecordClose))
	if err != nil {
		return nil, fmt.Errorf("%w: record markers: %v", internalerr.ErrInvalidConfig, err)
	}

	rules := make(map[record.Field][]string, len(g.Rules))
	for _, rule := range g.Rules {
		rules[rule.Field] = rule.Synonyms
	}

	// Matchers follow canonical field order regardless of grammar order.
	fields := make([]fieldMatcher, 0, len(record.Fields))
	for _, f := range record.Fields {
		re, err := regexp.Compile(fieldPattern(rules[f]))
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", internalerr.ErrInvalidConfig, f, err)
		}
		fields = append(fields, fieldMatcher{field: f, re: re})
	}

	return &Extractor{boundary: boundary, fields: fields}, nil
}

// MustCompile is like Compile but panics on an invalid grammar.
func MustCompile(g Grammar) *Extractor {
	e, err := Compile(g)
	if err != nil {
		panic(err)
	}
	return e
}

// Blocks yields the body of every record in text, in order.
func (e *Extractor) Blocks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		for {
			loc := e.boundary.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if !yield(rest[loc[2]:loc[3]]) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

// Records yields one raw record per record block in text.
func (e *Extractor) Records(text string) iter.Seq[record.Raw] {
	return func(yield func(record.Raw) bool) {
		for block := range e.Blocks(text) {
			raw, _ := e.Parse(block)
			if !yield(raw) {
				return
			}
		}
	}
}

// Parse extracts every canonical field from a single record block.
// The first match wins. Fields without a matching tag are set to
// record.None and reported in missing.
func (e *Extractor) Parse(block string) (raw record.Raw, missing []record.Field) {
	raw = make(record.Raw, len(e.fields))
	for _, m := range e.fields {
		sub := m.re.FindStringSubmatch(block)
		if sub == nil {
			raw[m.field] = record.None
			missing = append(missing, m.field)
			continue
		}
		raw[m.field] = strings.TrimSpace(sub[1])
	}
	return raw, missing
}

// ExtractText extracts all records from one blob.
func (e *Extractor) ExtractText(text string) ([]record.Raw, Stats) {
	stats := Stats{Missing: make(map[record.Field]int)}
	var out []record.Raw
	for block := range e.Blocks(text) {
		raw, missing := e.Parse(block)
		for _, f := range missing {
			stats.Missing[f]++
		}
		out = append(out, raw)
	}
	stats.Records = len(out)
	return out, stats
}

// ExtractAll extracts the blobs in parallel. Records keep blob order, then
// in-blob order.
func (e *Extractor) ExtractAll(ctx context.Context, blobs []string, workers int) ([]record.Raw, Stats, error) {
	perBlob := make([][]record.Raw, len(blobs))
	perStats := make([]Stats, len(blobs))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, blob := range blobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perBlob[i], perStats[i] = e.ExtractText(blob)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	total := Stats{Missing: make(map[record.Field]int)}
	var out []record.Raw
	for i := range blobs {
		out = append(out, perBlob[i]...)
		total.Merge(perStats[i])
	}
	return out, total, nil
}
