package normalize

import (
	"context"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/revbow/pkg/revbow/record"
)

// LanguageGate decides which review texts count as English.
type LanguageGate string

const (
	// GateASCII keeps text that is fully ASCII after cleaning.
	GateASCII LanguageGate = "ascii"
	// GateWhatlang also drops text reliably detected as another language.
	GateWhatlang LanguageGate = "whatlang"
)

// TextFields are the fields carried as plain strings.
var TextFields = []record.Field{
	record.Category,
	record.ReviewerID,
	record.ReviewTitle,
	record.ReviewText,
	record.AttachedImages,
	record.ProductID,
	record.ParentProductID,
}

// IsTextField reports whether f is one of TextFields.
func IsTextField(f record.Field) bool {
	for _, tf := range TextFields {
		if tf == f {
			return true
		}
	}
	return false
}

// Options configures a Normalizer.
type Options struct {
	CleanFields  []record.Field
	Markup       Markup
	LanguageGate LanguageGate
}

// DefaultOptions cleans review text only and uses the ASCII gate. Other text
// fields are lowercased but keep emoji and non-ASCII characters unless they
// are listed in CleanFields.
func DefaultOptions() Options {
	return Options{
		CleanFields:  []record.Field{record.ReviewText},
		Markup:       MarkupRegex,
		LanguageGate: GateASCII,
	}
}

// Stats counts the local recoveries made while normalizing.
type Stats struct {
	Input      int
	Output     int
	Duplicates int
	Coercion   map[record.Field]int
	Encoding   int
}

// Merge adds other into s.
func (s *Stats) Merge(other Stats) {
	s.Input += other.Input
	s.Output += other.Output
	s.Duplicates += other.Duplicates
	s.Encoding += other.Encoding
	if s.Coercion == nil {
		s.Coercion = make(map[record.Field]int)
	}
	for f, n := range other.Coercion {
		s.Coercion[f] += n
	}
}

// CoercionTotal sums coercion failures over all fields.
func (s Stats) CoercionTotal() int {
	total := 0
	for _, n := range s.Coercion {
		total += n
	}
	return total
}

// Normalizer turns raw records into normalized reviews.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	cleaner *Cleaner
	clean   map[record.Field]bool
	gate    LanguageGate
}

// New creates a Normalizer. Clean fields that are not text fields are ignored.
func New(opts Options) *Normalizer {
	clean := make(map[record.Field]bool, len(opts.CleanFields))
	for _, f := range opts.CleanFields {
		if IsTextField(f) {
			clean[f] = true
		}
	}
	gate := opts.LanguageGate
	if gate != GateWhatlang {
		gate = GateASCII
	}
	return &Normalizer{
		cleaner: NewCleaner(opts.Markup),
		clean:   clean,
		gate:    gate,
	}
}

// Normalize converts a single raw record. It never fails: unusable values
// become record.None.
func (n *Normalizer) Normalize(raw record.Raw) record.Review {
	r, _ := n.normalize(raw)
	return r
}

func (n *Normalizer) normalize(raw record.Raw) (record.Review, Stats) {
	stats := Stats{Input: 1, Output: 1, Coercion: make(map[record.Field]int)}

	text := func(f record.Field) string {
		v := raw.Get(f)
		if n.clean[f] && v != record.None {
			v = n.cleaner.Clean(v)
		}
		if f == record.ReviewText && v != record.None && !n.admit(v) {
			stats.Encoding++
			v = record.None
		}
		return standardize(v)
	}

	r := record.Review{
		Category:        text(record.Category),
		ReviewerID:      text(record.ReviewerID),
		ReviewTitle:     text(record.ReviewTitle),
		ReviewText:      text(record.ReviewText),
		AttachedImages:  text(record.AttachedImages),
		ProductID:       text(record.ProductID),
		ParentProductID: text(record.ParentProductID),
		Timestamp:       record.None,
		Verified:        ParseVerified(raw.Get(record.IsVerifiedPurchase)),
	}

	if v := raw.Get(record.Rating); present(v) {
		if rating, ok := ParseRating(v); ok {
			r.Rating = &rating
		} else {
			stats.Coercion[record.Rating]++
		}
	}
	if v := raw.Get(record.HelpfulVotes); present(v) {
		if votes, ok := ParseVotes(v); ok {
			r.HelpfulVotes = &votes
		} else {
			stats.Coercion[record.HelpfulVotes]++
		}
	}
	if v := raw.Get(record.ReviewTimestamp); present(v) {
		if ts, ok := ParseTimestamp(v); ok {
			r.Timestamp = ts
		} else {
			stats.Coercion[record.ReviewTimestamp]++
		}
	}

	return r, stats
}

// admit applies the language gate to cleaned review text.
func (n *Normalizer) admit(s string) bool {
	if !IsASCII(s) {
		return false
	}
	if n.gate == GateWhatlang {
		info := whatlanggo.Detect(s)
		if info.IsReliable() && info.Lang != whatlanggo.Eng {
			return false
		}
	}
	return true
}

func present(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, record.None)
}

func standardize(v string) string {
	if strings.TrimSpace(v) == "" {
		return record.None
	}
	return strings.ToLower(v)
}

// Dedup drops reviews identical in every field, keeping first occurrences
// in their original order.
func Dedup(reviews []record.Review) ([]record.Review, int) {
	seen := make(map[string]struct{}, len(reviews))
	out := make([]record.Review, 0, len(reviews))
	for _, r := range reviews {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, len(reviews) - len(out)
}

// NormalizeAll normalizes raws in parallel chunks and deduplicates the result.
// Output order follows input order.
func (n *Normalizer) NormalizeAll(ctx context.Context, raws []record.Raw, workers int) ([]record.Review, Stats, error) {
	out := make([]record.Review, len(raws))
	chunks := chunkBounds(len(raws), workers)
	perChunk := make([]Stats, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for ci, c := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st := Stats{Coercion: make(map[record.Field]int)}
			for i := c[0]; i < c[1]; i++ {
				r, s := n.normalize(raws[i])
				out[i] = r
				st.Merge(s)
			}
			perChunk[ci] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	total := Stats{Coercion: make(map[record.Field]int)}
	for _, s := range perChunk {
		total.Merge(s)
	}

	deduped, dups := Dedup(out)
	total.Duplicates = dups
	total.Output = len(deduped)
	return deduped, total, nil
}

// chunkBounds splits n items into contiguous [start, end) ranges.
func chunkBounds(n, workers int) [][2]int {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	size := n / (workers * 4)
	if size < 64 {
		size = 64
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
