package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

// FieldRule lists the tag names accepted for one canonical field.
// Words inside a tag name may be joined by underscores, spaces, or nothing.
type FieldRule struct {
	Field    record.Field `yaml:"field"`
	Synonyms []string     `yaml:"synonyms"`
}

// Grammar describes the loosely tagged record format.
type Grammar struct {
	RecordOpen  string      `yaml:"record_open"`
	RecordClose string      `yaml:"record_close"`
	Rules       []FieldRule `yaml:"fields"`
}

// DefaultGrammar returns the tag vocabulary seen in the review dumps.
func DefaultGrammar() Grammar {
	return Grammar{
		RecordOpen:  "<record>",
		RecordClose: "</record>",
		Rules: []FieldRule{
			{Field: record.Category, Synonyms: []string{"category"}},
			{Field: record.ReviewerID, Synonyms: []string{"reviewer_id"}},
			{Field: record.Rating, Synonyms: []string{"rating", "rate"}},
			{Field: record.ReviewTitle, Synonyms: []string{"review_title", "heading"}},
			{Field: record.ReviewText, Synonyms: []string{"review_text", "revie_text", "text"}},
			{Field: record.AttachedImages, Synonyms: []string{"attached_images", "pictures", "pics"}},
			{Field: record.ProductID, Synonyms: []string{"product_id"}},
			{Field: record.ParentProductID, Synonyms: []string{"parent_product_id"}},
			{Field: record.ReviewTimestamp, Synonyms: []string{"review_timestamp", "timestamp", "date", "time"}},
			{Field: record.IsVerifiedPurchase, Synonyms: []string{"is_verified_purchase", "verified_purchase"}},
			{Field: record.HelpfulVotes, Synonyms: []string{"helpful_votes", "helpful_vote", "votes", "vote", "likes"}},
		},
	}
}

func (g Grammar) validate() error {
	if strings.TrimSpace(g.RecordOpen) == "" || strings.TrimSpace(g.RecordClose) == "" {
		return fmt.Errorf("%w: record markers are required", internalerr.ErrInvalidConfig)
	}

	seen := make(map[record.Field]struct{}, len(g.Rules))
	for _, rule := range g.Rules {
		if !record.IsCanonical(string(rule.Field)) {
			return fmt.Errorf("%w: unknown field %q", internalerr.ErrInvalidConfig, rule.Field)
		}
		if _, dup := seen[rule.Field]; dup {
			return fmt.Errorf("%w: field %q defined twice", internalerr.ErrInvalidConfig, rule.Field)
		}
		seen[rule.Field] = struct{}{}

		if len(rule.Synonyms) == 0 {
			return fmt.Errorf("%w: field %q has no tag names", internalerr.ErrInvalidConfig, rule.Field)
		}
		for _, s := range rule.Synonyms {
			if len(words(s)) == 0 {
				return fmt.Errorf("%w: field %q has a blank tag name", internalerr.ErrInvalidConfig, rule.Field)
			}
		}
	}

	for _, f := range record.Fields {
		if _, ok := seen[f]; !ok {
			return fmt.Errorf("%w: no rule for field %q", internalerr.ErrInvalidConfig, f)
		}
	}
	return nil
}

// tagPattern builds the alternation of every accepted spelling of a tag.
func tagPattern(synonyms []string) string {
	alts := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		parts := words(s)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		alts = append(alts, strings.Join(parts, `[\s_]*`))
	}
	return "(?:" + strings.Join(alts, "|") + ")"
}

// fieldPattern matches <tag> value </tag> where either tag may be any synonym.
func fieldPattern(synonyms []string) string {
	names := tagPattern(synonyms)
	return `(?is)<\s*` + names + `\s*>\s*(.*?)\s*<\s*/*\s*` + names + `\s*>`
}

func recordPattern(openTag, closeTag string) string {
	return `(?is)` + regexp.QuoteMeta(openTag) + `(.*?)` + regexp.QuoteMeta(closeTag)
}

func words(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t'
	})
}
