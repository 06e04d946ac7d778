package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names a canonical review attribute.
type Field string

// Canonical review fields.
const (
	Category           Field = "category"
	ReviewerID         Field = "reviewer_id"
	Rating             Field = "rating"
	ReviewTitle        Field = "review_title"
	ReviewText         Field = "review_text"
	AttachedImages     Field = "attached_images"
	ProductID          Field = "product_id"
	ParentProductID    Field = "parent_product_id"
	ReviewTimestamp    Field = "review_timestamp"
	IsVerifiedPurchase Field = "is_verified_purchase"
	HelpfulVotes       Field = "helpful_votes"
)

// None is the placeholder for absent or invalid values.
const None = "none"

// TimeLayout is the serialized review_timestamp format (UTC).
const TimeLayout = "2006-01-02 15:04:05"

// Fields lists the canonical fields in output order.
var Fields = []Field{
	Category,
	ReviewerID,
	Rating,
	ReviewTitle,
	ReviewText,
	AttachedImages,
	ProductID,
	ParentProductID,
	ReviewTimestamp,
	IsVerifiedPurchase,
	HelpfulVotes,
}

// NestedFields lists the fields of a review nested under its parent product.
// parent_product_id is the enclosing key and is not repeated.
var NestedFields = []Field{
	Category,
	ReviewerID,
	Rating,
	ReviewTitle,
	ReviewText,
	AttachedImages,
	ProductID,
	ReviewTimestamp,
	IsVerifiedPurchase,
	HelpfulVotes,
}

// IsCanonical reports whether name is one of the canonical field names.
func IsCanonical(name string) bool {
	for _, f := range Fields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// Raw is a review as extracted from its source: field name to raw text.
type Raw map[Field]string

// Get returns the raw value of f, or None when the field is absent.
func (r Raw) Get(f Field) string {
	if v, ok := r[f]; ok {
		return v
	}
	return None
}

// Review is a normalized review. Text fields are lowercase ASCII or None.
type Review struct {
	Category        string
	ReviewerID      string
	Rating          *float64
	ReviewTitle     string
	ReviewText      string
	AttachedImages  string
	ProductID       string
	ParentProductID string
	Timestamp       string
	Verified        bool
	HelpfulVotes    *int64
}

// HasText reports whether the review carries usable review text.
func (r Review) HasText() bool {
	return r.ReviewText != None && r.ReviewText != ""
}

// Value returns the serialized form of a single field.
func (r Review) Value(f Field) string {
	switch f {
	case Category:
		return r.Category
	case ReviewerID:
		return r.ReviewerID
	case Rating:
		return FormatRating(r.Rating)
	case ReviewTitle:
		return r.ReviewTitle
	case ReviewText:
		return r.ReviewText
	case AttachedImages:
		return r.AttachedImages
	case ProductID:
		return r.ProductID
	case ParentProductID:
		return r.ParentProductID
	case ReviewTimestamp:
		return r.Timestamp
	case IsVerifiedPurchase:
		return strconv.FormatBool(r.Verified)
	case HelpfulVotes:
		return FormatVotes(r.HelpfulVotes)
	}
	return None
}

// Strings returns every field serialized, in canonical order.
func (r Review) Strings() []string {
	out := make([]string, len(Fields))
	for i, f := range Fields {
		out[i] = r.Value(f)
	}
	return out
}

// Raw converts the review back into its raw form.
func (r Review) Raw() Raw {
	raw := make(Raw, len(Fields))
	for _, f := range Fields {
		raw[f] = r.Value(f)
	}
	return raw
}

// Key identifies the review by all of its fields. Two reviews with the same
// key are duplicates.
func (r Review) Key() string {
	return strings.Join(r.Strings(), "\x1f")
}

// Validate checks the invariants every normalized review must hold.
func (r Review) Validate() error {
	for _, f := range Fields {
		v := r.Value(f)
		if v == "" {
			return fmt.Errorf("field %s is empty", f)
		}
		if v != strings.ToLower(v) {
			return fmt.Errorf("field %s is not lowercase", f)
		}
	}
	if r.Rating != nil && (math.IsNaN(*r.Rating) || math.IsInf(*r.Rating, 0)) {
		return errors.New("rating must be finite")
	}
	return nil
}

// FormatRating renders a rating as a decimal number that always carries a
// fractional part ("4.0", "3.5"), or None.
func FormatRating(v *float64) string {
	if v == nil {
		return None
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// FormatVotes renders a vote count, or None.
func FormatVotes(v *int64) string {
	if v == nil {
		return None
	}
	return strconv.FormatInt(*v, 10)
}
