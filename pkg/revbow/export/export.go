package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/cognicore/revbow/pkg/revbow/group"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

// SummaryHeader is the header row of the summary table.
var SummaryHeader = []string{"parent_product_id", "review_count", "review_text_count"}

// WriteSummary writes one CSV row per product group.
func WriteSummary(w io.Writer, rows []group.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{row.ParentID, strconv.Itoa(row.ReviewCount), strconv.Itoa(row.TextCount)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// NestedReview is the serialized form of a review under its parent product.
// Every value is a string.
type NestedReview struct {
	Category           string `json:"category"`
	ReviewerID         string `json:"reviewer_id"`
	Rating             string `json:"rating"`
	ReviewTitle        string `json:"review_title"`
	ReviewText         string `json:"review_text"`
	AttachedImages     string `json:"attached_images"`
	ProductID          string `json:"product_id"`
	ReviewTimestamp    string `json:"review_timestamp"`
	IsVerifiedPurchase string `json:"is_verified_purchase"`
	HelpfulVotes       string `json:"helpful_votes"`
}

// Product is the value stored under each parent product id.
type Product struct {
	Reviews []NestedReview `json:"reviews"`
}

// Nest converts a normalized review to its nested form.
func Nest(r record.Review) NestedReview {
	return NestedReview{
		Category:           r.Value(record.Category),
		ReviewerID:         r.Value(record.ReviewerID),
		Rating:             r.Value(record.Rating),
		ReviewTitle:        r.Value(record.ReviewTitle),
		ReviewText:         r.Value(record.ReviewText),
		AttachedImages:     r.Value(record.AttachedImages),
		ProductID:          r.Value(record.ProductID),
		ReviewTimestamp:    r.Value(record.ReviewTimestamp),
		IsVerifiedPurchase: r.Value(record.IsVerifiedPurchase),
		HelpfulVotes:       r.Value(record.HelpfulVotes),
	}
}

// Raw turns a nested review back into a raw record of product parentID.
func (n NestedReview) Raw(parentID string) record.Raw {
	return record.Raw{
		record.Category:           n.Category,
		record.ReviewerID:         n.ReviewerID,
		record.Rating:             n.Rating,
		record.ReviewTitle:        n.ReviewTitle,
		record.ReviewText:         n.ReviewText,
		record.AttachedImages:     n.AttachedImages,
		record.ProductID:          n.ProductID,
		record.ParentProductID:    parentID,
		record.ReviewTimestamp:    n.ReviewTimestamp,
		record.IsVerifiedPurchase: n.IsVerifiedPurchase,
		record.HelpfulVotes:       n.HelpfulVotes,
	}
}

// WriteNested writes the product groups as a JSON object keyed by parent id,
// indented by two spaces.
func WriteNested(w io.Writer, groups []group.Group) error {
	doc := make(map[string]Product, len(groups))
	for _, g := range groups {
		p := Product{Reviews: make([]NestedReview, len(g.Reviews))}
		for i, r := range g.Reviews {
			p.Reviews[i] = Nest(r)
		}
		doc[g.ParentID] = p
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// ReadNested decodes a file written by WriteNested into raw records, ordered
// by parent id and then by position.
func ReadNested(r io.Reader) ([]record.Raw, error) {
	var doc map[string]Product
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode nested reviews: %v", internalerr.ErrStructural, err)
	}

	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []record.Raw
	for _, id := range ids {
		for _, n := range doc[id].Reviews {
			out = append(out, n.Raw(id))
		}
	}
	return out, nil
}
