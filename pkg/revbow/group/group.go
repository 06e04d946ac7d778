package group

import (
	"sort"

	"github.com/cognicore/revbow/pkg/revbow/record"
)

// DefaultMinReviews is the number of texted reviews a group needs before it
// takes part in vocabulary building and encoding.
const DefaultMinReviews = 50

// Group holds every review sharing one parent product id, in input order.
type Group struct {
	ParentID string
	Reviews  []record.Review
}

// Texts returns the review texts that are not the sentinel, in order.
func (g Group) Texts() []string {
	out := make([]string, 0, len(g.Reviews))
	for _, r := range g.Reviews {
		if r.HasText() {
			out = append(out, r.ReviewText)
		}
	}
	return out
}

// TextCount returns the number of reviews with usable text.
func (g Group) TextCount() int {
	n := 0
	for _, r := range g.Reviews {
		if r.HasText() {
			n++
		}
	}
	return n
}

// By groups reviews by parent product id. Groups come back sorted by id.
func By(reviews []record.Review) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range reviews {
		i, ok := index[r.ParentProductID]
		if !ok {
			i = len(groups)
			index[r.ParentProductID] = i
			groups = append(groups, Group{ParentID: r.ParentProductID})
		}
		groups[i].Reviews = append(groups[i].Reviews, r)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].ParentID < groups[j].ParentID
	})
	return groups
}

// Eligible returns the groups with at least minReviews texted reviews.
func Eligible(groups []Group, minReviews int) []Group {
	var out []Group
	for _, g := range groups {
		if g.TextCount() >= minReviews {
			out = append(out, g)
		}
	}
	return out
}

// Summary is one row of the per-product summary table.
type Summary struct {
	ParentID    string
	ReviewCount int
	TextCount   int
}

// Summarize builds one summary row per group.
func Summarize(groups []Group) []Summary {
	out := make([]Summary, len(groups))
	for i, g := range groups {
		out[i] = Summary{
			ParentID:    g.ParentID,
			ReviewCount: len(g.Reviews),
			TextCount:   g.TextCount(),
		}
	}
	return out
}
