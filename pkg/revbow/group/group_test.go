package group

import (
	"fmt"
	"testing"

	"github.com/cognicore/revbow/pkg/revbow/record"
)

func review(pid, text string) record.Review {
	return record.Review{ParentProductID: pid, ReviewText: text}
}

func TestBySortsAndKeepsOrder(t *testing.T) {
	groups := By([]record.Review{
		review("p2", "first"),
		review("p1", "a"),
		review("p2", "second"),
		review("p10", "b"),
	})

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	ids := []string{groups[0].ParentID, groups[1].ParentID, groups[2].ParentID}
	if ids[0] != "p1" || ids[1] != "p10" || ids[2] != "p2" {
		t.Errorf("unexpected group order %v", ids)
	}
	if groups[2].Reviews[0].ReviewText != "first" || groups[2].Reviews[1].ReviewText != "second" {
		t.Error("reviews inside a group must keep input order")
	}
}

func TestSummarize(t *testing.T) {
	groups := By([]record.Review{
		review("p1", "good"),
		review("p1", record.None),
		review("p1", "bad"),
	})

	rows := Summarize(groups)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ReviewCount != 3 || rows[0].TextCount != 2 {
		t.Errorf("unexpected summary %+v", rows[0])
	}
	if got := groups[0].Texts(); len(got) != 2 || got[1] != "bad" {
		t.Errorf("Texts = %v", got)
	}
}

func TestEligibleGate(t *testing.T) {
	var reviews []record.Review
	for i := 0; i < 49; i++ {
		reviews = append(reviews, review("p49", fmt.Sprintf("text %d", i)))
	}
	for i := 0; i < 50; i++ {
		reviews = append(reviews, review("p50", fmt.Sprintf("text %d", i)))
	}
	// Sentinel texts do not count toward eligibility.
	for i := 0; i < 10; i++ {
		reviews = append(reviews, review("p49", record.None))
	}

	eligible := Eligible(By(reviews), DefaultMinReviews)
	if len(eligible) != 1 || eligible[0].ParentID != "p50" {
		t.Errorf("expected only p50 eligible, got %+v", eligible)
	}
}
