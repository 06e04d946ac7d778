package normalize

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/cognicore/revbow/pkg/revbow/record"
)

func TestCleanScenario(t *testing.T) {
	c := NewCleaner(MarkupRegex)
	if got := c.Clean("Works <br> well 😀"); got != "Works  well" {
		t.Errorf("Clean = %q, want %q", got, "Works  well")
	}
}

func TestCleanOrder(t *testing.T) {
	c := NewCleaner(MarkupRegex)
	tests := []struct {
		in, want string
	}{
		{"<b>bold</b> text", "bold text"},
		{"  café crème  ", "caf crme"},
		{"rocket 🚀 launch", "rocket  launch"},
		{"line\nbreak\ttab", "line\nbreaktab"},
		{"a <span\nclass=x> b", "a <span\nclass=x> b"},
		{"a <span\r\nclass=x> b", "a <span\nclass=x> b"},
		{"5 < 6", "5 < 6"},
		{"✂ cut", "cut"},
	}
	for _, tt := range tests {
		if got := c.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanKeepsBracketsAcrossLines(t *testing.T) {
	c := NewCleaner(MarkupRegex)
	got := c.Clean("I <3 these headphones\nbattery lasts > 20 hours")
	want := "I <3 these headphones\nbattery lasts > 20 hours"
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}

	n := New(DefaultOptions())
	once := n.Normalize(record.Raw{record.ReviewText: got})
	if once.ReviewText != "i <3 these headphones\nbattery lasts > 20 hours" {
		t.Errorf("review_text = %q", once.ReviewText)
	}
	if twice := n.Normalize(once.Raw()); twice.ReviewText != once.ReviewText {
		t.Errorf("second pass changed text: %q", twice.ReviewText)
	}
}

func TestCleanHTMLMarkup(t *testing.T) {
	c := NewCleaner(MarkupHTML)
	got := c.Clean("<p>Great <b>value</b></p><script>alert(1)</script> &amp; fast")
	if got != "Great value & fast" {
		t.Errorf("Clean = %q", got)
	}
}

func TestParseVerified(t *testing.T) {
	tests := map[string]bool{
		"TRUE":   true,
		" true ": true,
		"True":   true,
		"no":     false,
		"none":   false,
		"":       false,
		"1":      false,
	}
	for in, want := range tests {
		if got := ParseVerified(in); got != want {
			t.Errorf("ParseVerified(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1609459200000", "2021-01-01 00:00:00", true},
		{"1609459200123.0", "2021-01-01 00:00:00", true},
		{"2021-01-01 00:00:00", "2021-01-01 00:00:00", true},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseVotes(t *testing.T) {
	if v, ok := ParseVotes("12"); !ok || v != 12 {
		t.Errorf("ParseVotes(12) = %d,%v", v, ok)
	}
	if v, ok := ParseVotes("3.0"); !ok || v != 3 {
		t.Errorf("ParseVotes(3.0) = %d,%v", v, ok)
	}
	if _, ok := ParseVotes("2.5"); ok {
		t.Error("ParseVotes(2.5) should fail")
	}
	if _, ok := ParseVotes("many"); ok {
		t.Error("ParseVotes(many) should fail")
	}
}

func TestNormalizeScenario(t *testing.T) {
	n := New(DefaultOptions())
	raw := record.Raw{
		record.Category:        "Electronics",
		record.ReviewerID:      "u1",
		record.Rating:          "4",
		record.ReviewTitle:     "Good",
		record.ReviewText:      "Works <br> well 😀",
		record.ParentProductID: "P1",
	}

	r := n.Normalize(raw)

	if r.Category != "electronics" || r.ReviewerID != "u1" || r.ReviewTitle != "good" {
		t.Errorf("unexpected text fields: %+v", r)
	}
	if r.ReviewText != "works  well" {
		t.Errorf("review_text = %q", r.ReviewText)
	}
	if r.Rating == nil || *r.Rating != 4 {
		t.Errorf("rating = %v, want 4", r.Rating)
	}
	if r.ParentProductID != "p1" {
		t.Errorf("parent_product_id = %q", r.ParentProductID)
	}
	for _, f := range []record.Field{record.AttachedImages, record.ProductID, record.ReviewTimestamp, record.HelpfulVotes} {
		if r.Value(f) != record.None {
			t.Errorf("%s = %q, want none", f, r.Value(f))
		}
	}
	if r.Verified {
		t.Error("verified should default to false")
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestNormalizeCoercionFailures(t *testing.T) {
	n := New(DefaultOptions())
	raw := record.Raw{
		record.Rating:          "five",
		record.HelpfulVotes:    "lots",
		record.ReviewTimestamp: "last week",
		record.ReviewText:      "   ",
	}

	r, stats := n.normalize(raw)
	if r.Rating != nil || r.HelpfulVotes != nil || r.Timestamp != record.None {
		t.Errorf("expected null typed fields, got %+v", r)
	}
	if r.ReviewText != record.None {
		t.Errorf("blank text should become none, got %q", r.ReviewText)
	}
	if stats.CoercionTotal() != 3 {
		t.Errorf("expected 3 coercion failures, got %d", stats.CoercionTotal())
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New(DefaultOptions())
	raws := []record.Raw{
		{
			record.Category:           "Books",
			record.Rating:             "3.5",
			record.ReviewText:         "<i>Nice</i> read ✨ — really",
			record.ReviewTimestamp:    "1609459200000",
			record.IsVerifiedPurchase: "TRUE",
			record.HelpfulVotes:       "2",
		},
		{record.ReviewText: "a <b\nc> d"},
		{record.ReviewText: "日本語"},
		{},
	}

	for i, raw := range raws {
		once := n.Normalize(raw)
		twice := n.Normalize(once.Raw())
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("raw %d not a fixed point:\n once=%+v\ntwice=%+v", i, once, twice)
		}
	}
}

func TestNonASCIIOnlyTextBecomesNone(t *testing.T) {
	n := New(DefaultOptions())
	r := n.Normalize(record.Raw{record.ReviewText: "日本語"})
	if r.ReviewText != record.None {
		t.Errorf("review_text = %q, want none", r.ReviewText)
	}
}

func TestDedupStable(t *testing.T) {
	a := record.Review{Category: "a"}
	b := record.Review{Category: "b"}
	out, dups := Dedup([]record.Review{a, b, a, a, b})
	if dups != 3 {
		t.Errorf("expected 3 duplicates, got %d", dups)
	}
	if len(out) != 2 || out[0].Category != "a" || out[1].Category != "b" {
		t.Errorf("unexpected order: %+v", out)
	}
}

func TestNormalizeAllMatchesSequential(t *testing.T) {
	n := New(DefaultOptions())
	raws := make([]record.Raw, 500)
	for i := range raws {
		raws[i] = record.Raw{
			record.ParentProductID: fmt.Sprintf("P%d", i%7),
			record.ReviewText:      fmt.Sprintf("review number %d", i%250),
			record.Rating:          "bad",
		}
	}

	got, stats, err := n.NormalizeAll(context.Background(), raws, 4)
	if err != nil {
		t.Fatalf("NormalizeAll: %v", err)
	}

	var want []record.Review
	for _, raw := range raws {
		want = append(want, n.Normalize(raw))
	}
	want, _ = Dedup(want)

	if !reflect.DeepEqual(got, want) {
		t.Fatal("parallel output differs from sequential output")
	}
	if stats.Input != 500 || stats.Output != len(want) || stats.Duplicates != 500-len(want) {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Coercion[record.Rating] != 500 {
		t.Errorf("expected 500 rating failures, got %d", stats.Coercion[record.Rating])
	}
}

func TestLanguageGate(t *testing.T) {
	german := "Das Produkt ist wirklich sehr gut und ich bin damit zufrieden. Die Lieferung war schnell und der Preis ist auch in Ordnung, ich kann es nur empfehlen."
	english := "The product is really very good and I am happy with it. The delivery was fast and the price is fine too, I can only recommend it."

	whatlang := New(Options{CleanFields: []record.Field{record.ReviewText}, LanguageGate: GateWhatlang})
	ascii := New(DefaultOptions())

	r, stats := whatlang.normalize(record.Raw{record.ReviewText: german})
	if r.ReviewText != record.None {
		t.Errorf("german text should be dropped under whatlang, got %q", r.ReviewText)
	}
	if stats.Encoding != 1 {
		t.Errorf("expected 1 encoding drop, got %d", stats.Encoding)
	}

	r, stats = whatlang.normalize(record.Raw{record.ReviewText: english})
	if r.ReviewText == record.None || stats.Encoding != 0 {
		t.Errorf("english text should be kept, got %q with %d drops", r.ReviewText, stats.Encoding)
	}

	r, stats = ascii.normalize(record.Raw{record.ReviewText: german})
	if r.ReviewText == record.None || stats.Encoding != 0 {
		t.Errorf("ascii gate should keep german text, got %q with %d drops", r.ReviewText, stats.Encoding)
	}
}
