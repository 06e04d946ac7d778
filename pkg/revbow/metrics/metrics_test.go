package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cognicore/revbow/pkg/revbow/extract"
	"github.com/cognicore/revbow/pkg/revbow/normalize"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

func TestObserveStats(t *testing.T) {
	m := New()
	m.ObserveExtract(extract.Stats{
		Records: 5,
		Missing: map[record.Field]int{record.Rating: 2, record.HelpfulVotes: 1},
	})
	m.ObserveNormalize(normalize.Stats{
		Input:      5,
		Output:     4,
		Duplicates: 1,
		Coercion:   map[record.Field]int{record.ReviewTimestamp: 3},
		Encoding:   2,
	})

	if got := testutil.ToFloat64(m.RecordsExtractedTotal); got != 5 {
		t.Errorf("records = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.FieldsMissingTotal.WithLabelValues("rating")); got != 2 {
		t.Errorf("missing rating = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CoercionsTotal.WithLabelValues("review_timestamp")); got != 3 {
		t.Errorf("coercions = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ReviewsTotal); got != 4 {
		t.Errorf("reviews = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.DuplicatesTotal); got != 1 {
		t.Errorf("duplicates = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EncodingDropsTotal); got != 2 {
		t.Errorf("encoding = %v, want 2", got)
	}

	recoveries := map[string]float64{"missing_field": 3, "type_coercion": 3, "encoding": 2}
	for class, want := range recoveries {
		if got := testutil.ToFloat64(m.RecoveriesTotal.WithLabelValues(class)); got != want {
			t.Errorf("recoveries{class=%q} = %v, want %v", class, got, want)
		}
	}
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ReviewsTotal.Add(3)
	if got := testutil.ToFloat64(b.ReviewsTotal); got != 0 {
		t.Errorf("collectors leaked between instances: %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Groups.Set(7)
	m.VocabularyTerms.WithLabelValues("bigram").Set(3)
	m.ObserveStage("vectorize", time.Now())

	path := filepath.Join(t.TempDir(), "revbow.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"revbow_groups 7",
		`revbow_vocabulary_terms{kind="bigram"} 3`,
		`revbow_stage_duration_seconds_count{stage="vectorize"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}
