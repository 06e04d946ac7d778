// Package verify checks a nested review file against the published layout.
package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one conformance problem. Review is -1 for product-level issues.
type Issue struct {
	Severity Severity
	Product  string
	Review   int
	Message  string
}

func (i Issue) String() string {
	if i.Review < 0 {
		return fmt.Sprintf("%s: product %s: %s", i.Severity, i.Product, i.Message)
	}
	return fmt.Sprintf("%s: product %s review %d: %s", i.Severity, i.Product, i.Review, i.Message)
}

// Report summarizes a verification run.
type Report struct {
	Products int
	Reviews  int
	Issues   []Issue
}

// Errors counts error-level issues.
func (r Report) Errors() int {
	return lo.CountBy(r.Issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// Warnings counts warning-level issues.
func (r Report) Warnings() int {
	return lo.CountBy(r.Issues, func(i Issue) bool { return i.Severity == SeverityWarning })
}

// Passed is true when there are no errors. Warnings do not fail a file.
func (r Report) Passed() bool {
	return r.Errors() == 0
}

// Err returns nil for a passing report and an error wrapping
// internalerr.ErrValidation otherwise.
func (r Report) Err() error {
	if r.Passed() {
		return nil
	}
	return fmt.Errorf("%w: %d errors in %d products", internalerr.ErrValidation, r.Errors(), r.Products)
}

// File verifies the file at path.
func File(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("%w: open %s: %v", internalerr.ErrStructural, path, err)
	}
	defer f.Close()
	return Verify(f)
}

// Verify reads a nested review document and enumerates every deviation.
// Only an undecodable document or a non-object top level returns an error.
func Verify(r io.Reader) (Report, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Report{}, fmt.Errorf("%w: decode: %v", internalerr.ErrStructural, err)
	}
	top, ok := doc.(map[string]any)
	if !ok {
		return Report{}, fmt.Errorf("%w: top level is not an object", internalerr.ErrStructural)
	}

	var rep Report
	ids := lo.Keys(top)
	sort.Strings(ids)

	for _, id := range ids {
		rep.Products++
		checkProduct(&rep, id, top[id])
	}
	return rep, nil
}

func checkProduct(rep *Report, id string, value any) {
	product, ok := value.(map[string]any)
	if !ok {
		rep.add(SeverityError, id, -1, "value is not an object")
		return
	}
	rawReviews, ok := product["reviews"]
	if !ok {
		rep.add(SeverityError, id, -1, `missing "reviews" key`)
		return
	}
	reviews, ok := rawReviews.([]any)
	if !ok {
		rep.add(SeverityError, id, -1, `"reviews" is not a list`)
		return
	}
	if len(reviews) == 0 {
		rep.add(SeverityWarning, id, -1, "no reviews")
		return
	}

	for i, rv := range reviews {
		rep.Reviews++
		checkReview(rep, id, i, rv)
	}
}

var expectedKeys = lo.Map(record.NestedFields, func(f record.Field, _ int) string { return string(f) })

func checkReview(rep *Report, id string, idx int, value any) {
	review, ok := value.(map[string]any)
	if !ok {
		rep.add(SeverityError, id, idx, "review is not an object")
		return
	}

	keys := lo.Keys(review)
	missing, extra := lo.Difference(expectedKeys, keys)
	if len(missing) > 0 {
		sort.Strings(missing)
		rep.add(SeverityError, id, idx, "missing keys: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		rep.add(SeverityError, id, idx, "unexpected keys: "+strings.Join(extra, ", "))
	}
	if len(missing) > 0 || len(extra) > 0 {
		return
	}

	for _, k := range expectedKeys {
		if _, isString := review[k].(string); !isString {
			rep.add(SeverityError, id, idx, fmt.Sprintf("%s is not a string", k))
		}
	}

	if ts, ok := review[string(record.ReviewTimestamp)].(string); ok {
		if _, err := time.Parse(record.TimeLayout, ts); err != nil {
			rep.add(SeverityError, id, idx, fmt.Sprintf("review_timestamp %q does not match %s", ts, record.TimeLayout))
		}
	}

	if rating, ok := review[string(record.Rating)].(string); ok {
		v, err := strconv.ParseFloat(rating, 64)
		switch {
		case err != nil:
			rep.add(SeverityError, id, idx, fmt.Sprintf("rating %q is not a number", rating))
		case v < 0 || v > 5:
			rep.add(SeverityWarning, id, idx, fmt.Sprintf("rating %s outside [0,5]", rating))
		}
	}
}

func (r *Report) add(sev Severity, product string, review int, msg string) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Product: product, Review: review, Message: msg})
}
