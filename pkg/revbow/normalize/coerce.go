package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/revbow/pkg/revbow/record"
)

// ParseRating parses a numeric rating. ok is false for anything that is not
// a finite number.
func ParseRating(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseVotes parses a vote count. Integral decimals such as "3.0" are accepted.
func ParseVotes(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v > math.MaxInt64 || v < math.MinInt64 {
		return 0, false
	}
	return int64(v), true
}

// ParseTimestamp interprets s as epoch milliseconds and renders it in UTC
// using record.TimeLayout. A value already in that layout is returned as is.
func ParseTimestamp(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(record.TimeLayout, s); err == nil {
		return ts.Format(record.TimeLayout), true
	}

	var ms int64
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		ms = n
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		if v > math.MaxInt64 || v < math.MinInt64 {
			return "", false
		}
		ms = int64(math.Trunc(v))
	}

	ts := time.UnixMilli(ms).UTC()
	if ts.Year() < 1 || ts.Year() > 9999 {
		return "", false
	}
	return ts.Format(record.TimeLayout), true
}

// ParseVerified is true only for a case-insensitive "true".
func ParseVerified(s string) bool {
	return strings.ToLower(strings.TrimSpace(s)) == "true"
}
