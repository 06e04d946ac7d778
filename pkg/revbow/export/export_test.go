package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/revbow/pkg/revbow/group"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/normalize"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

func sampleGroups(t *testing.T) []group.Group {
	t.Helper()
	n := normalize.New(normalize.DefaultOptions())
	raws := []record.Raw{
		{
			record.Category:           "Electronics",
			record.ReviewerID:         "u1",
			record.Rating:             "4",
			record.ReviewText:         "Works <b>well</b> & fast",
			record.ParentProductID:    "P1",
			record.ReviewTimestamp:    "1609459200000",
			record.IsVerifiedPurchase: "TRUE",
			record.HelpfulVotes:       "3",
		},
		{record.ParentProductID: "P1"},
		{record.ParentProductID: "P0", record.ReviewText: "ok"},
	}
	var reviews []record.Review
	for _, raw := range raws {
		reviews = append(reviews, n.Normalize(raw))
	}
	return group.By(reviews)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, group.Summarize(sampleGroups(t))))

	want := "parent_product_id,review_count,review_text_count\np0,1,1\np1,2,1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteNestedShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNested(&buf, sampleGroups(t)))

	assert.Contains(t, buf.String(), "\n  \"p0\": {")
	assert.Contains(t, buf.String(), "works well & fast", "HTML characters must not be escaped")

	var doc map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc, 2)

	reviews := doc["p1"]["reviews"]
	require.Len(t, reviews, 2)
	for _, r := range reviews {
		assert.Len(t, r, len(record.NestedFields))
		for _, f := range record.NestedFields {
			v, ok := r[string(f)]
			require.True(t, ok, "missing key %s", f)
			assert.IsType(t, "", v, "key %s", f)
		}
		_, hasParent := r[string(record.ParentProductID)]
		assert.False(t, hasParent)
	}

	first := reviews[0]
	assert.Equal(t, "4.0", first["rating"])
	assert.Equal(t, "true", first["is_verified_purchase"])
	assert.Equal(t, "3", first["helpful_votes"])
	assert.Equal(t, "2021-01-01 00:00:00", first["review_timestamp"])
	assert.Equal(t, "none", reviews[1]["review_text"])
}

func TestNestedKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNested(&buf, sampleGroups(t)))

	out := buf.String()
	last := -1
	for _, f := range record.NestedFields {
		i := strings.Index(out, "\""+string(f)+"\"")
		require.GreaterOrEqual(t, i, 0)
		assert.Greater(t, i, last, "key %s out of order", f)
		last = i
	}
}

func TestReadNestedRoundTrip(t *testing.T) {
	groups := sampleGroups(t)

	var buf bytes.Buffer
	require.NoError(t, WriteNested(&buf, groups))

	raws, err := ReadNested(&buf)
	require.NoError(t, err)
	require.Len(t, raws, 3)

	n := normalize.New(normalize.DefaultOptions())
	var reviews []record.Review
	for _, raw := range raws {
		reviews = append(reviews, n.Normalize(raw))
	}
	back := group.By(reviews)
	assert.Equal(t, groups, back)
}

func TestReadNestedStructuralError(t *testing.T) {
	_, err := ReadNested(strings.NewReader("{not json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrStructural))
}
