package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/revbow/pkg/revbow/encode"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
	"github.com/cognicore/revbow/pkg/revbow/store"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleReviews() []record.Review {
	rating := 4.5
	votes := int64(3)
	return []record.Review{
		{
			Category: "books", ReviewerID: "u1", Rating: &rating, ReviewTitle: "nice",
			ReviewText: "great read", AttachedImages: record.None, ProductID: "b1",
			ParentProductID: "p1", Timestamp: "2021-01-01 00:00:00", Verified: true, HelpfulVotes: &votes,
		},
		{
			Category: "books", ReviewerID: "u2", ReviewTitle: record.None,
			ReviewText: record.None, AttachedImages: record.None, ProductID: "b2",
			ParentProductID: "p0", Timestamp: record.None,
		},
	}
}

func TestSQLiteIntegrationRuns(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	if _, err := st.LatestRun(ctx); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := store.Run{ID: "01HQ0000000000000000000001", CreatedAt: created, Inputs: []string{"a.txt", "b.csv"}}
	second := store.Run{ID: "01HQ0000000000000000000002", CreatedAt: created.Add(time.Second)}
	for _, r := range []store.Run{first, second} {
		if err := st.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	got, err := st.GetRun(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.CreatedAt.Equal(created) || !reflect.DeepEqual(got.Inputs, first.Inputs) {
		t.Errorf("run mismatch: %+v", got)
	}

	first.Reviews, first.Groups, first.VocabSize = 10, 2, 7
	if err := st.CreateRun(ctx, first); err != nil {
		t.Fatalf("CreateRun update: %v", err)
	}
	got, _ = st.GetRun(ctx, first.ID)
	if got.Reviews != 10 || got.Groups != 2 || got.VocabSize != 7 {
		t.Errorf("counters not updated: %+v", got)
	}

	latest, err := st.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %s, want %s", latest.ID, second.ID)
	}

	if _, err := st.GetRun(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.CreateRun(ctx, store.Run{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestSQLiteIntegrationArtifacts(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	const runID = "01HQ0000000000000000000001"
	if err := st.CreateRun(ctx, store.Run{ID: runID}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	reviews := sampleReviews()
	if err := st.UpsertReviews(ctx, runID, reviews); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}
	gotReviews, err := st.GetReviews(ctx, runID)
	if err != nil {
		t.Fatalf("GetReviews: %v", err)
	}
	if !reflect.DeepEqual(gotReviews, reviews) {
		t.Errorf("reviews mismatch:\n got %+v\nwant %+v", gotReviews, reviews)
	}

	// Re-upserting replaces, it does not append.
	if err := st.UpsertReviews(ctx, runID, reviews[:1]); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}
	gotReviews, _ = st.GetReviews(ctx, runID)
	if len(gotReviews) != 1 {
		t.Errorf("expected 1 review after replace, got %d", len(gotReviews))
	}

	terms := []string{"battery", "great", "sound", "sound_great"}
	if err := st.SaveVocabulary(ctx, runID, terms); err != nil {
		t.Fatalf("SaveVocabulary: %v", err)
	}
	gotTerms, err := st.GetVocabulary(ctx, runID)
	if err != nil {
		t.Fatalf("GetVocabulary: %v", err)
	}
	if !reflect.DeepEqual(gotTerms, terms) {
		t.Errorf("terms = %v, want %v", gotTerms, terms)
	}

	vectors := []encode.Vector{
		{ParentID: "p1", Entries: []encode.Entry{{Index: 0, Count: 2}, {Index: 3, Count: 1}}},
		{ParentID: "p0"},
	}
	if err := st.SaveVectors(ctx, runID, vectors); err != nil {
		t.Fatalf("SaveVectors: %v", err)
	}
	gotVectors, err := st.GetVectors(ctx, runID)
	if err != nil {
		t.Fatalf("GetVectors: %v", err)
	}
	want := []encode.Vector{vectors[1], vectors[0]}
	if !reflect.DeepEqual(gotVectors, want) {
		t.Errorf("vectors = %+v, want %+v", gotVectors, want)
	}

	if err := st.SaveTokenDF(ctx, runID, map[string]int64{"sound": 4, "great": 2}); err != nil {
		t.Fatalf("SaveTokenDF: %v", err)
	}
	if df, _ := st.GetTokenDF(ctx, runID, "sound"); df != 4 {
		t.Errorf("df(sound) = %d, want 4", df)
	}
	if df, _ := st.GetTokenDF(ctx, runID, "unseen"); df != 0 {
		t.Errorf("df(unseen) = %d, want 0", df)
	}
}

func TestSQLiteIntegrationUnknownRun(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	if err := st.UpsertReviews(ctx, "nope", sampleReviews()); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("UpsertReviews: expected ErrNotFound, got %v", err)
	}
	if err := st.SaveVocabulary(ctx, "nope", []string{"a"}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("SaveVocabulary: expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetVectors(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetVectors: expected ErrNotFound, got %v", err)
	}
}

func TestSchemaCreationIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := st.CreateRun(ctx, store.Run{ID: "r1"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer st.Close()
	if _, err := st.GetRun(ctx, "r1"); err != nil {
		t.Errorf("run lost across reopen: %v", err)
	}
}
