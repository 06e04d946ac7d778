package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/revbow/pkg/revbow/encode"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
	"github.com/cognicore/revbow/pkg/revbow/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]store.Run
	reviews map[string][]record.Review
	vocab   map[string][]string
	vectors map[string][]encode.Vector
	tokenDF map[string]map[string]int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:    make(map[string]store.Run),
		reviews: make(map[string][]record.Review),
		vocab:   make(map[string][]string),
		vectors: make(map[string][]encode.Vector),
		tokenDF: make(map[string]map[string]int64),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateRun inserts a run, or updates its counters if it already exists.
func (s *Store) CreateRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is empty", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.runs[r.ID]; ok {
		r.CreatedAt = existing.CreatedAt
	} else if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.Inputs = slices.Clone(r.Inputs)
	s.runs[r.ID] = r
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(r), nil
}

// LatestRun returns the run with the greatest id.
func (s *Store) LatestRun(ctx context.Context) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return store.Run{}, fmt.Errorf("no runs: %w", internalerr.ErrNotFound)
	}
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return copyRun(s.runs[ids[len(ids)-1]]), nil
}

func (s *Store) requireRun(id string) error {
	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// UpsertReviews replaces the reviews stored for a run.
func (s *Store) UpsertReviews(ctx context.Context, runID string, reviews []record.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	out := make([]record.Review, len(reviews))
	for i, r := range reviews {
		out[i] = copyReview(r)
	}
	s.reviews[runID] = out
	return nil
}

// GetReviews returns a run's reviews in stored order.
func (s *Store) GetReviews(ctx context.Context, runID string) ([]record.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	stored := s.reviews[runID]
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]record.Review, len(stored))
	for i, r := range stored {
		out[i] = copyReview(r)
	}
	return out, nil
}

// SaveVocabulary replaces a run's vocabulary.
func (s *Store) SaveVocabulary(ctx context.Context, runID string, terms []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: duplicate term %q", internalerr.ErrInvalidInput, t)
		}
		seen[t] = struct{}{}
	}
	s.vocab[runID] = slices.Clone(terms)
	return nil
}

// GetVocabulary returns a run's terms in index order.
func (s *Store) GetVocabulary(ctx context.Context, runID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	return slices.Clone(s.vocab[runID]), nil
}

// SaveVectors replaces a run's count vectors.
func (s *Store) SaveVectors(ctx context.Context, runID string, vectors []encode.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	out := make([]encode.Vector, len(vectors))
	for i, v := range vectors {
		out[i] = encode.Vector{ParentID: v.ParentID, Entries: slices.Clone(v.Entries)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParentID < out[j].ParentID })
	s.vectors[runID] = out
	return nil
}

// GetVectors returns a run's vectors ordered by parent product id.
func (s *Store) GetVectors(ctx context.Context, runID string) ([]encode.Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	stored := s.vectors[runID]
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]encode.Vector, len(stored))
	for i, v := range stored {
		out[i] = encode.Vector{ParentID: v.ParentID, Entries: slices.Clone(v.Entries)}
	}
	return out, nil
}

// SaveTokenDF replaces a run's document frequency table.
func (s *Store) SaveTokenDF(ctx context.Context, runID string, df map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	cp := make(map[string]int64, len(df))
	for k, v := range df {
		cp[k] = v
	}
	s.tokenDF[runID] = cp
	return nil
}

// GetTokenDF returns the document frequency of a token, 0 if unseen.
func (s *Store) GetTokenDF(ctx context.Context, runID, token string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenDF[runID][token], nil
}

func copyRun(r store.Run) store.Run {
	r.Inputs = slices.Clone(r.Inputs)
	return r
}

func copyReview(r record.Review) record.Review {
	if r.Rating != nil {
		v := *r.Rating
		r.Rating = &v
	}
	if r.HelpfulVotes != nil {
		v := *r.HelpfulVotes
		r.HelpfulVotes = &v
	}
	return r
}

var _ store.Store = (*Store)(nil)
