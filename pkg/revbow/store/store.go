package store

import (
	"context"
	"time"

	"github.com/cognicore/revbow/pkg/revbow/encode"
	"github.com/cognicore/revbow/pkg/revbow/record"
)

// Store persists pipeline runs and their artifacts.
type Store interface {
	Close() error

	// Runs
	CreateRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	LatestRun(ctx context.Context) (Run, error)

	// Reviews, in stored order
	UpsertReviews(ctx context.Context, runID string, reviews []record.Review) error
	GetReviews(ctx context.Context, runID string) ([]record.Review, error)

	// Vocabulary terms, in index order
	SaveVocabulary(ctx context.Context, runID string, terms []string) error
	GetVocabulary(ctx context.Context, runID string) ([]string, error)

	// Count vectors, ordered by parent product id
	SaveVectors(ctx context.Context, runID string, vectors []encode.Vector) error
	GetVectors(ctx context.Context, runID string) ([]encode.Vector, error)

	// Group document frequencies
	SaveTokenDF(ctx context.Context, runID string, df map[string]int64) error
	GetTokenDF(ctx context.Context, runID, token string) (int64, error)
}

// Run describes one pipeline execution.
type Run struct {
	ID        string
	CreatedAt time.Time
	Inputs    []string // source files
	Reviews   int
	Groups    int
	VocabSize int
}
