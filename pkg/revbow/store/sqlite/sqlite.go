package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/revbow/pkg/revbow/encode"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/record"
	"github.com/cognicore/revbow/pkg/revbow/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	inputs TEXT,
	reviews INTEGER DEFAULT 0,
	groups_count INTEGER DEFAULT 0,
	vocab_size INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reviews (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	category TEXT NOT NULL,
	reviewer_id TEXT NOT NULL,
	rating REAL,
	review_title TEXT NOT NULL,
	review_text TEXT NOT NULL,
	attached_images TEXT NOT NULL,
	product_id TEXT NOT NULL,
	parent_product_id TEXT NOT NULL,
	review_timestamp TEXT NOT NULL,
	verified INTEGER NOT NULL,
	helpful_votes INTEGER,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_reviews_parent ON reviews(run_id, parent_product_id);

CREATE TABLE IF NOT EXISTS vocabulary (
	run_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	term TEXT NOT NULL,
	PRIMARY KEY(run_id, idx),
	UNIQUE(run_id, term),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS vectors (
	run_id TEXT NOT NULL,
	parent_product_id TEXT NOT NULL,
	line TEXT NOT NULL,
	PRIMARY KEY(run_id, parent_product_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS token_df (
	run_id TEXT NOT NULL,
	token TEXT NOT NULL,
	df INTEGER NOT NULL,
	PRIMARY KEY(run_id, token),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: init schema: %v", internalerr.ErrStoreUnavailable, err)
	}
	return nil
}

// CreateRun inserts a run, or updates its counters if it already exists.
func (s *sqliteStore) CreateRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is empty", internalerr.ErrInvalidInput)
	}
	inputs, err := json.Marshal(r.Inputs)
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (id, created_at, inputs, reviews, groups_count, vocab_size)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	inputs=excluded.inputs,
	reviews=excluded.reviews,
	groups_count=excluded.groups_count,
	vocab_size=excluded.vocab_size;
`, r.ID, r.CreatedAt.UTC().Format(time.RFC3339Nano), string(inputs), r.Reviews, r.Groups, r.VocabSize)
	return err
}

// GetRun loads a run by id.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, created_at, inputs, reviews, groups_count, vocab_size FROM runs WHERE id=?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, err
}

// LatestRun returns the most recently created run. Run ids sort by creation
// time.
func (s *sqliteStore) LatestRun(ctx context.Context) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, created_at, inputs, reviews, groups_count, vocab_size FROM runs ORDER BY id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("no runs: %w", internalerr.ErrNotFound)
	}
	return r, err
}

func scanRun(row *sql.Row) (store.Run, error) {
	var (
		r       store.Run
		created string
		inputs  sql.NullString
	)
	if err := row.Scan(&r.ID, &created, &inputs, &r.Reviews, &r.Groups, &r.VocabSize); err != nil {
		return store.Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: bad created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	if inputs.Valid && inputs.String != "" {
		if err := json.Unmarshal([]byte(inputs.String), &r.Inputs); err != nil {
			return store.Run{}, fmt.Errorf("run %s: bad inputs: %w", r.ID, err)
		}
	}
	return r, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func requireRun(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id=?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return err
}

// UpsertReviews replaces the reviews stored for a run.
func (s *sqliteStore) UpsertReviews(ctx context.Context, runID string, reviews []record.Review) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE run_id=?`, runID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO reviews (run_id, seq, category, reviewer_id, rating, review_title, review_text,
	attached_images, product_id, parent_product_id, review_timestamp, verified, helpful_votes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range reviews {
		var rating sql.NullFloat64
		if r.Rating != nil {
			rating = sql.NullFloat64{Float64: *r.Rating, Valid: true}
		}
		var votes sql.NullInt64
		if r.HelpfulVotes != nil {
			votes = sql.NullInt64{Int64: *r.HelpfulVotes, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, i,
			r.Category, r.ReviewerID, rating, r.ReviewTitle, r.ReviewText,
			r.AttachedImages, r.ProductID, r.ParentProductID, r.Timestamp,
			r.Verified, votes,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetReviews returns a run's reviews in stored order.
func (s *sqliteStore) GetReviews(ctx context.Context, runID string) ([]record.Review, error) {
	if err := requireRun(ctx, s.db, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT category, reviewer_id, rating, review_title, review_text, attached_images,
	product_id, parent_product_id, review_timestamp, verified, helpful_votes
FROM reviews WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Review
	for rows.Next() {
		var (
			r      record.Review
			rating sql.NullFloat64
			votes  sql.NullInt64
		)
		if err := rows.Scan(&r.Category, &r.ReviewerID, &rating, &r.ReviewTitle, &r.ReviewText,
			&r.AttachedImages, &r.ProductID, &r.ParentProductID, &r.Timestamp, &r.Verified, &votes); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := rating.Float64
			r.Rating = &v
		}
		if votes.Valid {
			v := votes.Int64
			r.HelpfulVotes = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveVocabulary replaces a run's vocabulary; terms are stored at their
// slice position.
func (s *sqliteStore) SaveVocabulary(ctx context.Context, runID string, terms []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vocabulary WHERE run_id=?`, runID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vocabulary (run_id, idx, term) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, term := range terms {
		if _, err := stmt.ExecContext(ctx, runID, i, term); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetVocabulary returns a run's terms in index order.
func (s *sqliteStore) GetVocabulary(ctx context.Context, runID string) ([]string, error) {
	if err := requireRun(ctx, s.db, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT term FROM vocabulary WHERE run_id=? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// SaveVectors replaces a run's count vectors. Each vector is kept in its
// text line form.
func (s *sqliteStore) SaveVectors(ctx context.Context, runID string, vectors []encode.Vector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE run_id=?`, runID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vectors (run_id, parent_product_id, line) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, v := range vectors {
		if _, err := stmt.ExecContext(ctx, runID, v.ParentID, encode.Format(v)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetVectors returns a run's vectors ordered by parent product id.
func (s *sqliteStore) GetVectors(ctx context.Context, runID string) ([]encode.Vector, error) {
	if err := requireRun(ctx, s.db, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT line FROM vectors WHERE run_id=? ORDER BY parent_product_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []encode.Vector
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		v, err := encode.Parse(line)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SaveTokenDF replaces a run's document frequency table.
func (s *sqliteStore) SaveTokenDF(ctx context.Context, runID string, df map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM token_df WHERE run_id=?`, runID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO token_df (run_id, token, df) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for token, n := range df {
		if _, err := stmt.ExecContext(ctx, runID, token, n); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTokenDF retrieves the document frequency of a token, 0 if unseen.
func (s *sqliteStore) GetTokenDF(ctx context.Context, runID, token string) (int64, error) {
	var df int64
	err := s.db.QueryRowContext(ctx, `SELECT df FROM token_df WHERE run_id=? AND token=?`, runID, token).Scan(&df)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return df, err
}
