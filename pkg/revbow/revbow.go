package revbow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"

	"github.com/cognicore/revbow/internal/logger"
	"github.com/cognicore/revbow/pkg/revbow/analytics"
	"github.com/cognicore/revbow/pkg/revbow/config"
	"github.com/cognicore/revbow/pkg/revbow/encode"
	"github.com/cognicore/revbow/pkg/revbow/export"
	"github.com/cognicore/revbow/pkg/revbow/extract"
	"github.com/cognicore/revbow/pkg/revbow/group"
	"github.com/cognicore/revbow/pkg/revbow/ingest"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/metrics"
	"github.com/cognicore/revbow/pkg/revbow/normalize"
	"github.com/cognicore/revbow/pkg/revbow/pmi"
	"github.com/cognicore/revbow/pkg/revbow/record"
	"github.com/cognicore/revbow/pkg/revbow/run"
	"github.com/cognicore/revbow/pkg/revbow/source"
	"github.com/cognicore/revbow/pkg/revbow/store"
	"github.com/cognicore/revbow/pkg/revbow/vocab"
)

// Revbow runs the review parsing and vectorization pipeline
type Revbow struct {
	store          store.Store
	extractor      *extract.Extractor
	normalizer     *normalize.Normalizer
	pipeline       *ingest.Pipeline
	vocabOpts      vocab.Options
	metrics        *metrics.Metrics
	runs           *run.Builder
	workers        int
	ignorePrefixes []string
}

// Options configures a Revbow instance. Nil components get defaults.
type Options struct {
	Store          store.Store
	Extractor      *extract.Extractor
	Normalizer     *normalize.Normalizer
	Pipeline       *ingest.Pipeline
	Vocab          vocab.Options
	Metrics        *metrics.Metrics
	Workers        int
	IgnorePrefixes []string
}

// New creates a Revbow instance with the given dependencies
func New(opts Options) *Revbow {
	r := &Revbow{
		store:          opts.Store,
		extractor:      opts.Extractor,
		normalizer:     opts.Normalizer,
		pipeline:       opts.Pipeline,
		vocabOpts:      opts.Vocab,
		metrics:        opts.Metrics,
		runs:           run.New(),
		workers:        opts.Workers,
		ignorePrefixes: opts.IgnorePrefixes,
	}
	if r.extractor == nil {
		r.extractor = extract.MustCompile(extract.DefaultGrammar())
	}
	if r.normalizer == nil {
		r.normalizer = normalize.New(normalize.DefaultOptions())
	}
	if r.pipeline == nil {
		r.pipeline = ingest.NewPipeline(ingest.NewTokenizer(nil))
	}
	if r.vocabOpts == (vocab.Options{}) {
		r.vocabOpts = vocab.DefaultOptions()
	}
	if r.vocabOpts.Workers == 0 {
		r.vocabOpts.Workers = r.workers
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	if r.ignorePrefixes == nil {
		r.ignorePrefixes = source.DefaultIgnorePrefixes
	}
	return r
}

// FromConfig builds every component described by cfg. st may be nil.
func FromConfig(cfg config.Config, st store.Store) (*Revbow, error) {
	comp, err := (&config.Loader{Config: cfg}).Load()
	if err != nil {
		return nil, err
	}
	return New(Options{
		Store:          st,
		Extractor:      comp.Extractor,
		Normalizer:     normalize.New(cfg.NormalizeOptions()),
		Pipeline:       comp.Pipeline,
		Vocab:          cfg.VocabOptions(),
		Workers:        cfg.Workers,
		IgnorePrefixes: cfg.Input.IgnorePrefixes,
	}), nil
}

// Close releases the store, if any.
func (r *Revbow) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// Metrics returns the collectors updated by every stage.
func (r *Revbow) Metrics() *metrics.Metrics {
	return r.metrics
}

// Pipeline returns the tokenizer pipeline used for vocabulary and vectors.
func (r *Revbow) Pipeline() *ingest.Pipeline {
	return r.pipeline
}

// ParseInput lists the sources of one parse.
type ParseInput struct {
	Blobs  []string // raw text file paths
	Tables []string // CSV table paths
	Nested []string // nested JSON files written by export.WriteNested
	Texts  []string // raw text already in memory
}

// ParseStats summarizes what parsing saw and recovered from.
type ParseStats struct {
	FileErrors []error
	Extract    extract.Stats
	Normalize  normalize.Stats
}

// Corpus is the normalized, grouped review set.
type Corpus struct {
	Inputs  []string
	Reviews []record.Review
	Groups  []group.Group
	Stats   ParseStats
}

// Parse extracts, normalizes, deduplicates and groups reviews. Tabular rows
// come first, then nested files, then raw text records. Unreadable files are
// reported in Stats.FileErrors and skipped.
func (r *Revbow) Parse(ctx context.Context, in ParseInput) (*Corpus, error) {
	if len(in.Blobs)+len(in.Tables)+len(in.Nested)+len(in.Texts) == 0 {
		return nil, fmt.Errorf("%w: no inputs", internalerr.ErrInvalidInput)
	}
	log := logger.WithComponent(ctx, "parse")
	start := time.Now()

	var inputs []string
	inputs = append(inputs, in.Tables...)
	inputs = append(inputs, in.Nested...)
	inputs = append(inputs, in.Blobs...)
	corpus := &Corpus{Inputs: inputs}
	stats := &corpus.Stats
	stats.Extract.Missing = make(map[record.Field]int)

	var raws []record.Raw
	for _, path := range in.Tables {
		rows, st, err := source.LoadTable(path, r.ignorePrefixes)
		if err != nil {
			log.Warn("skipping table", "path", path, "error", err)
			stats.FileErrors = append(stats.FileErrors, err)
			continue
		}
		log.Debug("loaded table", "path", path, "rows", len(rows))
		raws = append(raws, rows...)
		stats.Extract.Merge(st)
	}

	for _, path := range in.Nested {
		rows, err := readNested(path)
		if err != nil {
			log.Warn("skipping nested file", "path", path, "error", err)
			stats.FileErrors = append(stats.FileErrors, err)
			continue
		}
		raws = append(raws, rows...)
		stats.Extract.Records += len(rows)
	}

	blobs, errs := source.LoadBlobs(in.Blobs)
	stats.FileErrors = append(stats.FileErrors, errs...)
	texts := append(source.Texts(blobs), in.Texts...)

	extracted, st, err := r.extractor.ExtractAll(ctx, texts, r.workers)
	if err != nil {
		return nil, err
	}
	raws = append(raws, extracted...)
	stats.Extract.Merge(st)
	r.metrics.InputErrorsTotal.Add(float64(len(stats.FileErrors)))
	r.metrics.ObserveExtract(stats.Extract)
	r.metrics.ObserveStage("extract", start)

	start = time.Now()
	reviews, nst, err := r.normalizer.NormalizeAll(ctx, raws, r.workers)
	if err != nil {
		return nil, err
	}
	stats.Normalize = nst
	r.metrics.ObserveNormalize(nst)
	r.metrics.ObserveStage("normalize", start)

	corpus.Reviews = reviews
	corpus.Groups = group.By(reviews)
	r.metrics.Groups.Set(float64(len(corpus.Groups)))

	log.Info("parsed reviews",
		"records", stats.Extract.Records,
		"reviews", len(reviews),
		"duplicates", nst.Duplicates,
		"groups", len(corpus.Groups),
		"missing_fields", stats.Extract.MissingTotal(),
		"coercion_failures", nst.CoercionTotal(),
		"encoding_drops", nst.Encoding,
		"file_errors", len(stats.FileErrors),
	)
	return corpus, nil
}

func readNested(path string) ([]record.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &source.FileError{Path: path, Err: err}
	}
	defer f.Close()

	rows, err := export.ReadNested(f)
	if err != nil {
		return nil, &source.FileError{Path: path, Err: err}
	}
	return rows, nil
}

// Model is a vocabulary and the count vectors built over it.
type Model struct {
	Vocabulary *vocab.Vocabulary
	Vectors    []encode.Vector
	Unigrams   []string
	Bigrams    []pmi.Scored
	DocFreq    *analytics.DocFreq
}

// Vectorize builds the vocabulary over groups and encodes every eligible
// group against it.
func (r *Revbow) Vectorize(ctx context.Context, groups []group.Group) (*Model, error) {
	log := logger.WithComponent(ctx, "vectorize")
	start := time.Now()

	res, err := vocab.NewBuilder(r.pipeline, r.vocabOpts).Build(ctx, groups)
	if err != nil {
		return nil, err
	}
	r.metrics.EligibleGroups.Set(float64(len(res.Eligible)))
	r.metrics.VocabularyTerms.WithLabelValues("unigram").Set(float64(len(res.Unigrams)))
	r.metrics.VocabularyTerms.WithLabelValues("bigram").Set(float64(len(res.Bigrams)))
	r.metrics.ObserveStage("vocabulary", start)

	start = time.Now()
	vectors, err := encode.NewEncoder(r.pipeline, res.Vocabulary).EncodeAll(ctx, res.Eligible, r.workers)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveStage("encode", start)

	log.Info("built vectors",
		"groups", len(groups),
		"eligible", len(res.Eligible),
		"unigrams", len(res.Unigrams),
		"bigrams", len(res.Bigrams),
		"vocabulary", res.Vocabulary.Len(),
	)
	return &Model{
		Vocabulary: res.Vocabulary,
		Vectors:    vectors,
		Unigrams:   res.Unigrams,
		Bigrams:    res.Bigrams,
		DocFreq:    res.DocFreq,
	}, nil
}

// Persist stores the corpus and, when model is not nil, its vocabulary,
// vectors and document frequencies under a new run.
func (r *Revbow) Persist(ctx context.Context, corpus *Corpus, model *Model) (store.Run, error) {
	if r.store == nil {
		return store.Run{}, fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}
	if corpus == nil {
		return store.Run{}, fmt.Errorf("%w: nil corpus", internalerr.ErrInvalidInput)
	}

	rn := r.runs.Start(corpus.Inputs)
	rn.Reviews = len(corpus.Reviews)
	rn.Groups = len(corpus.Groups)
	if model != nil {
		rn.VocabSize = model.Vocabulary.Len()
	}
	ctx = logger.WithRunID(ctx, rn.ID)

	if err := r.store.CreateRun(ctx, rn); err != nil {
		return store.Run{}, fmt.Errorf("create run: %w", err)
	}
	if err := r.store.UpsertReviews(ctx, rn.ID, corpus.Reviews); err != nil {
		return store.Run{}, fmt.Errorf("store reviews: %w", err)
	}
	if model != nil {
		if err := r.store.SaveVocabulary(ctx, rn.ID, model.Vocabulary.Terms()); err != nil {
			return store.Run{}, fmt.Errorf("store vocabulary: %w", err)
		}
		if err := r.store.SaveVectors(ctx, rn.ID, model.Vectors); err != nil {
			return store.Run{}, fmt.Errorf("store vectors: %w", err)
		}
		if model.DocFreq != nil {
			if err := r.store.SaveTokenDF(ctx, rn.ID, model.DocFreq.Snapshot()); err != nil {
				return store.Run{}, fmt.Errorf("store document frequencies: %w", err)
			}
		}
	}

	logger.WithComponent(ctx, "persist").Info("persisted run", "reviews", rn.Reviews, "groups", rn.Groups, "vocabulary", rn.VocabSize)
	return rn, nil
}

// Restore reloads a stored run. An empty id selects the latest run. The
// returned model is nil when the run has no vocabulary; bigram scores are
// not stored, so a restored model lists its unigrams only.
func (r *Revbow) Restore(ctx context.Context, runID string) (*Corpus, *Model, error) {
	if r.store == nil {
		return nil, nil, fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}

	var (
		rn  store.Run
		err error
	)
	if runID == "" {
		rn, err = r.store.LatestRun(ctx)
	} else {
		if _, terr := run.Time(runID); terr != nil {
			return nil, nil, fmt.Errorf("%w: run id %q: %v", internalerr.ErrInvalidInput, runID, terr)
		}
		rn, err = r.store.GetRun(ctx, runID)
	}
	if err != nil {
		return nil, nil, err
	}

	reviews, err := r.store.GetReviews(ctx, rn.ID)
	if err != nil {
		return nil, nil, err
	}
	corpus := &Corpus{Inputs: rn.Inputs, Reviews: reviews, Groups: group.By(reviews)}

	terms, err := r.store.GetVocabulary(ctx, rn.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(terms) == 0 {
		return corpus, nil, nil
	}
	vectors, err := r.store.GetVectors(ctx, rn.ID)
	if err != nil {
		return nil, nil, err
	}
	return corpus, &Model{
		Vocabulary: vocab.FromTerms(terms),
		Vectors:    vectors,
		Unigrams:   lo.Reject(terms, func(t string, _ int) bool { return vocab.IsBigram(t) }),
	}, nil
}
