package config

import (
	"fmt"

	"github.com/cognicore/revbow/pkg/revbow/extract"
	"github.com/cognicore/revbow/pkg/revbow/ingest"
	"github.com/cognicore/revbow/pkg/revbow/stoplist"
)

// Loader loads the referenced files and constructs components
type Loader struct {
	Config Config
}

// Components holds all loaded configuration components
type Components struct {
	Grammar   extract.Grammar
	Extractor *extract.Extractor
	Stoplist  *stoplist.Manager
	Tokenizer *ingest.Tokenizer
	Pipeline  *ingest.Pipeline
}

// Load reads the grammar and stopword files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	comp := &Components{}

	// Load grammar
	if cfg.Input.GrammarPath != "" {
		g, err := LoadGrammar(cfg.Input.GrammarPath)
		if err != nil {
			return nil, fmt.Errorf("load grammar: %w", err)
		}
		comp.Grammar = g
	} else {
		comp.Grammar = extract.DefaultGrammar()
	}
	if cfg.Input.RecordOpen != "" {
		comp.Grammar.RecordOpen = cfg.Input.RecordOpen
	}
	if cfg.Input.RecordClose != "" {
		comp.Grammar.RecordClose = cfg.Input.RecordClose
	}

	ex, err := extract.Compile(comp.Grammar)
	if err != nil {
		return nil, fmt.Errorf("compile grammar: %w", err)
	}
	comp.Extractor = ex

	// Load stoplist
	if cfg.Tokenizer.StopwordsPath != "" {
		sl, err := stoplist.LoadFile(cfg.Tokenizer.StopwordsPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = sl
	} else {
		comp.Stoplist = stoplist.NewManager(nil)
	}

	opts := []ingest.Option{ingest.WithMinLength(cfg.Tokenizer.MinLength)}
	if !cfg.Tokenizer.Stem {
		opts = append(opts, ingest.WithStemmer(ingest.NoStemmer()))
	}
	comp.Tokenizer = ingest.NewTokenizer(comp.Stoplist.All(), opts...)
	comp.Pipeline = ingest.NewPipeline(comp.Tokenizer)

	return comp, nil
}
