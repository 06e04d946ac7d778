package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/revbow/pkg/revbow/analytics"
	"github.com/cognicore/revbow/pkg/revbow/extract"
	"github.com/cognicore/revbow/pkg/revbow/ingest"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/normalize"
	"github.com/cognicore/revbow/pkg/revbow/record"
	"github.com/cognicore/revbow/pkg/revbow/source"
	"github.com/cognicore/revbow/pkg/revbow/vocab"
)

// EnvPrefix prefixes every environment override, e.g. REVBOW_VOCAB_MIN_REVIEWS.
const EnvPrefix = "REVBOW"

// Config is the full pipeline configuration.
type Config struct {
	Input     Input     `yaml:"input" envconfig:"input"`
	Normalize Normalize `yaml:"normalize" envconfig:"normalize"`
	Tokenizer Tokenizer `yaml:"tokenizer" envconfig:"tokenizer"`
	Vocab     Vocab     `yaml:"vocab" envconfig:"vocab"`
	Workers   int       `yaml:"workers" envconfig:"workers" validate:"gte=0"`
	Logging   Logging   `yaml:"logging" envconfig:"logging"`
	Metrics   Metrics   `yaml:"metrics" envconfig:"metrics"`
	Store     Store     `yaml:"store" envconfig:"store"`
}

// Input controls how raw files are read.
type Input struct {
	GrammarPath    string   `yaml:"grammar" envconfig:"grammar"`
	RecordOpen     string   `yaml:"record_open" envconfig:"record_open"`
	RecordClose    string   `yaml:"record_close" envconfig:"record_close"`
	IgnorePrefixes []string `yaml:"ignore_prefixes" envconfig:"ignore_prefixes"`
}

// Normalize controls field cleaning.
type Normalize struct {
	CleanFields  []string `yaml:"clean_fields" envconfig:"clean_fields" validate:"dive,oneof=category reviewer_id review_title review_text attached_images product_id parent_product_id"`
	Markup       string   `yaml:"markup" envconfig:"markup" validate:"oneof=regex html"`
	LanguageGate string   `yaml:"language_gate" envconfig:"language_gate" validate:"oneof=ascii whatlang"`
}

// Tokenizer controls token extraction.
type Tokenizer struct {
	MinLength     int    `yaml:"min_length" envconfig:"min_length" validate:"gte=1"`
	Stem          bool   `yaml:"stem" envconfig:"stem"`
	StopwordsPath string `yaml:"stopwords" envconfig:"stopwords"`
}

// Vocab controls vocabulary construction.
type Vocab struct {
	MinReviews    int     `yaml:"min_reviews" envconfig:"min_reviews" validate:"gte=0"`
	LowDF         float64 `yaml:"low_df" envconfig:"low_df" validate:"gte=0,lte=1,ltfield=HighDF"`
	HighDF        float64 `yaml:"high_df" envconfig:"high_df" validate:"gte=0,lte=1"`
	MinBigramFreq int64   `yaml:"min_bigram_freq" envconfig:"min_bigram_freq" validate:"gte=1"`
	TopBigrams    int     `yaml:"top_bigrams" envconfig:"top_bigrams" validate:"gte=0"`
	BigramScope   string  `yaml:"bigram_scope" envconfig:"bigram_scope" validate:"oneof=group review"`
}

// Logging selects the log level and handler.
type Logging struct {
	Level  string `yaml:"level" envconfig:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"format" validate:"oneof=text json"`
}

// Metrics configures the Prometheus textfile written after each run.
type Metrics struct {
	TextfilePath string `yaml:"textfile" envconfig:"textfile"`
}

// Store configures persistence. An empty path disables it.
type Store struct {
	SQLitePath string `yaml:"sqlite" envconfig:"sqlite"`
}

// Default returns the built-in configuration.
func Default() Config {
	g := extract.DefaultGrammar()
	n := normalize.DefaultOptions()
	v := vocab.DefaultOptions()

	clean := make([]string, len(n.CleanFields))
	for i, f := range n.CleanFields {
		clean[i] = string(f)
	}

	return Config{
		Input: Input{
			RecordOpen:     g.RecordOpen,
			RecordClose:    g.RecordClose,
			IgnorePrefixes: append([]string(nil), source.DefaultIgnorePrefixes...),
		},
		Normalize: Normalize{
			CleanFields:  clean,
			Markup:       string(n.Markup),
			LanguageGate: string(n.LanguageGate),
		},
		Tokenizer: Tokenizer{
			MinLength: ingest.DefaultMinLength,
			Stem:      true,
		},
		Vocab: Vocab{
			MinReviews:    v.MinReviews,
			LowDF:         v.Band.Low,
			HighDF:        v.Band.High,
			MinBigramFreq: v.MinBigramFreq,
			TopBigrams:    v.TopBigrams,
			BigramScope:   string(v.Scope),
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", internalerr.ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return nil
}

// NormalizeOptions converts the normalize section.
func (c Config) NormalizeOptions() normalize.Options {
	fields := make([]record.Field, len(c.Normalize.CleanFields))
	for i, f := range c.Normalize.CleanFields {
		fields[i] = record.Field(f)
	}
	return normalize.Options{
		CleanFields:  fields,
		Markup:       normalize.Markup(c.Normalize.Markup),
		LanguageGate: normalize.LanguageGate(c.Normalize.LanguageGate),
	}
}

// VocabOptions converts the vocab section.
func (c Config) VocabOptions() vocab.Options {
	return vocab.Options{
		MinReviews:    c.Vocab.MinReviews,
		Band:          analytics.Band{Low: c.Vocab.LowDF, High: c.Vocab.HighDF},
		MinBigramFreq: c.Vocab.MinBigramFreq,
		TopBigrams:    c.Vocab.TopBigrams,
		Scope:         vocab.Scope(c.Vocab.BigramScope),
		Workers:       c.Workers,
	}
}

// LoadGrammar reads a tag grammar from YAML. Sections left out of the file
// keep their defaults; listed fields replace the default synonyms.
func LoadGrammar(path string) (extract.Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Grammar{}, err
	}

	var file extract.Grammar
	if err := yaml.Unmarshal(data, &file); err != nil {
		return extract.Grammar{}, fmt.Errorf("%w: parse grammar %s: %v", internalerr.ErrInvalidConfig, path, err)
	}

	g := extract.DefaultGrammar()
	if file.RecordOpen != "" {
		g.RecordOpen = file.RecordOpen
	}
	if file.RecordClose != "" {
		g.RecordClose = file.RecordClose
	}
	for _, rule := range file.Rules {
		replaced := false
		for i := range g.Rules {
			if g.Rules[i].Field == rule.Field {
				g.Rules[i].Synonyms = rule.Synonyms
				replaced = true
				break
			}
		}
		if !replaced {
			g.Rules = append(g.Rules, rule)
		}
	}
	return g, nil
}
