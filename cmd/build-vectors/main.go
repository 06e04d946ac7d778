package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/cognicore/revbow/internal/logger"
	"github.com/cognicore/revbow/pkg/revbow"
	"github.com/cognicore/revbow/pkg/revbow/config"
	"github.com/cognicore/revbow/pkg/revbow/encode"
	"github.com/cognicore/revbow/pkg/revbow/store"
	"github.com/cognicore/revbow/pkg/revbow/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional: YAML config file")
		reviews    = flag.String("reviews", "", "Comma-separated nested review JSON files (from parse-reviews)")
		inputs     = flag.String("inputs", "", "Comma-separated raw text files")
		tables     = flag.String("tables", "", "Comma-separated CSV review tables")
		fromRun    = flag.String("from-run", "", "Rebuild from a stored run id ('latest' for the newest); needs --db")
		outVocab   = flag.String("out-vocab", "vocabulary.txt", "Vocabulary output (term:index per line)")
		outVectors = flag.String("out-vectors", "vectors.txt", "Sparse count matrix output")
		stopwords  = flag.String("stopwords", "", "Stopword file (overrides config)")
		dbPath     = flag.String("db", "", "Optional: SQLite database (overrides config)")
		topBigrams = flag.Int("top-bigrams", -1, "Number of PMI bigrams to keep (overrides config)")
		workers    = flag.Int("workers", -1, "Worker count (overrides config; 0 = unlimited)")
	)
	flag.Parse()

	_ = godotenv.Load()

	if *reviews == "" && *inputs == "" && *tables == "" && *fromRun == "" {
		log.Fatal("--reviews, --inputs, --tables or --from-run required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *stopwords != "" {
		cfg.Tokenizer.StopwordsPath = *stopwords
	}
	if *dbPath != "" {
		cfg.Store.SQLitePath = *dbPath
	}
	if *topBigrams >= 0 {
		cfg.Vocab.TopBigrams = *topBigrams
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	var st store.Store
	if cfg.Store.SQLitePath != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
	} else if *fromRun != "" {
		log.Fatal("--from-run requires --db")
	}

	engine, err := revbow.FromConfig(cfg, st)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	defer engine.Close()

	var corpus *revbow.Corpus
	if *fromRun != "" {
		id := *fromRun
		if id == "latest" {
			id = ""
		}
		corpus, _, err = engine.Restore(ctx, id)
		if err != nil {
			log.Fatalf("restore run: %v", err)
		}
	} else {
		corpus, err = engine.Parse(ctx, revbow.ParseInput{
			Nested: splitList(*reviews),
			Blobs:  splitList(*inputs),
			Tables: splitList(*tables),
		})
		if err != nil {
			log.Fatalf("parse: %v", err)
		}
	}

	model, err := engine.Vectorize(ctx, corpus.Groups)
	if err != nil {
		log.Fatalf("vectorize: %v", err)
	}

	if err := writeFile(*outVocab, func(f *os.File) error {
		_, err := model.Vocabulary.WriteTo(f)
		return err
	}); err != nil {
		log.Fatalf("write %s: %v", *outVocab, err)
	}
	if err := writeFile(*outVectors, func(f *os.File) error { return encode.WriteAll(f, model.Vectors) }); err != nil {
		log.Fatalf("write %s: %v", *outVectors, err)
	}

	if st != nil {
		rn, err := engine.Persist(ctx, corpus, model)
		if err != nil {
			log.Fatalf("persist: %v", err)
		}
		fmt.Printf("stored run %s\n", rn.ID)
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := engine.Metrics().WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.Printf("write metrics: %v", err)
		}
	}

	printReport(corpus, model)
}

func splitList(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(c *revbow.Corpus, m *revbow.Model) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Item", "Count"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.Append([]string{"products", fmt.Sprint(len(c.Groups))})
	table.Append([]string{"vectorized products", fmt.Sprint(len(m.Vectors))})
	table.Append([]string{"unigrams", fmt.Sprint(len(m.Unigrams))})
	table.Append([]string{"bigrams", fmt.Sprint(len(m.Bigrams))})
	table.Append([]string{"vocabulary", fmt.Sprint(m.Vocabulary.Len())})
	table.Render()

	if len(m.Bigrams) == 0 {
		return
	}
	top := tablewriter.NewWriter(os.Stdout)
	top.SetHeader([]string{"Bigram", "Count", "PMI", "NPMI"})
	top.SetAlignment(tablewriter.ALIGN_LEFT)
	top.SetBorder(false)
	for _, b := range lo.Slice(m.Bigrams, 0, 10) {
		top.Append([]string{b.String(), fmt.Sprint(b.Count), fmt.Sprintf("%.3f", b.Score), fmt.Sprintf("%.3f", b.NPMI)})
	}
	top.Render()
}
