package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/cognicore/revbow/internal/logger"
	"github.com/cognicore/revbow/pkg/revbow"
	"github.com/cognicore/revbow/pkg/revbow/config"
	"github.com/cognicore/revbow/pkg/revbow/export"
	"github.com/cognicore/revbow/pkg/revbow/group"
	"github.com/cognicore/revbow/pkg/revbow/record"
	"github.com/cognicore/revbow/pkg/revbow/store"
	"github.com/cognicore/revbow/pkg/revbow/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional: YAML config file")
		inputs     = flag.String("inputs", "", "Comma-separated raw text files")
		tables     = flag.String("tables", "", "Comma-separated CSV review tables")
		outJSON    = flag.String("out-json", "reviews.json", "Nested review JSON output")
		outSummary = flag.String("out-summary", "summary.csv", "Per-product summary CSV output")
		dbPath     = flag.String("db", "", "Optional: SQLite database to store the run in (overrides config)")
		workers    = flag.Int("workers", -1, "Worker count (overrides config; 0 = unlimited)")
	)
	flag.Parse()

	_ = godotenv.Load()

	if *inputs == "" && *tables == "" {
		log.Fatal("--inputs or --tables required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Store.SQLitePath = *dbPath
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	var st store.Store
	if cfg.Store.SQLitePath != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
	}

	engine, err := revbow.FromConfig(cfg, st)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	defer engine.Close()

	corpus, err := engine.Parse(ctx, revbow.ParseInput{
		Blobs:  splitList(*inputs),
		Tables: splitList(*tables),
	})
	if err != nil {
		log.Fatalf("parse: %v", err)
	}
	if len(corpus.Reviews) == 0 {
		log.Fatal("no reviews parsed")
	}

	if err := writeFile(*outJSON, func(f *os.File) error { return export.WriteNested(f, corpus.Groups) }); err != nil {
		log.Fatalf("write %s: %v", *outJSON, err)
	}
	if err := writeFile(*outSummary, func(f *os.File) error {
		return export.WriteSummary(f, group.Summarize(corpus.Groups))
	}); err != nil {
		log.Fatalf("write %s: %v", *outSummary, err)
	}

	if st != nil {
		rn, err := engine.Persist(ctx, corpus, nil)
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

	printReport(corpus)
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

func printReport(c *revbow.Corpus) {
	st := c.Stats
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Stage", "Count"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	table.Append([]string{"records", fmt.Sprint(st.Extract.Records)})
	table.Append([]string{"reviews", fmt.Sprint(len(c.Reviews))})
	table.Append([]string{"duplicates dropped", fmt.Sprint(st.Normalize.Duplicates)})
	table.Append([]string{"products", fmt.Sprint(len(c.Groups))})
	table.Append([]string{"non-english texts", fmt.Sprint(st.Normalize.Encoding)})
	table.Append([]string{"unreadable files", fmt.Sprint(len(st.FileErrors))})
	for _, f := range sortedFields(st.Extract.Missing) {
		table.Append([]string{"missing " + string(f), fmt.Sprint(st.Extract.Missing[f])})
	}
	for _, f := range sortedFields(st.Normalize.Coercion) {
		table.Append([]string{"unparsable " + string(f), fmt.Sprint(st.Normalize.Coercion[f])})
	}
	table.Render()
}

func sortedFields(m map[record.Field]int) []record.Field {
	fields := lo.Keys(m)
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
