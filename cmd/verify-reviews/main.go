package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/cognicore/revbow/internal/logger"
	"github.com/cognicore/revbow/pkg/revbow/config"
	"github.com/cognicore/revbow/pkg/revbow/verify"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional: YAML config file")
		input      = flag.String("input", "", "Nested review JSON file (required)")
		limit      = flag.Int("limit", 50, "Maximum issues to list (0 = all)")
		noColor    = flag.Bool("no-color", false, "Disable coloured output")
	)
	flag.Parse()

	_ = godotenv.Load()

	if *input == "" {
		log.Fatal("--input required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *noColor {
		color.Disable()
	}

	rep, err := verify.File(*input)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.FgRed.Render("FAIL"), err)
		os.Exit(1)
	}

	printReport(os.Stdout, rep, *limit)
	if err := rep.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printReport(w io.Writer, rep verify.Report, limit int) {
	if len(rep.Issues) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Severity", "Product", "Review", "Message"})
		table.SetAutoWrapText(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)

		for i, issue := range rep.Issues {
			if limit > 0 && i >= limit {
				break
			}
			review := "-"
			if issue.Review >= 0 {
				review = fmt.Sprint(issue.Review)
			}
			table.Append([]string{severity(issue.Severity), issue.Product, review, issue.Message})
		}
		table.Render()
		if limit > 0 && len(rep.Issues) > limit {
			fmt.Fprintf(w, "... %d more issues\n", len(rep.Issues)-limit)
		}
	}

	status := color.New(color.BgBlack, color.FgGreen).Render("PASS")
	if !rep.Passed() {
		status = color.New(color.BgBlack, color.FgRed).Render("FAIL")
	}
	fmt.Fprintf(w, "%s %d products, %d reviews, %d errors, %d warnings\n",
		status, rep.Products, rep.Reviews, rep.Errors(), rep.Warnings())
}

func severity(s verify.Severity) string {
	if s == verify.SeverityError {
		return color.FgRed.Render(string(s))
	}
	return color.FgYellow.Render(string(s))
}
