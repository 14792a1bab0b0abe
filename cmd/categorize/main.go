package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/dirgeo"
	"github.com/fwojciec/dirgeo/crawl"
	"github.com/fwojciec/dirgeo/fs"
	"github.com/fwojciec/dirgeo/goquery"
	dirhttp "github.com/fwojciec/dirgeo/http"
	"github.com/fwojciec/dirgeo/metrics"
	dirslog "github.com/fwojciec/dirgeo/slog"
	"github.com/google/uuid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct{}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// CLI defines the command-line interface structure for Kong.
// Every flag defaults to the value used for the Berlin directory, so the
// command runs without arguments.
type CLI struct {
	Input       string        `short:"i" default:"input.csv" help:"CSV with a business_name column"`
	Output      string        `short:"o" default:"output.csv" help:"Where to write the enriched CSV"`
	BaseURL     string        `default:"${base_url}" help:"Directory listing URL; the page number is added as ?page=N"`
	FirstPage   int           `default:"1" help:"First directory page to fetch"`
	LastPage    int           `default:"1012" help:"Last directory page to fetch"`
	Delay       time.Duration `default:"1s" help:"Minimum delay between page requests"`
	Timeout     time.Duration `short:"t" default:"30s" help:"Timeout per page request"`
	MetricsFile string        `help:"Write Prometheus metrics to this file when done"`
	Verbose     bool          `short:"v" help:"Enable debug logging"`
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("categorize"),
		kong.Description("Add a category column to a CSV of business names using the business directory"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Vars{"base_url": crawl.DefaultBaseURL},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("run", uuid.NewString())

	cmd := &CategorizeCmd{
		CLI:     cli,
		Logger:  logger,
		Metrics: metrics.NewMetrics(),
		Stdout:  stdout,
	}
	return cmd.Run(ctx)
}

// CategorizeCmd crawls the directory and enriches the input table.
type CategorizeCmd struct {
	CLI     *CLI
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Stdout  io.Writer
}

// Run executes the categorize pipeline.
func (c *CategorizeCmd) Run(ctx context.Context) error {
	// Read and validate the input first so a bad file fails before the crawl.
	table, err := fs.ReadTableFile(c.CLI.Input, func(err error) {
		c.Logger.Warn("input is not valid UTF-8, retrying as latin-1", "path", c.CLI.Input, "err", err)
	})
	if err != nil {
		return err
	}
	if err := table.Validate(); err != nil {
		return err
	}

	fetcher := dirslog.NewLoggingFetcher(dirhttp.NewFetcher(dirhttp.WithTimeout(c.CLI.Timeout)), c.Logger)
	defer fetcher.Close()

	crawler := &crawl.Crawler{
		Fetcher:     fetcher,
		Extractor:   goquery.NewCategoryExtractor(),
		RateLimiter: crawl.NewDomainLimiter(c.CLI.Delay),
		BaseURL:     c.CLI.BaseURL,
	}

	categories, result, err := crawler.Crawl(ctx, c.CLI.FirstPage, c.CLI.LastPage, c.crawlProgress)
	if err != nil {
		return err
	}
	c.Logger.Info("crawl finished",
		"pages", result.Pages,
		"failed", result.Failed,
		"duplicate", result.Duplicate,
		"businesses", result.Businesses,
	)

	enriched, err := dirgeo.Enrich(table, categories, func(p dirgeo.EnrichProgress) {
		fmt.Fprintf(c.Stdout, "\rProcessed %d/%d businesses. Matches found: %d", p.Processed, p.Total, p.Matches)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Stdout, "\nProcessing complete.")
	c.Metrics.RowsTotal.WithLabelValues("matched").Add(float64(enriched.Matches))
	c.Metrics.RowsTotal.WithLabelValues("unmatched").Add(float64(enriched.Total - enriched.Matches))

	if err := fs.WriteTableFile(c.CLI.Output, table); err != nil {
		return fmt.Errorf("write %s: %w", c.CLI.Output, err)
	}

	fmt.Fprintf(c.Stdout, "Total businesses processed: %d\n", enriched.Total)
	fmt.Fprintf(c.Stdout, "Total matches found: %d\n", enriched.Matches)
	fmt.Fprintf(c.Stdout, "Results saved to %s\n", c.CLI.Output)

	if c.CLI.MetricsFile != "" {
		if err := c.Metrics.WriteTextfile(c.CLI.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func (c *CategorizeCmd) crawlProgress(e crawl.ProgressEvent) {
	switch e.Type {
	case crawl.ProgressCompleted:
		c.Metrics.PagesTotal.WithLabelValues("completed").Inc()
	case crawl.ProgressDuplicate:
		c.Metrics.PagesTotal.WithLabelValues("duplicate").Inc()
		c.Logger.Debug("duplicate page", "page", e.Page, "url", e.URL)
	case crawl.ProgressFailed:
		c.Metrics.PagesTotal.WithLabelValues("failed").Inc()
		c.Logger.Warn("skipping page", "page", e.Page, "url", e.URL, "err", e.Error)
	}
}
