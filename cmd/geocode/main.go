package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/dirgeo"
	"github.com/fwojciec/dirgeo/arcgis"
	"github.com/fwojciec/dirgeo/fs"
	"github.com/fwojciec/dirgeo/geocode"
	"github.com/fwojciec/dirgeo/googlemaps"
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
type CLI struct {
	Input              string        `short:"i" default:"addresspo.csv" help:"CSV with one address per row in the first column, no header"`
	Output             string        `short:"o" default:"addressb.csv" help:"Results file; an existing file is resumed"`
	Provider           string        `enum:"arcgis,google" default:"arcgis" help:"Geocoding service (${enum})"`
	Endpoint           string        `help:"Override the service URL (ArcGIS findAddressCandidates URL or Google Maps base URL)"`
	GoogleAPIKey       string        `name:"google-api-key" env:"GOOGLE_MAPS_API_KEY" help:"API key for the Google provider"`
	Suffix             string        `default:"${suffix}" help:"Text appended to every address before lookup"`
	CheckpointEvery    int           `default:"100" help:"Save results after every N input addresses"`
	MaxRetries         int           `default:"5" help:"Retries per request on transport errors and 502/503/504"`
	BackoffFactor      time.Duration `default:"1s" help:"Base delay for exponential backoff between retries"`
	Timeout            time.Duration `short:"t" default:"30s" help:"Timeout for the response to each request attempt"`
	InsecureSkipVerify bool          `help:"Do not verify the geocoder's TLS certificate"`
	GeoJSON            string        `name:"geojson" help:"Also write resolved addresses to this file as GeoJSON"`
	MetricsFile        string        `help:"Write Prometheus metrics to this file when done"`
	Verbose            bool          `short:"v" help:"Enable debug logging"`
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("geocode"),
		kong.Description("Resolve addresses to coordinates with the ArcGIS geocoder, resuming from earlier runs"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Vars{"suffix": arcgis.DefaultSuffix},
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

	cmd := &GeocodeCmd{
		CLI:     cli,
		Logger:  logger,
		Metrics: metrics.NewMetrics(),
		Stdout:  stdout,
	}
	return cmd.Run(ctx)
}

// GeocodeCmd geocodes the input addresses into the results file.
type GeocodeCmd struct {
	CLI     *CLI
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Stdout  io.Writer
}

// Run executes the geocode pipeline.
func (c *GeocodeCmd) Run(ctx context.Context) error {
	addresses, err := fs.ReadAddressFile(c.CLI.Input)
	if err != nil {
		return err
	}

	if c.CLI.InsecureSkipVerify {
		c.Logger.Warn("TLS certificate verification is disabled", "provider", c.CLI.Provider)
	}

	retry := dirhttp.DefaultRetryConfig()
	retry.MaxRetries = c.CLI.MaxRetries
	retry.BackoffFactor = c.CLI.BackoffFactor
	transport := dirhttp.NewRetryTransport(
		dirhttp.NewBaseTransport(c.CLI.InsecureSkipVerify, c.CLI.Timeout),
		retry,
		func(format string, args ...any) {
			c.Logger.Warn(fmt.Sprintf(format, args...))
		},
	)
	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	geocoder, err := c.newGeocoder(client)
	if err != nil {
		return err
	}
	geocoder = metrics.NewInstrumentedGeocoder(geocoder, c.Metrics)
	geocoder = dirslog.NewLoggingGeocoder(geocoder, c.Logger)

	store := fs.NewCheckpointStore(c.CLI.Output)
	runner := &geocode.Runner{
		Geocoder:        geocoder,
		Store:           store,
		CheckpointEvery: c.CLI.CheckpointEvery,
	}

	result, err := runner.Run(ctx, addresses, func(e geocode.ProgressEvent) {
		c.Metrics.AddressesTotal.WithLabelValues(string(e.Outcome)).Inc()
		fmt.Fprintf(c.Stdout, "\rGeocoding %d/%d", e.Index+1, e.Total)
	})
	if result != nil {
		fmt.Fprintln(c.Stdout)
		c.Logger.Info("geocoding finished",
			"total", result.Total,
			"resumed", result.Resumed,
			"cache_hits", result.CacheHits,
			"fetched", result.Fetched,
			"failed", result.Failed,
			"checkpoints", result.Checkpoints,
		)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.Stdout, "Results saved to %s\n", store.Path())

	if c.CLI.GeoJSON != "" {
		records, err := store.Load(ctx)
		if err != nil {
			return err
		}
		if err := fs.WriteGeoJSONFile(c.CLI.GeoJSON, records); err != nil {
			return fmt.Errorf("write %s: %w", c.CLI.GeoJSON, err)
		}
	}

	if c.CLI.MetricsFile != "" {
		if err := c.Metrics.WriteTextfile(c.CLI.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// newGeocoder builds the geocoder for the selected provider on top of client.
func (c *GeocodeCmd) newGeocoder(client *http.Client) (dirgeo.Geocoder, error) {
	switch c.CLI.Provider {
	case "google":
		api, err := googlemaps.NewClient(c.CLI.GoogleAPIKey, client, c.CLI.Endpoint)
		if err != nil {
			return nil, err
		}
		return googlemaps.NewGeocoder(api,
			googlemaps.WithSuffix(c.CLI.Suffix),
			googlemaps.WithLogger(c.Logger),
		), nil
	default:
		endpoint := c.CLI.Endpoint
		if endpoint == "" {
			endpoint = arcgis.DefaultEndpoint
		}
		return arcgis.NewGeocoder(client,
			arcgis.WithEndpoint(endpoint),
			arcgis.WithSuffix(c.CLI.Suffix),
			arcgis.WithLogger(c.Logger),
		), nil
	}
}
