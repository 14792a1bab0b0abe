// Package metrics counts what a batch run did and can export the counters in
// the Prometheus text format for a node-exporter textfile collector.
package metrics

import (
	"context"
	"time"

	"github.com/fwojciec/dirgeo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of one categorize or geocode run. Each value
// owns its registry, so runs and tests never share state.
type Metrics struct {
	PagesTotal      *prometheus.CounterVec
	RowsTotal       *prometheus.CounterVec
	AddressesTotal  *prometheus.CounterVec
	GeocodeSeconds  prometheus.Histogram
	LastRunFinished prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		PagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dirgeo_directory_pages_total",
			Help: "Directory pages processed, by status.",
		}, []string{"status"}),
		RowsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dirgeo_enrich_rows_total",
			Help: "Input rows enriched, by whether a category matched.",
		}, []string{"result"}),
		AddressesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dirgeo_geocode_addresses_total",
			Help: "Addresses processed, by outcome.",
		}, []string{"outcome"}),
		GeocodeSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "dirgeo_geocode_request_duration_seconds",
			Help:    "Duration of geocoding calls including retries.",
			Buckets: prometheus.DefBuckets,
		}),
		LastRunFinished: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dirgeo_last_run_finished_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		gatherer: reg,
	}
}

// WriteTextfile marks the run finished and writes every metric to path.
func (m *Metrics) WriteTextfile(path string) error {
	m.LastRunFinished.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.gatherer)
}

// Ensure InstrumentedGeocoder implements dirgeo.Geocoder.
var _ dirgeo.Geocoder = (*InstrumentedGeocoder)(nil)

// InstrumentedGeocoder records the duration of every Geocode call.
type InstrumentedGeocoder struct {
	next    dirgeo.Geocoder
	metrics *Metrics
}

// NewInstrumentedGeocoder wraps next.
func NewInstrumentedGeocoder(next dirgeo.Geocoder, m *Metrics) *InstrumentedGeocoder {
	return &InstrumentedGeocoder{next: next, metrics: m}
}

// Geocode delegates to the wrapped geocoder and observes its duration.
func (g *InstrumentedGeocoder) Geocode(ctx context.Context, address string) (*dirgeo.Coordinates, error) {
	defer func(begin time.Time) {
		g.metrics.GeocodeSeconds.Observe(time.Since(begin).Seconds())
	}(time.Now())
	return g.next.Geocode(ctx, address)
}
