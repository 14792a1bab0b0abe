package main_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	main "github.com/fwojciec/dirgeo/cmd/geocode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arcgisStub answers findAddressCandidates requests. Addresses starting with
// "Nowhere" get no candidates; everything else resolves to a fixed point.
type arcgisStub struct {
	*httptest.Server

	mu      sync.Mutex
	queries []string
}

func newArcgisStub(t *testing.T) *arcgisStub {
	t.Helper()
	s := &arcgisStub{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		single := r.URL.Query().Get("singleLine")
		s.mu.Lock()
		s.queries = append(s.queries, single)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(single, "Nowhere") {
			fmt.Fprint(w, `{"candidates":[]}`)
			return
		}
		fmt.Fprint(w, `{"candidates":[{"location":{"x":13.5,"y":52.25}}]}`)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *arcgisStub) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--help"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "geocode")
	assert.Contains(t, stdout.String(), "--checkpoint-every")
}

func TestMain_Run_GeocodesAddresses(t *testing.T) {
	t.Parallel()

	stub := newArcgisStub(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "addresspo.csv")
	output := filepath.Join(dir, "addressb.csv")
	metricsFile := filepath.Join(dir, "geocode.prom")
	require.NoError(t, os.WriteFile(input, []byte("Unter den Linden 6\nNowhere 1\nUnter den Linden 6\n"), 0644))

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{
		"--input", input,
		"--output", output,
		"--endpoint", stub.URL + "/findAddressCandidates",
		"--suffix", ", Berlin",
		"--max-retries", "0",
		"--metrics-file", metricsFile,
	}, &stdout, &stderr)

	require.NoError(t, err)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t,
		"Address,Latitude,Longitude\n"+
			"Unter den Linden 6,52.25,13.5\n"+
			"Nowhere 1,,\n"+
			"Unter den Linden 6,52.25,13.5\n",
		string(data))
	assert.Equal(t, []string{"Unter den Linden 6, Berlin", "Nowhere 1, Berlin"}, stub.Queries())
	assert.Contains(t, stdout.String(), "Geocoding 3/3")
	assert.Contains(t, stdout.String(), "Results saved to "+output)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `dirgeo_geocode_addresses_total{outcome="cache_hit"} 1`)
	assert.Contains(t, string(prom), `dirgeo_geocode_addresses_total{outcome="failed"} 1`)
	assert.Contains(t, string(prom), `dirgeo_geocode_addresses_total{outcome="fetched"} 1`)
}

func TestMain_Run_ResumesFromExistingResults(t *testing.T) {
	t.Parallel()

	stub := newArcgisStub(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "addresspo.csv")
	output := filepath.Join(dir, "addressb.csv")
	require.NoError(t, os.WriteFile(input, []byte("Alexanderplatz 1\nNowhere 2\nAlexanderplatz 1\nKudamm 5\n"), 0644))
	require.NoError(t, os.WriteFile(output, []byte("Address,Latitude,Longitude\nAlexanderplatz 1,1,2\nNowhere 2,,\n"), 0644))

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{
		"--input", input,
		"--output", output,
		"--endpoint", stub.URL,
		"--max-retries", "0",
	}, &stdout, &stderr)

	require.NoError(t, err)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t,
		"Address,Latitude,Longitude\n"+
			"Alexanderplatz 1,1,2\n"+
			"Nowhere 2,,\n"+
			"Alexanderplatz 1,1,2\n"+
			"Kudamm 5,52.25,13.5\n",
		string(data))
	assert.Equal(t, []string{"Kudamm 5, Berlin, Germany"}, stub.Queries())
}

func TestMain_Run_WarnsWhenVerificationDisabled(t *testing.T) {
	t.Parallel()

	stub := newArcgisStub(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "addresspo.csv")
	require.NoError(t, os.WriteFile(input, []byte("Kudamm 5\n"), 0644))

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{
		"--input", input,
		"--output", filepath.Join(dir, "addressb.csv"),
		"--endpoint", stub.URL,
		"--insecure-skip-verify",
	}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "TLS certificate verification is disabled")
}

func TestMain_Run_MissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{
		"--input", filepath.Join(dir, "missing.csv"),
		"--output", filepath.Join(dir, "addressb.csv"),
	}, &stdout, &stderr)

	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.csv")
	assert.NoFileExists(t, filepath.Join(dir, "addressb.csv"))
}

func TestMain_Run_RetriesEachAttemptWithinTimeout(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		hits int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	input := filepath.Join(dir, "addresspo.csv")
	output := filepath.Join(dir, "addressb.csv")
	require.NoError(t, os.WriteFile(input, []byte("Kudamm 5\n"), 0644))

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	// The backoff sum (0+40+80+160+320ms) is far beyond the timeout, which
	// must therefore apply to single attempts only.
	err := m.Run(context.Background(), []string{
		"--input", input,
		"--output", output,
		"--endpoint", server.URL,
		"--max-retries", "5",
		"--backoff-factor", "20ms",
		"--timeout", "100ms",
	}, &stdout, &stderr)

	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, 6, hits)
	mu.Unlock()
	assert.Contains(t, stderr.String(), "code=unavailable")
	assert.Contains(t, stderr.String(), "giving up")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Address,Latitude,Longitude\nKudamm 5,,\n", string(data))
}

func TestMain_Run_GoogleProvider(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		queries []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Path+"?address="+r.URL.Query().Get("address"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":52.5,"lng":13.25}}}]}`)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	input := filepath.Join(dir, "addresspo.csv")
	output := filepath.Join(dir, "addressb.csv")
	geojson := filepath.Join(dir, "addressb.geojson")
	require.NoError(t, os.WriteFile(input, []byte("Alexanderplatz 1\n"), 0644))

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{
		"--input", input,
		"--output", output,
		"--provider", "google",
		"--google-api-key", "AIzaTestKey",
		"--endpoint", server.URL,
		"--geojson", geojson,
		"--max-retries", "0",
	}, &stdout, &stderr)

	require.NoError(t, err)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Address,Latitude,Longitude\nAlexanderplatz 1,52.5,13.25\n", string(data))
	assert.Equal(t, []string{"/maps/api/geocode/json?address=Alexanderplatz 1, Berlin, Germany"}, queries)

	features, err := os.ReadFile(geojson)
	require.NoError(t, err)
	assert.Contains(t, string(features), `"coordinates":[13.25,52.5]`)
}

func TestMain_Run_GoogleProviderRequiresKey(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "addresspo.csv")
	require.NoError(t, os.WriteFile(input, []byte("Alexanderplatz 1\n"), 0644))
	t.Setenv("GOOGLE_MAPS_API_KEY", "")

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{
		"--input", input,
		"--output", filepath.Join(dir, "addressb.csv"),
		"--provider", "google",
	}, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
