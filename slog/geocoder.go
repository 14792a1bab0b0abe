package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/dirgeo"
)

// Ensure LoggingGeocoder implements dirgeo.Geocoder.
var _ dirgeo.Geocoder = (*LoggingGeocoder)(nil)

// LoggingGeocoder wraps a Geocoder and logs every lookup.
// Successful lookups are logged at debug level, failures at warn.
type LoggingGeocoder struct {
	next   dirgeo.Geocoder
	logger *slog.Logger
}

// NewLoggingGeocoder creates a new LoggingGeocoder.
func NewLoggingGeocoder(next dirgeo.Geocoder, logger *slog.Logger) *LoggingGeocoder {
	return &LoggingGeocoder{next: next, logger: logger}
}

// Geocode delegates to the wrapped geocoder and logs the outcome.
func (g *LoggingGeocoder) Geocode(ctx context.Context, address string) (coords *dirgeo.Coordinates, err error) {
	defer func(begin time.Time) {
		if err != nil {
			g.logger.WarnContext(ctx, "geocode",
				"address", address,
				"duration", time.Since(begin),
				"code", dirgeo.ErrorCode(err),
				"err", err,
			)
			return
		}
		g.logger.DebugContext(ctx, "geocode",
			"address", address,
			"lat", coords.Latitude,
			"lon", coords.Longitude,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return g.next.Geocode(ctx, address)
}
