package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/dirgeo"
	"golang.org/x/time/rate"
)

// DefaultDelay is the politeness delay between two page requests.
const DefaultDelay = 1 * time.Second

var _ dirgeo.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter keeps at least one interval between two requests to the same
// host. The directory lives on a single host, so in practice this is a
// global throttle; other hosts, such as a mirror, get their own bucket.
type DomainLimiter struct {
	interval time.Duration

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewDomainLimiter creates a DomainLimiter for the given interval.
// An interval of zero or less turns throttling off.
func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	return &DomainLimiter{
		interval: interval,
		buckets:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may start. The first request to a
// host passes immediately.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d.interval <= 0 {
		return ctx.Err()
	}
	return d.bucket(host).Wait(ctx)
}

func (d *DomainLimiter) bucket(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buckets[host]
	if !ok {
		b = rate.NewLimiter(rate.Every(d.interval), 1)
		d.buckets[host] = b
	}
	return b
}
