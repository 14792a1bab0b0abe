package mock

import (
	"context"

	"github.com/fwojciec/dirgeo"
)

var _ dirgeo.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of dirgeo.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, host string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, host string) error {
	return l.WaitFn(ctx, host)
}
