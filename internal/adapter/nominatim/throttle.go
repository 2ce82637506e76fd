package nominatim

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/lavorimap/roadworks-etl/internal/domain"
)

// Throttled funnels every geocoding call, forward and reverse alike,
// through one rate-limited gate. The Nominatim usage policy allows at most
// one request per second; the gate is a hard sequencing constraint, not an
// optimization, so burst is pinned to 1: calls go out strictly one at a
// time with the configured minimum gap between them.
type Throttled struct {
	inner   domain.Geocoder
	limiter *rate.Limiter
}

// NewThrottled wraps a geocoder with a one-call-per-interval gate.
func NewThrottled(inner domain.Geocoder, minInterval time.Duration) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (t *Throttled) Forward(ctx context.Context, query string) (*domain.Geo, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Forward(ctx, query)
}

func (t *Throttled) Reverse(ctx context.Context, g domain.Geo) (*domain.Address, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Reverse(ctx, g)
}
