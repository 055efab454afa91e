package engine

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var _ backoff.BackOff = (*exponentialBackOff)(nil)

// exponentialBackOff yields min(initial*2^(n-1), max) for retry n, scaled by
// a factor in [0.5, 1.5) when jitter is on.
type exponentialBackOff struct {
	policy RetryPolicy
	random func() float64
	retry  int
}

func newBackOff(p RetryPolicy) *exponentialBackOff {
	return &exponentialBackOff{policy: p, random: rand.Float64}
}

func (b *exponentialBackOff) Reset() {
	b.retry = 0
}

func (b *exponentialBackOff) NextBackOff() time.Duration {
	b.retry++
	d := b.policy.Delay(b.retry)
	if b.policy.Jitter {
		d = jitter(d, b.random())
	}
	return d
}

// jitter scales d by 0.5+u where u is in [0, 1).
func jitter(d time.Duration, u float64) time.Duration {
	return time.Duration(float64(d) * (0.5 + u))
}
