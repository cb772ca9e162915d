// Package resilience classifies store errors and paces the startup
// connectivity check. Discovery requests are never retried internally;
// callers retry.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy paces retries of a dependency check at boot.
type Policy struct {
	// Attempts is the total number of checks, the first one included.
	Attempts int
	// Initial is the wait before the first retry. It doubles up to Max.
	Initial time.Duration
	Max     time.Duration
	// OnRetry, when set, sees each failure that is about to be retried.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy waits 250ms, 500ms, 1s and 2s between five attempts.
func DefaultPolicy() Policy {
	return Policy{Attempts: 5, Initial: 250 * time.Millisecond, Max: 10 * time.Second}
}

// FromConfig builds a Policy from the store settings. Zero values keep the
// defaults.
func FromConfig(attempts, backoffMs int) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if backoffMs > 0 {
		p.Initial = time.Duration(backoffMs) * time.Millisecond
	}
	return p
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Initial <= 0 {
		p.Initial = def.Initial
	}
	if p.Max < p.Initial {
		p.Max = max(def.Max, p.Initial)
	}
	return p
}

// Delay is the wait after failed attempt n, counting from 1.
func (p Policy) Delay(n int) time.Duration {
	p = p.normalized()
	d := p.Initial
	for i := 1; i < n && d < p.Max; i++ {
		d *= 2
	}
	return min(d, p.Max)
}

// Until runs check until it succeeds. It gives up with the last error once
// the attempts are spent, the error is not transient, or ctx is done.
func (p Policy) Until(ctx context.Context, check func(context.Context) error) error {
	p = p.normalized()
	for attempt := 1; ; attempt++ {
		err := check(ctx)
		if err == nil || attempt >= p.Attempts || !IsTransient(err) || ctx.Err() != nil {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		wait := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			wait.Stop()
			return err
		case <-wait.C:
		}
	}
}

// LogRetry returns an OnRetry callback that logs each failed check.
func LogRetry(dependency string) func(int, error) {
	log := zap.L().With(zap.String("component", "resilience"), zap.String("dependency", dependency))
	return func(attempt int, err error) {
		log.Warn("dependency not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
}
