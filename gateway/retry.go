package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/chatmesh/core"
)

// Policy bounds the retry behavior of a single remote operation. CallTimeout
// is a schedule-to-close deadline: it covers every attempt plus backoff, not
// each attempt individually.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Coefficient     float64
	CallTimeout     time.Duration
}

// Default policies mirroring the per-operation budgets of the session
// controller: completion and searches get three attempts, selection and
// persistence two.
var (
	CompletionPolicy = Policy{MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: 30 * time.Second, Coefficient: 2, CallTimeout: 2 * time.Minute}
	SelectionPolicy  = Policy{MaxAttempts: 2, InitialInterval: time.Second, MaxInterval: 10 * time.Second, Coefficient: 2, CallTimeout: 30 * time.Second}
	SearchPolicy     = Policy{MaxAttempts: 3, InitialInterval: 2 * time.Second, MaxInterval: 60 * time.Second, Coefficient: 2, CallTimeout: 90 * time.Second}
	PersistPolicy    = Policy{MaxAttempts: 2, InitialInterval: time.Second, MaxInterval: 10 * time.Second, Coefficient: 2, CallTimeout: 30 * time.Second}
)

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = time.Second
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = p.InitialInterval
	}
	if p.Coefficient < 1 {
		p.Coefficient = 2
	}
	return p
}

// Do runs fn under the policy: bounded attempts, exponential backoff, and a
// schedule-to-close deadline applied to the whole call. Validation errors are
// returned immediately; all other errors are retried until the attempt budget
// or the deadline runs out.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	p = p.normalized()
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}

	interval := p.InitialInterval
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !core.IsRetryable(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s aborted after %d attempt(s): %w", op, attempt, ctx.Err())
		case <-time.After(interval):
		}
		interval = time.Duration(float64(interval) * p.Coefficient)
		if interval > p.MaxInterval {
			interval = p.MaxInterval
		}
	}
	return fmt.Errorf("%s failed after %d attempt(s): %w", op, p.MaxAttempts, err)
}
