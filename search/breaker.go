package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"obsquery/metrics"

	"go.uber.org/zap"
)

// BreakerState is the state of a search backend circuit breaker.
type BreakerState string

const (
	// BreakerClosed passes searches through.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen rejects searches without contacting the backend.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen lets a limited number of probe searches through.
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrBackendUnavailable is returned while the breaker is rejecting searches.
var ErrBackendUnavailable = errors.New("search backend unavailable")

// BreakerConfig holds the trip and recovery thresholds.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures uint32
	// ResetTimeout is how long the breaker stays open before probing
	ResetTimeout time.Duration
	// MaxHalfOpenRequests is the number of concurrent probes allowed
	MaxHalfOpenRequests uint32
}

// Validate checks the thresholds.
func (c BreakerConfig) Validate() error {
	if c.MaxFailures == 0 {
		return errors.New("max failures must be greater than 0")
	}
	if c.ResetTimeout <= 0 {
		return errors.New("reset timeout must be greater than 0")
	}
	if c.MaxHalfOpenRequests == 0 {
		return errors.New("max half-open requests must be greater than 0")
	}
	return nil
}

// Breaker tracks consecutive backend failures.
type Breaker struct {
	config       BreakerConfig
	clock        Clock
	state        BreakerState
	failures     uint32
	openedAt     time.Time
	halfOpenReqs uint32
	mu           sync.Mutex
}

// NewBreaker creates a closed breaker. A nil clock means the wall clock.
func NewBreaker(config BreakerConfig, clock Clock) (*Breaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker configuration: %w", err)
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Breaker{config: config, clock: clock, state: BreakerClosed}, nil
}

// allow reserves a slot for one search or reports why there is none.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.clock.Now().Sub(b.openedAt) < b.config.ResetTimeout {
			return ErrBackendUnavailable
		}
		b.setState(BreakerHalfOpen)
		b.halfOpenReqs = 1
		return nil

	case BreakerHalfOpen:
		if b.halfOpenReqs >= b.config.MaxHalfOpenRequests {
			return ErrBackendUnavailable
		}
		b.halfOpenReqs++
		return nil

	default:
		return nil
	}
}

// record settles a slot taken by allow. It returns the states before and
// after.
func (b *Breaker) record(failed bool) (from, to BreakerState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from = b.state
	if b.state == BreakerHalfOpen && b.halfOpenReqs > 0 {
		b.halfOpenReqs--
	}

	if !failed {
		b.failures = 0
		if b.state == BreakerHalfOpen {
			b.setState(BreakerClosed)
			b.halfOpenReqs = 0
		}
		return from, b.state
	}

	b.failures++
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.config.MaxFailures {
			b.setState(BreakerOpen)
			b.openedAt = b.clock.Now()
		}
	case BreakerHalfOpen:
		b.setState(BreakerOpen)
		b.openedAt = b.clock.Now()
		b.halfOpenReqs = 0
	}
	return from, b.state
}

// release returns a slot without judging the backend.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen && b.halfOpenReqs > 0 {
		b.halfOpenReqs--
	}
}

// setState must be called with mu held.
func (b *Breaker) setState(state BreakerState) {
	b.state = state
	if state == BreakerOpen {
		metrics.SearchBreakerOpen.Set(1)
	} else {
		metrics.SearchBreakerOpen.Set(0)
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// GuardedBackend fails searches fast while its breaker is open.
type GuardedBackend struct {
	backend Backend
	breaker *Breaker
	logger  *zap.SugaredLogger
}

// NewGuardedBackend wraps backend with breaker.
func NewGuardedBackend(backend Backend, breaker *Breaker, logger *zap.SugaredLogger) *GuardedBackend {
	return &GuardedBackend{backend: backend, breaker: breaker, logger: logger}
}

// Search implements Backend. A search abandoned by its caller does not
// count against the backend.
func (g *GuardedBackend) Search(ctx context.Context, req *Request) (*Result, error) {
	if err := g.breaker.allow(); err != nil {
		return nil, err
	}

	result, err := g.backend.Search(ctx, req)
	if errors.Is(err, context.Canceled) {
		g.breaker.release()
		return nil, err
	}

	from, to := g.breaker.record(err != nil)
	if from != to {
		if to == BreakerOpen {
			g.logger.Warnw("Search backend circuit opened",
				"from", from,
				"failures", g.breaker.Failures(),
				"error", err)
		} else {
			g.logger.Infow("Search backend circuit state changed", "from", from, "to", to)
		}
	}
	return result, err
}
