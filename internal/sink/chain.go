package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/metrics"
	"github.com/neo/personasim/internal/record"
)

var (
	ErrNoSinks        = errors.New("no sinks configured")
	ErrAllSinksFailed = errors.New("all sinks failed")
)

// Chain writes to the first healthy sink of a prioritized list. When a sink
// fails, the same record is retried on the next one and the failed sink is
// not used again for the rest of the run.
type Chain struct {
	sinks   []Sink
	metrics *metrics.Metrics

	mu       sync.Mutex
	active   int
	degraded bool
}

// NewChain creates a chain over sinks in priority order
func NewChain(m *metrics.Metrics, sinks ...Sink) (*Chain, error) {
	if len(sinks) == 0 {
		return nil, ErrNoSinks
	}
	m.SetDegraded(false)
	return &Chain{sinks: sinks, metrics: m}, nil
}

func (c *Chain) Insert(ctx context.Context, rec record.IterationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for c.active < len(c.sinks) {
		s := c.sinks[c.active]
		err := s.Insert(ctx, rec)
		if err == nil {
			c.metrics.ObserveWrite(s.Name())
			return nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		c.metrics.ObserveSinkFailure(s.Name())
		c.active++
		c.degraded = true
		c.metrics.SetDegraded(true)

		details := map[string]interface{}{
			"session_id": rec.SessionID,
			"iteration":  rec.Iteration,
			"error":      err.Error(),
		}
		if c.active < len(c.sinks) {
			details["fallback"] = c.sinks[c.active].Name()
		}
		logging.LogSinkEvent("insert_failed", s.Name(), details)
	}

	if len(errs) == 0 {
		return ErrAllSinksFailed
	}
	return fmt.Errorf("%w: %w", ErrAllSinksFailed, errors.Join(errs...))
}

func (c *Chain) Name() string {
	return "chain"
}

// Degraded reports whether any sink has failed and records are going to a
// lower-priority sink.
func (c *Chain) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Active returns the name of the sink currently receiving records, or ""
// when every sink has failed.
func (c *Chain) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active >= len(c.sinks) {
		return ""
	}
	return c.sinks[c.active].Name()
}

func (c *Chain) Close() error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
