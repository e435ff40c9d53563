package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strobelabs/strobe/internal/threads"
)

// Collector receives the snapshots captured on each tick. The report
// builder implements this; tests substitute their own.
type Collector interface {
	Collect(snaps []threads.Snapshot)
}

// SessionConfig configures a sampling session.
type SessionConfig struct {
	// Interval is the tick cadence (default: 10ms).
	Interval time.Duration
	// Duration bounds the session; zero runs until the context is
	// cancelled.
	Duration time.Duration
}

// Session drives a selector on a fixed cadence and feeds the captured
// snapshots to a Collector. A session owns its selector; ticks are
// issued from a single goroutine, which is what the Regex match cache
// requires.
type Session struct {
	id       string
	selector Selector
	intros   threads.Introspector
	sink     Collector
	config   SessionConfig
	logger   zerolog.Logger
}

// NewSession creates a sampling session.
func NewSession(selector Selector, intros threads.Introspector, sink Collector, config SessionConfig, logger zerolog.Logger) *Session {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Millisecond
	}

	id := uuid.NewString()
	return &Session{
		id:       id,
		selector: selector,
		intros:   intros,
		sink:     sink,
		config:   config,
		logger:   logger.With().Str("component", "session").Str("session_id", id).Logger(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Metadata describes the session's selection policy.
func (s *Session) Metadata() Metadata { return s.selector.Metadata() }

// Run ticks the selector until the configured duration elapses or ctx
// is cancelled. Reaching the configured duration is a normal end, not
// an error.
func (s *Session) Run(ctx context.Context) error {
	bounded := s.config.Duration > 0
	if bounded {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Duration)
		defer cancel()
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("duration", s.config.Duration).
		Str("selection", string(s.selector.Metadata().Type)).
		Msg("Starting sampling session")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	var ticks, captured int64
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().
				Int64("ticks", ticks).
				Int64("snapshots", captured).
				Msg("Sampling session finished")
			if bounded && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			snaps := s.selector.Dump(s.intros)
			ticks++
			captured += int64(len(snaps))
			if s.sink != nil {
				s.sink.Collect(snaps)
			}
		}
	}
}
