// Package health implements the periodic health monitor: it schedules probes
// after an initial grace period and classifies the application as starting,
// healthy, or unhealthy from consecutive probe outcomes.
package health

import (
	"context"
	"log/slog"
	"time"

	"dockhand/internal/probe"
)

// State is the externally observable health classification.
type State string

const (
	StateStarting  State = "starting"
	StateHealthy   State = "healthy"
	StateUnhealthy State = "unhealthy"
)

// Transition describes one state change, with the consecutive-failure count
// at the moment it happened.
type Transition struct {
	From     State
	To       State
	At       time.Time
	Failures int
}

// Listener is invoked on every state transition.
type Listener func(Transition)

// Options configures a Monitor. Zero durations are not defaulted here; the
// recipe layer resolves defaults before a Monitor is built.
type Options struct {
	Interval        time.Duration
	StartPeriod     time.Duration
	Retries         int
	Listener        Listener
	StopOnUnhealthy bool
}

// Monitor drives a Prober on a fixed interval and tracks the health state
// machine. It is not safe for concurrent use; run one Monitor per container.
type Monitor struct {
	prober probe.Prober
	opts   Options

	state    State
	failures int
}

// NewMonitor creates a monitor in the starting state.
func NewMonitor(p probe.Prober, opts Options) *Monitor {
	return &Monitor{
		prober: p,
		opts:   opts,
		state:  StateStarting,
	}
}

// State returns the current classification.
func (m *Monitor) State() State {
	return m.state
}

// observe folds one probe outcome into the state machine and reports the
// previous state and whether it changed. A success always resets the failure
// counter and restores health; failures flip the state only at the retry
// threshold.
func (m *Monitor) observe(ok bool) (State, bool) {
	prev := m.state

	if ok {
		m.failures = 0
		m.state = StateHealthy
	} else {
		m.failures++
		if m.failures >= m.opts.Retries {
			m.state = StateUnhealthy
		}
	}

	return prev, m.state != prev
}

// Run blocks until ctx is cancelled (or, with StopOnUnhealthy, until the
// container is classified unhealthy) and returns the final state. No probe
// runs before the start period has elapsed.
func (m *Monitor) Run(ctx context.Context) State {
	slog.Info("Health monitor started",
		"startPeriod", m.opts.StartPeriod,
		"interval", m.opts.Interval,
		"retries", m.opts.Retries)

	// Grace period: the application is warming up, probes must not run and
	// must not influence the reported state.
	grace := time.NewTimer(m.opts.StartPeriod)
	select {
	case <-ctx.Done():
		grace.Stop()
		return m.state
	case <-grace.C:
	}

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		err := m.prober.Probe(ctx)
		if ctx.Err() != nil {
			return m.state
		}

		prev, changed := m.observe(err == nil)
		if err != nil {
			slog.Warn("Health probe failed", "consecutiveFailures", m.failures, "error", err)
		}
		if changed {
			t := Transition{
				From:     prev,
				To:       m.state,
				At:       time.Now(),
				Failures: m.failures,
			}
			slog.Info("Health state changed", "from", t.From, "to", t.To, "consecutiveFailures", t.Failures)
			if m.opts.Listener != nil {
				m.opts.Listener(t)
			}
		}

		if m.opts.StopOnUnhealthy && m.state == StateUnhealthy {
			return m.state
		}

		select {
		case <-ctx.Done():
			return m.state
		case <-ticker.C:
		}
	}
}
