// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package health

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the connection state shown to the user.
type Status int

const (
	// StatusChecking means no probe has completed yet.
	StatusChecking Status = iota
	// StatusOnline means the last probe succeeded.
	StatusOnline
	// StatusOffline means the last probe failed.
	StatusOffline
)

// String returns the badge label for the status.
func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "checking"
	}
}

// =============================================================================
// MONITOR
// =============================================================================

// Prober checks backend reachability with a single short attempt.
// api.Client implements it.
type Prober interface {
	Probe(ctx context.Context) error
}

// Probe pacing.
const (
	// DefaultInterval is the background probe cadence.
	DefaultInterval = 2 * time.Minute

	// forcedCheckMinGap caps user-triggered checks to one per ten
	// seconds with a small burst.
	forcedCheckMinGap = 10 * time.Second
	forcedCheckBurst  = 2
)

// Monitor probes the backend periodically and reports status changes.
type Monitor struct {
	mu       sync.Mutex
	prober   Prober
	interval time.Duration
	status   Status
	lastSeen time.Time
	onChange func(Status)
	limiter  *rate.Limiter

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor. interval <= 0 uses DefaultInterval.
func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		status:   StatusChecking,
		limiter:  rate.NewLimiter(rate.Every(forcedCheckMinGap), forcedCheckBurst),
	}
}

// OnChange registers a callback invoked whenever the status changes. The
// callback runs outside the monitor's lock.
func (m *Monitor) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Status returns the current connection state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastSeen returns when the backend last answered a probe. Zero until the
// first success.
func (m *Monitor) LastSeen() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen
}

// =============================================================================
// PROBE LOOP
// =============================================================================

// Start launches the background probe loop, beginning with an immediate
// probe. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	interval := m.interval
	m.mu.Unlock()

	go m.loop(ctx, interval)
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	m.check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// ForceCheck probes immediately, subject to the rate cap. Returns the
// resulting status; a rate-limited call returns the current status without
// probing.
func (m *Monitor) ForceCheck(ctx context.Context) Status {
	if !m.limiter.Allow() {
		return m.Status()
	}
	m.check(ctx)
	return m.Status()
}

// check runs one probe and applies the result.
func (m *Monitor) check(ctx context.Context) {
	err := m.prober.Probe(ctx)
	if ctx.Err() != nil {
		return
	}

	next := StatusOnline
	if err != nil {
		next = StatusOffline
	}

	m.mu.Lock()
	prev := m.status
	m.status = next
	if next == StatusOnline {
		m.lastSeen = time.Now()
	}
	onChange := m.onChange
	m.mu.Unlock()

	if prev != next {
		log.Printf("health: connection %s -> %s", prev, next)
		if onChange != nil {
			onChange(next)
		}
	}
}
