// Package monitor provides activity settling for the recovery engine: the
// UI snapshot is only worth searching once the app under test has gone
// quiet.
package monitor

import (
	"context"
	"time"

	"recovery-agent/internal/application/port/output"
)

// ActivityProbe reports the time of the most recent observed activity
// (network traffic, UI events). The probe must be safe for concurrent use.
type ActivityProbe func() time.Time

var _ output.MonitorPort = (*PollMonitor)(nil)

// PollMonitor polls an activity probe until the quiet period reaches the
// idle threshold or the timeout expires.
type PollMonitor struct {
	probe    ActivityProbe
	interval time.Duration
}

func NewPollMonitor(probe ActivityProbe, interval time.Duration) *PollMonitor {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &PollMonitor{probe: probe, interval: interval}
}

// WaitForIdle returns true once no activity was observed for idleThreshold.
// It returns false when the timeout expires or the context is cancelled
// first; callers treat that as "proceed anyway".
func (m *PollMonitor) WaitForIdle(ctx context.Context, timeout, idleThreshold time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if time.Since(m.probe()) >= idleThreshold {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

var _ output.MonitorPort = NopMonitor{}

// NopMonitor reports idle immediately.
type NopMonitor struct{}

func (NopMonitor) WaitForIdle(context.Context, time.Duration, time.Duration) bool { return true }
