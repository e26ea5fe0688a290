package output

import (
	"context"
	"time"
)

// MonitorPort reports when the app under test has settled. The engine waits
// briefly before analyzing a snapshot to reduce false negatives while
// content is still loading. Implementations must be safe for concurrent use.
type MonitorPort interface {
	// WaitForIdle blocks until activity stays quiet for idleThreshold, the
	// timeout elapses, or ctx is cancelled. Returns true when idle was
	// actually observed.
	WaitForIdle(ctx context.Context, timeout, idleThreshold time.Duration) bool
}
