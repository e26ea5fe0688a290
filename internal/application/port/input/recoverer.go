package input

import (
	"context"

	"recovery-agent/internal/domain/entity"
)

// ElementRecoverer turns a failed element lookup into an alternative
// locator. An empty locator means "nothing found"; only input-contract
// violations are returned as errors.
type ElementRecoverer interface {
	Recover(ctx context.Context, req entity.RecoveryRequest) (entity.Locator, error)
}
