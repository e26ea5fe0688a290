package output

import (
	"context"

	"recovery-agent/internal/domain/entity"
)

// OraclePort is the suggestion oracle: an external text-generation service
// consulted as a last-mile decision maker. The engine treats it as opaque;
// only the chat contract matters. The call is the single suspension point
// of a recovery pass, so no lock may be held across it.
type OraclePort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Temperature float32
}

type ChatResponse struct {
	Message entity.Message
}
