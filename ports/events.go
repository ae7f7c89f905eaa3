package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/core"
)

// EventPublisher notifies other processes about session and action changes
type EventPublisher interface {
	PublishSessionAuthenticated(ctx context.Context, address common.Address) error
	PublishSessionEnded(ctx context.Context, address common.Address) error
	PublishActionSubmitted(ctx context.Context, requestID string, tx core.TxHandle) error
}
