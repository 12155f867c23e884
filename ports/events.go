package ports

import (
	"context"

	"github.com/crosswalk-games/pointbridge/core"
)

// EventPublisher notifies other systems that an approval was issued
type EventPublisher interface {
	PublishApproval(ctx context.Context, walletAddress string, action core.Action, amount, nextNonce int64) error
}
