package interfaces

import (
	"context"

	"github.com/paydeskhq/paydesk/internal/domain"
)

// Notifier delivers outbound messages to the chat transport. Implementations
// must not block indefinitely; delivery failures are logged by the caller and
// never roll back ledger state.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string, buttons ...domain.Button) error
	NotifyAdmin(ctx context.Context, text string, buttons ...domain.Button) error
}
