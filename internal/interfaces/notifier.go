package interfaces

import "context"

// Notifier delivers user-facing event messages. Fire and forget: delivery
// failures are logged by the implementation, never returned.
type Notifier interface {
	Notify(ctx context.Context, text string)
}
