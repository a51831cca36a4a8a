package mq

import (
	"context"
	"testing"
)

// Emit is fire-and-forget: publish failures are logged, never returned, and
// the publish honors the caller's context instead of hanging on a dead
// broker.
func TestEmitSwallowsPublishFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// cancelled context makes the publish fail immediately without a
	// reachable Redis; Emit must return normally regardless
	NewNotifier().Emit(ctx, Event{
		Name:       "order-checkout",
		Recipient:  "cust-1",
		EntityType: "order",
		EntityId:   "ord-1",
	})
}
