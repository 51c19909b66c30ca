// ABOUTME: Channel adapters that translate vendor payloads into inbound events
// ABOUTME: Each adapter owns one external platform: webhook parsing in, delivery out

package channel

import (
	"context"

	"github.com/Valey88/Profit-AI/internal/inbox"
)

// Sink receives normalized inbound events. Satisfied by inbox.Service.
type Sink interface {
	HandleInbound(ctx context.Context, ev inbox.InboundEvent) (*inbox.InboundResult, error)
}
