// ABOUTME: Shared types for the inbox orchestration layer
// ABOUTME: Defines the inbound event contract, delivery and broadcast interfaces

package inbox

import (
	"context"

	"github.com/Valey88/Profit-AI/internal/pipeline"
	"github.com/Valey88/Profit-AI/internal/realtime"
	"github.com/Valey88/Profit-AI/internal/store"
)

// InboundEvent is the normalized message a channel adapter hands to the
// orchestrator. Adapters drop malformed or non-text payloads before this
// point.
type InboundEvent struct {
	Channel    store.Channel
	ExternalID string
	Text       string
	SenderName string
	// ItemLabel is the marketplace listing the conversation is about, when
	// the channel carries one.
	ItemLabel string
	// BusinessContext is extra widget-supplied context for generation.
	BusinessContext string
}

// InboundResult reports what one inbound event produced. Reply, Intent and
// Actions are zero when the conversation mode suppressed the automated reply.
type InboundResult struct {
	Conversation *store.Conversation
	UserMessage  *store.Message
	Reply        *store.Message
	Intent       pipeline.Intent
	Actions      []pipeline.Action
}

// Deliverer sends an outbound text to a contact on an external platform.
type Deliverer interface {
	Deliver(ctx context.Context, externalID, text string) error
}

// Broadcaster fans an event out to the conversation's realtime room.
type Broadcaster interface {
	Broadcast(conversationID string, event realtime.Event)
}
