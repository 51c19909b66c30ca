// ABOUTME: Orchestrator for inbound messages and operator actions
// ABOUTME: One linear pipeline per event: persist, broadcast, decide, generate, persist, broadcast, deliver

package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Valey88/Profit-AI/internal/pipeline"
	"github.com/Valey88/Profit-AI/internal/realtime"
	"github.com/Valey88/Profit-AI/internal/store"
)

// Service coordinates storage, the response pipeline, realtime fanout and
// outbound delivery. It holds no per-conversation locks: append ordering is
// the store's guarantee.
type Service struct {
	store  store.Store
	pipe   *pipeline.Pipeline
	bus    Broadcaster
	logger *slog.Logger

	mu         sync.RWMutex
	deliverers map[store.Channel]Deliverer
}

func NewService(st store.Store, pipe *pipeline.Pipeline, bus Broadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		pipe:       pipe,
		bus:        bus,
		logger:     logger.With("component", "inbox"),
		deliverers: make(map[store.Channel]Deliverer),
	}
}

// RegisterDeliverer wires outbound delivery for a channel. Channels without a
// deliverer (the web widget) receive replies over realtime only.
func (s *Service) RegisterDeliverer(channel store.Channel, d Deliverer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverers[channel] = d
}

func (s *Service) deliverer(channel store.Channel) Deliverer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deliverers[channel]
}

// HandleInbound processes one inbound user message end to end. The persisted
// user message is durable from step two onward: later failures, including
// storage failure while persisting the reply, never undo it.
func (s *Service) HandleInbound(ctx context.Context, ev InboundEvent) (*InboundResult, error) {
	conv, err := s.store.GetOrCreateConversation(ctx, ev.Channel, ev.ExternalID, ev.SenderName, ev.ItemLabel)
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	userMsg, err := s.store.AppendMessage(ctx, conv.ID, store.RoleUser, ev.Text)
	if err != nil {
		return nil, fmt.Errorf("persisting inbound message: %w", err)
	}
	s.broadcastMessage(conv.ID, userMsg)

	result := &InboundResult{Conversation: conv, UserMessage: userMsg}

	if Decide(conv.Mode) != InvokeAI {
		s.logger.Debug("automated reply suppressed",
			"conversation_id", conv.ID, "mode", conv.Mode)
		return result, nil
	}

	s.bus.Broadcast(conv.ID, realtime.Event{
		Type:           realtime.EventTypingStart,
		ConversationID: conv.ID,
	})

	pipeRes, err := s.pipe.Run(ctx, conv.ID, ev.Text, ev.BusinessContext)
	if err != nil {
		return nil, fmt.Errorf("running response pipeline: %w", err)
	}

	reply, err := s.store.AppendMessage(ctx, conv.ID, store.RoleAssistant, pipeRes.Text)
	if err != nil {
		return nil, fmt.Errorf("persisting reply: %w", err)
	}
	s.broadcastMessage(conv.ID, reply)
	s.deliver(ctx, conv, pipeRes.Text)

	result.Reply = reply
	result.Intent = pipeRes.Intent
	result.Actions = pipeRes.Actions
	return result, nil
}

// SendAsManager persists an operator message, forcing the conversation into
// HUMAN mode first. The takeover announcement is emitted only when the mode
// actually changes.
func (s *Service) SendAsManager(ctx context.Context, conversationID, text string) (*store.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	if conv.Mode != store.ModeHuman {
		if _, err := s.SetMode(ctx, conversationID, store.ModeHuman); err != nil {
			return nil, fmt.Errorf("forcing human mode: %w", err)
		}
	}

	msg, err := s.store.AppendMessage(ctx, conversationID, store.RoleManager, text)
	if err != nil {
		return nil, fmt.Errorf("persisting manager message: %w", err)
	}
	s.broadcastMessage(conversationID, msg)
	s.deliver(ctx, conv, text)
	return msg, nil
}

// SendAndRespond is the combined operation used when no realtime channel is
// available: persist the user message and return it together with the
// automated reply. When the conversation is not in AI mode the reply is nil.
func (s *Service) SendAndRespond(ctx context.Context, conversationID, text, businessContext string) (*InboundResult, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return s.HandleInbound(ctx, InboundEvent{
		Channel:         conv.Channel,
		ExternalID:      conv.ExternalID,
		Text:            text,
		BusinessContext: businessContext,
	})
}

// SetMode transitions a conversation. A genuine transition persists the
// announcement as a system message and broadcasts it; setting the current
// mode again emits nothing.
func (s *Service) SetMode(ctx context.Context, conversationID string, mode store.Mode) (*store.Conversation, error) {
	current, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if current.Mode == mode {
		return current, nil
	}

	conv, err := s.store.SetMode(ctx, conversationID, mode)
	if err != nil {
		return nil, err
	}

	announcement := transitionMessage(mode)
	msg, err := s.store.AppendMessage(ctx, conversationID, store.RoleSystem, announcement)
	if err != nil {
		// The mode change itself stuck; the missing announcement is
		// a cosmetic loss.
		s.logger.Error("persisting mode announcement", "error", err,
			"conversation_id", conversationID, "mode", mode)
		return conv, nil
	}
	s.broadcastMessage(conversationID, msg)
	return conv, nil
}

// HandleWidgetMessage adapts send_message frames from the realtime hub into
// inbound events. The widget speaks for the conversation's own contact, so
// the frame routes through the same path as a channel adapter event.
func (s *Service) HandleWidgetMessage(ctx context.Context, conversationID, text string) {
	if text == "" {
		return
	}
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		s.logger.Warn("widget message for unknown conversation",
			"error", err, "conversation_id", conversationID)
		return
	}
	if _, err := s.HandleInbound(ctx, InboundEvent{
		Channel:    conv.Channel,
		ExternalID: conv.ExternalID,
		Text:       text,
	}); err != nil {
		s.logger.Error("handling widget message", "error", err,
			"conversation_id", conversationID)
	}
}

func (s *Service) ListConversations(ctx context.Context) ([]*store.Conversation, error) {
	return s.store.ListConversations(ctx)
}

// GetOrCreateConversation is the console/widget bootstrap: the widget posts
// its external id here before opening the websocket.
func (s *Service) GetOrCreateConversation(ctx context.Context, channel store.Channel, externalID, contactName, itemLabel string) (*store.Conversation, error) {
	return s.store.GetOrCreateConversation(ctx, channel, externalID, contactName, itemLabel)
}

func (s *Service) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

func (s *Service) UpdateContact(ctx context.Context, conversationID string, update store.ContactUpdate) (*store.Contact, error) {
	return s.store.UpdateContact(ctx, conversationID, update)
}

// AddContactInteraction appends one line to the contact's interaction log.
func (s *Service) AddContactInteraction(ctx context.Context, conversationID, summary string) (*store.Contact, error) {
	return s.store.AppendContactInteraction(ctx, conversationID, summary)
}

func (s *Service) broadcastMessage(conversationID string, msg *store.Message) {
	s.bus.Broadcast(conversationID, realtime.Event{
		Type:           realtime.EventNewMessage,
		ConversationID: conversationID,
		Message:        realtime.MessageOf(msg),
	})
}

// deliver relays text to the conversation's external platform. Delivery
// failure is logged, never propagated: the message is already persisted and
// broadcast.
func (s *Service) deliver(ctx context.Context, conv *store.Conversation, text string) {
	d := s.deliverer(conv.Channel)
	if d == nil {
		return
	}
	if err := d.Deliver(ctx, conv.ExternalID, text); err != nil {
		s.logger.Error("outbound delivery failed", "error", err,
			"channel", conv.Channel, "conversation_id", conv.ID)
	}
}
