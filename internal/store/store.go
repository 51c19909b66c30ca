// ABOUTME: Store interface and data types for unified-inbox persistence
// ABOUTME: Defines Conversation, Message, Contact structs and the Store interface

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when a concurrent create collides with
// the unique (channel, external_id) constraint
var ErrDuplicateConversation = errors.New("conversation already exists")

// Channel identifies the external messaging surface a conversation came from.
type Channel string

const (
	ChannelTelegram  Channel = "telegram"
	ChannelWeb       Channel = "web"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelVK        Channel = "vk"
	ChannelAvito     Channel = "avito"
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelTelegram, ChannelWeb, ChannelWhatsApp, ChannelInstagram, ChannelVK, ChannelAvito:
		return true
	}
	return false
}

// Mode is the control-ownership state of a conversation.
type Mode string

const (
	ModeAI    Mode = "AI"    // automated responder owns the conversation
	ModeHuman Mode = "HUMAN" // a human operator owns it; automated replies are suppressed
	ModeDone  Mode = "DONE"  // conversation closed
)

func (m Mode) Valid() bool {
	switch m {
	case ModeAI, ModeHuman, ModeDone:
		return true
	}
	return false
}

// Role is the authorship of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleManager   Role = "manager" // human operator
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleManager:
		return true
	}
	return false
}

// ValidationError reports an unknown enum value supplied by a caller.
// It is a client error, never retried.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// Conversation is one ongoing exchange with a contact on one channel,
// identified by (channel, external id).
type Conversation struct {
	ID          string
	Channel     Channel
	ExternalID  string
	Mode        Mode
	ItemLabel   string // marketplace chats: the listing the conversation is about
	UnreadCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Messages in chronological order and the owned contact. Populated by
	// GetConversation and ListConversations, nil elsewhere.
	Messages []*Message
	Contact  *Contact
}

// Message is an immutable entry in a conversation's chronology.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time
}

// Contact holds the person behind a conversation. One per conversation,
// created alongside it, never independently deleted.
type Contact struct {
	ID             string
	ConversationID string
	Name           string
	Phone          string
	Email          string
	Notes          string
	History        []string // append-only prior-interaction summaries
}

// ContactUpdate carries partial contact edits; nil fields are unchanged.
type ContactUpdate struct {
	Name  *string
	Phone *string
	Email *string
	Notes *string
}

// AgentProfile is the singleton automated-responder configuration.
type AgentProfile struct {
	Name         string
	Role         string
	Tone         string
	SystemPrompt string
	Skills       map[string]bool
	UpdatedAt    time.Time
}

// KnowledgeDoc is an attached knowledge-base document with extracted text.
type KnowledgeDoc struct {
	ID        string
	Filename  string
	Content   string
	Size      int64
	CreatedAt time.Time
}

// Store defines conversation, contact and agent-profile persistence.
type Store interface {
	// Conversations
	GetOrCreateConversation(ctx context.Context, channel Channel, externalID, contactNameHint, itemLabel string) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*Conversation, error)
	SetMode(ctx context.Context, id string, mode Mode) (*Conversation, error)

	// Messages
	AppendMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error)
	History(ctx context.Context, conversationID string, limit int) ([]*Message, error)

	// Contacts
	UpdateContact(ctx context.Context, conversationID string, update ContactUpdate) (*Contact, error)
	AppendContactInteraction(ctx context.Context, conversationID, summary string) (*Contact, error)

	// Agent profile and knowledge base
	GetAgentProfile(ctx context.Context) (*AgentProfile, error)
	SaveAgentProfile(ctx context.Context, profile *AgentProfile) error
	AddKnowledgeDoc(ctx context.Context, doc *KnowledgeDoc) error
	ListKnowledgeDocs(ctx context.Context) ([]*KnowledgeDoc, error)
	DeleteKnowledgeDoc(ctx context.Context, id string) error

	// Close releases any resources held by the store
	Close() error
}
