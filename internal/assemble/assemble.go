// ABOUTME: Context assembly for automated reply generation
// ABOUTME: Gathers recent history, agent profile and knowledge-base text with graceful degradation

package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Valey88/Profit-AI/internal/store"
)

const (
	// historyFetchLimit is how much history is retrieved from the store;
	// historyRenderLimit is how much of it ends up in the prompt.
	historyFetchLimit  = 20
	historyRenderLimit = 10
)

// Fallback persona used when no agent profile has been configured.
const (
	DefaultAgentName = "Profit Flow AI"
	DefaultAgentRole = "умный бизнес-ассистент"
	DefaultAgentTone = "дружелюбным и профессиональным"
)

// Degradation names a lookup that failed and was replaced by a default.
type Degradation string

const (
	DegradedProfile   Degradation = "agent_profile"
	DegradedKnowledge Degradation = "knowledge"
	DegradedHistory   Degradation = "history"
)

// Context is everything reply generation needs about a conversation.
type Context struct {
	History     []*store.Message // most recent messages, chronological
	HistoryText string           // role-labeled rendering of the tail of History

	AgentName    string
	AgentRole    string
	AgentTone    string
	Instructions string

	Knowledge       string // knowledge docs concatenated under filename headers
	BusinessContext string // caller-supplied, optional

	// Degraded lists the lookups that fell back to defaults. Empty means
	// every source was read successfully.
	Degraded []Degradation
}

// Store is what the assembler needs from persistence.
type Store interface {
	History(ctx context.Context, conversationID string, limit int) ([]*store.Message, error)
	GetAgentProfile(ctx context.Context) (*store.AgentProfile, error)
	ListKnowledgeDocs(ctx context.Context) ([]*store.KnowledgeDoc, error)
}

// Assembler builds generation context from storage.
type Assembler struct {
	store  Store
	logger *slog.Logger
}

func New(st Store, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		store:  st,
		logger: logger.With("component", "assemble"),
	}
}

// Build assembles the generation context for a conversation. It never fails
// the caller: profile, knowledge or history lookup errors are logged, the
// affected section falls back to its default, and the degradation is recorded
// on the returned Context so call sites can tell "succeeded" from "degraded".
func (a *Assembler) Build(ctx context.Context, conversationID, inboundText, businessContext string) *Context {
	out := &Context{
		AgentName:       DefaultAgentName,
		AgentRole:       DefaultAgentRole,
		AgentTone:       DefaultAgentTone,
		BusinessContext: businessContext,
	}

	history, err := a.store.History(ctx, conversationID, historyFetchLimit)
	if err != nil {
		a.logger.Warn("history lookup failed, proceeding without history",
			"error", err, "conversation_id", conversationID)
		out.Degraded = append(out.Degraded, DegradedHistory)
	} else {
		out.History = history
		out.HistoryText = renderHistory(history)
	}

	profile, err := a.store.GetAgentProfile(ctx)
	if err != nil && err != store.ErrNotFound {
		a.logger.Warn("agent profile lookup failed, using defaults", "error", err)
		out.Degraded = append(out.Degraded, DegradedProfile)
	}
	if profile != nil {
		if profile.Name != "" {
			out.AgentName = profile.Name
		}
		if profile.Role != "" {
			out.AgentRole = profile.Role
		}
		if profile.Tone != "" {
			out.AgentTone = profile.Tone
		}
		out.Instructions = profile.SystemPrompt
	}

	docs, err := a.store.ListKnowledgeDocs(ctx)
	if err != nil {
		a.logger.Warn("knowledge lookup failed, proceeding without knowledge", "error", err)
		out.Degraded = append(out.Degraded, DegradedKnowledge)
	} else {
		out.Knowledge = renderKnowledge(docs)
	}

	return out
}

// renderHistory renders the last historyRenderLimit messages as role-labeled
// lines, oldest first.
func renderHistory(history []*store.Message) string {
	if len(history) > historyRenderLimit {
		history = history[len(history)-historyRenderLimit:]
	}

	var b strings.Builder
	for _, msg := range history {
		var label string
		switch msg.Role {
		case store.RoleUser:
			label = "Клиент"
		case store.RoleAssistant:
			label = "AI"
		case store.RoleManager:
			label = "Менеджер"
		case store.RoleSystem:
			label = "Система"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, msg.Content)
	}
	return b.String()
}

// renderKnowledge concatenates non-empty knowledge docs, each prefixed by its
// filename as a section header.
func renderKnowledge(docs []*store.KnowledgeDoc) string {
	var sections []string
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("--- %s ---\n%s", doc.Filename, doc.Content))
	}
	if len(sections) == 0 {
		return ""
	}
	return "БАЗА ЗНАНИЙ:\n" + strings.Join(sections, "\n")
}
