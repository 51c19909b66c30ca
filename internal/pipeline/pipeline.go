// ABOUTME: Automated response pipeline: intent classification, reply generation, suggested actions
// ABOUTME: Every stage degrades to a safe default; Run never returns an error to the caller

package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Valey88/Profit-AI/internal/assemble"
	"github.com/Valey88/Profit-AI/internal/provider"
)

// Intent is the closed set of recognized conversation intents.
type Intent string

const (
	IntentBooking   Intent = "booking_request"
	IntentPricing   Intent = "pricing_query"
	IntentGeneral   Intent = "general_inquiry"
	IntentComplaint Intent = "complaint"
	IntentHandoff   Intent = "handoff_request"
)

// Valid reports whether the intent is one of the recognized labels.
func (i Intent) Valid() bool {
	switch i {
	case IntentBooking, IntentPricing, IntentGeneral, IntentComplaint, IntentHandoff:
		return true
	}
	return false
}

// Action is a UI hint attached to a generated reply.
type Action string

const (
	ActionShowCalendar    Action = "show_calendar"
	ActionSuggestSlots    Action = "suggest_slots"
	ActionShowPrices      Action = "show_prices"
	ActionOfferDiscount   Action = "offer_discount"
	ActionProvideInfo     Action = "provide_info"
	ActionSuggestFAQ      Action = "suggest_faq"
	ActionEscalateToHuman Action = "escalate_to_human"
	ActionApologize       Action = "apologize"
	ActionConnectOperator Action = "connect_operator"
)

var intentActions = map[Intent][]Action{
	IntentBooking:   {ActionShowCalendar, ActionSuggestSlots},
	IntentPricing:   {ActionShowPrices, ActionOfferDiscount},
	IntentGeneral:   {ActionProvideInfo, ActionSuggestFAQ},
	IntentComplaint: {ActionEscalateToHuman, ActionApologize},
	IntentHandoff:   {ActionConnectOperator},
}

// SuggestedActions maps an intent to its action hints. Unrecognized intents
// get the generic provide_info hint.
func SuggestedActions(intent Intent) []Action {
	if actions, ok := intentActions[intent]; ok {
		return actions
	}
	return []Action{ActionProvideInfo}
}

const (
	classifyMaxTokens   = 20
	classifyTemperature = 0.1
	replyMaxTokens      = 800
	replyTemperature    = 0.7

	defaultCallTimeout = 30 * time.Second
)

// Result is the outcome of a pipeline run. Degraded is true when any stage
// fell back to a default: an assembly lookup failed or the reply is the
// fallback apology rather than generated text.
type Result struct {
	Text       string
	Intent     Intent
	Confidence float64
	Actions    []Action
	Degraded   bool
}

// Pipeline turns an inbound message into a reply: context assembly, intent
// classification, generation.
type Pipeline struct {
	asm     *assemble.Assembler
	gen     provider.Generator
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a Pipeline. A zero timeout selects the default per-call timeout.
func New(asm *assemble.Assembler, gen provider.Generator, timeout time.Duration, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Pipeline{
		asm:     asm,
		gen:     gen,
		logger:  logger.With("component", "pipeline"),
		timeout: timeout,
	}
}

// Run assembles the conversation context, classifies the inbound text and
// generates a reply. Capability failures never surface as errors:
// classification falls back to general_inquiry, generation to the fixed
// apology text, with Result.Degraded set.
func (p *Pipeline) Run(ctx context.Context, conversationID, userText, businessContext string) (*Result, error) {
	asm := p.asm.Build(ctx, conversationID, userText, businessContext)

	intent := p.ClassifyIntent(ctx, userText)
	text, degraded := p.GenerateReply(ctx, asm, userText)
	return &Result{
		Text:       text,
		Intent:     intent,
		Confidence: 0.95,
		Actions:    SuggestedActions(intent),
		Degraded:   degraded || len(asm.Degraded) > 0,
	}, nil
}

// ClassifyIntent asks the model for one of the recognized labels. Anything
// else, including transport errors, maps to general_inquiry.
func (p *Pipeline) ClassifyIntent(ctx context.Context, text string) Intent {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := strings.ReplaceAll(intentPromptTemplate, "{message}", text)
	raw, err := p.gen.Generate(ctx, provider.GenerateRequest{
		User:        prompt,
		MaxTokens:   classifyMaxTokens,
		Temperature: classifyTemperature,
	})
	if err != nil {
		p.logger.Warn("intent classification failed, defaulting to general_inquiry", "error", err)
		return IntentGeneral
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if !intent.Valid() {
		p.logger.Debug("unrecognized intent label", "label", raw)
		return IntentGeneral
	}
	return intent
}

// GenerateReply produces the assistant reply. The second return value is true
// when generation failed and the fixed apology was substituted.
func (p *Pipeline) GenerateReply(ctx context.Context, asm *assemble.Context, inboundText string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.gen.Generate(ctx, provider.GenerateRequest{
		System:      buildSystemPrompt(asm),
		User:        inboundText,
		MaxTokens:   replyMaxTokens,
		Temperature: replyTemperature,
	})
	if err != nil {
		p.logger.Error("reply generation failed, returning fallback", "error", err)
		return FallbackReply, true
	}
	return strings.TrimSpace(text), false
}

// buildSystemPrompt fills the persona template from the assembled context.
func buildSystemPrompt(asm *assemble.Context) string {
	business := asm.BusinessContext
	if asm.Knowledge != "" {
		if business != "" {
			business += "\n\n"
		}
		business += asm.Knowledge
	}
	if business == "" {
		business = emptyBusinessContext
	}

	history := asm.HistoryText
	if history == "" {
		history = emptyChatHistory
	}

	r := strings.NewReplacer(
		"{name}", asm.AgentName,
		"{role}", asm.AgentRole,
		"{tone}", asm.AgentTone,
		"{system_instructions}", asm.Instructions,
		"{business_context}", business,
		"{chat_history}", history,
	)
	return r.Replace(systemPromptTemplate)
}
