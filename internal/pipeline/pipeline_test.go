// ABOUTME: Tests for the response pipeline
// ABOUTME: Uses a scripted generator to cover classification fallback, reply fallback and prompt assembly

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Valey88/Profit-AI/internal/assemble"
	"github.com/Valey88/Profit-AI/internal/provider"
	"github.com/Valey88/Profit-AI/internal/store"
)

// scriptedGen returns canned responses in call order and records requests.
type scriptedGen struct {
	responses []string
	errs      []error
	requests  []provider.GenerateRequest
}

func (s *scriptedGen) Generate(_ context.Context, req provider.GenerateRequest) (string, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

// stubStore backs the assembler with fixed data.
type stubStore struct {
	history []*store.Message
	docs    []*store.KnowledgeDoc
}

func (s *stubStore) History(context.Context, string, int) ([]*store.Message, error) {
	return s.history, nil
}

func (s *stubStore) GetAgentProfile(context.Context) (*store.AgentProfile, error) {
	return nil, store.ErrNotFound
}

func (s *stubStore) ListKnowledgeDocs(context.Context) ([]*store.KnowledgeDoc, error) {
	return s.docs, nil
}

func newPipeline(gen provider.Generator) *Pipeline {
	asm := assemble.New(&stubStore{}, nil)
	return New(asm, gen, time.Second, nil)
}

func emptyContext() *assemble.Context {
	return &assemble.Context{
		AgentName: assemble.DefaultAgentName,
		AgentRole: assemble.DefaultAgentRole,
		AgentTone: assemble.DefaultAgentTone,
	}
}

func TestRunHappyPath(t *testing.T) {
	gen := &scriptedGen{responses: []string{"pricing_query", "Стрижка стоит 1500 рублей. Хотите забронировать?"}}
	p := newPipeline(gen)

	got, err := p.Run(context.Background(), "conv-1", "сколько стоит стрижка?", "")
	require.NoError(t, err)

	assert.Equal(t, IntentPricing, got.Intent)
	assert.Equal(t, "Стрижка стоит 1500 рублей. Хотите забронировать?", got.Text)
	assert.Equal(t, []Action{ActionShowPrices, ActionOfferDiscount}, got.Actions)
	assert.False(t, got.Degraded)
	assert.InDelta(t, 0.95, got.Confidence, 0.001)

	require.Len(t, gen.requests, 2)
	assert.Contains(t, gen.requests[0].User, `Сообщение: "сколько стоит стрижка?"`)
	assert.Equal(t, 20, gen.requests[0].MaxTokens)
	assert.Equal(t, 800, gen.requests[1].MaxTokens)
	assert.Equal(t, "сколько стоит стрижка?", gen.requests[1].User)
	assert.Contains(t, gen.requests[1].System, "Ты — Profit Flow AI, умный бизнес-ассистент.")
}

func TestClassifyIntentNormalizesLabel(t *testing.T) {
	gen := &scriptedGen{responses: []string{"  Booking_Request \n"}}
	p := newPipeline(gen)

	assert.Equal(t, IntentBooking, p.ClassifyIntent(context.Background(), "запишите меня"))
}

func TestClassifyIntentUnrecognizedFallsBack(t *testing.T) {
	gen := &scriptedGen{responses: []string{"это запрос на бронирование"}}
	p := newPipeline(gen)

	assert.Equal(t, IntentGeneral, p.ClassifyIntent(context.Background(), "привет"))
}

func TestClassifyIntentErrorFallsBack(t *testing.T) {
	gen := &scriptedGen{errs: []error{errors.New("upstream 500")}}
	p := newPipeline(gen)

	assert.Equal(t, IntentGeneral, p.ClassifyIntent(context.Background(), "привет"))
}

func TestGenerateReplyErrorReturnsFallback(t *testing.T) {
	gen := &scriptedGen{
		responses: []string{"general_inquiry", ""},
		errs:      []error{nil, errors.New("timeout")},
	}
	p := newPipeline(gen)

	got, err := p.Run(context.Background(), "conv-1", "привет", "")
	require.NoError(t, err)

	assert.Equal(t, FallbackReply, got.Text)
	assert.True(t, got.Degraded)
	// Intent still classified even when generation fails.
	assert.Equal(t, IntentGeneral, got.Intent)
}

func TestBuildSystemPromptFillsTemplate(t *testing.T) {
	asm := &assemble.Context{
		AgentName:       "Анна",
		AgentRole:       "Менеджер поддержки",
		AgentTone:       "вежливым",
		Instructions:    "Всегда предлагай консультацию.",
		BusinessContext: "Салон красоты в Москве",
		Knowledge:       "БАЗА ЗНАНИЙ:\n--- prices.txt ---\nСтрижка 1500",
		HistoryText:     "Клиент: привет\nAI: здравствуйте\n",
	}

	got := buildSystemPrompt(asm)

	assert.Contains(t, got, "Ты — Анна, Менеджер поддержки.")
	assert.Contains(t, got, "Всегда предлагай консультацию.")
	assert.Contains(t, got, "**Тон общения:** вежливым")
	assert.Contains(t, got, "Салон красоты в Москве\n\nБАЗА ЗНАНИЙ:")
	assert.Contains(t, got, "Клиент: привет")
	assert.NotContains(t, got, "{")
}

func TestBuildSystemPromptEmptySections(t *testing.T) {
	got := buildSystemPrompt(emptyContext())

	assert.Contains(t, got, "Информация о бизнесе не указана.")
	assert.Contains(t, got, "Это начало диалога.")
	assert.Contains(t, got, "Ты — Profit Flow AI, умный бизнес-ассистент.")
}

func TestSuggestedActionsTable(t *testing.T) {
	assert.Equal(t, []Action{ActionShowCalendar, ActionSuggestSlots}, SuggestedActions(IntentBooking))
	assert.Equal(t, []Action{ActionConnectOperator}, SuggestedActions(IntentHandoff))
	assert.Equal(t, []Action{ActionEscalateToHuman, ActionApologize}, SuggestedActions(IntentComplaint))
	assert.Equal(t, []Action{ActionProvideInfo}, SuggestedActions(Intent("nonsense")))
}
