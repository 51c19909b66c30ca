// ABOUTME: Tests for context assembly
// ABOUTME: Covers defaults, degraded lookups, history rendering and knowledge formatting

package assemble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Valey88/Profit-AI/internal/store"
)

type fakeStore struct {
	history    []*store.Message
	historyErr error
	profile    *store.AgentProfile
	profileErr error
	docs       []*store.KnowledgeDoc
	docsErr    error
}

func (f *fakeStore) History(_ context.Context, _ string, limit int) ([]*store.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if len(f.history) > limit {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

func (f *fakeStore) GetAgentProfile(_ context.Context) (*store.AgentProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile == nil {
		return nil, store.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeStore) ListKnowledgeDocs(_ context.Context) ([]*store.KnowledgeDoc, error) {
	if f.docsErr != nil {
		return nil, f.docsErr
	}
	return f.docs, nil
}

func TestBuildDefaultsWhenEmpty(t *testing.T) {
	a := New(&fakeStore{}, nil)

	got := a.Build(context.Background(), "conv-1", "привет", "")

	assert.Equal(t, DefaultAgentName, got.AgentName)
	assert.Equal(t, DefaultAgentRole, got.AgentRole)
	assert.Equal(t, DefaultAgentTone, got.AgentTone)
	assert.Empty(t, got.HistoryText)
	assert.Empty(t, got.Knowledge)
	assert.Empty(t, got.Degraded, "missing profile is not a degradation")
}

func TestBuildUsesProfile(t *testing.T) {
	a := New(&fakeStore{
		profile: &store.AgentProfile{
			Name:         "Анна",
			Role:         "Менеджер поддержки",
			Tone:         "вежливым",
			SystemPrompt: "Всегда предлагай запись на консультацию.",
		},
	}, nil)

	got := a.Build(context.Background(), "conv-1", "привет", "")

	assert.Equal(t, "Анна", got.AgentName)
	assert.Equal(t, "Менеджер поддержки", got.AgentRole)
	assert.Equal(t, "вежливым", got.AgentTone)
	assert.Equal(t, "Всегда предлагай запись на консультацию.", got.Instructions)
}

func TestBuildPartialProfileFallsBack(t *testing.T) {
	a := New(&fakeStore{
		profile: &store.AgentProfile{Name: "Анна"},
	}, nil)

	got := a.Build(context.Background(), "conv-1", "привет", "")

	assert.Equal(t, "Анна", got.AgentName)
	assert.Equal(t, DefaultAgentRole, got.AgentRole)
	assert.Equal(t, DefaultAgentTone, got.AgentTone)
}

func TestBuildRendersHistoryTail(t *testing.T) {
	var history []*store.Message
	for i := 0; i < 15; i++ {
		history = append(history, &store.Message{
			Role:    store.RoleUser,
			Content: fmt.Sprintf("m%d", i),
		})
	}
	a := New(&fakeStore{history: history}, nil)

	got := a.Build(context.Background(), "conv-1", "привет", "")

	require.Len(t, got.History, 15)
	lines := strings.Split(strings.TrimRight(got.HistoryText, "\n"), "\n")
	require.Len(t, lines, historyRenderLimit)
	assert.Equal(t, "Клиент: m5", lines[0])
	assert.Equal(t, "Клиент: m14", lines[len(lines)-1])
}

func TestBuildHistoryRoleLabels(t *testing.T) {
	a := New(&fakeStore{history: []*store.Message{
		{Role: store.RoleUser, Content: "сколько стоит?"},
		{Role: store.RoleAssistant, Content: "от 5000 рублей"},
		{Role: store.RoleManager, Content: "могу помочь"},
		{Role: store.RoleSystem, Content: "Менеджер подключился к диалогу. AI приостановлен."},
	}}, nil)

	got := a.Build(context.Background(), "conv-1", "", "")

	assert.Contains(t, got.HistoryText, "Клиент: сколько стоит?")
	assert.Contains(t, got.HistoryText, "AI: от 5000 рублей")
	assert.Contains(t, got.HistoryText, "Менеджер: могу помочь")
	assert.Contains(t, got.HistoryText, "Система: Менеджер подключился")
}

func TestBuildKnowledgeFormatting(t *testing.T) {
	a := New(&fakeStore{docs: []*store.KnowledgeDoc{
		{Filename: "prices.txt", Content: "Стрижка 1500"},
		{Filename: "empty.txt", Content: ""},
		{Filename: "hours.txt", Content: "Пн-Пт 9-18"},
	}}, nil)

	got := a.Build(context.Background(), "conv-1", "", "")

	assert.True(t, strings.HasPrefix(got.Knowledge, "БАЗА ЗНАНИЙ:\n"))
	assert.Contains(t, got.Knowledge, "--- prices.txt ---\nСтрижка 1500")
	assert.Contains(t, got.Knowledge, "--- hours.txt ---\nПн-Пт 9-18")
	assert.NotContains(t, got.Knowledge, "empty.txt")
}

func TestBuildDegradesOnLookupFailures(t *testing.T) {
	a := New(&fakeStore{
		historyErr: errors.New("db locked"),
		profileErr: errors.New("db locked"),
		docsErr:    errors.New("db locked"),
	}, nil)

	got := a.Build(context.Background(), "conv-1", "привет", "бизнес: салон красоты")

	assert.Equal(t, DefaultAgentName, got.AgentName)
	assert.Equal(t, "бизнес: салон красоты", got.BusinessContext)
	assert.ElementsMatch(t,
		[]Degradation{DegradedHistory, DegradedProfile, DegradedKnowledge},
		got.Degraded)
}
