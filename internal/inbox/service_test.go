// ABOUTME: Tests for the inbox orchestrator
// ABOUTME: Runs a real SQLite store with a scripted generator; asserts persistence, fanout, mode gating and delivery

package inbox

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Valey88/Profit-AI/internal/assemble"
	"github.com/Valey88/Profit-AI/internal/pipeline"
	"github.com/Valey88/Profit-AI/internal/provider"
	"github.com/Valey88/Profit-AI/internal/realtime"
	"github.com/Valey88/Profit-AI/internal/store"
)

// scriptedGen returns canned generation results in call order. The pipeline
// makes two calls per reply: classification, then generation.
type scriptedGen struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGen) Generate(_ context.Context, _ provider.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	var resp string
	if i < len(g.responses) {
		resp = g.responses[i]
	}
	return resp, err
}

// recordingBus collects broadcast events in order.
type recordingBus struct {
	mu     sync.Mutex
	events []realtime.Event
	rooms  []string
}

func (b *recordingBus) Broadcast(conversationID string, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, conversationID)
	b.events = append(b.events, event)
}

func (b *recordingBus) all() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Event(nil), b.events...)
}

// recordingDeliverer captures outbound sends.
type recordingDeliverer struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (d *recordingDeliverer) Deliver(_ context.Context, externalID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sends = append(d.sends, externalID+": "+text)
	return d.err
}

func newTestService(t *testing.T, gen provider.Generator) (*Service, *recordingBus, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	asm := assemble.New(st, nil)
	pipe := pipeline.New(asm, gen, time.Second, nil)
	bus := &recordingBus{}
	return NewService(st, pipe, bus, nil), bus, st
}

func eventTypes(events []realtime.Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestHandleInboundGeneratesReply(t *testing.T) {
	gen := &scriptedGen{responses: []string{"pricing_query", "Бампер стоит 5000 рублей. Хотите забронировать?"}}
	svc, bus, _ := newTestService(t, gen)

	got, err := svc.HandleInbound(context.Background(), InboundEvent{
		Channel:    store.ChannelTelegram,
		ExternalID: "ext-42",
		Text:       "Сколько стоит бампер?",
		SenderName: "Ivan",
	})
	require.NoError(t, err)

	assert.Equal(t, store.ModeAI, got.Conversation.Mode)
	assert.Equal(t, store.RoleUser, got.UserMessage.Role)
	assert.Equal(t, "Сколько стоит бампер?", got.UserMessage.Content)
	require.NotNil(t, got.Reply)
	assert.Equal(t, store.RoleAssistant, got.Reply.Role)
	assert.Equal(t, pipeline.IntentPricing, got.Intent)
	assert.Equal(t, []pipeline.Action{pipeline.ActionShowPrices, pipeline.ActionOfferDiscount}, got.Actions)

	assert.Equal(t,
		[]string{realtime.EventNewMessage, realtime.EventTypingStart, realtime.EventNewMessage},
		eventTypes(bus.all()))
}

func TestHandleInboundHumanModeSuppressesReply(t *testing.T) {
	gen := &scriptedGen{}
	svc, bus, st := newTestService(t, gen)

	conv, err := st.GetOrCreateConversation(context.Background(), store.ChannelTelegram, "ext-1", "Ivan", "")
	require.NoError(t, err)
	_, err = st.SetMode(context.Background(), conv.ID, store.ModeHuman)
	require.NoError(t, err)

	got, err := svc.HandleInbound(context.Background(), InboundEvent{
		Channel:    store.ChannelTelegram,
		ExternalID: "ext-1",
		Text:       "есть кто живой?",
	})
	require.NoError(t, err)

	assert.Nil(t, got.Reply)
	assert.Equal(t, 0, gen.calls, "pipeline must not run while a human owns the conversation")
	assert.Equal(t, []string{realtime.EventNewMessage}, eventTypes(bus.all()))

	// The message is archived regardless.
	history, err := st.History(context.Background(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "есть кто живой?", history[0].Content)
}

func TestHandleInboundDoneStaysDone(t *testing.T) {
	gen := &scriptedGen{}
	svc, _, st := newTestService(t, gen)

	conv, err := st.GetOrCreateConversation(context.Background(), store.ChannelAvito, "ext-9", "", "Бампер БМВ")
	require.NoError(t, err)
	_, err = st.SetMode(context.Background(), conv.ID, store.ModeDone)
	require.NoError(t, err)

	got, err := svc.HandleInbound(context.Background(), InboundEvent{
		Channel:    store.ChannelAvito,
		ExternalID: "ext-9",
		Text:       "актуально?",
	})
	require.NoError(t, err)

	assert.Nil(t, got.Reply)
	reloaded, err := st.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ModeDone, reloaded.Mode, "inbound message must not reopen a closed conversation")
}

func TestHandleInboundCapabilityFailureDegradesToApology(t *testing.T) {
	gen := &scriptedGen{errs: []error{errors.New("upstream down"), errors.New("upstream down")}}
	svc, _, _ := newTestService(t, gen)

	got, err := svc.HandleInbound(context.Background(), InboundEvent{
		Channel:    store.ChannelWeb,
		ExternalID: "w-1",
		Text:       "привет",
	})
	require.NoError(t, err, "capability failure must not surface")

	require.NotNil(t, got.Reply)
	assert.Equal(t, pipeline.FallbackReply, got.Reply.Content)
	assert.Equal(t, pipeline.IntentGeneral, got.Intent)
}

func TestHandleInboundDeliversReplyToChannel(t *testing.T) {
	gen := &scriptedGen{responses: []string{"general_inquiry", "Здравствуйте!"}}
	svc, _, _ := newTestService(t, gen)

	d := &recordingDeliverer{}
	svc.RegisterDeliverer(store.ChannelTelegram, d)

	_, err := svc.HandleInbound(context.Background(), InboundEvent{
		Channel:    store.ChannelTelegram,
		ExternalID: "ext-5",
		Text:       "привет",
	})
	require.NoError(t, err)

	require.Len(t, d.sends, 1)
	assert.Equal(t, "ext-5: Здравствуйте!", d.sends[0])
}

func TestHandleInboundDeliveryFailureNotPropagated(t *testing.T) {
	gen := &scriptedGen{responses: []string{"general_inquiry", "Здравствуйте!"}}
	svc, _, st := newTestService(t, gen)

	svc.RegisterDeliverer(store.ChannelTelegram, &recordingDeliverer{err: errors.New("telegram 502")})

	got, err := svc.HandleInbound(context.Background(), InboundEvent{
		Channel:    store.ChannelTelegram,
		ExternalID: "ext-6",
		Text:       "привет",
	})
	require.NoError(t, err)
	require.NotNil(t, got.Reply)

	// Reply stayed persisted despite the failed relay.
	history, err := st.History(context.Background(), got.Conversation.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSendAsManagerForcesHumanMode(t *testing.T) {
	gen := &scriptedGen{}
	svc, bus, st := newTestService(t, gen)

	conv, err := st.GetOrCreateConversation(context.Background(), store.ChannelTelegram, "ext-2", "Ivan", "")
	require.NoError(t, err)
	require.Equal(t, store.ModeAI, conv.Mode)

	msg, err := svc.SendAsManager(context.Background(), conv.ID, "Добрый день, чем могу помочь?")
	require.NoError(t, err)
	assert.Equal(t, store.RoleManager, msg.Role)

	reloaded, err := st.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ModeHuman, reloaded.Mode)

	history, err := st.History(context.Background(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, store.RoleSystem, history[0].Role)
	assert.Equal(t, "Менеджер подключился к диалогу. AI приостановлен.", history[0].Content)
	assert.Equal(t, store.RoleManager, history[1].Role)

	// Announcement broadcast, then the manager message.
	events := bus.all()
	require.Len(t, events, 2)
	assert.Equal(t, realtime.EventNewMessage, events[0].Type)
	assert.Equal(t, string(store.RoleSystem), events[0].Message.Role)
	assert.Equal(t, string(store.RoleManager), events[1].Message.Role)
}

func TestSendAsManagerAlreadyHumanNoAnnouncement(t *testing.T) {
	gen := &scriptedGen{}
	svc, _, st := newTestService(t, gen)

	conv, err := st.GetOrCreateConversation(context.Background(), store.ChannelTelegram, "ext-3", "", "")
	require.NoError(t, err)
	_, err = st.SetMode(context.Background(), conv.ID, store.ModeHuman)
	require.NoError(t, err)

	_, err = svc.SendAsManager(context.Background(), conv.ID, "ещё вопрос?")
	require.NoError(t, err)

	history, err := st.History(context.Background(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1, "no repeated takeover announcement")
	assert.Equal(t, store.RoleManager, history[0].Role)
}

func TestSetModeTransitions(t *testing.T) {
	gen := &scriptedGen{}
	svc, bus, st := newTestService(t, gen)

	conv, err := st.GetOrCreateConversation(context.Background(), store.ChannelWeb, "w-2", "", "")
	require.NoError(t, err)

	updated, err := svc.SetMode(context.Background(), conv.ID, store.ModeDone)
	require.NoError(t, err)
	assert.Equal(t, store.ModeDone, updated.Mode)

	history, err := st.History(context.Background(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Диалог завершен.", history[0].Content)

	// Same mode again: no second announcement, no broadcast.
	before := len(bus.all())
	_, err = svc.SetMode(context.Background(), conv.ID, store.ModeDone)
	require.NoError(t, err)
	assert.Len(t, bus.all(), before)
}

func TestSetModeUnknownConversation(t *testing.T) {
	gen := &scriptedGen{}
	svc, _, _ := newTestService(t, gen)

	_, err := svc.SetMode(context.Background(), "nope", store.ModeHuman)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendAndRespondHonorsMode(t *testing.T) {
	gen := &scriptedGen{responses: []string{"booking_request", "Записал вас на завтра!"}}
	svc, _, st := newTestService(t, gen)

	conv, err := st.GetOrCreateConversation(context.Background(), store.ChannelWeb, "w-3", "", "")
	require.NoError(t, err)

	got, err := svc.SendAndRespond(context.Background(), conv.ID, "запишите меня", "")
	require.NoError(t, err)
	require.NotNil(t, got.Reply)
	assert.Equal(t, pipeline.IntentBooking, got.Intent)

	// Switch to HUMAN: the combined op persists but does not respond.
	_, err = svc.SetMode(context.Background(), conv.ID, store.ModeHuman)
	require.NoError(t, err)

	got, err = svc.SendAndRespond(context.Background(), conv.ID, "а когда?", "")
	require.NoError(t, err)
	assert.NotNil(t, got.UserMessage)
	assert.Nil(t, got.Reply)
}

func TestHandleWidgetMessageRoutesThroughInbound(t *testing.T) {
	gen := &scriptedGen{responses: []string{"general_inquiry", "Здравствуйте!"}}
	svc, bus, st := newTestService(t, gen)

	conv, err := st.GetOrCreateConversation(context.Background(), store.ChannelWeb, "w-4", "Гость", "")
	require.NoError(t, err)

	svc.HandleWidgetMessage(context.Background(), conv.ID, "привет")

	history, err := st.History(context.Background(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, store.RoleUser, history[0].Role)
	assert.Equal(t, store.RoleAssistant, history[1].Role)
	assert.NotEmpty(t, bus.all())
}

func TestConcurrentInboundDifferentConversations(t *testing.T) {
	gen := &scriptedGen{
		responses: []string{"general_inquiry", "ok", "general_inquiry", "ok"},
	}
	svc, _, _ := newTestService(t, gen)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, ext := range []string{"c-1", "c-2"} {
		wg.Add(1)
		go func(i int, ext string) {
			defer wg.Done()
			_, errs[i] = svc.HandleInbound(context.Background(), InboundEvent{
				Channel:    store.ChannelTelegram,
				ExternalID: ext,
				Text:       "привет",
			})
		}(i, ext)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	convs, err := svc.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Len(t, convs, 2)
}
