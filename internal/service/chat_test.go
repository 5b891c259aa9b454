package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autosupport-ai/widget-backend/internal/answer"
	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/store"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
)

// stubGenerator returns a fixed reply or error.
type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (g *stubGenerator) Generate(context.Context, answer.Grounding, string) (string, error) {
	g.calls++
	return g.reply, g.err
}

func newChatService(t *testing.T, e *testEngine, primary answer.Generator) *ChatService {
	t.Helper()
	log := &logger.Logger{Logger: zap.NewNop()}
	return NewChatService(e.store, e.sessions, primary, answer.NewFAQGenerator(), log)
}

func TestChatUnknownBusiness(t *testing.T) {
	e := newTestEngine(t)
	svc := newChatService(t, e, &stubGenerator{reply: "hi"})

	_, err := svc.Chat(context.Background(), &model.ChatRequest{
		BusinessID: e.business.ID + 1,
		Message:    "hello",
	}, ClientSignals{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChatCreatesLeadAndClassifies(t *testing.T) {
	e := newTestEngine(t)
	svc := newChatService(t, e, &stubGenerator{reply: "It's $10/mo"})

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{
		BusinessID: e.business.ID,
		Message:    "What is the price?",
	}, signalsWithIP("203.0.113.7"))
	require.NoError(t, err)

	assert.Equal(t, "It's $10/mo", resp.Answer)
	assert.NotZero(t, resp.LeadID)
	assert.Equal(t, []string{"pricing"}, resp.Topics)

	lead, err := e.store.GetLead(context.Background(), resp.LeadID)
	require.NoError(t, err)
	assert.Equal(t, "pricing", lead.Topic)
	assert.Equal(t, "What is the price?", lead.LastQuestion)
}

func TestChatRecordsTurnOnExistingLead(t *testing.T) {
	e := newTestEngine(t)
	svc := newChatService(t, e, &stubGenerator{reply: "sure"})
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, signalsWithIP("203.0.113.7"))
	require.NoError(t, err)

	resp, err := svc.Chat(ctx, &model.ChatRequest{
		BusinessID: e.business.ID,
		Message:    "how do I install it?",
		LeadID:     &leadID,
	}, signalsWithIP("203.0.113.7"))
	require.NoError(t, err)

	assert.Equal(t, leadID, resp.LeadID)
	assert.Equal(t, []string{"setup"}, resp.Topics)
}

func TestChatBusinessMismatchSurfaced(t *testing.T) {
	e := newTestEngine(t)
	svc := newChatService(t, e, &stubGenerator{reply: "hi"})
	ctx := context.Background()

	other := &model.Business{Name: "Other Co"}
	require.NoError(t, e.store.CreateBusiness(ctx, other))

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)

	_, err = svc.Chat(ctx, &model.ChatRequest{
		BusinessID: other.ID,
		Message:    "hello",
		LeadID:     &leadID,
	}, ClientSignals{})
	assert.ErrorIs(t, err, ErrBusinessMismatch)
}

func TestChatFallsBackWhenGeneratorFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.store.CreateFAQ(ctx, &model.FAQ{
		BusinessID: e.business.ID,
		Question:   "How long does it take to install the widget?",
		Answer:     "Usually under 5 minutes.",
		Active:     true,
	}))

	broken := &stubGenerator{err: errors.New("upstream unavailable")}
	svc := newChatService(t, e, broken)

	resp, err := svc.Chat(ctx, &model.ChatRequest{
		BusinessID: e.business.ID,
		Message:    "how do I install this?",
	}, ClientSignals{})
	require.NoError(t, err)

	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, "Usually under 5 minutes.", resp.Answer)
}

func TestChatWithoutPrimaryGeneratorUsesFallback(t *testing.T) {
	e := newTestEngine(t)
	svc := newChatService(t, e, nil)

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{
		BusinessID: e.business.ID,
		Message:    "anything at all",
	}, ClientSignals{})
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "name and email")
}

func TestLeadServiceListAndDetail(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	leads := NewLeadService(e.store)

	var lastID int64
	for i := 0; i < 3; i++ {
		id, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
		require.NoError(t, err)
		lastID = id
		// spread created_at so newest-first ordering is deterministic
		time.Sleep(2 * time.Millisecond)
	}
	e.turn(t, &lastID, "What is the price?", "It's $10/mo", []string{"pricing"})

	resp, err := leads.List(ctx, e.business.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Leads, 2)
	assert.True(t, resp.HasMore)
	assert.Equal(t, lastID, resp.Leads[0].ID, "newest lead first")

	detail, err := leads.Get(ctx, lastID)
	require.NoError(t, err)
	assert.Equal(t, "pricing", detail.Lead.Topic)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, model.RoleUser, detail.Messages[0].Role)

	_, err = leads.Get(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
