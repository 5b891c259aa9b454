package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autosupport-ai/widget-backend/internal/events"
	"github.com/autosupport-ai/widget-backend/internal/metadata"
	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/store"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type testEngine struct {
	store    *store.SQLite
	sessions *SessionManager
	events   *capturePublisher
	business *model.Business
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	st, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	biz := &model.Business{Name: "Acme Coaching", DefaultLanguage: "en"}
	require.NoError(t, st.CreateBusiness(context.Background(), biz))

	pub := &capturePublisher{}
	log := &logger.Logger{Logger: zap.NewNop()}
	return &testEngine{
		store:    st,
		sessions: NewSessionManager(st, pub, time.Minute, log),
		events:   pub,
		business: biz,
	}
}

func signalsWithIP(ip string) ClientSignals {
	return ClientSignals{
		VisitorIP: ip,
		UserAgent: "Mozilla/5.0",
		Referer:   "https://acme.test/",
		SessionID: "sess-1",
		PageURL:   "https://acme.test/pricing",
	}
}

func (e *testEngine) turn(t *testing.T, leadID *int64, question, answer string, topics []string) *model.Lead {
	t.Helper()
	lead, err := e.sessions.RecordTurn(context.Background(), TurnParams{
		LeadID:     leadID,
		BusinessID: e.business.ID,
		UserText:   question,
		AnswerText: answer,
		Topics:     topics,
		Signals:    signalsWithIP("203.0.113.7"),
	})
	require.NoError(t, err)
	return lead
}

func TestStartSessionUnknownBusiness(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.sessions.StartSession(context.Background(), e.business.ID+1, ClientSignals{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStartSessionSeedsMetadata(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{
		VisitorIP: "203.0.113.7",
		UserAgent: "Mozilla/5.0",
		Referer:   "https://acme.test/",
		SessionID: "sess-1",
		PageURL:   "https://acme.test/pricing",
		Country:   "DE",
		Language:  "de",
	})
	require.NoError(t, err)

	lead, err := e.store.GetLead(ctx, leadID)
	require.NoError(t, err)

	assert.Equal(t, model.SessionOpen, lead.State)
	assert.Equal(t, "DE", lead.Country)
	assert.Equal(t, "de", lead.Language)
	assert.Equal(t, "https://acme.test/pricing", lead.SourcePage)
	assert.Equal(t, "203.0.113.7", lead.Meta.GetString(metadata.KeyVisitorIP))
	assert.Equal(t, "Mozilla/5.0", lead.Meta.GetString(metadata.KeyUserAgent))
	assert.Equal(t, "sess-1", lead.Meta.GetString(metadata.KeySessionID))
	assert.Zero(t, lead.MessagesCount())
	assert.Zero(t, lead.TimeOnSiteSeconds())
	assert.True(t, lead.Meta.Has(metadata.KeyStartedAt))
	assert.True(t, lead.Meta.Has(metadata.KeyLastSeenAt))
}

func TestRecordTurnPricingScenario(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, signalsWithIP("203.0.113.7"))
	require.NoError(t, err)

	lead := e.turn(t, &leadID, "What is the price?", "It's $10/mo", []string{"pricing"})

	assert.Equal(t, "pricing", lead.Topic)
	assert.Equal(t, "What is the price?", lead.LastQuestion)
	assert.Equal(t, "It's $10/mo", lead.LastAnswer)
	assert.Equal(t, int64(1), lead.MessagesCount())

	msgs, err := e.store.ListMessages(ctx, leadID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is the price?", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
}

func TestMessagesCountMatchesTurns(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, signalsWithIP("203.0.113.7"))
	require.NoError(t, err)

	const turns = 3
	var lead *model.Lead
	for i := 0; i < turns; i++ {
		lead = e.turn(t, &leadID, "hello?", "hi!", nil)
	}

	// one increment per turn: the counter counts Q/A pairs, the log
	// holds both halves of each pair
	assert.Equal(t, int64(turns), lead.MessagesCount())

	n, err := e.store.CountMessages(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, 2*turns, n)
}

func TestVisitorIPStickyAcrossCalls(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, signalsWithIP("203.0.113.7"))
	require.NoError(t, err)

	_, err = e.sessions.RecordTurn(ctx, TurnParams{
		LeadID:     &leadID,
		BusinessID: e.business.ID,
		UserText:   "hi",
		AnswerText: "hello",
		Signals:    signalsWithIP("198.51.100.9"),
	})
	require.NoError(t, err)

	require.NoError(t, e.sessions.EndSession(ctx, leadID, 10, ""))

	lead, err := e.store.GetLead(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", lead.Meta.GetString(metadata.KeyVisitorIP))
}

func TestRecordTurnUnknownLead(t *testing.T) {
	e := newTestEngine(t)

	missing := int64(9999)
	_, err := e.sessions.RecordTurn(context.Background(), TurnParams{
		LeadID:     &missing,
		BusinessID: e.business.ID,
		UserText:   "hi",
		AnswerText: "hello",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordTurnBusinessMismatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	other := &model.Business{Name: "Other Co"}
	require.NoError(t, e.store.CreateBusiness(ctx, other))

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)

	_, err = e.sessions.RecordTurn(ctx, TurnParams{
		LeadID:     &leadID,
		BusinessID: other.ID,
		UserText:   "hi",
		AnswerText: "hello",
	})
	assert.ErrorIs(t, err, ErrBusinessMismatch)

	// the guard rolled the turn back entirely
	n, err := e.store.CountMessages(ctx, leadID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordTurnWithoutLeadCreatesLead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	lead, err := e.sessions.RecordTurn(ctx, TurnParams{
		BusinessID: e.business.ID,
		UserText:   "What is the price?",
		AnswerText: "It's $10/mo",
		Topics:     []string{"pricing"},
		Signals: ClientSignals{
			VisitorIP: "203.0.113.7",
			PageURL:   "https://acme.test/pricing",
			Country:   "DE",
			UserName:  "Ada",
			UserEmail: "ada@example.com",
		},
	})
	require.NoError(t, err)
	require.NotZero(t, lead.ID)

	assert.Equal(t, "Ada", lead.Name)
	assert.Equal(t, "ada@example.com", lead.Email)
	assert.Equal(t, "DE", lead.Country)
	assert.Equal(t, "pricing", lead.Topic)
	assert.Equal(t, int64(1), lead.MessagesCount())

	msgs, err := e.store.ListMessages(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestRecordTurnWithoutLeadUnknownBusiness(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.sessions.RecordTurn(context.Background(), TurnParams{
		BusinessID: e.business.ID + 1,
		UserText:   "hi",
		AnswerText: "hello",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordTurnReopensClosedLead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)
	require.NoError(t, e.sessions.EndSession(ctx, leadID, 30, ""))

	lead, err := e.store.GetLead(ctx, leadID)
	require.NoError(t, err)
	require.Equal(t, model.SessionClosed, lead.State)

	lead = e.turn(t, &leadID, "one more thing", "sure", nil)
	assert.Equal(t, model.SessionOpen, lead.State)
}

func TestEndSessionAccumulatesDuration(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)

	require.NoError(t, e.sessions.EndSession(ctx, leadID, 30, ""))
	require.NoError(t, e.sessions.EndSession(ctx, leadID, 15, ""))

	lead, err := e.store.GetLead(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, int64(45), lead.TimeOnSiteSeconds())
	assert.Equal(t, model.SessionClosed, lead.State)
}

func TestEndSessionNegativeDuration(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)

	err = e.sessions.EndSession(ctx, leadID, -5, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEndSessionUnknownLead(t *testing.T) {
	e := newTestEngine(t)

	err := e.sessions.EndSession(context.Background(), 9999, 10, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordTurnNotIdempotentWithoutKey(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)

	// identical retries without a key grow the log: this is the
	// documented behavior, not a bug
	e.turn(t, &leadID, "hi", "hello", nil)
	lead := e.turn(t, &leadID, "hi", "hello", nil)

	assert.Equal(t, int64(2), lead.MessagesCount())
	n, err := e.store.CountMessages(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRecordTurnIdempotencyKeyDedupes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)

	params := TurnParams{
		LeadID:         &leadID,
		BusinessID:     e.business.ID,
		UserText:       "hi",
		AnswerText:     "hello",
		IdempotencyKey: "turn-abc",
	}
	_, err = e.sessions.RecordTurn(ctx, params)
	require.NoError(t, err)

	lead, err := e.sessions.RecordTurn(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, int64(1), lead.MessagesCount())
	n, err := e.store.CountMessages(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEndSessionIdempotencyKeyDedupes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)

	require.NoError(t, e.sessions.EndSession(ctx, leadID, 30, "end-abc"))
	require.NoError(t, e.sessions.EndSession(ctx, leadID, 30, "end-abc"))

	lead, err := e.store.GetLead(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), lead.TimeOnSiteSeconds())
}

func TestLanguageOnlyRefinedByDetection(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{Language: "en"})
	require.NoError(t, err)

	lead, err := e.sessions.RecordTurn(ctx, TurnParams{
		LeadID:     &leadID,
		BusinessID: e.business.ID,
		UserText:   "hola",
		AnswerText: "¡hola!",
	})
	require.NoError(t, err)
	assert.Equal(t, "en", lead.Language, "empty detection must not clear language")

	lead, err = e.sessions.RecordTurn(ctx, TurnParams{
		LeadID:           &leadID,
		BusinessID:       e.business.ID,
		UserText:         "hola",
		AnswerText:       "¡hola!",
		DetectedLanguage: "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "es", lead.Language)
}

func TestLifecycleEventsPublished(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leadID, err := e.sessions.StartSession(ctx, e.business.ID, ClientSignals{})
	require.NoError(t, err)
	e.turn(t, &leadID, "hi", "hello", nil)
	require.NoError(t, e.sessions.EndSession(ctx, leadID, 10, ""))

	assert.Equal(t, []events.Type{
		events.TypeLeadCreated,
		events.TypeTurnRecorded,
		events.TypeSessionEnded,
	}, e.events.types())
}
