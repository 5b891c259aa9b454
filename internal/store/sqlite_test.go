package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autosupport-ai/widget-backend/internal/metadata"
	"github.com/autosupport-ai/widget-backend/internal/model"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedBusiness(t *testing.T, s *SQLite) *model.Business {
	t.Helper()
	b := &model.Business{Name: "Acme Coaching", Website: "https://acme.test", DefaultLanguage: "en"}
	require.NoError(t, s.CreateBusiness(context.Background(), b))
	return b
}

func TestGetBusinessNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetBusiness(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	biz := seedBusiness(t, s)

	lead := &model.Lead{
		BusinessID: biz.ID,
		Country:    "DE",
		Meta: metadata.Bag{
			metadata.KeyVisitorIP:     metadata.String("203.0.113.7"),
			metadata.KeyMessagesCount: metadata.Int(0),
		},
	}
	require.NoError(t, s.CreateLead(ctx, lead))
	require.NotZero(t, lead.ID)

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, biz.ID, got.BusinessID)
	assert.Equal(t, "DE", got.Country)
	assert.Equal(t, model.SessionOpen, got.State)
	assert.Equal(t, "203.0.113.7", got.Meta.GetString(metadata.KeyVisitorIP))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestAppendTurnAtomicPair(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	biz := seedBusiness(t, s)

	lead := &model.Lead{BusinessID: biz.ID}
	require.NoError(t, s.CreateLead(ctx, lead))

	userMsg := &model.Message{BusinessID: biz.ID, Role: model.RoleUser, Content: "What is the price?"}
	botMsg := &model.Message{BusinessID: biz.ID, Role: model.RoleAssistant, Content: "It's $10/mo"}

	updated, err := s.AppendTurn(ctx, lead.ID, func(l *model.Lead) error {
		l.LastQuestion = userMsg.Content
		l.LastAnswer = botMsg.Content
		l.Topic = "pricing"
		l.Meta = metadata.Merge(l.Meta, metadata.Bag{metadata.KeyMessagesCount: metadata.Int(1)}, time.Now())
		return nil
	}, userMsg, botMsg)
	require.NoError(t, err)

	assert.Equal(t, "pricing", updated.Topic)
	assert.Equal(t, int64(1), updated.MessagesCount())

	msgs, err := s.ListMessages(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)

	n, err := s.CountMessages(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAppendTurnRollsBackOnApplyError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	biz := seedBusiness(t, s)

	lead := &model.Lead{BusinessID: biz.ID}
	require.NoError(t, s.CreateLead(ctx, lead))

	sentinel := assert.AnError
	_, err := s.AppendTurn(ctx, lead.ID, func(l *model.Lead) error {
		l.LastQuestion = "must not persist"
		return sentinel
	}, &model.Message{BusinessID: biz.ID, Role: model.RoleUser, Content: "x"},
		&model.Message{BusinessID: biz.ID, Role: model.RoleAssistant, Content: "y"})
	assert.ErrorIs(t, err, sentinel)

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LastQuestion)

	n, err := s.CountMessages(ctx, lead.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "no partial message pair after rollback")
}

func TestCreateLeadWithTurn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	biz := seedBusiness(t, s)

	lead := &model.Lead{BusinessID: biz.ID, LastQuestion: "hi", LastAnswer: "hello"}
	err := s.CreateLeadWithTurn(ctx, lead,
		&model.Message{BusinessID: biz.ID, Role: model.RoleUser, Content: "hi"},
		&model.Message{BusinessID: biz.ID, Role: model.RoleAssistant, Content: "hello"})
	require.NoError(t, err)
	require.NotZero(t, lead.ID)

	msgs, err := s.ListMessages(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestListLeadsNewestFirstPaginated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	biz := seedBusiness(t, s)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		lead := &model.Lead{BusinessID: biz.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.CreateLead(ctx, lead))
	}

	page, err := s.ListLeads(ctx, biz.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, err := s.ListLeads(ctx, biz.ID, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}

func TestDeleteBusinessCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	biz := seedBusiness(t, s)

	lead := &model.Lead{BusinessID: biz.ID}
	require.NoError(t, s.CreateLeadWithTurn(ctx, lead,
		&model.Message{BusinessID: biz.ID, Role: model.RoleUser, Content: "hi"},
		&model.Message{BusinessID: biz.ID, Role: model.RoleAssistant, Content: "hello"}))

	require.NoError(t, s.DeleteBusiness(ctx, biz.ID))

	_, err := s.GetLead(ctx, lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountMessages(ctx, lead.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeedDemoIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := SeedDemo(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := SeedDemo(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	faqs, err := s.ListActiveFAQs(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, faqs, 3)
}
