// Package service provides the session/lead aggregation engine and the
// chat orchestration on top of it.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/autosupport-ai/widget-backend/internal/events"
	"github.com/autosupport-ai/widget-backend/internal/metadata"
	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/store"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
	"github.com/autosupport-ai/widget-backend/pkg/metrics"
)

// SessionManager orchestrates the lead lifecycle: session start, chat
// turns, session end. Each operation is one atomic store transaction.
//
// Retry semantics: StartSession retries are harmless (each creates a new
// lead). RecordTurn and EndSession are NOT idempotent by themselves — a
// retried turn appends a duplicate message pair and double-increments
// messages_count, and a retried end re-adds the duration. Callers that
// need safe retries must pass an idempotency key; keyed operations are
// deduplicated within a short window.
type SessionManager struct {
	store  store.Store
	events events.Publisher
	logger *logger.Logger

	turnKeys *idempotencyCache
	endKeys  *idempotencyCache
}

// NewSessionManager creates a session manager. idemTTL bounds the window
// in which idempotency keys are remembered.
func NewSessionManager(st store.Store, pub events.Publisher, idemTTL time.Duration, log *logger.Logger) *SessionManager {
	if pub == nil {
		pub = events.Nop{}
	}
	return &SessionManager{
		store:    st,
		events:   pub,
		logger:   log,
		turnKeys: newIdempotencyCache(idemTTL),
		endKeys:  newIdempotencyCache(idemTTL),
	}
}

// StartSession creates an open lead for the business, seeded with the
// request's client signals and zeroed counters. Returns the new lead ID,
// or store.ErrNotFound when the business does not resolve.
func (m *SessionManager) StartSession(ctx context.Context, businessID int64, sig ClientSignals) (int64, error) {
	if _, err := m.store.GetBusiness(ctx, businessID); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	meta := metadata.Merge(metadata.Bag{}, sig.bag(), now)
	meta[metadata.KeyStartedAt] = metadata.Time(now)
	meta[metadata.KeyMessagesCount] = metadata.Int(0)
	meta[metadata.KeyTimeOnSite] = metadata.Int(0)

	lead := &model.Lead{
		BusinessID: businessID,
		Name:       sig.UserName,
		Email:      sig.UserEmail,
		Country:    sig.Country,
		Language:   sig.Language,
		SourcePage: sig.PageURL,
		State:      model.SessionOpen,
		Meta:       meta,
		CreatedAt:  now,
	}
	if err := m.store.CreateLead(ctx, lead); err != nil {
		return 0, fmt.Errorf("failed to create lead: %w", err)
	}

	metrics.SessionsStarted.WithLabelValues(metrics.BusinessLabel(businessID)).Inc()
	metrics.LeadsCreated.WithLabelValues(metrics.BusinessLabel(businessID)).Inc()
	m.publish(ctx, events.Event{Type: events.TypeLeadCreated, LeadID: lead.ID, BusinessID: businessID})

	m.logger.Info("session started",
		zap.Int64("lead_id", lead.ID),
		zap.Int64("business_id", businessID),
	)
	return lead.ID, nil
}

// TurnParams carries everything one chat turn contributes to a lead.
type TurnParams struct {
	// LeadID is nil on the legacy single-call chat path, where the
	// first turn creates the lead.
	LeadID     *int64
	BusinessID int64

	UserText   string
	AnswerText string

	// DetectedLanguage refines the lead language only when non-empty.
	DetectedLanguage string
	// Topics sets the lead topic to its first entry when non-empty.
	Topics []string

	Signals ClientSignals

	// IdempotencyKey, when set, dedupes retries of the same turn within
	// the manager's window.
	IdempotencyKey string
}

// RecordTurn appends one user/assistant message pair and folds the turn
// into the lead summary: last question/answer, topic, language, sticky
// visitor metadata, and the turn counter. A turn on a closed lead
// reopens it. Returns store.ErrNotFound for an unknown lead and
// ErrBusinessMismatch when the lead is owned by another business.
func (m *SessionManager) RecordTurn(ctx context.Context, p TurnParams) (*model.Lead, error) {
	if priorID, ok := m.turnKeys.lookup(p.IdempotencyKey); ok {
		m.logger.Info("duplicate turn suppressed",
			zap.Int64("lead_id", priorID),
			zap.String("idempotency_key", p.IdempotencyKey),
		)
		return m.store.GetLead(ctx, priorID)
	}

	now := time.Now().UTC()
	userMsg := &model.Message{
		BusinessID: p.BusinessID,
		Role:       model.RoleUser,
		Content:    p.UserText,
		Language:   p.DetectedLanguage,
		CreatedAt:  now,
	}
	assistantMsg := &model.Message{
		BusinessID: p.BusinessID,
		Role:       model.RoleAssistant,
		Content:    p.AnswerText,
		Language:   p.DetectedLanguage,
		CreatedAt:  now,
	}

	var lead *model.Lead
	var err error
	if p.LeadID != nil {
		lead, err = m.store.AppendTurn(ctx, *p.LeadID, func(l *model.Lead) error {
			if l.BusinessID != p.BusinessID {
				return ErrBusinessMismatch
			}
			m.applyTurn(l, p, now)
			return nil
		}, userMsg, assistantMsg)
	} else {
		lead, err = m.createLeadFromTurn(ctx, p, userMsg, assistantMsg, now)
	}
	if err != nil {
		return nil, err
	}

	m.turnKeys.remember(p.IdempotencyKey, lead.ID)
	metrics.TurnsRecorded.WithLabelValues(metrics.BusinessLabel(p.BusinessID), lead.Topic).Inc()
	m.publish(ctx, events.Event{
		Type:       events.TypeTurnRecorded,
		LeadID:     lead.ID,
		BusinessID: lead.BusinessID,
		Topic:      lead.Topic,
	})

	m.logger.Info("turn recorded",
		zap.Int64("lead_id", lead.ID),
		zap.Int64("business_id", lead.BusinessID),
		zap.Int64("messages_count", lead.MessagesCount()),
	)
	return lead, nil
}

// applyTurn folds one turn into an existing lead. Runs inside the store
// transaction.
func (m *SessionManager) applyTurn(l *model.Lead, p TurnParams, now time.Time) {
	l.LastQuestion = p.UserText
	l.LastAnswer = p.AnswerText
	if p.DetectedLanguage != "" {
		l.Language = p.DetectedLanguage
	}
	if len(p.Topics) > 0 {
		l.Topic = p.Topics[0]
	}

	incoming := p.Signals.bag()
	incoming[metadata.KeyMessagesCount] = metadata.Int(1)
	l.Meta = metadata.Merge(l.Meta, incoming, now)

	l.State = model.SessionOpen
}

// createLeadFromTurn is the legacy single-call path: no session was
// started, so the first turn creates the lead fully populated.
func (m *SessionManager) createLeadFromTurn(ctx context.Context, p TurnParams, userMsg, assistantMsg *model.Message, now time.Time) (*model.Lead, error) {
	if _, err := m.store.GetBusiness(ctx, p.BusinessID); err != nil {
		return nil, err
	}

	meta := metadata.Merge(metadata.Bag{}, p.Signals.bag(), now)
	meta[metadata.KeyStartedAt] = metadata.Time(now)
	meta[metadata.KeyMessagesCount] = metadata.Int(1)
	meta[metadata.KeyTimeOnSite] = metadata.Int(0)

	language := p.DetectedLanguage
	if language == "" {
		language = p.Signals.Language
	}
	var firstTopic string
	if len(p.Topics) > 0 {
		firstTopic = p.Topics[0]
	}

	lead := &model.Lead{
		BusinessID:   p.BusinessID,
		Name:         p.Signals.UserName,
		Email:        p.Signals.UserEmail,
		Country:      p.Signals.Country,
		Language:     language,
		Topic:        firstTopic,
		LastQuestion: p.UserText,
		LastAnswer:   p.AnswerText,
		SourcePage:   p.Signals.PageURL,
		State:        model.SessionOpen,
		Meta:         meta,
		CreatedAt:    now,
	}
	if err := m.store.CreateLeadWithTurn(ctx, lead, userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to create lead with first turn: %w", err)
	}

	metrics.LeadsCreated.WithLabelValues(metrics.BusinessLabel(p.BusinessID)).Inc()
	m.publish(ctx, events.Event{Type: events.TypeLeadCreated, LeadID: lead.ID, BusinessID: p.BusinessID})
	return lead, nil
}

// EndSession closes out a session: it adds durationSeconds to the lead's
// time on site (negative additions are rejected), refreshes last_seen_at,
// and marks the lead closed. A retry with the same idempotency key is a
// no-op; without a key each retry adds the duration again.
func (m *SessionManager) EndSession(ctx context.Context, leadID int64, durationSeconds float64, idempotencyKey string) error {
	if durationSeconds < 0 {
		return fmt.Errorf("%w: duration_seconds must be non-negative", ErrInvalidArgument)
	}
	if _, ok := m.endKeys.lookup(idempotencyKey); ok {
		return nil
	}

	now := time.Now().UTC()
	lead, err := m.store.MutateLead(ctx, leadID, func(l *model.Lead) error {
		incoming := metadata.Bag{
			metadata.KeyTimeOnSite: metadata.Int(int64(durationSeconds)),
		}
		l.Meta = metadata.Merge(l.Meta, incoming, now)
		l.State = model.SessionClosed
		return nil
	})
	if err != nil {
		return err
	}

	m.endKeys.remember(idempotencyKey, leadID)
	metrics.SessionsEnded.WithLabelValues(metrics.BusinessLabel(lead.BusinessID)).Inc()
	m.publish(ctx, events.Event{
		Type:       events.TypeSessionEnded,
		LeadID:     leadID,
		BusinessID: lead.BusinessID,
	})

	m.logger.Info("session ended",
		zap.Int64("lead_id", leadID),
		zap.Int64("time_on_site_seconds", lead.TimeOnSiteSeconds()),
	)
	return nil
}

// publish emits a lead event; delivery is best effort and never fails
// the operation that produced it.
func (m *SessionManager) publish(ctx context.Context, ev events.Event) {
	if err := m.events.Publish(ctx, ev); err != nil {
		m.logger.Warn("failed to publish lead event",
			zap.String("type", string(ev.Type)),
			zap.Int64("lead_id", ev.LeadID),
			zap.Error(err),
		)
	}
}
