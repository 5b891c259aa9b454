package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/autosupport-ai/widget-backend/internal/answer"
	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/store"
	"github.com/autosupport-ai/widget-backend/internal/topic"
	"github.com/autosupport-ai/widget-backend/pkg/logger"
)

// ChatService handles one widget chat turn: it grounds the assistant on
// the business FAQ, generates the answer, classifies the topic, and
// records the turn against the lead.
type ChatService struct {
	store     store.Store
	sessions  *SessionManager
	generator answer.Generator
	fallback  answer.Generator
	logger    *logger.Logger
}

// NewChatService creates a chat service. generator may be nil, in which
// case fallback handles every question; fallback must not be nil.
func NewChatService(st store.Store, sessions *SessionManager, generator, fallback answer.Generator, log *logger.Logger) *ChatService {
	return &ChatService{
		store:     st,
		sessions:  sessions,
		generator: generator,
		fallback:  fallback,
		logger:    log,
	}
}

// Chat processes one chat turn. Returns store.ErrNotFound for an unknown
// business or lead and ErrBusinessMismatch for a cross-business lead.
func (s *ChatService) Chat(ctx context.Context, req *model.ChatRequest, sig ClientSignals) (*model.ChatResponse, error) {
	business, err := s.store.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}

	faqs, err := s.store.ListActiveFAQs(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}

	question := strings.TrimSpace(req.Message)
	grounding := answer.Grounding{Business: business, FAQs: faqs}

	reply, err := s.generate(ctx, grounding, question)
	if err != nil {
		return nil, err
	}

	topics := topic.Classify(question)

	lead, err := s.sessions.RecordTurn(ctx, TurnParams{
		LeadID:         req.LeadID,
		BusinessID:     req.BusinessID,
		UserText:       question,
		AnswerText:     reply,
		Topics:         topics,
		Signals:        sig,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	return &model.ChatResponse{
		Answer:           reply,
		LeadID:           lead.ID,
		DetectedLanguage: lead.Language,
		Topics:           topics,
	}, nil
}

// generate asks the primary generator and falls back to the local FAQ
// matcher when the primary is missing or fails, so the widget keeps
// answering while the upstream provider is down.
func (s *ChatService) generate(ctx context.Context, grounding answer.Grounding, question string) (string, error) {
	if s.generator == nil {
		return s.fallback.Generate(ctx, grounding, question)
	}

	reply, err := s.generator.Generate(ctx, grounding, question)
	if err != nil {
		s.logger.Warn("answer generation failed, using fallback",
			zap.Int64("business_id", grounding.Business.ID),
			zap.Error(err),
		)
		return s.fallback.Generate(ctx, grounding, question)
	}
	return reply, nil
}
