package store

import (
	"context"
	"errors"

	"github.com/autosupport-ai/widget-backend/internal/model"
)

// SeedDemo creates a demo business with sample FAQs so the widget can be
// exercised end to end without any setup. It is a no-op when business #1
// already exists.
func SeedDemo(ctx context.Context, s Store) (*model.Business, error) {
	if b, err := s.GetBusiness(ctx, 1); err == nil {
		return b, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	biz := &model.Business{
		Name:            "Demo Coaching Program",
		Website:         "https://example.com",
		DefaultLanguage: "en",
	}
	if err := s.CreateBusiness(ctx, biz); err != nil {
		return nil, err
	}

	faqs := []model.FAQ{
		{
			BusinessID: biz.ID,
			Question:   "How long does it take to install the widget?",
			Answer:     "Usually under 5 minutes. You paste one script tag into your site and the assistant goes live.",
			Language:   "en",
			Active:     true,
		},
		{
			BusinessID: biz.ID,
			Question:   "Can the assistant answer in multiple languages?",
			Answer:     "Yes. It can reply in more than 20 languages. Your visitors simply write in their language and the AI follows.",
			Language:   "en",
			Active:     true,
		},
		{
			BusinessID: biz.ID,
			Question:   "Will the AI invent answers?",
			Answer:     "No. It uses your FAQ and offer. If it is not confident, it asks for contact details and sends the question to your inbox.",
			Language:   "en",
			Active:     true,
		},
	}
	for i := range faqs {
		if err := s.CreateFAQ(ctx, &faqs[i]); err != nil {
			return nil, err
		}
	}
	return biz, nil
}
