package service

import (
	"context"

	"github.com/autosupport-ai/widget-backend/internal/model"
	"github.com/autosupport-ai/widget-backend/internal/store"
)

// LeadService serves the inbox read paths.
type LeadService struct {
	store store.Store
}

// NewLeadService creates a lead query service.
func NewLeadService(st store.Store) *LeadService {
	return &LeadService{store: st}
}

const (
	defaultLeadLimit = 50
	maxLeadLimit     = 100
)

// List returns lead summaries for a business, newest first.
func (s *LeadService) List(ctx context.Context, businessID int64, limit, offset int) (*model.ListLeadsResponse, error) {
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	if limit > maxLeadLimit {
		limit = maxLeadLimit
	}
	if offset < 0 {
		offset = 0
	}

	// fetch one extra row to learn whether more pages exist
	leads, err := s.store.ListLeads(ctx, businessID, limit+1, offset)
	if err != nil {
		return nil, err
	}

	hasMore := len(leads) > limit
	if hasMore {
		leads = leads[:limit]
	}

	summaries := make([]model.LeadSummary, len(leads))
	for i := range leads {
		summaries[i] = leads[i].Summary()
	}
	return &model.ListLeadsResponse{Leads: summaries, HasMore: hasMore}, nil
}

// Get returns a lead with its full ordered message log. Returns
// store.ErrNotFound for an unknown lead.
func (s *LeadService) Get(ctx context.Context, leadID int64) (*model.LeadDetail, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessages(ctx, leadID)
	if err != nil {
		return nil, err
	}

	return &model.LeadDetail{Lead: *lead, Messages: messages}, nil
}
