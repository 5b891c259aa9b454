// Package store provides the durable keyed-record store behind the lead
// engine. Every method is one atomic transaction: an operation either
// commits all of its writes or none of them.
package store

import (
	"context"
	"errors"

	"github.com/autosupport-ai/widget-backend/internal/model"
)

// ErrNotFound is returned when a business, lead, or message is absent.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract the session engine runs against.
//
// MutateLead and AppendTurn take an apply closure that runs inside the
// write transaction, against the freshly-read lead row. Returning an
// error from the closure rolls the transaction back and propagates the
// error unwrapped, so domain guards (tenant mismatch, invalid input) can
// live in the engine while still being enforced atomically. Concurrent
// writers to the same lead serialize on the write transaction.
type Store interface {
	CreateBusiness(ctx context.Context, b *model.Business) error
	GetBusiness(ctx context.Context, id int64) (*model.Business, error)
	// DeleteBusiness removes a business and cascades to its leads and
	// their messages. This is the only path that destroys leads.
	DeleteBusiness(ctx context.Context, id int64) error

	CreateFAQ(ctx context.Context, f *model.FAQ) error
	ListActiveFAQs(ctx context.Context, businessID int64) ([]model.FAQ, error)

	CreateLead(ctx context.Context, lead *model.Lead) error
	// CreateLeadWithTurn creates a lead and its first user/assistant
	// message pair in a single transaction (the legacy one-shot chat
	// path with no prior session).
	CreateLeadWithTurn(ctx context.Context, lead *model.Lead, userMsg, assistantMsg *model.Message) error
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	MutateLead(ctx context.Context, id int64, apply func(*model.Lead) error) (*model.Lead, error)
	// AppendTurn applies a mutation to the lead and inserts the
	// user/assistant pair atomically; a partial pair is impossible.
	AppendTurn(ctx context.Context, id int64, apply func(*model.Lead) error, userMsg, assistantMsg *model.Message) (*model.Lead, error)
	ListLeads(ctx context.Context, businessID int64, limit, offset int) ([]model.Lead, error)

	ListMessages(ctx context.Context, leadID int64) ([]model.Message, error)
	CountMessages(ctx context.Context, leadID int64) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
