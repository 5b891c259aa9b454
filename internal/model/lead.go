package model

import (
	"time"

	"github.com/autosupport-ai/widget-backend/internal/metadata"
)

// SessionState tags where a lead sits in its session lifecycle. Closed is
// advisory: a later chat turn legally reopens the lead.
type SessionState string

const (
	SessionOpen   SessionState = "open"
	SessionClosed SessionState = "closed"
)

// Lead is the aggregate record for one visitor session: contact fields,
// the latest Q&A summary, and the analytics metadata bag. ID and
// BusinessID are immutable after creation; contact fields are
// set-once-then-sticky, except Language which explicit detection may
// refine.
type Lead struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`

	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Country  string `json:"country,omitempty"`
	Language string `json:"language,omitempty"`
	Topic    string `json:"topic,omitempty"`

	LastQuestion string `json:"last_question,omitempty"`
	LastAnswer   string `json:"last_answer,omitempty"`
	SourcePage   string `json:"source_page,omitempty"`

	State SessionState `json:"state"`
	Meta  metadata.Bag `json:"meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MessagesCount reads the turn counter from the metadata bag. One turn is
// one user+assistant pair, so the message log holds twice this many rows.
func (l *Lead) MessagesCount() int64 {
	return l.Meta.GetInt(metadata.KeyMessagesCount)
}

// TimeOnSiteSeconds reads the accumulated session duration from the bag.
func (l *Lead) TimeOnSiteSeconds() int64 {
	return l.Meta.GetInt(metadata.KeyTimeOnSite)
}

// Summary trims a lead down to the fields the inbox list needs.
func (l *Lead) Summary() LeadSummary {
	return LeadSummary{
		ID:           l.ID,
		BusinessID:   l.BusinessID,
		CreatedAt:    l.CreatedAt,
		Country:      l.Country,
		Language:     l.Language,
		Topic:        l.Topic,
		LastQuestion: l.LastQuestion,
		LastAnswer:   l.LastAnswer,
		SourcePage:   l.SourcePage,
		State:        l.State,
	}
}

// LeadSummary is the inbox list projection of a lead.
type LeadSummary struct {
	ID           int64        `json:"id"`
	BusinessID   int64        `json:"business_id"`
	CreatedAt    time.Time    `json:"created_at"`
	Country      string       `json:"country,omitempty"`
	Language     string       `json:"language,omitempty"`
	Topic        string       `json:"topic,omitempty"`
	LastQuestion string       `json:"last_question,omitempty"`
	LastAnswer   string       `json:"last_answer,omitempty"`
	SourcePage   string       `json:"source_page,omitempty"`
	State        SessionState `json:"state"`
}

// LeadDetail is a lead together with its full ordered message log.
type LeadDetail struct {
	Lead     Lead      `json:"lead"`
	Messages []Message `json:"messages"`
}
