package model

// ClientMeta carries the widget's client-declared session signals.
type ClientMeta struct {
	SessionID string `json:"session_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	Country   string `json:"country,omitempty"`
	Language  string `json:"language,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// StartSessionRequest is the body of POST /session/start.
type StartSessionRequest struct {
	BusinessID int64       `json:"business_id"`
	Meta       *ClientMeta `json:"meta,omitempty"`
}

// StartSessionResponse is the response to POST /session/start.
type StartSessionResponse struct {
	LeadID int64 `json:"lead_id"`
}

// ChatRequest is the body of POST /chat. LeadID is absent on the legacy
// single-call path, where the first turn creates the lead.
type ChatRequest struct {
	BusinessID     int64       `json:"business_id"`
	Message        string      `json:"message"`
	LeadID         *int64      `json:"lead_id,omitempty"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
	Meta           *ClientMeta `json:"meta,omitempty"`
}

// ChatResponse is the response to POST /chat.
type ChatResponse struct {
	Answer           string   `json:"answer"`
	LeadID           int64    `json:"lead_id"`
	DetectedLanguage string   `json:"detected_language,omitempty"`
	Topics           []string `json:"topics"`
}

// EndSessionRequest is the body of POST /session/end.
type EndSessionRequest struct {
	LeadID          *int64   `json:"lead_id,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	IdempotencyKey  string   `json:"idempotency_key,omitempty"`
}

// EndSessionResponse is the response to POST /session/end.
type EndSessionResponse struct {
	OK bool `json:"ok"`
}

// ListLeadsResponse is the response for the inbox lead listing.
type ListLeadsResponse struct {
	Leads   []LeadSummary `json:"leads"`
	HasMore bool          `json:"has_more"`
}
