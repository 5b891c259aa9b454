package model

import "time"

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a lead's conversation, immutable once recorded.
// Log order is CreatedAt with ID as tiebreaker.
type Message struct {
	ID         int64     `json:"id"`
	LeadID     int64     `json:"lead_id"`
	BusinessID int64     `json:"business_id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Language   string    `json:"language,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
