// Package model defines data structures for the widget backend.
package model

import "time"

// Business is a website that embeds the chat widget. It owns FAQs and
// leads; deleting a business cascades to both.
type Business struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Website         string    `json:"website,omitempty"`
	DefaultLanguage string    `json:"default_language,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// FAQ is one question/answer pair supplying the assistant's context.
// The engine only ever reads FAQs.
type FAQ struct {
	ID         int64  `json:"id"`
	BusinessID int64  `json:"business_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Language   string `json:"language,omitempty"`
	Active     bool   `json:"is_active"`
}
