package service

import "github.com/autosupport-ai/widget-backend/internal/metadata"

// ClientSignals carries everything one request tells us about the
// visitor: connection-derived fields (IP, headers) and widget-declared
// metadata.
type ClientSignals struct {
	VisitorIP string
	UserAgent string
	Referer   string

	SessionID string
	PageURL   string
	Country   string
	Language  string
	UserName  string
	UserEmail string
}

// bag renders the analytics portion of the signals as a metadata bag.
// Empty fields are omitted so they never shadow known values in a merge.
func (s ClientSignals) bag() metadata.Bag {
	b := metadata.Bag{}
	set := func(key, val string) {
		if val != "" {
			b[key] = metadata.String(val)
		}
	}
	set(metadata.KeyVisitorIP, s.VisitorIP)
	set(metadata.KeyUserAgent, s.UserAgent)
	set(metadata.KeyReferer, s.Referer)
	set(metadata.KeySessionID, s.SessionID)
	set(metadata.KeyPageURL, s.PageURL)
	return b
}
