package metadata

// Recognized analytics keys. Unrecognized keys are carried through the
// merge untouched so widget versions can add fields without a backend
// deploy.
const (
	KeyVisitorIP     = "visitor_ip"
	KeyUserAgent     = "user_agent"
	KeyReferer       = "referer"
	KeySessionID     = "session_id"
	KeyPageURL       = "page_url"
	KeyStartedAt     = "started_at"
	KeyLastSeenAt    = "last_seen_at"
	KeyTimeOnSite    = "time_on_site_seconds"
	KeyMessagesCount = "messages_count"
)

// Bag is the open key-value store attached to a lead.
type Bag map[string]Value

// Clone returns a shallow copy of the bag. Values are immutable scalars,
// so a shallow copy is a full copy.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Has reports whether key holds a non-empty value.
func (b Bag) Has(key string) bool {
	v, ok := b[key]
	return ok && !v.IsZero()
}

// GetString returns the string form of key, or "" when absent.
func (b Bag) GetString(key string) string {
	if v, ok := b[key]; ok {
		return v.AsString()
	}
	return ""
}

// GetInt returns the integer form of key, or 0 when absent.
func (b Bag) GetInt(key string) int64 {
	if v, ok := b[key]; ok {
		return v.AsInt()
	}
	return 0
}
