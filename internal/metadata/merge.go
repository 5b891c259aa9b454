package metadata

import "time"

// Merge reconciles an existing bag with incoming session signals and
// returns a new bag; neither argument is modified.
//
// Rules:
//   - counters (messages_count, time_on_site_seconds) are advanced by the
//     incoming value treated as a delta, never replaced
//   - last_seen_at is always overwritten with now
//   - every other key, recognized or not, is applied only when the
//     existing value is absent or empty; identity fields like visitor_ip
//     are therefore sticky
func Merge(existing, incoming Bag, now time.Time) Bag {
	out := existing.Clone()

	for key, val := range incoming {
		switch key {
		case KeyMessagesCount:
			delta := val.AsInt()
			if delta > 0 {
				out[key] = Int(out.GetInt(key) + delta)
			}
		case KeyTimeOnSite:
			delta := val.AsInt()
			if delta < 0 {
				delta = 0
			}
			if delta > 0 {
				out[key] = Int(out.GetInt(key) + delta)
			}
		case KeyLastSeenAt:
			// handled below; the incoming value is ignored
		default:
			if !out.Has(key) && !val.IsZero() {
				out[key] = val
			}
		}
	}

	out[KeyLastSeenAt] = Time(now)
	return out
}
