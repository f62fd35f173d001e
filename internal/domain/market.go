package domain

import "time"

// MarketInfo is the near-static metadata for one market: tags and end time
// change rarely, so the markets cache uses a long ttl.
type MarketInfo struct {
	ConditionID string
	Question    string
	Slug        string
	Tags        []string
	EndDate     time.Time
	Excluded    bool // tag set intersects the configured exclusion set
}

// HasAnyTag reports whether any of the market's tags is in the given set.
// Matching is case-insensitive at load time: tags and set entries are
// normalized to lower case before they get here.
func (m *MarketInfo) HasAnyTag(set map[string]struct{}) bool {
	for _, tag := range m.Tags {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}

// TimeToEnd returns how far away the market's end is at the given instant.
// Negative when the market already ended, zero when the end date is unknown.
func (m *MarketInfo) TimeToEnd(now time.Time) time.Duration {
	if m.EndDate.IsZero() {
		return 0
	}
	return m.EndDate.Sub(now)
}
