// Package expiry maps client-supplied expiry selectors to absolute
// expiration timestamps.
package expiry

import "time"

// Selector values accepted from clients.
const (
	SelectorOneHour  = "1h"
	SelectorOneDay   = "1d"
	SelectorOneMonth = "1m"
	SelectorNever    = "never"

	// DefaultSelector is applied when the client sends an empty or
	// unrecognized selector.
	DefaultSelector = SelectorOneDay
)

// Resolve maps an expiry selector to an absolute expiration timestamp
// relative to now. It returns nil for SelectorNever. Unrecognized or
// empty selectors fall back to DefaultSelector rather than failing, so
// an old client with a stale option list still gets a sane expiry.
func Resolve(selector string, now time.Time) *time.Time {
	switch selector {
	case SelectorOneHour:
		return timePtr(now.Add(time.Hour))
	case SelectorOneDay:
		return timePtr(now.Add(24 * time.Hour))
	case SelectorOneMonth:
		return timePtr(now.Add(30 * 24 * time.Hour))
	case SelectorNever:
		return nil
	default:
		return timePtr(now.Add(24 * time.Hour))
	}
}

// Selectors returns the recognized selector values, for display and
// request validation at the HTTP boundary.
func Selectors() []string {
	return []string{SelectorOneHour, SelectorOneDay, SelectorOneMonth, SelectorNever}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
