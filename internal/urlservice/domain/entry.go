package domain

import (
	"regexp"
	"slices"
	"time"
)

// DefaultTTL is applied when a create request carries no expiry.
const DefaultTTL = 30 * time.Minute

var targetPattern = regexp.MustCompile(`^https?://.+\..+`)

// Entry maps a short code to its target URL and carries its click history.
type Entry struct {
	Code       string       `json:"code"`
	Target     string       `json:"target"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	ClickCount int64        `json:"click_count"`
	ClickLog   []ClickEvent `json:"click_log"`
}

// NewEntry builds a fresh entry with an empty click history.
func NewEntry(code, target string, createdAt, expiresAt time.Time) *Entry {
	return &Entry{
		Code:      code,
		Target:    target,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		ClickLog:  []ClickEvent{},
	}
}

// ValidTarget reports whether target looks like an http(s) URL with a dotted host.
func ValidTarget(target string) bool {
	return targetPattern.MatchString(target)
}

// IsExpired reports whether the entry is logically dead at now.
func (e *Entry) IsExpired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Clone returns a deep copy so callers never share the click log backing array.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.ClickLog = slices.Clone(e.ClickLog)
	if c.ClickLog == nil {
		c.ClickLog = []ClickEvent{}
	}
	return &c
}
