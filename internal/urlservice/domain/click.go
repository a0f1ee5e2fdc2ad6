package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClickEvent is one redirect traversal of an entry.
type ClickEvent struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Referrer string    `json:"referrer"`
	Origin   string    `json:"origin"`
	Source   string    `json:"source"`
	Device   string    `json:"device"`
}

// NewClickEvent stamps a click with a time-ordered id.
func NewClickEvent(at time.Time, referrer, origin string) ClickEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ClickEvent{
		ID:       id.String(),
		Time:     at,
		Referrer: referrer,
		Origin:   origin,
	}
}

// ClickRecorder applies click accounting to an entry without touching storage.
type ClickRecorder struct{}

func NewClickRecorder() ClickRecorder {
	return ClickRecorder{}
}

// Record appends event to the click log and bumps the counter in one step,
// keeping ClickCount equal to len(ClickLog).
func (ClickRecorder) Record(e *Entry, event ClickEvent) *Entry {
	e.ClickLog = append(e.ClickLog, event)
	e.ClickCount = int64(len(e.ClickLog))
	return e
}
