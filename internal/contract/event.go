package contract

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single calendar entry. An Event with a nil End is an
// assignment due date at Start rather than a time range.
//
// Events are values: the With* methods return a modified copy and never
// touch the receiver, so a copy held by a session cannot alias the store's.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end"`
	Name        string     `json:"name"`
	Type        EventType  `json:"type"`
	Description string     `json:"description"`
}

// NewEvent returns an event with a fresh random ID starting at now.
func NewEvent(now time.Time) Event {
	return Event{
		ID:    uuid.New(),
		Start: now,
		Type:  TypeGeneric,
	}
}

func (e Event) IsDueDate() bool { return e.End == nil }

// Duration is zero for due-date events.
func (e Event) Duration() time.Duration {
	if e.End == nil {
		return 0
	}
	return e.End.Sub(e.Start)
}

func (e Event) WithName(name string) Event {
	e.End = copyTime(e.End)
	e.Name = name
	return e
}

func (e Event) WithDescription(description string) Event {
	e.End = copyTime(e.End)
	e.Description = description
	return e
}

func (e Event) WithType(t EventType) Event {
	e.End = copyTime(e.End)
	e.Type = t
	return e
}

func (e Event) WithStart(start time.Time) Event {
	e.End = copyTime(e.End)
	e.Start = start
	return e
}

// WithEnd sets the end instant; nil turns the event into a due date.
func (e Event) WithEnd(end *time.Time) Event {
	e.End = copyTime(end)
	return e
}

// Clone returns a copy that shares no memory with e.
func (e Event) Clone() Event {
	e.End = copyTime(e.End)
	return e
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
