// Package store persists calendar events and answers the day-window query.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("event not found")

// Snapshot is one result of a reactive query.
type Snapshot struct {
	Events []contract.Event
	Err    error
}

type Store interface {
	Doctor(context.Context) ([]contract.DoctorCheck, error)
	AllEvents(context.Context) ([]contract.Event, error)
	GetEventByID(context.Context, uuid.UUID) (*contract.Event, error)
	// EventsOnDay returns every event touching the 24 hour window that
	// starts at day, ordered by start then ID. day is expected to be a
	// local midnight already.
	EventsOnDay(ctx context.Context, day time.Time) ([]contract.Event, error)
	AddEvent(context.Context, contract.Event) error
	// UpdateEvent replaces the stored event with the same ID.
	UpdateEvent(context.Context, contract.Event) error
	RemoveEvent(context.Context, contract.Event) error
	RemoveEventByID(context.Context, uuid.UUID) error
	// WatchAll and WatchDay emit a snapshot at once and again after every
	// change until ctx is done; the channel is then closed.
	WatchAll(ctx context.Context) <-chan Snapshot
	WatchDay(ctx context.Context, day time.Time) <-chan Snapshot
	Close() error
}
