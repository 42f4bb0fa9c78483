package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/dateutil"
	"github.com/agis/mocal/internal/store"
	"github.com/google/uuid"
)

var (
	ErrEmptyName = errors.New("event name must not be empty")
	ErrClosed    = errors.New("editor closed")
)

// Editor holds an isolated working copy of one event. Edits replace the copy
// in memory; the store sees a single write when the editor is closed.
type Editor struct {
	st store.Store
	id uuid.UUID

	mu      sync.Mutex
	event   contract.Event
	dirty   bool
	deleted bool
	closed  bool
}

// OpenEditor loads the event with the given id.
func OpenEditor(ctx context.Context, st store.Store, id uuid.UUID) (*Editor, error) {
	e, err := st.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Editor{st: st, id: id, event: e.Clone()}, nil
}

func (ed *Editor) ID() uuid.UUID { return ed.id }

// Event returns a copy of the working event.
func (ed *Editor) Event() contract.Event {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.event.Clone()
}

// Dirty reports whether any edit was applied since the editor opened.
func (ed *Editor) Dirty() bool {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.dirty
}

// Update replaces the working copy with fn's result. The ID cannot change.
func (ed *Editor) Update(fn func(contract.Event) contract.Event) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.closed || ed.deleted {
		return
	}
	next := fn(ed.event.Clone())
	next.ID = ed.id
	ed.event = next
	ed.dirty = true
}

func (ed *Editor) SetName(name string) {
	ed.Update(func(e contract.Event) contract.Event { return e.WithName(name) })
}

func (ed *Editor) SetDescription(description string) {
	ed.Update(func(e contract.Event) contract.Event { return e.WithDescription(description) })
}

func (ed *Editor) SetType(t contract.EventType) {
	ed.Update(func(e contract.Event) contract.Event { return e.WithType(t) })
}

// SetDate moves the event to date, keeping its times of day. An end that
// would fall before the new start rolls to the following day.
func (ed *Editor) SetDate(date time.Time) {
	ed.Update(func(e contract.Event) contract.Event {
		start := dateutil.CombineWithDate(e.Start, date)
		next := e.WithStart(start)
		if e.End != nil {
			end := dateutil.FixTimeToBeAfter(*e.End, start)
			next = next.WithEnd(&end)
		}
		return next
	})
}

// SetStartTime moves the start to clock's time of day and shifts the end so
// the duration stays the same.
func (ed *Editor) SetStartTime(clock time.Time) {
	ed.Update(func(e contract.Event) contract.Event {
		next := e.WithStart(dateutil.CombineWithTime(e.Start, clock))
		if e.End != nil {
			end := dateutil.NewEndTime(*e.End, e.Start, clock)
			next = next.WithEnd(&end)
		}
		return next
	})
}

// SetEndTime sets the end to clock's time of day on or after the start. It
// turns a due date into a timed event.
func (ed *Editor) SetEndTime(clock time.Time) {
	ed.Update(func(e contract.Event) contract.Event {
		end := dateutil.FixTimeToBeAfter(clock, e.Start)
		return e.WithEnd(&end)
	})
}

// ClearEnd turns the event into a due date.
func (ed *Editor) ClearEnd() {
	ed.Update(func(e contract.Event) contract.Event { return e.WithEnd(nil) })
}

// Validate reports whether the working copy may leave the editor.
func (ed *Editor) Validate() error {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ValidateEvent(ed.event)
}

// Delete removes the event from the store; Close will not write it back.
func (ed *Editor) Delete(ctx context.Context) error {
	ed.mu.Lock()
	if ed.closed {
		ed.mu.Unlock()
		return ErrClosed
	}
	ed.mu.Unlock()

	if err := ed.st.RemoveEventByID(ctx, ed.id); err != nil {
		return err
	}
	ed.mu.Lock()
	ed.deleted = true
	ed.mu.Unlock()
	return nil
}

// Save validates and then closes the editor. On a validation error the
// editor stays open so the caller can fix the event.
func (ed *Editor) Save(ctx context.Context) error {
	if err := ed.Validate(); err != nil {
		return err
	}
	return ed.Close(ctx)
}

// Close writes the working copy back exactly once unless the event was
// deleted. Later calls do nothing.
func (ed *Editor) Close(ctx context.Context) error {
	ed.mu.Lock()
	if ed.closed {
		ed.mu.Unlock()
		return nil
	}
	ed.closed = true
	skip := ed.deleted
	e := ed.event.Clone()
	ed.mu.Unlock()

	if skip {
		return nil
	}
	if err := ed.st.UpdateEvent(ctx, e); err != nil {
		return fmt.Errorf("write back event %s: %w", e.ID, err)
	}
	return nil
}

// ValidateEvent reports whether e may be written to the store.
func ValidateEvent(e contract.Event) error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
