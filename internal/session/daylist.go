// Package session holds the working state a screen keeps over the store:
// the event list of the selected day and the single event being edited.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/dateutil"
	"github.com/agis/mocal/internal/store"
)

// DayList follows the events of one selected day. Selecting another day
// cancels the previous subscription; the latest selection always wins.
type DayList struct {
	st store.Store

	mu      sync.Mutex
	gen     uint64
	day     time.Time
	events  []contract.Event
	err     error
	cancel  context.CancelFunc
	done    chan struct{}
	updates chan []contract.Event
	errs    chan error
}

func NewDayList(st store.Store) *DayList {
	return &DayList{
		st:      st,
		updates: make(chan []contract.Event, 1),
		errs:    make(chan error, 1),
	}
}

// SetDate selects the day containing day. Once it returns, no result for a
// previously selected day is published.
func (l *DayList) SetDate(day time.Time) {
	day = dateutil.ClearTime(day)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	select {
	case <-l.updates:
	default:
	}
	select {
	case <-l.errs:
	default:
	}
	l.day = day
	l.events = nil
	l.err = nil
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	snapshots := l.st.WatchDay(ctx, day)
	go func() {
		defer close(done)
		for s := range snapshots {
			l.publish(gen, s)
		}
	}()
}

func (l *DayList) publish(gen uint64, s store.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	if s.Err != nil {
		l.err = s.Err
		select {
		case <-l.errs:
		default:
		}
		l.errs <- s.Err
		return
	}
	l.err = nil
	l.events = s.Events
	select {
	case <-l.updates:
	default:
	}
	l.updates <- cloneEvents(s.Events)
}

// Day is the selected day start, zero before the first SetDate.
func (l *DayList) Day() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.day
}

// Events returns the latest list for the selected day.
func (l *DayList) Events() []contract.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneEvents(l.events)
}

// Err is the error of the latest refresh, if it failed.
func (l *DayList) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Updates delivers each new list. Only the most recent undelivered list is
// kept.
func (l *DayList) Updates() <-chan []contract.Event { return l.updates }

// Errors delivers each failed refresh. Only the most recent undelivered
// error is kept; the previous list stays current.
func (l *DayList) Errors() <-chan error { return l.errs }

// NewEvent builds a one hour event on the selected day at the current hour.
func (l *DayList) NewEvent(now time.Time) contract.Event {
	start := l.startTime(now)
	end := start.Add(time.Hour)
	return contract.NewEvent(start).WithEnd(&end)
}

// NewAssignment builds a due-date entry on the selected day at the current
// hour.
func (l *DayList) NewAssignment(now time.Time) contract.Event {
	return contract.NewEvent(l.startTime(now)).WithType(contract.TypeAssignment)
}

func (l *DayList) startTime(now time.Time) time.Time {
	day := l.Day()
	if day.IsZero() {
		day = dateutil.ClearTime(now)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, now.In(day.Location()).Hour(), 0, 0, 0, day.Location())
}

func (l *DayList) AddEvent(ctx context.Context, e contract.Event) error {
	return l.st.AddEvent(ctx, e)
}

func (l *DayList) DeleteEvent(ctx context.Context, e contract.Event) error {
	return l.st.RemoveEvent(ctx, e)
}

// Close stops the subscription and waits for it to drain.
func (l *DayList) Close() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.gen++
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func cloneEvents(items []contract.Event) []contract.Event {
	if items == nil {
		return nil
	}
	out := make([]contract.Event, len(items))
	for i, e := range items {
		out[i] = e.Clone()
	}
	return out
}
