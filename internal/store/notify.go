package store

import (
	"context"
	"sync"
	"time"

	"github.com/agis/mocal/internal/contract"
)

// notifier fans a "something changed" signal out to subscribers. Each
// subscriber channel holds at most one pending signal, so bursts coalesce.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: map[int]chan struct{}{}}
}

func (n *notifier) subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch
	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *notifier) subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// versionFunc reports a counter that moves whenever another connection or
// process commits to the database.
type versionFunc func(context.Context) (int64, error)

// watch re-runs query after every change signal from this store, and on
// any poll tick where version has moved. The subscription is taken before
// the first query so a write racing the first read is not lost.
func watch(ctx context.Context, n *notifier, version versionFunc, every time.Duration, query func(context.Context) ([]contract.Event, error)) <-chan Snapshot {
	out := make(chan Snapshot)
	changes, unsubscribe := n.subscribe()
	go func() {
		defer close(out)
		defer unsubscribe()
		var ticks <-chan time.Time
		if version != nil && every > 0 {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			ticks = ticker.C
		}
		var last int64
		for {
			if version != nil {
				if v, err := version(ctx); err == nil {
					last = v
				}
			}
			items, err := query(ctx)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Snapshot{Events: items, Err: err}:
			case <-ctx.Done():
				return
			}
			if !waitForChange(ctx, changes, ticks, version, last) {
				return
			}
		}
	}()
	return out
}

// waitForChange blocks until a local change signal arrives or a tick sees a
// version other than last. It reports false once ctx is done.
func waitForChange(ctx context.Context, changes <-chan struct{}, ticks <-chan time.Time, version versionFunc, last int64) bool {
	for {
		select {
		case <-changes:
			return true
		case <-ticks:
			v, err := version(ctx)
			if err == nil && v != last {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}
