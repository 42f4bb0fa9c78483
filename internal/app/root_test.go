package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/dateutil"
	"github.com/agis/mocal/internal/store"
	"github.com/google/uuid"
)

// fakeStore is an in-memory store.Store that counts calls.
type fakeStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]contract.Event
	checks    []contract.DoctorCheck
	doctorErr error
	calls     map[string]int
}

func newFakeStore(items ...contract.Event) *fakeStore {
	f := &fakeStore{events: map[uuid.UUID]contract.Event{}, calls: map[string]int{}}
	for _, e := range items {
		f.events[e.ID] = e.Clone()
	}
	return f
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeStore) Doctor(context.Context) ([]contract.DoctorCheck, error) {
	f.record("doctor")
	if f.checks == nil {
		return []contract.DoctorCheck{{Name: "store_open", Status: "ok", Message: "fake"}}, f.doctorErr
	}
	return f.checks, f.doctorErr
}

func (f *fakeStore) sorted(keep func(contract.Event) bool) []contract.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []contract.Event{}
	for _, e := range f.events {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (f *fakeStore) AllEvents(context.Context) ([]contract.Event, error) {
	f.record("all_events")
	return f.sorted(func(contract.Event) bool { return true }), nil
}

func (f *fakeStore) GetEventByID(_ context.Context, id uuid.UUID) (*contract.Event, error) {
	f.record("get_event_by_id")
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := e.Clone()
	return &c, nil
}

func (f *fakeStore) EventsOnDay(_ context.Context, day time.Time) ([]contract.Event, error) {
	f.record("events_on_day")
	return f.sorted(func(e contract.Event) bool { return dateutil.OccursOnDay(e.Start, e.End, day) }), nil
}

func (f *fakeStore) AddEvent(_ context.Context, e contract.Event) error {
	f.record("add_event")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[e.ID]; ok {
		return errors.New("duplicate id")
	}
	f.events[e.ID] = e.Clone()
	return nil
}

func (f *fakeStore) UpdateEvent(_ context.Context, e contract.Event) error {
	f.record("update_event")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[e.ID]; !ok {
		return store.ErrNotFound
	}
	f.events[e.ID] = e.Clone()
	return nil
}

func (f *fakeStore) RemoveEvent(ctx context.Context, e contract.Event) error {
	return f.RemoveEventByID(ctx, e.ID)
}

func (f *fakeStore) RemoveEventByID(_ context.Context, id uuid.UUID) error {
	f.record("remove_event")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
	return nil
}

func (f *fakeStore) WatchAll(ctx context.Context) <-chan store.Snapshot {
	return f.watchOnce(ctx, func() ([]contract.Event, error) { return f.AllEvents(ctx) })
}

func (f *fakeStore) WatchDay(ctx context.Context, day time.Time) <-chan store.Snapshot {
	return f.watchOnce(ctx, func() ([]contract.Event, error) { return f.EventsOnDay(ctx, day) })
}

func (f *fakeStore) watchOnce(ctx context.Context, q func() ([]contract.Event, error)) <-chan store.Snapshot {
	out := make(chan store.Snapshot)
	go func() {
		defer close(out)
		items, err := q()
		select {
		case out <- store.Snapshot{Events: items, Err: err}:
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
	}()
	return out
}

func (f *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

func useStore(t *testing.T, st store.Store) {
	t.Helper()
	orig := storeFactory
	storeFactory = func(context.Context, string, *time.Location) (store.Store, error) { return st, nil }
	t.Cleanup(func() { storeFactory = orig })
}

// isolateEnv keeps user config and MOCAL_* variables out of a test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	for _, k := range []string{"MOCAL_DB", "MOCAL_TIMEZONE", "MOCAL_OUTPUT", "MOCAL_FIELDS", "MOCAL_PROFILE", "MOCAL_CONFIG"} {
		t.Setenv(k, "")
	}
	return home
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestResolveEndDuration(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	end, err := resolveEnd("", "30m", start, time.UTC)
	if err != nil {
		t.Fatalf("resolveEnd error: %v", err)
	}
	want := start.Add(30 * time.Minute)
	if end == nil || !end.Equal(want) {
		t.Fatalf("expected %s, got %v", want, end)
	}
}

func TestResolveEndBothSet(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if _, err := resolveEnd("2026-02-10T13:00", "30m", start, time.UTC); err == nil {
		t.Fatalf("expected error when both end and duration are set")
	}
}

func TestResolveEndRejectsEarlierEnd(t *testing.T) {
	start := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if _, err := resolveEnd("2026-02-10T11:00", "", start, time.UTC); err == nil {
		t.Fatalf("expected error for end before start")
	}
	end, err := resolveEnd("", "", start, time.UTC)
	if err != nil || end != nil {
		t.Fatalf("expected no end without flags, got end=%v err=%v", end, err)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" id, name ,,start ")
	if strings.Join(got, "|") != "id|name|start" {
		t.Fatalf("splitCSV got=%q", got)
	}
	if splitCSV("  ") != nil {
		t.Fatalf("expected nil for blank input")
	}
}

func TestWantsStructuredErrorOutput(t *testing.T) {
	cases := []struct {
		args []string
		want bool
	}{
		{[]string{"day", "--json"}, true},
		{[]string{"day", "--jsonl=true"}, true},
		{[]string{"day", "--", "--json"}, false},
		{[]string{"day", "--plain"}, false},
	}
	for _, tc := range cases {
		if got := wantsStructuredErrorOutput(tc.args); got != tc.want {
			t.Fatalf("args=%v got=%v want=%v", tc.args, got, tc.want)
		}
	}
}

func TestErrorCodeForExit(t *testing.T) {
	want := map[int]contract.ErrorCode{
		1: contract.ErrGeneric,
		2: contract.ErrInvalidUsage,
		4: contract.ErrNotFound,
		6: contract.ErrStoreUnavailable,
	}
	for code, ec := range want {
		if got := errorCodeForExit(code); got != ec {
			t.Fatalf("errorCodeForExit(%d) got=%q want=%q", code, got, ec)
		}
	}
}

func TestOutputFlagsMutuallyExclusive(t *testing.T) {
	isolateEnv(t)
	useStore(t, newFakeStore())
	_, _, err := runCmd(t, "day", "--json", "--plain")
	if code := ExitCode(err); code != 2 {
		t.Fatalf("exit code mismatch: got=%d want=2", code)
	}
}

func TestStoreOpenFailureExitCode(t *testing.T) {
	isolateEnv(t)
	orig := storeFactory
	storeFactory = func(context.Context, string, *time.Location) (store.Store, error) { return nil, errors.New("disk gone") }
	t.Cleanup(func() { storeFactory = orig })

	_, stderr, err := runCmd(t, "day", "--json")
	if code := ExitCode(err); code != 6 {
		t.Fatalf("exit code mismatch: got=%d want=6", code)
	}
	if !strings.Contains(stderr, "STORE_UNAVAILABLE") || !strings.Contains(stderr, "disk gone") {
		t.Fatalf("expected structured store error, got %q", stderr)
	}
}

func TestVerboseLogsCommandStart(t *testing.T) {
	isolateEnv(t)
	useStore(t, newFakeStore())
	_, stderr, err := runCmd(t, "events", "list", "--verbose", "--json")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(stderr, "command=events.list") || !strings.Contains(stderr, `msg="command start"`) {
		t.Fatalf("expected verbose diagnostics, got %q", stderr)
	}
	_, stderr, err = runCmd(t, "events", "list", "--json")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if stderr != "" {
		t.Fatalf("expected quiet stderr without --verbose, got %q", stderr)
	}
}

func TestPromptConfirmID(t *testing.T) {
	var out bytes.Buffer
	ok, err := promptConfirmID(bytes.NewBufferString("evt-1\n"), &out, "evt-1")
	if err != nil {
		t.Fatalf("promptConfirmID error: %v", err)
	}
	if !ok {
		t.Fatalf("expected confirmation to match")
	}
	if got := out.String(); got != "Type event ID to confirm delete: " {
		t.Fatalf("unexpected prompt output: %q", got)
	}
}

func TestPromptConfirmIDMismatch(t *testing.T) {
	var out bytes.Buffer
	ok, err := promptConfirmID(bytes.NewBufferString("evt-2\n"), &out, "evt-1")
	if err != nil {
		t.Fatalf("promptConfirmID error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}
