package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/logger"
	"github.com/agis/mocal/internal/output"
	"github.com/agis/mocal/internal/store"
	"github.com/agis/mocal/internal/timeparse"
	"github.com/spf13/cobra"
)

var storeFactory = openStore

type globalOptions struct {
	JSON          bool
	JSONL         bool
	Plain         bool
	Fields        string
	Quiet         bool
	Verbose       bool
	Profile       string
	Config        string
	DB            string
	TZ            string
	Timeout       time.Duration
	SchemaVersion string

	log *logger.Logger
	loc *time.Location
}

func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		renderTopLevelError(cmd, err)
	}
	return ExitCode(err)
}

func NewRootCommand() *cobra.Command {
	opts := &globalOptions{
		Profile:       "default",
		Timeout:       15 * time.Second,
		SchemaVersion: contract.SchemaVersion,
	}

	root := &cobra.Command{
		Use:           "mocal",
		Short:         "Keep a local calendar of events and assignment due dates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       BuildVersionString(),
	}
	root.SetVersionTemplate("mocal {{.Version}}\n")

	root.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Output structured JSON")
	root.PersistentFlags().BoolVar(&opts.JSONL, "jsonl", false, "Output newline-delimited JSON")
	root.PersistentFlags().BoolVar(&opts.Plain, "plain", false, "Output stable plain text")
	root.PersistentFlags().StringVar(&opts.Fields, "fields", "", "Projected fields, comma-separated")
	root.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Reduce success output")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose diagnostics")
	root.PersistentFlags().StringVar(&opts.Profile, "profile", "default", "Config profile")
	root.PersistentFlags().StringVar(&opts.Config, "config", "", "Config file path (.toml, .yaml)")
	root.PersistentFlags().StringVar(&opts.DB, "db", "", "Database path (default "+store.DefaultPath()+")")
	root.PersistentFlags().StringVar(&opts.TZ, "tz", "", "IANA timezone used as local time")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "Store call timeout (e.g. 10s, 1m, 0 to disable)")
	root.PersistentFlags().StringVar(&opts.SchemaVersion, "schema-version", contract.SchemaVersion, "Output schema version")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newTypesCmd(opts))
	root.AddCommand(newDayCmd(opts))
	root.AddCommand(newEventsCmd(opts))
	root.AddCommand(newCompletionCmd(root))

	return root
}

func openStore(ctx context.Context, path string, loc *time.Location) (store.Store, error) {
	return store.OpenSQLite(ctx, path, store.WithLocation(loc))
}

// buildContext resolves options, builds the printer and opens the store.
// Callers own the returned store and must close it.
func buildContext(cmd *cobra.Command, opts *globalOptions, command string) (output.Printer, store.Store, *globalOptions, error) {
	resolved, err := resolveGlobalOptions(cmd, opts)
	if err != nil {
		return output.Printer{}, nil, nil, Wrap(exitUsage, err)
	}
	if conflictCount(resolved.JSON, resolved.JSONL, resolved.Plain) > 1 {
		return output.Printer{}, nil, nil, Wrap(exitUsage, errors.New("--json, --jsonl, and --plain are mutually exclusive"))
	}
	mode := output.ModeAuto
	if resolved.JSON {
		mode = output.ModeJSON
	} else if resolved.JSONL {
		mode = output.ModeJSONL
	} else if resolved.Plain {
		mode = output.ModePlain
	}

	printer := output.Printer{
		Mode:          mode,
		Command:       command,
		Fields:        splitCSV(resolved.Fields),
		Quiet:         resolved.Quiet,
		SchemaVersion: resolved.SchemaVersion,
		Out:           cmd.OutOrStdout(),
		Err:           cmd.ErrOrStderr(),
	}

	level := "warn"
	if resolved.Verbose {
		level = "debug"
	}
	resolved.log = logger.New(cmd.ErrOrStderr(), level).With("command", command)

	resolved.loc = time.Local
	if strings.TrimSpace(resolved.TZ) != "" {
		loc, lerr := time.LoadLocation(resolved.TZ)
		if lerr != nil {
			return printer, nil, nil, failWithHint(printer, contract.ErrInvalidUsage, fmt.Errorf("invalid --tz: %w", lerr), "Use an IANA name such as Europe/Athens", exitUsage)
		}
		resolved.loc = loc
	}
	if resolved.DB == "" {
		resolved.DB = store.DefaultPath()
	}

	ctx, cancel := commandContext(resolved)
	defer cancel()
	st, err := storeFactory(ctx, resolved.DB, resolved.loc)
	if err != nil {
		resolved.log.Error("open store failed", "db", resolved.DB, "err", err)
		_ = printer.Error(contract.ErrStoreUnavailable, err.Error(), "Check --db path permissions or run `mocal doctor`")
		return printer, nil, nil, WrapPrinted(exitStoreUnavailable, err)
	}
	resolved.log.Debug("command start", "db", resolved.DB, "mode", mode, "tz", resolved.TZ, "profile", resolved.Profile, "timeout", resolved.Timeout)
	return printer, st, resolved, nil
}

func commandContext(ro *globalOptions) (context.Context, context.CancelFunc) {
	timing := &timingRecorder{calls: map[string]time.Duration{}}
	base := context.WithValue(context.Background(), timingContextKey{}, timing)
	if ro == nil || ro.Timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, ro.Timeout)
}

type timeoutResult[T any] struct {
	val T
	err error
}

type timingContextKey struct{}

type timingRecorder struct {
	mu    sync.Mutex
	calls map[string]time.Duration
}

func (r *timingRecorder) add(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name] += d
}

func storeTimings(ctx context.Context) map[string]string {
	rec, _ := ctx.Value(timingContextKey{}).(*timingRecorder)
	if rec == nil {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rec.calls))
	for k := range rec.calls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = rec.calls[k].String()
	}
	return out
}

func withTimeout[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	ch := make(chan timeoutResult[T], 1)
	go func() {
		v, err := fn()
		ch <- timeoutResult[T]{val: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		return res.val, res.err
	}
}

// callStore runs one store call under ctx's deadline and records its
// duration under phase.
func callStore[T any](ctx context.Context, phase string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := withTimeout(ctx, func() (T, error) {
		return fn(ctx)
	})
	err = annotateStoreError(ctx, phase, err)
	recordTiming(ctx, phase, time.Since(start))
	return v, err
}

func execStore(ctx context.Context, phase string, fn func(context.Context) error) error {
	_, err := callStore(ctx, phase, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func recordTiming(ctx context.Context, name string, d time.Duration) {
	rec, _ := ctx.Value(timingContextKey{}).(*timingRecorder)
	if rec == nil {
		return
	}
	rec.add(name, d)
}

func successWithMeta(ctx context.Context, p output.Printer, ro *globalOptions, data any, meta map[string]any, warnings []string) error {
	if ro != nil && ro.Verbose {
		timings := storeTimings(ctx)
		if len(timings) > 0 {
			if meta == nil {
				meta = map[string]any{}
			}
			meta["timings"] = timings
			ro.log.Debug("store timings", "timings", timings)
		}
	}
	return p.Success(data, meta, warnings)
}

func renderTopLevelError(cmd *cobra.Command, err error) {
	var appErr AppError
	if errors.As(err, &appErr) && appErr.Printed {
		return
	}
	if wantsStructuredErrorOutput(os.Args[1:]) {
		printer := output.Printer{
			Mode:          output.ModeJSON,
			SchemaVersion: contract.SchemaVersion,
			Err:           cmd.ErrOrStderr(),
		}
		_ = printer.Error(errorCodeForExit(ExitCode(err)), err.Error(), "")
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err.Error())
}

func wantsStructuredErrorOutput(args []string) bool {
	for _, arg := range args {
		switch {
		case arg == "--":
			return false
		case arg == "--json", arg == "--jsonl":
			return true
		case strings.HasPrefix(arg, "--json="), strings.HasPrefix(arg, "--jsonl="):
			return true
		}
	}
	return false
}

func failWithHint(printer output.Printer, code contract.ErrorCode, err error, hint string, exitCode int) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	_ = printer.Error(code, err.Error(), hint)
	return WrapPrinted(exitCode, err)
}

// failStore maps a store error to its exit code: missing events are 4,
// anything else means the store could not serve the call.
func failStore(printer output.Printer, err error, hint string) error {
	if errors.Is(err, store.ErrNotFound) {
		return failWithHint(printer, contract.ErrNotFound, err, "Check ID with `mocal events list --fields id,name,start`", exitNotFound)
	}
	_ = printer.ErrorWithMeta(contract.ErrStoreUnavailable, err.Error(), hint, storeErrorMeta(err))
	return WrapPrinted(exitStoreUnavailable, err)
}

func parseDay(v string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		s = "today"
	}
	return timeparse.ParseDateTime(s, now, loc)
}

func resolveEnd(endS, durationS string, start time.Time, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(endS) != "" && strings.TrimSpace(durationS) != "" {
		return nil, fmt.Errorf("use either --end or --duration, not both")
	}
	if strings.TrimSpace(endS) != "" {
		end, err := timeparse.ParseDateTime(endS, time.Now(), loc)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, fmt.Errorf("--end must not be before --start")
		}
		return &end, nil
	}
	if strings.TrimSpace(durationS) != "" {
		d, err := time.ParseDuration(durationS)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("--duration must be positive")
		}
		end := start.Add(d)
		return &end, nil
	}
	return nil, nil
}

func readTextInput(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}

func stdinInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func promptConfirmID(in io.Reader, out io.Writer, expected string) (bool, error) {
	if _, err := fmt.Fprintf(out, "Type event ID to confirm delete: "); err != nil {
		return false, err
	}
	var entered string
	if _, err := fmt.Fscanln(in, &entered); err != nil {
		return false, err
	}
	return strings.TrimSpace(entered) == strings.TrimSpace(expected), nil
}

func conflictCount(vals ...bool) int {
	total := 0
	for _, v := range vals {
		if v {
			total++
		}
	}
	return total
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
