package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/output"
	"github.com/agis/mocal/internal/session"
	"github.com/agis/mocal/internal/timeparse"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newEventsCmd(opts *globalOptions) *cobra.Command {
	events := &cobra.Command{Use: "events", Short: "Event resources"}

	var listLimit int
	var wheres []string
	var sortField, order string
	list := &cobra.Command{
		Use:   "list",
		Short: "List every stored event in start order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.list")
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, cancel := commandContext(ro)
			defer cancel()
			preds, err := parsePredicates(wheres)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use clauses like name~\"lab\", type==exam or start>=today", exitUsage)
			}
			items, err := callStore(ctx, "store.all_events", st.AllEvents)
			if err != nil {
				return failStore(p, err, "Run `mocal doctor` for remediation")
			}
			items, err = applyPredicates(items, preds, time.Now(), ro.loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Check --where field/operator/value", exitUsage)
			}
			if err := sortEvents(items, sortField, order); err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use --sort start|end|name|type and --order asc|desc", exitUsage)
			}
			if listLimit > 0 && len(items) > listLimit {
				items = items[:listLimit]
			}
			return successWithMeta(ctx, p, ro, items, map[string]any{"count": len(items)}, nil)
		},
	}
	list.Flags().IntVar(&listLimit, "limit", 0, "Limit results")
	list.Flags().StringSliceVar(&wheres, "where", nil, "Predicate clause on name|description|id|type|due|start|end (repeatable)")
	list.Flags().StringVar(&sortField, "sort", "start", "Sort field: start|end|name|type")
	list.Flags().StringVar(&order, "order", "asc", "Sort order: asc|desc")

	show := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.show")
			if err != nil {
				return err
			}
			defer st.Close()
			id, err := parseEventID(args[0])
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Event IDs are UUIDs", exitUsage)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			item, err := callStore(ctx, "store.get_event_by_id", func(ctx context.Context) (*contract.Event, error) {
				return st.GetEventByID(ctx, id)
			})
			if err != nil {
				return failStore(p, err, "Run `mocal doctor` for remediation")
			}
			return successWithMeta(ctx, p, ro, item, map[string]any{"count": 1}, nil)
		},
	}

	events.AddCommand(list, show, newEventsAddCmd(opts), newEventsUpdateCmd(opts), newEventsDeleteCmd(opts), newEventsExportCmd(opts), newEventsImportCmd(opts))
	return events
}

func newEventsAddCmd(opts *globalOptions) *cobra.Command {
	var name, start, end, duration, typeName, description, day string
	var assignment, dryRun bool
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an event or an assignment due date",
		Long: "Without --start the event starts on --day at the current hour, like a new entry\n" +
			"on the day screen. Events last one hour unless --end or --duration is given;\n" +
			"--assignment creates a due date with no end.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.add")
			if err != nil {
				return err
			}
			defer st.Close()
			now := time.Now().In(ro.loc)
			if assignment && (strings.TrimSpace(end) != "" || strings.TrimSpace(duration) != "") {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("--assignment has no end; drop --end and --duration"), "Assignments are due dates", exitUsage)
			}

			anchor, err := parseDay(day, now, ro.loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use --day as today, tomorrow, +Nd, or YYYY-MM-DD", exitUsage)
			}
			dl := session.NewDayList(st)
			defer dl.Close()
			dl.SetDate(anchor)

			var e contract.Event
			if assignment {
				e = dl.NewAssignment(now)
			} else {
				e = dl.NewEvent(now)
			}
			if strings.TrimSpace(start) != "" {
				startT, perr := timeparse.ParseDateTime(start, now, ro.loc)
				if perr != nil {
					return failWithHint(p, contract.ErrInvalidUsage, perr, "Invalid --start format", exitUsage)
				}
				e = e.WithStart(startT)
				if !e.IsDueDate() {
					defaultEnd := startT.Add(time.Hour)
					e = e.WithEnd(&defaultEnd)
				}
			}
			endT, err := resolveEnd(end, duration, e.Start, ro.loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use --end or --duration", exitUsage)
			}
			if endT != nil {
				e = e.WithEnd(endT)
			}
			if strings.TrimSpace(typeName) != "" {
				t, terr := contract.ParseEventType(typeName)
				if terr != nil {
					return failWithHint(p, contract.ErrInvalidUsage, terr, "Run `mocal types` for valid names", exitUsage)
				}
				e = e.WithType(t)
			}
			e = e.WithName(name).WithDescription(description)
			if err := session.ValidateEvent(e); err != nil {
				return failWithHint(p, contract.ErrValidation, err, "Pass --name", exitUsage)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			if dryRun {
				return successWithMeta(ctx, p, ro, e, map[string]any{"dry_run": true}, nil)
			}
			if err := execStore(ctx, "store.add_event", func(ctx context.Context) error {
				return dl.AddEvent(ctx, e)
			}); err != nil {
				return failStore(p, err, "Check --db path permissions")
			}
			ro.log.Debug("event added", "id", e.ID)
			return successWithMeta(ctx, p, ro, e, map[string]any{"count": 1}, nil)
		},
	}
	add.Flags().StringVar(&name, "name", "", "Event name")
	add.Flags().StringVar(&start, "start", "", "Start datetime (default: --day at the current hour)")
	add.Flags().StringVar(&end, "end", "", "End datetime")
	add.Flags().StringVar(&duration, "duration", "", "Duration (e.g. 90m)")
	add.Flags().StringVar(&typeName, "type", "", "Event type, see `mocal types`")
	add.Flags().StringVar(&description, "description", "", "Description")
	add.Flags().BoolVar(&assignment, "assignment", false, "Create an assignment due date with no end")
	add.Flags().StringVar(&day, "day", "today", "Day for the default start")
	add.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview without writing")
	return add
}

func newEventsUpdateCmd(opts *globalOptions) *cobra.Command {
	var name, description, typeName, date, startTime, endTime string
	var noEnd, dryRun bool
	update := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Edit an event; changes are written once when the edit ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.update")
			if err != nil {
				return err
			}
			defer st.Close()
			id, err := parseEventID(args[0])
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Event IDs are UUIDs", exitUsage)
			}
			if noEnd && cmd.Flags().Changed("end-time") {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("use either --end-time or --no-end, not both"), "Pick one", exitUsage)
			}
			now := time.Now().In(ro.loc)
			var newDate, newStart, newEnd time.Time
			var newType contract.EventType
			if cmd.Flags().Changed("date") {
				if newDate, err = timeparse.ParseDateTime(date, now, ro.loc); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, err, "Use --date as today, +Nd, or YYYY-MM-DD", exitUsage)
				}
			}
			if cmd.Flags().Changed("start-time") {
				if newStart, err = timeparse.ParseClock(startTime, now, ro.loc); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, err, "Use --start-time like 14:30 or 2:30PM", exitUsage)
				}
			}
			if cmd.Flags().Changed("end-time") {
				if newEnd, err = timeparse.ParseClock(endTime, now, ro.loc); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, err, "Use --end-time like 16:00 or 4PM", exitUsage)
				}
			}
			if cmd.Flags().Changed("type") {
				if newType, err = contract.ParseEventType(typeName); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, err, "Run `mocal types` for valid names", exitUsage)
				}
			}

			ctx, cancel := commandContext(ro)
			defer cancel()
			ed, err := callStore(ctx, "store.get_event_by_id", func(ctx context.Context) (*session.Editor, error) {
				return session.OpenEditor(ctx, st, id)
			})
			if err != nil {
				return failStore(p, err, "Run `mocal doctor` for remediation")
			}
			if !newDate.IsZero() {
				ed.SetDate(newDate)
			}
			if !newStart.IsZero() {
				ed.SetStartTime(newStart)
			}
			if !newEnd.IsZero() {
				ed.SetEndTime(newEnd)
			}
			if noEnd {
				ed.ClearEnd()
			}
			if cmd.Flags().Changed("name") {
				ed.SetName(name)
			}
			if cmd.Flags().Changed("description") {
				ed.SetDescription(description)
			}
			if newType != "" {
				ed.SetType(newType)
			}
			if !ed.Dirty() {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("no changes requested"), "Pass at least one of --name, --description, --type, --date, --start-time, --end-time, --no-end", exitUsage)
			}
			if dryRun {
				if err := ed.Validate(); err != nil {
					return failWithHint(p, contract.ErrValidation, err, "Pass a non-empty --name", exitUsage)
				}
				return successWithMeta(ctx, p, ro, ed.Event(), map[string]any{"dry_run": true}, nil)
			}
			if err := execStore(ctx, "store.update_event", ed.Save); err != nil {
				if errors.Is(err, session.ErrEmptyName) {
					return failWithHint(p, contract.ErrValidation, err, "Pass a non-empty --name", exitUsage)
				}
				return failStore(p, err, "Run `mocal doctor` for remediation")
			}
			return successWithMeta(ctx, p, ro, ed.Event(), map[string]any{"count": 1}, nil)
		},
	}
	update.Flags().StringVar(&name, "name", "", "Event name")
	update.Flags().StringVar(&description, "description", "", "Description")
	update.Flags().StringVar(&typeName, "type", "", "Event type, see `mocal types`")
	update.Flags().StringVar(&date, "date", "", "Move to this date, keeping times of day")
	update.Flags().StringVar(&startTime, "start-time", "", "New start time of day; the duration is kept")
	update.Flags().StringVar(&endTime, "end-time", "", "New end time of day; rolls to the next day when before the start")
	update.Flags().BoolVar(&noEnd, "no-end", false, "Turn the event into a due date")
	update.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview without writing")
	return update
}

func newEventsDeleteCmd(opts *globalOptions) *cobra.Command {
	var force, dryRun bool
	var confirm string
	deleteCmd := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.delete")
			if err != nil {
				return err
			}
			defer st.Close()
			id, err := parseEventID(args[0])
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Event IDs are UUIDs", exitUsage)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			ed, err := callStore(ctx, "store.get_event_by_id", func(ctx context.Context) (*session.Editor, error) {
				return session.OpenEditor(ctx, st, id)
			})
			if err != nil {
				return failStore(p, err, "Run `mocal doctor` for remediation")
			}
			if !force && confirm != args[0] {
				if !stdinInteractive() {
					err = errors.New("non-interactive delete requires --force or --confirm <event-id>")
					return failWithHint(p, contract.ErrInvalidUsage, err, "Add --confirm exactly matching the event ID", exitUsage)
				}
				ok, promptErr := promptConfirmID(os.Stdin, cmd.ErrOrStderr(), args[0])
				if promptErr != nil {
					return failWithHint(p, contract.ErrInvalidUsage, promptErr, "Use --force or --confirm <event-id> in non-interactive mode", exitUsage)
				}
				if !ok {
					err = errors.New("delete confirmation mismatch")
					return failWithHint(p, contract.ErrInvalidUsage, err, "Use --force, or retry and enter the exact event ID", exitUsage)
				}
			}
			item := ed.Event()
			if dryRun {
				return successWithMeta(ctx, p, ro, item, map[string]any{"dry_run": true}, nil)
			}
			if err := execStore(ctx, "store.remove_event", ed.Delete); err != nil {
				return failStore(p, err, "Delete failed; run `mocal doctor`")
			}
			_ = ed.Close(ctx)
			if p.EffectiveSuccessMode() == output.ModePlain && len(p.Fields) == 0 {
				p.Line("deleted %s %s", item.ID, item.Name)
				return nil
			}
			return successWithMeta(ctx, p, ro, map[string]any{"deleted": true, "id": item.ID, "name": item.Name}, map[string]any{"count": 1}, nil)
		},
	}
	deleteCmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without confirmation")
	deleteCmd.Flags().StringVar(&confirm, "confirm", "", "Confirm exact event ID")
	deleteCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview without writing")
	return deleteCmd
}

func parseEventID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid event id %q: %w", raw, err)
	}
	return id, nil
}
