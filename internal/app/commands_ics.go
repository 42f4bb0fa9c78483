package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/dateutil"
	"github.com/agis/mocal/internal/output"
	"github.com/agis/mocal/internal/store"
	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const icsProductID = "-//mocal//EN"

func newEventsExportCmd(opts *globalOptions) *cobra.Command {
	var day, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events to ICS",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "events.export")
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, cancel := commandContext(ro)
			defer cancel()

			var items []contract.Event
			if strings.TrimSpace(day) != "" {
				anchor, perr := parseDay(day, time.Now(), ro.loc)
				if perr != nil {
					return failWithHint(p, contract.ErrInvalidUsage, perr, "Use --day as today, tomorrow, +Nd, or YYYY-MM-DD", exitUsage)
				}
				items, err = callStore(ctx, "store.events_on_day", func(ctx context.Context) ([]contract.Event, error) {
					return st.EventsOnDay(ctx, dateutil.ClearTime(anchor))
				})
			} else {
				items, err = callStore(ctx, "store.all_events", st.AllEvents)
			}
			if err != nil {
				return failStore(p, err, "Run `mocal doctor` for remediation")
			}
			ics := buildICS(items, time.Now())
			meta := map[string]any{"count": len(items)}
			if strings.TrimSpace(outPath) != "" {
				if err := os.WriteFile(outPath, []byte(ics), 0o644); err != nil {
					return failWithHint(p, contract.ErrGeneric, err, "Check destination path permissions", exitGeneric)
				}
				return successWithMeta(ctx, p, ro, map[string]any{"path": outPath, "events": len(items)}, meta, nil)
			}
			if m := p.EffectiveSuccessMode(); m == output.ModeJSON || m == output.ModeJSONL {
				return successWithMeta(ctx, p, ro, map[string]any{"ics": ics, "events": len(items)}, meta, nil)
			}
			_, _ = fmt.Fprint(c.OutOrStdout(), ics)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "Only events touching this day (default all)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")
	return cmd
}

func newEventsImportCmd(opts *globalOptions) *cobra.Command {
	var filePath string
	var dryRun, strict bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import events from ICS",
		Long: "Each VEVENT becomes one event. A UID that is a UUID is kept as the event ID;\n" +
			"other UIDs map to a stable derived ID, so importing the same file twice updates\n" +
			"the events instead of duplicating them. A VEVENT without DTEND is a due date.",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "events.import")
			if err != nil {
				return err
			}
			defer st.Close()
			if strings.TrimSpace(filePath) == "" {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("--file is required"), "Pass --file <path> or --file - for stdin", exitUsage)
			}
			raw, err := readTextInput(c.InOrStdin(), filePath)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Check --file path or stdin data", exitUsage)
			}
			items, warnings, err := parseICS(raw, ro.loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Validate the ICS content", exitUsage)
			}
			if len(items) == 0 {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("no importable VEVENT entries"), "Validate ICS content and DTSTART fields", exitUsage)
			}
			if strict && len(warnings) > 0 {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("strict import rejected warnings"), "Fix ICS warnings or omit --strict", exitUsage)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			if dryRun {
				return successWithMeta(ctx, p, ro, items, map[string]any{"count": len(items), "dry_run": true, "warnings": len(warnings)}, warnings)
			}
			created, updated := 0, 0
			for _, e := range items {
				isNew, ierr := upsertEvent(ctx, st, e)
				if ierr != nil {
					return failStore(p, ierr, "Import failed; retry with --dry-run for diagnostics")
				}
				if isNew {
					created++
				} else {
					updated++
				}
			}
			ro.log.Debug("import finished", "created", created, "updated", updated, "warnings", len(warnings))
			meta := map[string]any{"count": len(items), "created": created, "updated": updated, "warnings": len(warnings)}
			return successWithMeta(ctx, p, ro, items, meta, warnings)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "ICS file path or - for stdin")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview import without writing")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat parser warnings as errors")
	return cmd
}

func upsertEvent(ctx context.Context, st store.Store, e contract.Event) (bool, error) {
	_, err := callStore(ctx, "store.get_event_by_id", func(ctx context.Context) (*contract.Event, error) {
		return st.GetEventByID(ctx, e.ID)
	})
	switch {
	case err == nil:
		return false, execStore(ctx, "store.update_event", func(ctx context.Context) error {
			return st.UpdateEvent(ctx, e)
		})
	case errors.Is(err, store.ErrNotFound):
		return true, execStore(ctx, "store.add_event", func(ctx context.Context) error {
			return st.AddEvent(ctx, e)
		})
	default:
		return false, err
	}
}

func buildICS(items []contract.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(icsProductID)
	cal.SetMethod(ical.MethodPublish)
	for _, e := range items {
		ev := cal.AddEvent(e.ID.String())
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(e.Start.UTC())
		if e.End != nil {
			ev.SetEndAt(e.End.UTC())
		}
		if strings.TrimSpace(e.Name) != "" {
			ev.SetSummary(e.Name)
		}
		if strings.TrimSpace(e.Description) != "" {
			ev.SetDescription(e.Description)
		}
		ev.SetProperty(ical.ComponentPropertyCategories, icsCategory(e.Type))
	}
	return cal.Serialize()
}

func parseICS(raw []byte, loc *time.Location) ([]contract.Event, []string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, errors.New("empty ICS input")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse ICS: %w", err)
	}
	items := make([]contract.Event, 0)
	warnings := make([]string, 0)
	for _, ve := range cal.Events() {
		e, warns, ok := eventFromVEvent(ve, loc)
		warnings = append(warnings, warns...)
		if ok {
			items = append(items, e)
		}
	}
	return items, warnings, nil
}

// eventFromVEvent converts one VEVENT. Every problem found adds a warning;
// ok is false when the entry cannot be imported at all.
func eventFromVEvent(ve *ical.VEvent, loc *time.Location) (e contract.Event, warns []string, ok bool) {
	var uid string
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		uid = strings.TrimSpace(p.Value)
	}
	if uid == "" {
		return contract.Event{}, []string{"skipped VEVENT without UID"}, false
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return contract.Event{}, []string{fmt.Sprintf("skipped VEVENT %s: invalid DTSTART", uid)}, false
	}
	e = contract.Event{ID: importID(uid), Start: start.In(loc), Type: contract.TypeGeneric}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		e.Name = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		e.Description = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		first := strings.TrimSpace(strings.SplitN(p.Value, ",", 2)[0])
		if t, terr := contract.ParseEventType(first); terr == nil {
			e.Type = t
		} else if first != "" {
			warns = append(warns, fmt.Sprintf("VEVENT %s: unknown category %q imported as %s", uid, first, contract.TypeGeneric))
		}
	}
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		end, eerr := ve.GetEndAt()
		if eerr != nil || end.Before(start) {
			return contract.Event{}, append(warns, fmt.Sprintf("skipped VEVENT %s: invalid DTEND", uid)), false
		}
		end = end.In(loc)
		e.End = &end
	}
	if e.Name == "" {
		e.Name = "Untitled"
		warns = append(warns, fmt.Sprintf("VEVENT %s has no SUMMARY; named Untitled", uid))
	}
	return e, warns, true
}

// importID keeps UUID UIDs and derives a stable ID from anything else.
func importID(uid string) uuid.UUID {
	if id, err := uuid.Parse(uid); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(uid))
}

func icsCategory(t contract.EventType) string {
	if t == "" {
		return string(contract.TypeGeneric)
	}
	return string(t)
}
