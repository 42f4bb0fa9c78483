package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/dateutil"
	"github.com/agis/mocal/internal/output"
	"github.com/agis/mocal/internal/session"
	"github.com/agis/mocal/internal/store"
	"github.com/spf13/cobra"
)

func newDayCmd(opts *globalOptions) *cobra.Command {
	var day string
	var watch bool
	var updates int
	cmd := &cobra.Command{
		Use:   "day",
		Short: "List events touching a day (defaults to today)",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "day")
			if err != nil {
				return err
			}
			defer st.Close()
			anchor, err := parseDay(day, time.Now(), ro.loc)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use --day as today, tomorrow, +Nd, or YYYY-MM-DD", exitUsage)
			}
			start := dateutil.ClearTime(anchor)
			meta := dayMeta(start)
			if watch {
				return watchDay(c.Context(), p, st, ro, start, updates)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			items, err := callStore(ctx, "store.events_on_day", func(ctx context.Context) ([]contract.Event, error) {
				return st.EventsOnDay(ctx, start)
			})
			if err != nil {
				return failStore(p, err, "Run `mocal doctor` for remediation")
			}
			meta["count"] = len(items)
			if p.EffectiveSuccessMode() == output.ModePlain && len(p.Fields) == 0 {
				p.Line("%s", dateutil.FullDateString(start))
			}
			return successWithMeta(ctx, p, ro, items, meta, nil)
		},
	}
	cmd.Flags().StringVar(&day, "day", "today", "Day selector")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Print a fresh list after every change until interrupted")
	cmd.Flags().IntVar(&updates, "updates", 0, "With --watch, exit after this many lists (0 = until interrupted)")
	return cmd
}

func dayMeta(start time.Time) map[string]any {
	from, to := dateutil.DayWindow(start)
	return map[string]any{
		"view": "day",
		"day":  start.Format("2006-01-02"),
		"from": from.Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	}
}

// watchDay follows the selected day through a DayList and prints each list
// it publishes. It stops on interrupt, when parent ends, or after limit
// lists when limit is positive.
func watchDay(parent context.Context, p output.Printer, st store.Store, ro *globalOptions, day time.Time, limit int) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	list := session.NewDayList(st)
	defer list.Close()
	list.SetDate(day)
	ro.log.Debug("watching day", "day", day.Format("2006-01-02"))

	// Each list is a standalone document so a consumer can read line by line.
	if p.EffectiveSuccessMode() == output.ModeJSON {
		p.Mode = output.ModeJSONL
	}
	plain := p.EffectiveSuccessMode() == output.ModePlain && len(p.Fields) == 0
	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-list.Errors():
			logRefreshError(ro, day, err)
		case items := <-list.Updates():
			// a failure published before this list is logged ahead of it
			select {
			case err := <-list.Errors():
				logRefreshError(ro, day, err)
			default:
			}
			if plain {
				p.Line("%s (%d)", dateutil.FullDateString(day), len(items))
			}
			if p.EffectiveSuccessMode() == output.ModeJSONL {
				if err := p.Success(dayUpdate{Day: day.Format("2006-01-02"), Events: items}, nil, nil); err != nil {
					return err
				}
			} else if err := p.Success(items, nil, nil); err != nil {
				return err
			}
			printed++
			if limit > 0 && printed >= limit {
				return nil
			}
		}
	}
}

func logRefreshError(ro *globalOptions, day time.Time, err error) {
	ro.log.Warn("day refresh failed", "day", day.Format("2006-01-02"), "err", err)
}

type dayUpdate struct {
	Day    string           `json:"day"`
	Events []contract.Event `json:"events"`
}
