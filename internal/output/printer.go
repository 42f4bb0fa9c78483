package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/dateutil"
	humanize "github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeJSON  Mode = "json"
	ModeJSONL Mode = "jsonl"
	ModePlain Mode = "plain"
)

type Printer struct {
	Mode          Mode
	Command       string
	Fields        []string
	Quiet         bool
	SchemaVersion string
	Out           io.Writer
	Err           io.Writer
	// Now anchors relative times in plain output. Defaults to time.Now.
	Now func() time.Time
}

// EffectiveSuccessMode resolves auto: plain on a terminal, JSON otherwise.
func (p Printer) EffectiveSuccessMode() Mode {
	if p.Mode != ModeAuto && p.Mode != "" {
		return p.Mode
	}
	if f, ok := p.out().(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return ModePlain
	}
	return ModeJSON
}

func (p Printer) Success(data any, meta map[string]any, warnings []string) error {
	switch p.EffectiveSuccessMode() {
	case ModeJSON:
		if warnings == nil {
			warnings = []string{}
		}
		env := contract.SuccessEnvelope{
			SchemaVersion: p.schemaVersion(),
			Command:       p.Command,
			GeneratedAt:   time.Now().UTC(),
			Data:          data,
			Meta:          meta,
			Warnings:      warnings,
		}
		enc := json.NewEncoder(p.out())
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case ModeJSONL:
		enc := json.NewEncoder(p.out())
		v := reflect.ValueOf(data)
		if v.IsValid() && v.Kind() == reflect.Slice {
			for i := 0; i < v.Len(); i++ {
				if err := enc.Encode(v.Index(i).Interface()); err != nil {
					return err
				}
			}
			return nil
		}
		return enc.Encode(data)
	default:
		return p.printPlain(data, warnings)
	}
}

func (p Printer) Error(code contract.ErrorCode, message, hint string) error {
	return p.ErrorWithMeta(code, message, hint, nil)
}

// ErrorWithMeta is Error with extra machine-readable context. Plain output
// drops meta.
func (p Printer) ErrorWithMeta(code contract.ErrorCode, message, hint string, meta map[string]any) error {
	if p.Mode == ModeJSON || p.Mode == ModeJSONL {
		env := contract.ErrorEnvelope{
			SchemaVersion: p.schemaVersion(),
			Command:       p.Command,
			Error:         contract.ErrorBody{Code: code, Message: message, Hint: hint},
			Meta:          meta,
		}
		enc := json.NewEncoder(p.err())
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	if hint != "" {
		_, _ = fmt.Fprintf(p.err(), "error: %s\nhint: %s\n", message, hint)
		return nil
	}
	_, _ = fmt.Fprintf(p.err(), "error: %s\n", message)
	return nil
}

// Line writes one plain line unless quiet. Streams use it for headers.
func (p Printer) Line(format string, args ...any) {
	if p.Quiet {
		return
	}
	_, _ = fmt.Fprintf(p.out(), format+"\n", args...)
}

func (p Printer) schemaVersion() string {
	if p.SchemaVersion == "" {
		return contract.SchemaVersion
	}
	return p.SchemaVersion
}

func (p Printer) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

func (p Printer) err() io.Writer {
	if p.Err == nil {
		return os.Stderr
	}
	return p.Err
}

func (p Printer) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p Printer) printPlain(data any, warnings []string) error {
	for _, w := range warnings {
		_, _ = fmt.Fprintf(p.err(), "warning: %s\n", w)
	}
	v := reflect.ValueOf(data)
	if !v.IsValid() || (v.Kind() == reflect.Slice && v.Len() == 0) {
		if !p.Quiet {
			_, _ = fmt.Fprintln(p.out(), "no results")
		}
		return nil
	}
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			if _, err := fmt.Fprintln(p.out(), p.plainLine(v.Index(i).Interface())); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(p.out(), p.plainLine(data))
	return err
}

func (p Printer) plainLine(v any) string {
	if len(p.Fields) > 0 {
		return flatten(v, p.Fields)
	}
	switch x := v.(type) {
	case contract.Event:
		return EventLine(x, p.now())
	case *contract.Event:
		return EventLine(*x, p.now())
	case contract.EventTypeRow:
		return strings.Join([]string{string(x.Name), x.Label, x.Icon}, "\t")
	case contract.DoctorCheck:
		return strings.Join([]string{x.Status, x.Name, x.Message}, "\t")
	}
	return flatten(v, nil)
}

// EventLine renders one event as tab separated columns: id, when, type
// label, name and the start relative to now.
func EventLine(e contract.Event, now time.Time) string {
	return strings.Join([]string{
		e.ID.String(),
		When(e),
		e.Type.Label(),
		e.Name,
		humanize.RelTime(e.Start, now, "ago", "from now"),
	}, "\t")
}

// When is the human time range of an event. Due dates show a single
// instant.
func When(e contract.Event) string {
	start := dateutil.DateString(e.Start) + " " + dateutil.TimeString(e.Start)
	if e.End == nil {
		return "due " + start
	}
	end := dateutil.TimeString(*e.End)
	if !dateutil.ClearTime(*e.End).Equal(dateutil.ClearTime(e.Start)) {
		end = dateutil.DateString(*e.End) + " " + end
	}
	return start + " - " + end
}

func flatten(v any, fields []string) string {
	if len(fields) == 0 {
		b, _ := json.Marshal(v)
		return string(b)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		b, _ := json.Marshal(v)
		return string(b)
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		fv := rv.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, strings.ReplaceAll(f, "_", "")) || strings.EqualFold(name, f)
		})
		parts = append(parts, fieldString(fv))
	}
	return strings.Join(parts, "\t")
}

func fieldString(fv reflect.Value) string {
	if !fv.IsValid() {
		return ""
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return ""
		}
		fv = fv.Elem()
	}
	if t, ok := fv.Interface().(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(fv.Interface())
}
