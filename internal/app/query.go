package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/timeparse"
)

// predicate is one --where clause such as name~lab or start>=today.
type predicate struct {
	field string
	op    string
	value string
}

var predicateFields = map[string]bool{
	"name": true, "description": true, "id": true, "type": true,
	"due": true, "start": true, "end": true,
}

func parsePredicates(wheres []string) ([]predicate, error) {
	out := make([]predicate, 0, len(wheres))
	ops := []string{"==", "!=", ">=", "<=", "~", ">", "<"}
	for _, w := range wheres {
		s := strings.TrimSpace(w)
		if s == "" {
			continue
		}
		op, idx := "", -1
		for _, candidate := range ops {
			if i := strings.Index(s, candidate); i > 0 && (idx < 0 || i < idx) {
				op, idx = candidate, i
			}
		}
		if op == "" {
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		field := strings.TrimSpace(s[:idx])
		val := strings.Trim(strings.TrimSpace(s[idx+len(op):]), "\"")
		if field == "" || val == "" {
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		field = strings.ToLower(field)
		if !predicateFields[field] {
			return nil, fmt.Errorf("unsupported field in --where: %s", field)
		}
		out = append(out, predicate{field: field, op: op, value: val})
	}
	return out, nil
}

func applyPredicates(items []contract.Event, preds []predicate, now time.Time, loc *time.Location) ([]contract.Event, error) {
	filtered := make([]contract.Event, 0, len(items))
	for _, e := range items {
		ok, err := matchesAll(e, preds, now, loc)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func matchesAll(e contract.Event, preds []predicate, now time.Time, loc *time.Location) (bool, error) {
	for _, p := range preds {
		ok, err := matchesOne(e, p, now, loc)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchesOne(e contract.Event, p predicate, now time.Time, loc *time.Location) (bool, error) {
	switch p.field {
	case "name":
		return compareString(e.Name, p.op, p.value)
	case "description":
		return compareString(e.Description, p.op, p.value)
	case "id":
		return compareString(e.ID.String(), p.op, p.value)
	case "type":
		t, err := contract.ParseEventType(p.value)
		if err != nil {
			return false, err
		}
		return compareString(string(e.Type), p.op, string(t))
	case "due":
		want, err := strconv.ParseBool(p.value)
		if err != nil {
			return false, fmt.Errorf("due predicate expects true or false, got %q", p.value)
		}
		return compareBool(e.IsDueDate(), p.op, want)
	case "start":
		return compareTime(e.Start, p.op, p.value, now, loc)
	case "end":
		if e.End == nil {
			return false, nil
		}
		return compareTime(*e.End, p.op, p.value, now, loc)
	default:
		return false, fmt.Errorf("unsupported field in --where: %s", p.field)
	}
}

func compareString(actual, op, expected string) (bool, error) {
	a := strings.ToLower(actual)
	e := strings.ToLower(expected)
	switch op {
	case "==":
		return a == e, nil
	case "!=":
		return a != e, nil
	case "~":
		return strings.Contains(a, e), nil
	default:
		return false, fmt.Errorf("operator %s not supported for string fields", op)
	}
}

func compareBool(actual bool, op string, expected bool) (bool, error) {
	switch op {
	case "==":
		return actual == expected, nil
	case "!=":
		return actual != expected, nil
	default:
		return false, fmt.Errorf("operator %s not supported for due", op)
	}
}

// compareTime accepts RFC3339, YYYY-MM-DD[ HH:MM] and relative days.
func compareTime(actual time.Time, op, expected string, now time.Time, loc *time.Location) (bool, error) {
	parsed, err := timeparse.ParseDateTime(expected, now, loc)
	if err != nil {
		return false, fmt.Errorf("time predicate: %w", err)
	}
	switch op {
	case "==":
		return actual.Equal(parsed), nil
	case "!=":
		return !actual.Equal(parsed), nil
	case ">":
		return actual.After(parsed), nil
	case ">=":
		return !actual.Before(parsed), nil
	case "<":
		return actual.Before(parsed), nil
	case "<=":
		return !actual.After(parsed), nil
	default:
		return false, fmt.Errorf("operator %s not supported for time fields", op)
	}
}

// sortEvents orders items by field; ties keep their store order. Due dates
// sort by start when ordering by end.
func sortEvents(items []contract.Event, sortField, order string) error {
	var less func(a, b contract.Event) bool
	switch strings.ToLower(strings.TrimSpace(sortField)) {
	case "", "start":
		less = func(a, b contract.Event) bool { return a.Start.Before(b.Start) }
	case "end":
		less = func(a, b contract.Event) bool { return endOrStart(a).Before(endOrStart(b)) }
	case "name":
		less = func(a, b contract.Event) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "type":
		less = func(a, b contract.Event) bool { return a.Type < b.Type }
	default:
		return fmt.Errorf("invalid --sort: %s", sortField)
	}
	desc := false
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return fmt.Errorf("invalid --order: %s", order)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
	return nil
}

func endOrStart(e contract.Event) time.Time {
	if e.End != nil {
		return *e.End
	}
	return e.Start
}
