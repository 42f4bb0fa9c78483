package app

import (
	"testing"
	"time"

	"github.com/agis/mocal/internal/contract"
)

func TestParsePredicates(t *testing.T) {
	preds, err := parsePredicates([]string{"name~lab", "type==exam", "start>=2026-02-08"})
	if err != nil {
		t.Fatalf("parsePredicates error: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("expected 3 predicates, got %d", len(preds))
	}
	if preds[0].field != "name" || preds[0].op != "~" || preds[0].value != "lab" {
		t.Fatalf("unexpected first predicate: %+v", preds[0])
	}
	if preds[2].op != ">=" || preds[2].value != "2026-02-08" {
		t.Fatalf("expected >= to win over >, got %+v", preds[2])
	}
}

func TestParsePredicatesInvalid(t *testing.T) {
	for _, in := range []string{"badclause", "==x", "name=="} {
		if _, err := parsePredicates([]string{in}); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestApplyPredicates(t *testing.T) {
	now := mustRFC3339(t, "2026-02-08T09:00:00Z")
	end := mustRFC3339(t, "2026-02-08T12:00:00Z")
	items := []contract.Event{
		{Name: "Chem Lab", Type: contract.TypeLab, Start: mustRFC3339(t, "2026-02-08T10:00:00Z"), End: &end},
		{Name: "Lab report", Type: contract.TypeAssignment, Start: mustRFC3339(t, "2026-02-09T23:59:00Z")},
	}
	cases := []struct {
		wheres []string
		want   []string
	}{
		{[]string{"name~lab"}, []string{"Chem Lab", "Lab report"}},
		{[]string{"name~lab", "type==lab"}, []string{"Chem Lab"}},
		{[]string{"due==true"}, []string{"Lab report"}},
		{[]string{"end<=2026-02-08T12:00:00Z"}, []string{"Chem Lab"}},
		{[]string{"start>2026-02-09T00:00:00Z"}, []string{"Lab report"}},
	}
	for _, tc := range cases {
		preds, err := parsePredicates(tc.wheres)
		if err != nil {
			t.Fatalf("parsePredicates(%v) error: %v", tc.wheres, err)
		}
		got, err := applyPredicates(items, preds, now, time.Local)
		if err != nil {
			t.Fatalf("applyPredicates(%v) error: %v", tc.wheres, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%v: got=%d want=%d", tc.wheres, len(got), len(tc.want))
		}
		for i := range got {
			if got[i].Name != tc.want[i] {
				t.Fatalf("%v[%d]: got=%q want=%q", tc.wheres, i, got[i].Name, tc.want[i])
			}
		}
	}
}

func TestParsePredicatesRejectsUnknownField(t *testing.T) {
	if _, err := parsePredicates([]string{"location==home"}); err == nil {
		t.Fatalf("expected error for unsupported field")
	}
}

func TestApplyPredicatesRejectsBadValue(t *testing.T) {
	preds, err := parsePredicates([]string{"due==maybe"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := applyPredicates([]contract.Event{{Name: "x"}}, preds, time.Now(), time.Local); err == nil {
		t.Fatalf("expected error for non-boolean due value")
	}
}

func TestSortEvents(t *testing.T) {
	items := []contract.Event{
		{Name: "b", Start: mustRFC3339(t, "2026-02-08T22:00:00+01:00")},
		{Name: "A", Start: mustRFC3339(t, "2026-02-08T10:00:00+01:00")},
	}
	if err := sortEvents(items, "name", "asc"); err != nil {
		t.Fatal(err)
	}
	if items[0].Name != "A" {
		t.Fatalf("expected A first, got %s", items[0].Name)
	}
	if err := sortEvents(items, "start", "desc"); err != nil {
		t.Fatal(err)
	}
	if items[0].Name != "b" {
		t.Fatalf("expected b first, got %s", items[0].Name)
	}
	if err := sortEvents(items, "title", "asc"); err == nil {
		t.Fatalf("expected invalid sort field error")
	}
}

func mustRFC3339(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("time parse failed: %v", err)
	}
	return v
}
