package violation

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kolkov/lifetime/internal/lifetime/aliasset"
	"github.com/kolkov/lifetime/internal/lifetime/stackdepot"
)

func danglingSnapshot() Snapshot {
	return Snapshot{
		Group:   4,
		Handle:  10,
		Owner:   10,
		Mutator: 12,
		Aliases: []aliasset.Alias{{ID: 11}, {ID: 12, Site: stackdepot.CaptureStack(0)}},
	}
}

// TestKind_Fatal verifies only dangling aliases are fatal.
func TestKind_Fatal(t *testing.T) {
	for k := KindAccessViolation; k <= KindReleased; k++ {
		if got, want := k.Fatal(), k == KindDanglingAlias; got != want {
			t.Errorf("%s.Fatal() = %v, want %v", k, got, want)
		}
		if k.Describe() == "unknown violation" {
			t.Errorf("%s has no description", k)
		}
	}
	if got := Kind(0).String(); got != "kind(0)" {
		t.Errorf("Kind(0).String() = %q", got)
	}
}

// TestNewReport_Fields verifies snapshot fields, alias sites and the dedup key.
func TestNewReport_Fields(t *testing.T) {
	r := NewReport(KindDanglingAlias, "Drop", danglingSnapshot(), false)

	if r.Group != 4 || r.Handle != 10 || r.Owner != 10 || r.Mutator != 12 {
		t.Errorf("unexpected ids: %+v", r)
	}
	if r.AliasCount != 2 || len(r.Aliases) != 2 {
		t.Fatalf("AliasCount=%d len=%d, want 2", r.AliasCount, len(r.Aliases))
	}
	if len(r.Aliases[0].Site) != 0 {
		t.Error("alias without site should resolve to no frames")
	}
	if len(r.Aliases[1].Site) == 0 {
		t.Error("alias with captured site should resolve frames")
	}
	if r.DedupKey != "dangling-alias-on-owner-release:Drop:4:10" {
		t.Errorf("DedupKey = %q", r.DedupKey)
	}
	if len(r.Stack) == 0 {
		t.Error("fatal report should capture the offending stack")
	}
}

// TestNewReport_NoStackForNonFatal verifies stacks are optional for recoverable kinds.
func TestNewReport_NoStackForNonFatal(t *testing.T) {
	r := NewReport(KindBorrowConflict, "BorrowMutable", Snapshot{Group: 1, Handle: 1, Owner: 1}, false)
	if len(r.Stack) != 0 {
		t.Errorf("non-fatal report captured %d frames", len(r.Stack))
	}

	r = NewReport(KindBorrowConflict, "BorrowMutable", Snapshot{Group: 1, Handle: 1, Owner: 1}, true)
	if len(r.Stack) == 0 {
		t.Error("captureStack=true should capture frames")
	}
	if !strings.Contains(r.Stack[0].Function, "TestNewReport_NoStackForNonFatal") {
		t.Errorf("first frame = %q, want the test function", r.Stack[0].Function)
	}
}

// TestReport_Format verifies the framed layout.
func TestReport_Format(t *testing.T) {
	out := NewReport(KindDanglingAlias, "Drop", danglingSnapshot(), false).String()

	for _, want := range []string{
		"==================\n",
		"LIFETIME VIOLATION: owner released while aliases remain",
		"Drop on cell#10 (group#4):",
		"Owner: cell#10  Mutator: cell#12",
		"Live aliases (2):",
		"cell#11 (creation site not captured)",
		"cell#12 created at:",
		"Suggestion: drop every alias before the owner",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

// TestReport_Error verifies the one-line error form.
func TestReport_Error(t *testing.T) {
	r := NewReport(KindAccessViolation, "Set", Snapshot{Group: 2, Handle: 3, Owner: 1}, false)
	want := "lifetime: mutation without ownership or a mutable borrow (Set on cell#3, group#2)"
	if r.Error() != want {
		t.Errorf("Error() = %q, want %q", r.Error(), want)
	}
}

// TestParsePolicy covers names and defaults.
func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{"": PolicyPanic, "panic": PolicyPanic, " Report ": PolicyReport}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("ignore"); err == nil {
		t.Error("ParsePolicy(ignore) should fail")
	}
}

// TestReporter_Dedup verifies repeated non-fatal reports are recorded once.
func TestReporter_Dedup(t *testing.T) {
	rep := NewReporter(Options{Logger: zerolog.Nop(), Policy: PolicyReport, Dedup: true})

	snap := Snapshot{Group: 1, Handle: 2, Owner: 1}
	rep.Report(NewReport(KindBorrowConflict, "BorrowMutable", snap, false))
	rep.Report(NewReport(KindBorrowConflict, "BorrowMutable", snap, false))
	rep.Report(NewReport(KindAccessViolation, "Set", snap, false))

	if got := rep.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

// TestReporter_NoDedup verifies every report is recorded when dedup is off.
func TestReporter_NoDedup(t *testing.T) {
	rep := NewReporter(Options{Logger: zerolog.Nop(), Policy: PolicyReport})

	snap := Snapshot{Group: 1, Handle: 2, Owner: 1}
	for range 3 {
		rep.Report(NewReport(KindBorrowConflict, "BorrowMutable", snap, false))
	}
	if got := rep.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}

// TestReporter_FatalPanics verifies PolicyPanic panics with the report after logging it.
func TestReporter_FatalPanics(t *testing.T) {
	var logs, out bytes.Buffer
	rep := NewReporter(Options{Logger: zerolog.New(&logs), Policy: PolicyPanic, Out: &out})
	r := NewReport(KindDanglingAlias, "Drop", danglingSnapshot(), false)

	defer func() {
		got := recover()
		if got != r {
			t.Fatalf("recovered %v, want the report", got)
		}
		if !strings.Contains(out.String(), "LIFETIME VIOLATION") {
			t.Errorf("fatal report not written before panic:\n%s", out.String())
		}
		var entry map[string]any
		if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if entry["level"] != "error" || entry["kind"] != "dangling-alias-on-owner-release" {
			t.Errorf("unexpected log entry: %v", entry)
		}
	}()
	rep.Report(r)
	t.Fatal("Report did not panic under PolicyPanic")
}

// TestReporter_FatalReportPolicy verifies PolicyReport records without panicking.
func TestReporter_FatalReportPolicy(t *testing.T) {
	rep := NewReporter(Options{Logger: zerolog.Nop(), Policy: PolicyReport})
	rep.Report(NewReport(KindDanglingAlias, "Drop", danglingSnapshot(), false))

	if got := rep.Reports(); len(got) != 1 || got[0].Kind != KindDanglingAlias {
		t.Errorf("Reports() = %v", got)
	}
}

// TestReporter_HistoryBound verifies the oldest reports are evicted.
func TestReporter_HistoryBound(t *testing.T) {
	rep := NewReporter(Options{Logger: zerolog.Nop(), Policy: PolicyReport, History: 2})
	for h := uint64(1); h <= 3; h++ {
		rep.Report(NewReport(KindAccessViolation, "Set", Snapshot{Group: 1, Handle: h, Owner: 9}, false))
	}

	got := rep.Reports()
	if len(got) != 2 || got[0].Handle != 2 || got[1].Handle != 3 {
		t.Errorf("history = %+v, want handles 2 and 3", got)
	}
	if rep.Count() != 3 {
		t.Errorf("Count() = %d, want 3", rep.Count())
	}

	rep.Reset()
	if rep.Count() != 0 || len(rep.Reports()) != 0 {
		t.Error("Reset left state behind")
	}
}

// TestDump_RoundTrip verifies msgpack dumps decode to the same reports.
func TestDump_RoundTrip(t *testing.T) {
	rep := NewReporter(Options{Logger: zerolog.Nop(), Policy: PolicyReport})
	rep.Report(NewReport(KindDanglingAlias, "Drop", danglingSnapshot(), false))
	rep.Report(NewReport(KindNotOwner, "MoveTo", Snapshot{Group: 4, Handle: 11, Owner: 10}, false))

	var buf bytes.Buffer
	if err := rep.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("decoded %d reports, want 2", len(got))
	}
	if got[0].Kind != KindDanglingAlias || got[0].AliasCount != 2 || len(got[0].Aliases[1].Site) == 0 {
		t.Errorf("first report lost fields: %+v", got[0])
	}
	if got[1].Kind != KindNotOwner || got[1].DedupKey != "not-owner:MoveTo:4:11" {
		t.Errorf("second report lost fields: %+v", got[1])
	}
}

// TestDecode_Garbage verifies decode errors are wrapped.
func TestDecode_Garbage(t *testing.T) {
	_, err := Decode(strings.NewReader("\xc1"))
	if err == nil || !strings.Contains(err.Error(), "decode violation reports") {
		t.Errorf("Decode(garbage) err = %v", err)
	}
}
