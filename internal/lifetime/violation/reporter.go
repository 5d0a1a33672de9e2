package violation

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/kolkov/lifetime/internal/observability"
)

// Policy decides what happens after a fatal violation has been reported.
type Policy uint8

const (
	// PolicyPanic panics with the report. This is the default.
	PolicyPanic Policy = iota
	// PolicyReport logs and records the report; the caller still gets
	// the fatal error returned by the failing operation.
	PolicyReport
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyPanic:
		return "panic"
	case PolicyReport:
		return "report"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParsePolicy parses "panic" or "report" (case-insensitive).
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "panic":
		return PolicyPanic, nil
	case "report":
		return PolicyReport, nil
	default:
		return PolicyPanic, fmt.Errorf("unknown violation policy %q (want panic or report)", raw)
	}
}

// DefaultHistory is the number of reports a Reporter keeps by default.
const DefaultHistory = 256

// Options configures a Reporter.
type Options struct {
	Logger zerolog.Logger
	Policy Policy

	// Dedup suppresses repeated non-fatal reports with the same DedupKey.
	Dedup bool

	// Out receives the framed text of fatal reports. Nil disables it.
	Out io.Writer

	// Color highlights the framed text written to Out.
	Color bool

	// History bounds the kept reports; 0 means DefaultHistory.
	History int
}

// Reporter is the sink for every violation raised by the cell runtime.
type Reporter struct {
	logger zerolog.Logger
	policy Policy
	dedup  bool
	out    io.Writer
	color  bool
	keep   int

	// reported holds DedupKeys already reported (string -> struct{}).
	reported sync.Map

	// mu serializes output and protects count and history.
	mu      sync.Mutex
	count   int
	history []*Report
}

// NewReporter creates a Reporter.
func NewReporter(opts Options) *Reporter {
	keep := opts.History
	if keep <= 0 {
		keep = DefaultHistory
	}
	return &Reporter{
		logger: opts.Logger,
		policy: opts.Policy,
		dedup:  opts.Dedup,
		out:    opts.Out,
		color:  opts.Color,
		keep:   keep,
	}
}

// Policy returns the fatal policy.
func (r *Reporter) Policy() Policy {
	return r.policy
}

// Logger returns the reporter's logger.
func (r *Reporter) Logger() zerolog.Logger {
	return r.logger
}

// Report records one violation.
//
// Flow:
//  1. Count it in the violations metric (duplicates included)
//  2. Drop it if it is a non-fatal duplicate and dedup is on
//  3. Append to history, write fatal reports to Out
//  4. Log it (error level for fatal kinds, warn otherwise)
//  5. Panic with the report if it is fatal and the policy is PolicyPanic
func (r *Reporter) Report(rep *Report) {
	observability.RecordViolation(rep.Kind.String())

	fatal := rep.Kind.Fatal()
	if r.dedup && !fatal {
		if _, dup := r.reported.LoadOrStore(rep.DedupKey, struct{}{}); dup {
			return
		}
	}

	r.mu.Lock()
	r.count++
	r.history = append(r.history, rep)
	if over := len(r.history) - r.keep; over > 0 {
		r.history = append(r.history[:0:0], r.history[over:]...)
	}
	if fatal && r.out != nil {
		r.write(rep)
	}
	r.mu.Unlock()

	event := r.logger.Warn()
	if fatal {
		event = r.logger.Error()
	}
	event.
		Str("kind", rep.Kind.String()).
		Str("op", rep.Op).
		Uint64("group", rep.Group).
		Uint64("handle", rep.Handle).
		Uint64("owner", rep.Owner).
		Uint64("mutator", rep.Mutator).
		Uint32("aliases", rep.AliasCount).
		Msg(rep.Kind.Describe())

	if fatal && r.policy == PolicyPanic {
		panic(rep)
	}
}

//nolint:errcheck // Output formatting, write errors are not actionable.
func (r *Reporter) write(rep *Report) {
	if !r.color {
		rep.Format(r.out)
		return
	}
	c := color.New(color.FgRed, color.Bold)
	c.EnableColor()
	c.Fprint(r.out, rep.String())
}

// Count returns the number of recorded (non-duplicate) reports.
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reports returns a copy of the kept history, oldest first.
func (r *Reporter) Reports() []*Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Report, len(r.history))
	copy(out, r.history)
	return out
}

// Dump writes the kept history to w in msgpack form.
func (r *Reporter) Dump(w io.Writer) error {
	return Encode(w, r.Reports())
}

// Reset clears counts, history and dedup state.
//
// Thread Safety: callers must ensure no concurrent Report calls.
func (r *Reporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count = 0
	r.history = nil
	r.reported = sync.Map{}
}
