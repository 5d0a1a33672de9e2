package violation

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"
	"time"

	"fortio.org/safecast"

	"github.com/kolkov/lifetime/internal/lifetime/aliasset"
	"github.com/kolkov/lifetime/internal/lifetime/stackdepot"
)

// maxStackDepth is the maximum number of frames captured for the offending call.
const maxStackDepth = 32

// Snapshot is the group state observed when a violation was raised.
//
// The cell runtime fills it while holding the group's bookkeeping mutex,
// then builds the report after releasing it.
type Snapshot struct {
	Group   uint64
	Handle  uint64
	Owner   uint64
	Mutator uint64 // 0 when the mutable-borrow slot is empty
	Aliases []aliasset.Alias
}

// Alias is a live alias listed in a report.
type Alias struct {
	ID   uint64             `msgpack:"id"`
	Site []stackdepot.Frame `msgpack:"site,omitempty"`
}

// Report is one detected violation.
type Report struct {
	Kind    Kind   `msgpack:"kind"`
	Op      string `msgpack:"op"`
	Group   uint64 `msgpack:"group"`
	Handle  uint64 `msgpack:"handle"`
	Owner   uint64 `msgpack:"owner"`
	Mutator uint64 `msgpack:"mutator"`

	// AliasCount is the number of live aliases, including the handle
	// itself unless it was just released.
	AliasCount uint32  `msgpack:"alias_count"`
	Aliases    []Alias `msgpack:"aliases,omitempty"`

	// Stack is the offending call, with runtime frames removed.
	Stack []stackdepot.Frame `msgpack:"stack,omitempty"`

	Time time.Time `msgpack:"time"`

	// DedupKey identifies the violation site: "{kind}:{op}:{group}:{handle}".
	DedupKey string `msgpack:"dedup_key"`
}

// NewReport builds a report from a snapshot.
//
// The offending call stack is captured when captureStack is true or the
// kind is fatal; alias creation sites are resolved from the stack depot.
func NewReport(kind Kind, op string, snap Snapshot, captureStack bool) *Report {
	count, err := safecast.Conv[uint32](len(snap.Aliases))
	if err != nil {
		count = math.MaxUint32
	}

	r := &Report{
		Kind:       kind,
		Op:         op,
		Group:      snap.Group,
		Handle:     snap.Handle,
		Owner:      snap.Owner,
		Mutator:    snap.Mutator,
		AliasCount: count,
		Time:       time.Now(),
		DedupKey:   dedupKey(kind, op, snap.Group, snap.Handle),
	}

	if len(snap.Aliases) > 0 {
		r.Aliases = make([]Alias, 0, len(snap.Aliases))
		for _, a := range snap.Aliases {
			r.Aliases = append(r.Aliases, Alias{ID: a.ID, Site: stackdepot.GetStack(a.Site).Frames()})
		}
	}

	if captureStack || kind.Fatal() {
		r.Stack = captureStackTrace(3)
	}
	return r
}

func dedupKey(kind Kind, op string, group, handle uint64) string {
	return fmt.Sprintf("%s:%s:%d:%d", kind, op, group, handle)
}

// captureStackTrace captures the current stack, dropping runtime frames
// and the cell/violation machinery so the first frame is user code.
func captureStackTrace(skip int) []stackdepot.Frame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}

	var out []stackdepot.Frame
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !internalFrame(frame.Function) {
			out = append(out, stackdepot.Frame{Function: frame.Function, File: frame.File, Line: frame.Line})
		}
		if !more {
			break
		}
	}
	return out
}

func internalFrame(fn string) bool {
	if fn == "" || strings.HasPrefix(fn, "runtime.") {
		return true
	}
	for _, pkg := range []string{"/internal/lifetime/cell.", "/internal/lifetime/violation."} {
		if strings.Contains(fn, pkg) && !strings.Contains(fn, pkg+"Test") {
			return true
		}
	}
	return false
}

// Error makes a report usable as a panic value and error.
func (r *Report) Error() string {
	return fmt.Sprintf("lifetime: %s (%s on cell#%d, group#%d)", r.Kind.Describe(), r.Op, r.Handle, r.Group)
}

// Format writes the framed report to w.
//
//nolint:errcheck // Output formatting, write errors are not actionable.
func (r *Report) Format(w io.Writer) {
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "LIFETIME VIOLATION: %s\n", r.Kind.Describe())

	fmt.Fprintf(w, "%s on cell#%d (group#%d):\n", r.Op, r.Handle, r.Group)
	if len(r.Stack) > 0 {
		fmt.Fprint(w, stackdepot.FormatFrames(r.Stack))
	} else {
		fmt.Fprintf(w, "  (no stack trace captured)\n")
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Owner: %s  Mutator: %s\n", handleName(r.Owner), handleName(r.Mutator))

	if len(r.Aliases) > 0 {
		fmt.Fprintf(w, "Live aliases (%d):\n", r.AliasCount)
		for _, a := range r.Aliases {
			if len(a.Site) == 0 {
				fmt.Fprintf(w, "  cell#%d (creation site not captured)\n", a.ID)
				continue
			}
			fmt.Fprintf(w, "  cell#%d created at:\n", a.ID)
			for _, line := range strings.SplitAfter(stackdepot.FormatFrames(a.Site), "\n") {
				if line != "" {
					fmt.Fprintf(w, "  %s", line)
				}
			}
		}
	}

	if s := r.Kind.Suggestion(); s != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", s)
	}
	fmt.Fprintf(w, "==================\n")
}

// String returns the formatted report.
func (r *Report) String() string {
	var buf strings.Builder
	r.Format(&buf)
	return buf.String()
}

func handleName(id uint64) string {
	if id == 0 {
		return "none"
	}
	return fmt.Sprintf("cell#%d", id)
}
