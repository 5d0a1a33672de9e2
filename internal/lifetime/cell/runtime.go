package cell

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kolkov/lifetime/internal/lifetime/stackdepot"
	"github.com/kolkov/lifetime/internal/lifetime/violation"
)

// Runtime is the process-wide configuration of the cell runtime.
type Runtime struct {
	// Reporter receives every violation. Nil restores the default.
	Reporter *violation.Reporter

	// Logger receives handle lifecycle events at debug level.
	Logger zerolog.Logger

	// CaptureStacks records the creation site of every handle and the
	// stack of every violation, not only fatal ones.
	CaptureStacks bool
}

var (
	current atomic.Pointer[Runtime]

	// nextHandleID and nextGroupID start at 1; 0 means "none".
	nextHandleID atomic.Uint64
	nextGroupID  atomic.Uint64
)

func init() {
	current.Store(defaultRuntime())
}

func defaultRuntime() *Runtime {
	return &Runtime{
		Reporter: violation.NewReporter(violation.Options{
			Logger: log.Logger,
			Policy: violation.PolicyPanic,
			Dedup:  true,
			Out:    os.Stderr,
		}),
		Logger: zerolog.Nop(),
	}
}

// Configure installs rt as the runtime for every group, existing or new.
func Configure(rt Runtime) {
	if rt.Reporter == nil {
		rt.Reporter = defaultRuntime().Reporter
	}
	current.Store(&rt)
}

// Reset restores the default runtime.
func Reset() {
	current.Store(defaultRuntime())
}

// CurrentReporter returns the reporter in use.
func CurrentReporter() *violation.Reporter {
	return current.Load().Reporter
}

func loadRuntime() *Runtime {
	return current.Load()
}

// creationSite captures the caller of the public operation when stack
// capture is on.
func (rt *Runtime) creationSite() uint64 {
	if !rt.CaptureStacks {
		return 0
	}
	// Skip creationSite and the cell method that creates the handle.
	return stackdepot.CaptureStack(2)
}
