package cell

import (
	"errors"
	"fmt"

	"github.com/kolkov/lifetime/internal/lifetime/violation"
)

// Sentinel errors, one per violation kind. Match with errors.Is.
var (
	ErrAccessViolation = errors.New("lifetime: access violation")
	ErrBorrowConflict  = errors.New("lifetime: borrow conflict")
	ErrNotOwner        = errors.New("lifetime: not owner")
	ErrSelfTransfer    = errors.New("lifetime: self transfer")
	ErrForeignTarget   = errors.New("lifetime: foreign target")
	ErrDanglingAlias   = errors.New("lifetime: dangling alias on owner release")
	ErrReleased        = errors.New("lifetime: handle released")
)

var sentinels = map[violation.Kind]error{
	violation.KindAccessViolation: ErrAccessViolation,
	violation.KindBorrowConflict:  ErrBorrowConflict,
	violation.KindNotOwner:        ErrNotOwner,
	violation.KindSelfTransfer:    ErrSelfTransfer,
	violation.KindForeignTarget:   ErrForeignTarget,
	violation.KindDanglingAlias:   ErrDanglingAlias,
	violation.KindReleased:        ErrReleased,
}

// ViolationError is returned by every operation that breaks the discipline.
//
// Example:
//
//	err := c.Set(1)
//	// lifetime: cell#3 (group#1) Set: mutation without ownership or a mutable borrow
//	//
//	// Suggestion: check IsOwner or IsMutator first, or mutate through a handle from BorrowMutable
//
// Thread Safety: Immutable after creation, safe for concurrent use.
type ViolationError struct {
	Kind   violation.Kind
	Op     string // operation that failed, e.g. "Set"
	Handle uint64
	Group  uint64

	// Report is the report handed to the reporter.
	Report *violation.Report
}

// Error implements the error interface.
//
// Format: "lifetime: cell#H (group#G) Op: description", followed by a
// suggestion paragraph when the kind has one.
func (e *ViolationError) Error() string {
	msg := fmt.Sprintf("lifetime: cell#%d (group#%d) %s: %s", e.Handle, e.Group, e.Op, e.Kind.Describe())
	if s := e.Kind.Suggestion(); s != "" {
		msg += "\n\nSuggestion: " + s
	}
	return msg
}

// Is matches the sentinel error of the kind.
func (e *ViolationError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Fatal reports whether the error means the ownership invariant is broken.
func (e *ViolationError) Fatal() bool {
	return e.Kind.Fatal()
}

// IsFatal reports whether err carries a fatal violation.
func IsFatal(err error) bool {
	var ve *ViolationError
	return errors.As(err, &ve) && ve.Fatal()
}
