// Package cell implements runtime-checked ownership and borrowing for a
// single mutable value.
//
// A *Cell[T] is a handle. Handles created from one another share a value
// group: the value, the identity of the owning handle, the mutable-borrow
// slot, the registry of live aliases, and the locks guarding them. The
// discipline enforced on every access is:
//
//   - exactly one handle of a group is the owner
//   - at most one handle holds the mutable borrow
//   - any number of handles may read
//   - only the owner or the mutable borrower may write
//   - the owner may not be dropped while other aliases are alive
//
// # Handles
//
//	a := cell.From(15)              // new group, a is owner
//	defer a.Drop()
//
//	r := a.Borrow()                 // shared alias, read-only
//	m, err := a.BorrowMutable()     // exclusive mutable alias
//	c := a.Clone()                  // deep copy, new unrelated group
//	b, err := a.Move()              // b becomes owner, a is retired
//	err = a.MoveTo(r)               // r becomes owner, a stays an alias
//
// Go has no destructors, so the end of a handle's scope is spelled Drop,
// normally deferred right after the handle is obtained. A handle that is
// dropped (or moved from) is released: Get and Borrow panic on it and the
// error-returning operations fail with ErrReleased.
//
// # Violations
//
// Every failed check returns a *ViolationError matching one of the
// sentinel errors (ErrAccessViolation, ErrBorrowConflict, ErrNotOwner,
// ErrSelfTransfer, ErrForeignTarget, ErrDanglingAlias, ErrReleased) and
// is handed to the configured violation.Reporter. Dropping an owner while
// aliases remain is fatal: the reporter logs it and, under its default
// policy, panics with the report.
//
// # Thread Safety
//
// Handles may be shared between goroutines. Each group has a reader/writer
// lock for the value (Get reads under it; Set and WithMutable write under
// it) and a mutex for owner, mutator slot, alias registry and handle
// states, so borrow and move checks are atomic per group. The value lock
// is always taken before the bookkeeping mutex.
package cell
