// Package lifetime enforces ownership and borrowing rules on Go values at
// run time.
//
// A value wrapped with [From] lives in a value group. Handles to the group
// ([Cell]) are obtained by borrowing, and the runtime checks on every
// access that:
//   - exactly one handle is the owner
//   - at most one handle holds the mutable borrow
//   - any number of handles may read
//   - only the owner or the mutable borrower may write
//   - the owner is never dropped while other aliases are alive
//
// These are the guarantees a static borrow checker gives, moved to
// execution time.
//
// # Quick Start
//
//	package main
//
//	import (
//		"fmt"
//
//		"github.com/kolkov/lifetime/lifetime"
//	)
//
//	func add(b *lifetime.Cell[int]) {
//		defer b.Drop()
//		_ = b.Set(b.Get() + 5)
//		fmt.Println("b =", b.Get())
//	}
//
//	func main() {
//		a := lifetime.From(15)
//		defer a.Drop()
//
//		add(a.Clone())     // independent copy, prints b = 20
//		if a.IsOwner() {
//			_ = a.Set(15)
//		}
//		fmt.Println("a =", a.Get())
//	}
//
// # API Overview
//
// The package provides:
//   - Creation: [From], [WithCopier], [Cloner]
//   - Handle operations: Get, Set, WithMutable, Borrow, BorrowMutable,
//     Clone, IsOwner, IsMutator, MoveTo, Move, Drop, CheckDrop
//   - Errors: [ErrAccessViolation], [ErrBorrowConflict], [ErrNotOwner],
//     [ErrSelfTransfer], [ErrForeignTarget], [ErrDanglingAlias],
//     [ErrReleased], [IsFatal]
//   - Configuration: [LoadConfig], [Configure], [ConfigureOutput]
//   - Violation history: [Reports], [DumpReports], [ReadReports]
//   - Version information: [GetInfo], [Version], [Compatible]
//
// # Scope Ends
//
// Go has no destructors. A handle's lifetime ends when Drop is called,
// normally deferred right after the handle is obtained. Dropping an owner
// while aliases are still alive is a fatal violation: it is logged, the
// report lists every surviving alias (with the call site that created it
// when stack capture is on), and under the default "panic" policy the
// program panics with the report. Use CheckDrop to test for this before
// dropping.
//
// # Configuration
//
// Configuration comes from a TOML or YAML file and LIFETIME_* environment
// variables:
//
//	policy = "panic"        # or "report"
//	capture_stacks = false
//	dedup = true
//
//	[log]
//	level = "info"
//	json = false
//
// # Concurrency
//
// Handles may cross goroutines. Reads take the group's read lock, writes
// its write lock, and every ownership or borrow check runs inside the
// group's bookkeeping critical section, so two goroutines can never both
// win BorrowMutable or both move ownership.
package lifetime
