package violation

import "fmt"

// Kind classifies a violation.
type Kind uint8

const (
	// KindAccessViolation is a mutation without ownership or mutable borrow.
	KindAccessViolation Kind = iota + 1
	// KindBorrowConflict is a mutable borrow requested while one is outstanding.
	KindBorrowConflict
	// KindNotOwner is an ownership transfer requested by a non-owner.
	KindNotOwner
	// KindSelfTransfer is an ownership transfer whose target is the source.
	KindSelfTransfer
	// KindForeignTarget is an ownership transfer to a handle outside the group.
	KindForeignTarget
	// KindDanglingAlias is an owner released while aliases remain. Fatal.
	KindDanglingAlias
	// KindReleased is an operation on a handle that was dropped or moved from.
	KindReleased
)

// String returns the label used in logs, metrics and dedup keys.
func (k Kind) String() string {
	switch k {
	case KindAccessViolation:
		return "access-violation"
	case KindBorrowConflict:
		return "borrow-conflict"
	case KindNotOwner:
		return "not-owner"
	case KindSelfTransfer:
		return "self-transfer"
	case KindForeignTarget:
		return "foreign-target"
	case KindDanglingAlias:
		return "dangling-alias-on-owner-release"
	case KindReleased:
		return "released"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Describe returns a human-readable sentence for the kind.
func (k Kind) Describe() string {
	switch k {
	case KindAccessViolation:
		return "mutation without ownership or a mutable borrow"
	case KindBorrowConflict:
		return "mutable borrow requested while another is outstanding"
	case KindNotOwner:
		return "ownership transfer requested by a non-owner"
	case KindSelfTransfer:
		return "ownership transfer to the same handle"
	case KindForeignTarget:
		return "ownership transfer to a handle outside the alias group"
	case KindDanglingAlias:
		return "owner released while aliases remain"
	case KindReleased:
		return "use of a released handle"
	default:
		return "unknown violation"
	}
}

// Suggestion returns a remediation hint, or "" if none applies.
func (k Kind) Suggestion() string {
	switch k {
	case KindAccessViolation:
		return "check IsOwner or IsMutator first, or mutate through a handle from BorrowMutable"
	case KindBorrowConflict:
		return "drop the outstanding mutable borrow before requesting another"
	case KindNotOwner:
		return "only the handle for which IsOwner reports true may move ownership"
	case KindSelfTransfer:
		return "pass a different handle of the same group to MoveTo"
	case KindForeignTarget:
		return "obtain the target with Borrow on the same group; Clone creates an unrelated group"
	case KindDanglingAlias:
		return "drop every alias before the owner, or move ownership to a surviving alias"
	case KindReleased:
		return "a handle cannot be used after Drop or after Move returned a new owner"
	default:
		return ""
	}
}

// Fatal reports whether the kind means the ownership invariant is
// already broken. Only KindDanglingAlias is fatal.
func (k Kind) Fatal() bool {
	return k == KindDanglingAlias
}
