package cell

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/kolkov/lifetime/internal/lifetime/aliasset"
	"github.com/kolkov/lifetime/internal/lifetime/violation"
	"github.com/kolkov/lifetime/internal/observability"
)

// Cloner is implemented by values that deep-copy themselves. Clone uses
// it when no copier was configured with WithCopier.
type Cloner[T any] interface {
	Clone() T
}

// Option configures the group created by From.
type Option[T any] func(*group[T])

// WithCopier sets the deep-copy function used by Clone. Groups created by
// Clone inherit it.
func WithCopier[T any](copier func(T) T) Option[T] {
	return func(g *group[T]) {
		g.copier = copier
	}
}

type handleState uint8

const (
	stateLive handleState = iota
	stateReleased
	stateMoved
)

// group is the value group shared by all handles created from one From.
type group[T any] struct {
	id     uint64
	copier func(T) T

	// valueMu guards value. Taken before mu when both are needed.
	valueMu sync.RWMutex
	value   T

	// mu guards owner, mutator, aliases and every handle's state and token.
	mu      sync.Mutex
	owner   uint64 // 0 once the owner is gone
	mutator *mutatorToken
	aliases *aliasset.Set
}

// Cell is a handle to a value group.
type Cell[T any] struct {
	id uint64
	g  *group[T]

	// Guarded by g.mu.
	state handleState
	token *mutatorToken
}

// From creates a new group holding value and returns its owner handle.
func From[T any](value T, opts ...Option[T]) *Cell[T] {
	rt := loadRuntime()
	site := rt.creationSite()

	g := newGroup(value)
	for _, opt := range opts {
		opt(g)
	}
	return g.attachOwner(rt, observability.KindFrom, site)
}

func newGroup[T any](value T) *group[T] {
	return &group[T]{
		id:      nextGroupID.Add(1),
		value:   value,
		aliases: aliasset.New(),
	}
}

func (g *group[T]) attachOwner(rt *Runtime, kind string, site uint64) *Cell[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.attachLocked(rt, kind, site)
	g.owner = c.id
	return c
}

// attachLocked registers a new handle. Caller holds g.mu.
func (g *group[T]) attachLocked(rt *Runtime, kind string, site uint64) *Cell[T] {
	c := &Cell[T]{id: nextHandleID.Add(1), g: g}
	g.aliases.Add(c.id, site)

	observability.RecordHandleCreated(kind)
	rt.Logger.Debug().
		Str("kind", kind).
		Uint64("group", g.id).
		Uint64("handle", c.id).
		Int("aliases", g.aliases.Len()).
		Msg("handle_created")
	return c
}

// release zeroes the value once the last handle is gone.
func (g *group[T]) release(rt *Runtime) {
	g.valueMu.Lock()
	var zero T
	g.value = zero
	g.valueMu.Unlock()

	observability.RecordGroupReleased()
	rt.Logger.Debug().Uint64("group", g.id).Msg("group_released")
}

// deepCopy copies v with the group's copier, then Cloner, then a
// reflective deep copy. Types the reflective copy cannot reproduce
// (unexported fields, recursive types) fall back to assignment.
func (g *group[T]) deepCopy(rt *Runtime, v T) T {
	if g.copier != nil {
		return g.copier(v)
	}
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	cp, ok := copyValue(v)
	if !ok {
		warnShallow(rt, reflect.TypeOf(any(v)), g.id)
	}
	return cp
}

// ID returns the handle identity.
func (c *Cell[T]) ID() uint64 {
	return c.id
}

// GroupID returns the identity of the handle's value group.
func (c *Cell[T]) GroupID() uint64 {
	return c.g.id
}

// Get returns a deep copy of the value, so writes into the result never
// reach the group. Any live handle may read.
//
// Get panics with ErrReleased if the handle was dropped or moved from.
func (c *Cell[T]) Get() T {
	return c.read("Get")
}

// read copies the value under the read lock. The liveness check happens
// under the same lock so a concurrent last Drop cannot zero the value
// between the check and the copy.
func (c *Cell[T]) read(op string) T {
	c.g.valueMu.RLock()
	defer c.g.valueMu.RUnlock()
	c.mustBeLive(op)
	return c.g.deepCopy(loadRuntime(), c.g.value)
}

// Set replaces the value. Only the owner or the mutable borrower may set.
func (c *Cell[T]) Set(value T) error {
	c.g.valueMu.Lock()
	defer c.g.valueMu.Unlock()

	if err := c.checkWritable("Set"); err != nil {
		return err
	}
	c.g.value = value
	return nil
}

// WithMutable runs fn with a pointer to the value while holding the
// group's write lock. Eligibility is the same as Set.
//
// fn must not retain the pointer, and must not call Get, Set,
// WithMutable or Drop on handles of the same group.
func (c *Cell[T]) WithMutable(fn func(v *T)) error {
	c.g.valueMu.Lock()
	defer c.g.valueMu.Unlock()

	if err := c.checkWritable("WithMutable"); err != nil {
		return err
	}
	fn(&c.g.value)
	return nil
}

func (c *Cell[T]) checkWritable(op string) error {
	g := c.g
	g.mu.Lock()
	var kind violation.Kind
	switch {
	case c.state != stateLive:
		kind = violation.KindReleased
	case g.owner == c.id, c.token.held():
		g.mu.Unlock()
		return nil
	default:
		kind = violation.KindAccessViolation
	}
	snap := c.snapshotLocked()
	g.mu.Unlock()
	return c.fail(kind, op, snap)
}

// Borrow returns a shared alias in the same group. It never changes
// ownership or the mutable-borrow slot.
//
// Borrow panics with ErrReleased if the handle was dropped or moved from.
func (c *Cell[T]) Borrow() *Cell[T] {
	rt := loadRuntime()
	site := rt.creationSite()

	g := c.g
	g.mu.Lock()
	if c.state != stateLive {
		snap := c.snapshotLocked()
		g.mu.Unlock()
		panic(c.fail(violation.KindReleased, "Borrow", snap))
	}
	h := g.attachLocked(rt, observability.KindBorrow, site)
	g.mu.Unlock()
	return h
}

// BorrowMutable returns an alias holding the group's mutable borrow.
// It fails with ErrBorrowConflict while another mutable borrow is alive.
func (c *Cell[T]) BorrowMutable() (*Cell[T], error) {
	rt := loadRuntime()
	site := rt.creationSite()

	g := c.g
	g.mu.Lock()
	var kind violation.Kind
	switch {
	case c.state != stateLive:
		kind = violation.KindReleased
	case g.mutator != nil:
		kind = violation.KindBorrowConflict
	}
	if kind != 0 {
		snap := c.snapshotLocked()
		g.mu.Unlock()
		return nil, c.fail(kind, "BorrowMutable", snap)
	}

	h := g.attachLocked(rt, observability.KindBorrowMutable, site)
	h.token = bindMutator(h.id, &g.mutator)
	g.mu.Unlock()
	return h, nil
}

// Clone deep-copies the value into a new, unrelated group and returns
// its owner. The copy uses the configured copier, then Cloner, then a
// reflective deep copy of slices, maps and pointers.
func (c *Cell[T]) Clone() *Cell[T] {
	rt := loadRuntime()
	site := rt.creationSite()

	v := c.read("Clone")
	g := newGroup(v)
	g.copier = c.g.copier
	return g.attachOwner(rt, observability.KindClone, site)
}

// IsOwner reports whether the handle owns its group.
func (c *Cell[T]) IsOwner() bool {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	return c.state == stateLive && c.g.owner == c.id
}

// IsMutator reports whether the handle holds the mutable borrow.
func (c *Cell[T]) IsMutator() bool {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	return c.state == stateLive && c.token.held()
}

// MoveTo transfers ownership to target, a live handle of the same group.
// The caller keeps living as a plain alias and loses any mutable borrow.
//
// Errors: ErrNotOwner if the caller is not the owner, ErrSelfTransfer if
// target is the caller, ErrForeignTarget if target is not registered in
// the caller's group.
func (c *Cell[T]) MoveTo(target *Cell[T]) error {
	rt := loadRuntime()
	g := c.g
	g.mu.Lock()
	var kind violation.Kind
	switch {
	case c.state != stateLive:
		kind = violation.KindReleased
	case g.owner != c.id:
		kind = violation.KindNotOwner
	case target == c:
		kind = violation.KindSelfTransfer
	case target == nil || target.g != g || !g.aliases.Contains(target.id):
		kind = violation.KindForeignTarget
	}
	if kind != 0 {
		snap := c.snapshotLocked()
		g.mu.Unlock()
		return c.fail(kind, "MoveTo", snap)
	}

	c.token.release()
	c.token = nil
	g.owner = target.id
	g.mu.Unlock()

	observability.RecordMove()
	rt.Logger.Debug().
		Uint64("group", g.id).
		Uint64("from", c.id).
		Uint64("to", target.id).
		Msg("ownership_moved")
	return nil
}

// Move hands ownership to a new handle of the same group and retires the
// caller: afterwards the caller is released, exactly as if dropped, and
// any mutable borrow it held is gone.
func (c *Cell[T]) Move() (*Cell[T], error) {
	rt := loadRuntime()
	site := rt.creationSite()

	g := c.g
	g.mu.Lock()
	var kind violation.Kind
	switch {
	case c.state != stateLive:
		kind = violation.KindReleased
	case g.owner != c.id:
		kind = violation.KindNotOwner
	}
	if kind != 0 {
		snap := c.snapshotLocked()
		g.mu.Unlock()
		return nil, c.fail(kind, "Move", snap)
	}

	h := g.attachLocked(rt, observability.KindMove, site)
	g.owner = h.id
	c.token.release()
	c.token = nil
	c.retireLocked(rt, stateMoved)
	g.mu.Unlock()

	observability.RecordMove()
	rt.Logger.Debug().
		Uint64("group", g.id).
		Uint64("from", c.id).
		Uint64("to", h.id).
		Msg("ownership_moved")
	return h, nil
}

// Drop ends the handle's lifetime. It is idempotent and is normally
// deferred right after the handle is obtained.
//
// A mutable borrow held by the handle is released first, then the handle
// leaves the alias registry. When the registry becomes empty the value is
// released. Dropping the owner while other aliases are alive is fatal:
// the violation is reported (which panics under the default policy) and a
// *ViolationError matching ErrDanglingAlias is returned. The group is
// left without an owner.
func (c *Cell[T]) Drop() error {
	rt := loadRuntime()
	g := c.g
	g.mu.Lock()
	if c.state != stateLive {
		g.mu.Unlock()
		return nil
	}

	c.token.release()
	c.token = nil
	wasOwner := g.owner == c.id
	c.retireLocked(rt, stateReleased)

	if wasOwner && !g.aliases.Empty() {
		snap := c.snapshotLocked()
		g.owner = 0
		g.mu.Unlock()
		return c.fail(violation.KindDanglingAlias, "Drop", snap)
	}

	last := g.aliases.Empty()
	g.mu.Unlock()

	if last {
		g.release(rt)
	}
	return nil
}

// CheckDrop reports, without changing anything, whether Drop would be
// fatal: it returns a *ViolationError matching ErrDanglingAlias when the
// handle is the owner and other aliases are alive. The error is not
// handed to the reporter.
func (c *Cell[T]) CheckDrop() error {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.state != stateLive || g.owner != c.id || g.aliases.Len() <= 1 {
		return nil
	}
	return &ViolationError{Kind: violation.KindDanglingAlias, Op: "CheckDrop", Handle: c.id, Group: g.id}
}

// Released reports whether the handle was dropped or moved from.
func (c *Cell[T]) Released() bool {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	return c.state != stateLive
}

// Aliases returns the number of live handles in the group.
func (c *Cell[T]) Aliases() int {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	return c.g.aliases.Len()
}

// String renders the handle for debugging, e.g. "cell#3(group#1 owner mut)".
func (c *Cell[T]) String() string {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()

	tags := []string{fmt.Sprintf("group#%d", c.g.id)}
	switch c.state {
	case stateReleased:
		tags = append(tags, "released")
	case stateMoved:
		tags = append(tags, "moved")
	default:
		if c.g.owner == c.id {
			tags = append(tags, "owner")
		}
		if c.token.held() {
			tags = append(tags, "mut")
		}
	}
	return fmt.Sprintf("cell#%d(%s)", c.id, strings.Join(tags, " "))
}

// retireLocked removes the handle from the registry. Caller holds g.mu.
func (c *Cell[T]) retireLocked(rt *Runtime, st handleState) {
	c.g.aliases.Remove(c.id)
	c.state = st

	observability.RecordHandleReleased()
	rt.Logger.Debug().
		Uint64("group", c.g.id).
		Uint64("handle", c.id).
		Bool("moved", st == stateMoved).
		Int("aliases", c.g.aliases.Len()).
		Msg("handle_released")
}

// mustBeLive panics with a released violation if the handle is not live.
func (c *Cell[T]) mustBeLive(op string) {
	c.g.mu.Lock()
	if c.state == stateLive {
		c.g.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	c.g.mu.Unlock()
	panic(c.fail(violation.KindReleased, op, snap))
}

// snapshotLocked captures group state for a report. Caller holds g.mu.
func (c *Cell[T]) snapshotLocked() violation.Snapshot {
	snap := violation.Snapshot{
		Group:   c.g.id,
		Handle:  c.id,
		Owner:   c.g.owner,
		Aliases: c.g.aliases.Aliases(),
	}
	if c.g.mutator != nil {
		snap.Mutator = c.g.mutator.holder
	}
	return snap
}

// fail reports a violation and returns it as an error. Called without g.mu.
func (c *Cell[T]) fail(kind violation.Kind, op string, snap violation.Snapshot) *ViolationError {
	rt := loadRuntime()
	rep := violation.NewReport(kind, op, snap, rt.CaptureStacks)
	err := &ViolationError{Kind: kind, Op: op, Handle: c.id, Group: c.g.id, Report: rep}
	rt.Reporter.Report(rep)
	return err
}
