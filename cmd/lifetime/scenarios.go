package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kolkov/lifetime/lifetime"
)

type scenario struct {
	name string
	desc string
	run  func() error
}

var scenarios = []scenario{
	{"A", "a clone is independent of its source", scenarioClone},
	{"B", "a second mutable borrow conflicts until the first is dropped", scenarioMutableBorrow},
	{"C", "a shared borrow cannot write and a moved-from owner cannot write", scenarioMove},
	{"D", "dropping an owner with a live alias is detected", scenarioDanglingAlias},
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Run the reference ownership scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScenarios(cmd.OutOrStdout())
	},
}

func runScenarios(w io.Writer) error {
	headingColor.Fprintln(w, "Ownership scenarios")

	failed := 0
	for _, s := range scenarios {
		err := s.run()
		if err != nil {
			failed++
			failColor.Fprintf(w, "FAIL")
			fmt.Fprintf(w, "  %s  %s\n      %v\n", s.name, s.desc, err)
			continue
		}
		passColor.Fprintf(w, "PASS")
		fmt.Fprintf(w, "  %s  %s\n", s.name, s.desc)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}
	return nil
}

func scenarioClone() error {
	a := lifetime.From(15)
	defer a.Drop()

	b := a.Clone()
	if err := b.Set(b.Get() + 5); err != nil {
		return err
	}
	if got := b.Get(); got != 20 {
		return fmt.Errorf("clone = %d, want 20", got)
	}
	if err := b.Drop(); err != nil {
		return err
	}

	if !a.IsOwner() {
		return errors.New("source lost ownership after clone")
	}
	if err := a.Set(15); err != nil {
		return err
	}
	if got := a.Get(); got != 15 {
		return fmt.Errorf("source = %d, want 15", got)
	}
	return nil
}

func scenarioMutableBorrow() error {
	a := lifetime.From(0)
	defer a.Drop()

	m1, err := a.BorrowMutable()
	if err != nil {
		return err
	}
	if _, err := a.BorrowMutable(); !errors.Is(err, lifetime.ErrBorrowConflict) {
		return fmt.Errorf("second BorrowMutable: got %v, want borrow conflict", err)
	}
	if err := m1.Drop(); err != nil {
		return err
	}

	m2, err := a.BorrowMutable()
	if err != nil {
		return fmt.Errorf("BorrowMutable after release: %w", err)
	}
	return m2.Drop()
}

func scenarioMove() error {
	a := lifetime.From(5)
	defer a.Drop()

	r := a.Borrow()
	if err := r.Set(9); !errors.Is(err, lifetime.ErrAccessViolation) {
		return fmt.Errorf("shared borrow Set: got %v, want access violation", err)
	}
	if err := r.Drop(); err != nil {
		return err
	}

	o := lifetime.From(0)
	alias := o.Borrow()
	defer dropOwnerLast(o, alias)

	if err := o.MoveTo(alias); err != nil {
		return err
	}
	if err := o.Set(1); !errors.Is(err, lifetime.ErrAccessViolation) {
		return fmt.Errorf("moved-from Set: got %v, want access violation", err)
	}
	if err := alias.Set(1); err != nil {
		return fmt.Errorf("new owner Set: %w", err)
	}
	return nil
}

func scenarioDanglingAlias() (err error) {
	a := lifetime.From(1)
	r := a.Borrow()
	defer r.Drop()

	// Under the panic policy the report arrives as a panic.
	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(*lifetime.Report); !ok {
				panic(p)
			}
			err = nil
		}
	}()

	if dropErr := a.Drop(); !lifetime.IsFatal(dropErr) {
		return fmt.Errorf("owner Drop with live alias: got %v, want fatal violation", dropErr)
	}
	return nil
}

// dropOwnerLast drops the non-owning handles first and the owners after
// them, whichever handle holds ownership by then.
func dropOwnerLast[T any](handles ...*lifetime.Cell[T]) error {
	var errs []error
	for _, owners := range []bool{false, true} {
		for _, h := range handles {
			if h.IsOwner() == owners {
				errs = append(errs, h.Drop())
			}
		}
	}
	return errors.Join(errs...)
}
