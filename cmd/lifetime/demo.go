package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kolkov/lifetime/lifetime"
)

// Pass modes for the demo's add call.
const (
	passClone   = "clone"
	passMutable = "mutable"
	passMove    = "move"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Pass a value into a function and check ownership afterwards",
	Long: `demo creates a = 15, hands it to add (which adds 5 and prints the
result), then sets a back to 15 if a still owns its value.

--pass selects how a reaches add:
  clone    an independent copy; a keeps ownership (default)
  mutable  a mutable borrow; add writes through to a
  move     ownership moves into add; a is retired`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mode, _ := cmd.Flags().GetString("pass")
		return runDemo(cmd.OutOrStdout(), mode)
	},
}

func init() {
	demoCmd.Flags().String("pass", passClone, "how a is passed to add (clone|mutable|move)")
}

func runDemo(w io.Writer, mode string) error {
	a := lifetime.From(15)
	defer a.Drop()

	var b *lifetime.Cell[int]
	switch mode {
	case passClone:
		b = a.Clone()
	case passMutable:
		m, err := a.BorrowMutable()
		if err != nil {
			return err
		}
		b = m
	case passMove:
		m, err := a.Move()
		if err != nil {
			return err
		}
		b = m
	default:
		return fmt.Errorf("unknown pass mode %q", mode)
	}

	if err := add(w, b); err != nil {
		return err
	}

	if a.Released() {
		fmt.Fprintln(w, "'a' was moved from and no longer holds a value")
		return nil
	}
	if a.IsOwner() {
		if err := a.Set(15); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "Value of 'a' is: %d\n", a.Get())
	return nil
}

// add consumes b: it adds 5 and releases b on return.
func add(w io.Writer, b *lifetime.Cell[int]) error {
	defer b.Drop()

	if err := b.Set(b.Get() + 5); err != nil {
		return err
	}
	fmt.Fprintf(w, "Value of 'b' is: %d\n", b.Get())
	return nil
}
