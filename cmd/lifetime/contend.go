package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"fortio.org/safecast"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/lifetime/lifetime"
)

var contendCmd = &cobra.Command{
	Use:   "contend",
	Short: "Race goroutines for the mutable borrow of one value",
	Long: `contend starts N workers that each try R times to take the mutable
borrow of one shared counter. A worker that wins increments the counter and
drops its borrow; a worker that loses records a conflict. The final counter
must equal the number of successful acquisitions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		workers, _ := cmd.Flags().GetInt("workers")
		rounds, _ := cmd.Flags().GetInt("rounds")

		res, err := runContend(cmd.Context(), workers, rounds)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		headingColor.Fprintln(w, "Mutable borrow contention")
		fmt.Fprintf(w, "  workers:      %d\n", res.Workers)
		fmt.Fprintf(w, "  attempts:     %d\n", res.Acquired+res.Conflicts)
		fmt.Fprintf(w, "  acquired:     %d\n", res.Acquired)
		fmt.Fprintf(w, "  conflicts:    %d\n", res.Conflicts)
		fmt.Fprintf(w, "  final value:  %d\n", res.Final)
		return checkContend(w, res)
	},
}

func init() {
	contendCmd.Flags().IntP("workers", "w", 8, "number of goroutines")
	contendCmd.Flags().IntP("rounds", "r", 1000, "attempts per goroutine")
}

type contendResult struct {
	Workers   uint32
	Acquired  uint64
	Conflicts uint64
	Final     uint64
}

func runContend(ctx context.Context, workers, rounds int) (contendResult, error) {
	n, err := safecast.Conv[uint32](workers)
	if err != nil || n == 0 {
		return contendResult{}, fmt.Errorf("invalid worker count %d", workers)
	}
	if rounds < 0 {
		return contendResult{}, fmt.Errorf("invalid round count %d", rounds)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	owner := lifetime.From[uint64](0)
	defer owner.Drop()

	var acquired, conflicts atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)
	for range n {
		g.Go(func() error {
			for range rounds {
				if err := ctx.Err(); err != nil {
					return err
				}
				m, err := owner.BorrowMutable()
				if errors.Is(err, lifetime.ErrBorrowConflict) {
					conflicts.Add(1)
					continue
				}
				if err != nil {
					return err
				}
				acquired.Add(1)
				err = m.WithMutable(func(v *uint64) { *v++ })
				if dropErr := m.Drop(); err == nil {
					err = dropErr
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return contendResult{}, err
	}

	return contendResult{
		Workers:   n,
		Acquired:  acquired.Load(),
		Conflicts: conflicts.Load(),
		Final:     owner.Get(),
	}, nil
}

func checkContend(w io.Writer, res contendResult) error {
	if res.Final != res.Acquired {
		failColor.Fprintf(w, "FAIL")
		fmt.Fprintf(w, "  final value %d != acquisitions %d\n", res.Final, res.Acquired)
		return errors.New("lost or duplicated mutable writes")
	}
	passColor.Fprintf(w, "PASS")
	fmt.Fprintln(w, "  every acquisition wrote exactly once")
	return nil
}
