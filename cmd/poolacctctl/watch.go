package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/poolwatch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <lockdir>",
		Short: "Live tail of lock-directory activity",
		Long: `Watches lockdir for create, write, remove, and rename events and
prints each one as it happens. Diagnostic only: this never informs
arbitration, and every event printed here should be read as a hint to
go re-inspect the lockfile with "poolacctctl inspect", not as ground
truth on its own.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}
}

func runWatch(cmd *cobra.Command, dir string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	onEvent := func(e poolwatch.Event) {
		fmt.Fprintf(out, "%s %s\n", e.Op, e.Path)
	}
	onError := func(err error) {
		fmt.Fprintf(errOut, "watch error: %v\n", err)
	}

	err := poolwatch.Watch(cmd.Context(), dir, onEvent, onError)
	if err != nil && cmd.Context().Err() != nil {
		return nil
	}
	return err
}
