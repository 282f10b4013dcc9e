package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "poolacctctl",
		Short:         "poolacctctl: operator tool for the pool-account leasing core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newLeaseCmd())
	cmd.AddCommand(newAncestryCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newReleaseCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}
