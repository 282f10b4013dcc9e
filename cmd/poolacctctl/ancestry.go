package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/ancestry"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"
)

func newAncestryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ancestry <pid>",
		Short: "Print a process's ancestry chain and derived fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("pid %q is not an integer", args[0])
			}
			return runAncestry(cmd, pid)
		},
	}
}

func runAncestry(cmd *cobra.Command, pid int) error {
	snap, err := procfs.Scan()
	if err != nil {
		return fmt.Errorf("scan process table: %w", err)
	}

	chain, err := ancestry.Chain(snap, pid)
	if err != nil {
		return fmt.Errorf("walk ancestry: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "chain (leaf to init):\n")
	for i, p := range chain {
		proc, ok := snap.Lookup(p)
		if !ok {
			fmt.Fprintf(out, "  [%d] pid=%d (not recorded in snapshot)\n", i, p)
			continue
		}
		fmt.Fprintf(out, "  [%d] pid=%d ppid=%d uid=%d gid=%d\n", i, proc.PID, proc.PPID, proc.UID, proc.GID)
	}

	engine := ancestry.NewEngineFromSnapshot(snap)
	fp, err := engine.FindTransition(pid)
	if err != nil {
		fmt.Fprintf(out, "fingerprint: unavailable: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "fingerprint: %s\n", fp.String())
	return nil
}
