package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/ancestry"
	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/procfs"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <lockfile>",
		Short: "Parse and pretty-print a lease record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}
}

func runInspect(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fp, err := ancestry.ParseFingerprint(string(raw))
	if err != nil {
		fmt.Fprintf(out, "%s: no valid fingerprint (%v); account is free\n", path, err)
		return nil
	}

	fmt.Fprintf(out, "%s: pid=%d ppid=%d start_time=%d\n", path, fp.PID, fp.PPID, fp.StartTime)

	alive := procfs.Alive(fp.PID)
	fmt.Fprintf(out, "  pid alive: %v\n", alive)
	if !alive {
		fmt.Fprintln(out, "  stale: prior holder's pid is gone")
		return nil
	}

	startTime, err := procfs.StartTime(fp.PID)
	if err != nil {
		fmt.Fprintf(out, "  start time: unavailable: %v\n", err)
		return nil
	}
	matches := startTime == fp.StartTime
	fmt.Fprintf(out, "  start time matches: %v (live=%d recorded=%d)\n", matches, startTime, fp.StartTime)
	if !matches {
		fmt.Fprintln(out, "  stale: pid was reused")
	}
	return nil
}
