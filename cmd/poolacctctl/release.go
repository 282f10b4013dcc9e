package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newReleaseCmd() *cobra.Command {
	var fd int

	cmd := &cobra.Command{
		Use:   "release <lockfile>",
		Short: "Drop the advisory lock this process holds on a lockfile",
		Long: `Drops the advisory lock on lockfile. An flock is scoped to the open
file description that placed it, not to the path, so this is only
meaningful when poolacctctl itself inherited the exact descriptor that
holds the lock — for example a descriptor number handed off by
lease's externally-released handle and passed along via --fd in a
test harness. Without --fd this opens a fresh descriptor on the path
and unlocking it is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, args[0], fd)
		},
	}

	cmd.Flags().IntVar(&fd, "fd", -1, "inherited file descriptor number already holding the lock")
	return cmd
}

func runRelease(cmd *cobra.Command, path string, fd int) error {
	var f *os.File
	if fd >= 0 {
		f = os.NewFile(uintptr(fd), path)
		if f == nil {
			return fmt.Errorf("invalid inherited descriptor %d", fd)
		}
	} else {
		opened, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		f = opened
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "released %s\n", path)
	return nil
}
