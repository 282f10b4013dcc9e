package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bbockelm/lcmaps-plugins-anonymous-accounts/internal/plugin"
)

// printingRegistrar stands in for the host's real credential store: it
// just records what it was given so the CLI can report it.
type printingRegistrar struct {
	uid, gid int
}

func (r *printingRegistrar) Register(uid, gid int) error {
	r.uid, r.gid = uid, gid
	return nil
}

func newLeaseCmd() *cobra.Command {
	var (
		minUID, maxUID int
		lockPath       string
		configPath     string
	)

	cmd := &cobra.Command{
		Use:   "lease",
		Short: "Run one acquisition cycle against this process's own ancestry",
		Long: `Runs a single Plugin.Perform cycle exactly as a host would invoke it,
using the calling poolacctctl process's own ancestry chain as the job
being leased an account for. Useful for validating a pool directory
and its account range before wiring it into a real host.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLease(cmd, minUID, maxUID, lockPath, configPath)
		},
	}

	cmd.Flags().IntVar(&minUID, "minuid", 0, "lowest UID in the account range (required)")
	cmd.Flags().IntVar(&maxUID, "maxuid", 0, "highest UID in the account range (required)")
	cmd.Flags().StringVar(&lockPath, "lockpath", "", "lock directory path (defaults to the built-in default)")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML policy overlay path")
	cmd.MarkFlagRequired("minuid")
	cmd.MarkFlagRequired("maxuid")

	return cmd
}

func runLease(cmd *cobra.Command, minUID, maxUID int, lockPath, configPath string) error {
	argv := []string{"-minuid", fmt.Sprint(minUID), "-maxuid", fmt.Sprint(maxUID)}
	if lockPath != "" {
		argv = append(argv, "-lockpath", lockPath)
	}

	p := plugin.New(nil)
	if err := p.Initialize(argv); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer p.Terminate()

	if configPath != "" {
		if err := p.LoadOverlay(configPath); err != nil {
			return fmt.Errorf("load overlay: %w", err)
		}
	}

	creds := &printingRegistrar{}
	outcome, err := p.Perform(cmd.Context(), plugin.CallerInfo{Credentials: creds})
	if err != nil {
		return fmt.Errorf("perform: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "leased uid=%d gid=%d\n", outcome.UID, outcome.GID)
	if outcome.Handle != nil {
		fmt.Fprintf(out, "handle=%s\n", outcome.Handle.String())
	}
	return nil
}
