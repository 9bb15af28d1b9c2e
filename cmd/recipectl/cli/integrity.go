package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report orphaned ingredients and dangling links",
		Long: `Scan the store for ingredient rows no recipe links to and links
whose recipe or ingredient row is gone. Exits 1 when anything is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	svc, closeFn, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := svc.Check(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "integrity check", err)
	}

	if err := formatter.Report("check", report); err != nil {
		return err
	}
	if !report.Clean() {
		// already reported
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Delete orphaned ingredients and dangling links",
		Long: `Delete dangling links, then every ingredient row left without a link.
With --dry-run only reports what would be removed.

Orphans are sampled twice, --settle apart, and only rows orphaned in both
samples are deleted. A create running without a transaction inserts its
ingredient rows before their links, so a live service keeps its in-flight
rows as long as --settle exceeds the slowest create. --settle 0 deletes
every current orphan and is only safe with the service stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			settle, _ := cmd.Flags().GetDuration("settle")
			return runRepair(rootOpts, cmd, dryRun, settle)
		},
	}

	cmd.Flags().Bool("dry-run", false, "report without deleting")
	cmd.Flags().Duration("settle", 2*time.Second, "delete only orphans that survive this long")

	return cmd
}

func runRepair(opts *RootOptions, cmd *cobra.Command, dryRun bool, settle time.Duration) error {
	formatter := opts.formatter(cmd)

	svc, closeFn, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if dryRun {
		formatter.VerboseLog("dry run, nothing will be deleted")
		report, err := svc.Check(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "integrity check", err)
		}
		return formatter.Report("would repair", report)
	}

	formatter.VerboseLog("settling for %s", settle)
	report, err := svc.Repair(cmd.Context(), settle)
	if err != nil {
		return WrapExitError(ExitCommandError, "integrity repair", err)
	}
	return formatter.Report("repaired", report)
}
