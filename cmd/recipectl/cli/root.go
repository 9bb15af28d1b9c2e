package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Integrity is the part of the integrity service the commands drive
type Integrity interface {
	Check(ctx context.Context) (*IntegrityReport, error)
	Repair(ctx context.Context, settle time.Duration) (*IntegrityReport, error)
}

// Opener connects to the recipe store. Diagnostics go to logs, never to
// stdout, so JSON output stays parseable.
type Opener func(ctx context.Context, logs io.Writer, verbose bool) (Integrity, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	open Opener
}

// NewRootCommand creates the root command for recipectl.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "recipectl",
		Short: "Recipe store maintenance",
		Long: `Maintenance commands for the recipe store.

Connection settings come from the same environment variables as the
recipes service (DATABASE_URL, POSTGRES_*, STORE_DRIVER).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// connect opens the store through the configured Opener
func (o *RootOptions) connect(cmd *cobra.Command) (Integrity, func(), error) {
	svc, closeFn, err := o.open(cmd.Context(), cmd.ErrOrStderr(), o.Verbose)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "connect to recipe store", err)
	}
	return svc, closeFn, nil
}

// Execute runs cmd and returns the process exit code. Errors carrying a
// message are printed to stderr.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err != nil && err.Error() != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	}
	return GetExitCode(err)
}
