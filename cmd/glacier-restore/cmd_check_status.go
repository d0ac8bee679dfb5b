package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marekhanzlik/s3-glacier-restore/internal/restore"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/termstatus"
)

func newCheckStatusCommand(globalOptions *GlobalOptions) *cobra.Command {
	var opts CheckStatusOptions

	cmd := &cobra.Command{
		Use:     "check-status [flags]",
		Aliases: []string{"check-objects-status"},
		Short:   "Check which objects are restored and ready for download",
		Long: `
The "check-status" command queries the restore state of every object in the
object list which is not yet known to be available. Objects that are ready are
recorded, so later runs only check the remaining ones.

EXIT STATUS
===========

Exit status is 0 if all objects are ready for download.
Exit status is 1 if there was any error.
Exit status is 3 if some objects are still being restored or could not be checked.
Exit status is 10 if the object list could not be read.
Exit status is 11 if another process is working on the same bucket.
Exit status is 12 if a checkpoint is corrupt.
Exit status is 130 if the command was interrupted.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			term, cancel := termstatus.Setup(globalOptions.stdout, globalOptions.stderr, globalOptions.Quiet)
			defer cancel()
			return runCheckStatus(cmd.Context(), opts, *globalOptions, term)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// CheckStatusOptions collects all options for the check-status command.
type CheckStatusOptions struct {
	dispatchOptions
}

func (opts *CheckStatusOptions) AddFlags(f *pflag.FlagSet) {
	opts.dispatchOptions.AddFlags(f)
}

func runCheckStatus(ctx context.Context, opts CheckStatusOptions, gopts GlobalOptions, term ui.Terminal) error {
	printer := ui.NewProgressPrinter(term, gopts.verbosity)

	ropts, err := opts.runOptions(gopts)
	if err != nil {
		return err
	}

	scope, err := gopts.Scope()
	if err != nil {
		return err
	}

	be, _, err := OpenBackend(ctx, gopts, ropts.Workers, printer)
	if err != nil {
		return err
	}
	defer func() {
		_ = be.Close()
	}()

	_, _, err = restore.CheckStatus(ctx, be, scope, ropts, printer)
	return err
}
