package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/azure"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/restore"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/termstatus"
)

func newSubmitCommand(globalOptions *GlobalOptions) *cobra.Command {
	var opts SubmitOptions

	cmd := &cobra.Command{
		Use:     "submit [flags]",
		Aliases: []string{"request-objects-restore"},
		Short:   "Request the restore of all listed objects",
		Long: `
The "submit" command requests a restore for every object in the object list.
Objects whose restore was requested by an earlier run, and objects which are
already available, are skipped. Successful requests are recorded immediately,
so an interrupted run can simply be started again.

Objects that failed are listed at the end and are retried by the next run.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 3 if the restore of some objects could not be requested.
Exit status is 10 if the object list could not be read.
Exit status is 11 if another process is working on the same bucket.
Exit status is 12 if a checkpoint is corrupt.
Exit status is 130 if the command was interrupted.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			term, cancel := termstatus.Setup(globalOptions.stdout, globalOptions.stderr, globalOptions.Quiet)
			defer cancel()
			return runSubmit(cmd.Context(), opts, *globalOptions, term)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// SubmitOptions collects all options for the submit command.
type SubmitOptions struct {
	dispatchOptions
	RetainDays int
	Tier       backend.Tier
}

func (opts *SubmitOptions) AddFlags(f *pflag.FlagSet) {
	f.IntVarP(&opts.RetainDays, "retain-for-days", "d", 0, "keep restored copies for `n` days (required)")
	f.Var(&opts.Tier, "tier", "retrieval tier, one of (Standard|Bulk|Expedited)")
	opts.dispatchOptions.AddFlags(f)
}

func runSubmit(ctx context.Context, opts SubmitOptions, gopts GlobalOptions, term ui.Terminal) error {
	printer := ui.NewProgressPrinter(term, gopts.verbosity)

	if opts.RetainDays == 0 {
		opts.RetainDays = gopts.file.RetainForDays
	}
	if opts.RetainDays == 0 {
		return errors.Fatal("please specify how long restored objects are kept (--retain-for-days)")
	}
	if opts.Tier == "" && gopts.file.Tier != "" {
		if err := opts.Tier.Set(gopts.file.Tier); err != nil {
			return err
		}
	}

	ropts, err := opts.runOptions(gopts)
	if err != nil {
		return err
	}

	scope, err := gopts.Scope()
	if err != nil {
		return err
	}

	be, loc, err := OpenBackend(ctx, gopts, ropts.Workers, printer)
	if err != nil {
		return err
	}
	defer func() {
		_ = be.Close()
	}()

	if cfg, ok := loc.Config.(*azure.Config); ok {
		printer.V("rehydrated blobs stay in the %v tier, --retain-for-days is ignored", cfg.RehydrateTier)
	}

	_, err = restore.Submit(ctx, be, scope, restore.SubmitOptions{
		RunOptions: ropts,
		Tier:       opts.Tier,
		RetainDays: opts.RetainDays,
	}, printer)
	return err
}
