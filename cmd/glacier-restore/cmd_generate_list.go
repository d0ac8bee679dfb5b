package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marekhanzlik/s3-glacier-restore/internal/restore"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/termstatus"
)

func newGenerateListCommand(globalOptions *GlobalOptions) *cobra.Command {
	var opts GenerateListOptions

	cmd := &cobra.Command{
		Use:     "generate-list [flags]",
		Aliases: []string{"generate-object-list"},
		Short:   "Write the list of archived objects in the bucket",
		Long: `
The "generate-list" command lists all objects of the bucket which are stored in
an archive tier (GLACIER or DEEP_ARCHIVE on S3, Archive on Azure) and writes
their keys to the object list, one per line. The list is read by the "submit"
and "check-status" commands.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			term, cancel := termstatus.Setup(globalOptions.stdout, globalOptions.stderr, globalOptions.Quiet)
			defer cancel()
			return runGenerateList(cmd.Context(), opts, *globalOptions, term)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// GenerateListOptions collects all options for the generate-list command.
type GenerateListOptions struct {
	Output string
	Force  bool
}

func (opts *GenerateListOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.Output, "output", "O", "", "write the list to `file` (default: <bucket>.objects in the state directory)")
	f.BoolVarP(&opts.Force, "force", "f", false, "overwrite an existing list")
}

func runGenerateList(ctx context.Context, opts GenerateListOptions, gopts GlobalOptions, term ui.Terminal) error {
	printer := ui.NewProgressPrinter(term, gopts.verbosity)

	scope, err := gopts.Scope()
	if err != nil {
		return err
	}

	be, _, err := OpenBackend(ctx, gopts, 0, printer)
	if err != nil {
		return err
	}
	defer func() {
		_ = be.Close()
	}()

	path := opts.Output
	if path == "" {
		path = scope.Objects()
	}

	_, err = restore.GenerateList(ctx, be, path, opts.Force, printer)
	return err
}
