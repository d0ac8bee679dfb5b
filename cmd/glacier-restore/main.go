package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/marekhanzlik/s3-glacier-restore/internal/checkpoint"
	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/itemset"
	"github.com/marekhanzlik/s3-glacier-restore/internal/restore"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

func newRootCommand(globalOptions *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glacier-restore",
		Short: "Restore archived objects from S3 Glacier in bulk",
		Long: `
glacier-restore requests the restore of all archived objects in a bucket and
tracks which objects are ready for download. Progress is checkpointed, so an
interrupted run continues where it stopped.

The usual sequence is:

  glacier-restore --bucket photos generate-list
  glacier-restore --bucket photos submit --retain-for-days 7
  glacier-restore --bucket photos check-status
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return globalOptions.PreRun()
		},
	}

	globalOptions.AddFlags(cmd.PersistentFlags())

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newGenerateListCommand(globalOptions),
		newSubmitCommand(globalOptions),
		newCheckStatusCommand(globalOptions),
		newOptionsCommand(globalOptions),
		newVersionCommand(globalOptions),
	)

	registerProfiling(cmd, globalOptions.stderr)

	return cmd
}

// exitCode maps the error returned by a command to the exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, restore.ErrIncomplete):
		return 3
	case errors.Is(err, itemset.ErrSourceUnavailable):
		return 10
	case errors.Is(err, checkpoint.ErrLocked):
		return 11
	case errors.Is(err, checkpoint.ErrCorrupt):
		return 12
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

// exitMessage returns the message printed for err, logs holds the output
// libraries wrote via the log package.
func exitMessage(err error, logs *bytes.Buffer) string {
	switch {
	case errors.Is(err, checkpoint.ErrLocked):
		return fmt.Sprintf("%v\nanother glacier-restore process is working on this bucket", err)
	case errors.Is(err, checkpoint.ErrCorrupt):
		return fmt.Sprintf("%v\nuse --reset-corrupt-checkpoint to move it aside and start over", err)
	case errors.Is(err, context.Canceled):
		return "interrupted, run the command again to continue"
	case errors.IsFatal(err), exitCode(err) != 1, errors.Is(err, context.DeadlineExceeded):
		return err.Error()
	}

	msg := fmt.Sprintf("%+v", err)
	if logs != nil && logs.Len() > 0 {
		msg += "\nalso, the following messages were logged by a library:\n"
		sc := bufio.NewScanner(logs)
		for sc.Scan() {
			msg += fmt.Sprintln(sc.Text())
		}
	}
	return msg
}

func printExitError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%v\n", message)
}

func main() {
	// install custom global logger into a buffer, if an error occurs
	// we can show the logs
	logBuffer := bytes.NewBuffer(nil)
	log.SetOutput(logBuffer)

	debug.Log("main %#v", os.Args)
	debug.Log("glacier-restore %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	globalOptions := newGlobalOptions()

	ctx := createGlobalContext(globalOptions.stderr)
	err := newRootCommand(&globalOptions).ExecuteContext(ctx)
	if err == nil {
		err = ctx.Err()
	}

	code := exitCode(err)
	if code != 0 {
		printExitError(globalOptions.stderr, exitMessage(err, logBuffer))
	}
	Exit(code)
}
