package restore

import (
	"context"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/dispatch"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/progress"
)

// submitRate is the number of restore requests a single worker completes per
// second, used for the estimate shown before a run.
const submitRate = 5

// SubmitOptions configures Submit.
type SubmitOptions struct {
	RunOptions

	Tier backend.Tier
	// RetainDays is the number of days restored copies are kept.
	RetainDays int
}

func (opts SubmitOptions) check() error {
	if opts.RetainDays < 1 {
		return errors.Fatalf("number of days to retain restored objects must be positive, got %d", opts.RetainDays)
	}
	if opts.Tier == "" {
		return nil
	}
	_, err := backend.ParseTier(string(opts.Tier))
	return err
}

// Submit requests the restore of every object in the scope's object list that
// has neither been requested nor found available before.
func Submit(ctx context.Context, be backend.Backend, scope Scope, opts SubmitOptions, printer progress.Printer) (dispatch.Result, error) {
	if err := opts.check(); err != nil {
		return dispatch.Result{}, err
	}
	if opts.Tier == "" {
		opts.Tier = backend.TierStandard
	}

	r, err := start(scope, opts.RunOptions, printer)
	if err != nil {
		return dispatch.Result{}, err
	}
	defer r.close()

	items := r.items.Items()
	pending := dispatch.Pending(items, r.cp.requested, r.cp.available)

	if n := len(dispatch.Pending(items, r.cp.requested)); n < len(items) {
		printer.P("skipping %d objects whose restore was requested before", len(items)-n)
	}
	if n := len(dispatch.Pending(items, r.cp.available)); n < len(items) {
		printer.P("skipping %d objects which are already available", len(items)-n)
	}

	if len(pending) == 0 {
		printer.P("all objects already requested, nothing to do")
		return dispatch.Result{Total: len(items), Skipped: len(items)}, nil
	}

	w := workers(opts.Workers, len(pending))
	printPending(printer, "request the restore of", pending, w, submitRate)

	if opts.DryRun {
		for _, item := range pending {
			printer.P("would request %v", item)
		}
		return dispatch.Result{Total: len(items), Skipped: len(items) - len(pending), Pending: len(pending)}, nil
	}

	req := backend.RestoreRequest{Tier: opts.Tier, Days: opts.RetainDays}
	adapter := dispatch.AdapterFunc(func(ctx context.Context, key string) error {
		return be.Restore(ctx, key, req)
	})

	counter := printer.NewCounter("objects requested")
	counter.SetMax(uint64(len(pending)))

	res, err := r.dispatcher(be, adapter, w, counter).Run(ctx, items, r.cp.requested, r.cp.available)
	counter.Done()

	printer.P("%d restores requested, %d failed, %d skipped", res.Succeeded, res.Failed, res.Skipped)
	if res.Interrupted > 0 {
		printer.P("%d objects were not processed, run submit again to continue", res.Interrupted)
	}
	reportFailures(printer, res.Failures)

	return finish(res, err)
}
