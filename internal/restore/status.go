package restore

import (
	"context"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/dispatch"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/progress"
)

// statusRate is the number of status checks a single worker completes per
// second.
const statusRate = 14

// StatusSummary counts the objects of the list by restore state.
type StatusSummary struct {
	// Ready objects can be downloaded.
	Ready int
	// Restoring objects have a restore in progress or were not checked.
	Restoring int
	// NotRequested objects are archived without a restore request.
	NotRequested int
}

// statusAdapter checks a single object. Objects whose restore is still
// running fail with ErrNotReady, archived objects without a restore fail with
// ErrNotRequested. Neither is retried.
func statusAdapter(be backend.Backend) dispatch.Adapter {
	return dispatch.AdapterFunc(func(ctx context.Context, key string) error {
		st, err := be.Status(ctx, key)
		if err != nil {
			return err
		}

		debug.Log("%v: %+v", key, st)

		switch {
		case st.Available():
			return nil
		case st.Ongoing:
			return retry.Mark(ErrNotReady, retry.Terminal)
		default:
			return retry.Mark(ErrNotRequested, retry.Terminal)
		}
	})
}

// CheckStatus checks every object of the scope's list that is not yet known
// to be available and records those which are ready for download.
func CheckStatus(ctx context.Context, be backend.Backend, scope Scope, opts RunOptions, printer progress.Printer) (dispatch.Result, StatusSummary, error) {
	r, err := start(scope, opts, printer)
	if err != nil {
		return dispatch.Result{}, StatusSummary{}, err
	}
	defer r.close()

	items := r.items.Items()
	pending := dispatch.Pending(items, r.cp.available)

	if skipped := len(items) - len(pending); skipped > 0 {
		printer.P("skipping %d objects which are ready for download", skipped)
	}

	w := workers(opts.Workers, len(pending))
	if len(pending) > 0 {
		printPending(printer, "check", pending, w, statusRate)
	}

	if opts.DryRun {
		for _, item := range pending {
			printer.P("would check %v", item)
		}
		res := dispatch.Result{Total: len(items), Skipped: len(items) - len(pending), Pending: len(pending)}
		return res, summarize(items, r.cp.available, nil), nil
	}

	counter := printer.NewCounter("objects checked")
	counter.SetMax(uint64(len(pending)))

	res, err := r.dispatcher(be, statusAdapter(be), w, counter).Run(ctx, items, r.cp.available)
	counter.Done()

	sum := summarize(items, r.cp.available, res.Failures)
	printer.P("%d objects are restored and ready for download", sum.Ready)
	printer.P("%d objects are still being restored", sum.Restoring)
	for _, f := range res.Failures {
		if errors.Is(f.Err, ErrNotReady) {
			printer.V("still being restored: %v", ui.Quote(f.Item))
		}
	}
	if sum.NotRequested > 0 {
		printer.P("%d objects have no restore request, run submit for them", sum.NotRequested)
	}
	if res.Interrupted > 0 {
		printer.P("%d objects were not checked, run check-status again to continue", res.Interrupted)
	}
	reportFailures(printer, res.Failures)

	res, err = finish(res, err)
	return res, sum, err
}

func summarize(items []string, available dispatch.Membership, failures []dispatch.Failure) StatusSummary {
	var sum StatusSummary
	for _, item := range items {
		if available.Contains(item) {
			sum.Ready++
		}
	}
	for _, f := range failures {
		if errors.Is(f.Err, ErrNotRequested) {
			sum.NotRequested++
		}
	}
	sum.Restoring = len(items) - sum.Ready - sum.NotRequested
	return sum
}
