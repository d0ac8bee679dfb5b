// Package restore implements the run modes of glacier-restore: listing the
// archived objects of a bucket, requesting their restore, and polling until
// the restored copies are available.
//
// Submit and CheckStatus share the dispatcher from package dispatch and keep
// their progress in two checkpoints per scope, so both can be interrupted and
// resumed at any time.
package restore

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/checkpoint"
	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/dispatch"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/itemset"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/progress"
)

var (
	// ErrIncomplete is returned when a run finished but some objects failed.
	ErrIncomplete = errors.New("not all objects were processed successfully")
	// ErrNotReady is the failure of objects whose restore is still running.
	ErrNotReady = errors.New("restore in progress")
	// ErrNotRequested is the failure of archived objects without a restore.
	ErrNotRequested = errors.New("no restore requested")
)

// RunOptions are shared by Submit and CheckStatus.
type RunOptions struct {
	// ObjectList is the list of objects, defaults to the scope's object list.
	ObjectList string
	// Workers is the number of concurrent requests.
	Workers int
	// Policy controls retries. The backend's classifier is used if
	// Policy.Classify is nil.
	Policy retry.Policy
	// LimitRequests caps the requests per second of all workers, if positive.
	LimitRequests float64
	// AuthAbortThreshold is the number of consecutive unauthorized objects
	// that abort the run.
	AuthAbortThreshold int

	Checkpoint   checkpoint.Backend
	ResetCorrupt bool

	// DryRun only prints what would be done.
	DryRun bool
}

// checkpoints are the two sets kept per scope.
type checkpoints struct {
	requested checkpoint.Set
	available checkpoint.Set
}

func (c checkpoints) Close() error {
	var errs []error
	for _, s := range []checkpoint.Set{c.requested, c.available} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type movedAside interface {
	MovedAside() string
}

func openCheckpoints(scope Scope, opts RunOptions, printer progress.Printer) (cp checkpoints, err error) {
	copts := checkpoint.Options{ResetCorrupt: opts.ResetCorrupt}

	open := func(path, table string) (checkpoint.Set, error) {
		if opts.Checkpoint == checkpoint.BackendSQLite {
			return checkpoint.OpenSQLite(scope.SQLite(), table, copts)
		}
		return checkpoint.OpenFile(path, copts)
	}

	defer func() {
		if err != nil {
			_ = cp.Close()
		}
	}()

	for _, c := range []struct {
		path, table string
		set         *checkpoint.Set
	}{
		{scope.Progress(), "requested", &cp.requested},
		{scope.Available(), "available", &cp.available},
	} {
		s, err := open(c.path, c.table)
		if err != nil {
			return checkpoints{}, err
		}
		*c.set = s

		if m, ok := s.(movedAside); ok && m.MovedAside() != "" {
			printer.E("checkpoint %v was corrupt, moved it to %v and started from scratch", c.table, m.MovedAside())
		}
	}

	return cp, nil
}

// run is the state of a Submit or CheckStatus call.
type run struct {
	scope   Scope
	opts    RunOptions
	printer progress.Printer

	lock  *checkpoint.Lock
	items *itemset.Set
	cp    checkpoints
}

// start locks the scope, then loads the object list and the checkpoints.
func start(scope Scope, opts RunOptions, printer progress.Printer) (*run, error) {
	if opts.Workers < 0 {
		return nil, errors.Fatalf("concurrency must be positive, got %d", opts.Workers)
	}
	if opts.LimitRequests < 0 {
		return nil, errors.Fatalf("request limit must not be negative, got %v", opts.LimitRequests)
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if err := scope.prepare(); err != nil {
		return nil, err
	}
	if opts.ObjectList == "" {
		opts.ObjectList = scope.Objects()
	}

	lock, err := checkpoint.LockScope(scope.Lock())
	if err != nil {
		return nil, err
	}

	r := &run{scope: scope, opts: opts, printer: printer, lock: lock}

	r.items, err = itemset.Load(opts.ObjectList, true)
	if err != nil {
		r.close()
		if errors.Is(err, itemset.ErrSourceUnavailable) {
			printer.E("run generate-list first or pass --object-list")
		}
		return nil, err
	}

	cp, err := openCheckpoints(scope, opts, printer)
	if err != nil {
		r.close()
		return nil, err
	}
	r.cp = cp

	return r, nil
}

func (r *run) close() {
	if err := r.cp.Close(); err != nil {
		r.printer.E("unable to close checkpoint: %v", err)
	}
	if err := r.lock.Unlock(); err != nil {
		debug.Log("unable to unlock %v: %v", r.scope.Lock(), err)
	}
}

// dispatcher returns a dispatcher for adapter which reports progress to
// counter.
func (r *run) dispatcher(be backend.Backend, adapter dispatch.Adapter, workers int, counter *progress.Counter) *dispatch.Dispatcher {
	policy := r.opts.Policy
	if policy.Classify == nil {
		policy.Classify = func(err error) retry.Class {
			if c, ok := retry.ClassOf(err); ok {
				return c
			}
			return be.Classify(err)
		}
	}

	var limiter *rate.Limiter
	if r.opts.LimitRequests > 0 {
		burst := int(r.opts.LimitRequests)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(r.opts.LimitRequests), burst)
	}

	return dispatch.New(adapter, dispatch.Options{
		Workers:            workers,
		Policy:             policy,
		Throttle:           retry.NewThrottle(policy.BaseDelay, policy.MaxDelay),
		Limiter:            limiter,
		AuthAbortThreshold: r.opts.AuthAbortThreshold,
		Progress: func(item string, o retry.Outcome) {
			counter.Add(1)
			if o.Err != nil && !errors.Is(o.Err, ErrNotReady) {
				r.printer.V("%v: %v", item, o.Err)
			}
		},
		Report: func(item string, err error, d time.Duration) {
			r.printer.VV("%v: %v, retrying in %v", item, err, d.Round(time.Millisecond))
		},
	})
}

// workers returns the number of workers for n pending items.
func workers(requested, n int) int {
	if requested <= 0 {
		requested = runtime.GOMAXPROCS(0)
	}
	if n > 0 && n < requested {
		return n
	}
	return requested
}

// estimate returns the expected duration for n items processed by w workers
// at perWorker items per second each.
func estimate(n, w, perWorker int) time.Duration {
	if w < 1 || perWorker < 1 {
		return 0
	}
	return time.Duration(float64(n) / float64(w*perWorker) * float64(time.Second)).Round(time.Second)
}

func printPending(printer progress.Printer, verb string, pending []string, w, perWorker int) {
	printer.P("will %v %d objects with %d workers, this takes approximately %v",
		verb, len(pending), w, ui.FormatDuration(estimate(len(pending), w, perWorker)))
}

// reportFailures prints a table of the failures, except those caused by
// restores that are still running.
func reportFailures(printer progress.Printer, failures []dispatch.Failure) {
	var rows [][]string
	for _, f := range failures {
		if errors.Is(f.Err, ErrNotReady) {
			continue
		}
		rows = append(rows, []string{f.Item, strconv.Itoa(f.Attempts), f.Class.String(), f.Err.Error()})
	}
	if len(rows) == 0 {
		return
	}

	printer.E("%d objects failed:\n%s", len(rows),
		ui.RenderTable([]string{"Object", "Attempts", "Class", "Reason"}, rows, 1))
}

// finish turns the result of a run into the error returned to the caller.
func finish(res dispatch.Result, err error) (dispatch.Result, error) {
	if err != nil {
		return res, err
	}
	if len(res.Failures) > 0 {
		return res, errors.Wrap(ErrIncomplete, fmt.Sprintf("%d of %d objects failed", res.Failed, res.Pending))
	}
	return res, nil
}
