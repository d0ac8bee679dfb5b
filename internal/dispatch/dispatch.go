// Package dispatch drives a batch of items through a remote operation with a
// fixed pool of workers. Completed items are recorded in a checkpoint set, so
// a later run only dispatches what is still pending.
package dispatch

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
)

// ErrSystemicAuth is returned by Run when several items in a row failed with
// an authorization error. The remaining items are not attempted.
var ErrSystemicAuth = errors.New("repeated authorization failures, aborting run")

// Adapter performs the remote operation for a single item. It must be safe for
// concurrent use.
type Adapter interface {
	Invoke(ctx context.Context, item string) error
}

// AdapterFunc is a function usable as an Adapter.
type AdapterFunc func(ctx context.Context, item string) error

// Invoke calls f(ctx, item).
func (f AdapterFunc) Invoke(ctx context.Context, item string) error {
	return f(ctx, item)
}

// Recorder durably marks items as done.
type Recorder interface {
	Contains(item string) bool
	Record(item string) error
}

// Membership reports whether an item is part of a set.
type Membership interface {
	Contains(item string) bool
}

// Options configures a Dispatcher.
type Options struct {
	// Workers is the number of concurrent adapter calls. Defaults to the
	// available parallelism.
	Workers int
	// Policy decides how often an item is retried.
	Policy retry.Policy
	// Throttle is shared by all workers. It may be nil.
	Throttle *retry.Throttle
	// Limiter caps the rate of adapter calls across all workers, retries
	// included. It may be nil.
	Limiter *rate.Limiter
	// AuthAbortThreshold is the number of consecutive unauthorized items that
	// abort the run. Defaults to 3.
	AuthAbortThreshold int

	// Progress is called once for every finished item.
	Progress func(item string, o retry.Outcome)
	// Report is called before an item is retried.
	Report func(item string, err error, d time.Duration)
}

// Failure describes an item that did not succeed.
type Failure struct {
	Item     string
	Attempts int
	Class    retry.Class
	Err      error
}

// Result summarizes a run.
type Result struct {
	// Total is the number of items passed to Run.
	Total int
	// Skipped items were already done or excluded before the run.
	Skipped int
	// Pending is the number of items the run set out to dispatch.
	Pending int

	Succeeded int
	// Failed counts all failed items, Terminal the subset that was not
	// retried because the error was final.
	Failed   int
	Terminal int
	// Interrupted counts pending items that did not reach an outcome because
	// the run was cancelled.
	Interrupted int

	Failures []Failure
}

// Dispatcher runs an Adapter over pending items.
type Dispatcher struct {
	adapter Adapter
	opts    Options
}

// New returns a dispatcher for adapter.
func New(adapter Adapter, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.AuthAbortThreshold <= 0 {
		opts.AuthAbortThreshold = 3
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	return &Dispatcher{adapter: adapter, opts: opts}
}

// wait blocks until the limiter allows the next adapter call. If the next
// slot lies beyond the deadline of ctx, it waits for ctx to expire.
func (d *Dispatcher) wait(ctx context.Context) error {
	if d.opts.Limiter == nil {
		return nil
	}
	if err := d.opts.Limiter.Wait(ctx); err != nil {
		debug.Log("limiter: %v", err)
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// Pending returns the items which are neither done nor part of any of the skip
// sets, in their original order.
func Pending(items []string, done Membership, skip ...Membership) []string {
	pending := make([]string, 0, len(items))
outer:
	for _, item := range items {
		if done != nil && done.Contains(item) {
			continue
		}
		for _, s := range skip {
			if s != nil && s.Contains(item) {
				continue outer
			}
		}
		pending = append(pending, item)
	}
	return pending
}

// Run invokes the adapter for every pending item and records successes in
// done. Item failures do not stop the run; they are collected in the result.
// Run returns an error only if the run as a whole was aborted: the context was
// cancelled, a checkpoint record could not be written, or authorization
// failed for too many items in a row. The result is valid in every case.
func (d *Dispatcher) Run(ctx context.Context, items []string, done Recorder, skip ...Membership) (Result, error) {
	if err := d.opts.Policy.Validate(); err != nil {
		return Result{}, err
	}

	pending := Pending(items, done, skip...)
	res := Result{
		Total:   len(items),
		Pending: len(pending),
		Skipped: len(items) - len(pending),
	}

	debug.Log("dispatching %d of %d items with %d workers", len(pending), len(items), d.opts.Workers)

	var (
		mu         sync.Mutex
		authStreak int
	)

	wg, wctx := errgroup.WithContext(ctx)

	ch := make(chan string)
	wg.Go(func() error {
		defer close(ch)
		for _, item := range pending {
			select {
			case <-wctx.Done():
				return nil
			case ch <- item:
			}
		}
		return nil
	})

	finish := func(item string, o retry.Outcome) error {
		if o.Err == nil {
			// the adapter call went through, record it even if the run is
			// being cancelled
			if err := done.Record(item); err != nil {
				return errors.Wrapf(err, "checkpoint %v", item)
			}
		}

		mu.Lock()
		defer mu.Unlock()

		if d.opts.Progress != nil {
			d.opts.Progress(item, o)
		}

		switch {
		case o.Err == nil:
			res.Succeeded++
			authStreak = 0
			return nil
		case wctx.Err() != nil && errors.Is(o.Err, wctx.Err()):
			// abandoned, counted as interrupted below
			return nil
		}

		res.Failed++
		if o.Class == retry.Terminal || o.Class == retry.Unauthorized {
			res.Terminal++
		}
		res.Failures = append(res.Failures, Failure{
			Item:     item,
			Attempts: o.Attempts,
			Class:    o.Class,
			Err:      o.Err,
		})

		if o.Class != retry.Unauthorized {
			return nil
		}
		authStreak++
		if authStreak >= d.opts.AuthAbortThreshold {
			debug.Log("%d consecutive unauthorized items, last error: %v", authStreak, o.Err)
			return errors.Wrapf(ErrSystemicAuth, "%d items in a row failed, last error: %v", authStreak, o.Err)
		}
		return nil
	}

	worker := func() error {
		for item := range ch {
			var report func(error, time.Duration)
			if d.opts.Report != nil {
				report = func(err error, delay time.Duration) {
					d.opts.Report(item, err, delay)
				}
			}

			o := retry.Do(wctx, d.opts.Policy, d.opts.Throttle, func(ctx context.Context) error {
				if err := d.wait(ctx); err != nil {
					return err
				}
				return d.adapter.Invoke(ctx, item)
			}, report)

			if err := finish(item, o); err != nil {
				return err
			}
		}
		return nil
	}

	for i := 0; i < d.opts.Workers; i++ {
		wg.Go(worker)
	}

	err := wg.Wait()

	res.Interrupted = res.Pending - res.Succeeded - res.Failed
	sort.Slice(res.Failures, func(i, j int) bool {
		return res.Failures[i].Item < res.Failures[j].Item
	})

	if err == nil && ctx.Err() != nil && res.Interrupted > 0 {
		err = ctx.Err()
	}

	debug.Log("run finished: %d succeeded, %d failed, %d interrupted, err %v",
		res.Succeeded, res.Failed, res.Interrupted, err)

	return res, err
}
