package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/restore"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
)

// dispatchOptions are the flags shared by submit and check-status.
type dispatchOptions struct {
	Concurrency        int
	ObjectList         string
	DryRun             bool
	MaxAttempts        int
	BackoffBase        time.Duration
	BackoffCap         time.Duration
	AuthAbortThreshold int
	LimitRequests      float64
	ResetCorrupt       bool
}

func (opts *dispatchOptions) AddFlags(f *pflag.FlagSet) {
	f.IntVar(&opts.Concurrency, "concurrency", 0, "number of concurrent requests (default: number of CPUs)")
	f.StringVar(&opts.ObjectList, "object-list", "", "read object keys from `file` (default: <bucket>.objects in the state directory)")
	f.BoolVarP(&opts.DryRun, "dry-run", "n", false, "do not send any requests, just show what would be done")
	f.IntVar(&opts.MaxAttempts, "max-attempts", 0, "number of attempts per object before it is reported as failed (default: 5)")
	f.DurationVar(&opts.BackoffBase, "backoff-base", 0, "delay after the first failed attempt (default: 1s)")
	f.DurationVar(&opts.BackoffCap, "backoff-cap", 0, "maximum delay between attempts (default: 1m)")
	f.IntVar(&opts.AuthAbortThreshold, "auth-abort-threshold", 0, "abort after this many objects in a row failed authorization (default: 3)")
	f.Float64Var(&opts.LimitRequests, "limit-requests", 0, "limit requests to `rate` per second across all workers (default: unlimited)")
	f.BoolVar(&opts.ResetCorrupt, "reset-corrupt-checkpoint", false, "move a corrupt checkpoint aside and start over instead of failing")
}

// runOptions combines the flags with the defaults from the configuration
// file. Flags that were not set fall back to the file, then to the built-in
// defaults.
func (opts dispatchOptions) runOptions(gopts GlobalOptions) (restore.RunOptions, error) {
	file := gopts.file

	pick := func(flag, fromFile int) int {
		if flag != 0 {
			return flag
		}
		return fromFile
	}

	policy := retry.DefaultPolicy()
	if n := pick(opts.MaxAttempts, file.MaxAttempts); n != 0 {
		policy.MaxAttempts = n
	}
	for _, d := range []struct {
		dst            *time.Duration
		flag, fromFile time.Duration
	}{
		{&policy.BaseDelay, opts.BackoffBase, time.Duration(file.BackoffBase)},
		{&policy.MaxDelay, opts.BackoffCap, time.Duration(file.BackoffCap)},
	} {
		switch {
		case d.flag != 0:
			*d.dst = d.flag
		case d.fromFile != 0:
			*d.dst = d.fromFile
		}
	}
	// a base above the default cap raises the cap
	if opts.BackoffCap == 0 && file.BackoffCap == 0 && policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	policy.Classify = nil

	ropts := restore.RunOptions{
		ObjectList:         opts.ObjectList,
		Workers:            pick(opts.Concurrency, file.Concurrency),
		Policy:             policy,
		LimitRequests:      opts.LimitRequests,
		AuthAbortThreshold: pick(opts.AuthAbortThreshold, file.AuthAbortThreshold),
		Checkpoint:         gopts.Checkpoint,
		ResetCorrupt:       opts.ResetCorrupt,
		DryRun:             opts.DryRun,
	}
	if ropts.LimitRequests == 0 {
		ropts.LimitRequests = file.LimitRequests
	}

	if ropts.Workers < 0 {
		return ropts, errors.Fatalf("--concurrency must be positive, got %d", ropts.Workers)
	}
	if err := policy.Validate(); err != nil {
		return ropts, err
	}
	return ropts, nil
}
