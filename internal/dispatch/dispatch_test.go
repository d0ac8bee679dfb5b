package dispatch_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/marekhanzlik/s3-glacier-restore/internal/checkpoint"
	"github.com/marekhanzlik/s3-glacier-restore/internal/dispatch"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/retry"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

// recordingAdapter counts invocations per item. fn decides the result of each
// call; a nil fn always succeeds.
type recordingAdapter struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(ctx context.Context, item string, call int) error
}

func newRecordingAdapter(fn func(ctx context.Context, item string, call int) error) *recordingAdapter {
	return &recordingAdapter{calls: make(map[string]int), fn: fn}
}

func (a *recordingAdapter) Invoke(ctx context.Context, item string) error {
	a.mu.Lock()
	a.calls[item]++
	call := a.calls[item]
	a.mu.Unlock()

	if a.fn == nil {
		return nil
	}
	return a.fn(ctx, item, call)
}

func (a *recordingAdapter) invoked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var items []string
	for item, n := range a.calls {
		for i := 0; i < n; i++ {
			items = append(items, item)
		}
	}
	return items
}

func openCheckpoint(t testing.TB, path string) *checkpoint.FileSet {
	s, err := checkpoint.OpenFile(path, checkpoint.Options{})
	rtest.OK(t, err)
	t.Cleanup(func() {
		rtest.OK(t, s.Close())
	})
	return s
}

func TestRunSkipsCheckpointedItems(t *testing.T) {
	path := filepath.Join(rtest.TempDir(t), "photos.progress")
	rtest.WriteLines(t, path, "a", "b")
	done := openCheckpoint(t, path)

	adapter := newRecordingAdapter(nil)
	d := dispatch.New(adapter, dispatch.Options{Workers: 2})

	res, err := d.Run(context.TODO(), []string{"a", "b", "c", "d", "e"}, done)
	rtest.OK(t, err)

	rtest.EqualSet(t, []string{"c", "d", "e"}, adapter.invoked())
	rtest.Equals(t, dispatch.Result{Total: 5, Skipped: 2, Pending: 3, Succeeded: 3}, res)
	rtest.EqualSet(t, []string{"a", "b", "c", "d", "e"}, rtest.ReadLines(t, path))
}

func TestRunRetriesRetryableFailures(t *testing.T) {
	retry.TestFastRetries(t)

	done := openCheckpoint(t, filepath.Join(rtest.TempDir(t), "x.progress"))
	adapter := newRecordingAdapter(func(_ context.Context, item string, call int) error {
		if call <= 2 {
			return errors.New("connection reset")
		}
		return nil
	})

	var reports int
	d := dispatch.New(adapter, dispatch.Options{
		Workers: 1,
		Policy:  retry.DefaultPolicy(),
		Report: func(item string, err error, _ time.Duration) {
			rtest.Equals(t, "x", item)
			reports++
		},
	})

	res, err := d.Run(context.TODO(), []string{"x"}, done)
	rtest.OK(t, err)
	rtest.Equals(t, 1, res.Succeeded)
	rtest.Equals(t, []string{"x", "x", "x"}, adapter.invoked())
	rtest.Equals(t, 2, reports)
	rtest.Assert(t, done.Contains("x"), "x not checkpointed")
}

func TestRunCollectsTerminalFailures(t *testing.T) {
	path := filepath.Join(rtest.TempDir(t), "x.progress")
	done := openCheckpoint(t, path)

	adapter := newRecordingAdapter(func(_ context.Context, item string, _ int) error {
		if item == "y" {
			return retry.Mark(errors.New("NoSuchKey"), retry.Terminal)
		}
		return nil
	})

	d := dispatch.New(adapter, dispatch.Options{Workers: 3})
	res, err := d.Run(context.TODO(), []string{"a", "b", "y", "c", "d"}, done)
	rtest.OK(t, err)

	rtest.Equals(t, 4, res.Succeeded)
	rtest.Equals(t, 1, res.Failed)
	rtest.Equals(t, 1, res.Terminal)
	rtest.Equals(t, 1, len(res.Failures))
	rtest.Equals(t, "y", res.Failures[0].Item)
	rtest.Equals(t, 1, res.Failures[0].Attempts)
	rtest.Equals(t, retry.Terminal, res.Failures[0].Class)

	rtest.OK(t, done.Close())
	rtest.EqualSet(t, []string{"a", "b", "c", "d"}, rtest.ReadLines(t, path))
}

func TestRunResumesAfterInterruption(t *testing.T) {
	path := filepath.Join(rtest.TempDir(t), "x.progress")

	var items []string
	for i := 0; i < 10; i++ {
		items = append(items, fmt.Sprintf("item-%02d", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	adapter := newRecordingAdapter(func(ctx context.Context, _ string, _ int) error {
		calls++
		if calls == 4 {
			// the process is killed while the fourth call is in flight
			cancel()
			return ctx.Err()
		}
		return nil
	})

	done, err := checkpoint.OpenFile(path, checkpoint.Options{})
	rtest.OK(t, err)

	res, err := dispatch.New(adapter, dispatch.Options{Workers: 1}).Run(ctx, items, done)
	rtest.Assert(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
	rtest.Equals(t, 3, res.Succeeded)
	rtest.Equals(t, 0, res.Failed)
	rtest.Equals(t, 7, res.Interrupted)
	rtest.OK(t, done.Close())

	rtest.Equals(t, 3, len(rtest.ReadLines(t, path)))

	done = openCheckpoint(t, path)
	adapter = newRecordingAdapter(nil)
	res, err = dispatch.New(adapter, dispatch.Options{Workers: 4}).Run(context.TODO(), items, done)
	rtest.OK(t, err)

	rtest.Equals(t, 7, len(adapter.invoked()))
	rtest.EqualSet(t, items[3:], adapter.invoked())
	rtest.Equals(t, 7, res.Succeeded)
	rtest.EqualSet(t, items, rtest.ReadLines(t, path))
}

func TestRunNeverRedispatchesDoneItems(t *testing.T) {
	var items []string
	for i := 0; i < 60; i++ {
		items = append(items, fmt.Sprintf("object-%d", i))
	}

	for _, workers := range []int{1, 2, 7, 32} {
		t.Run(fmt.Sprintf("workers-%d", workers), func(t *testing.T) {
			path := filepath.Join(rtest.TempDir(t), "x.progress")
			var pre []string
			for i := 0; i < len(items); i += 3 {
				pre = append(pre, items[i])
			}
			rtest.WriteLines(t, path, pre...)
			done := openCheckpoint(t, path)

			adapter := newRecordingAdapter(nil)
			_, err := dispatch.New(adapter, dispatch.Options{Workers: workers}).Run(context.TODO(), items, done)
			rtest.OK(t, err)

			rtest.EqualSet(t, dispatch.Pending(items, checkpointOf(pre...)), adapter.invoked())
			rtest.Equals(t, len(items), done.Len())
		})
	}
}

type memberSet map[string]struct{}

func (s memberSet) Contains(item string) bool {
	_, ok := s[item]
	return ok
}

func checkpointOf(items ...string) memberSet {
	s := make(memberSet)
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func TestPending(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	pending := dispatch.Pending(items, checkpointOf("b"), checkpointOf("d"), nil)
	rtest.Equals(t, []string{"a", "c", "e"}, pending)

	rtest.Equals(t, items, dispatch.Pending(items, nil))
}

func TestRunAbortsOnSystemicAuthFailure(t *testing.T) {
	done := openCheckpoint(t, filepath.Join(rtest.TempDir(t), "x.progress"))

	adapter := newRecordingAdapter(func(context.Context, string, int) error {
		return retry.Mark(errors.New("AccessDenied"), retry.Unauthorized)
	})

	var items []string
	for i := 0; i < 10; i++ {
		items = append(items, fmt.Sprintf("item-%d", i))
	}

	res, err := dispatch.New(adapter, dispatch.Options{Workers: 1}).Run(context.TODO(), items, done)
	rtest.Assert(t, errors.Is(err, dispatch.ErrSystemicAuth), "expected ErrSystemicAuth, got %v", err)
	rtest.Equals(t, 3, res.Failed)
	rtest.Equals(t, 7, res.Interrupted)
	rtest.Equals(t, 3, len(adapter.invoked()))
}

func TestRunAuthStreakResetBySuccess(t *testing.T) {
	done := openCheckpoint(t, filepath.Join(rtest.TempDir(t), "x.progress"))

	adapter := newRecordingAdapter(func(_ context.Context, item string, _ int) error {
		if item[0] == 'u' {
			return retry.Mark(errors.New("AccessDenied"), retry.Unauthorized)
		}
		return nil
	})

	items := []string{"u1", "u2", "s1", "u3", "u4", "s2", "u5", "u6"}
	res, err := dispatch.New(adapter, dispatch.Options{Workers: 1}).Run(context.TODO(), items, done)
	rtest.OK(t, err)
	rtest.Equals(t, 2, res.Succeeded)
	rtest.Equals(t, 6, res.Failed)
	rtest.Equals(t, 6, res.Terminal)
}

type failingRecorder struct{}

func (failingRecorder) Contains(string) bool { return false }
func (failingRecorder) Record(string) error  { return errors.New("disk full") }

func TestRunAbortsOnCheckpointError(t *testing.T) {
	adapter := newRecordingAdapter(nil)
	_, err := dispatch.New(adapter, dispatch.Options{Workers: 1}).Run(context.TODO(), []string{"a", "b"}, failingRecorder{})
	rtest.Assert(t, err != nil, "checkpoint error was swallowed")
	rtest.Equals(t, 1, len(adapter.invoked()))
}

func TestRunRespectsLimiter(t *testing.T) {
	done := openCheckpoint(t, filepath.Join(rtest.TempDir(t), "x.progress"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	adapter := newRecordingAdapter(nil)
	d := dispatch.New(adapter, dispatch.Options{
		Workers: 1,
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	})

	res, err := d.Run(ctx, []string{"a", "b", "c", "d", "e"}, done)
	rtest.Assert(t, errors.Is(err, context.DeadlineExceeded), "expected deadline error, got %v", err)
	rtest.Equals(t, 1, res.Succeeded)
	rtest.Equals(t, 4, res.Interrupted)
	rtest.Equals(t, []string{"a"}, adapter.invoked())
}

func TestRunLimitsRetries(t *testing.T) {
	retry.TestFastRetries(t)
	done := openCheckpoint(t, filepath.Join(rtest.TempDir(t), "x.progress"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	adapter := newRecordingAdapter(func(context.Context, string, int) error {
		return errors.New("connection reset")
	})
	d := dispatch.New(adapter, dispatch.Options{
		Workers: 1,
		Policy:  retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	})

	res, err := d.Run(ctx, []string{"a"}, done)
	rtest.Assert(t, errors.Is(err, context.DeadlineExceeded), "expected deadline error, got %v", err)
	rtest.Equals(t, []string{"a"}, adapter.invoked())
	rtest.Equals(t, 0, res.Failed)
	rtest.Equals(t, 1, res.Interrupted)
}

func TestRunRejectsInvalidPolicy(t *testing.T) {
	d := dispatch.New(newRecordingAdapter(nil), dispatch.Options{
		Policy: retry.Policy{MaxAttempts: -1},
	})
	_, err := d.Run(context.TODO(), []string{"a"}, checkpointRecorder())
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
}

func checkpointRecorder() dispatch.Recorder {
	return &memRecorder{set: make(memberSet)}
}

type memRecorder struct {
	mu  sync.Mutex
	set memberSet
}

func (r *memRecorder) Contains(item string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set.Contains(item)
}

func (r *memRecorder) Record(item string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set[item] = struct{}{}
	return nil
}
