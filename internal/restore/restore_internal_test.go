package restore

import (
	"runtime"
	"testing"
	"time"

	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

func TestEstimate(t *testing.T) {
	for _, test := range []struct {
		n, w, rate int
		want       time.Duration
	}{
		{0, 4, submitRate, 0},
		{20, 4, submitRate, time.Second},
		{72000, 4, submitRate, time.Hour},
		{14, 1, statusRate, time.Second},
		{10, 0, statusRate, 0},
	} {
		rtest.Equals(t, test.want, estimate(test.n, test.w, test.rate))
	}
}

func TestWorkers(t *testing.T) {
	rtest.Equals(t, 3, workers(8, 3))
	rtest.Equals(t, 8, workers(8, 100))
	rtest.Equals(t, 8, workers(8, 0))
	rtest.Equals(t, runtime.GOMAXPROCS(0), workers(0, 1<<20))
}
