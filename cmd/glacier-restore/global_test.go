package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/location"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/s3"
	"github.com/marekhanzlik/s3-glacier-restore/internal/checkpoint"
	"github.com/marekhanzlik/s3-glacier-restore/internal/config"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/options"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

func isolateConfig(t *testing.T) string {
	dir := rtest.TempDir(t)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HOME", dir)
	return dir
}

func TestPreRunVerbosity(t *testing.T) {
	isolateConfig(t)

	for _, test := range []struct {
		quiet     bool
		verbose   int
		verbosity uint
	}{
		{false, 0, 1},
		{true, 0, 0},
		{false, 1, 2},
		{false, 2, 3},
		{false, 5, 3},
	} {
		gopts := GlobalOptions{Quiet: test.quiet, Verbose: test.verbose}
		rtest.OK(t, gopts.PreRun())
		rtest.Equals(t, test.verbosity, gopts.verbosity)
	}

	gopts := GlobalOptions{Quiet: true, Verbose: 1}
	err := gopts.PreRun()
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
}

func TestPreRunConfigFile(t *testing.T) {
	dir := isolateConfig(t)

	path := filepath.Join(dir, "config", "glacier-restore", "config.toml")
	rtest.OK(t, os.MkdirAll(filepath.Dir(path), 0700))
	rtest.OK(t, os.WriteFile(path, []byte(`
bucket = "photos"
profile = "archive"
state_dir = "/var/lib/glacier-restore"
checkpoint_backend = "sqlite"

[options]
"s3.region" = "eu-west-1"
"s3.retries" = "3"
`), 0600))

	gopts := GlobalOptions{Profile: "admin", Options: []string{"s3.retries=5"}}
	rtest.OK(t, gopts.PreRun())

	rtest.Equals(t, "photos", gopts.Bucket)
	rtest.Equals(t, "admin", gopts.Profile)
	rtest.Equals(t, "/var/lib/glacier-restore", gopts.StateDir)
	rtest.Equals(t, checkpoint.BackendSQLite, gopts.Checkpoint)
	rtest.Equals(t, options.Options{"s3.region": "eu-west-1", "s3.retries": "5"}, gopts.extended)
}

func TestPreRunMissingConfigFile(t *testing.T) {
	dir := isolateConfig(t)

	gopts := GlobalOptions{ConfigFile: filepath.Join(dir, "missing.toml")}
	err := gopts.PreRun()
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)

	// the default file is optional
	gopts = GlobalOptions{}
	rtest.OK(t, gopts.PreRun())
	rtest.Equals(t, "", gopts.Bucket)
}

func TestScope(t *testing.T) {
	_, err := GlobalOptions{}.Scope()
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)

	scope, err := GlobalOptions{Bucket: "s3:photos/2018", StateDir: "state"}.Scope()
	rtest.OK(t, err)
	rtest.Equals(t, "state", scope.Dir)
	rtest.Equals(t, "photos_2018", scope.Name)
}

func TestParseConfig(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "us-east-2")
	t.Setenv("AWS_DEFAULT_REGION", "")

	gopts := GlobalOptions{
		Profile:  "archive",
		backends: collectBackends(),
		extended: options.Options{"s3.retries": "4", "azure.connections": "9"},
	}

	loc, err := location.Parse(gopts.backends, "photos")
	rtest.OK(t, err)

	cfg, err := parseConfig(loc, gopts)
	rtest.OK(t, err)

	s3cfg := cfg.(*s3.Config)
	rtest.Equals(t, "photos", s3cfg.Bucket)
	rtest.Equals(t, "archive", s3cfg.Profile)
	rtest.Equals(t, "us-east-2", s3cfg.Region)
	rtest.Equals(t, uint(4), s3cfg.MaxRetries)
}

func TestRunOptions(t *testing.T) {
	var gopts GlobalOptions

	ropts, err := dispatchOptions{}.runOptions(gopts)
	rtest.OK(t, err)
	rtest.Equals(t, 0, ropts.Workers)
	rtest.Equals(t, 5, ropts.Policy.MaxAttempts)
	rtest.Equals(t, time.Second, ropts.Policy.BaseDelay)
	rtest.Equals(t, time.Minute, ropts.Policy.MaxDelay)

	gopts.file = config.Config{
		Concurrency:        8,
		MaxAttempts:        7,
		BackoffBase:        config.Duration(2 * time.Second),
		AuthAbortThreshold: 6,
		LimitRequests:      50,
	}
	ropts, err = dispatchOptions{Concurrency: 3, BackoffCap: 30 * time.Second}.runOptions(gopts)
	rtest.OK(t, err)
	rtest.Equals(t, 3, ropts.Workers)
	rtest.Equals(t, 7, ropts.Policy.MaxAttempts)
	rtest.Equals(t, 2*time.Second, ropts.Policy.BaseDelay)
	rtest.Equals(t, 30*time.Second, ropts.Policy.MaxDelay)
	rtest.Equals(t, 6, ropts.AuthAbortThreshold)
	rtest.Equals(t, 50.0, ropts.LimitRequests)

	// a base above the default cap raises the cap
	ropts, err = dispatchOptions{BackoffBase: 2 * time.Minute}.runOptions(GlobalOptions{})
	rtest.OK(t, err)
	rtest.Equals(t, 2*time.Minute, ropts.Policy.MaxDelay)

	_, err = dispatchOptions{Concurrency: -1}.runOptions(GlobalOptions{})
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
}
