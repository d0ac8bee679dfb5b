package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/azure"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/location"
	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/s3"
	"github.com/marekhanzlik/s3-glacier-restore/internal/checkpoint"
	"github.com/marekhanzlik/s3-glacier-restore/internal/config"
	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/options"
	"github.com/marekhanzlik/s3-glacier-restore/internal/restore"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/progress"
)

var version = "0.3.0-dev (compiled manually)"

// GlobalOptions hold all global options for glacier-restore.
type GlobalOptions struct {
	Bucket     string
	Profile    string
	ConfigFile string
	StateDir   string
	Checkpoint checkpoint.Backend
	Quiet      bool
	Verbose    int

	backend.TransportOptions

	stdout io.Writer
	stderr io.Writer

	backends *location.Registry

	// verbosity is set as follows:
	//  0 means: don't print any messages except errors, this is used when --quiet is specified
	//  1 is the default: print essential messages
	//  2 means: print more messages, report failed objects, this is used when --verbose is specified
	//  3 means: print very detailed messages, this is used when --verbose=2 is specified
	verbosity uint

	Options []string

	extended options.Options
	file     config.Config
}

func newGlobalOptions() GlobalOptions {
	return GlobalOptions{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		backends: collectBackends(),
	}
}

func collectBackends() *location.Registry {
	backends := location.NewRegistry()
	backends.Register(azure.NewFactory())
	backends.Register(s3.NewFactory())
	return backends
}

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.Bucket, "bucket", "b", "", "`bucket` to restore objects from, e.g. photos, s3:photos/2018 or azure:container (default: $GLACIER_RESTORE_BUCKET)")
	f.StringVar(&opts.Profile, "profile", "", "AWS credentials `profile` to use (default: $AWS_PROFILE)")
	f.StringVar(&opts.ConfigFile, "config", "", "read default settings from TOML `file` (default: $GLACIER_RESTORE_CONFIG or the user config directory)")
	f.StringVar(&opts.StateDir, "state-dir", "", "`directory` holding the object list and checkpoints (default: current directory)")
	f.Var(&opts.Checkpoint, "checkpoint-backend", "checkpoint storage, one of (file|sqlite)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "do not output comprehensive progress report")
	// use empty parameter name as `-v, --verbose n` instead of the correct `--verbose=n` is confusing
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose (specify multiple times or a level using --verbose=n``, max level/times is 2)")
	f.StringSliceVar(&opts.RootCertFilenames, "cacert", nil, "`file` to load root certificates from (default: use system certificates or $GLACIER_RESTORE_CACERT)")
	f.BoolVar(&opts.InsecureTLS, "insecure-tls", false, "skip TLS certificate verification when connecting to the provider (insecure)")
	f.StringSliceVarP(&opts.Options, "option", "o", []string{}, "set extended option (`key=value`, can be specified multiple times)")

	opts.Bucket = os.Getenv("GLACIER_RESTORE_BUCKET")
	opts.Profile = os.Getenv("AWS_PROFILE")
	opts.ConfigFile = os.Getenv("GLACIER_RESTORE_CONFIG")
	opts.StateDir = os.Getenv("GLACIER_RESTORE_STATE_DIR")
	if os.Getenv("GLACIER_RESTORE_CACERT") != "" {
		opts.RootCertFilenames = strings.Split(os.Getenv("GLACIER_RESTORE_CACERT"), ",")
	}
}

func (opts *GlobalOptions) PreRun() error {
	// set verbosity, default is one
	opts.verbosity = 1
	if opts.Quiet && opts.Verbose > 0 {
		return errors.Fatal("--quiet and --verbose cannot be specified at the same time")
	}

	switch {
	case opts.Verbose >= 2:
		opts.verbosity = 3
	case opts.Verbose > 0:
		opts.verbosity = 2
	case opts.Quiet:
		opts.verbosity = 0
	}

	if err := opts.loadConfigFile(); err != nil {
		return err
	}

	// parse extended options, those given on the command line win
	extendedOpts, err := options.Parse(opts.Options)
	if err != nil {
		return err
	}
	opts.extended = opts.file.Options.Merge(extendedOpts)

	return nil
}

// loadConfigFile reads the configuration file and fills in the global
// settings not given on the command line. A missing file is only an error if
// it was named explicitly.
func (opts *GlobalOptions) loadConfigFile() error {
	path := opts.ConfigFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			debug.Log("no default config path: %v", err)
			return nil
		}
	}

	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		if opts.ConfigFile != "" {
			return errors.Fatalf("config file %v does not exist", opts.ConfigFile)
		}
		return nil
	}
	if err != nil {
		return err
	}

	debug.Log("loaded config file %v", path)
	opts.file = cfg

	if opts.Bucket == "" {
		opts.Bucket = cfg.Bucket
	}
	if opts.Profile == "" {
		opts.Profile = cfg.Profile
	}
	if opts.StateDir == "" {
		opts.StateDir = cfg.StateDir
	}
	if opts.Checkpoint == "" && cfg.CheckpointBackend != "" {
		if err := opts.Checkpoint.Set(cfg.CheckpointBackend); err != nil {
			return err
		}
	}

	return nil
}

// Scope returns the state files of the selected bucket.
func (opts GlobalOptions) Scope() (restore.Scope, error) {
	if opts.Bucket == "" {
		return restore.Scope{}, errors.Fatal("please specify the bucket (--bucket or $GLACIER_RESTORE_BUCKET)")
	}
	return restore.NewScope(opts.StateDir, opts.Bucket), nil
}

func parseConfig(loc location.Location, gopts GlobalOptions) (interface{}, error) {
	cfg := loc.Config
	if c, ok := cfg.(*s3.Config); ok && c.Profile == "" {
		c.Profile = gopts.Profile
	}
	if cfg, ok := cfg.(backend.ApplyEnvironmenter); ok {
		cfg.ApplyEnvironment("")
	}

	// only apply options for a particular backend here
	opts := gopts.extended.Extract(loc.Scheme)
	if err := opts.Apply(loc.Scheme, cfg); err != nil {
		return nil, err
	}

	debug.Log("opening %v backend at %#v", loc.Scheme, cfg)
	return cfg, nil
}

// OpenBackend opens the bucket selected by the global options.
func OpenBackend(ctx context.Context, gopts GlobalOptions, connections int, printer progress.Printer) (backend.Backend, location.Location, error) {
	if gopts.Bucket == "" {
		return nil, location.Location{}, errors.Fatal("please specify the bucket (--bucket or $GLACIER_RESTORE_BUCKET)")
	}

	debug.Log("parsing location %v", gopts.Bucket)
	loc, err := location.Parse(gopts.backends, gopts.Bucket)
	if err != nil {
		return nil, location.Location{}, err
	}

	cfg, err := parseConfig(loc, gopts)
	if err != nil {
		return nil, location.Location{}, err
	}

	topts := gopts.TransportOptions
	topts.Connections = connections
	topts.UserAgent = "glacier-restore/" + strings.Fields(version)[0]
	rt, err := backend.Transport(topts)
	if err != nil {
		return nil, location.Location{}, errors.Fatal(err.Error())
	}

	factory := gopts.backends.Lookup(loc.Scheme)
	if factory == nil {
		return nil, location.Location{}, errors.Fatalf("invalid backend: %q", loc.Scheme)
	}

	be, err := factory.Open(ctx, cfg, rt)
	if err != nil {
		if errors.IsFatal(err) {
			return nil, location.Location{}, err
		}
		return nil, location.Location{}, errors.Fatalf("unable to open %v: %v", gopts.Bucket, err)
	}

	printer.V("opened %v", be.Location())
	return be, loc, nil
}
