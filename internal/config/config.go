// Package config reads the optional TOML file with default settings. Values
// given on the command line always take precedence over the file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/options"
)

// Duration is a time.Duration written as a string like "1m30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds the settings from the configuration file. Zero values mean
// "not set".
type Config struct {
	Bucket            string `toml:"bucket"`
	Profile           string `toml:"profile"`
	StateDir          string `toml:"state_dir"`
	CheckpointBackend string `toml:"checkpoint_backend"`

	Concurrency   int    `toml:"concurrency"`
	Tier          string `toml:"tier"`
	RetainForDays int    `toml:"retain_for_days"`

	MaxAttempts        int      `toml:"max_attempts"`
	BackoffBase        Duration `toml:"backoff_base"`
	BackoffCap         Duration `toml:"backoff_cap"`
	AuthAbortThreshold int      `toml:"auth_abort_threshold"`
	LimitRequests      float64  `toml:"limit_requests"`

	// Options are extended options like "s3.region", see the options command.
	Options options.Options `toml:"options"`
}

// DefaultPath returns the location of the configuration file used when none
// is given explicitly.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "UserConfigDir")
	}
	return filepath.Join(dir, "glacier-restore", "config.toml"), nil
}

// Load reads the file at path. If the file does not exist, the returned error
// matches os.ErrNotExist.
func Load(path string) (Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer func() {
		_ = f.Close()
	}()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, errors.Fatalf("%v:%d:%d: %v", path, row, col, derr)
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			var keys []string
			for _, e := range serr.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return Config{}, errors.Fatalf("%v: unknown keys %v", path, strings.Join(keys, ", "))
		}
		return Config{}, errors.Fatalf("%v: %v", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Fatalf("%v: %v", path, err)
	}

	// option keys are case-insensitive on the command line
	if len(cfg.Options) > 0 {
		opts := make(options.Options, len(cfg.Options))
		for k, v := range cfg.Options {
			opts[strings.ToLower(k)] = v
		}
		cfg.Options = opts
	}

	return cfg, nil
}

// Validate checks the values that are set.
func (cfg Config) Validate() error {
	if cfg.Tier != "" {
		if _, err := backend.ParseTier(cfg.Tier); err != nil {
			return errors.Errorf("invalid tier %q, must be one of %v", cfg.Tier, backend.Tiers)
		}
	}

	switch cfg.CheckpointBackend {
	case "", "file", "sqlite":
	default:
		return errors.Errorf("invalid checkpoint_backend %q, must be file or sqlite", cfg.CheckpointBackend)
	}

	for _, v := range []struct {
		name  string
		value int
	}{
		{"concurrency", cfg.Concurrency},
		{"retain_for_days", cfg.RetainForDays},
		{"max_attempts", cfg.MaxAttempts},
		{"auth_abort_threshold", cfg.AuthAbortThreshold},
	} {
		if v.value < 0 {
			return errors.Errorf("%v must not be negative, got %d", v.name, v.value)
		}
	}

	if cfg.BackoffBase < 0 || cfg.BackoffCap < 0 {
		return errors.New("backoff delays must not be negative")
	}
	if cfg.BackoffBase > 0 && cfg.BackoffCap > 0 && cfg.BackoffCap < cfg.BackoffBase {
		return errors.Errorf("backoff_cap %v is smaller than backoff_base %v",
			time.Duration(cfg.BackoffCap), time.Duration(cfg.BackoffBase))
	}
	if cfg.LimitRequests < 0 {
		return errors.Errorf("limit_requests must not be negative, got %v", cfg.LimitRequests)
	}

	return nil
}
