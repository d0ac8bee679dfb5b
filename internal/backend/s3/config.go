package s3

import (
	"net/url"
	"os"
	"strings"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/options"
)

// Config contains all configuration necessary to connect to an s3 compatible
// server.
type Config struct {
	Endpoint string `option:"endpoint" help:"use this S3 endpoint (default: s3.amazonaws.com)"`
	UseHTTP  bool   `option:"use-http" help:"connect to the endpoint without TLS"`
	Bucket   string
	Prefix   string `option:"prefix" help:"only consider objects below this key prefix"`
	Region   string `option:"region" help:"set region"`

	// Profile selects a section of the shared AWS credentials file.
	Profile string
	KeyID   string               `option:"access-key-id" help:"static access key id"`
	Secret  options.SecretString `option:"secret-access-key" help:"static secret access key, used with access-key-id"`

	BucketLookup  string `option:"bucket-lookup" help:"bucket lookup style: 'auto', 'dns', or 'path'"`
	ListObjectsV1 bool   `option:"list-objects-v1" help:"use deprecated V1 api for ListObjects calls"`
	MaxRetries    uint   `option:"retries" help:"set the number of retries the S3 client performs per request (default: 1)"`
}

// NewConfig returns a new Config with the default values filled in.
func NewConfig() Config {
	return Config{
		Endpoint:   "s3.amazonaws.com",
		MaxRetries: 1,
	}
}

func init() {
	options.Register("s3", Config{})
}

// ParseConfig parses the string s and extracts the s3 config. Supported
// formats are a plain bucket name, s3:bucket[/prefix], s3://bucket[/prefix]
// and s3:http(s)://host/bucket[/prefix] for custom endpoints.
func ParseConfig(s string) (*Config, error) {
	switch {
	case strings.HasPrefix(s, "s3:http"):
		// assume that a URL has been specified, parse it and
		// use the host as the endpoint and the path as the
		// bucket name and prefix
		url, err := url.Parse(s[3:])
		if err != nil {
			return nil, errors.Wrap(err, "url.Parse")
		}

		if url.Path == "" || url.Path == "/" {
			return nil, errors.New("s3: bucket name not found")
		}

		cfg, err := createConfig(strings.SplitN(url.Path[1:], "/", 2))
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = url.Host
		cfg.UseHTTP = url.Scheme == "http"
		return cfg, nil
	case strings.HasPrefix(s, "s3://"):
		s = s[5:]
	case strings.HasPrefix(s, "s3:"):
		s = s[3:]
	}

	return createConfig(strings.SplitN(s, "/", 2))
}

func createConfig(p []string) (*Config, error) {
	if len(p) < 1 || p[0] == "" {
		return nil, errors.New("s3: invalid format, bucket name not found")
	}
	if strings.ContainsAny(p[0], ": ") {
		return nil, errors.Errorf("s3: invalid bucket name %q", p[0])
	}

	cfg := NewConfig()
	cfg.Bucket = p[0]
	if len(p) > 1 {
		cfg.Prefix = p[1]
	}
	return &cfg, nil
}

var _ backend.ApplyEnvironmenter = &Config{}

// ApplyEnvironment fills in the profile and region from the environment.
// Access keys are read by the credentials chain when the backend is opened.
func (cfg *Config) ApplyEnvironment(prefix string) {
	for _, val := range []struct {
		s   *string
		env string
	}{
		{&cfg.Profile, prefix + "AWS_PROFILE"},
		{&cfg.Region, prefix + "AWS_DEFAULT_REGION"},
		{&cfg.Region, prefix + "AWS_REGION"},
	} {
		if *val.s == "" {
			*val.s = os.Getenv(val.env)
		}
	}
}
