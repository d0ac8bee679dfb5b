package s3

import (
	"testing"

	"github.com/marekhanzlik/s3-glacier-restore/internal/options"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

var configTests = []struct {
	s   string
	cfg Config
}{
	{"photos", Config{
		Endpoint:   "s3.amazonaws.com",
		Bucket:     "photos",
		MaxRetries: 1,
	}},
	{"s3:photos", Config{
		Endpoint:   "s3.amazonaws.com",
		Bucket:     "photos",
		MaxRetries: 1,
	}},
	{"s3://photos/2018/06", Config{
		Endpoint:   "s3.amazonaws.com",
		Bucket:     "photos",
		Prefix:     "2018/06",
		MaxRetries: 1,
	}},
	{"s3:http://localhost:9000/photos", Config{
		Endpoint:   "localhost:9000",
		UseHTTP:    true,
		Bucket:     "photos",
		MaxRetries: 1,
	}},
	{"s3:https://storage.example.com/photos/raw/", Config{
		Endpoint:   "storage.example.com",
		Bucket:     "photos",
		Prefix:     "raw/",
		MaxRetries: 1,
	}},
}

func TestParseConfig(t *testing.T) {
	for _, test := range configTests {
		t.Run(test.s, func(t *testing.T) {
			cfg, err := ParseConfig(test.s)
			rtest.OK(t, err)
			rtest.Equals(t, test.cfg, *cfg)
		})
	}
}

func TestParseConfigInvalid(t *testing.T) {
	for _, s := range []string{"s3:", "s3://", "s3:http://localhost:9000", "s3:bad:name"} {
		_, err := ParseConfig(s)
		rtest.Assert(t, err != nil, "no error for %q", s)
	}
}

func TestApplyOptions(t *testing.T) {
	cfg, err := ParseConfig("photos")
	rtest.OK(t, err)

	opts, err := options.Parse([]string{"s3.region=eu-central-1", "s3.bucket-lookup=path", "s3.secret-access-key=s3cr3t", "azure.account-name=x"})
	rtest.OK(t, err)
	rtest.OK(t, opts.Extract("s3").Apply("s3", cfg))

	rtest.Equals(t, "eu-central-1", cfg.Region)
	rtest.Equals(t, "path", cfg.BucketLookup)
	rtest.Equals(t, "s3cr3t", cfg.Secret.Unwrap())
	rtest.Equals(t, `"**redacted**"`, cfg.Secret.GoString())
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv("AWS_PROFILE", "archive")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg := NewConfig()
	cfg.ApplyEnvironment("")
	rtest.Equals(t, "archive", cfg.Profile)
	rtest.Equals(t, "eu-west-1", cfg.Region)

	// values from the command line win
	cfg = NewConfig()
	cfg.Profile = "other"
	cfg.Region = "us-east-2"
	cfg.ApplyEnvironment("")
	rtest.Equals(t, "other", cfg.Profile)
	rtest.Equals(t, "us-east-2", cfg.Region)
}
