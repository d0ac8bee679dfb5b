package azure

import (
	"testing"

	"github.com/marekhanzlik/s3-glacier-restore/internal/options"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

var configTests = []struct {
	s   string
	cfg Config
}{
	{"azure:container-name", Config{
		Container:     "container-name",
		RehydrateTier: "Hot",
	}},
	{"azure:container-name:/", Config{
		Container:     "container-name",
		RehydrateTier: "Hot",
	}},
	{"azure:container-name:/prefix/directory", Config{
		Container:     "container-name",
		Prefix:        "prefix/directory/",
		RehydrateTier: "Hot",
	}},
	{"azure:container-name:/prefix/directory/", Config{
		Container:     "container-name",
		Prefix:        "prefix/directory/",
		RehydrateTier: "Hot",
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
	for _, s := range []string{"azure:", "s3:bucket", "container"} {
		_, err := ParseConfig(s)
		rtest.Assert(t, err != nil, "no error for %q", s)
	}
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv("AZURE_ACCOUNT_NAME", "archive")
	t.Setenv("AZURE_ACCOUNT_KEY", "secret")
	t.Setenv("AZURE_ACCOUNT_SAS", "")
	t.Setenv("AZURE_ENDPOINT_SUFFIX", "core.chinacloudapi.cn")
	t.Setenv("AZURE_FORCE_CLI_CREDENTIAL", "true")

	cfg := NewConfig()
	cfg.ApplyEnvironment("")
	rtest.Equals(t, "archive", cfg.AccountName)
	rtest.Equals(t, "secret", cfg.AccountKey.Unwrap())
	rtest.Equals(t, "", cfg.AccountSAS.Unwrap())
	rtest.Equals(t, "core.chinacloudapi.cn", cfg.EndpointSuffix)
	rtest.Equals(t, true, cfg.ForceCliCredential)

	cfg = NewConfig()
	cfg.AccountName = "other"
	cfg.AccountKey = options.NewSecretString("flag")
	cfg.ApplyEnvironment("")
	rtest.Equals(t, "other", cfg.AccountName)
	rtest.Equals(t, "flag", cfg.AccountKey.Unwrap())
}
