package azure

import (
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/options"
)

// Config contains all configuration necessary to connect to an azure compatible
// server.
type Config struct {
	AccountName    string               `option:"account-name" help:"storage account name"`
	AccountKey     options.SecretString `option:"account-key" help:"storage account key"`
	AccountSAS     options.SecretString `option:"account-sas" help:"shared access signature token"`
	EndpointSuffix string               `option:"endpoint-suffix" help:"endpoint suffix (default: core.windows.net)"`
	Container      string
	Prefix         string

	RehydrateTier      string `option:"rehydrate-tier" help:"access tier restored blobs are moved to: Hot or Cool (default: Hot)"`
	ForceCliCredential bool   `option:"force-cli-credential" help:"authenticate with the credentials of the Azure CLI"`
}

// NewConfig returns a new Config with the default values filled in.
func NewConfig() Config {
	return Config{
		RehydrateTier: "Hot",
	}
}

func init() {
	options.Register("azure", Config{})
}

// ParseConfig parses the string s and extracts the azure config. The
// configuration format is azure:containerName[:/prefix].
func ParseConfig(s string) (*Config, error) {
	if !strings.HasPrefix(s, "azure:") {
		return nil, errors.New("azure: invalid format")
	}

	// strip prefix "azure:"
	s = s[6:]

	// use the first entry of the path as the container name and the
	// remainder as prefix
	container, prefix, _ := strings.Cut(s, ":")
	if container == "" {
		return nil, errors.New("azure: invalid format: container name not found")
	}

	cfg := NewConfig()
	cfg.Container = container
	if prefix != "" {
		prefix = strings.TrimPrefix(path.Clean(prefix), "/")
		if prefix != "" && prefix != "." {
			cfg.Prefix = prefix + "/"
		}
	}
	return &cfg, nil
}

var _ backend.ApplyEnvironmenter = &Config{}

// ApplyEnvironment saves values from the environment to the config.
func (cfg *Config) ApplyEnvironment(prefix string) {
	if cfg.AccountName == "" {
		cfg.AccountName = os.Getenv(prefix + "AZURE_ACCOUNT_NAME")
	}
	if cfg.EndpointSuffix == "" {
		cfg.EndpointSuffix = os.Getenv(prefix + "AZURE_ENDPOINT_SUFFIX")
	}

	for _, val := range []struct {
		s   *options.SecretString
		env string
	}{
		{&cfg.AccountKey, prefix + "AZURE_ACCOUNT_KEY"},
		{&cfg.AccountSAS, prefix + "AZURE_ACCOUNT_SAS"},
	} {
		if val.s.String() == "" {
			*val.s = options.NewSecretString(os.Getenv(val.env))
		}
	}

	if !cfg.ForceCliCredential {
		cfg.ForceCliCredential, _ = strconv.ParseBool(os.Getenv(prefix + "AZURE_FORCE_CLI_CREDENTIAL"))
	}
}
