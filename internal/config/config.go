// Package config loads and validates the engine configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved engine configuration.
type Config struct {
	// Owner and Repo identify the remote repository.
	Owner string
	Repo  string

	// Token is the bearer credential for both the clone URL and the REST API.
	Token string

	// Branch is the main line. Defaults to "main".
	Branch string

	// Host is the hosting service. Defaults to "github.com".
	Host string

	// MirrorDir is the base directory for local mirrors.
	MirrorDir string

	// StoreDir is the local item store root.
	StoreDir string

	// Accounts maps an account id to its directory inside the repository.
	// An empty map means account ids are used verbatim.
	Accounts map[string]string

	// CommitterName and CommitterEmail form the mirror's commit identity.
	CommitterName  string
	CommitterEmail string

	// LogFile, when set, receives rotated engine logs in addition to stderr.
	LogFile string
}

// Load reads configuration from the given file (or the default search paths
// when path is empty) plus SCRIBESYNC_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	home, _ := os.UserHomeDir()
	v.SetDefault("remote.branch", "main")
	v.SetDefault("remote.host", "github.com")
	v.SetDefault("mirror.dir", filepath.Join(home, ".scribesync", "mirrors"))
	v.SetDefault("store.dir", filepath.Join(home, ".scribesync", "items"))
	v.SetDefault("committer.name", "scribesync")
	v.SetDefault("committer.email", "scribesync@localhost")

	v.SetEnvPrefix("SCRIBESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("scribesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home != "" {
			v.AddConfigPath(filepath.Join(home, ".scribesync"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			// No config file is fine; env vars may carry everything.
		}
	}

	return &Config{
		Owner:          v.GetString("remote.owner"),
		Repo:           v.GetString("remote.repo"),
		Token:          v.GetString("remote.token"),
		Branch:         v.GetString("remote.branch"),
		Host:           v.GetString("remote.host"),
		MirrorDir:      v.GetString("mirror.dir"),
		StoreDir:       v.GetString("store.dir"),
		Accounts:       v.GetStringMapString("accounts"),
		CommitterName:  v.GetString("committer.name"),
		CommitterEmail: v.GetString("committer.email"),
		LogFile:        v.GetString("log.file"),
	}, nil
}

// Validate reports the fatal configuration errors: a missing remote
// identifier or credential cannot be recovered at runtime.
func (c *Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("remote repository is not configured (remote.owner / remote.repo)")
	}
	if c.Token == "" {
		return fmt.Errorf("remote access token is not configured (remote.token)")
	}
	return nil
}

// RemoteURL renders the token-bearing clone URL.
func (c *Config) RemoteURL() string {
	return fmt.Sprintf("https://x-access-token:%s@%s/%s/%s.git", c.Token, c.Host, c.Owner, c.Repo)
}

// AccountDir resolves an account id to its repository directory. With no
// account mapping configured, the id is used verbatim; with a mapping, an
// unmapped account is a configuration error.
func (c *Config) AccountDir(account string) (string, error) {
	if account == "" {
		return "", fmt.Errorf("account id is required")
	}
	if len(c.Accounts) == 0 {
		return account, nil
	}
	dir, ok := c.Accounts[account]
	if !ok {
		return "", fmt.Errorf("no account mapping for %q", account)
	}
	return dir, nil
}
