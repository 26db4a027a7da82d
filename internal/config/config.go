// Package config loads the csda command configuration from flags, CSDA_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nasa-impact/csda-go"
)

// EnvPrefix is the prefix of the environment variables bound to flags.
const EnvPrefix = "CSDA"

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// ErrNoCredential is returned by [Config.Credential] when no credential
// source is configured.
var ErrNoCredential = errors.New("no credentials: set --username and --password, " +
	"EARTHDATA_USERNAME and EARTHDATA_PASSWORD, or use --netrc")

// Config holds all configuration for the csda command.
type Config struct {
	// Connection
	URL     string        `mapstructure:"url"`
	Staging bool          `mapstructure:"staging"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Authentication
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Netrc     bool   `mapstructure:"netrc"`
	NetrcFile string `mapstructure:"netrc-file"`

	// Output
	Output string `mapstructure:"output"`

	// Logging
	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`
	Verbose  int    `mapstructure:"verbose"`
}

// SetupFlags registers the global flags on cmd and binds them, and the
// CSDA_* environment, to v.
func SetupFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()

	// Connection flags
	flags.String("url", "", "CSDA base URL (default "+csda.ProductionURL+")")
	flags.Bool("staging", false, "Use the staging instance ("+csda.StagingURL+")")
	flags.Duration("timeout", 60*time.Second, "HTTP request timeout")

	// Authentication flags
	flags.String("username", "", "Earthdata Login username (or EARTHDATA_USERNAME)")
	flags.String("password", "", "Earthdata Login password (or EARTHDATA_PASSWORD)")
	flags.Bool("netrc", false, "Read Earthdata Login credentials from a netrc file")
	flags.String("netrc-file", "", "Path to the netrc file (default ~/.netrc)")

	// Output flags
	flags.StringP("output", "o", OutputText, "Output format: text, json or yaml")

	// Logging flags
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Write logs to this file instead of stderr")
	flags.CountP("verbose", "v", "Increase log verbosity (repeatable)")

	_ = v.BindPFlags(flags)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Earthdata Login credentials have well-known names of their own
	_ = v.BindEnv("username", EnvPrefix+"_USERNAME", csda.EnvUsername)
	_ = v.BindEnv("password", EnvPrefix+"_PASSWORD", csda.EnvPassword)
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding existing ones. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.URL != "" && c.Staging {
		return fmt.Errorf("--url and --staging are mutually exclusive")
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid url %q: must be an absolute URL", c.URL)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("invalid output format %q: must be text, json or yaml", c.Output)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("username and password must be set together")
	}
	if c.Verbose < 0 {
		return fmt.Errorf("verbose must be >= 0")
	}
	return nil
}

// BaseURL returns the CSDA instance selected by --url or --staging.
func (c *Config) BaseURL() string {
	switch {
	case c.URL != "":
		return c.URL
	case c.Staging:
		return csda.StagingURL
	default:
		return csda.ProductionURL
	}
}

// Credential returns the configured Earthdata Login credential. An
// explicit username and password take precedence over --netrc.
func (c *Config) Credential() (csda.Credential, error) {
	switch {
	case c.Username != "" && c.Password != "":
		return csda.BasicAuth{Username: c.Username, Password: c.Password}, nil
	case c.Netrc || c.NetrcFile != "":
		return csda.NetrcAuth{Path: c.NetrcFile}, nil
	default:
		return nil, ErrNoCredential
	}
}

// ClientOptions returns the SDK options for this configuration.
func (c *Config) ClientOptions() []csda.Option {
	return []csda.Option{
		csda.WithBaseURL(c.BaseURL()),
		csda.WithTimeout(c.Timeout),
	}
}
