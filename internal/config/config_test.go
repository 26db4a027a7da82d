package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-impact/csda-go"
)

// newCommand returns a command with the global flags bound to a fresh
// viper instance, parsed from args.
func newCommand(t *testing.T, args ...string) *viper.Viper {
	t.Helper()

	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	SetupFlags(cmd, v)
	require.NoError(t, cmd.PersistentFlags().Parse(args))
	return v
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CSDA_URL", "CSDA_STAGING", "CSDA_USERNAME", "CSDA_PASSWORD", "CSDA_OUTPUT",
		csda.EnvUsername, csda.EnvPassword,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(newCommand(t))

	require.NoError(t, err)
	assert.Equal(t, csda.ProductionURL, cfg.BaseURL())
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, OutputText, cfg.Output)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Zero(t, cfg.Verbose)
}

func TestLoad_Flags(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(newCommand(t,
		"--staging", "--timeout", "5s", "-o", "json", "-vv",
		"--username", "jdoe", "--password", "secret",
	))

	require.NoError(t, err)
	assert.Equal(t, csda.StagingURL, cfg.BaseURL())
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, 2, cfg.Verbose)

	cred, err := cfg.Credential()
	require.NoError(t, err)
	assert.Equal(t, csda.BasicAuth{Username: "jdoe", Password: "secret"}, cred)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CSDA_URL", "https://csda.example.com")
	t.Setenv("CSDA_OUTPUT", "yaml")
	t.Setenv(csda.EnvUsername, "env-user")
	t.Setenv(csda.EnvPassword, "env-pass")

	cfg, err := Load(newCommand(t))

	require.NoError(t, err)
	assert.Equal(t, "https://csda.example.com", cfg.BaseURL())
	assert.Equal(t, OutputYAML, cfg.Output)
	assert.Equal(t, "env-user", cfg.Username)
	assert.Equal(t, "env-pass", cfg.Password)
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CSDA_OUTPUT", "yaml")

	cfg, err := Load(newCommand(t, "--output", "json"))

	require.NoError(t, err)
	assert.Equal(t, OutputJSON, cfg.Output)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Timeout: time.Second, Output: OutputText}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"url and staging", func(c *Config) { c.URL = "https://x"; c.Staging = true }, "mutually exclusive"},
		{"relative url", func(c *Config) { c.URL = "/api" }, "absolute URL"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output format"},
		{"username without password", func(c *Config) { c.Username = "jdoe" }, "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCredential(t *testing.T) {
	t.Run("basic auth wins over netrc", func(t *testing.T) {
		cfg := Config{Username: "u", Password: "p", Netrc: true}
		cred, err := cfg.Credential()
		require.NoError(t, err)
		assert.IsType(t, csda.BasicAuth{}, cred)
	})

	t.Run("netrc file", func(t *testing.T) {
		cfg := Config{NetrcFile: "/tmp/netrc"}
		cred, err := cfg.Credential()
		require.NoError(t, err)
		assert.Equal(t, csda.NetrcAuth{Path: "/tmp/netrc"}, cred)
	})

	t.Run("none", func(t *testing.T) {
		_, err := (&Config{}).Credential()
		assert.ErrorIs(t, err, ErrNoCredential)
	})
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("EARTHDATA_USERNAME=dotenv-user\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv(csda.EnvUsername) })

		require.NoError(t, LoadEnvFile(path))

		assert.Equal(t, "dotenv-user", os.Getenv(csda.EnvUsername))
	})
}
