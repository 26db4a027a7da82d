// Command csda is a command line client for the CSDA API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nasa-impact/csda-go"
	"github.com/nasa-impact/csda-go/internal/config"
	"github.com/nasa-impact/csda-go/internal/logging"
	"github.com/nasa-impact/csda-go/internal/output"
)

// app is the state shared by all commands after the root pre-run.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func() error
	stdout  io.Writer
	stderr  io.Writer

	// newClient is replaced in tests.
	newClient func(ctx context.Context) (*csda.Client, error)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{v: viper.New(), stdout: os.Stdout, stderr: os.Stderr}
	root := newRootCmd(a)

	err := root.ExecuteContext(ctx)
	if a.cleanup != nil {
		_ = a.cleanup()
	}
	if err != nil {
		output.Error(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "csda",
		Short: "Command line client for NASA's Commercial Smallsat Data Acquisition program",
		Long: `csda talks to the CSDA API on behalf of an Earthdata Login user.

Credentials are read from --username/--password, EARTHDATA_USERNAME and
EARTHDATA_PASSWORD (also from a .env file), or a netrc file with --netrc.

Examples:
  # Check that your credentials work
  csda verify

  # List vendors as YAML on the staging instance
  csda vendors --staging -o yaml

  # Download one asset
  csda download planet 20240501_scene ortho_visual --dest scene.tif

  # Download every asset listed in a manifest
  csda bulk-download assets.csv --workers 8`,
		Version:           csda.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	config.SetupFlags(root, a.v)

	root.AddCommand(
		newVerifyCmd(a),
		newProfileCmd(a),
		newVendorsCmd(a),
		newProductsCmd(a),
		newProposeCmd(a),
		newOrderParametersCmd(a),
		newOrderCmd(a),
		newDownloadCmd(a),
		newDownloadItemCmd(a),
		newBulkDownloadCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the configuration and logging before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(""); err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Verbosity = cfg.Verbose
	logCfg.FilePath = cfg.LogFile
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.logger = logger
	a.cleanup = cleanup

	logger.Debug("configuration loaded",
		slog.String("command", cmd.Name()),
		slog.String("url", cfg.BaseURL()),
		slog.String("output", cfg.Output),
	)
	return nil
}

// client returns a logged-in client. The caller closes it.
func (a *app) client(ctx context.Context) (*csda.Client, error) {
	if a.newClient != nil {
		return a.newClient(ctx)
	}

	cred, err := a.cfg.Credential()
	if err != nil {
		return nil, err
	}
	opts := append(a.cfg.ClientOptions(), csda.WithLogger(a.logger))
	return csda.Open(ctx, cred, opts...)
}

func (a *app) printer() *output.Printer {
	return output.New(a.stdout, a.cfg.Output)
}
