package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/apicall/config"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// App is the apicall command-line application.
type App struct {
	root       *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	configPath string
}

// New creates the application with every subcommand.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "apicall",
		Short: "Call cached, rate-limited API paths",
		Long: `apicall exposes every registered API client as a tree of dotted call paths.

Calls share the client's cache and rate limits exactly as library callers do.
Settings, API keys and the cache backend come from an optional YAML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newClientsCmd(),
		app.newPathsCmd(),
		app.newCallCmd(),
		app.newValidateCmd(),
		app.newHealthCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the application until it finishes or receives SIGINT/SIGTERM.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the application with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig reads --config, or the defaults when it is not set.
func (a *App) loadConfig() (*config.Config, error) {
	if a.configPath == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(a.configPath)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "apicall version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
		},
	}
}

func (a *App) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				return fmt.Errorf("configuration file path is required (-c flag)")
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(a.stdout, "Configuration is valid: %d client(s), %s cache\n",
				len(cfg.Clients), cfg.Cache.Backend)
			return nil
		},
	}
}
