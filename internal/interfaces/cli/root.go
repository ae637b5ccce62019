// Package cli implements the guwen command line.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/Guwen-Annotator/internal/app"
	"github.com/turtacn/Guwen-Annotator/internal/config"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Guwen-Annotator/pkg/client"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
}

// CLIContext carries what PersistentPreRunE initialised down the tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Backend      Backend
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
}

// BackendFactory builds the Backend for a command run.  Tests replace it.
type BackendFactory func(cfg *config.Config, logger logging.Logger, opts *RootOptions) (Backend, error)

// NewRootCommand creates the root command with the default backend factory.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(defaultBackend)
}

// NewRootCommandWith creates the root command using factory.
func NewRootCommandWith(factory BackendFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "guwen",
		Short: "Classical Chinese reading assistant",
		Long: "guwen segments classical Chinese passages and asks a language model to\n" +
			"explain them, answer questions about them and annotate their entities.\n" +
			"Commands run in-process unless --server points at a running API.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return persistentPreRun(cmd, opts, factory)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if cc, err := GetCLIContext(cmd); err == nil && cc.Backend != nil {
				return cc.Backend.Close()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 90*time.Second, "operation timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "API server address, e.g. http://localhost:5004")

	cmd.AddCommand(
		newSegmentCmd(),
		newAnnotateCmd(),
		newAnalyzeCmd(),
		newAskCmd(),
		newEventsCmd(),
		newCacheCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, factory BackendFactory) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json":
	default:
		return errors.InvalidParam(fmt.Sprintf("unknown output format %q; expected text or json", opts.OutputFormat))
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       opts.LogLevel,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	if opts.NoColor {
		color.NoColor = true
	}

	cc := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
	}
	if needsBackend(cmd) {
		backend, err := factory(cfg, logger, opts)
		if err != nil {
			return err
		}
		cc.Backend = backend
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))
	return nil
}

// needsBackend is false for commands that only need config and logging.
func needsBackend(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["backend"] == "none" {
			return false
		}
	}
	return true
}

func defaultBackend(cfg *config.Config, logger logging.Logger, opts *RootOptions) (Backend, error) {
	if opts.ServerAddr != "" {
		c, err := client.NewClient(opts.ServerAddr, client.WithTimeout(opts.Timeout))
		if err != nil {
			return nil, err
		}
		return &remoteBackend{client: c}, nil
	}
	a, err := app.Build(cfg, logger, app.Options{SkipEvents: true})
	if err != nil {
		return nil, err
	}
	return &localBackend{app: a}, nil
}

// GetCLIContext extracts the CLIContext from cmd's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		return nil, errors.Internal("CLI context not initialised")
	}
	return cc, nil
}

// Execute runs the CLI and prints any error to stderr.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		PrintError(root, err)
		return err
	}
	return nil
}
