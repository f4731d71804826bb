package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagstation/stagsync/internal/config"
	"github.com/stagstation/stagsync/internal/service"
)

// version is set at build time via ldflags.
var version = "dev"

// errReported marks a failure whose details were already written to stdout.
var errReported = errors.New("failure already reported")

// CLIFlags are the global persistent flags.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext is what every command needs, built once in PersistentPreRunE
// and carried in the command's context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
	Svc    *service.Service
	Out    io.Writer
	Err    io.Writer
	Styles styles
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

func cliContextFrom(ctx context.Context) (*CLIContext, bool) {
	if ctx == nil {
		return nil, false
	}

	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc, ok
}

// mustCLIContext returns the CLIContext stored by the root pre-run. Commands
// only run after it, so a missing value is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := cliContextFrom(ctx)
	if !ok {
		panic("CLIContext missing from command context")
	}

	return cc
}

// execute runs root and then closes the service the pre-run created. Cobra
// skips post-run hooks when RunE fails, so the close lives here.
func execute(ctx context.Context, root *cobra.Command) error {
	cmd, err := root.ExecuteContextC(ctx)
	if cmd == nil {
		return err
	}

	if cc, ok := cliContextFrom(cmd.Context()); ok {
		if closeErr := cc.Svc.Close(); closeErr != nil {
			cc.Logger.Warn("closing service", slog.String("error", closeErr.Error()))

			if err == nil {
				err = closeErr
			}
		}
	}

	return err
}

// newRootCmd builds the root command with every subcommand registered. opts
// are passed to the service; tests use them to swap in fakes.
func newRootCmd(opts ...service.Option) *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:     "stagsync",
		Short:   "Convert and sync game saves with Google Drive",
		Long:    "Convert save files between host and portable encodings and keep save slots in sync with Google Drive.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(cmd, flags, opts)
			if err != nil {
				return err
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "config file path (env "+config.EnvConfig+")")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newConvertCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newCLIContext resolves configuration, builds the logger and creates the
// service.
func newCLIContext(cmd *cobra.Command, flags CLIFlags, opts []service.Option) (*CLIContext, error) {
	env, err := config.ReadEnvOverrides()
	if err != nil {
		return nil, err
	}

	cli := config.CLIOverrides{
		ConfigPath: flags.ConfigPath,
		LogLevel:   flagLogLevel(flags),
	}

	if f := cmd.Flags().Lookup("credentials"); f != nil && f.Changed {
		cli.CredentialsPath = f.Value.String()
	}

	cfg, err := config.Resolve(env, cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := buildLogger(cfg.LogLevel, cmd.ErrOrStderr())

	return &CLIContext{
		Flags:  flags,
		Cfg:    cfg,
		Logger: logger,
		Svc:    service.New(cfg, logger, opts...),
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
		Styles: newStyles(cmd.OutOrStdout()),
	}, nil
}

// flagLogLevel maps --verbose and --quiet onto a log level. CLI flags beat
// the config file.
func flagLogLevel(flags CLIFlags) string {
	switch {
	case flags.Verbose:
		return "debug"
	case flags.Quiet:
		return "error"
	default:
		return ""
	}
}

// buildLogger creates the text logger for level.
func buildLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level

	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
