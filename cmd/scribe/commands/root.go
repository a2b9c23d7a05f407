package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/scribe/cmd/scribe/internal/format"
	"github.com/vulntor/scribe/pkg/appctx"
	"github.com/vulntor/scribe/pkg/config"
	"github.com/vulntor/scribe/pkg/logging"
	"github.com/vulntor/scribe/pkg/transcribe"
	"github.com/vulntor/scribe/pkg/version"
)

const cliExecutable = "scribe"

// NewCommand constructs the top-level scribe CLI command, wiring global flags,
// configuration loading, logging and the shared transcription client.
func NewCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// newRootCommand also returns a function that closes the log file opened by
// the pre-run hook. Cobra skips PersistentPostRunE when a command fails, so
// callers must invoke it themselves; it is safe to call more than once.
func newRootCommand() (*cobra.Command, func() error) {
	var (
		configFile string
		outputMode string
		closeLog   func() error
	)
	closeLogFile := func() error {
		if closeLog == nil {
			return nil
		}
		return closeLog()
	}

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Scribe uploads audio to a transcription service and follows the job to its transcript",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := format.ValidateMode(outputMode); err != nil {
				return err
			}

			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg := mgr.Get()

			c, err := logging.Configure(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
			})
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			closeLog = c

			userAgent := cfg.Client.UserAgent
			if userAgent == "" {
				userAgent = version.UserAgent()
			}
			client, err := transcribe.NewClient(transcribe.ClientConfig{
				Endpoint:  cfg.Client.Endpoint,
				Timeout:   cfg.Client.Timeout,
				UserAgent: userAgent,
			})
			if err != nil {
				return err
			}

			log.Debug().
				Str("endpoint", cfg.Client.Endpoint).
				Dur("interval", cfg.Poll.Interval).
				Int("max_attempts", cfg.Poll.MaxAttempts).
				Msg("configuration loaded")

			ctx := appctx.WithConfig(cmd.Context(), mgr)
			ctx = appctx.WithClient(ctx, client)
			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLogFile()
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().StringVarP(&outputMode, "output", "o", string(format.ModeTable), "Output format: table, json or yaml")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Print only results")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	config.BindFlags(cmd.PersistentFlags())
	config.BindClientFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "transcribe", Title: "Transcription Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(newTranscribeCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newVersionCommand(cliExecutable))

	return cmd, closeLogFile
}

// Execute runs the CLI and returns the process exit code. Errors already
// rendered by a command are not printed again.
func Execute(ctx context.Context, args []string) int {
	cmd, closeLog := newRootCommand()
	defer func() { _ = closeLog() }()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		_ = format.FromCommand(cmd).PrintError(err)
		return 2
	}
	return transcribe.ExitCode(err)
}

// reportedError marks an error that a command has already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// report prints err with its code and hints and marks it as reported.
func report(f format.Formatter, err error) error {
	if err == nil {
		return nil
	}
	_ = f.PrintErrorWithSuggestions(err, transcribe.ErrorCode(err), transcribe.Suggestions(err))
	return &reportedError{err: err}
}

// clientFromContext returns the client built by the root pre-run hook.
func clientFromContext(ctx context.Context) (*transcribe.Client, config.Config, error) {
	mgr, ok := appctx.Config(ctx)
	if !ok {
		return nil, config.Config{}, errors.New("configuration is not loaded")
	}
	client, ok := appctx.Client(ctx)
	if !ok {
		return nil, config.Config{}, errors.New("transcription client is not initialized")
	}
	return client, mgr.Get(), nil
}

// newController builds a Controller over the shared client using the poll settings.
func newController(ctx context.Context) (*transcribe.Controller, config.Config, error) {
	client, cfg, err := clientFromContext(ctx)
	if err != nil {
		return nil, cfg, err
	}

	retry := transcribe.NoRetry()
	if cfg.Poll.CheckRetries > 0 {
		retry = transcribe.DefaultRetryConfig()
		retry.MaxAttempts = cfg.Poll.CheckRetries
	}

	ctrl, err := transcribe.NewController(client, client, transcribe.Options{
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		CheckRetry:  retry,
	})
	return ctrl, cfg, err
}
