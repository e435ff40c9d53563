// Package sample implements the strobe sample command.
package sample

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/strobelabs/strobe/internal/config"
	strerrors "github.com/strobelabs/strobe/internal/errors"
	"github.com/strobelabs/strobe/internal/logging"
	"github.com/strobelabs/strobe/internal/proc"
	"github.com/strobelabs/strobe/internal/report"
	"github.com/strobelabs/strobe/internal/sampler"
)

// NewSampleCmd creates the sample command.
func NewSampleCmd() *cobra.Command {
	var (
		pid        int32
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample thread stacks of a running process",
		Long: `Sample the call stacks of a running process's threads on a fixed
interval and write the result as a pprof profile.

By default every live thread is sampled. The scope can be narrowed to
explicit thread ids, exact thread names (resolved once at startup,
case-insensitively), or thread name patterns. Kernel stack capture
requires root; without it the profile still records thread states.

Examples:
  # Sample all threads of pid 4242 for 30 seconds
  strobe sample --pid 4242

  # Only threads whose name matches a pattern, for one minute
  strobe sample --pid 4242 --pattern 'worker-.*' --duration 1m

  # Explicit threads, high frequency, custom output
  strobe sample --pid 4242 --thread-id 4243 --thread-id 4250 \
    --interval 2ms --output app.pprof`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid <= 0 {
				return fmt.Errorf("--pid is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			if !cmd.Flags().Changed("log-level") && cfg.Log.Level != "" {
				logLevel = cfg.Log.Level
			}
			logger := logging.New(logging.Config{Level: logLevel, Pretty: cfg.Log.Pretty})
			return run(cmd.Context(), pid, cfg, logger)
		},
	}

	cmd.Flags().Int32Var(&pid, "pid", 0, "target process id (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a strobe config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	bindSessionFlags(cmd.Flags())
	bindSelectionFlags(cmd.Flags())

	return cmd
}

func bindSessionFlags(fs *pflag.FlagSet) {
	fs.Duration("interval", 10*time.Millisecond, "sampling interval")
	fs.Duration("duration", 30*time.Second, "session duration (0 runs until interrupted)")
	fs.StringP("output", "o", "strobe.pprof", "profile output path")
}

func bindSelectionFlags(fs *pflag.FlagSet) {
	fs.Bool("all", false, "sample every thread, ignoring narrower selections")
	fs.Int64Slice("thread-id", nil, "thread id to sample (repeatable)")
	fs.StringArray("thread", nil, "exact thread name to sample (repeatable)")
	fs.StringArray("pattern", nil, "thread name pattern to sample (repeatable)")
}

// applyFlagOverrides layers explicitly set flags over the file config.
func applyFlagOverrides(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("interval") {
		cfg.Session.Interval, _ = fs.GetDuration("interval")
	}
	if fs.Changed("duration") {
		cfg.Session.Duration, _ = fs.GetDuration("duration")
	}
	if fs.Changed("output") {
		cfg.Session.Output, _ = fs.GetString("output")
	}
	if fs.Changed("all") {
		cfg.Threads.All, _ = fs.GetBool("all")
	}
	if fs.Changed("thread-id") {
		cfg.Threads.IDs, _ = fs.GetInt64Slice("thread-id")
	}
	if fs.Changed("thread") {
		cfg.Threads.Names, _ = fs.GetStringArray("thread")
	}
	if fs.Changed("pattern") {
		cfg.Threads.Patterns, _ = fs.GetStringArray("pattern")
	}
}

func run(ctx context.Context, pid int32, cfg *config.Config, logger zerolog.Logger) error {
	target, err := proc.NewTarget(pid, logger)
	if err != nil {
		return err
	}

	selector := sampler.FromConfig(cfg.Threads, target, logger)
	builder := report.NewBuilder(logger)
	session := sampler.NewSession(selector, target, builder, sampler.SessionConfig{
		Interval: cfg.Session.Interval,
		Duration: cfg.Session.Duration,
	}, logger)

	logger.Info().
		Int32("pid", pid).
		Str("process", target.Name()).
		Str("output", cfg.Session.Output).
		Msg("Attaching sampler")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// An interrupt ends the session early; the profile collected so
	// far is still written.
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	out, err := os.Create(cfg.Session.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer strerrors.DeferClose(logger, out, "profile file close failed")

	if err := builder.Write(out, session.Metadata(), cfg.Session.Interval); err != nil {
		return err
	}

	logger.Info().
		Int64("samples", builder.SampleCount()).
		Str("output", cfg.Session.Output).
		Msg("Profile written")
	return nil
}
