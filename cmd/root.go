package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/samhoang/themesync/internal/config"
)

var Version = "dev"

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "themesync",
	Short: "Remote theme synchronization",
	Long: `themesync imports themes from git repositories or archives and keeps
them in sync with their remote. It tracks how far each theme is behind its
remote, applies updates with minimal churn, and shows local edits as a diff.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func setupLogging(cmd *cobra.Command, args []string) error {
	paths, err := config.ResolvePaths()
	if err != nil {
		return err
	}
	cfg, loadErr := config.Load(paths)
	if loadErr != nil {
		// config commands must still work with a broken file
		cfg = config.Default(paths)
	}

	levelName := cfg.Log.Level
	if logLevelFlag != "" {
		levelName = logLevelFlag
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q", levelName)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.DefaultContextLogger = &log.Logger

	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("using default logging configuration")
	}
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (trace, debug, info, warn, error)")
}
