package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/app"
	"github.com/ternarybob/marketbrief/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	envFile      = flag.String("env", ".env", "Optional dotenv file with secrets")
	schedule     = flag.String("schedule", "", "Cron expression; stay resident and run on schedule (overrides config)")
	provider     = flag.String("provider", "", "Model provider: gemini or claude (overrides config)")
	dryRun       = flag.String("dry-run", "", "Write the report HTML to this file instead of sending mail")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("marketbrief version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load .env secrets, then config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides, merge RECEIVER_EMAIL and drop malformed feed URLs
	// 3. Validate before any network I/O
	// 4. Initialize logger and print banner
	tempLogger := arbor.NewLogger()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
			tempLogger.Warn().Err(err).Str("path", *envFile).Msg("Failed to load env file")
		}
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		for _, candidate := range []string{"marketbrief.toml", "config.json", "deployments/local/marketbrief.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger.Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(common.ExitConfigError)
	}

	common.ApplyFlagOverrides(config, *schedule, *provider)
	config.Recipients = common.MergeRecipients(config.Recipients, os.Getenv("RECEIVER_EMAIL"))
	config.Sources = common.FilterValidSources(config.Sources, tempLogger)

	if err := config.Validate(); err != nil {
		tempLogger.Error().Err(err).Msg("Invalid configuration")
		os.Exit(common.ExitCode(err))
	}

	logger := common.SetupLogger(config)
	common.PrintBanner(config, logger)

	if _, err := config.LoadLocation(); err != nil {
		logger.Warn().Err(err).Str("fallback", common.FallbackLocation.String()).Msg("Report timezone unavailable, using fallback")
	}

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Str("gemini_model", config.Gemini.Model).
		Str("smtp_host", config.SMTP.Host).
		Msg("Resolved configuration (sanitized)")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		os.Exit(common.ExitConfigError)
	}
	defer application.Close()
	application.DryRunPath = *dryRun

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Schedule == "" {
		run := application.RunOnce(ctx)
		if run.Err != nil {
			logger.Warn().Err(run.Err).Str("run_id", run.RunID).Msg("Run completed with errors")
		}
		return
	}

	defer common.RecoverWithCrashFile()

	logger.Info().Str("schedule", config.Schedule).Msg("Scheduled mode - Press Ctrl+C to stop")
	if err := application.RunScheduled(ctx); err != nil {
		logger.Error().Err(err).Msg("Scheduler failed")
		stop()
		application.Close()
		os.Exit(common.ExitConfigError)
	}
	logger.Info().Msg("Shutdown complete")
}
