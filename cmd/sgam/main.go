package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"sgam/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	requestsPath string
	timeout      time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sgam",
	Short: "sgam - SteamGifts auto manager",
	Long: `sgam enters SteamGifts giveaways for you.

It reads requests.txt (session cookie, XSRF token, and the titles you want),
scrapes every open giveaway, and enters the ones that match and that you
have not entered yet.

requests.txt layout:
  PHPSESSID=<48 character cookie value>
  <32 character xsrf token>
  [exact_match]
  portal 2
  [any_match]
  witcher
  [no_match]
  soundtrack`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if requestsPath != "" {
			cfg.Requests.Path = requestsPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = newLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if !lc.JSON {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return zc.Build()
}

// withTimeout applies --timeout; zero or negative disables it.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVarP(&requestsPath, "requests", "r", "", "Requests file (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Timeout for a single run")

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the giveaways that would be entered without entering them")
	runCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running: repeat on an interval and when requests.txt changes")
	runCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Watch interval (default from config, 1h)")

	sortCmd.Flags().BoolVar(&showDiff, "diff", false, "Print the lines sorting changed")
	enteredCmd.Flags().BoolVar(&importTitles, "import", false, "Add the entered titles to [exact_match] in requests.txt")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(enteredCmd)
	rootCmd.AddCommand(pointsCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
