package cmd

import (
	"fmt"
	"os"

	"github.com/solatis/segmentkeeper/internal/core/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the release reported at startup.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "segmentkeeper",
	Short: "SegmentKeeper customer segmentation service",
	Long: `SegmentKeeper lets administrators define customer segments from simple comparison
rules, preview their audience, pick outreach messages and record campaigns.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "store URL (sqlite://path, postgres://..., mongodb://...); defaults to $SK_DB_URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, console)")
}

// storeURL resolves --db-url with the SK_DB_URL environment fallback.
func storeURL() (string, error) {
	if dbURL != "" {
		return dbURL, nil
	}
	if env := os.Getenv("SK_DB_URL"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("--db-url required (or set SK_DB_URL)")
}

func Execute() error {
	return rootCmd.Execute()
}
