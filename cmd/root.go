package cmd

import (
	"fmt"
	"os"

	"github.com/neo/personasim/internal/config"
	"github.com/neo/personasim/internal/logging"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "personasim",
	Short: "personasim - persona persuasion simulator",
	Long: `personasim runs synthetic personas through an iterative loop in which a
language model judges a health-information article, an editor rewrites it, and
every iteration is recorded. It can also generate statistically shaped
synthetic datasets and serve stored results over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logging.ParseLevel(logLevel)
		}

		return logging.InitDefaultLogger(logging.Config{
			Level:       cfg.LogLevel,
			Prefix:      "personasim",
			Colored:     !cfg.IsProduction(),
			LogToFile:   cfg.LogFile != "",
			LogFilePath: cfg.LogFile,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if l := logging.GetDefaultLogger(); l != nil {
			l.Close()
		}
	},
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "config", "c", ".env", "env file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}
