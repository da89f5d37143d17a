package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pagepulse/pagepulse/pkg/coach"
	"github.com/pagepulse/pagepulse/pkg/config"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile  string
	logLevel string
	log      *logrus.Logger
)

func main() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("Failed to execute command")
	}
}

var rootCmd = &cobra.Command{
	Use:   "pagepulse",
	Short: "Web performance audit ingestion and reporting",
	Long: `Pagepulse normalizes the artifacts of web performance audit runs
(timing metrics, advisory findings, content breakdowns) into flat
records, persists them, and serves reports over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}

		log.SetLevel(level)

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pagepulse %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level ("+strings.Join(logLevels(), ", ")+")")

	rootCmd.AddCommand(versionCmd)
}

func logLevels() []string {
	levels := make([]string, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		levels = append(levels, level.String())
	}

	return levels
}

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// buildClassifier returns the advice classifier, extended by the
// configured category map file when one is set.
func buildClassifier(cfg *config.Config) (*coach.Classifier, error) {
	if cfg.Coach.CategoryMapFile == "" {
		return coach.NewDefaultClassifier(), nil
	}

	categoryMap, err := coach.LoadCategoryMap(cfg.Coach.CategoryMapFile)
	if err != nil {
		return nil, fmt.Errorf("loading category map: %w", err)
	}

	classifier, err := coach.NewClassifier(categoryMap)
	if err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}

	return classifier, nil
}
