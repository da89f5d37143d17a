package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pagepulse/pagepulse/pkg/artifact"
	"github.com/pagepulse/pagepulse/pkg/ingest"
	"github.com/pagepulse/pagepulse/pkg/store"
	"github.com/pagepulse/pagepulse/pkg/tsdb"
)

var ingestBrowser string

var ingestCmd = &cobra.Command{
	Use:   "ingest <test-id>",
	Short: "Ingest the artifacts of a completed run",
	Long: `Ingest reads the artifact tree of one completed run from the results
directory and persists the normalized data. Re-running the command for
the same run converges to the same stored state.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestBrowser, "browser", "chrome",
		"browser the run was executed with")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	testID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	classifier, err := buildClassifier(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Aborting ingestion")
		cancel()
	}()

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Store stop error")
		}
	}()

	ts := tsdb.NewGateway(log, &cfg.Influx)
	if err := ts.Start(ctx); err != nil {
		return fmt.Errorf("starting time-series gateway: %w", err)
	}

	defer func() {
		if err := ts.Stop(); err != nil {
			log.WithError(err).Warn("Time-series gateway stop error")
		}
	}()

	processor := ingest.NewProcessor(
		log,
		cfg.Results.Dir,
		artifact.NewExtractor(log, classifier),
		st,
		ts,
	)

	if err := processor.ProcessRun(ctx, testID, ingestBrowser); err != nil {
		return fmt.Errorf("processing run %s: %w", testID, err)
	}

	return nil
}
