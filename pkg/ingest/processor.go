// Package ingest drives one run's end-to-end ingestion: it locates the
// per-page artifact folders, extracts the three artifact kinds, and
// persists the normalized tuples. Ingestion is best effort per item: a
// failed write is logged and never halts the rest of the run.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pagepulse/pagepulse/pkg/artifact"
	"github.com/pagepulse/pagepulse/pkg/store"
	"github.com/pagepulse/pagepulse/pkg/tsdb"
)

// Processor ingests one run's artifact tree.
type Processor struct {
	log        logrus.FieldLogger
	resultsDir string
	extractor  *artifact.Extractor
	store      store.Store
	tsdb       tsdb.Gateway
}

// NewProcessor creates a processor reading artifact trees from
// resultsDir.
func NewProcessor(
	log logrus.FieldLogger,
	resultsDir string,
	extractor *artifact.Extractor,
	st store.Store,
	ts tsdb.Gateway,
) *Processor {
	return &Processor{
		log:        log.WithField("component", "ingest"),
		resultsDir: resultsDir,
		extractor:  extractor,
		store:      st,
		tsdb:       ts,
	}
}

// ProcessRun ingests the artifacts of one completed run. Pages are
// processed sequentially; within a page the three artifact kinds run
// concurrently since they write to disjoint identity keys. Because all
// relational writes are upserts, re-running after a partial failure
// converges instead of duplicating. Callers must serialize concurrent
// ingestion of the same run id.
func (p *Processor) ProcessRun(ctx context.Context, testID, browser string) error {
	log := p.log.WithField("test_id", testID)
	log.Info("Processing run results")

	if err := p.store.UpsertTestRun(ctx, &store.TestRun{
		TestID:  testID,
		Browser: browser,
	}); err != nil {
		log.WithError(err).Warn("Failed to save run metadata")
	}

	pagesPath := filepath.Join(p.resultsDir, testID, "pages")
	if _, err := os.Stat(pagesPath); os.IsNotExist(err) {
		log.WithField("path", pagesPath).
			Warn("Pages directory not found, nothing to ingest")

		return nil
	}

	entries, err := os.ReadDir(pagesPath)
	if err != nil {
		return fmt.Errorf("reading pages directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pageFolder := entry.Name()
		dataPath := filepath.Join(pagesPath, pageFolder, "data")

		if _, err := os.Stat(dataPath); os.IsNotExist(err) {
			log.WithField("page", pageFolder).
				Debug("Data path not found, skipping page")

			continue
		}

		if err := p.processPage(ctx, log, testID, browser, pageFolder, dataPath); err != nil {
			log.WithError(err).WithField("page", pageFolder).
				Warn("Page ingestion incomplete")
		}
	}

	log.Info("Run results processed")

	return nil
}

// processPage ingests the three artifact kinds of one page folder.
func (p *Processor) processPage(
	ctx context.Context,
	log logrus.FieldLogger,
	testID, browser, pageFolder, dataPath string,
) error {
	log = log.WithField("page", pageFolder)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.processTiming(ctx, log, testID, browser, pageFolder, dataPath)
	})
	g.Go(func() error {
		return p.processCoach(ctx, log, testID, pageFolder, dataPath)
	})
	g.Go(func() error {
		return p.processPagexray(ctx, log, testID, browser, pageFolder, dataPath)
	})

	return g.Wait()
}

// readArtifact loads one artifact document, reporting absence
// separately from read failures so a missing file only skips its
// branch.
func readArtifact(dataPath, name string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(dataPath, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", name, err)
	}

	return data, true, nil
}

// processTiming extracts visual metrics and media asset pointers from
// the browsertime document and appends them to the time-series store.
func (p *Processor) processTiming(
	ctx context.Context,
	log logrus.FieldLogger,
	testID, browser, pageFolder, dataPath string,
) error {
	data, ok, err := readArtifact(dataPath, artifact.BrowsertimeFile)
	if err != nil {
		return err
	}

	if !ok {
		log.Debug("No browsertime document, skipping timing branch")

		return nil
	}

	extraction, err := p.extractor.ExtractTiming(data, pageFolder)
	if err != nil {
		log.WithError(err).Warn("Skipping unreadable browsertime document")

		return nil
	}

	for _, metric := range extraction.Metrics {
		point := tsdb.MetricPoint{
			TestID:     testID,
			URL:        extraction.URL,
			Browser:    browser,
			MetricName: metric.Name,
			Value:      metric.Value,
		}

		if err := p.tsdb.WriteMetric(ctx, point); err != nil {
			log.WithError(err).WithField("metric", metric.Name).
				Warn("Failed to write metric point")
		}
	}

	// Media pointers are written whenever a timing artifact exists for
	// the page; the files themselves are assumed at their conventional
	// locations and never checked.
	media := tsdb.MediaPoint{
		TestID:         testID,
		URL:            extraction.URL,
		Group:          pageFolder,
		VideoPath:      extraction.Media.VideoPath,
		ScreenshotPath: extraction.Media.ScreenshotPath,
	}

	if err := p.tsdb.WriteMediaAssets(ctx, media); err != nil {
		log.WithError(err).Warn("Failed to write media assets point")
	}

	return nil
}

// processCoach extracts advice items and category scores from the
// coach document and upserts them into the relational store.
func (p *Processor) processCoach(
	ctx context.Context,
	log logrus.FieldLogger,
	testID, pageFolder, dataPath string,
) error {
	data, ok, err := readArtifact(dataPath, artifact.CoachFile)
	if err != nil {
		return err
	}

	if !ok {
		log.Debug("No coach document, skipping advice branch")

		return nil
	}

	extraction, err := p.extractor.ExtractCoach(data)
	if err != nil {
		log.WithError(err).Warn("Skipping unreadable coach document")

		return nil
	}

	for _, item := range extraction.Advice {
		row := &store.CoachAdvice{
			TestID:       testID,
			URL:          extraction.URL,
			GroupName:    pageFolder,
			CategoryName: item.Category,
			AdviceID:     item.AdviceID,
			Score:        item.Score,
			Title:        item.Title,
			Description:  item.Description,
		}

		if err := p.store.UpsertAdvice(ctx, row); err != nil {
			log.WithError(err).WithField("advice_id", item.AdviceID).
				Warn("Failed to upsert advice")
		}
	}

	scores := &store.CoachScores{
		TestID:            testID,
		PerformanceScore:  extraction.Scores.Performance,
		PrivacyScore:      extraction.Scores.Privacy,
		BestPracticeScore: extraction.Scores.BestPractice,
	}

	if err := p.store.UpsertCoachScores(ctx, scores); err != nil {
		log.WithError(err).Warn("Failed to upsert coach scores")
	}

	return nil
}

// processPagexray extracts content breakdown rows from the pagexray
// document and upserts them into the relational store.
func (p *Processor) processPagexray(
	ctx context.Context,
	log logrus.FieldLogger,
	testID, browser, pageFolder, dataPath string,
) error {
	data, ok, err := readArtifact(dataPath, artifact.PagexrayFile)
	if err != nil {
		return err
	}

	if !ok {
		log.Debug("No pagexray document, skipping content branch")

		return nil
	}

	extraction, err := p.extractor.ExtractContent(data)
	if err != nil {
		log.WithError(err).Warn("Skipping unreadable pagexray document")

		return nil
	}

	for _, contentRow := range extraction.Rows {
		row := &store.PagexrayRow{
			TestID:       testID,
			URL:          extraction.URL,
			GroupName:    pageFolder,
			Browser:      browser,
			ContentType:  contentRow.ContentType,
			Requests:     contentRow.Requests,
			ContentSize:  contentRow.ContentSize,
			TransferSize: contentRow.TransferSize,
		}

		if err := p.store.UpsertPagexray(ctx, row); err != nil {
			log.WithError(err).WithField("content_type", contentRow.ContentType).
				Warn("Failed to upsert pagexray row")
		}
	}

	return nil
}
