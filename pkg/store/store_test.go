package store_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/pkg/config"
	"github.com/pagepulse/pagepulse/pkg/flatrecord"
	"github.com/pagepulse/pagepulse/pkg/store"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func f(v float64) *float64 { return &v }

func TestStore_UpsertTestRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTestRun(ctx, &store.TestRun{
		TestID:  "run-1",
		Browser: "chrome",
	}))

	// Re-ingesting updates in place instead of duplicating.
	require.NoError(t, s.UpsertTestRun(ctx, &store.TestRun{
		TestID:  "run-1",
		Browser: "firefox",
	}))

	runs, err := s.ListTestRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "firefox", runs[0].Browser)

	run, err := s.GetTestRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-1", run.TestID)

	missing, err := s.GetTestRun(ctx, "run-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_UpsertAdviceIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := &store.CoachAdvice{
		TestID:       "run-1",
		URL:          "https://example.com/",
		GroupName:    "example_com",
		CategoryName: "performance",
		AdviceID:     "cacheHeaders",
		Score:        50,
		Title:        "Cache headers",
		Description:  "Set cache headers.",
	}
	require.NoError(t, s.UpsertAdvice(ctx, row))

	// Same identity, new score. A zero score must overwrite too.
	update := &store.CoachAdvice{
		TestID:       "run-1",
		URL:          "https://example.com/",
		GroupName:    "example_com",
		CategoryName: "performance",
		AdviceID:     "cacheHeaders",
		Score:        0,
		Title:        "Cache headers",
		Description:  "Updated.",
	}
	require.NoError(t, s.UpsertAdvice(ctx, update))

	rows, err := s.ListAdviceByTestID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].Score)
	assert.Equal(t, "Updated.", rows[0].Description)

	// A different advice id under the same run is a separate row.
	other := &store.CoachAdvice{
		TestID:       "run-1",
		URL:          "https://example.com/",
		GroupName:    "example_com",
		CategoryName: "privacy",
		AdviceID:     "https",
		Score:        100,
	}
	require.NoError(t, s.UpsertAdvice(ctx, other))

	rows, err = s.ListAdviceByTestID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStore_UpsertCoachScores(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCoachScores(ctx, &store.CoachScores{
		TestID:            "run-1",
		PerformanceScore:  f(82),
		PrivacyScore:      f(95),
		BestPracticeScore: f(90),
	}))

	// Re-ingestion with an absent category must read back as absent.
	require.NoError(t, s.UpsertCoachScores(ctx, &store.CoachScores{
		TestID:           "run-1",
		PerformanceScore: f(84),
	}))

	scores, err := s.GetCoachScores(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, scores)
	require.NotNil(t, scores.PerformanceScore)
	assert.Equal(t, 84.0, *scores.PerformanceScore)
	assert.Nil(t, scores.PrivacyScore)
	assert.Nil(t, scores.BestPracticeScore)

	missing, err := s.GetCoachScores(ctx, "run-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_UpsertPagexrayIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := &store.PagexrayRow{
		TestID:       "run-1",
		URL:          "https://example.com/",
		GroupName:    "example_com",
		Browser:      "chrome",
		ContentType:  "html",
		Requests:     2,
		ContentSize:  4096,
		TransferSize: 2048,
	}
	require.NoError(t, s.UpsertPagexray(ctx, row))
	require.NoError(t, s.UpsertPagexray(ctx, &store.PagexrayRow{
		TestID:       "run-1",
		URL:          "https://example.com/",
		GroupName:    "example_com",
		Browser:      "chrome",
		ContentType:  "html",
		Requests:     3,
		ContentSize:  5000,
		TransferSize: 2500,
	}))

	rows, err := s.ListPagexrayByTestID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].Requests)
	assert.Equal(t, int64(5000), rows[0].ContentSize)
	assert.Equal(t, int64(2500), rows[0].TransferSize)
}

func TestCoachSource_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAdvice(ctx, &store.CoachAdvice{
		TestID:       "run-1",
		URL:          "https://example.com/",
		GroupName:    "example_com",
		CategoryName: "performance",
		AdviceID:     "cacheHeaders",
		Score:        75,
		Title:        "Cache headers",
		Description:  "Set cache headers.",
	}))

	records, err := store.NewCoachSource(s).Records(ctx, "run-1")
	require.NoError(t, err)

	// One row re-expands into the three field records.
	require.Len(t, records, 3)

	fields := make(map[string]flatrecord.Record, 3)
	for _, rec := range records {
		assert.Equal(t, flatrecord.MeasurementCoachAdvice, rec.Measurement)
		assert.Equal(t, "run-1", rec.Tag(flatrecord.TagTestID))
		assert.Equal(t, "cacheHeaders", rec.Tag(flatrecord.TagAdviceID))
		assert.Equal(t, "performance", rec.Tag(flatrecord.TagCategory))
		fields[rec.Field] = rec
	}

	score, ok := fields[flatrecord.FieldScore].Float()
	require.True(t, ok)
	assert.Equal(t, 75.0, score)
	assert.Equal(t, "Cache headers", fields[flatrecord.FieldTitle].String())
	assert.Equal(t, "Set cache headers.", fields[flatrecord.FieldDescription].String())
}

func TestPagexraySource_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPagexray(ctx, &store.PagexrayRow{
		TestID:       "run-1",
		URL:          "https://example.com/",
		GroupName:    "example_com",
		Browser:      "chrome",
		ContentType:  "html",
		Requests:     12,
		ContentSize:  4096,
		TransferSize: 2048,
	}))

	records, err := store.NewPagexraySource(s).Records(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 3)

	fields := make(map[string]flatrecord.Record, 3)
	for _, rec := range records {
		assert.Equal(t, flatrecord.MeasurementPagexray, rec.Measurement)
		assert.Equal(t, "html", rec.Tag(flatrecord.TagContentType))
		assert.Equal(t, "chrome", rec.Tag(flatrecord.TagBrowser))
		fields[rec.Field] = rec
	}

	requests, ok := fields[flatrecord.FieldRequests].Float()
	require.True(t, ok)
	assert.Equal(t, 12.0, requests)

	// The reconstructed stream feeds the same aggregation the
	// time-series path uses.
	breakdown := flatrecord.AggregateContent(records)
	require.Contains(t, breakdown.ContentTypes, "html")
	assert.Equal(t, int64(12), breakdown.ContentTypes["html"].Requests)
	assert.Equal(t, int64(4096), breakdown.ContentTypes["html"].Size)
	assert.Equal(t, int64(2048), breakdown.ContentTypes["html"].TransferSize)
}
