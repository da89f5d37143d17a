// Package tsdb is the time-series persistence gateway, backed by an
// InfluxDB v2 bucket. Writes are append-only points with no identity:
// duplicates are tolerated and consumers always prefer the latest. A
// failed point write is logged and never aborts sibling points.
package tsdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxapi "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/pagepulse/pagepulse/pkg/config"
	"github.com/pagepulse/pagepulse/pkg/flatrecord"
)

// MetricPoint is one timing/visual metric sample for a run page.
type MetricPoint struct {
	TestID     string
	URL        string
	Browser    string
	MetricName string
	Value      float64
}

// MediaPoint carries the media asset pointers for a run page.
type MediaPoint struct {
	TestID         string
	URL            string
	Group          string
	VideoPath      string
	ScreenshotPath string
}

// TestSummary describes one known test run, derived from the first
// visualMetrics point of the run.
type TestSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Browser   string    `json:"browser"`
	Timestamp time.Time `json:"timestamp"`
}

// Gateway exposes the append sink and the flat-record read side of the
// time-series store.
type Gateway interface {
	Start(ctx context.Context) error
	Stop() error

	// Append sink.
	WriteMetric(ctx context.Context, p MetricPoint) error
	WriteMediaAssets(ctx context.Context, p MediaPoint) error

	// Read side.
	ListTests(ctx context.Context) ([]TestSummary, error)
	RunRecords(ctx context.Context, testID string) ([]flatrecord.Record, error)
	PerformanceRecords(ctx context.Context, testID string) ([]flatrecord.Record, error)
	CompareRecords(ctx context.Context, testIDs []string) ([]flatrecord.Record, error)
}

// Compile-time interface checks. The gateway doubles as the
// flat-record source for performance data.
var (
	_ Gateway           = (*gateway)(nil)
	_ flatrecord.Source = (*gateway)(nil)
)

type gateway struct {
	log    logrus.FieldLogger
	cfg    *config.InfluxConfig
	client influxdb2.Client
	write  influxapi.WriteAPIBlocking
	query  influxapi.QueryAPI
}

// NewGateway creates a time-series gateway for the configured bucket.
func NewGateway(
	log logrus.FieldLogger,
	cfg *config.InfluxConfig,
) Gateway {
	return &gateway{
		log: log.WithField("component", "tsdb"),
		cfg: cfg,
	}
}

// Start creates the client and verifies connectivity. An unreachable
// server is logged but not fatal: ingestion is best effort per point.
func (g *gateway) Start(ctx context.Context) error {
	g.client = influxdb2.NewClient(g.cfg.URL, g.cfg.Token)
	g.write = g.client.WriteAPIBlocking(g.cfg.Org, g.cfg.Bucket)
	g.query = g.client.QueryAPI(g.cfg.Org)

	if ok, err := g.client.Ping(ctx); err != nil || !ok {
		g.log.WithError(err).WithField("url", g.cfg.URL).
			Warn("InfluxDB not reachable, writes will be retried per point")
	} else {
		g.log.WithField("url", g.cfg.URL).Info("InfluxDB connected")
	}

	return nil
}

// Stop releases the client.
func (g *gateway) Stop() error {
	if g.client != nil {
		g.client.Close()
	}

	return nil
}

// WriteMetric appends one visualMetrics point.
func (g *gateway) WriteMetric(ctx context.Context, p MetricPoint) error {
	point := influxdb2.NewPoint(
		flatrecord.MeasurementVisualMetrics,
		map[string]string{
			flatrecord.TagTestID:     p.TestID,
			flatrecord.TagURL:        p.URL,
			flatrecord.TagBrowser:    p.Browser,
			flatrecord.TagMetricName: p.MetricName,
		},
		map[string]any{
			flatrecord.FieldValue: p.Value,
		},
		time.Now().UTC(),
	)

	if err := g.write.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("writing metric point: %w", err)
	}

	return nil
}

// WriteMediaAssets appends the media asset pointer point.
func (g *gateway) WriteMediaAssets(ctx context.Context, p MediaPoint) error {
	point := influxdb2.NewPoint(
		flatrecord.MeasurementMediaAssets,
		map[string]string{
			flatrecord.TagTestID: p.TestID,
			flatrecord.TagURL:    p.URL,
			flatrecord.TagGroup:  p.Group,
		},
		map[string]any{
			flatrecord.FieldVideoPath:     p.VideoPath,
			flatrecord.FieldLCPScreenshot: p.ScreenshotPath,
		},
		time.Now().UTC(),
	)

	if err := g.write.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("writing media assets point: %w", err)
	}

	return nil
}

// Records implements flatrecord.Source with the performance record
// stream for a run.
func (g *gateway) Records(
	ctx context.Context, testID string,
) ([]flatrecord.Record, error) {
	return g.PerformanceRecords(ctx, testID)
}
