package tsdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/pagepulse/pagepulse/pkg/flatrecord"
)

// fluxMetaColumns are flux result columns that are not tags.
var fluxMetaColumns = map[string]struct{}{
	"result":       {},
	"table":        {},
	"_start":       {},
	"_stop":        {},
	"_time":        {},
	"_value":       {},
	"_field":       {},
	"_measurement": {},
}

// ListTests returns the known test runs, one summary per run, newest
// first. The visualMetrics measurement is used as the run indicator
// because every ingested run writes at least one such point.
func (g *gateway) ListTests(ctx context.Context) ([]TestSummary, error) {
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r["_measurement"] == "visualMetrics")
  |> group(columns: ["test_id", "url", "browser"])
  |> first()
  |> keep(columns: ["test_id", "url", "browser", "_time"])
  |> sort(columns: ["_time"], desc: true)
`, g.cfg.Bucket, g.cfg.QueryRange)

	result, err := g.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("querying tests: %w", err)
	}

	tests := make([]TestSummary, 0, 16)

	for result.Next() {
		rec := result.Record()
		tests = append(tests, TestSummary{
			ID:        stringValue(rec, flatrecord.TagTestID),
			URL:       stringValue(rec, flatrecord.TagURL),
			Browser:   stringValue(rec, flatrecord.TagBrowser),
			Timestamp: rec.Time(),
		})
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading test query result: %w", err)
	}

	return tests, nil
}

// RunRecords returns all of a run's time-series records except the
// measurements that are served from the relational store.
func (g *gateway) RunRecords(
	ctx context.Context, testID string,
) ([]flatrecord.Record, error) {
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r["test_id"] == %q)
  |> filter(fn: (r) => r["_measurement"] != "coach_advice" and r["_measurement"] != "pagexray")
`, g.cfg.Bucket, g.cfg.QueryRange, sanitizeFluxString(testID))

	return g.queryRecords(ctx, flux)
}

// PerformanceRecords returns a run's visualMetrics records.
func (g *gateway) PerformanceRecords(
	ctx context.Context, testID string,
) ([]flatrecord.Record, error) {
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r["test_id"] == %q)
  |> filter(fn: (r) => r["_measurement"] == "visualMetrics")
`, g.cfg.Bucket, g.cfg.QueryRange, sanitizeFluxString(testID))

	return g.queryRecords(ctx, flux)
}

// CompareRecords returns visualMetrics records across several runs for
// side-by-side comparison.
func (g *gateway) CompareRecords(
	ctx context.Context, testIDs []string,
) ([]flatrecord.Record, error) {
	if len(testIDs) == 0 {
		return nil, nil
	}

	filters := make([]string, 0, len(testIDs))
	for _, id := range testIDs {
		filters = append(filters,
			fmt.Sprintf(`r["test_id"] == %q`, sanitizeFluxString(id)))
	}

	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => %s)
  |> filter(fn: (r) => r["_measurement"] == "visualMetrics")
`, g.cfg.Bucket, g.cfg.QueryRange, strings.Join(filters, " or "))

	return g.queryRecords(ctx, flux)
}

// queryRecords runs a flux query and maps every row onto the canonical
// flat record shape.
func (g *gateway) queryRecords(
	ctx context.Context, flux string,
) ([]flatrecord.Record, error) {
	result, err := g.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}

	records := make([]flatrecord.Record, 0, 64)

	for result.Next() {
		records = append(records, fluxToRecord(result.Record()))
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading query result: %w", err)
	}

	return records, nil
}

// fluxToRecord maps one flux row onto a flat record. Every non-meta
// string column becomes a tag.
func fluxToRecord(rec *query.FluxRecord) flatrecord.Record {
	tags := make(map[string]string, 4)

	for key, value := range rec.Values() {
		if _, meta := fluxMetaColumns[key]; meta {
			continue
		}

		if s, ok := value.(string); ok {
			tags[key] = s
		}
	}

	return flatrecord.Record{
		Measurement: rec.Measurement(),
		Field:       rec.Field(),
		Value:       rec.Value(),
		Time:        rec.Time(),
		Tags:        tags,
	}
}

// stringValue reads a string column from a flux record.
func stringValue(rec *query.FluxRecord, key string) string {
	s, _ := rec.ValueByKey(key).(string)

	return s
}

// sanitizeFluxString strips characters that would break out of a flux
// string literal. Test ids are generated, but they arrive over HTTP.
func sanitizeFluxString(s string) string {
	s = strings.ReplaceAll(s, `"`, "")

	return strings.ReplaceAll(s, "\n", "")
}
