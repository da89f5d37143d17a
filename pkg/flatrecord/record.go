// Package flatrecord defines the canonical flat record shape shared by
// the time-series store, the relational reconstruction path, and the
// downstream transformers. A record mirrors one row of an InfluxDB flux
// result: a measurement, a field discriminator, a value, and a tag set.
package flatrecord

import (
	"context"
	"strconv"
	"time"
)

// Measurement names carried by records from either store.
const (
	MeasurementVisualMetrics = "visualMetrics"
	MeasurementCoachAdvice   = "coach_advice"
	MeasurementPagexray      = "pagexray"
	MeasurementMediaAssets   = "media_assets"
)

// Field discriminators. Reconstruction must only ever emit these; an
// unrecognized discriminator downstream is a defect, not a runtime
// condition.
const (
	FieldValue         = "value"
	FieldScore         = "score"
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldRequests      = "requests"
	FieldContentSize   = "contentSize"
	FieldTransferSize  = "transferSize"
	FieldVideoPath     = "video_path"
	FieldLCPScreenshot = "lcp_screenshot_path"
)

// Tag keys.
const (
	TagTestID      = "test_id"
	TagURL         = "url"
	TagBrowser     = "browser"
	TagGroup       = "group"
	TagMetricName  = "metricName"
	TagAdviceID    = "adviceId"
	TagCategory    = "category_name"
	TagContentType = "contentType"
)

// Record is a single tagged (measurement, field, value) tuple.
type Record struct {
	Measurement string            `json:"_measurement"`
	Field       string            `json:"_field"`
	Value       any               `json:"_value"`
	Time        time.Time         `json:"_time"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Tag returns the value of the named tag, or "" when absent.
func (r Record) Tag(key string) string {
	return r.Tags[key]
}

// Float returns the record value as a float64 when it holds a numeric
// type (or a parseable numeric string, as relational drivers sometimes
// hand back).
func (r Record) Float() (float64, bool) {
	switch v := r.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// String returns the record value as a string, or "" for non-strings.
func (r Record) String() string {
	s, _ := r.Value.(string)

	return s
}

// Source produces the flat record stream for one test run. Both the
// time-series store and the relational reconstruction path implement
// it, keeping the transformers store-agnostic.
type Source interface {
	Records(ctx context.Context, testID string) ([]Record, error)
}
