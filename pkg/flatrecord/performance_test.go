package flatrecord_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/pkg/flatrecord"
)

func metricRecord(name string, value float64) flatrecord.Record {
	return flatrecord.Record{
		Measurement: flatrecord.MeasurementVisualMetrics,
		Field:       flatrecord.FieldValue,
		Value:       value,
		Tags: map[string]string{
			flatrecord.TagTestID:     "test-1",
			flatrecord.TagMetricName: name,
		},
	}
}

func TestSelectPerformance_AllNamesPresent(t *testing.T) {
	records := []flatrecord.Record{
		metricRecord("firstContentfulPaint", 850),
		metricRecord("SpeedIndex", 1200),
		metricRecord("ttfb", 120),
	}

	metrics := flatrecord.SelectPerformance(records)

	// Every recognized name has an entry, matched or not.
	require.Len(t, metrics, len(flatrecord.PerformanceMetricNames))

	require.NotNil(t, metrics["firstContentfulPaint"])
	assert.Equal(t, 850.0, *metrics["firstContentfulPaint"])
	require.NotNil(t, metrics["SpeedIndex"])
	assert.Equal(t, 1200.0, *metrics["SpeedIndex"])

	// Absent metrics are nil, not zero.
	assert.Nil(t, metrics["largestContentfulPaint"])
	assert.Nil(t, metrics["TotalBlockingTime"])
}

func TestSelectPerformance_CaseInsensitiveFallback(t *testing.T) {
	records := []flatrecord.Record{
		metricRecord("speedindex", 900),
	}

	metrics := flatrecord.SelectPerformance(records)

	require.NotNil(t, metrics["SpeedIndex"])
	assert.Equal(t, 900.0, *metrics["SpeedIndex"])
}

func TestSelectPerformance_ExactMatchWins(t *testing.T) {
	records := []flatrecord.Record{
		metricRecord("speedindex", 900),
		metricRecord("SpeedIndex", 1100),
	}

	metrics := flatrecord.SelectPerformance(records)

	require.NotNil(t, metrics["SpeedIndex"])
	assert.Equal(t, 1100.0, *metrics["SpeedIndex"])
}

func TestSelectPerformance_IgnoresOtherFieldsAndMeasurements(t *testing.T) {
	records := []flatrecord.Record{
		{
			Measurement: flatrecord.MeasurementVisualMetrics,
			Field:       "median",
			Value:       500.0,
			Tags:        map[string]string{flatrecord.TagMetricName: "ttfb"},
		},
		{
			Measurement: flatrecord.MeasurementPagexray,
			Field:       flatrecord.FieldValue,
			Value:       500.0,
			Tags:        map[string]string{flatrecord.TagMetricName: "ttfb"},
		},
	}

	metrics := flatrecord.SelectPerformance(records)

	assert.Nil(t, metrics["ttfb"])
}

func TestSelectPerformance_EmptyStream(t *testing.T) {
	metrics := flatrecord.SelectPerformance(nil)

	require.Len(t, metrics, len(flatrecord.PerformanceMetricNames))

	for name, value := range metrics {
		assert.Nil(t, value, name)
	}
}
