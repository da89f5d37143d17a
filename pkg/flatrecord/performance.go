package flatrecord

import "strings"

// PerformanceMetricNames is the fixed set of recognized timing/visual
// metric names. Names are case sensitive; selection falls back to a
// case-insensitive match because some producers emit lowercased names.
var PerformanceMetricNames = []string{
	"firstPaint",
	"firstContentfulPaint",
	"largestContentfulPaint",
	"SpeedIndex",
	"ttfb",
	"domInteractive",
	"pageLoadTime",
	"fullyLoaded",
	"FirstVisualChange",
	"LastVisualChange",
	"TotalBlockingTime",
}

// SelectPerformance picks one value per recognized metric name from the
// record stream. Every name gets an entry; a metric with no matching
// record maps to nil so consumers can tell "absent" from zero.
func SelectPerformance(records []Record) map[string]*float64 {
	metrics := make(map[string]*float64, len(PerformanceMetricNames))

	for _, name := range PerformanceMetricNames {
		metrics[name] = nil

		if v, ok := findMetricValue(records, name, false); ok {
			value := v
			metrics[name] = &value

			continue
		}

		if v, ok := findMetricValue(records, name, true); ok {
			value := v
			metrics[name] = &value
		}
	}

	return metrics
}

// findMetricValue returns the first visualMetrics record whose
// metricName tag matches the given name on the "value" field.
func findMetricValue(records []Record, name string, fold bool) (float64, bool) {
	for _, r := range records {
		if r.Measurement != MeasurementVisualMetrics || r.Field != FieldValue {
			continue
		}

		tag := r.Tag(TagMetricName)
		if fold {
			if !strings.EqualFold(tag, name) {
				continue
			}
		} else if tag != name {
			continue
		}

		if v, ok := r.Float(); ok {
			return v, true
		}
	}

	return 0, false
}
