package flatrecord

// ContentTypeStats holds the three counters of one content type.
type ContentTypeStats struct {
	Requests     int64 `json:"requests"`
	Size         int64 `json:"size"`
	TransferSize int64 `json:"transferSize"`
}

// ContentBreakdown is the aggregated content view for one test run.
type ContentBreakdown struct {
	ContentTypes  map[string]ContentTypeStats `json:"contentTypes"`
	TotalRequests int64                       `json:"totalRequests"`
	TotalSize     int64                       `json:"totalSize"`
}

// AggregateContent groups pagexray records by content type and resolves
// the requests/contentSize/transferSize counters per type, first match
// wins. Content types whose request count and content size are both
// zero are dropped, even when a transfer-size record exists for them.
func AggregateContent(records []Record) ContentBreakdown {
	breakdown := ContentBreakdown{
		ContentTypes: make(map[string]ContentTypeStats, 8),
	}

	seen := make(map[string]struct{}, 8)
	types := make([]string, 0, 8)

	for _, r := range records {
		if r.Measurement != MeasurementPagexray {
			continue
		}

		contentType := r.Tag(TagContentType)
		if contentType == "" {
			continue
		}

		if _, ok := seen[contentType]; !ok {
			seen[contentType] = struct{}{}
			types = append(types, contentType)
		}
	}

	for _, contentType := range types {
		requests := findCounter(records, contentType, FieldRequests)
		size := findCounter(records, contentType, FieldContentSize)
		transfer := findCounter(records, contentType, FieldTransferSize)

		if requests == 0 && size == 0 {
			continue
		}

		breakdown.ContentTypes[contentType] = ContentTypeStats{
			Requests:     requests,
			Size:         size,
			TransferSize: transfer,
		}
		breakdown.TotalRequests += requests
		breakdown.TotalSize += size
	}

	return breakdown
}

// findCounter returns the first matching counter for a content type and
// field, or 0 when no record matches.
func findCounter(records []Record, contentType, field string) int64 {
	for _, r := range records {
		if r.Measurement != MeasurementPagexray ||
			r.Field != field ||
			r.Tag(TagContentType) != contentType {
			continue
		}

		if v, ok := r.Float(); ok {
			return int64(v)
		}
	}

	return 0
}
