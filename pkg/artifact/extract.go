// Package artifact normalizes the three raw result documents a browser
// test run produces per page (timing/visual metrics, coach advice,
// pagexray content breakdown) into flat tuples ready for persistence.
// The shared rule across all three walks: prefer a structured summary
// value, fall back to a raw scalar, otherwise skip the field silently.
package artifact

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/pagepulse/pagepulse/pkg/coach"
	"github.com/pagepulse/pagepulse/pkg/flatrecord"
)

// MetricSample is one resolved timing/visual metric.
type MetricSample struct {
	Name  string
	Value float64
}

// AdviceItem is one advisory finding, or a category pseudo-entry
// carrying the category-level score (AdviceID equals the category name).
type AdviceItem struct {
	AdviceID    string
	Category    string
	Score       float64
	Title       string
	Description string
}

// CategoryScores holds the three category-level scores read directly
// from the advice tree's category nodes. They are source data in their
// own right, not an aggregate of item scores. A nil score means the
// category node was absent.
type CategoryScores struct {
	Performance  *float64
	Privacy      *float64
	BestPractice *float64
}

// ContentTypeRow is the aggregate counters of one content type.
type ContentTypeRow struct {
	ContentType  string
	Requests     int64
	ContentSize  int64
	TransferSize int64
}

// MediaAssets points at the recording and the LCP screenshot of a page.
// The paths follow the harness directory convention and are synthesized
// from the page folder name without checking the filesystem, so a
// pointer may reference a file that was never produced.
type MediaAssets struct {
	VideoPath      string
	ScreenshotPath string
}

// TimingExtraction is the normalized output of one browsertime document.
type TimingExtraction struct {
	URL     string
	Metrics []MetricSample
	Media   MediaAssets
}

// CoachExtraction is the normalized output of one coach document.
type CoachExtraction struct {
	URL    string
	Advice []AdviceItem
	Scores CategoryScores
}

// ContentExtraction is the normalized output of one pagexray document.
type ContentExtraction struct {
	URL  string
	Rows []ContentTypeRow
}

// Extractor walks the three artifact document shapes.
type Extractor struct {
	log        logrus.FieldLogger
	classifier *coach.Classifier
}

// NewExtractor creates an extractor using the given classifier to
// validate advice ids during coach extraction.
func NewExtractor(log logrus.FieldLogger, classifier *coach.Classifier) *Extractor {
	return &Extractor{
		log:        log.WithField("component", "extractor"),
		classifier: classifier,
	}
}

// ExtractTiming walks a browsertime document. Every visualMetrics entry
// yields a sample (summary median preferred, bare scalar accepted), and
// a fixed secondary set of timing/web-vital paths is probed for metrics
// the primary set does not carry. Media asset pointers are derived from
// the page folder name.
func (e *Extractor) ExtractTiming(data []byte, pageFolder string) (*TimingExtraction, error) {
	var doc browsertimeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing browsertime document: %w", err)
	}

	out := &TimingExtraction{
		URL:     doc.pageURL(),
		Metrics: make([]MetricSample, 0, len(doc.VisualMetrics)+8),
		Media: MediaAssets{
			VideoPath: path.Join(
				"pages", pageFolder, "data", "video", "1.mp4",
			),
			ScreenshotPath: path.Join(
				"pages", pageFolder, "data", "screenshots", "1",
				"largestContentfulPaint.png",
			),
		},
	}

	for name, raw := range doc.VisualMetrics {
		if v, ok := summaryOrScalar(raw); ok {
			out.Metrics = append(out.Metrics, MetricSample{Name: name, Value: v})
		}
	}

	// Alternate sources for metrics the visualMetrics set may lack.
	// These leaves are bare scalars in the summary document; anything
	// else is treated as absent.
	secondary := []struct {
		name string
		raw  json.RawMessage
	}{
		{"firstPaint", doc.Timings.FirstPaint},
		{"firstContentfulPaint", doc.GoogleWebVitals.FirstContentfulPaint},
		{"largestContentfulPaint", doc.GoogleWebVitals.LargestContentfulPaint},
		{"ttfb", doc.Timings.TTFB},
		{"domInteractive", doc.Timings.PageTimings.DOMInteractiveTime},
		{"pageLoadTime", doc.Timings.PageTimings.PageLoadTime},
		{"fullyLoaded", doc.FullyLoaded},
		{"TotalBlockingTime", doc.GoogleWebVitals.TotalBlockingTime},
	}

	for _, s := range secondary {
		if v, ok := scalarValue(s.raw); ok {
			out.Metrics = append(out.Metrics, MetricSample{Name: s.name, Value: v})
		}
	}

	return out, nil
}

// ExtractCoach walks the advice tree. Each recognized category node
// contributes its scored advice items plus a pseudo-entry carrying the
// category's own score; the three category-level scores are also
// collected into CategoryScores for the per-run score row. Advice ids
// the classifier does not know are dropped with a warning, never filed
// under a guessed category.
func (e *Extractor) ExtractCoach(data []byte) (*CoachExtraction, error) {
	var doc coachDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing coach document: %w", err)
	}

	out := &CoachExtraction{URL: doc.URL}
	if out.URL == "" {
		out.URL = unknownURL
	}

	if doc.Advice == nil {
		return out, nil
	}

	for _, categoryName := range coach.Categories {
		raw, ok := doc.Advice[string(categoryName)]
		if !ok {
			continue
		}

		var category coachCategory
		if err := json.Unmarshal(raw, &category); err != nil {
			e.log.WithError(err).
				WithField("category", categoryName).
				Debug("Skipping malformed category node")

			continue
		}

		if category.AdviceList == nil {
			e.log.WithField("category", categoryName).
				Debug("No advice list for category")
		}

		for adviceID, item := range category.AdviceList {
			if item.Score == nil {
				continue
			}

			if _, known := e.classifier.Classify(adviceID); !known {
				e.log.WithField("advice_id", adviceID).
					Warn("No category for advice id, dropping")

				continue
			}

			title := item.Title
			if title == "" {
				title = adviceID
			}

			out.Advice = append(out.Advice, AdviceItem{
				AdviceID:    adviceID,
				Category:    string(categoryName),
				Score:       *item.Score,
				Title:       title,
				Description: item.Description,
			})
		}

		// The category's own score rides along as a pseudo-advice
		// entry keyed by the category name, so flat-record consumers
		// can pick it up without a separate lookup.
		if category.Score != nil {
			out.Advice = append(out.Advice, AdviceItem{
				AdviceID: string(categoryName),
				Category: string(categoryName),
				Score:    *category.Score,
				Title:    string(categoryName),
			})

			score := *category.Score

			switch categoryName {
			case coach.CategoryPerformance:
				out.Scores.Performance = &score
			case coach.CategoryPrivacy:
				out.Scores.Privacy = &score
			case coach.CategoryBestPractice:
				out.Scores.BestPractice = &score
			}
		}
	}

	return out, nil
}

// ExtractContent walks the pagexray content type map. The two size
// fields may each be a summary object (median preferred) or a bare
// scalar.
func (e *Extractor) ExtractContent(data []byte) (*ContentExtraction, error) {
	var doc pagexrayDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pagexray document: %w", err)
	}

	out := &ContentExtraction{URL: doc.URL}
	if out.URL == "" {
		out.URL = unknownURL
	}

	for contentType, entry := range doc.ContentTypes {
		row := ContentTypeRow{
			ContentType: contentType,
			Requests:    entry.Requests,
		}

		if v, ok := summaryOrScalar(entry.ContentSize); ok {
			row.ContentSize = int64(v)
		}

		if v, ok := summaryOrScalar(entry.TransferSize); ok {
			row.TransferSize = int64(v)
		}

		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// summaryOrScalar resolves a leaf that is either a statistical summary
// object or a bare number, using the fixed median > mean > value > max
// priority.
func summaryOrScalar(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var stats summaryStats
	if err := json.Unmarshal(raw, &stats); err == nil {
		candidates := []flatrecord.Candidate{
			{Name: "median", Value: stats.Median},
			{Name: "mean", Value: stats.Mean},
			{Name: "max", Value: stats.Max},
		}

		if v, ok := flatrecord.Resolve(candidates); ok {
			return v, true
		}
	}

	return scalarValue(raw)
}
