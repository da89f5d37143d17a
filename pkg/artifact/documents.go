package artifact

import (
	"encoding/json"
	"math"
)

// Artifact file names produced per page folder by the browser test
// harness. Each is optional; a missing file only skips its branch.
const (
	BrowsertimeFile = "browsertime.run-1.json"
	CoachFile       = "coach.run-1.json"
	PagexrayFile    = "pagexray.run-1.json"
)

// unknownURL is used when none of the URL fields are present.
const unknownURL = "unknown_url"

// browsertimeDoc is the subset of the timing/visual-metrics document
// the extractor reads. Leaves that may be either a summary object or a
// bare scalar stay raw and are decoded per field.
type browsertimeDoc struct {
	PageInfo struct {
		URL string `json:"url"`
	} `json:"pageinfo"`
	Info struct {
		URL string `json:"url"`
	} `json:"info"`
	URL string `json:"url"`

	VisualMetrics map[string]json.RawMessage `json:"visualMetrics"`

	Timings struct {
		FirstPaint  json.RawMessage `json:"firstPaint"`
		TTFB        json.RawMessage `json:"ttfb"`
		PageTimings struct {
			DOMInteractiveTime json.RawMessage `json:"domInteractiveTime"`
			PageLoadTime       json.RawMessage `json:"pageLoadTime"`
		} `json:"pageTimings"`
	} `json:"timings"`

	GoogleWebVitals struct {
		FirstContentfulPaint   json.RawMessage `json:"firstContentfulPaint"`
		LargestContentfulPaint json.RawMessage `json:"largestContentfulPaint"`
		TotalBlockingTime      json.RawMessage `json:"totalBlockingTime"`
	} `json:"googleWebVitals"`

	FullyLoaded json.RawMessage `json:"fullyLoaded"`
}

// pageURL resolves the tested URL, preferring the structured page info.
func (d *browsertimeDoc) pageURL() string {
	switch {
	case d.PageInfo.URL != "":
		return d.PageInfo.URL
	case d.Info.URL != "":
		return d.Info.URL
	case d.URL != "":
		return d.URL
	default:
		return unknownURL
	}
}

// coachDoc is the advisory document. Category nodes stay raw because
// the advice tree mixes category objects with scalar bookkeeping keys.
type coachDoc struct {
	URL    string                     `json:"url"`
	Advice map[string]json.RawMessage `json:"advice"`
}

// coachCategory is one category node of the advice tree.
type coachCategory struct {
	Score      *float64               `json:"score"`
	AdviceList map[string]coachAdvice `json:"adviceList"`
}

// coachAdvice is one scored finding inside a category's advice list.
type coachAdvice struct {
	Score       *float64 `json:"score"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// pagexrayDoc is the content-breakdown document.
type pagexrayDoc struct {
	URL          string                     `json:"url"`
	ContentTypes map[string]pagexrayContent `json:"contentTypes"`
}

// pagexrayContent is one content type entry. The size fields may be
// summary objects or bare scalars.
type pagexrayContent struct {
	Requests     int64           `json:"requests"`
	TransferSize json.RawMessage `json:"transferSize"`
	ContentSize  json.RawMessage `json:"contentSize"`
}

// summaryStats is the structured statistical form a metric leaf may
// take instead of a bare scalar.
type summaryStats struct {
	Median *float64 `json:"median"`
	Mean   *float64 `json:"mean"`
	Max    *float64 `json:"max"`
}

// scalarValue decodes a leaf that must be a bare number. Anything else
// (absent, null, object, string, NaN) is reported as absent rather than
// substituted with zero.
func scalarValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}
