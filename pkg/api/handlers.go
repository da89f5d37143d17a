package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagepulse/pagepulse/pkg/flatrecord"
	"github.com/pagepulse/pagepulse/pkg/tsdb"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListTests returns the known test runs, newest first. The
// time-series store is authoritative; the relational run table fills in
// when it is unreachable.
func (s *server) handleListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := s.tsdb.ListTests(r.Context())
	if err != nil {
		s.log.WithError(err).
			Warn("Time-series test listing failed, falling back to run table")

		runs, err := s.store.ListTestRuns(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError,
				errorResponse{"listing tests"})

			return
		}

		tests = make([]tsdb.TestSummary, 0, len(runs))
		for _, run := range runs {
			tests = append(tests, tsdb.TestSummary{
				ID:        run.TestID,
				Browser:   run.Browser,
				Timestamp: run.CreatedAt,
			})
		}
	}

	writeJSON(w, http.StatusOK, tests)
}

// scoresResponse carries the per-run category scores. Nil means the
// category was absent from the source document.
type scoresResponse struct {
	Performance  *float64 `json:"performance"`
	Privacy      *float64 `json:"privacy"`
	BestPractice *float64 `json:"bestpractice"`
}

// mediaResponse carries the media asset pointers for a run.
type mediaResponse struct {
	VideoPath         string `json:"videoPath,omitempty"`
	LCPScreenshotPath string `json:"lcpScreenshotPath,omitempty"`
}

// testReport is the composite detailed view of one run, assembled from
// both stores.
type testReport struct {
	ID          string                       `json:"id"`
	URL         string                       `json:"url,omitempty"`
	Browser     string                       `json:"browser,omitempty"`
	Timestamp   time.Time                    `json:"timestamp"`
	Performance map[string]*float64          `json:"performance"`
	Coach       *flatrecord.CoachMetrics     `json:"coach,omitempty"`
	Scores      *scoresResponse              `json:"scores,omitempty"`
	Pagexray    *flatrecord.ContentBreakdown `json:"pagexray,omitempty"`
	Media       *mediaResponse               `json:"media,omitempty"`
}

// handleGetTest assembles the detailed report for one run. Each data
// branch is fetched independently; a failing branch is logged and left
// empty rather than failing the whole report.
func (s *server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testID := chi.URLParam(r, "testID")

	run, err := s.store.GetTestRun(ctx, testID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load run metadata")
	}

	records, err := s.tsdb.RunRecords(ctx, testID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load time-series records")
	}

	if run == nil && len(records) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{"test not found"})

		return
	}

	report := testReport{
		ID:          testID,
		Performance: flatrecord.SelectPerformance(records),
	}

	if run != nil {
		report.Browser = run.Browser
		report.Timestamp = run.CreatedAt
	}

	fillRecordMeta(&report, records)

	if coachRecords, err := s.coachSource.Records(ctx, testID); err != nil {
		s.log.WithError(err).Warn("Failed to load coach records")
	} else if len(coachRecords) > 0 {
		metrics := flatrecord.AggregateCoach(s.log, s.classifier, coachRecords)
		report.Coach = &metrics
	}

	if scores, err := s.store.GetCoachScores(ctx, testID); err != nil {
		s.log.WithError(err).Warn("Failed to load coach scores")
	} else if scores != nil {
		report.Scores = &scoresResponse{
			Performance:  scores.PerformanceScore,
			Privacy:      scores.PrivacyScore,
			BestPractice: scores.BestPracticeScore,
		}
	}

	if contentRecords, err := s.pagexraySource.Records(ctx, testID); err != nil {
		s.log.WithError(err).Warn("Failed to load pagexray records")
	} else if len(contentRecords) > 0 {
		breakdown := flatrecord.AggregateContent(contentRecords)
		report.Pagexray = &breakdown
	}

	writeJSON(w, http.StatusOK, report)
}

// fillRecordMeta fills report attributes that only the time-series
// records carry: the page URL, the run timestamp when the run table had
// no row, and the media asset pointers.
func fillRecordMeta(report *testReport, records []flatrecord.Record) {
	var media mediaResponse

	for i := range records {
		rec := &records[i]

		if report.URL == "" {
			report.URL = rec.Tag(flatrecord.TagURL)
		}

		if report.Timestamp.IsZero() {
			report.Timestamp = rec.Time
		}

		if rec.Measurement != flatrecord.MeasurementMediaAssets {
			continue
		}

		switch rec.Field {
		case flatrecord.FieldVideoPath:
			media.VideoPath = rec.String()
		case flatrecord.FieldLCPScreenshot:
			media.LCPScreenshotPath = rec.String()
		}
	}

	if media.VideoPath != "" || media.LCPScreenshotPath != "" {
		report.Media = &media
	}
}

// handlePerformance returns the canonical performance metric map for a
// run. Absent metrics are present with a null value.
func (s *server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")

	records, err := s.tsdb.PerformanceRecords(r.Context(), testID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load performance records")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading performance records"})

		return
	}

	writeJSON(w, http.StatusOK, flatrecord.SelectPerformance(records))
}

// handleCoach returns the categorized advice report for a run.
func (s *server) handleCoach(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")

	records, err := s.coachSource.Records(r.Context(), testID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load coach records")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading coach records"})

		return
	}

	writeJSON(w, http.StatusOK,
		flatrecord.AggregateCoach(s.log, s.classifier, records))
}

// handleCoachScores returns the per-run category scores.
func (s *server) handleCoachScores(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")

	scores, err := s.store.GetCoachScores(r.Context(), testID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load coach scores")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading coach scores"})

		return
	}

	if scores == nil {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"scores not found"})

		return
	}

	writeJSON(w, http.StatusOK, scoresResponse{
		Performance:  scores.PerformanceScore,
		Privacy:      scores.PrivacyScore,
		BestPractice: scores.BestPracticeScore,
	})
}

// handlePagexray returns the per-content-type breakdown for a run.
func (s *server) handlePagexray(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")

	records, err := s.pagexraySource.Records(r.Context(), testID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load pagexray records")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading pagexray records"})

		return
	}

	writeJSON(w, http.StatusOK, flatrecord.AggregateContent(records))
}

// handleCompare returns the performance metric maps of several runs
// side by side, keyed by test id.
func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("testIds")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"testIds query parameter is required"})

		return
	}

	testIDs := make([]string, 0, 4)

	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			testIDs = append(testIDs, id)
		}
	}

	if len(testIDs) == 0 {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"testIds query parameter is required"})

		return
	}

	records, err := s.tsdb.CompareRecords(r.Context(), testIDs)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load comparison records")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"loading comparison records"})

		return
	}

	// Partition the combined result per run, then project each
	// partition onto the canonical metric map.
	byTest := make(map[string][]flatrecord.Record, len(testIDs))
	for _, rec := range records {
		id := rec.Tag(flatrecord.TagTestID)
		byTest[id] = append(byTest[id], rec)
	}

	comparison := make(map[string]map[string]*float64, len(testIDs))
	for _, id := range testIDs {
		comparison[id] = flatrecord.SelectPerformance(byTest[id])
	}

	writeJSON(w, http.StatusOK, comparison)
}
