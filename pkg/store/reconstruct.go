package store

import (
	"context"

	"github.com/pagepulse/pagepulse/pkg/flatrecord"
)

// Reconstruction re-expands relational rows into the flat record shape
// the time-series store produces for the same logical data: one record
// per persisted field, sharing one tag set, so downstream transformers
// never need to know which store served them.

// CoachRecords re-expands coach advice rows. Each row yields three
// records with the score/title/description field discriminators.
func CoachRecords(rows []CoachAdvice) []flatrecord.Record {
	records := make([]flatrecord.Record, 0, len(rows)*3)

	for _, row := range rows {
		tags := map[string]string{
			flatrecord.TagTestID:   row.TestID,
			flatrecord.TagURL:      row.URL,
			flatrecord.TagGroup:    row.GroupName,
			flatrecord.TagCategory: row.CategoryName,
			flatrecord.TagAdviceID: row.AdviceID,
		}

		records = append(records,
			flatrecord.Record{
				Measurement: flatrecord.MeasurementCoachAdvice,
				Field:       flatrecord.FieldScore,
				Value:       row.Score,
				Time:        row.CreatedAt,
				Tags:        tags,
			},
			flatrecord.Record{
				Measurement: flatrecord.MeasurementCoachAdvice,
				Field:       flatrecord.FieldTitle,
				Value:       row.Title,
				Time:        row.CreatedAt,
				Tags:        tags,
			},
			flatrecord.Record{
				Measurement: flatrecord.MeasurementCoachAdvice,
				Field:       flatrecord.FieldDescription,
				Value:       row.Description,
				Time:        row.CreatedAt,
				Tags:        tags,
			},
		)
	}

	return records
}

// PagexrayRecords re-expands content breakdown rows. Each row yields
// three records with the requests/contentSize/transferSize field
// discriminators.
func PagexrayRecords(rows []PagexrayRow) []flatrecord.Record {
	records := make([]flatrecord.Record, 0, len(rows)*3)

	for _, row := range rows {
		tags := map[string]string{
			flatrecord.TagTestID:      row.TestID,
			flatrecord.TagURL:         row.URL,
			flatrecord.TagGroup:       row.GroupName,
			flatrecord.TagBrowser:     row.Browser,
			flatrecord.TagContentType: row.ContentType,
		}

		records = append(records,
			flatrecord.Record{
				Measurement: flatrecord.MeasurementPagexray,
				Field:       flatrecord.FieldRequests,
				Value:       row.Requests,
				Time:        row.CreatedAt,
				Tags:        tags,
			},
			flatrecord.Record{
				Measurement: flatrecord.MeasurementPagexray,
				Field:       flatrecord.FieldContentSize,
				Value:       row.ContentSize,
				Time:        row.CreatedAt,
				Tags:        tags,
			},
			flatrecord.Record{
				Measurement: flatrecord.MeasurementPagexray,
				Field:       flatrecord.FieldTransferSize,
				Value:       row.TransferSize,
				Time:        row.CreatedAt,
				Tags:        tags,
			},
		)
	}

	return records
}

// coachSource adapts the store's coach advice rows to flatrecord.Source.
type coachSource struct {
	store Store
}

// NewCoachSource returns a flat record source reading reconstructed
// coach advice records from the relational store.
func NewCoachSource(s Store) flatrecord.Source {
	return &coachSource{store: s}
}

func (s *coachSource) Records(
	ctx context.Context, testID string,
) ([]flatrecord.Record, error) {
	rows, err := s.store.ListAdviceByTestID(ctx, testID)
	if err != nil {
		return nil, err
	}

	return CoachRecords(rows), nil
}

// pagexraySource adapts the store's content breakdown rows to
// flatrecord.Source.
type pagexraySource struct {
	store Store
}

// NewPagexraySource returns a flat record source reading reconstructed
// pagexray records from the relational store.
func NewPagexraySource(s Store) flatrecord.Source {
	return &pagexraySource{store: s}
}

func (s *pagexraySource) Records(
	ctx context.Context, testID string,
) ([]flatrecord.Record, error) {
	rows, err := s.store.ListPagexrayByTestID(ctx, testID)
	if err != nil {
		return nil, err
	}

	return PagexrayRecords(rows), nil
}
