package flatrecord

import (
	"github.com/sirupsen/logrus"

	"github.com/pagepulse/pagepulse/pkg/coach"
)

// AdviceDetail is one aggregated advice item.
type AdviceDetail struct {
	Title  string `json:"title"`
	Advice string `json:"advice"`
	Score  int    `json:"score"`
}

// CategoryReport holds the aggregated view of one category.
type CategoryReport struct {
	Score      int                     `json:"score"`
	AdviceList map[string]AdviceDetail `json:"adviceList"`
}

// CoachMetrics is the consumer-facing coach aggregation, one report per
// category.
type CoachMetrics struct {
	Performance  CategoryReport `json:"performance"`
	Privacy      CategoryReport `json:"privacy"`
	BestPractice CategoryReport `json:"bestpractice"`
}

func newCoachMetrics() CoachMetrics {
	return CoachMetrics{
		Performance:  CategoryReport{AdviceList: make(map[string]AdviceDetail)},
		Privacy:      CategoryReport{AdviceList: make(map[string]AdviceDetail)},
		BestPractice: CategoryReport{AdviceList: make(map[string]AdviceDetail)},
	}
}

func (m *CoachMetrics) category(c coach.Category) *CategoryReport {
	switch c {
	case coach.CategoryPerformance:
		return &m.Performance
	case coach.CategoryPrivacy:
		return &m.Privacy
	case coach.CategoryBestPractice:
		return &m.BestPractice
	default:
		return nil
	}
}

// adviceAccum collects the per-field records of one advice id.
type adviceAccum struct {
	score       int
	title       string
	description string
}

// AggregateCoach groups coach_advice records by advice id, resolves the
// score/title/description fields by their discriminator, and classifies
// every id into its category. The three category names appear in the
// stream as pseudo-advice entries carrying the category-level score;
// they populate the per-category score and are skipped as items. Ids
// the classifier does not know are dropped with a warning.
func AggregateCoach(
	log logrus.FieldLogger,
	classifier *coach.Classifier,
	records []Record,
) CoachMetrics {
	metrics := newCoachMetrics()

	accums := make(map[string]*adviceAccum, len(records)/3+1)
	order := make([]string, 0, len(records)/3+1)

	for _, r := range records {
		if r.Measurement != MeasurementCoachAdvice {
			continue
		}

		adviceID := r.Tag(TagAdviceID)
		if adviceID == "" {
			continue
		}

		acc, ok := accums[adviceID]
		if !ok {
			acc = &adviceAccum{}
			accums[adviceID] = acc
			order = append(order, adviceID)
		}

		switch r.Field {
		case FieldScore:
			if v, ok := r.Float(); ok {
				acc.score = int(v)
			}
		case FieldTitle:
			if s := r.String(); s != "" {
				acc.title = s
			}
		case FieldDescription:
			acc.description = r.String()
		}
	}

	for _, adviceID := range order {
		acc := accums[adviceID]

		// A category's own score travels as a pseudo-advice entry.
		if coach.IsCategory(adviceID) {
			if report := metrics.category(coach.Category(adviceID)); report != nil {
				report.Score = acc.score
			}

			continue
		}

		category, ok := classifier.Classify(adviceID)
		if !ok {
			log.WithField("advice_id", adviceID).
				Warn("No category for advice id, dropping")

			continue
		}

		title := acc.title
		if title == "" {
			title = adviceID
		}

		metrics.category(category).AdviceList[adviceID] = AdviceDetail{
			Title:  title,
			Advice: acc.description,
			Score:  acc.score,
		}
	}

	return metrics
}
