package flatrecord

// statFieldPriority is the fixed order in which candidate statistical
// fields are consulted when a metric may be expressed in several forms.
var statFieldPriority = [...]string{"median", "mean", FieldValue, "max"}

// Candidate is one (field name, value) pair offered to Resolve. A nil
// Value marks the field as absent in the source.
type Candidate struct {
	Name  string
	Value *float64
}

// Resolve picks the best available value from the candidates under the
// priority median > mean > value > max. The candidates' own ordering is
// irrelevant. Returns false when no candidate carries a value.
func Resolve(candidates []Candidate) (float64, bool) {
	for _, field := range statFieldPriority {
		for _, c := range candidates {
			if c.Name == field && c.Value != nil {
				return *c.Value, true
			}
		}
	}

	return 0, false
}

// ValueByPriority applies the same priority order over a record stream:
// the first record of the given measurement whose field is the highest
// ranked one present wins.
func ValueByPriority(records []Record, measurement string) (float64, bool) {
	for _, field := range statFieldPriority {
		for _, r := range records {
			if r.Measurement != measurement || r.Field != field {
				continue
			}

			if v, ok := r.Float(); ok {
				return v, true
			}
		}
	}

	return 0, false
}
