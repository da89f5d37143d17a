package flatrecord_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/pkg/flatrecord"
)

func f(v float64) *float64 { return &v }

func TestResolve_PriorityOrder(t *testing.T) {
	cases := []struct {
		name       string
		candidates []flatrecord.Candidate
		want       float64
		ok         bool
	}{
		{
			name: "median wins over everything",
			candidates: []flatrecord.Candidate{
				{Name: "max", Value: f(40)},
				{Name: "median", Value: f(10)},
				{Name: "mean", Value: f(20)},
				{Name: "value", Value: f(30)},
			},
			want: 10,
			ok:   true,
		},
		{
			name: "mean wins when median absent",
			candidates: []flatrecord.Candidate{
				{Name: "mean", Value: f(10)},
				{Name: "value", Value: f(20)},
			},
			want: 10,
			ok:   true,
		},
		{
			name: "value wins when only value and max present",
			candidates: []flatrecord.Candidate{
				{Name: "max", Value: f(99)},
				{Name: "value", Value: f(20)},
			},
			want: 20,
			ok:   true,
		},
		{
			name: "max alone is accepted",
			candidates: []flatrecord.Candidate{
				{Name: "max", Value: f(5)},
			},
			want: 5,
			ok:   true,
		},
		{
			name: "nil values count as absent",
			candidates: []flatrecord.Candidate{
				{Name: "median", Value: nil},
				{Name: "mean", Value: f(7)},
			},
			want: 7,
			ok:   true,
		},
		{
			name:       "no candidates",
			candidates: nil,
			ok:         false,
		},
		{
			name: "unrecognized fields are ignored",
			candidates: []flatrecord.Candidate{
				{Name: "p99", Value: f(123)},
			},
			ok: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := flatrecord.Resolve(tc.candidates)
			require.Equal(t, tc.ok, ok)

			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestValueByPriority(t *testing.T) {
	records := []flatrecord.Record{
		{Measurement: "timing", Field: "max", Value: 40.0},
		{Measurement: "timing", Field: "mean", Value: 20.0},
		{Measurement: "other", Field: "median", Value: 1.0},
	}

	got, ok := flatrecord.ValueByPriority(records, "timing")
	require.True(t, ok)
	assert.Equal(t, 20.0, got)

	_, ok = flatrecord.ValueByPriority(records, "missing")
	assert.False(t, ok)
}

func TestRecord_Float(t *testing.T) {
	cases := []struct {
		value any
		want  float64
		ok    bool
	}{
		{3.5, 3.5, true},
		{int64(7), 7, true},
		{int(2), 2, true},
		{"12.5", 12.5, true},
		{"not a number", 0, false},
		{nil, 0, false},
	}

	for _, tc := range cases {
		r := flatrecord.Record{Value: tc.value}

		got, ok := r.Float()
		assert.Equal(t, tc.ok, ok)

		if tc.ok {
			assert.Equal(t, tc.want, got)
		}
	}
}
