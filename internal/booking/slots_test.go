package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndTimeOptions(t *testing.T) {
	testCases := []struct {
		name      string
		available []string
		occupied  []string
		start     string
		expected  []string
	}{
		{
			name:      "stops before the first occupied slot",
			available: []string{"08:00", "09:00", "10:00", "11:00"},
			occupied:  []string{"12:00"},
			start:     "09:00",
			expected:  []string{"10:00", "11:00"},
		},
		{
			name:      "occupied slot in between cuts the range",
			available: []string{"08:00", "09:00", "11:00", "12:00"},
			occupied:  []string{"10:00"},
			start:     "08:00",
			expected:  []string{"09:00"},
		},
		{
			name:      "occupied slots before start are ignored",
			available: []string{"10:00", "11:00", "12:00"},
			occupied:  []string{"08:00", "09:00"},
			start:     "10:00",
			expected:  []string{"11:00", "12:00"},
		},
		{
			name:      "no later slot",
			available: []string{"08:00", "09:00"},
			occupied:  []string{},
			start:     "09:00",
			expected:  []string{},
		},
		{
			name:      "unordered input",
			available: []string{"11:00", "09:00", "10:00"},
			occupied:  []string{"13:00", "12:00"},
			start:     "09:00",
			expected:  []string{"10:00", "11:00"},
		},
		{
			name:      "malformed start",
			available: []string{"08:00", "09:00"},
			start:     "9am",
			expected:  []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := AvailabilityWindow{AvailableSlots: tc.available, OccupiedSlots: tc.occupied}
			assert.Equal(t, tc.expected, EndTimeOptions(w, tc.start))
		})
	}
}

func TestNormalizeWindow(t *testing.T) {
	w := normalizeWindow(AvailabilityWindow{
		AvailableSlots: []string{"10:00", "08:00", "09:00", "08:00", "bogus"},
		OccupiedSlots:  []string{"12:00", "09:00"},
	})

	assert.Equal(t, []string{"08:00", "10:00"}, w.AvailableSlots)
	assert.Equal(t, []string{"09:00", "12:00"}, w.OccupiedSlots)
}
