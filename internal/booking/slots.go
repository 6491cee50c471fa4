package booking

import (
	"sort"
	"time"
)

const (
	clockLayout = "15:04"
	dayLayout   = "2006-01-02"
)

// clockMinutes converts "HH:MM" into minutes after midnight.
func clockMinutes(s string) (int, bool) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func parseDay(s string, loc *time.Location) (time.Time, bool) {
	d, err := time.ParseInLocation(dayLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// sortedSlots drops malformed and duplicate entries and orders the rest.
func sortedSlots(slots []string, exclude map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := clockMinutes(s); !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		if _, skip := exclude[s]; skip {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := clockMinutes(out[i])
		b, _ := clockMinutes(out[j])
		return a < b
	})
	return out
}

// normalizeWindow makes both slot lists ordered and disjoint. A slot reported
// in both lists is treated as occupied.
func normalizeWindow(w AvailabilityWindow) AvailabilityWindow {
	occupied := sortedSlots(w.OccupiedSlots, nil)
	taken := make(map[string]struct{}, len(occupied))
	for _, s := range occupied {
		taken[s] = struct{}{}
	}
	w.OccupiedSlots = occupied
	w.AvailableSlots = sortedSlots(w.AvailableSlots, taken)
	return w
}

func emptyWindow(spotID, day string) AvailabilityWindow {
	return AvailabilityWindow{SpotID: spotID, Day: day, AvailableSlots: []string{}, OccupiedSlots: []string{}}
}

// EndTimeOptions returns the available slots strictly after start and
// strictly before the first occupied slot that follows start.
func EndTimeOptions(w AvailabilityWindow, start string) []string {
	startMin, ok := clockMinutes(start)
	if !ok {
		return []string{}
	}

	limit := -1
	for _, s := range w.OccupiedSlots {
		m, ok := clockMinutes(s)
		if !ok || m <= startMin {
			continue
		}
		if limit < 0 || m < limit {
			limit = m
		}
	}

	options := []string{}
	for _, s := range sortedSlots(w.AvailableSlots, nil) {
		m, _ := clockMinutes(s)
		if m <= startMin {
			continue
		}
		if limit >= 0 && m >= limit {
			break
		}
		options = append(options, s)
	}
	return options
}

func contains(slots []string, s string) bool {
	for _, v := range slots {
		if v == s {
			return true
		}
	}
	return false
}
