package slots

import (
	"slices"
	"time"
)

// Window is a half-open [Start, End) clock range within a working day,
// expressed as offsets from midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

const (
	Layout   = "15:04"
	Step     = 30 * time.Minute
	Duration = 30 * time.Minute
)

// WorkingWindows are the clinic hours: mornings until the lunch break and
// afternoons until the last 18:00 booking.
var WorkingWindows = []Window{
	{Start: 8 * time.Hour, End: 13 * time.Hour},
	{Start: 14 * time.Hour, End: 18*time.Hour + 30*time.Minute},
}

var all = Generate(WorkingWindows, Duration, Step)

// All returns the closed set of bookable start times in day order.
func All() []string {
	return slices.Clone(all)
}

func IsValid(slot string) bool {
	return slices.Contains(all, slot)
}

// Generate returns slot start times (HH:MM) inside each window where a
// booking of length duration fits, advancing by step.
func Generate(windows []Window, duration, step time.Duration) []string {
	if duration <= 0 || step <= 0 {
		return nil
	}
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	var out []string
	for _, w := range windows {
		if w.End <= w.Start {
			continue
		}
		for t := w.Start; t+duration <= w.End; t += step {
			out = append(out, day.Add(t).Format(Layout))
		}
	}
	return out
}

// Offset converts a slot into its offset from midnight.
func Offset(slot string) (time.Duration, bool) {
	if !IsValid(slot) {
		return 0, false
	}
	t, err := time.Parse(Layout, slot)
	if err != nil {
		return 0, false
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
}
