package habit

import "slices"

// Summary is the per-habit tally for one day. Each field is 0 or 1.
type Summary struct {
	Expected  int `json:"expected"`
	Completed int `json:"completed"`
	Missed    int `json:"missed"`
}

// Totals aggregates Summary over several habits. Missed is TotalExpected
// minus TotalCompleted and is never floored.
type Totals struct {
	TotalExpected  int `json:"totalExpected"`
	TotalCompleted int `json:"totalCompleted"`
	Missed         int `json:"missed"`
}

// IsDue reports whether the habit is scheduled on d. A habit with no rules
// is treated as daily.
func IsDue(h *Habit, d Date) (bool, error) {
	if err := checkHabit(h); err != nil {
		return false, err
	}
	if len(h.Rules) == 0 {
		return true, nil
	}
	wd := d.Weekday()
	for _, r := range h.Rules {
		if slices.Contains(r.DaysOfWeek, wd) {
			return true, nil
		}
	}
	return false, nil
}

// DailySummary counts a completion on d even when d is an off day; Missed is
// only set when the habit was due and not completed.
func DailySummary(h *Habit, d Date) (Summary, error) {
	due, err := IsDue(h, d)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	if due {
		s.Expected = 1
	}
	if h.CompletedOn(d) {
		s.Completed = 1
	}
	if s.Expected == 1 && s.Completed == 0 {
		s.Missed = 1
	}
	return s, nil
}

// RangeSummary tallies the habits due on d. Habits not due on d contribute
// nothing, including any off-day completion.
func RangeSummary(hs []*Habit, d Date) (Totals, error) {
	var t Totals
	for _, h := range hs {
		s, err := DailySummary(h, d)
		if err != nil {
			return Totals{}, err
		}
		if s.Expected == 0 {
			continue
		}
		t.TotalExpected += s.Expected
		t.TotalCompleted += s.Completed
	}
	t.Missed = t.TotalExpected - t.TotalCompleted
	return t, nil
}
