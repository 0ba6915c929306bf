package habit

import (
	"fmt"
	"strings"
)

// GenerateInsights returns display sentences for h in a fixed order: overall
// progress, one line per rule, then the missed weekdays if any.
//
// Missed weekdays compare weekday labels, not calendar dates: a Monday rule is
// satisfied by a completion on any Monday in the history.
// TODO: switch missed-day reporting to calendar dates once product signs off
// on the changed wording.
func GenerateInsights(h *Habit) ([]string, error) {
	if err := checkHabit(h); err != nil {
		return nil, err
	}

	scheduled := 0
	for _, r := range h.Rules {
		scheduled += len(r.DaysOfWeek)
	}
	done := h.completedSet()
	completed := len(done)

	var out []string
	switch {
	case completed == 0:
		out = append(out, fmt.Sprintf("Don't forget! Try to complete your %s habit. You got this!", h.Name))
	case completed >= scheduled:
		out = append(out, fmt.Sprintf("Amazing! You've completed %s consistently on all its scheduled days. Keep it up!", h.Name))
	default:
		out = append(out, fmt.Sprintf("Great job! You've completed %s on %d of its scheduled days. Keep pushing for consistency!", h.Name, completed))
	}

	for _, r := range h.Rules {
		out = append(out, fmt.Sprintf("You have set %s to repeat on %s. Make sure to stay consistent!", h.Name, joinDays(r.DaysOfWeek)))
	}

	doneDays := make(map[Weekday]struct{}, 7)
	for d := range done {
		doneDays[d.Weekday()] = struct{}{}
	}
	var missed []Weekday
	for _, wd := range h.scheduledDays() {
		if _, ok := doneDays[wd]; !ok {
			missed = append(missed, wd)
		}
	}
	if len(missed) > 0 {
		out = append(out, fmt.Sprintf("You missed %s on the following scheduled days: %s. Try to catch up!", h.Name, joinDays(missed)))
	}
	return out, nil
}

func joinDays(days []Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}
