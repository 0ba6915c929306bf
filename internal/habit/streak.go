package habit

// CurrentStreak counts consecutive completed days ending at asOf. It is zero
// when asOf itself is not completed.
func CurrentStreak(h *Habit, asOf Date) (int, error) {
	if err := checkHabit(h); err != nil {
		return 0, err
	}
	done := h.completedSet()
	streak := 0
	for d := asOf; ; d = d.AddDays(-1) {
		if _, ok := done[d]; !ok {
			break
		}
		streak++
	}
	return streak, nil
}

// LongestStreak is the longest run of consecutive completed days anywhere in
// the history.
func LongestStreak(h *Habit) int {
	if h == nil {
		return 0
	}
	cs := NormalizeCompletions(h.Completions)
	longest, run := 0, 0
	for i, c := range cs {
		if i > 0 && cs[i-1].Date.AddDays(1) == c.Date {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// Consistency is the current streak as a percentage of all completions.
func Consistency(h *Habit, asOf Date) float64 {
	if h == nil {
		return 0
	}
	total := len(h.completedSet())
	if total == 0 {
		return 0
	}
	streak, _ := CurrentStreak(h, asOf)
	return float64(streak) / float64(total) * 100
}
