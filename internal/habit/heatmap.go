package habit

import "slices"

type HeatmapCell struct {
	Date  Date `json:"date"`
	Count int  `json:"count"`
}

// Heatmap bins completions by date, oldest first. Callers that skip
// NormalizeCompletions can see counts above one.
func Heatmap(h *Habit) []HeatmapCell {
	if h == nil || len(h.Completions) == 0 {
		return []HeatmapCell{}
	}
	counts := make(map[Date]int, len(h.Completions))
	for _, c := range h.Completions {
		counts[c.Date]++
	}
	cells := make([]HeatmapCell, 0, len(counts))
	for d, n := range counts {
		cells = append(cells, HeatmapCell{Date: d, Count: n})
	}
	slices.SortFunc(cells, func(a, b HeatmapCell) int { return a.Date.Compare(b.Date) })
	return cells
}
