package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/habit"
)

type areaRef struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
}

type habitRequest struct {
	Name             string             `json:"name"`
	Icon             string             `json:"icon"`
	NotificationTime string             `json:"notificationTime"`
	IsNotificationOn bool               `json:"isNotificationOn"`
	Frequency        []habit.Rule       `json:"frequency"`
	CompletedDays    []habit.Completion `json:"completedDays"`
	Areas            []areaRef          `json:"areas"`
}

// toRow validates the request through the core model and builds the row to
// persist.
func (req habitRequest) toRow() (*db.Habit, error) {
	core := &habit.Habit{
		Name:        req.Name,
		Rules:       req.Frequency,
		Completions: habit.NormalizeCompletions(req.CompletedDays),
	}
	if err := core.Validate(); err != nil {
		return nil, err
	}
	row := db.FromCore(core)
	row.Icon = req.Icon
	row.NotificationTime = req.NotificationTime
	row.IsNotificationOn = req.IsNotificationOn
	for _, a := range req.Areas {
		id := a.ID
		if id == "" {
			id = a.LegacyID
		}
		row.Areas = append(row.Areas, db.Area{ID: id})
	}
	return row, nil
}

func (s *Server) getHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.store.ListHabits(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"habits": habits})
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	h, err := s.store.GetHabit(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"habit": h})
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	row, err := req.toRow()
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.store.CreateHabit(r.Context(), currentUser(r).ID, row); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"habit": row})
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	row, err := req.toRow()
	if err != nil {
		s.fail(w, err)
		return
	}
	updated, err := s.store.UpdateHabit(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), row)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Habit has been updated successfully",
		"habit":   updated,
	})
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteHabit(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markCompletion(w http.ResponseWriter, r *http.Request) {
	s.setCompletion(w, r, true)
}

func (s *Server) unmarkCompletion(w http.ResponseWriter, r *http.Request) {
	s.setCompletion(w, r, false)
}

func (s *Server) setCompletion(w http.ResponseWriter, r *http.Request, done bool) {
	day, err := habit.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		s.fail(w, err)
		return
	}
	h, err := s.store.SetCompletion(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), day, done)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"habit": h})
}

type habitStats struct {
	HabitID       string              `json:"habitId"`
	Date          habit.Date          `json:"date"`
	Due           bool                `json:"due"`
	Summary       habit.Summary       `json:"summary"`
	CurrentStreak int                 `json:"currentStreak"`
	LongestStreak int                 `json:"longestStreak"`
	Consistency   float64             `json:"consistency"`
	Total         int                 `json:"total"`
	Heatmap       []habit.HeatmapCell `json:"heatmap"`
}

func (s *Server) getHabitStats(w http.ResponseWriter, r *http.Request) {
	day, err := s.dateParam(r, "date", true)
	if err != nil {
		s.fail(w, err)
		return
	}
	row, err := s.store.GetHabit(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	h, err := db.ToCore(row)
	if err != nil {
		s.fail(w, err)
		return
	}

	due, err := habit.IsDue(h, day)
	if err != nil {
		s.fail(w, err)
		return
	}
	summary, err := habit.DailySummary(h, day)
	if err != nil {
		s.fail(w, err)
		return
	}
	streak, err := habit.CurrentStreak(h, day)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habitStats{
		HabitID:       h.ID,
		Date:          day,
		Due:           due,
		Summary:       summary,
		CurrentStreak: streak,
		LongestStreak: habit.LongestStreak(h),
		Consistency:   habit.Consistency(h, day),
		Total:         len(h.Completions),
		Heatmap:       habit.Heatmap(h),
	})
}

func (s *Server) coreHabits(r *http.Request, userID uint) ([]*habit.Habit, error) {
	rows, err := s.store.ListHabits(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	out := make([]*habit.Habit, 0, len(rows))
	for i := range rows {
		h, err := db.ToCore(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *Server) getHabitInsights(w http.ResponseWriter, r *http.Request) {
	habits, err := s.coreHabits(r, currentUser(r).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(habits) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"insights": []string{},
			"message":  "No habits found for this user",
		})
		return
	}

	insights := []string{}
	for _, h := range habits {
		lines, err := habit.GenerateInsights(h)
		if err != nil {
			s.fail(w, err)
			return
		}
		insights = append(insights, lines...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

type dailyDetails struct {
	Date habit.Date `json:"date"`
	habit.Totals
}

func (s *Server) getDailyHabitDetails(w http.ResponseWriter, r *http.Request) {
	s.writeDailyDetails(w, r, currentUser(r).ID)
}

func (s *Server) writeDailyDetails(w http.ResponseWriter, r *http.Request, userID uint) {
	day, err := s.dateParam(r, "date", false)
	if err != nil {
		s.fail(w, err)
		return
	}
	habits, err := s.coreHabits(r, userID)
	if err != nil {
		s.fail(w, err)
		return
	}
	totals, err := habit.RangeSummary(habits, day)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyDetails{Date: day, Totals: totals})
}
