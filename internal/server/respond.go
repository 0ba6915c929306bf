package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/habit"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps domain errors onto status codes. Unknown errors are logged and
// reported as a bare 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, habit.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	default:
		s.log.Error("Request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, habit.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: %v", habit.ErrInvalidInput, err)
	}
	return nil
}

// dateParam parses the named query parameter. When it is empty and allowToday
// is set, today is taken in the IANA zone named by the tz parameter, or the
// server's zone if tz is absent.
func (s *Server) dateParam(r *http.Request, name string, allowToday bool) (habit.Date, error) {
	q := r.URL.Query()
	raw := q.Get(name)
	if raw != "" {
		return habit.ParseDate(raw)
	}
	if !allowToday {
		return habit.Date{}, fmt.Errorf("%w: %s is required", habit.ErrInvalidInput, name)
	}
	now := s.now()
	if tz := q.Get("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return habit.Date{}, fmt.Errorf("%w: unknown time zone %q", habit.ErrInvalidInput, tz)
		}
		now = now.In(loc)
	}
	return habit.DateOf(now), nil
}
