// Package habit holds the schedule, streak and insight computations for a
// single habit snapshot. Nothing here does I/O; every function is safe to call
// concurrently on shared, unmodified input.
package habit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidInput is returned for malformed dates, unknown rule kinds and nil
// habit references.
var ErrInvalidInput = errors.New("invalid input")

// Weekday is the two-letter abbreviation stored in recurrence rules.
type Weekday string

const (
	Mo Weekday = "Mo"
	Tu Weekday = "Tu"
	We Weekday = "We"
	Th Weekday = "Th"
	Fr Weekday = "Fr"
	Sa Weekday = "Sa"
	Su Weekday = "Su"
)

var weekdays = [...]Weekday{Su, Mo, Tu, We, Th, Fr, Sa}

// AllWeekdays lists the abbreviations Monday first.
var AllWeekdays = []Weekday{Mo, Tu, We, Th, Fr, Sa, Su}

func WeekdayOf(t time.Time) Weekday {
	return weekdays[t.Weekday()]
}

func (w Weekday) Valid() bool {
	return slices.Contains(AllWeekdays, w)
}

type RuleKind string

const (
	Daily  RuleKind = "daily"
	Weekly RuleKind = "weekly"
)

// Rule is one entry of a habit's recurrence. OccurrencesPerPeriod is carried
// for display only; due-ness is decided by DaysOfWeek alone.
type Rule struct {
	Kind                 RuleKind  `json:"type"`
	DaysOfWeek           []Weekday `json:"days"`
	OccurrencesPerPeriod int       `json:"number"`
}

func (r Rule) Validate() error {
	switch r.Kind {
	case Daily, Weekly:
	default:
		return fmt.Errorf("%w: unknown rule kind %q", ErrInvalidInput, r.Kind)
	}
	for _, d := range r.DaysOfWeek {
		if !d.Valid() {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, d)
		}
	}
	if r.OccurrencesPerPeriod < 0 {
		return fmt.Errorf("%w: negative occurrences", ErrInvalidInput)
	}
	return nil
}

// Completion records that the habit was done on Date.
type Completion struct {
	Date Date `json:"date"`
}

// UnmarshalJSON accepts both "2024-06-03" and {"date": "2024-06-03"}; older
// clients sent either shape.
func (c *Completion) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return c.Date.UnmarshalJSON(b)
	}
	var obj struct {
		Date *Date `json:"date"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("%w: completion: %v", ErrInvalidInput, err)
	}
	if obj.Date == nil {
		return fmt.Errorf("%w: completion without date", ErrInvalidInput)
	}
	c.Date = *obj.Date
	return nil
}

// Habit is the snapshot the evaluator works on.
type Habit struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	OwnerID     string       `json:"ownerId"`
	Rules       []Rule       `json:"frequency"`
	Completions []Completion `json:"completedDays"`
}

// NormalizeCompletions drops duplicate dates, keeping the first occurrence,
// and returns the result sorted ascending.
func NormalizeCompletions(cs []Completion) []Completion {
	seen := make(map[Date]struct{}, len(cs))
	out := make([]Completion, 0, len(cs))
	for _, c := range cs {
		if _, ok := seen[c.Date]; ok {
			continue
		}
		seen[c.Date] = struct{}{}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Completion) int { return a.Date.Compare(b.Date) })
	return out
}

// Validate checks the habit is usable by the evaluator.
func (h *Habit) Validate() error {
	if h == nil {
		return fmt.Errorf("%w: nil habit", ErrInvalidInput)
	}
	if h.Name == "" {
		return fmt.Errorf("%w: habit name is required", ErrInvalidInput)
	}
	for _, r := range h.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Habit) completedSet() map[Date]struct{} {
	set := make(map[Date]struct{}, len(h.Completions))
	for _, c := range h.Completions {
		set[c.Date] = struct{}{}
	}
	return set
}

// CompletedOn reports whether d is in the completion set.
func (h *Habit) CompletedOn(d Date) bool {
	for _, c := range h.Completions {
		if c.Date == d {
			return true
		}
	}
	return false
}

// scheduledDays is the union of all rule days in first-seen order.
func (h *Habit) scheduledDays() []Weekday {
	var out []Weekday
	for _, r := range h.Rules {
		for _, d := range r.DaysOfWeek {
			if !slices.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	return out
}

func checkHabit(h *Habit) error {
	if h == nil {
		return fmt.Errorf("%w: nil habit", ErrInvalidInput)
	}
	return nil
}
