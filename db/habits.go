package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-stacker-backend/internal/habit"
)

// ErrNotFound is returned when an owner-scoped lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Store runs every query scoped to an explicit owner id.
type Store struct {
	db *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func withHabitAssociations(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Rules", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Preload("Completions", func(tx *gorm.DB) *gorm.DB { return tx.Order("date") }).
		Preload("Areas")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) ListHabits(ctx context.Context, userID uint) ([]Habit, error) {
	var habits []Habit
	err := withHabitAssociations(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&habits).Error
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	return habits, nil
}

func (s *Store) GetHabit(ctx context.Context, userID uint, id string) (*Habit, error) {
	var h Habit
	err := withHabitAssociations(s.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		First(&h).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// CreateHabit inserts h with its rules and completions. h.Areas must name
// areas the user already owns.
func (s *Store) CreateHabit(ctx context.Context, userID uint, h *Habit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		areas, err := ownedAreas(tx, userID, h.Areas)
		if err != nil {
			return err
		}
		h.UserID = userID
		h.Areas = areas
		numberRules(h.Rules)
		if err := tx.Omit("Areas.*").Create(h).Error; err != nil {
			return fmt.Errorf("creating habit: %w", err)
		}
		return nil
	})
}

// UpdateHabit replaces every editable field, including the rule, completion
// and area sets.
func (s *Store) UpdateHabit(ctx context.Context, userID uint, id string, in *Habit) (*Habit, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Habit
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error; err != nil {
			return notFound(err)
		}
		areas, err := ownedAreas(tx, userID, in.Areas)
		if err != nil {
			return err
		}

		err = tx.Model(&existing).
			Select("Name", "Icon", "NotificationTime", "IsNotificationOn").
			Updates(Habit{
				Name:             in.Name,
				Icon:             in.Icon,
				NotificationTime: in.NotificationTime,
				IsNotificationOn: in.IsNotificationOn,
			}).Error
		if err != nil {
			return fmt.Errorf("updating habit: %w", err)
		}

		if err := tx.Where("habit_id = ?", id).Delete(&RecurrenceRule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", id).Delete(&Completion{}).Error; err != nil {
			return err
		}
		numberRules(in.Rules)
		for i := range in.Rules {
			in.Rules[i].ID = 0
			in.Rules[i].HabitID = id
		}
		if len(in.Rules) > 0 {
			if err := tx.Create(&in.Rules).Error; err != nil {
				return err
			}
		}
		for i := range in.Completions {
			in.Completions[i].ID = 0
			in.Completions[i].HabitID = id
		}
		if len(in.Completions) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&in.Completions).Error; err != nil {
				return err
			}
		}
		assoc := tx.Model(&existing).Association("Areas")
		if len(areas) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(areas)
	})
	if err != nil {
		return nil, err
	}
	return s.GetHabit(ctx, userID, id)
}

func (s *Store) DeleteHabit(ctx context.Context, userID uint, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Habit{})
	if result.Error != nil {
		return fmt.Errorf("deleting habit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCompletion marks or unmarks one day. Marking an already completed day is
// a no-op.
func (s *Store) SetCompletion(ctx context.Context, userID uint, id string, day habit.Date, done bool) (*Habit, error) {
	if _, err := s.GetHabit(ctx, userID, id); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)
	date := day.String()
	var err error
	if done {
		err = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Completion{HabitID: id, Date: date}).Error
	} else {
		err = tx.Where("habit_id = ? AND date = ?", id, date).Delete(&Completion{}).Error
	}
	if err != nil {
		return nil, fmt.Errorf("setting completion: %w", err)
	}
	return s.GetHabit(ctx, userID, id)
}

func numberRules(rules []RecurrenceRule) {
	for i := range rules {
		rules[i].Position = i
	}
}

func ownedAreas(tx *gorm.DB, userID uint, refs []Area) ([]Area, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(refs))
	for _, a := range refs {
		ids = append(ids, a.ID)
	}
	var areas []Area
	if err := tx.Where("id IN ? AND user_id = ?", ids, userID).Find(&areas).Error; err != nil {
		return nil, err
	}
	if len(areas) != len(uniqueStrings(ids)) {
		return nil, fmt.Errorf("%w: unknown area", habit.ErrInvalidInput)
	}
	return areas, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// ToCore converts a stored habit to the evaluator's shape.
func ToCore(h *Habit) (*habit.Habit, error) {
	out := &habit.Habit{
		ID:      h.ID,
		Name:    h.Name,
		OwnerID: strconv.FormatUint(uint64(h.UserID), 10),
	}
	for _, r := range h.Rules {
		rule := habit.Rule{Kind: habit.RuleKind(r.Kind), OccurrencesPerPeriod: r.Occurrences}
		for _, d := range r.DaysOfWeek {
			rule.DaysOfWeek = append(rule.DaysOfWeek, habit.Weekday(d))
		}
		out.Rules = append(out.Rules, rule)
	}
	for _, c := range h.Completions {
		d, err := habit.ParseDate(c.Date)
		if err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		out.Completions = append(out.Completions, habit.Completion{Date: d})
	}
	out.Completions = habit.NormalizeCompletions(out.Completions)
	return out, nil
}

// FromCore copies rules and completions from a validated core habit.
func FromCore(h *habit.Habit) *Habit {
	out := &Habit{ID: h.ID, Name: h.Name}
	for i, r := range h.Rules {
		days := make([]string, len(r.DaysOfWeek))
		for j, d := range r.DaysOfWeek {
			days[j] = string(d)
		}
		out.Rules = append(out.Rules, RecurrenceRule{
			Position:    i,
			Kind:        string(r.Kind),
			DaysOfWeek:  datatypes.JSONSlice[string](days),
			Occurrences: r.OccurrencesPerPeriod,
		})
	}
	for _, c := range habit.NormalizeCompletions(h.Completions) {
		out.Completions = append(out.Completions, Completion{Date: c.Date.String()})
	}
	return out
}
