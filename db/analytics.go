package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type HabitCount struct {
	HabitName string `json:"habitName"`
	Count     int64  `json:"count"`
}

type Analytics struct {
	TotalUsers  int64        `json:"totalUsers"`
	ActiveUsers int64        `json:"activeUsers"`
	TotalHabits int64        `json:"totalHabits"`
	TopHabits   []HabitCount `json:"topHabits"`
}

// Analytics summarizes the whole install; TopHabits is the three most common
// habit names.
func (s *Store) Analytics(ctx context.Context) (Analytics, error) {
	var a Analytics
	tx := s.db.WithContext(ctx)
	if err := tx.Model(&User{}).Count(&a.TotalUsers).Error; err != nil {
		return a, fmt.Errorf("counting users: %w", err)
	}
	if err := tx.Model(&User{}).Where("is_active = ?", true).Count(&a.ActiveUsers).Error; err != nil {
		return a, fmt.Errorf("counting active users: %w", err)
	}
	if err := tx.Model(&Habit{}).Count(&a.TotalHabits).Error; err != nil {
		return a, fmt.Errorf("counting habits: %w", err)
	}
	a.TopHabits = []HabitCount{}
	err := tx.Model(&Habit{}).
		Select("name AS habit_name, COUNT(*) AS count").
		Group("name").
		Order("count DESC, name").
		Limit(3).
		Scan(&a.TopHabits).Error
	if err != nil {
		return a, fmt.Errorf("ranking habits: %w", err)
	}
	return a, nil
}

type PurgeResult struct {
	Habits int64 `json:"habits"`
	Areas  int64 `json:"areas"`
}

// PurgeSoftDeleted permanently removes soft deleted habits (with their rules,
// completions and area links) and soft deleted areas.
func (s *Store) PurgeSoftDeleted(ctx context.Context) (PurgeResult, error) {
	var res PurgeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Unscoped().Model(&Habit{}).Select("id").Where("deleted_at IS NOT NULL")
		for _, child := range []any{&RecurrenceRule{}, &Completion{}} {
			if err := tx.Where("habit_id IN (?)", deleted).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM habit_areas WHERE habit_id IN (?)", deleted).Error; err != nil {
			return err
		}
		deletedAreas := tx.Unscoped().Model(&Area{}).Select("id").Where("deleted_at IS NOT NULL")
		if err := tx.Exec("DELETE FROM habit_areas WHERE area_id IN (?)", deletedAreas).Error; err != nil {
			return err
		}

		result := tx.Unscoped().Where("deleted_at IS NOT NULL").Delete(&Habit{})
		if result.Error != nil {
			return fmt.Errorf("purging habits: %w", result.Error)
		}
		res.Habits = result.RowsAffected

		result = tx.Unscoped().Where("deleted_at IS NOT NULL").Delete(&Area{})
		if result.Error != nil {
			return fmt.Errorf("purging areas: %w", result.Error)
		}
		res.Areas = result.RowsAffected
		return nil
	})
	return res, err
}
