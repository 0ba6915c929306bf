package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

func (s *Store) ListAreas(ctx context.Context, userID uint) ([]Area, error) {
	var areas []Area
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&areas).Error; err != nil {
		return nil, fmt.Errorf("listing areas: %w", err)
	}
	return areas, nil
}

func (s *Store) CreateArea(ctx context.Context, userID uint, a *Area) error {
	a.UserID = userID
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("creating area: %w", err)
	}
	return nil
}

// DeleteArea removes the area from every habit tagged with it. Habits left
// with no area are deleted too; their ids are returned.
func (s *Store) DeleteArea(ctx context.Context, userID uint, areaID string) ([]string, error) {
	var removed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var area Area
		if err := tx.Where("id = ? AND user_id = ?", areaID, userID).First(&area).Error; err != nil {
			return notFound(err)
		}

		var tagged []Habit
		err := tx.Preload("Areas").
			Joins("JOIN habit_areas ON habit_areas.habit_id = habits.id").
			Where("habit_areas.area_id = ? AND habits.user_id = ?", areaID, userID).
			Find(&tagged).Error
		if err != nil {
			return fmt.Errorf("finding habits in area: %w", err)
		}

		for i := range tagged {
			h := &tagged[i]
			// Association.Delete also drops the area from h.Areas.
			before := len(h.Areas)
			if err := tx.Model(h).Association("Areas").Delete(&area); err != nil {
				return err
			}
			if before <= 1 {
				if err := tx.Delete(h).Error; err != nil {
					return err
				}
				removed = append(removed, h.ID)
			}
		}

		if err := tx.Delete(&area).Error; err != nil {
			return fmt.Errorf("deleting area: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
