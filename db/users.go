package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// UpsertUser records a successful provider login. New users get publicID;
// existing users keep theirs. The provider tokens and session token are
// refreshed and the user is marked active, unless the account is banned, in
// which case the stored row is returned untouched.
func (s *Store) UpsertUser(ctx context.Context, u User, publicID uint) (*User, error) {
	var dbUser User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", u.Email).First(&dbUser).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			dbUser = u
			dbUser.UserID = publicID
			dbUser.IsActive = true
			return tx.Create(&dbUser).Error
		case err != nil:
			return err
		}
		if dbUser.Banned {
			return nil
		}
		return tx.Model(&dbUser).Updates(map[string]any{
			"username":      u.Username,
			"access_token":  u.AccessToken,
			"refresh_token": u.RefreshToken,
			"session_token": u.SessionToken,
			"is_active":     true,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return &dbUser, nil
}

func (s *Store) UserBySession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var u User
	if err := s.db.WithContext(ctx).Where("session_token = ?", token).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// EndSession clears the session token and marks the user inactive.
func (s *Store) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&User{}).
		Where("session_token = ?", token).
		Updates(map[string]any{"session_token": "", "is_active": false}).Error
}

func (s *Store) GetUser(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *Store) ListActiveUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing active users: %w", err)
	}
	return users, nil
}

// SetBanned also ends any live session when banning.
func (s *Store) SetBanned(ctx context.Context, id uint, banned bool) error {
	updates := map[string]any{"banned": banned}
	if banned {
		updates["session_token"] = ""
		updates["is_active"] = false
	}
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser permanently removes the user and everything they own.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, id).Error; err != nil {
			return notFound(err)
		}
		habitIDs := tx.Unscoped().Model(&Habit{}).Select("id").Where("user_id = ?", id)
		for _, child := range []any{&RecurrenceRule{}, &Completion{}} {
			if err := tx.Where("habit_id IN (?)", habitIDs).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM habit_areas WHERE habit_id IN (?)", habitIDs).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&Habit{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&Area{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&u).Error
	})
}
