package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username     string  `json:"username"`
	Email        string  `json:"email" gorm:"unique"`
	UserID       uint    `json:"user_id" gorm:"uniqueIndex"`
	AccessToken  string  `json:"-"`
	RefreshToken string  `json:"-"`
	SessionToken string  `json:"-" gorm:"index"`
	IsActive     bool    `json:"is_active"`
	Banned       bool    `json:"banned"`
	Habits       []Habit `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Areas        []Area  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Habit rows are keyed by a uuid so ids stay opaque to clients. UserID points
// at User.ID, not the public User.UserID.
type Habit struct {
	ID               string           `json:"id" gorm:"primaryKey;size:36"`
	UserID           uint             `json:"-" gorm:"not null;index"`
	Name             string           `json:"name" gorm:"not null"`
	Icon             string           `json:"icon"`
	NotificationTime string           `json:"notificationTime"`
	IsNotificationOn bool             `json:"isNotificationOn"`
	Rules            []RecurrenceRule `json:"frequency" gorm:"constraint:OnDelete:CASCADE"`
	Completions      []Completion     `json:"completedDays" gorm:"constraint:OnDelete:CASCADE"`
	Areas            []Area           `json:"areas" gorm:"many2many:habit_areas;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt   `json:"-" gorm:"index"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

type RecurrenceRule struct {
	ID          uint                        `json:"-" gorm:"primaryKey"`
	HabitID     string                      `json:"-" gorm:"size:36;index"`
	Position    int                         `json:"-"`
	Kind        string                      `json:"type"`
	DaysOfWeek  datatypes.JSONSlice[string] `json:"days"`
	Occurrences int                         `json:"number"`
}

// Completion dates are stored as YYYY-MM-DD strings; (habit_id, date) is unique.
type Completion struct {
	ID      uint   `json:"-" gorm:"primaryKey"`
	HabitID string `json:"-" gorm:"size:36;uniqueIndex:idx_completion_day"`
	Date    string `json:"date" gorm:"size:10;uniqueIndex:idx_completion_day"`
}

type Area struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	UserID    uint           `json:"-" gorm:"not null;index"`
	Name      string         `json:"name" gorm:"not null"`
	Icon      string         `json:"icon"`
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (a *Area) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table in migration order.
func Models() []any {
	return []any{&User{}, &Area{}, &Habit{}, &RecurrenceRule{}, &Completion{}}
}
