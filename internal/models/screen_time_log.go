package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateKeyLayout is the canonical day key for screen-time rows.
const DateKeyLayout = "2006-01-02"

// ActivityBreakdown maps an activity-type label to minutes spent.
type ActivityBreakdown map[string]int

// ScreenTimeLog accumulates usage for one user on one calendar day.
// Created lazily on the first report of the day; counters only ever
// increase, via SQL-side arithmetic so concurrent device reports cannot
// lose updates.
type ScreenTimeLog struct {
	ID                uuid.UUID                              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID                              `gorm:"type:uuid;not null;uniqueIndex:idx_screen_time_logs_user_date" json:"user_id"`
	Date              string                                 `gorm:"size:10;not null;uniqueIndex:idx_screen_time_logs_user_date" json:"date"`
	TotalMinutes      int                                    `gorm:"not null;default:0" json:"total_minutes"`
	SessionCount      int                                    `gorm:"not null;default:0" json:"session_count"`
	ActivityBreakdown datatypes.JSONType[ActivityBreakdown]  `json:"activity_breakdown"`
	CreatedAt         time.Time                              `json:"created_at"`
	UpdatedAt         time.Time                              `json:"updated_at"`
	User              FamilyMember                           `gorm:"foreignKey:UserID" json:"-"`
}

func (stl *ScreenTimeLog) BeforeCreate(tx *gorm.DB) error {
	if stl.ID == uuid.Nil {
		stl.ID = uuid.New()
	}
	return nil
}
