package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	FilterLevelOff      = "off"
	FilterLevelModerate = "moderate"
	FilterLevelStrict   = "strict"
)

// filterLevelRank orders levels by restrictiveness for the multi-parent
// merge (strict > moderate > off).
var filterLevelRank = map[string]int{
	FilterLevelOff:      0,
	FilterLevelModerate: 1,
	FilterLevelStrict:   2,
}

func IsValidFilterLevel(level string) bool {
	_, ok := filterLevelRank[level]
	return ok
}

// StricterFilterLevel returns the more restrictive of two levels.
func StricterFilterLevel(a, b string) string {
	if filterLevelRank[b] > filterLevelRank[a] {
		return b
	}
	return a
}

// ParentalControls is one parent's safety configuration for one child.
// A child may be governed by several parents; readers merge the rows
// field-by-field to the most restrictive combination.
type ParentalControls struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChildID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_parental_controls_pair" json:"child_id"`
	ParentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_parental_controls_pair" json:"parent_id"`

	// No DB default on the bool columns: GORM omits zero-valued fields
	// that carry a default tag on insert, so an explicit false would be
	// stored as true.
	ScreenTimeEnabled   bool `gorm:"not null" json:"screen_time_enabled"`
	DailyLimitMinutes   int  `gorm:"not null;default:120" json:"daily_limit_minutes"`
	WeekdayLimitMinutes *int `json:"weekday_limit_minutes,omitempty"`
	WeekendLimitMinutes *int `json:"weekend_limit_minutes,omitempty"`

	// Time-of-day as "HH:MM"; end before start means the window wraps
	// past midnight.
	QuietHoursStart *string `gorm:"size:5" json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *string `gorm:"size:5" json:"quiet_hours_end,omitempty"`

	ContentFilterLevel string                      `gorm:"size:10;not null;default:'moderate'" json:"content_filter_level"`
	BlockedKeywords    datatypes.JSONSlice[string] `json:"blocked_keywords"`
	BlockedDomains     datatypes.JSONSlice[string] `json:"blocked_domains"`
	AllowedDomains     datatypes.JSONSlice[string] `json:"allowed_domains"`

	NotifyOnFlagged       bool `gorm:"not null" json:"notify_on_flagged"`
	NotifyOnLimitExceeded bool `gorm:"not null" json:"notify_on_limit_exceeded"`

	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Child     FamilyMember `gorm:"foreignKey:ChildID" json:"-"`
	Parent    FamilyMember `gorm:"foreignKey:ParentID" json:"-"`
}

func (pc *ParentalControls) BeforeCreate(tx *gorm.DB) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	return nil
}
