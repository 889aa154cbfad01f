package dto

import "github.com/google/uuid"

type CreateControlsRequest struct {
	ChildID  uuid.UUID `json:"child_id"`
	ParentID uuid.UUID `json:"parent_id"`

	ScreenTimeEnabled   bool    `json:"screen_time_enabled"`
	DailyLimitMinutes   int     `json:"daily_limit_minutes"`
	WeekdayLimitMinutes *int    `json:"weekday_limit_minutes,omitempty"`
	WeekendLimitMinutes *int    `json:"weekend_limit_minutes,omitempty"`
	QuietHoursStart     *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd       *string `json:"quiet_hours_end,omitempty"`

	ContentFilterLevel string   `json:"content_filter_level"`
	BlockedKeywords    []string `json:"blocked_keywords,omitempty"`
	BlockedDomains     []string `json:"blocked_domains,omitempty"`
	AllowedDomains     []string `json:"allowed_domains,omitempty"`

	NotifyOnFlagged       bool `json:"notify_on_flagged"`
	NotifyOnLimitExceeded bool `json:"notify_on_limit_exceeded"`
}

type UpdateControlsRequest struct {
	ParentID uuid.UUID `json:"parent_id"`

	ScreenTimeEnabled   *bool   `json:"screen_time_enabled,omitempty"`
	DailyLimitMinutes   *int    `json:"daily_limit_minutes,omitempty"`
	WeekdayLimitMinutes *int    `json:"weekday_limit_minutes,omitempty"`
	WeekendLimitMinutes *int    `json:"weekend_limit_minutes,omitempty"`
	QuietHoursStart     *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd       *string `json:"quiet_hours_end,omitempty"`

	ContentFilterLevel *string  `json:"content_filter_level,omitempty"`
	BlockedKeywords    []string `json:"blocked_keywords,omitempty"`
	BlockedDomains     []string `json:"blocked_domains,omitempty"`
	AllowedDomains     []string `json:"allowed_domains,omitempty"`

	NotifyOnFlagged       *bool `json:"notify_on_flagged,omitempty"`
	NotifyOnLimitExceeded *bool `json:"notify_on_limit_exceeded,omitempty"`
}

type KeywordRequest struct {
	ParentID uuid.UUID `json:"parent_id"`
	Keyword  string    `json:"keyword"`
}

type DomainRequest struct {
	ParentID uuid.UUID `json:"parent_id"`
	Domain   string    `json:"domain"`
}
