package services

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activityKeyPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// ScreenTimeStatus is the tracker's answer after recording usage.
type ScreenTimeStatus struct {
	UserID            uuid.UUID                `json:"user_id"`
	Date              string                   `json:"date"`
	UsedMinutes       int                      `json:"used_minutes"`
	LimitMinutes      int                      `json:"limit_minutes"`
	RemainingMinutes  int                      `json:"remaining_minutes"`
	PercentageUsed    float64                  `json:"percentage_used"`
	LimitExceeded     bool                     `json:"limit_exceeded"`
	InQuietHours      bool                     `json:"in_quiet_hours"`
	NotifyParent      bool                     `json:"notify_parent"`
	SessionCount      int                      `json:"session_count"`
	ActivityBreakdown models.ActivityBreakdown `json:"activity_breakdown"`
}

// ScreenTimeService accumulates daily usage per member. Increments run
// as SQL-side arithmetic inside an upsert so concurrent reports from
// multiple devices never lose updates.
type ScreenTimeService struct {
	db       *gorm.DB
	controls *ControlsService
	audit    *AuditService
	now      func() time.Time
}

func NewScreenTimeService(db *gorm.DB, controls *ControlsService, audit *AuditService) *ScreenTimeService {
	return &ScreenTimeService{db: db, controls: controls, audit: audit, now: time.Now}
}

// RecordUsage atomically adds minutes to the member's tally for the
// given day and evaluates it against the effective limits. Crossing the
// limit writes a mandatory audit entry; if that write fails the whole
// recording fails.
func (s *ScreenTimeService) RecordUsage(userID uuid.UUID, day time.Time, minutes int, activityType string) (*ScreenTimeStatus, error) {
	if minutes <= 0 {
		return nil, apperr.Validation("minutes", "minutes must be positive, got %d", minutes)
	}

	eff, err := s.controls.GetEffectiveControls(userID)
	if err != nil {
		return nil, err
	}

	dateKey := day.Format(models.DateKeyLayout)
	activity := normalizeActivity(activityType)
	limit := s.applicableLimit(eff, day)

	var row models.ScreenTimeLog
	var crossed bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		insert := models.ScreenTimeLog{
			ID:           uuid.New(),
			UserID:       userID,
			Date:         dateKey,
			TotalMinutes: minutes,
			SessionCount: 1,
		}
		insert.ActivityBreakdown = datatypes.NewJSONType(models.ActivityBreakdown{activity: minutes})

		assignments := map[string]any{
			"total_minutes":      gorm.Expr("screen_time_logs.total_minutes + ?", minutes),
			"session_count":      gorm.Expr("screen_time_logs.session_count + 1"),
			"activity_breakdown": s.breakdownMergeExpr(activity, minutes),
			"updated_at":         s.now(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&insert).Error
		if err != nil {
			return apperr.Storage(err)
		}

		if err := tx.Where("user_id = ? AND date = ?", userID, dateKey).First(&row).Error; err != nil {
			return apperr.Storage(err)
		}

		if limit > 0 {
			prev := row.TotalMinutes - minutes
			crossed = prev <= limit && row.TotalMinutes > limit
		}
		if crossed {
			_, err := s.audit.LogEventTx(tx, AuditEvent{
				ActorID:      &userID,
				Action:       "screen_time_limit_exceeded",
				ResourceType: "screen_time_log",
				ResourceID:   row.ID.String(),
				Details: map[string]any{
					"date":          dateKey,
					"limit_minutes": limit,
					"used_minutes":  row.TotalMinutes,
				},
				Success: true,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.statusFor(&row, eff, limit, crossed), nil
}

// GetDayLog returns the tally for one (user, day); a day with no
// reports yields a zero-valued status against the current limits.
func (s *ScreenTimeService) GetDayLog(userID uuid.UUID, day time.Time) (*ScreenTimeStatus, error) {
	eff, err := s.controls.GetEffectiveControls(userID)
	if err != nil {
		return nil, err
	}
	limit := s.applicableLimit(eff, day)

	var row models.ScreenTimeLog
	err = s.db.Where("user_id = ? AND date = ?", userID, day.Format(models.DateKeyLayout)).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Storage(err)
		}
		row = models.ScreenTimeLog{UserID: userID, Date: day.Format(models.DateKeyLayout)}
	}
	return s.statusFor(&row, eff, limit, false), nil
}

// GetHistory returns the recorded days for a member, newest first.
func (s *ScreenTimeService) GetHistory(userID uuid.UUID, days int) ([]models.ScreenTimeLog, error) {
	if _, err := s.controls.memberByID(userID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	since := s.now().AddDate(0, 0, -days).Format(models.DateKeyLayout)

	var rows []models.ScreenTimeLog
	err := s.db.Where("user_id = ? AND date >= ?", userID, since).
		Order("date DESC").Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return rows, nil
}

func (s *ScreenTimeService) statusFor(row *models.ScreenTimeLog, eff *EffectiveControls, limit int, crossed bool) *ScreenTimeStatus {
	status := &ScreenTimeStatus{
		UserID:            row.UserID,
		Date:              row.Date,
		UsedMinutes:       row.TotalMinutes,
		LimitMinutes:      limit,
		SessionCount:      row.SessionCount,
		ActivityBreakdown: row.ActivityBreakdown.Data(),
		InQuietHours:      eff.InQuietHours(s.now()),
	}
	if limit > 0 {
		status.LimitExceeded = row.TotalMinutes > limit
		status.PercentageUsed = float64(row.TotalMinutes) / float64(limit) * 100
		if remaining := limit - row.TotalMinutes; remaining > 0 {
			status.RemainingMinutes = remaining
		}
	}
	status.NotifyParent = crossed && eff.NotifyOnLimitExceeded
	return status
}

// applicableLimit picks the limit for the day: weekend limit on
// Saturday and Sunday when set, weekday limit on other days when set,
// daily limit otherwise. Zero means unlimited.
func (s *ScreenTimeService) applicableLimit(eff *EffectiveControls, day time.Time) int {
	if !eff.Configured || !eff.ScreenTimeEnabled {
		return 0
	}
	weekday := day.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		if eff.WeekendLimitMinutes != nil {
			return *eff.WeekendLimitMinutes
		}
	} else if eff.WeekdayLimitMinutes != nil {
		return *eff.WeekdayLimitMinutes
	}
	return eff.DailyLimitMinutes
}

// breakdownMergeExpr adds minutes to one key of the JSON breakdown in
// SQL so the merge is atomic alongside the counter increments.
func (s *ScreenTimeService) breakdownMergeExpr(activity string, minutes int) any {
	switch s.db.Dialector.Name() {
	case "postgres":
		return gorm.Expr(
			`jsonb_set(COALESCE(screen_time_logs.activity_breakdown, '{}'::jsonb), ?::text[], (COALESCE(screen_time_logs.activity_breakdown->>?, '0')::int + ?)::text::jsonb)`,
			"{"+activity+"}", activity, minutes,
		)
	default:
		return gorm.Expr(
			`json_set(COALESCE(screen_time_logs.activity_breakdown, '{}'), '$.' || ?, COALESCE(json_extract(screen_time_logs.activity_breakdown, '$.' || ?), 0) + ?)`,
			activity, activity, minutes,
		)
	}
}

func normalizeActivity(activityType string) string {
	key := strings.ToLower(strings.TrimSpace(activityType))
	key = activityKeyPattern.ReplaceAllString(key, "_")
	key = strings.Trim(key, "_")
	if key == "" {
		return "other"
	}
	return key
}
