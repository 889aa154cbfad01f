package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ControlsService manages per-child parental control configuration and
// computes the effective (most restrictive) merge when several parents
// configure the same child independently.
type ControlsService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewControlsService(db *gorm.DB, audit *AuditService) *ControlsService {
	return &ControlsService{db: db, audit: audit}
}

// QuietWindow is a time-of-day window; End before Start means the
// window wraps past midnight. Times are "HH:MM".
type QuietWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`

	startMin int
	endMin   int
}

// Contains reports whether the minute-of-day falls inside the window.
// The window is inclusive of start, exclusive of end.
func (w QuietWindow) Contains(minuteOfDay int) bool {
	if w.startMin == w.endMin {
		return false
	}
	if w.startMin < w.endMin {
		return minuteOfDay >= w.startMin && minuteOfDay < w.endMin
	}
	return minuteOfDay >= w.startMin || minuteOfDay < w.endMin
}

// EffectiveControls is the merged configuration governing one child.
type EffectiveControls struct {
	ChildID    uuid.UUID `json:"child_id"`
	Configured bool      `json:"configured"`

	ScreenTimeEnabled   bool `json:"screen_time_enabled"`
	DailyLimitMinutes   int  `json:"daily_limit_minutes"`
	WeekdayLimitMinutes *int `json:"weekday_limit_minutes,omitempty"`
	WeekendLimitMinutes *int `json:"weekend_limit_minutes,omitempty"`

	QuietWindows []QuietWindow `json:"quiet_windows,omitempty"`

	ContentFilterLevel string   `json:"content_filter_level"`
	BlockedKeywords    []string `json:"blocked_keywords,omitempty"`
	BlockedDomains     []string `json:"blocked_domains,omitempty"`
	AllowedDomains     []string `json:"allowed_domains,omitempty"`

	NotifyOnFlagged       bool `json:"notify_on_flagged"`
	NotifyOnLimitExceeded bool `json:"notify_on_limit_exceeded"`
}

// InQuietHours reports whether t falls inside any configured window.
func (e *EffectiveControls) InQuietHours(t time.Time) bool {
	minute := t.Hour()*60 + t.Minute()
	for _, w := range e.QuietWindows {
		if w.Contains(minute) {
			return true
		}
	}
	return false
}

// ControlsInput carries the full configuration on create. Optional
// fields are pointers; nil means unset.
type ControlsInput struct {
	ScreenTimeEnabled   bool
	DailyLimitMinutes   int
	WeekdayLimitMinutes *int
	WeekendLimitMinutes *int
	QuietHoursStart     *string
	QuietHoursEnd       *string
	ContentFilterLevel  string
	BlockedKeywords     []string
	BlockedDomains      []string
	AllowedDomains      []string

	NotifyOnFlagged       bool
	NotifyOnLimitExceeded bool
}

// ControlsPatch updates a subset of fields; nil leaves a field alone.
type ControlsPatch struct {
	ScreenTimeEnabled   *bool
	DailyLimitMinutes   *int
	WeekdayLimitMinutes *int
	WeekendLimitMinutes *int
	QuietHoursStart     *string
	QuietHoursEnd       *string
	ContentFilterLevel  *string
	BlockedKeywords     []string
	BlockedDomains      []string
	AllowedDomains      []string

	NotifyOnFlagged       *bool
	NotifyOnLimitExceeded *bool
}

// CreateControls creates the (child, parent) configuration row. Only a
// guardian may create controls; duplicates are a conflict, not an
// overwrite.
func (s *ControlsService) CreateControls(childID, parentID uuid.UUID, in ControlsInput, createdBy *uuid.UUID) (*models.ParentalControls, error) {
	child, err := s.memberByID(childID)
	if err != nil {
		return nil, err
	}
	parent, err := s.memberByID(parentID)
	if err != nil {
		return nil, err
	}
	if !models.IsGuardianRole(parent.Role) {
		return nil, apperr.Forbidden("member %s is not a guardian", parentID)
	}

	row := models.ParentalControls{
		ID:                    uuid.New(),
		ChildID:               child.ID,
		ParentID:              parent.ID,
		ScreenTimeEnabled:     in.ScreenTimeEnabled,
		DailyLimitMinutes:     in.DailyLimitMinutes,
		WeekdayLimitMinutes:   in.WeekdayLimitMinutes,
		WeekendLimitMinutes:   in.WeekendLimitMinutes,
		QuietHoursStart:       in.QuietHoursStart,
		QuietHoursEnd:         in.QuietHoursEnd,
		ContentFilterLevel:    in.ContentFilterLevel,
		BlockedKeywords:       normalizeList(in.BlockedKeywords),
		BlockedDomains:        normalizeDomainList(in.BlockedDomains),
		AllowedDomains:        normalizeDomainList(in.AllowedDomains),
		NotifyOnFlagged:       in.NotifyOnFlagged,
		NotifyOnLimitExceeded: in.NotifyOnLimitExceeded,
	}
	if err := validateControls(&row); err != nil {
		return nil, err
	}

	var existing models.ParentalControls
	err = s.db.Where("child_id = ? AND parent_id = ?", childID, parentID).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("controls already exist for this parent-child pair")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Storage(err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return apperr.Storage(err)
		}
		_, err := s.audit.LogEventTx(tx, AuditEvent{
			ActorID:      createdBy,
			Action:       "create_parental_controls",
			ResourceType: "parental_controls",
			ResourceID:   row.ID.String(),
			Details:      map[string]any{"child_id": childID.String(), "parent_id": parentID.String()},
			Success:      true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateControls patches the (child, parent) row.
func (s *ControlsService) UpdateControls(childID, parentID uuid.UUID, patch ControlsPatch, updatedBy *uuid.UUID) (*models.ParentalControls, error) {
	var row models.ParentalControls
	err := s.db.Where("child_id = ? AND parent_id = ?", childID, parentID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no controls for child %s by parent %s", childID, parentID)
		}
		return nil, apperr.Storage(err)
	}

	changed := map[string]any{}
	if patch.ScreenTimeEnabled != nil {
		row.ScreenTimeEnabled = *patch.ScreenTimeEnabled
		changed["screen_time_enabled"] = *patch.ScreenTimeEnabled
	}
	if patch.DailyLimitMinutes != nil {
		row.DailyLimitMinutes = *patch.DailyLimitMinutes
		changed["daily_limit_minutes"] = *patch.DailyLimitMinutes
	}
	if patch.WeekdayLimitMinutes != nil {
		row.WeekdayLimitMinutes = patch.WeekdayLimitMinutes
		changed["weekday_limit_minutes"] = *patch.WeekdayLimitMinutes
	}
	if patch.WeekendLimitMinutes != nil {
		row.WeekendLimitMinutes = patch.WeekendLimitMinutes
		changed["weekend_limit_minutes"] = *patch.WeekendLimitMinutes
	}
	if patch.QuietHoursStart != nil {
		row.QuietHoursStart = patch.QuietHoursStart
		changed["quiet_hours_start"] = *patch.QuietHoursStart
	}
	if patch.QuietHoursEnd != nil {
		row.QuietHoursEnd = patch.QuietHoursEnd
		changed["quiet_hours_end"] = *patch.QuietHoursEnd
	}
	if patch.ContentFilterLevel != nil {
		row.ContentFilterLevel = *patch.ContentFilterLevel
		changed["content_filter_level"] = *patch.ContentFilterLevel
	}
	if patch.BlockedKeywords != nil {
		row.BlockedKeywords = normalizeList(patch.BlockedKeywords)
		changed["blocked_keywords"] = []string(row.BlockedKeywords)
	}
	if patch.BlockedDomains != nil {
		row.BlockedDomains = normalizeDomainList(patch.BlockedDomains)
		changed["blocked_domains"] = []string(row.BlockedDomains)
	}
	if patch.AllowedDomains != nil {
		row.AllowedDomains = normalizeDomainList(patch.AllowedDomains)
		changed["allowed_domains"] = []string(row.AllowedDomains)
	}
	if patch.NotifyOnFlagged != nil {
		row.NotifyOnFlagged = *patch.NotifyOnFlagged
		changed["notify_on_flagged"] = *patch.NotifyOnFlagged
	}
	if patch.NotifyOnLimitExceeded != nil {
		row.NotifyOnLimitExceeded = *patch.NotifyOnLimitExceeded
		changed["notify_on_limit_exceeded"] = *patch.NotifyOnLimitExceeded
	}

	if err := validateControls(&row); err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return &row, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return apperr.Storage(err)
		}
		_, err := s.audit.LogEventTx(tx, AuditEvent{
			ActorID:      updatedBy,
			Action:       "update_parental_controls",
			ResourceType: "parental_controls",
			ResourceID:   row.ID.String(),
			Details:      changed,
			Success:      true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetControls returns all raw configuration rows for a child.
func (s *ControlsService) GetControls(childID uuid.UUID) ([]models.ParentalControls, error) {
	if _, err := s.memberByID(childID); err != nil {
		return nil, err
	}
	var rows []models.ParentalControls
	if err := s.db.Where("child_id = ?", childID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return rows, nil
}

// GetEffectiveControls merges all rows governing the child into the
// most restrictive combination: minimum limits, strictest filter level,
// union of blocklists and quiet windows, intersection of allowlists.
// No single parent's looser setting can override another's stricter one.
func (s *ControlsService) GetEffectiveControls(childID uuid.UUID) (*EffectiveControls, error) {
	rows, err := s.GetControls(childID)
	if err != nil {
		return nil, err
	}

	eff := &EffectiveControls{
		ChildID:            childID,
		ContentFilterLevel: models.FilterLevelOff,
	}
	if len(rows) == 0 {
		return eff, nil
	}
	eff.Configured = true

	blockedKeywords := map[string]bool{}
	blockedDomains := map[string]bool{}
	var allowedDomains map[string]bool

	for _, row := range rows {
		if row.ScreenTimeEnabled {
			eff.ScreenTimeEnabled = true
			if eff.DailyLimitMinutes == 0 || row.DailyLimitMinutes < eff.DailyLimitMinutes {
				eff.DailyLimitMinutes = row.DailyLimitMinutes
			}
			eff.WeekdayLimitMinutes = minOptional(eff.WeekdayLimitMinutes, row.WeekdayLimitMinutes)
			eff.WeekendLimitMinutes = minOptional(eff.WeekendLimitMinutes, row.WeekendLimitMinutes)
		}

		eff.ContentFilterLevel = models.StricterFilterLevel(eff.ContentFilterLevel, row.ContentFilterLevel)

		for _, kw := range row.BlockedKeywords {
			blockedKeywords[kw] = true
		}
		for _, d := range row.BlockedDomains {
			blockedDomains[d] = true
		}
		if len(row.AllowedDomains) > 0 {
			next := map[string]bool{}
			for _, d := range row.AllowedDomains {
				if allowedDomains == nil || allowedDomains[d] {
					next[d] = true
				}
			}
			allowedDomains = next
		}

		if w, ok := quietWindowOf(&row); ok {
			eff.QuietWindows = append(eff.QuietWindows, w)
		}

		eff.NotifyOnFlagged = eff.NotifyOnFlagged || row.NotifyOnFlagged
		eff.NotifyOnLimitExceeded = eff.NotifyOnLimitExceeded || row.NotifyOnLimitExceeded
	}

	eff.BlockedKeywords = sortedKeys(blockedKeywords)
	eff.BlockedDomains = sortedKeys(blockedDomains)
	eff.AllowedDomains = sortedKeys(allowedDomains)
	return eff, nil
}

func (s *ControlsService) memberByID(id uuid.UUID) (*models.FamilyMember, error) {
	var member models.FamilyMember
	if err := s.db.Where("id = ? AND is_active = ?", id, true).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("family member %s not found", id)
		}
		return nil, apperr.Storage(err)
	}
	return &member, nil
}

func validateControls(row *models.ParentalControls) error {
	var bad []string

	if row.DailyLimitMinutes <= 0 {
		bad = append(bad, "daily_limit_minutes")
	}
	if row.WeekdayLimitMinutes != nil && *row.WeekdayLimitMinutes <= 0 {
		bad = append(bad, "weekday_limit_minutes")
	}
	if row.WeekendLimitMinutes != nil && *row.WeekendLimitMinutes <= 0 {
		bad = append(bad, "weekend_limit_minutes")
	}
	if !models.IsValidFilterLevel(row.ContentFilterLevel) {
		bad = append(bad, "content_filter_level")
	}
	if (row.QuietHoursStart == nil) != (row.QuietHoursEnd == nil) {
		bad = append(bad, "quiet_hours_start", "quiet_hours_end")
	} else if row.QuietHoursStart != nil {
		if _, err := parseClock(*row.QuietHoursStart); err != nil {
			bad = append(bad, "quiet_hours_start")
		}
		if _, err := parseClock(*row.QuietHoursEnd); err != nil {
			bad = append(bad, "quiet_hours_end")
		}
	}

	if len(bad) > 0 {
		return apperr.Validation(strings.Join(bad, ","), "invalid parental controls configuration")
	}
	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func quietWindowOf(row *models.ParentalControls) (QuietWindow, bool) {
	if row.QuietHoursStart == nil || row.QuietHoursEnd == nil {
		return QuietWindow{}, false
	}
	start, err1 := parseClock(*row.QuietHoursStart)
	end, err2 := parseClock(*row.QuietHoursEnd)
	if err1 != nil || err2 != nil {
		return QuietWindow{}, false
	}
	return QuietWindow{
		Start:    *row.QuietHoursStart,
		End:      *row.QuietHoursEnd,
		startMin: start,
		endMin:   end,
	}, true
}

func minOptional(current, candidate *int) *int {
	if candidate == nil {
		return current
	}
	if current == nil || *candidate < *current {
		v := *candidate
		return &v
	}
	return current
}

func normalizeList(values []string) datatypes.JSONSlice[string] {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return datatypes.NewJSONSlice(out)
}

func normalizeDomainList(values []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, normalizeDomain(v))
	}
	return normalizeList(out)
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(domain, "www.")
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
