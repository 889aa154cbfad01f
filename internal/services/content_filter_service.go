package services

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Default keyword tiers. Matching is word-boundary aware and
// case-insensitive; the tiers are scanned from critical down so the
// highest severity match wins.
var defaultBlockedKeywords = map[string][]string{
	models.SeverityCritical: {
		"kill", "murder", "suicide", "self-harm", "weapon", "gun", "knife",
		"porn", "sex", "nude", "xxx", "adult",
		"drug", "cocaine", "heroin", "meth",
		"hate", "racist", "nazi",
	},
	models.SeverityHigh: {
		"bully", "threat", "violence", "abuse",
		"casino", "gamble", "bet",
		"scam", "phishing", "hack",
	},
	models.SeverityMedium: {
		"damn", "hell", "crap",
		"party", "alcohol", "beer", "wine",
	},
	models.SeverityLow: {
		"dating", "girlfriend", "boyfriend",
		"meet strangers", "share location",
	},
}

var defaultUnsafeDomains = map[string]bool{
	"pornhub.com":   true,
	"xvideos.com":   true,
	"xnxx.com":      true,
	"bet365.com":    true,
	"888casino.com": true,
	"4chan.org":     true,
	"8chan.net":     true,
}

var unsafeTLDs = []string{".xxx", ".adult", ".sex", ".porn"}

// Safe domains skip the domain scan entirely. A keyword hit in the
// surrounding text still applies.
var defaultSafeDomains = map[string]bool{
	"wikipedia.org":     true,
	"khanacademy.org":   true,
	"google.com":        true,
	"youtube.com":       true,
	"github.com":        true,
	"stackoverflow.com": true,
}

var urlPattern = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"]+`)

// FilterResult is the outcome of a single content check.
type FilterResult struct {
	Allowed        bool   `json:"allowed"`
	Action         string `json:"action"`
	Severity       string `json:"severity,omitempty"`
	Reason         string `json:"reason,omitempty"`
	ParentNotified bool   `json:"parent_notified"`
	FilteredText   string `json:"filtered_text,omitempty"`
}

// FilterStats summarizes recent filtering activity for one child.
type FilterStats struct {
	UserID        uuid.UUID        `json:"user_id"`
	Days          int              `json:"days"`
	TotalFiltered int64            `json:"total_filtered"`
	BySeverity    map[string]int64 `json:"by_severity"`
	ByAction      map[string]int64 `json:"by_action"`
	CommonReasons []ReasonCount    `json:"common_reasons"`
}

type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int64  `json:"count"`
}

// ContentFilterService classifies text and URLs against a child's
// effective parental controls. Default tier patterns are compiled once
// at construction; custom keywords are matched per call since parents
// edit them at runtime.
type ContentFilterService struct {
	db          *gorm.DB
	controls    *ControlsService
	audit       *AuditService
	tierPattern map[string]*regexp.Regexp
}

func NewContentFilterService(db *gorm.DB, controls *ControlsService, audit *AuditService) *ContentFilterService {
	s := &ContentFilterService{
		db:          db,
		controls:    controls,
		audit:       audit,
		tierPattern: make(map[string]*regexp.Regexp, len(defaultBlockedKeywords)),
	}
	for severity, keywords := range defaultBlockedKeywords {
		s.tierPattern[severity] = compileKeywordPattern(keywords)
	}
	return s
}

func compileKeywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// CheckContent evaluates content for a child and records the decision.
// Every invocation writes a ContentFilterLog row, including allowed
// outcomes, so parents can review what was checked.
func (s *ContentFilterService) CheckContent(childID uuid.UUID, contentType, content string) (*FilterResult, error) {
	eff, err := s.controls.GetEffectiveControls(childID)
	if err != nil {
		return nil, err
	}

	result := s.evaluate(eff, contentType, content)
	result.ParentNotified = result.Action != models.FilterActionAllowed && eff.NotifyOnFlagged

	if err := s.logDecision(childID, contentType, content, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ContentFilterService) evaluate(eff *EffectiveControls, contentType, content string) *FilterResult {
	if strings.TrimSpace(content) == "" {
		return &FilterResult{Allowed: true, Action: models.FilterActionAllowed}
	}
	if !eff.Configured {
		return &FilterResult{Allowed: true, Action: models.FilterActionAllowed}
	}
	if eff.ContentFilterLevel == models.FilterLevelOff {
		return &FilterResult{Allowed: true, Action: models.FilterActionAllowed, Reason: "filtering disabled"}
	}

	severity, reason, matched := s.scanKeywords(keywordText(contentType, content), eff.BlockedKeywords)

	if domSeverity, domReason, domMatch, hit := s.scanDomains(contentType, content, eff); hit {
		if models.SeverityRank(domSeverity) > models.SeverityRank(severity) {
			severity, reason, matched = domSeverity, domReason, domMatch
		}
	}

	if severity == "" {
		return &FilterResult{Allowed: true, Action: models.FilterActionAllowed}
	}

	action := actionFor(severity, eff.ContentFilterLevel)
	res := &FilterResult{
		Allowed:  action != models.FilterActionBlocked,
		Action:   action,
		Severity: severity,
		Reason:   reason,
	}
	if action == models.FilterActionBlocked {
		res.FilteredText = redact(content, matched)
	}
	return res
}

// scanKeywords returns the highest severity keyword hit. Custom blocked
// keywords are treated as critical since a parent listed them
// explicitly.
func (s *ContentFilterService) scanKeywords(content string, custom []string) (severity, reason, matched string) {
	for _, kw := range custom {
		if pat := compileKeywordPattern([]string{kw}); pat.MatchString(content) {
			return models.SeverityCritical, fmt.Sprintf("contains blocked keyword: %q", kw), kw
		}
	}
	for _, tier := range []string{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		if m := s.tierPattern[tier].FindString(content); m != "" {
			return tier, fmt.Sprintf("contains blocked keyword: %q", strings.ToLower(m)), m
		}
	}
	return "", "", ""
}

// keywordText strips URL spans from the content before the keyword
// scan. Hostnames are judged by the domain scan and its severity table;
// without the strip a host like somesite.xxx would trip the critical
// keyword tier instead.
func keywordText(contentType, content string) string {
	if contentType == "url" {
		return ""
	}
	return urlPattern.ReplaceAllString(content, " ")
}

func (s *ContentFilterService) scanDomains(contentType, content string, eff *EffectiveControls) (severity, reason, matched string, hit bool) {
	domains := extractDomains(contentType, content)
	allowed := toSet(eff.AllowedDomains)
	blocked := toSet(eff.BlockedDomains)

	for _, domain := range domains {
		if allowed[domain] || defaultSafeDomains[domain] {
			continue
		}
		if blocked[domain] {
			return models.SeverityCritical, fmt.Sprintf("blocked domain: %s", domain), domain, true
		}
		if defaultUnsafeDomains[domain] {
			return models.SeverityHigh, fmt.Sprintf("unsafe domain: %s", domain), domain, true
		}
		for _, tld := range unsafeTLDs {
			if strings.HasSuffix(domain, tld) {
				return models.SeverityHigh, fmt.Sprintf("unsafe domain: %s", domain), domain, true
			}
		}
	}
	return "", "", "", false
}

// extractDomains pulls hostnames out of the content. For the "url"
// content type the whole payload is treated as one URL; otherwise any
// embedded http(s) URLs are scanned.
func extractDomains(contentType, content string) []string {
	var raw []string
	if contentType == "url" {
		raw = []string{strings.TrimSpace(content)}
	} else {
		raw = urlPattern.FindAllString(content, -1)
	}

	var domains []string
	for _, candidate := range raw {
		if !strings.Contains(candidate, "://") {
			candidate = "http://" + candidate
		}
		parsed, err := url.Parse(candidate)
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		domains = append(domains, normalizeDomain(parsed.Hostname()))
	}
	return domains
}

func actionFor(severity, level string) string {
	switch severity {
	case models.SeverityCritical:
		return models.FilterActionBlocked
	case models.SeverityHigh:
		if level == models.FilterLevelStrict {
			return models.FilterActionBlocked
		}
		return models.FilterActionWarned
	case models.SeverityMedium:
		return models.FilterActionWarned
	case models.SeverityLow:
		if level == models.FilterLevelStrict {
			return models.FilterActionFlagged
		}
		return models.FilterActionAllowed
	default:
		return models.FilterActionAllowed
	}
}

func redact(content, matched string) string {
	if matched == "" {
		return content
	}
	pat := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(matched) + `\b`)
	return pat.ReplaceAllString(content, "[REDACTED]")
}

func (s *ContentFilterService) logDecision(childID uuid.UUID, contentType, content string, result *FilterResult) error {
	snippet := content
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}
	row := models.ContentFilterLog{
		ID:             uuid.New(),
		UserID:         childID,
		ContentType:    contentType,
		ContentSnippet: snippet,
		Reason:         result.Reason,
		Severity:       result.Severity,
		ActionTaken:    result.Action,
		ParentNotified: result.ParentNotified,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// FilterLogQuery narrows GetFilterLogs results.
type FilterLogQuery struct {
	UserID   *uuid.UUID
	Severity string
	Action   string
	Limit    int
}

func (s *ContentFilterService) GetFilterLogs(q FilterLogQuery) ([]models.ContentFilterLog, error) {
	query := s.db.Model(&models.ContentFilterLog{})
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if q.Severity != "" {
		query = query.Where("severity = ?", q.Severity)
	}
	if q.Action != "" {
		query = query.Where("action_taken = ?", q.Action)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	var rows []models.ContentFilterLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return rows, nil
}

// GetFilterStats aggregates filtering activity over the trailing window.
func (s *ContentFilterService) GetFilterStats(userID uuid.UUID, days int) (*FilterStats, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)
	base := func() *gorm.DB {
		return s.db.Model(&models.ContentFilterLog{}).
			Where("user_id = ? AND created_at >= ?", userID, since)
	}

	stats := &FilterStats{
		UserID:     userID,
		Days:       days,
		BySeverity: map[string]int64{},
		ByAction:   map[string]int64{},
	}
	if err := base().Count(&stats.TotalFiltered).Error; err != nil {
		return nil, apperr.Storage(err)
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var severities []bucket
	if err := base().Select("severity AS key, COUNT(*) AS count").
		Where("severity <> ''").Group("severity").Scan(&severities).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	for _, b := range severities {
		stats.BySeverity[b.Key] = b.Count
	}

	var actions []bucket
	if err := base().Select("action_taken AS key, COUNT(*) AS count").
		Group("action_taken").Scan(&actions).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	for _, b := range actions {
		stats.ByAction[b.Key] = b.Count
	}

	var reasons []bucket
	if err := base().Select("reason AS key, COUNT(*) AS count").
		Where("reason <> ''").Group("reason").
		Order("count DESC").Limit(10).Scan(&reasons).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	for _, b := range reasons {
		stats.CommonReasons = append(stats.CommonReasons, ReasonCount{Reason: b.Key, Count: b.Count})
	}
	return stats, nil
}

// AddBlockedKeyword appends a custom keyword to the (child, parent)
// configuration row.
func (s *ContentFilterService) AddBlockedKeyword(childID, parentID uuid.UUID, keyword string, actorID *uuid.UUID) (*models.ParentalControls, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, apperr.Validation("keyword", "keyword must not be empty")
	}
	return s.patchLists(childID, parentID, actorID, func(patch *ControlsPatch, row *models.ParentalControls) {
		patch.BlockedKeywords = append(append([]string{}, row.BlockedKeywords...), keyword)
	})
}

// RemoveBlockedKeyword drops a custom keyword; removing a keyword that
// was never added is a no-op.
func (s *ContentFilterService) RemoveBlockedKeyword(childID, parentID uuid.UUID, keyword string, actorID *uuid.UUID) (*models.ParentalControls, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	return s.patchLists(childID, parentID, actorID, func(patch *ControlsPatch, row *models.ParentalControls) {
		kept := make([]string, 0, len(row.BlockedKeywords))
		for _, kw := range row.BlockedKeywords {
			if kw != keyword {
				kept = append(kept, kw)
			}
		}
		patch.BlockedKeywords = kept
	})
}

func (s *ContentFilterService) AddBlockedDomain(childID, parentID uuid.UUID, domain string, actorID *uuid.UUID) (*models.ParentalControls, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, apperr.Validation("domain", "domain must not be empty")
	}
	return s.patchLists(childID, parentID, actorID, func(patch *ControlsPatch, row *models.ParentalControls) {
		patch.BlockedDomains = append(append([]string{}, row.BlockedDomains...), domain)
	})
}

func (s *ContentFilterService) AddAllowedDomain(childID, parentID uuid.UUID, domain string, actorID *uuid.UUID) (*models.ParentalControls, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, apperr.Validation("domain", "domain must not be empty")
	}
	return s.patchLists(childID, parentID, actorID, func(patch *ControlsPatch, row *models.ParentalControls) {
		patch.AllowedDomains = append(append([]string{}, row.AllowedDomains...), domain)
	})
}

func (s *ContentFilterService) patchLists(childID, parentID uuid.UUID, actorID *uuid.UUID, apply func(*ControlsPatch, *models.ParentalControls)) (*models.ParentalControls, error) {
	var row models.ParentalControls
	err := s.db.Where("child_id = ? AND parent_id = ?", childID, parentID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no controls for child %s by parent %s", childID, parentID)
		}
		return nil, apperr.Storage(err)
	}

	var patch ControlsPatch
	apply(&patch, &row)
	return s.controls.UpdateControls(childID, parentID, patch, actorID)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
