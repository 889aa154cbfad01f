package services

import (
	"strings"
	"testing"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type filterFixture struct {
	db     *gorm.DB
	svc    *ContentFilterService
	ctrl   *ControlsService
	parent *models.FamilyMember
	child  *models.FamilyMember
}

func newFilterFixture(t *testing.T) *filterFixture {
	t.Helper()
	db := newTestDB(t)
	audit := NewAuditService(db)
	ctrl := NewControlsService(db, audit)
	return &filterFixture{
		db:     db,
		svc:    NewContentFilterService(db, ctrl, audit),
		ctrl:   ctrl,
		parent: seedMember(t, db, models.RoleParent),
		child:  seedMember(t, db, models.RoleChild),
	}
}

func (f *filterFixture) configure(t *testing.T, in ControlsInput) {
	t.Helper()
	_, err := f.ctrl.CreateControls(f.child.ID, f.parent.ID, in, nil)
	require.NoError(t, err)
}

func (f *filterFixture) logCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.ContentFilterLog{}).
		Where("user_id = ?", f.child.ID).Count(&count).Error)
	return count
}

func TestCheckContentEmptyAlwaysAllowed(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
	})

	result, err := f.svc.CheckContent(f.child.ID, "message", "   \n\t ")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, models.FilterActionAllowed, result.Action)
}

func TestCheckContentNoControlsAllowsEverything(t *testing.T) {
	f := newFilterFixture(t)

	result, err := f.svc.CheckContent(f.child.ID, "message", "weapon casino drugs")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.EqualValues(t, 1, f.logCount(t), "allowed decisions are still logged")
}

func TestCheckContentUnknownChild(t *testing.T) {
	f := newFilterFixture(t)
	_, err := f.svc.CheckContent(uuid.New(), "message", "hello")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCheckContentFilterOff(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelOff,
	})

	result, err := f.svc.CheckContent(f.child.ID, "message", "weapon")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.EqualValues(t, 1, f.logCount(t))
}

func TestHighestSeverityWins(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
	})

	// "damn" is medium, "weapon" is critical: critical must win even
	// though the medium keyword appears first.
	result, err := f.svc.CheckContent(f.child.ID, "message", "damn, he brought a weapon")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, models.FilterActionBlocked, result.Action)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.Contains(t, result.FilteredText, "[REDACTED]")
}

func TestWordBoundaryMatching(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelModerate,
	})

	// "betting" and "better" contain "bet" but not on a word boundary.
	result, err := f.svc.CheckContent(f.child.ID, "message", "I am better at betting predictions")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, models.FilterActionAllowed, result.Action)

	result, err = f.svc.CheckContent(f.child.ID, "message", "place a bet on the game")
	require.NoError(t, err)
	assert.Equal(t, models.FilterActionWarned, result.Action)
	assert.Equal(t, models.SeverityHigh, result.Severity)
}

func TestActionMatrixByLevel(t *testing.T) {
	cases := []struct {
		name    string
		level   string
		content string
		action  string
		allowed bool
	}{
		{"high blocked under strict", models.FilterLevelStrict, "visit the casino", models.FilterActionBlocked, false},
		{"high warned under moderate", models.FilterLevelModerate, "visit the casino", models.FilterActionWarned, true},
		{"medium warned under strict", models.FilterLevelStrict, "damn homework", models.FilterActionWarned, true},
		{"medium warned under moderate", models.FilterLevelModerate, "damn homework", models.FilterActionWarned, true},
		{"low flagged under strict", models.FilterLevelStrict, "a dating app", models.FilterActionFlagged, true},
		{"low allowed under moderate", models.FilterLevelModerate, "a dating app", models.FilterActionAllowed, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFilterFixture(t)
			f.configure(t, ControlsInput{
				DailyLimitMinutes:  60,
				ContentFilterLevel: tc.level,
			})

			result, err := f.svc.CheckContent(f.child.ID, "message", tc.content)
			require.NoError(t, err)
			assert.Equal(t, tc.action, result.Action)
			assert.Equal(t, tc.allowed, result.Allowed)
		})
	}
}

func TestCustomKeywordBlocksRegardlessOfLevel(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelModerate,
		BlockedKeywords:    []string{"minecraft"},
	})

	result, err := f.svc.CheckContent(f.child.ID, "message", "can I play minecraft tonight")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, models.FilterActionBlocked, result.Action)
	assert.Equal(t, models.SeverityCritical, result.Severity)
}

func TestBlockedDomainIsCritical(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelModerate,
		BlockedDomains:     []string{"badsite.example"},
	})

	result, err := f.svc.CheckContent(f.child.ID, "url", "https://www.badsite.example/page")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, models.FilterActionBlocked, result.Action)
	assert.Equal(t, models.SeverityCritical, result.Severity)
}

func TestUnsafeDomainWarnedUnderModerate(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelModerate,
	})

	result, err := f.svc.CheckContent(f.child.ID, "message", "check http://888casino.com out")
	require.NoError(t, err)
	assert.Equal(t, models.FilterActionWarned, result.Action)
	assert.Equal(t, models.SeverityHigh, result.Severity)
}

func TestUnsafeTLD(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
	})

	result, err := f.svc.CheckContent(f.child.ID, "url", "http://somesite.xxx")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, models.SeverityHigh, result.Severity)
}

func TestURLTextDoesNotHitKeywordTiers(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelModerate,
	})

	// The hostname contains "xxx", a critical-tier keyword. The domain
	// scan owns hostnames, so this is a high severity TLD hit and only
	// warned under moderate, not blocked outright.
	result, err := f.svc.CheckContent(f.child.ID, "message", "look at http://somesite.xxx please")
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, result.Severity)
	assert.Equal(t, models.FilterActionWarned, result.Action)
	assert.True(t, result.Allowed)

	// Keywords in the surrounding text still apply.
	result, err = f.svc.CheckContent(f.child.ID, "message", "he has a weapon, see http://somesite.xxx")
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.Equal(t, models.FilterActionBlocked, result.Action)
}

func TestAllowedDomainSkipsDomainScan(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
		AllowedDomains:     []string{"888casino.com"},
	})

	result, err := f.svc.CheckContent(f.child.ID, "url", "http://888casino.com/promo")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	// The built-in safe list works the same way.
	result, err = f.svc.CheckContent(f.child.ID, "url", "https://wikipedia.org/wiki/Go")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestParentNotifiedFlag(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
		NotifyOnFlagged:    true,
	})

	result, err := f.svc.CheckContent(f.child.ID, "message", "he has a weapon")
	require.NoError(t, err)
	assert.True(t, result.ParentNotified)

	result, err = f.svc.CheckContent(f.child.ID, "message", "see you at school")
	require.NoError(t, err)
	assert.False(t, result.ParentNotified, "allowed content never notifies")
}

func TestSnippetTruncation(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
	})

	long := "weapon " + strings.Repeat("x", 600)
	_, err := f.svc.CheckContent(f.child.ID, "message", long)
	require.NoError(t, err)

	var row models.ContentFilterLog
	require.NoError(t, f.db.Where("user_id = ?", f.child.ID).First(&row).Error)
	assert.Len(t, row.ContentSnippet, 500)
}

func TestFilterStats(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
	})

	for _, content := range []string{"he has a weapon", "visit the casino", "all good here"} {
		_, err := f.svc.CheckContent(f.child.ID, "message", content)
		require.NoError(t, err)
	}

	stats, err := f.svc.GetFilterStats(f.child.ID, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalFiltered)
	assert.EqualValues(t, 2, stats.ByAction[models.FilterActionBlocked])
	assert.EqualValues(t, 1, stats.ByAction[models.FilterActionAllowed])
	assert.EqualValues(t, 1, stats.BySeverity[models.SeverityCritical])
	assert.EqualValues(t, 1, stats.BySeverity[models.SeverityHigh])
}

func TestAddAndRemoveBlockedKeyword(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelModerate,
	})

	_, err := f.svc.AddBlockedKeyword(f.child.ID, f.parent.ID, "Fortnite", nil)
	require.NoError(t, err)

	result, err := f.svc.CheckContent(f.child.ID, "message", "one round of fortnite?")
	require.NoError(t, err)
	assert.Equal(t, models.FilterActionBlocked, result.Action)

	_, err = f.svc.RemoveBlockedKeyword(f.child.ID, f.parent.ID, "fortnite", nil)
	require.NoError(t, err)

	result, err = f.svc.CheckContent(f.child.ID, "message", "one round of fortnite?")
	require.NoError(t, err)
	assert.Equal(t, models.FilterActionAllowed, result.Action)

	_, err = f.svc.AddBlockedKeyword(f.child.ID, f.parent.ID, "  ", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestFilterLogQueryFilters(t *testing.T) {
	f := newFilterFixture(t)
	f.configure(t, ControlsInput{
		DailyLimitMinutes:  60,
		ContentFilterLevel: models.FilterLevelStrict,
	})

	_, err := f.svc.CheckContent(f.child.ID, "message", "he has a weapon")
	require.NoError(t, err)
	_, err = f.svc.CheckContent(f.child.ID, "message", "nothing wrong")
	require.NoError(t, err)

	logs, err := f.svc.GetFilterLogs(FilterLogQuery{UserID: &f.child.ID, Action: models.FilterActionBlocked})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SeverityCritical, logs[0].Severity)
}
