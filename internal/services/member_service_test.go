package services

import (
	"testing"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollMemberValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewMemberService(db, NewAuditService(db))

	cases := []struct {
		name  string
		in    EnrollMemberInput
		field string
	}{
		{"missing email", EnrollMemberInput{DisplayName: "A", Role: models.RoleChild}, "email"},
		{"missing display name", EnrollMemberInput{Email: "a@example.com", Role: models.RoleChild}, "display_name"},
		{"unknown role", EnrollMemberInput{Email: "a@example.com", DisplayName: "A", Role: "pet"}, "role"},
		{"unknown safety level", EnrollMemberInput{Email: "a@example.com", DisplayName: "A", Role: models.RoleParent, SafetyLevel: "paranoid"}, "safety_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.EnrollMember(tc.in, nil)
			require.Error(t, err)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Equal(t, tc.field, ae.Field)
		})
	}
}

func TestEnrollChildForcesChildSafetyLevel(t *testing.T) {
	db := newTestDB(t)
	svc := NewMemberService(db, NewAuditService(db))

	member, err := svc.EnrollMember(EnrollMemberInput{
		Email:       "Kid@Example.COM ",
		DisplayName: "Kiddo",
		Role:        models.RoleChild,
		SafetyLevel: models.SafetyLevelAdult,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "kid@example.com", member.Email, "email is normalized")
	assert.Equal(t, models.SafetyLevelChild, member.SafetyLevel)
}

func TestEnrollDuplicateEmailConflict(t *testing.T) {
	db := newTestDB(t)
	svc := NewMemberService(db, NewAuditService(db))

	in := EnrollMemberInput{Email: "dup@example.com", DisplayName: "One", Role: models.RoleParent}
	_, err := svc.EnrollMember(in, nil)
	require.NoError(t, err)

	in.DisplayName = "Two"
	_, err = svc.EnrollMember(in, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestUpdateMemberKeepsChildInvariant(t *testing.T) {
	db := newTestDB(t)
	svc := NewMemberService(db, NewAuditService(db))
	teen := seedMember(t, db, models.RoleTeenager)

	updated, err := svc.UpdateMember(teen.ID, UpdateMemberInput{
		Role: strPtr(models.RoleChild),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RoleChild, updated.Role)
	assert.Equal(t, models.SafetyLevelChild, updated.SafetyLevel, "demoting to child drops the safety level too")
}

func TestDeactivateMember(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)
	svc := NewMemberService(db, audit)
	member := seedMember(t, db, models.RoleTeenager)

	require.NoError(t, svc.DeactivateMember(member.ID, nil))

	_, err := svc.GetMember(member.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "deactivated members read as absent")

	active, err := svc.ListMembers(false)
	require.NoError(t, err)
	all, err := svc.ListMembers(true)
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)

	events, err := audit.QueryEvents(AuditQuery{Action: "deactivate_family_member"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
