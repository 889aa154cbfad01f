package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/familyassistant/safety-engine/internal/config"
	"github.com/familyassistant/safety-engine/internal/database"
	"github.com/familyassistant/safety-engine/internal/handlers"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/familyassistant/safety-engine/internal/seed"
	"github.com/familyassistant/safety-engine/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-for-testing-only"

type testServer struct {
	app    *fiber.App
	db     *gorm.DB
	parent *models.FamilyMember
	child  *models.FamilyMember
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "routes_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, seed.Apply(db))

	// The health endpoint pings through the package-level handle.
	database.DB = db

	cfg := &config.Config{JWTSecret: testSecret, Port: "0"}

	audit := services.NewAuditService(db)
	permissions := services.NewPermissionService(db, audit, 0)
	members := services.NewMemberService(db, audit)
	controls := services.NewControlsService(db, audit)
	filter := services.NewContentFilterService(db, controls, audit)
	screenTime := services.NewScreenTimeService(db, controls, audit)

	app := fiber.New()
	Setup(app, cfg, db,
		handlers.NewHealthHandler(),
		handlers.NewMemberHandler(members),
		handlers.NewPermissionHandler(permissions),
		handlers.NewControlsHandler(controls, filter),
		handlers.NewFilterHandler(filter),
		handlers.NewScreenTimeHandler(screenTime),
		handlers.NewAuditHandler(audit),
	)

	srv := &testServer{app: app, db: db}
	srv.parent = srv.seedMember(t, models.RoleParent)
	srv.child = srv.seedMember(t, models.RoleChild)
	return srv
}

func (s *testServer) seedMember(t *testing.T, role string) *models.FamilyMember {
	t.Helper()
	m := &models.FamilyMember{
		Email:       fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		DisplayName: "Test " + role,
		Role:        role,
		SafetyLevel: models.SafetyLevelAdult,
		IsActive:    true,
	}
	if role == models.RoleChild {
		m.SafetyLevel = models.SafetyLevelChild
	}
	require.NoError(t, s.db.Create(m).Error)
	return m
}

func signToken(t *testing.T, memberID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": memberID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) request(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp := s.request(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.request(t, http.MethodGet, "/api/members", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuardianGateBlocksChildren(t *testing.T) {
	s := newTestServer(t)
	childToken := signToken(t, s.child.ID)

	resp := s.request(t, http.MethodPost, "/api/members", map[string]any{
		"email":        "new@example.com",
		"display_name": "New",
		"role":         "member",
	}, childToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPermissionCheckFlow(t *testing.T) {
	s := newTestServer(t)
	parentToken := signToken(t, s.parent.ID)
	childToken := signToken(t, s.child.ID)

	path := fmt.Sprintf("/api/permissions/check?user_id=%s&permission=finance:read", s.child.ID)
	resp := s.request(t, http.MethodGet, path, nil, childToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var check map[string]any
	decode(t, resp, &check)
	assert.Equal(t, false, check["allowed"])

	resp = s.request(t, http.MethodPost, "/api/permissions/grant", map[string]any{
		"user_id":    s.child.ID,
		"permission": "finance:read",
		"reason":     "allowance project",
	}, parentToken)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.request(t, http.MethodGet, path, nil, childToken)
	decode(t, resp, &check)
	assert.Equal(t, true, check["allowed"])
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	parentToken := signToken(t, s.parent.ID)

	// Unknown permission name → 404
	resp := s.request(t, http.MethodGet,
		fmt.Sprintf("/api/permissions/check?user_id=%s&permission=rockets:launch", s.child.ID),
		nil, parentToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Invalid controls payload → 400 with the offending field
	resp = s.request(t, http.MethodPost, "/api/controls/", map[string]any{
		"child_id":             s.child.ID,
		"parent_id":            s.parent.ID,
		"daily_limit_minutes":  0,
		"content_filter_level": "moderate",
		"screen_time_enabled":  true,
	}, parentToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody map[string]any
	decode(t, resp, &errBody)
	assert.Contains(t, errBody["field"], "daily_limit_minutes")

	// Duplicate controls → 409
	payload := map[string]any{
		"child_id":             s.child.ID,
		"parent_id":            s.parent.ID,
		"daily_limit_minutes":  120,
		"content_filter_level": "moderate",
		"screen_time_enabled":  true,
	}
	resp = s.request(t, http.MethodPost, "/api/controls/", payload, parentToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = s.request(t, http.MethodPost, "/api/controls/", payload, parentToken)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFilterAndScreenTimeEndpoints(t *testing.T) {
	s := newTestServer(t)
	parentToken := signToken(t, s.parent.ID)
	childToken := signToken(t, s.child.ID)

	resp := s.request(t, http.MethodPost, "/api/controls/", map[string]any{
		"child_id":             s.child.ID,
		"parent_id":            s.parent.ID,
		"daily_limit_minutes":  120,
		"content_filter_level": "strict",
		"screen_time_enabled":  true,
	}, parentToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.request(t, http.MethodPost, "/api/filter/check", map[string]any{
		"child_id":     s.child.ID,
		"content_type": "message",
		"content":      "he has a weapon",
	}, childToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var filterResult map[string]any
	decode(t, resp, &filterResult)
	assert.Equal(t, "blocked", filterResult["action"])
	assert.Equal(t, false, filterResult["allowed"])

	resp = s.request(t, http.MethodPost, "/api/screentime", map[string]any{
		"user_id":       s.child.ID,
		"date":          "2026-09-02",
		"minutes":       45,
		"activity_type": "games",
	}, childToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]any
	decode(t, resp, &status)
	assert.EqualValues(t, 45, status["used_minutes"])
	assert.EqualValues(t, 120, status["limit_minutes"])

	resp = s.request(t, http.MethodGet,
		fmt.Sprintf("/api/screentime/%s/2026-09-02", s.child.ID), nil, childToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &status)
	assert.EqualValues(t, 45, status["used_minutes"])

	// Guardian-only review endpoints
	resp = s.request(t, http.MethodGet, "/api/filter/logs?user_id="+s.child.ID.String(), nil, parentToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.request(t, http.MethodGet, "/api/audit", nil, parentToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.request(t, http.MethodGet, "/api/audit", nil, childToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
