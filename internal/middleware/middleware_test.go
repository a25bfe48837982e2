package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestHandleAPIError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.NewValidationError("bad slot"), http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{apperrors.ErrUsernameTaken, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{apperrors.ErrScheduleConflict, http.StatusConflict, dto.ErrorCodeConflict},
		{apperrors.NewResourceNotFoundError("course not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrQrTokenInvalid, http.StatusBadRequest, dto.ErrorCodeQrTokenInvalid},
		{apperrors.ErrQrTokenExpired, http.StatusGone, dto.ErrorCodeQrTokenExpired},
		{apperrors.NewForbiddenError("not yours"), http.StatusForbidden, dto.ErrorCodeForbidden},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
		{apperrors.ErrRateLimited, http.StatusTooManyRequests, dto.ErrorCodeRateLimited},
		{fmt.Errorf("query: %w", apperrors.ErrStorageUnavailable), http.StatusServiceUnavailable, dto.ErrorCodeStorageUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			resp := decodeError(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestHandleAPIError_UsesCustomMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, apperrors.NewResourceNotFoundError("course 12 not found"))

	assert.Equal(t, "course 12 not found", decodeError(t, rec).Error.Message)
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2)
	limiter.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "a")
	assert.False(t, ok, "bucket is empty")

	ok, _ = limiter.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = limiter.Allow(ctx, "a")
	assert.True(t, ok, "bucket refills after a minute")
}

func TestMemoryLimiter_PrunesIdleBuckets(t *testing.T) {
	now := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2)
	limiter.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := limiter.Allow(ctx, ip)
		require.NoError(t, err)
	}
	assert.Len(t, limiter.state, 3)

	now = now.Add(30 * time.Second)
	_, _ = limiter.Allow(ctx, "10.0.0.4")
	_, _ = limiter.Allow(ctx, "10.0.0.4")
	ok, _ := limiter.Allow(ctx, "10.0.0.4")
	assert.False(t, ok)

	now = now.Add(45 * time.Second)
	ok, _ = limiter.Allow(ctx, "10.0.0.5")
	assert.True(t, ok)
	assert.Len(t, limiter.state, 2, "buckets idle for a full window are dropped")
	assert.Contains(t, limiter.state, "10.0.0.4")

	ok, _ = limiter.Allow(ctx, "10.0.0.4")
	assert.True(t, ok, "one token refilled in 45s")
	ok, _ = limiter.Allow(ctx, "10.0.0.4")
	assert.False(t, ok, "a kept bucket does not restart at full capacity")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.POST("/qr/redeem", RateLimit(NewMemoryLimiter(1), "redeem"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.POST("/open", RateLimit(failingLimiter{}, "open"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, do("/qr/redeem").Code)
	rec := do("/qr/redeem")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, dto.ErrorCodeRateLimited, decodeError(t, rec).Error.Code)

	assert.Equal(t, http.StatusOK, do("/open").Code, "limiter failures let requests through")
}

type accountsStub map[int64]*models.Account

func (s accountsStub) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, apperrors.NewResourceNotFoundError("account not found")
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "middleware-test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "attendance.test",
	})
	teacherID := int64(7)
	teacher := &models.Account{ID: 3, Username: "jpuig", Role: models.RoleTeacher, TeacherID: &teacherID}
	ghost := &models.Account{ID: 99, Username: "ghost", Role: models.RoleAdmin}
	m := NewAuthMiddleware(jwtService, accountsStub{3: teacher})

	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop()))
	api := router.Group("", m.JWTAuth())
	api.GET("/me", func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, identity)
	})
	api.GET("/admin", m.RoleRequired(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do("/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, dto.ErrorCodeUnauthorized, decodeError(t, rec).Error.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDKey))

	rec = do("/me", "Token abc")
	assert.Equal(t, dto.ErrorCodeInvalidToken, decodeError(t, rec).Error.Code)

	token, _, err := jwtService.GenerateAccessToken(teacher)
	require.NoError(t, err)
	rec = do("/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	var identity models.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identity))
	assert.Equal(t, models.RoleTeacher, identity.Role)
	require.NotNil(t, identity.TeacherID)
	assert.Equal(t, teacherID, *identity.TeacherID)

	rec = do("/admin", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ghostToken, _, err := jwtService.GenerateAccessToken(ghost)
	require.NoError(t, err)
	rec = do("/me", "Bearer "+ghostToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deleted accounts lose access")
}

func TestValidationRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerRules(v))

	type course struct {
		Slot   string `validate:"timeslot"`
		Status string `validate:"omitempty,attendancestatus"`
	}

	assert.NoError(t, v.Struct(course{Slot: "07:00-07:50", Status: "LATE"}))
	assert.Error(t, v.Struct(course{Slot: "08:00-09:00"}))
	assert.Error(t, v.Struct(course{Slot: "07:00-07:50", Status: "SICK"}))
}
