package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

var studentIdentity = models.Identity{AccountID: 4, Role: models.RoleStudent, StudentID: func() *int64 { id := int64(9); return &id }()}

func newRouter(identity *models.Identity) *gin.Engine {
	router := gin.New()
	if identity != nil {
		router.Use(func(c *gin.Context) { middleware.SetIdentity(c, *identity) })
	}
	return router
}

func perform(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorCode {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

type qrStub struct {
	redeemed []string
	results  map[string]error
	seen     map[string]bool
}

func (s *qrStub) Issue(_ context.Context, _ models.Identity, courseID int64, validity int, singleUse bool) (*dto.QrTokenResponse, error) {
	return &dto.QrTokenResponse{Token: "tok", CourseID: courseID, SingleUse: singleUse}, nil
}

func (s *qrStub) Redeem(_ context.Context, _ models.Identity, token string) (*models.RecordResult, error) {
	s.redeemed = append(s.redeemed, token)
	if err := s.results[token]; err != nil {
		return nil, err
	}
	if s.seen[token] {
		return &models.RecordResult{Outcome: models.AlreadyRegistered}, nil
	}
	s.seen[token] = true
	return &models.RecordResult{Outcome: models.Registered, Record: &models.AttendanceRecord{ID: 1}}, nil
}

func (s *qrStub) List(context.Context, models.Identity) ([]*models.QrToken, error) {
	return []*models.QrToken{{ID: 1}}, nil
}

func (s *qrStub) Sweep(context.Context, models.Identity) (int64, error) {
	return 3, nil
}

func TestQrController_Redeem(t *testing.T) {
	stub := &qrStub{
		results: map[string]error{"stale": apperrors.ErrQrTokenExpired, "bogus": apperrors.ErrQrTokenInvalid},
		seen:    map[string]bool{},
	}
	qc := NewQrController(stub, zerolog.Nop())
	router := newRouter(&studentIdentity)
	router.GET("/qr/redeem", qc.Redeem)
	router.POST("/qr/redeem", qc.Redeem)

	rec := perform(router, http.MethodGet, "/qr/redeem?qr_token=abc", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = perform(router, http.MethodPost, "/qr/redeem", map[string]string{"qrToken": "abc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data models.RecordResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.AlreadyRegistered, resp.Data.Outcome)

	rec = perform(router, http.MethodGet, "/qr/redeem?qr_token=stale", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, dto.ErrorCodeQrTokenExpired, errorCode(t, rec))

	rec = perform(router, http.MethodGet, "/qr/redeem?qr_token=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrorCodeQrTokenInvalid, errorCode(t, rec))

	rec = perform(router, http.MethodGet, "/qr/redeem", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, errorCode(t, rec))

	assert.Equal(t, []string{"abc", "abc", "stale", "bogus"}, stub.redeemed)
}

func TestQrController_RequiresIdentity(t *testing.T) {
	qc := NewQrController(&qrStub{}, zerolog.Nop())
	router := newRouter(nil)
	router.POST("/qr-tokens", qc.Issue)

	rec := perform(router, http.MethodPost, "/qr-tokens", map[string]int{"courseId": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQrController_IssueAndSweep(t *testing.T) {
	qc := NewQrController(&qrStub{}, zerolog.Nop())
	teacher := models.Identity{Role: models.RoleTeacher}
	router := newRouter(&teacher)
	router.POST("/qr-tokens", qc.Issue)
	router.POST("/qr-tokens/sweep", qc.Sweep)

	rec := perform(router, http.MethodPost, "/qr-tokens", map[string]interface{}{"courseId": 12, "singleUse": true})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = perform(router, http.MethodPost, "/qr-tokens", map[string]interface{}{"validityMinutes": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(router, http.MethodPost, "/qr-tokens/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deactivated":3`)
}

type attendanceStub struct {
	filter models.AttendanceFilter
	input  services.RecordInput
}

func (s *attendanceStub) Record(_ context.Context, _ models.Identity, in services.RecordInput) (*models.RecordResult, error) {
	s.input = in
	return &models.RecordResult{Outcome: models.Registered}, nil
}

func (s *attendanceStub) Delete(context.Context, models.Identity, int64) error {
	return apperrors.NewForbiddenError("not your record")
}

func (s *attendanceStub) Query(_ context.Context, _ models.Identity, filter models.AttendanceFilter) ([]*models.AttendanceRecord, int64, error) {
	s.filter = filter
	return []*models.AttendanceRecord{{ID: 1}}, 41, nil
}

func (s *attendanceStub) Summary(_ context.Context, _ models.Identity, filter models.AttendanceFilter) (models.AttendanceSummary, error) {
	s.filter = filter
	return models.AttendanceSummary{Total: 2, Present: 2}, nil
}

func TestAttendanceController(t *testing.T) {
	stub := &attendanceStub{}
	ac := NewAttendanceController(stub, zerolog.Nop())
	teacher := models.Identity{Role: models.RoleTeacher}
	router := newRouter(&teacher)
	router.GET("/attendance", ac.List)
	router.GET("/attendance/summary", ac.Summary)
	router.POST("/attendance", ac.Record)
	router.DELETE("/attendance/:id", ac.Delete)

	rec := perform(router, http.MethodGet, "/attendance?courseId=12&status=LATE&from=2024-03-01&to=2024-03-11&page=3&size=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.filter.CourseID)
	assert.Equal(t, int64(12), *stub.filter.CourseID)
	require.NotNil(t, stub.filter.Status)
	assert.Equal(t, models.StatusLate, *stub.filter.Status)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *stub.filter.From)
	assert.Equal(t, 3, stub.filter.Page)

	var paged struct {
		Data struct {
			Pagination dto.PaginationInfo `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paged))
	assert.Equal(t, 3, paged.Data.Pagination.TotalPages)
	assert.Equal(t, int64(41), paged.Data.Pagination.TotalItems)

	rec = perform(router, http.MethodGet, "/attendance?status=SICK", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(router, http.MethodGet, "/attendance/summary?studentId=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), *stub.filter.StudentID)

	rec = perform(router, http.MethodPost, "/attendance", map[string]interface{}{
		"studentId": 9, "courseId": 12, "status": "ABSENT", "date": "2024-03-08",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.StatusAbsent, stub.input.Status)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), stub.input.Date)

	rec = perform(router, http.MethodDelete, "/attendance/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(router, http.MethodDelete, "/attendance/5", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type rosterStub struct {
	RosterService
	created models.Course
}

func (s *rosterStub) CreateCourse(_ context.Context, _ models.Identity, course models.Course) (*models.Course, error) {
	if course.TeacherID != nil && *course.TeacherID == 7 {
		return nil, apperrors.ErrScheduleConflict
	}
	s.created = course
	course.ID = 1
	return &course, nil
}

func (s *rosterStub) Enroll(context.Context, models.Identity, int64, int64) (models.EnrollOutcome, error) {
	return models.AlreadyEnrolled, nil
}

func (s *rosterStub) TimeSlots() []models.TimeSlot {
	return []models.TimeSlot{"07:00-07:50"}
}

func TestRosterController_Courses(t *testing.T) {
	stub := &rosterStub{}
	rc := NewRosterController(stub, zerolog.Nop())
	admin := models.Identity{Role: models.RoleAdmin}
	router := newRouter(&admin)
	router.POST("/courses", rc.CreateCourse)
	router.POST("/courses/:id/enrollments", rc.Enroll)
	router.GET("/time-slots", rc.TimeSlots)

	rec := perform(router, http.MethodPost, "/courses", map[string]interface{}{"name": "Biology", "timeSlot": "08:00-09:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown time slot")

	rec = perform(router, http.MethodPost, "/courses", map[string]interface{}{"name": "Biology", "timeSlot": "07:00-07:50"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.TimeSlot("07:00-07:50"), stub.created.TimeSlot)

	rec = perform(router, http.MethodPost, "/courses", map[string]interface{}{"name": "History", "timeSlot": "07:00-07:50", "teacherId": 7})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, dto.ErrorCodeConflict, errorCode(t, rec))

	rec = perform(router, http.MethodPost, "/courses/1/enrollments", map[string]int{"studentId": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_ENROLLED")

	rec = perform(router, http.MethodGet, "/time-slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "07:00-07:50")
}

func TestStatsController_Health(t *testing.T) {
	router := newRouter(nil)
	healthy := NewStatsController(nil, map[string]func(context.Context) error{
		"postgres": func(context.Context) error { return nil },
	})
	failing := NewStatsController(nil, map[string]func(context.Context) error{
		"redis": func(context.Context) error { return apperrors.ErrStorageUnavailable },
	})
	router.GET("/health", healthy.Health)
	router.GET("/health-failing", failing.Health)

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, perform(router, http.MethodGet, "/health-failing", nil).Code)
}
