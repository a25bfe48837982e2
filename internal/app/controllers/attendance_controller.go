package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/helpers"
)

// AttendanceService is the attendance ledger as seen by the HTTP layer.
type AttendanceService interface {
	Record(ctx context.Context, identity models.Identity, in services.RecordInput) (*models.RecordResult, error)
	Delete(ctx context.Context, identity models.Identity, id int64) error
	Query(ctx context.Context, identity models.Identity, filter models.AttendanceFilter) ([]*models.AttendanceRecord, int64, error)
	Summary(ctx context.Context, identity models.Identity, filter models.AttendanceFilter) (models.AttendanceSummary, error)
}

// AttendanceController handles manual attendance and attendance reports
type AttendanceController struct {
	attendance AttendanceService
	logger     zerolog.Logger
}

// NewAttendanceController creates a new AttendanceController
func NewAttendanceController(attendance AttendanceService, logger zerolog.Logger) *AttendanceController {
	return &AttendanceController{
		attendance: attendance,
		logger:     logger,
	}
}

// Record writes one attendance entry. A second entry for the same student,
// course and day reports ALREADY_REGISTERED and leaves the first untouched.
func (c *AttendanceController) Record(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	var req dto.RecordAttendanceRequest
	if !bindJSON(ctx, &req) {
		return
	}
	date, err := helpers.ParseDate(req.Date)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(err.Error()))
		return
	}

	in := services.RecordInput{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Status:    models.AttendanceStatus(req.Status),
	}
	if date != nil {
		in.Date = *date
	}

	result, err := c.attendance.Record(ctx.Request.Context(), identity, in)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == models.Registered {
		status = http.StatusCreated
	}
	ctx.JSON(status, dto.NewSuccessResponse(result, ""))
}

func (c *AttendanceController) Delete(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.attendance.Delete(ctx.Request.Context(), identity, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Attendance record deleted"))
}

// List returns one page of attendance records visible to the caller.
func (c *AttendanceController) List(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	filter, ok := c.bindFilter(ctx)
	if !ok {
		return
	}
	filter.Page, filter.Size = helpers.ParsePaginationParams(ctx)

	records, total, err := c.attendance.Query(ctx.Request.Context(), identity, filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PagedResponse{
		Items:      records,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, filter.Size),
	}, ""))
}

// Summary counts the caller's visible records per status.
func (c *AttendanceController) Summary(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	filter, ok := c.bindFilter(ctx)
	if !ok {
		return
	}

	summary, err := c.attendance.Summary(ctx.Request.Context(), identity, filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summary, ""))
}

func (c *AttendanceController) bindFilter(ctx *gin.Context) (models.AttendanceFilter, bool) {
	var q dto.AttendanceQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return models.AttendanceFilter{}, false
	}

	filter := models.AttendanceFilter{
		StudentID: q.StudentID,
		TeacherID: q.TeacherID,
		CourseID:  q.CourseID,
	}
	if q.Status != "" {
		status := models.AttendanceStatus(q.Status)
		filter.Status = &status
	}

	var err error
	if filter.From, err = helpers.ParseDate(q.From); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(err.Error()))
		return models.AttendanceFilter{}, false
	}
	if filter.To, err = helpers.ParseDate(q.To); err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(err.Error()))
		return models.AttendanceFilter{}, false
	}
	return filter, true
}
