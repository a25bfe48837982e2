package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/helpers"
	"github.com/yigit/attendance/internal/pkg/metrics"
)

// RecordInput is a manual attendance entry. A zero Date means today (UTC).
type RecordInput struct {
	StudentID int64
	CourseID  int64
	Date      time.Time
	Status    models.AttendanceStatus
}

// AttendanceService is the attendance ledger. Records are unique per
// (student, course, date) whichever path writes them.
type AttendanceService struct {
	attendanceRepo repositories.IAttendanceRepository
	courseRepo     repositories.ICourseRepository
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	nowFunc        func() time.Time
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(
	attendanceRepo repositories.IAttendanceRepository,
	courseRepo repositories.ICourseRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		attendanceRepo: attendanceRepo,
		courseRepo:     courseRepo,
		metrics:        m,
		logger:         logger,
		nowFunc:        time.Now,
	}
}

// Record writes a manual entry. Admins may record for any course, teachers
// only for courses they teach. A second entry for the same day reports
// models.AlreadyRegistered.
func (s *AttendanceService) Record(ctx context.Context, identity models.Identity, in RecordInput) (*models.RecordResult, error) {
	if !in.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid attendance status %q", in.Status))
	}
	if in.StudentID <= 0 || in.CourseID <= 0 {
		return nil, apperrors.NewValidationError("student and course are required")
	}

	course, err := s.courseRepo.GetByID(ctx, in.CourseID)
	if err != nil {
		return nil, err
	}

	switch identity.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		teacherID, err := identity.TeacherRef()
		if err != nil {
			return nil, err
		}
		if course.TeacherID == nil || *course.TeacherID != teacherID {
			return nil, apperrors.NewForbiddenError("you do not teach this course")
		}
	default:
		return nil, apperrors.NewForbiddenError("only admins and teachers can record attendance")
	}

	date := in.Date
	if date.IsZero() {
		date = s.nowFunc()
	}
	record := &models.AttendanceRecord{
		StudentID: in.StudentID,
		TeacherID: course.TeacherID,
		CourseID:  course.ID,
		Date:      models.DateOf(date),
		Status:    in.Status,
	}

	inserted, err := s.attendanceRepo.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.metrics.AttendanceWritten(string(models.AlreadyRegistered))
		return &models.RecordResult{Outcome: models.AlreadyRegistered}, nil
	}

	s.metrics.AttendanceWritten(string(models.Registered))
	s.logger.Info().
		Int64("studentID", record.StudentID).
		Int64("courseID", record.CourseID).
		Str("status", string(record.Status)).
		Msg("Attendance recorded")
	return &models.RecordResult{Outcome: models.Registered, Record: record}, nil
}

// Delete removes a record. Teachers may only delete records of their own.
func (s *AttendanceService) Delete(ctx context.Context, identity models.Identity, id int64) error {
	switch identity.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		teacherID, err := identity.TeacherRef()
		if err != nil {
			return err
		}
		record, err := s.attendanceRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if record.TeacherID == nil || *record.TeacherID != teacherID {
			return apperrors.NewForbiddenError("you can only delete your own attendance records")
		}
	default:
		return apperrors.NewForbiddenError("only admins and teachers can delete attendance")
	}

	if err := s.attendanceRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("attendanceID", id).Msg("Attendance deleted")
	return nil
}

// scopeAttendance narrows filter to what identity may see.
func scopeAttendance(identity models.Identity, filter models.AttendanceFilter) (models.AttendanceFilter, error) {
	switch identity.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		teacherID, err := identity.TeacherRef()
		if err != nil {
			return filter, err
		}
		filter.TeacherID = &teacherID
	case models.RoleStudent:
		studentID, err := identity.StudentRef()
		if err != nil {
			return filter, err
		}
		filter.StudentID = &studentID
	default:
		return filter, fmt.Errorf("%w: unknown role %q", apperrors.ErrPermissionDenied, identity.Role)
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, apperrors.NewValidationError("from must not be after to")
	}
	return filter, nil
}

// Query returns one page of records visible to identity and the total.
func (s *AttendanceService) Query(ctx context.Context, identity models.Identity, filter models.AttendanceFilter) ([]*models.AttendanceRecord, int64, error) {
	filter, err := scopeAttendance(identity, filter)
	if err != nil {
		return nil, 0, err
	}
	filter.Page, filter.Size = helpers.NormalizePage(filter.Page, filter.Size)
	return s.attendanceRepo.Query(ctx, filter)
}

// Summary counts records per status for what identity may see.
func (s *AttendanceService) Summary(ctx context.Context, identity models.Identity, filter models.AttendanceFilter) (models.AttendanceSummary, error) {
	filter, err := scopeAttendance(identity, filter)
	if err != nil {
		return models.AttendanceSummary{}, err
	}
	return s.attendanceRepo.Summary(ctx, filter)
}
