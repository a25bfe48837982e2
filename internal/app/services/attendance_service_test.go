package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

func (f *fixture) attendanceService() *AttendanceService {
	svc := NewAttendanceService(f.attendance, f.courses, nil, zerolog.Nop())
	svc.nowFunc = f.clock.Now
	return svc
}

func TestAttendanceService_AtMostOnePerDay(t *testing.T) {
	f := newFixture()
	svc := f.attendanceService()
	room := f.classroom(t, "Ana", "Ruiz")
	ctx := context.Background()

	in := RecordInput{StudentID: *room.student.StudentID, CourseID: room.course.ID, Status: models.StatusLate}

	first, err := svc.Record(ctx, room.teacher, in)
	require.NoError(t, err)
	assert.Equal(t, models.Registered, first.Outcome)
	assert.Equal(t, models.DateOf(f.clock.Now()), first.Record.Date)
	assert.Equal(t, room.course.TeacherID, first.Record.TeacherID)

	in.Status = models.StatusPresent
	second, err := svc.Record(ctx, room.admin, in)
	require.NoError(t, err)
	assert.Equal(t, models.AlreadyRegistered, second.Outcome)
	assert.Len(t, f.store.records(), 1)

	in.Date = f.clock.Now().Add(24 * time.Hour)
	third, err := svc.Record(ctx, room.teacher, in)
	require.NoError(t, err)
	assert.Equal(t, models.Registered, third.Outcome)
	assert.Len(t, f.store.records(), 2)
}

func TestAttendanceService_RecordAuthorization(t *testing.T) {
	f := newFixture()
	svc := f.attendanceService()
	room := f.classroom(t, "Ana", "Ruiz")
	ctx := context.Background()
	in := RecordInput{StudentID: *room.student.StudentID, CourseID: room.course.ID, Status: models.StatusPresent}

	_, err := svc.Record(ctx, room.student, in)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	stranger := models.Identity{Role: models.RoleTeacher, TeacherID: ptr(int64(4242))}
	_, err = svc.Record(ctx, stranger, in)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	in.Status = "SICK"
	_, err = svc.Record(ctx, room.admin, in)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	in.Status = models.StatusPresent
	in.CourseID = 9999
	_, err = svc.Record(ctx, room.admin, in)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestAttendanceService_DeleteOwnership(t *testing.T) {
	f := newFixture()
	svc := f.attendanceService()
	room := f.classroom(t, "Ana", "Ruiz")
	ctx := context.Background()

	res, err := svc.Record(ctx, room.admin, RecordInput{StudentID: *room.student.StudentID, CourseID: room.course.ID, Status: models.StatusAbsent})
	require.NoError(t, err)

	stranger := models.Identity{Role: models.RoleTeacher, TeacherID: ptr(int64(4242))}
	assert.ErrorIs(t, svc.Delete(ctx, stranger, res.Record.ID), apperrors.ErrPermissionDenied)
	assert.ErrorIs(t, svc.Delete(ctx, room.student, res.Record.ID), apperrors.ErrPermissionDenied)

	require.NoError(t, svc.Delete(ctx, room.teacher, res.Record.ID))
	assert.Empty(t, f.store.records())
	assert.ErrorIs(t, svc.Delete(ctx, room.admin, res.Record.ID), apperrors.ErrResourceNotFound)
}

func TestAttendanceService_QueryScoping(t *testing.T) {
	f := newFixture()
	svc := f.attendanceService()
	room := f.classroom(t, "Ana", "Ruiz")
	ctx := context.Background()

	classmate := &models.Student{FirstName: "Luis", LastName: "Vega"}
	_, err := f.students.Create(ctx, classmate)
	require.NoError(t, err)

	for _, in := range []RecordInput{
		{StudentID: *room.student.StudentID, CourseID: room.course.ID, Status: models.StatusPresent},
		{StudentID: classmate.ID, CourseID: room.course.ID, Status: models.StatusAbsent},
		{StudentID: classmate.ID, CourseID: room.course.ID, Status: models.StatusLate, Date: f.clock.Now().AddDate(0, 0, -1)},
	} {
		_, err := svc.Record(ctx, room.admin, in)
		require.NoError(t, err)
	}

	mine, total, err := svc.Query(ctx, room.student, models.AttendanceFilter{StudentID: ptr(classmate.ID)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "students only ever see their own records")
	require.Len(t, mine, 1)
	assert.Equal(t, *room.student.StudentID, mine[0].StudentID)

	all, total, err := svc.Query(ctx, room.teacher, models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	today := f.clock.Now()
	onlyToday, total, err := svc.Query(ctx, room.admin, models.AttendanceFilter{From: &today, To: &today})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, onlyToday, 2)

	paged, total, err := svc.Query(ctx, room.admin, models.AttendanceFilter{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, paged, 1)

	yesterday := today.AddDate(0, 0, -1)
	_, _, err = svc.Query(ctx, room.admin, models.AttendanceFilter{From: &today, To: &yesterday})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	stranger := models.Identity{Role: models.RoleTeacher, TeacherID: ptr(int64(4242))}
	none, total, err := svc.Query(ctx, stranger, models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestAttendanceService_Summary(t *testing.T) {
	f := newFixture()
	svc := f.attendanceService()
	room := f.classroom(t, "Ana", "Ruiz")
	ctx := context.Background()

	for i, status := range []models.AttendanceStatus{models.StatusPresent, models.StatusPresent, models.StatusLate} {
		_, err := svc.Record(ctx, room.teacher, RecordInput{
			StudentID: *room.student.StudentID,
			CourseID:  room.course.ID,
			Status:    status,
			Date:      f.clock.Now().AddDate(0, 0, -i),
		})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, room.student, models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceSummary{Total: 3, Present: 2, Late: 1}, summary)
}
