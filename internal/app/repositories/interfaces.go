package repositories

import (
	"context"
	"time"

	"github.com/yigit/attendance/internal/app/models"
)

// IAccountRepository persists login accounts.
type IAccountRepository interface {
	Create(ctx context.Context, account *models.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	UpdateLinks(ctx context.Context, id int64, links models.AccountLinks) error
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

// IStudentRepository persists students. Delete removes the student's
// enrollments and attendance and unlinks accounts in the same transaction.
type IStudentRepository interface {
	Create(ctx context.Context, student *models.Student) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	List(ctx context.Context) ([]*models.Student, error)
	Update(ctx context.Context, id int64, update models.PersonUpdate) error
	Delete(ctx context.Context, id int64) error
}

// ITeacherRepository persists teachers. Delete unassigns the teacher's
// courses, unlinks accounts and drops the teacher's QR tokens in the same
// transaction.
type ITeacherRepository interface {
	Create(ctx context.Context, teacher *models.Teacher) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Teacher, error)
	List(ctx context.Context) ([]*models.Teacher, error)
	Update(ctx context.Context, id int64, update models.PersonUpdate) error
	Delete(ctx context.Context, id int64) error
}

// ICourseRepository persists courses. Create and Update return
// apperrors.ErrScheduleConflict when the (teacher, time slot) pair is taken.
type ICourseRepository interface {
	Create(ctx context.Context, course *models.Course) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context) ([]*models.Course, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*models.Course, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*models.Course, error)
	Update(ctx context.Context, id int64, update models.CourseUpdate) error
	Delete(ctx context.Context, id int64) error
	SlotTaken(ctx context.Context, teacherID int64, slot models.TimeSlot, excludeCourseID int64) (bool, error)
}

// IEnrollmentRepository links students to courses.
type IEnrollmentRepository interface {
	Enroll(ctx context.Context, courseID, studentID int64) (models.EnrollOutcome, error)
	Unenroll(ctx context.Context, courseID, studentID int64) error
	ListStudents(ctx context.Context, courseID int64) ([]models.Student, error)
}

// IAttendanceRepository persists attendance records.
type IAttendanceRepository interface {
	// InsertIfAbsent stores record unless one already exists for its
	// (student, course, date). It reports whether a row was created and
	// fills in ID and CreatedAt when it was.
	InsertIfAbsent(ctx context.Context, record *models.AttendanceRecord) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, id int64) error
	Query(ctx context.Context, filter models.AttendanceFilter) ([]*models.AttendanceRecord, int64, error)
	Summary(ctx context.Context, filter models.AttendanceFilter) (models.AttendanceSummary, error)
}

// RedemptionTx is the set of operations available inside a redemption unit.
type RedemptionTx interface {
	// LockToken loads the token row and holds it until the unit ends.
	// Missing tokens yield apperrors.ErrResourceNotFound.
	LockToken(ctx context.Context, token string) (*models.QrToken, error)
	DeactivateToken(ctx context.Context, id int64) error
	InsertAttendanceIfAbsent(ctx context.Context, record *models.AttendanceRecord) (bool, error)
}

// IQrTokenRepository persists QR tokens.
type IQrTokenRepository interface {
	Create(ctx context.Context, token *models.QrToken) (int64, error)
	ListRecent(ctx context.Context, teacherID *int64, limit uint64) ([]*models.QrToken, error)
	// DeactivateExpired flips every active token with expires_at < now to
	// inactive, optionally only for one teacher.
	DeactivateExpired(ctx context.Context, now time.Time, teacherID *int64) (int64, error)
	// RunRedemption executes fn as one serializable unit. When fn returns
	// nil the unit commits; otherwise it rolls back.
	RunRedemption(ctx context.Context, fn func(ctx context.Context, tx RedemptionTx) error) error
}

// IStatsRepository computes dashboard aggregates.
type IStatsRepository interface {
	Dashboard(ctx context.Context, since time.Time) (*models.DashboardStats, error)
}
