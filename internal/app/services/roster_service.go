package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// RosterService manages students, teachers, courses and enrollments.
// Writes are admin-only; reads are open to any authenticated caller.
type RosterService struct {
	studentRepo    repositories.IStudentRepository
	teacherRepo    repositories.ITeacherRepository
	courseRepo     repositories.ICourseRepository
	enrollmentRepo repositories.IEnrollmentRepository
	logger         zerolog.Logger
}

// NewRosterService creates a new RosterService
func NewRosterService(
	studentRepo repositories.IStudentRepository,
	teacherRepo repositories.ITeacherRepository,
	courseRepo repositories.ICourseRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	logger zerolog.Logger,
) *RosterService {
	return &RosterService{
		studentRepo:    studentRepo,
		teacherRepo:    teacherRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		logger:         logger,
	}
}

func requireName(first, last string) error {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(last) == "" {
		return apperrors.NewValidationError("first name and last name are required")
	}
	return nil
}

func validatePersonUpdate(update models.PersonUpdate) error {
	if update.FirstName != nil && strings.TrimSpace(*update.FirstName) == "" {
		return apperrors.NewValidationError("first name cannot be empty")
	}
	if update.LastName != nil && strings.TrimSpace(*update.LastName) == "" {
		return apperrors.NewValidationError("last name cannot be empty")
	}
	return nil
}

// Students

func (s *RosterService) CreateStudent(ctx context.Context, identity models.Identity, firstName, lastName string) (*models.Student, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := requireName(firstName, lastName); err != nil {
		return nil, err
	}
	student := &models.Student{FirstName: strings.TrimSpace(firstName), LastName: strings.TrimSpace(lastName)}
	if _, err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("studentID", student.ID).Msg("Student created")
	return student, nil
}

func (s *RosterService) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

func (s *RosterService) ListStudents(ctx context.Context) ([]*models.Student, error) {
	return s.studentRepo.List(ctx)
}

func (s *RosterService) UpdateStudent(ctx context.Context, identity models.Identity, id int64, update models.PersonUpdate) (*models.Student, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validatePersonUpdate(update); err != nil {
		return nil, err
	}
	if err := s.studentRepo.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.studentRepo.GetByID(ctx, id)
}

// DeleteStudent removes the student with its enrollments and attendance and
// clears any account link to it.
func (s *RosterService) DeleteStudent(ctx context.Context, identity models.Identity, id int64) error {
	if err := identity.RequireAdmin(); err != nil {
		return err
	}
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("studentID", id).Msg("Student deleted")
	return nil
}

// Teachers

func (s *RosterService) CreateTeacher(ctx context.Context, identity models.Identity, firstName, lastName string) (*models.Teacher, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := requireName(firstName, lastName); err != nil {
		return nil, err
	}
	teacher := &models.Teacher{FirstName: strings.TrimSpace(firstName), LastName: strings.TrimSpace(lastName)}
	if _, err := s.teacherRepo.Create(ctx, teacher); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("teacherID", teacher.ID).Msg("Teacher created")
	return teacher, nil
}

func (s *RosterService) GetTeacher(ctx context.Context, id int64) (*models.Teacher, error) {
	return s.teacherRepo.GetByID(ctx, id)
}

func (s *RosterService) ListTeachers(ctx context.Context) ([]*models.Teacher, error) {
	return s.teacherRepo.List(ctx)
}

func (s *RosterService) UpdateTeacher(ctx context.Context, identity models.Identity, id int64, update models.PersonUpdate) (*models.Teacher, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validatePersonUpdate(update); err != nil {
		return nil, err
	}
	if err := s.teacherRepo.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.teacherRepo.GetByID(ctx, id)
}

// DeleteTeacher unassigns the teacher's courses, clears account links and
// drops the teacher's QR tokens before removing the teacher.
func (s *RosterService) DeleteTeacher(ctx context.Context, identity models.Identity, id int64) error {
	if err := identity.RequireAdmin(); err != nil {
		return err
	}
	if err := s.teacherRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("teacherID", id).Msg("Teacher deleted")
	return nil
}

// Courses

// checkSchedule rejects a course whose teacher already teaches a different
// course in the same slot.
func (s *RosterService) checkSchedule(ctx context.Context, course models.Course) error {
	if !course.TimeSlot.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid time slot %q", course.TimeSlot))
	}
	if course.TeacherID == nil {
		return nil
	}
	if _, err := s.teacherRepo.GetByID(ctx, *course.TeacherID); err != nil {
		return err
	}
	taken, err := s.courseRepo.SlotTaken(ctx, *course.TeacherID, course.TimeSlot, course.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.ErrScheduleConflict
	}
	return nil
}

func (s *RosterService) CreateCourse(ctx context.Context, identity models.Identity, course models.Course) (*models.Course, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	course.Name = strings.TrimSpace(course.Name)
	if course.Name == "" {
		return nil, apperrors.NewValidationError("course name is required")
	}
	course.ID = 0
	if err := s.checkSchedule(ctx, course); err != nil {
		return nil, err
	}
	if _, err := s.courseRepo.Create(ctx, &course); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("courseID", course.ID).Str("slot", string(course.TimeSlot)).Msg("Course created")
	return s.courseRepo.GetByID(ctx, course.ID)
}

func (s *RosterService) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

func (s *RosterService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	return s.courseRepo.List(ctx)
}

// UpdateCourse applies update after re-checking the schedule of the
// resulting course.
func (s *RosterService) UpdateCourse(ctx context.Context, identity models.Identity, id int64, update models.CourseUpdate) (*models.Course, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, apperrors.NewValidationError("course name cannot be empty")
	}

	current, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return current, nil
	}
	if err := s.checkSchedule(ctx, update.Apply(*current)); err != nil {
		return nil, err
	}
	if err := s.courseRepo.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.courseRepo.GetByID(ctx, id)
}

// DeleteCourse removes the course with its enrollments, attendance and tokens.
func (s *RosterService) DeleteCourse(ctx context.Context, identity models.Identity, id int64) error {
	if err := identity.RequireAdmin(); err != nil {
		return err
	}
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("courseID", id).Msg("Course deleted")
	return nil
}

// Enrollments

// Enroll adds a student to a course. Enrolling twice is not an error and
// reports models.AlreadyEnrolled.
func (s *RosterService) Enroll(ctx context.Context, identity models.Identity, courseID, studentID int64) (models.EnrollOutcome, error) {
	if err := identity.RequireAdmin(); err != nil {
		return "", err
	}
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return "", err
	}
	if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
		return "", err
	}
	return s.enrollmentRepo.Enroll(ctx, courseID, studentID)
}

func (s *RosterService) Unenroll(ctx context.Context, identity models.Identity, courseID, studentID int64) error {
	if err := identity.RequireAdmin(); err != nil {
		return err
	}
	return s.enrollmentRepo.Unenroll(ctx, courseID, studentID)
}

// CourseRoster returns a course with its enrolled students.
func (s *RosterService) CourseRoster(ctx context.Context, courseID int64) (*models.CourseRoster, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	students, err := s.enrollmentRepo.ListStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &models.CourseRoster{Course: *course, Students: students}, nil
}

// TeacherClasses lists the caller's courses with their rosters.
func (s *RosterService) TeacherClasses(ctx context.Context, identity models.Identity) ([]models.CourseRoster, error) {
	teacherID, err := identity.TeacherRef()
	if err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	classes := make([]models.CourseRoster, 0, len(courses))
	for _, c := range courses {
		students, err := s.enrollmentRepo.ListStudents(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		classes = append(classes, models.CourseRoster{Course: *c, Students: students})
	}
	return classes, nil
}

// StudentCourses lists the courses the caller is enrolled in.
func (s *RosterService) StudentCourses(ctx context.Context, identity models.Identity) ([]*models.Course, error) {
	studentID, err := identity.StudentRef()
	if err != nil {
		return nil, err
	}
	return s.courseRepo.ListByStudent(ctx, studentID)
}

// TimeSlots returns the period catalogue.
func (s *RosterService) TimeSlots() []models.TimeSlot {
	out := make([]models.TimeSlot, len(models.TimeSlots))
	copy(out, models.TimeSlots)
	return out
}
