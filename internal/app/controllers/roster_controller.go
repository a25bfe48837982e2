package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/middleware"
)

// RosterService is the roster store as seen by the HTTP layer.
type RosterService interface {
	CreateStudent(ctx context.Context, identity models.Identity, firstName, lastName string) (*models.Student, error)
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	ListStudents(ctx context.Context) ([]*models.Student, error)
	UpdateStudent(ctx context.Context, identity models.Identity, id int64, update models.PersonUpdate) (*models.Student, error)
	DeleteStudent(ctx context.Context, identity models.Identity, id int64) error

	CreateTeacher(ctx context.Context, identity models.Identity, firstName, lastName string) (*models.Teacher, error)
	GetTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	ListTeachers(ctx context.Context) ([]*models.Teacher, error)
	UpdateTeacher(ctx context.Context, identity models.Identity, id int64, update models.PersonUpdate) (*models.Teacher, error)
	DeleteTeacher(ctx context.Context, identity models.Identity, id int64) error

	CreateCourse(ctx context.Context, identity models.Identity, course models.Course) (*models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	ListCourses(ctx context.Context) ([]*models.Course, error)
	UpdateCourse(ctx context.Context, identity models.Identity, id int64, update models.CourseUpdate) (*models.Course, error)
	DeleteCourse(ctx context.Context, identity models.Identity, id int64) error

	Enroll(ctx context.Context, identity models.Identity, courseID, studentID int64) (models.EnrollOutcome, error)
	Unenroll(ctx context.Context, identity models.Identity, courseID, studentID int64) error
	CourseRoster(ctx context.Context, courseID int64) (*models.CourseRoster, error)
	TeacherClasses(ctx context.Context, identity models.Identity) ([]models.CourseRoster, error)
	StudentCourses(ctx context.Context, identity models.Identity) ([]*models.Course, error)
	TimeSlots() []models.TimeSlot
}

// RosterController handles students, teachers, courses and enrollments
type RosterController struct {
	roster RosterService
	logger zerolog.Logger
}

// NewRosterController creates a new RosterController
func NewRosterController(roster RosterService, logger zerolog.Logger) *RosterController {
	return &RosterController{
		roster: roster,
		logger: logger,
	}
}

// CreateStudent adds a student. Admin only.
func (c *RosterController) CreateStudent(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	var req dto.PersonRequest
	if !bindJSON(ctx, &req) {
		return
	}

	student, err := c.roster.CreateStudent(ctx.Request.Context(), identity, req.FirstName, req.LastName)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(student, "Student created"))
}

func (c *RosterController) GetStudent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	student, err := c.roster.GetStudent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}

func (c *RosterController) ListStudents(ctx *gin.Context) {
	students, err := c.roster.ListStudents(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(students, ""))
}

// UpdateStudent renames a student. Admin only.
func (c *RosterController) UpdateStudent(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdatePersonRequest
	if !bindJSON(ctx, &req) {
		return
	}

	student, err := c.roster.UpdateStudent(ctx.Request.Context(), identity, id, req.ToUpdate())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Student updated"))
}

// DeleteStudent removes a student with its enrollments and attendance.
func (c *RosterController) DeleteStudent(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.roster.DeleteStudent(ctx.Request.Context(), identity, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Int64("studentID", id).Int64("by", identity.AccountID).Msg("Student deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student deleted"))
}

// CreateTeacher adds a teacher. Admin only.
func (c *RosterController) CreateTeacher(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	var req dto.PersonRequest
	if !bindJSON(ctx, &req) {
		return
	}

	teacher, err := c.roster.CreateTeacher(ctx.Request.Context(), identity, req.FirstName, req.LastName)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(teacher, "Teacher created"))
}

func (c *RosterController) GetTeacher(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	teacher, err := c.roster.GetTeacher(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(teacher, ""))
}

func (c *RosterController) ListTeachers(ctx *gin.Context) {
	teachers, err := c.roster.ListTeachers(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(teachers, ""))
}

func (c *RosterController) UpdateTeacher(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdatePersonRequest
	if !bindJSON(ctx, &req) {
		return
	}

	teacher, err := c.roster.UpdateTeacher(ctx.Request.Context(), identity, id, req.ToUpdate())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(teacher, "Teacher updated"))
}

// DeleteTeacher removes a teacher. Their courses stay without a teacher.
func (c *RosterController) DeleteTeacher(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.roster.DeleteTeacher(ctx.Request.Context(), identity, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Int64("teacherID", id).Int64("by", identity.AccountID).Msg("Teacher deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Teacher deleted"))
}

// TimeSlots lists the fixed class periods courses can be scheduled in.
func (c *RosterController) TimeSlots(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.roster.TimeSlots(), ""))
}

// MyClasses returns the calling teacher's courses with their students.
func (c *RosterController) MyClasses(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	classes, err := c.roster.TeacherClasses(ctx.Request.Context(), identity)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(classes, ""))
}

// MyCourses returns the courses the calling student is enrolled in.
func (c *RosterController) MyCourses(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	courses, err := c.roster.StudentCourses(ctx.Request.Context(), identity)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses, ""))
}
