package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/dberrors"
	"github.com/yigit/attendance/internal/pkg/logger"
)

const courseSlotConstraint = "courses_teacher_slot_key"

// CourseRepository handles course database operations
type CourseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{db: db, sb: newStatementBuilder()}
}

func (r *CourseRepository) selectCourses() squirrel.SelectBuilder {
	return r.sb.Select(
		"c.id", "c.name", "c.description", "c.teacher_id", "c.time_slot",
		"CASE WHEN t.id IS NULL THEN NULL ELSE t.first_name || ' ' || t.last_name END",
	).
		From("courses c").
		LeftJoin("teachers t ON t.id = c.teacher_id")
}

func (r *CourseRepository) queryCourses(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Course, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build course query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing course query")
		return nil, fmt.Errorf("error querying courses: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c := &models.Course{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.TeacherID, &c.TimeSlot, &c.TeacherName); err != nil {
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", dberrors.Classify(err))
	}
	return courses, nil
}

func mapCourseWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, courseSlotConstraint):
		return apperrors.ErrScheduleConflict
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.NewResourceNotFoundError("teacher not found")
	default:
		return dberrors.Classify(err)
	}
}

// Create inserts a course. A concurrent insert that slips past the service
// level conflict check is still caught by the partial unique index.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (int64, error) {
	sql, args, err := r.sb.Insert("courses").
		Columns("name", "description", "teacher_id", "time_slot").
		Values(course.Name, course.Description, course.TeacherID, course.TimeSlot).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&course.ID); err != nil {
		mapped := mapCourseWriteError(err)
		if mapped == err || errors.Is(mapped, apperrors.ErrStorageUnavailable) {
			logger.Error().Err(err).Msg("Error executing create course query")
			return 0, fmt.Errorf("error creating course: %w", mapped)
		}
		return 0, mapped
	}
	return course.ID, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	courses, err := r.queryCourses(ctx, r.selectCourses().Where(squirrel.Eq{"c.id": id}).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, apperrors.NewResourceNotFoundError("course not found")
	}
	return courses[0], nil
}

func (r *CourseRepository) List(ctx context.Context) ([]*models.Course, error) {
	return r.queryCourses(ctx, r.selectCourses().OrderBy("c.time_slot ASC", "c.name ASC"))
}

// ListByTeacher returns the courses assigned to a teacher ordered by period.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*models.Course, error) {
	return r.queryCourses(ctx, r.selectCourses().
		Where(squirrel.Eq{"c.teacher_id": teacherID}).
		OrderBy("c.time_slot ASC", "c.name ASC"))
}

// ListByStudent returns the courses a student is enrolled in.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.Course, error) {
	return r.queryCourses(ctx, r.selectCourses().
		Join("enrollments e ON e.course_id = c.id").
		Where(squirrel.Eq{"e.student_id": studentID}).
		OrderBy("c.time_slot ASC", "c.name ASC"))
}

// Update applies the non-nil fields of update.
func (r *CourseRepository) Update(ctx context.Context, id int64, update models.CourseUpdate) error {
	if update.Empty() {
		_, err := r.GetByID(ctx, id)
		return err
	}

	query := r.sb.Update("courses").Where(squirrel.Eq{"id": id})
	if update.Name != nil {
		query = query.Set("name", *update.Name)
	}
	if update.Description != nil {
		query = query.Set("description", *update.Description)
	}
	if update.ClearTeacher {
		query = query.Set("teacher_id", nil)
	} else if update.TeacherID != nil {
		query = query.Set("teacher_id", *update.TeacherID)
	}
	if update.TimeSlot != nil {
		query = query.Set("time_slot", *update.TimeSlot)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		mapped := mapCourseWriteError(err)
		if mapped == err || errors.Is(mapped, apperrors.ErrStorageUnavailable) {
			logger.Error().Err(err).Int64("courseID", id).Msg("Error executing update course query")
			return fmt.Errorf("error updating course: %w", mapped)
		}
		return mapped
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("course not found")
	}
	return nil
}

// Delete removes a course together with its enrollments, attendance records
// and QR tokens.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	return db.InTx(ctx, r.db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		for _, table := range []string{"enrollments", "attendance_records", "qr_tokens"} {
			if _, err := execStatement(ctx, tx, r.sb.Delete(table).Where(squirrel.Eq{"course_id": id}), "delete course "+table); err != nil {
				return err
			}
		}
		n, err := execStatement(ctx, tx, r.sb.Delete("courses").Where(squirrel.Eq{"id": id}), "delete course")
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.NewResourceNotFoundError("course not found")
		}
		return nil
	})
}

// SlotTaken reports whether teacherID already teaches another course in slot.
func (r *CourseRepository) SlotTaken(ctx context.Context, teacherID int64, slot models.TimeSlot, excludeCourseID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		From("courses").
		Where(squirrel.Eq{"teacher_id": teacherID, "time_slot": slot}).
		Where(squirrel.NotEq{"id": excludeCourseID}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build slot check query: %w", err)
	}

	var taken bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&taken); err != nil {
		logger.Error().Err(err).Int64("teacherID", teacherID).Str("slot", string(slot)).Msg("Error checking teacher slot")
		return false, fmt.Errorf("error checking teacher slot: %w", dberrors.Classify(err))
	}
	return taken, nil
}
