package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/dberrors"
	"github.com/yigit/attendance/internal/pkg/logger"
)

// EnrollmentRepository handles enrollment database operations
type EnrollmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(db *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, sb: newStatementBuilder()}
}

// Enroll adds the student to the course. An existing enrollment is reported
// as AlreadyEnrolled rather than an error.
func (r *EnrollmentRepository) Enroll(ctx context.Context, courseID, studentID int64) (models.EnrollOutcome, error) {
	sql, args, err := r.sb.Insert("enrollments").
		Columns("course_id", "student_id").
		Values(courseID, studentID).
		Suffix("ON CONFLICT (course_id, student_id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build enroll query: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, sql, args...).Scan(&id)
	switch {
	case err == nil:
		return models.Enrolled, nil
	case errors.Is(err, pgx.ErrNoRows):
		return models.AlreadyEnrolled, nil
	case dberrors.IsForeignKeyViolation(err):
		return "", apperrors.NewResourceNotFoundError("course or student not found")
	default:
		logger.Error().Err(err).Int64("courseID", courseID).Int64("studentID", studentID).Msg("Error executing enroll query")
		return "", fmt.Errorf("error enrolling student: %w", dberrors.Classify(err))
	}
}

func (r *EnrollmentRepository) Unenroll(ctx context.Context, courseID, studentID int64) error {
	n, err := execStatement(ctx, r.db, r.sb.Delete("enrollments").
		Where(squirrel.Eq{"course_id": courseID, "student_id": studentID}), "unenroll student")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewResourceNotFoundError("enrollment not found")
	}
	return nil
}

// ListStudents returns the roster of a course ordered by name.
func (r *EnrollmentRepository) ListStudents(ctx context.Context, courseID int64) ([]models.Student, error) {
	sql, args, err := r.sb.Select("s.id", "s.first_name", "s.last_name").
		From("enrollments e").
		Join("students s ON s.id = e.student_id").
		Where(squirrel.Eq{"e.course_id": courseID}).
		OrderBy("s.last_name ASC", "s.first_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build course roster query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("courseID", courseID).Msg("Error executing course roster query")
		return nil, fmt.Errorf("error querying course roster: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName); err != nil {
			return nil, fmt.Errorf("error scanning roster row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster rows: %w", dberrors.Classify(err))
	}
	return students, nil
}
