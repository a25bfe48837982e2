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
	"github.com/yigit/attendance/internal/pkg/helpers"
	"github.com/yigit/attendance/internal/pkg/logger"
)

var attendanceColumns = []string{"id", "student_id", "teacher_id", "course_id", "date", "status", "created_at"}

// AttendanceRepository handles attendance database operations
type AttendanceRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAttendanceRepository creates a new AttendanceRepository
func NewAttendanceRepository(db *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{db: db, sb: newStatementBuilder()}
}

// insertAttendanceIfAbsent is shared by manual entry and QR redemption so
// both go through the same (student, course, date) conflict rule.
func insertAttendanceIfAbsent(ctx context.Context, q querier, sb squirrel.StatementBuilderType, record *models.AttendanceRecord) (bool, error) {
	sql, args, err := sb.Insert("attendance_records").
		Columns("student_id", "teacher_id", "course_id", "date", "status").
		Values(record.StudentID, record.TeacherID, record.CourseID, record.Date, record.Status).
		Suffix("ON CONFLICT (student_id, course_id, date) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert attendance query: %w", err)
	}

	err = q.QueryRow(ctx, sql, args...).Scan(&record.ID, &record.CreatedAt)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case dberrors.IsForeignKeyViolation(err):
		return false, apperrors.NewResourceNotFoundError("student or course not found")
	default:
		if !dberrors.IsRetryable(err) {
			logger.Error().Err(err).Int64("studentID", record.StudentID).Int64("courseID", record.CourseID).Msg("Error executing insert attendance query")
		}
		return false, fmt.Errorf("error inserting attendance: %w", dberrors.Classify(err))
	}
}

func scanAttendance(row pgx.Row) (*models.AttendanceRecord, error) {
	a := &models.AttendanceRecord{}
	err := row.Scan(&a.ID, &a.StudentID, &a.TeacherID, &a.CourseID, &a.Date, &a.Status, &a.CreatedAt)
	return a, err
}

func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	return insertAttendanceIfAbsent(ctx, r.db, r.sb, record)
}

func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	sql, args, err := r.sb.Select(attendanceColumns...).From("attendance_records").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get attendance query: %w", err)
	}
	record, err := scanAttendance(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("attendance record not found")
		}
		return nil, fmt.Errorf("error getting attendance record: %w", dberrors.Classify(err))
	}
	return record, nil
}

func (r *AttendanceRepository) Delete(ctx context.Context, id int64) error {
	n, err := execStatement(ctx, r.db, r.sb.Delete("attendance_records").Where(squirrel.Eq{"id": id}), "delete attendance")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewResourceNotFoundError("attendance record not found")
	}
	return nil
}

func attendanceConditions(f models.AttendanceFilter) squirrel.And {
	conds := squirrel.And{}
	if f.StudentID != nil {
		conds = append(conds, squirrel.Eq{"student_id": *f.StudentID})
	}
	if f.TeacherID != nil {
		conds = append(conds, squirrel.Eq{"teacher_id": *f.TeacherID})
	}
	if f.CourseID != nil {
		conds = append(conds, squirrel.Eq{"course_id": *f.CourseID})
	}
	if f.Status != nil {
		conds = append(conds, squirrel.Eq{"status": *f.Status})
	}
	if f.From != nil {
		conds = append(conds, squirrel.GtOrEq{"date": models.DateOf(*f.From)})
	}
	if f.To != nil {
		conds = append(conds, squirrel.LtOrEq{"date": models.DateOf(*f.To)})
	}
	return conds
}

// Query returns one page of records matching filter, newest first, together
// with the total number of matches.
func (r *AttendanceRepository) Query(ctx context.Context, filter models.AttendanceFilter) ([]*models.AttendanceRecord, int64, error) {
	conds := attendanceConditions(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("attendance_records").Where(conds).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count attendance query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting attendance records")
		return nil, 0, fmt.Errorf("error counting attendance: %w", dberrors.Classify(err))
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Size)
	sql, args, err := r.sb.Select(attendanceColumns...).
		From("attendance_records").
		Where(conds).
		OrderBy("date DESC", "id DESC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query attendance query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing attendance query")
		return nil, 0, fmt.Errorf("error querying attendance: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	records := []*models.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning attendance row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating attendance rows: %w", dberrors.Classify(err))
	}
	return records, total, nil
}

// Summary counts matching records per status.
func (r *AttendanceRepository) Summary(ctx context.Context, filter models.AttendanceFilter) (models.AttendanceSummary, error) {
	var summary models.AttendanceSummary

	sql, args, err := r.sb.Select("status", "COUNT(*)").
		From("attendance_records").
		Where(attendanceConditions(filter)).
		GroupBy("status").
		ToSql()
	if err != nil {
		return summary, fmt.Errorf("failed to build attendance summary query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing attendance summary query")
		return summary, fmt.Errorf("error summarizing attendance: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var status models.AttendanceStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return summary, fmt.Errorf("error scanning summary row: %w", err)
		}
		summary.Add(status, n)
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("error iterating summary rows: %w", dberrors.Classify(err))
	}
	return summary, nil
}
