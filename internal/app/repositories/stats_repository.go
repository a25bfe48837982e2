package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/dberrors"
	"github.com/yigit/attendance/internal/pkg/logger"
)

// StatsRepository computes read-only aggregates for the dashboard.
type StatsRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db, sb: newStatementBuilder()}
}

func (r *StatsRepository) count(ctx context.Context, table string) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count %s query: %w", table, err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error counting rows")
		return 0, fmt.Errorf("error counting %s: %w", table, dberrors.Classify(err))
	}
	return n, nil
}

// Dashboard gathers entity counts, attendance by status, per-day attendance
// since the given date and the number of courses per teacher.
func (r *StatsRepository) Dashboard(ctx context.Context, since time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		Daily:             []models.DailyCount{},
		CoursesPerTeacher: []models.TeacherCourseCnt{},
	}

	var err error
	if stats.Students, err = r.count(ctx, "students"); err != nil {
		return nil, err
	}
	if stats.Teachers, err = r.count(ctx, "teachers"); err != nil {
		return nil, err
	}
	if stats.Courses, err = r.count(ctx, "courses"); err != nil {
		return nil, err
	}
	if stats.AttendanceRecords, err = r.count(ctx, "attendance_records"); err != nil {
		return nil, err
	}

	if err := r.byStatus(ctx, &stats.ByStatus); err != nil {
		return nil, err
	}
	if stats.Daily, err = r.daily(ctx, models.DateOf(since)); err != nil {
		return nil, err
	}
	if stats.CoursesPerTeacher, err = r.coursesPerTeacher(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *StatsRepository) byStatus(ctx context.Context, summary *models.AttendanceSummary) error {
	sql, args, err := r.sb.Select("status", "COUNT(*)").From("attendance_records").GroupBy("status").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build status count query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error counting attendance by status: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var status models.AttendanceStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return fmt.Errorf("error scanning status count: %w", err)
		}
		summary.Add(status, n)
	}
	return rows.Err()
}

func (r *StatsRepository) daily(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	sql, args, err := r.sb.Select("date", "COUNT(*)").
		From("attendance_records").
		Where(squirrel.GtOrEq{"date": since}).
		GroupBy("date").
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build daily count query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error counting daily attendance: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	daily := []models.DailyCount{}
	for rows.Next() {
		var dc models.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("error scanning daily count: %w", err)
		}
		daily = append(daily, dc)
	}
	return daily, rows.Err()
}

func (r *StatsRepository) coursesPerTeacher(ctx context.Context) ([]models.TeacherCourseCnt, error) {
	sql, args, err := r.sb.Select("t.id", "t.first_name || ' ' || t.last_name", "COUNT(c.id)").
		From("teachers t").
		LeftJoin("courses c ON c.teacher_id = t.id").
		GroupBy("t.id", "t.first_name", "t.last_name").
		OrderBy("COUNT(c.id) DESC", "t.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build courses per teacher query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error counting courses per teacher: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	out := []models.TeacherCourseCnt{}
	for rows.Next() {
		var tc models.TeacherCourseCnt
		if err := rows.Scan(&tc.TeacherID, &tc.Name, &tc.Courses); err != nil {
			return nil, fmt.Errorf("error scanning teacher course count: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
