package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/dberrors"
	"github.com/yigit/attendance/internal/pkg/logger"
)

// redemptionAttempts bounds how often a redemption unit is re-run after a
// serialization failure.
const redemptionAttempts = 3

var qrTokenColumns = []string{"id", "token", "course_id", "teacher_id", "created_at", "expires_at", "active", "single_use"}

// QrTokenRepository handles QR token database operations
type QrTokenRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewQrTokenRepository creates a new QrTokenRepository
func NewQrTokenRepository(db *pgxpool.Pool) *QrTokenRepository {
	return &QrTokenRepository{db: db, sb: newStatementBuilder()}
}

func scanQrToken(row pgx.Row) (*models.QrToken, error) {
	t := &models.QrToken{}
	err := row.Scan(&t.ID, &t.Token, &t.CourseID, &t.TeacherID, &t.CreatedAt, &t.ExpiresAt, &t.Active, &t.SingleUse)
	return t, err
}

// Create stores a newly issued token. A collision on the token text is
// reported as apperrors.ErrConflict so the caller can draw a new value.
func (r *QrTokenRepository) Create(ctx context.Context, token *models.QrToken) (int64, error) {
	sql, args, err := r.sb.Insert("qr_tokens").
		Columns("token", "course_id", "teacher_id", "created_at", "expires_at", "active", "single_use").
		Values(token.Token, token.CourseID, token.TeacherID, token.CreatedAt, token.ExpiresAt, token.Active, token.SingleUse).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create qr token query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&token.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "qr_tokens_token_key") {
			return 0, apperrors.NewConflictError("qr token already exists")
		}
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.NewResourceNotFoundError("course or teacher not found")
		}
		logger.Error().Err(err).Int64("courseID", token.CourseID).Msg("Error executing create qr token query")
		return 0, fmt.Errorf("error creating qr token: %w", dberrors.Classify(err))
	}
	return token.ID, nil
}

// ListRecent returns the newest tokens first, optionally for one teacher.
func (r *QrTokenRepository) ListRecent(ctx context.Context, teacherID *int64, limit uint64) ([]*models.QrToken, error) {
	query := r.sb.Select(qrTokenColumns...).From("qr_tokens").OrderBy("created_at DESC", "id DESC").Limit(limit)
	if teacherID != nil {
		query = query.Where(squirrel.Eq{"teacher_id": *teacherID})
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list qr tokens query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list qr tokens query")
		return nil, fmt.Errorf("error querying qr tokens: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	tokens := []*models.QrToken{}
	for rows.Next() {
		t, err := scanQrToken(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning qr token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating qr token rows: %w", dberrors.Classify(err))
	}
	return tokens, nil
}

func (r *QrTokenRepository) DeactivateExpired(ctx context.Context, now time.Time, teacherID *int64) (int64, error) {
	stmt := r.sb.Update("qr_tokens").
		Set("active", false).
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Lt{"expires_at": now})
	if teacherID != nil {
		stmt = stmt.Where(squirrel.Eq{"teacher_id": *teacherID})
	}
	return execStatement(ctx, r.db, stmt, "deactivate expired qr tokens")
}

// RunRedemption runs fn in a serializable transaction. The whole unit is
// retried when PostgreSQL aborts it with a serialization failure.
func (r *QrTokenRepository) RunRedemption(ctx context.Context, fn func(ctx context.Context, tx RedemptionTx) error) error {
	return db.InSerializableTx(ctx, r.db, redemptionAttempts, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgxRedemptionTx{tx: tx, sb: r.sb})
	})
}

type pgxRedemptionTx struct {
	tx pgx.Tx
	sb squirrel.StatementBuilderType
}

func (t *pgxRedemptionTx) LockToken(ctx context.Context, token string) (*models.QrToken, error) {
	sql, args, err := t.sb.Select(qrTokenColumns...).
		From("qr_tokens").
		Where(squirrel.Eq{"token": token}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock qr token query: %w", err)
	}

	qt, err := scanQrToken(t.tx.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("qr token not found")
		}
		return nil, fmt.Errorf("error locking qr token: %w", dberrors.Classify(err))
	}
	return qt, nil
}

func (t *pgxRedemptionTx) DeactivateToken(ctx context.Context, id int64) error {
	_, err := execStatement(ctx, t.tx, t.sb.Update("qr_tokens").Set("active", false).Where(squirrel.Eq{"id": id}), "deactivate qr token")
	return err
}

func (t *pgxRedemptionTx) InsertAttendanceIfAbsent(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	return insertAttendanceIfAbsent(ctx, t.tx, t.sb, record)
}
