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

var accountColumns = []string{"id", "username", "password_hash", "role", "teacher_id", "student_id", "created_at"}

// AccountRepository handles account database operations
type AccountRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db, sb: newStatementBuilder()}
}

// linkConflict maps a violation of the one-account-per-profile indexes.
func linkConflict(err error) bool {
	return dberrors.IsDuplicateConstraintError(err, "accounts_teacher_id_key") ||
		dberrors.IsDuplicateConstraintError(err, "accounts_student_id_key")
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.TeacherID, &a.StudentID, &a.CreatedAt)
	return a, err
}

// Create inserts a new account and returns its id.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (int64, error) {
	sql, args, err := r.sb.Insert("accounts").
		Columns("username", "password_hash", "role", "teacher_id", "student_id").
		Values(account.Username, account.PasswordHash, account.Role, account.TeacherID, account.StudentID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create account query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&account.ID, &account.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "accounts_username_key") {
			return 0, apperrors.ErrUsernameTaken
		}
		if linkConflict(err) {
			return 0, apperrors.ErrProfileLinked
		}
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.NewResourceNotFoundError("linked teacher or student not found")
		}
		logger.Error().Err(err).Str("username", account.Username).Msg("Error executing create account query")
		return 0, fmt.Errorf("error creating account: %w", dberrors.Classify(err))
	}
	return account.ID, nil
}

func (r *AccountRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Account, error) {
	sql, args, err := r.sb.Select(accountColumns...).From("accounts").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get account query: %w", err)
	}

	account, err := scanAccount(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("account not found")
		}
		logger.Error().Err(err).Msg("Error scanning account row")
		return nil, fmt.Errorf("error getting account: %w", dberrors.Classify(err))
	}
	return account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves an account by its unique username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

// List returns all accounts ordered by username.
func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	sql, args, err := r.sb.Select(accountColumns...).From("accounts").OrderBy("username ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list accounts query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list accounts query")
		return nil, fmt.Errorf("error querying accounts: %w", dberrors.Classify(err))
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", dberrors.Classify(err))
	}
	return accounts, nil
}

// UpdateLinks replaces both profile links of an account.
func (r *AccountRepository) UpdateLinks(ctx context.Context, id int64, links models.AccountLinks) error {
	sql, args, err := r.sb.Update("accounts").
		Set("teacher_id", links.TeacherID).
		Set("student_id", links.StudentID).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update account links query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewResourceNotFoundError("linked teacher or student not found")
		}
		if linkConflict(err) {
			return apperrors.ErrProfileLinked
		}
		logger.Error().Err(err).Int64("accountID", id).Msg("Error executing update account links query")
		return fmt.Errorf("error updating account links: %w", dberrors.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("account not found")
	}
	return nil
}

// CountByRole counts accounts holding role.
func (r *AccountRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(*)").From("accounts").Where(squirrel.Eq{"role": role}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count accounts query: %w", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting accounts: %w", dberrors.Classify(err))
	}
	return n, nil
}
