package dberrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "accounts_username_key"})

	assert.True(t, IsDuplicateConstraintError(err, "accounts_username_key"))
	assert.True(t, IsDuplicateConstraintError(err, ""))
	assert.False(t, IsDuplicateConstraintError(err, "qr_tokens_token_key"))
	assert.False(t, IsDuplicateConstraintError(errors.New("boom"), ""))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: CodeSerializationFailure}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: CodeDeadlockDetected}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: CodeUniqueViolation}))
}

func TestClassify(t *testing.T) {
	timeout := fmt.Errorf("query: %w", context.DeadlineExceeded)
	assert.ErrorIs(t, Classify(timeout), apperrors.ErrStorageUnavailable)

	plain := errors.New("syntax error")
	assert.Equal(t, plain, Classify(plain))
	assert.Nil(t, Classify(nil))
}
