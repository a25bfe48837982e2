package models

import (
	"fmt"

	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// Identity is the authenticated caller of a service operation. It is built
// per request from the stored account and passed explicitly to services.
type Identity struct {
	AccountID int64
	Username  string
	Role      Role
	TeacherID *int64
	StudentID *int64
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// TeacherRef returns the linked teacher id of a teacher account.
func (i Identity) TeacherRef() (int64, error) {
	if i.Role != RoleTeacher {
		return 0, fmt.Errorf("%w: teacher role required", apperrors.ErrPermissionDenied)
	}
	if i.TeacherID == nil {
		return 0, fmt.Errorf("%w: account is not linked to a teacher", apperrors.ErrPermissionDenied)
	}
	return *i.TeacherID, nil
}

// StudentRef returns the linked student id of a student account.
func (i Identity) StudentRef() (int64, error) {
	if i.Role != RoleStudent {
		return 0, fmt.Errorf("%w: student role required", apperrors.ErrPermissionDenied)
	}
	if i.StudentID == nil {
		return 0, fmt.Errorf("%w: account is not linked to a student", apperrors.ErrPermissionDenied)
	}
	return *i.StudentID, nil
}

// RequireAdmin fails unless the caller is an administrator.
func (i Identity) RequireAdmin() error {
	if !i.IsAdmin() {
		return fmt.Errorf("%w: admin role required", apperrors.ErrPermissionDenied)
	}
	return nil
}
