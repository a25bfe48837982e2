package models

import (
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// ParseRole normalizes user input such as "teacher" into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Account defines the login account stored in the 'accounts' table
type Account struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	TeacherID    *int64    `json:"teacherId,omitempty" db:"teacher_id"`
	StudentID    *int64    `json:"studentId,omitempty" db:"student_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// AccountLinks holds the optional profile links of an account.
type AccountLinks struct {
	TeacherID *int64
	StudentID *int64
}

// Identity returns the request identity derived from the stored account.
func (a *Account) Identity() Identity {
	return Identity{
		AccountID: a.ID,
		Username:  a.Username,
		Role:      a.Role,
		TeacherID: a.TeacherID,
		StudentID: a.StudentID,
	}
}
