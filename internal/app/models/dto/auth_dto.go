package dto

import (
	"github.com/yigit/attendance/internal/app/models"
)

// RegisterRequest creates a login account. Role is ADMIN, TEACHER or STUDENT
// (case-insensitive); the optional link must match the role.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=64"`
	Password  string `json:"password" binding:"required,min=6,max=128"`
	Role      string `json:"role" binding:"required"`
	TeacherID *int64 `json:"teacherId,omitempty" binding:"omitempty,min=1"`
	StudentID *int64 `json:"studentId,omitempty" binding:"omitempty,min=1"`
}

// LoginRequest authenticates an account. QrToken, when present, is redeemed
// right after a successful login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	QrToken  string `json:"qrToken,omitempty"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	TeacherID *int64      `json:"teacherId,omitempty"`
	StudentID *int64      `json:"studentId,omitempty"`
}

// NewAccountResponse builds the public view of a stored account.
func NewAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Role:      a.Role,
		TeacherID: a.TeacherID,
		StudentID: a.StudentID,
	}
}

// LoginResponse carries the access token and, when a QR token was supplied,
// the outcome of the check-in.
type LoginResponse struct {
	AccessToken string               `json:"accessToken"`
	TokenType   string               `json:"tokenType"`
	ExpiresIn   int                  `json:"expiresIn"`
	Account     AccountResponse      `json:"account"`
	CheckIn     *models.RecordResult `json:"checkIn,omitempty"`
	CheckInErr  *ErrorDetail         `json:"checkInError,omitempty"`
}

// UpdateLinksRequest relinks an account to a teacher and/or student.
type UpdateLinksRequest struct {
	TeacherID *int64 `json:"teacherId" binding:"omitempty,min=1"`
	StudentID *int64 `json:"studentId" binding:"omitempty,min=1"`
}
