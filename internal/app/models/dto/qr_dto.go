package dto

import (
	"time"

	"github.com/yigit/attendance/internal/app/models"
)

// IssueQrTokenRequest asks for a new check-in token. ValidityMinutes falls
// back to the configured default when omitted.
type IssueQrTokenRequest struct {
	CourseID        int64 `json:"courseId" binding:"required,min=1"`
	ValidityMinutes int   `json:"validityMinutes" binding:"omitempty,min=1"`
	SingleUse       bool  `json:"singleUse"`
}

// QrTokenResponse is an issued token with its scan URL and PNG image.
type QrTokenResponse struct {
	Token       string    `json:"token"`
	CourseID    int64     `json:"courseId"`
	TeacherID   int64     `json:"teacherId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	SingleUse   bool      `json:"singleUse"`
	URL         string    `json:"url"`
	ImageBase64 string    `json:"imageBase64,omitempty"`
}

// RedeemRequest carries a pasted token.
type RedeemRequest struct {
	QrToken string `json:"qrToken" form:"qr_token" binding:"required,max=128"`
}

// SweepResponse reports how many tokens were deactivated.
type SweepResponse struct {
	Deactivated int64 `json:"deactivated"`
}

// QrTokenList is the token listing of a teacher or admin.
type QrTokenList struct {
	Tokens []*models.QrToken `json:"tokens"`
}
