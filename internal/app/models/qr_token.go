package models

import "time"

// QrToken is a short-lived check-in code scoped to one course and teacher.
type QrToken struct {
	ID        int64     `json:"id" db:"id"`
	Token     string    `json:"token" db:"token"`
	CourseID  int64     `json:"courseId" db:"course_id"`
	TeacherID int64     `json:"teacherId" db:"teacher_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	Active    bool      `json:"active" db:"active"`
	SingleUse bool      `json:"singleUse" db:"single_use"`
}

// ExpiredAt reports whether the token is past its expiry at now.
// A token is still valid at exactly ExpiresAt.
func (t *QrToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// CheckIn is published when a student redeems a token.
type CheckIn struct {
	CourseID  int64         `json:"courseId"`
	StudentID int64         `json:"studentId"`
	Outcome   RecordOutcome `json:"outcome"`
	At        time.Time     `json:"at"`
}
