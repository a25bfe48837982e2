package models

import "time"

// Student defines the student model based on the 'students' table
type Student struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
}

// Teacher defines the teacher model based on the 'teachers' table
type Teacher struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
}

// FullName joins first and last name.
func (t Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

// PersonUpdate carries the fields of a student or teacher to change. Nil
// fields are left untouched.
type PersonUpdate struct {
	FirstName *string
	LastName  *string
}

// Empty reports an update that changes nothing.
func (u PersonUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID        int64     `json:"id" db:"id"`
	CourseID  int64     `json:"courseId" db:"course_id"`
	StudentID int64     `json:"studentId" db:"student_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// EnrollOutcome is the result of an enrollment request.
type EnrollOutcome string

const (
	Enrolled        EnrollOutcome = "ENROLLED"
	AlreadyEnrolled EnrollOutcome = "ALREADY_ENROLLED"
)
