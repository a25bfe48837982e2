package models

import "time"

// AttendanceStatus is the closed set of attendance states.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusLate    AttendanceStatus = "LATE"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// AttendanceRecord is a single (student, course, date) attendance entry.
// Date is a UTC calendar date with a zero clock.
type AttendanceRecord struct {
	ID        int64            `json:"id" db:"id"`
	StudentID int64            `json:"studentId" db:"student_id"`
	TeacherID *int64           `json:"teacherId,omitempty" db:"teacher_id"`
	CourseID  int64            `json:"courseId" db:"course_id"`
	Date      time.Time        `json:"date" db:"date"`
	Status    AttendanceStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// RecordOutcome reports whether a conditional insert created a row.
type RecordOutcome string

const (
	Registered        RecordOutcome = "REGISTERED"
	AlreadyRegistered RecordOutcome = "ALREADY_REGISTERED"
)

// RecordResult is returned by attendance writes.
type RecordResult struct {
	Outcome RecordOutcome     `json:"outcome"`
	Record  *AttendanceRecord `json:"record,omitempty"`
}

// AttendanceFilter narrows attendance queries. Zero values mean "any".
type AttendanceFilter struct {
	StudentID *int64
	TeacherID *int64
	CourseID  *int64
	Status    *AttendanceStatus
	From      *time.Time
	To        *time.Time
	Page      int
	Size      int
}

// AttendanceSummary counts records per status.
type AttendanceSummary struct {
	Total   int64 `json:"total"`
	Present int64 `json:"present"`
	Absent  int64 `json:"absent"`
	Late    int64 `json:"late"`
}

// Add increments the counter of status by n.
func (s *AttendanceSummary) Add(status AttendanceStatus, n int64) {
	s.Total += n
	switch status {
	case StatusPresent:
		s.Present += n
	case StatusAbsent:
		s.Absent += n
	case StatusLate:
		s.Late += n
	}
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
