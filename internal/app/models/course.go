package models

// TimeSlot is one of the fixed class periods of the school day.
type TimeSlot string

// TimeSlots lists every valid period in chronological order.
var TimeSlots = []TimeSlot{
	"07:00-07:50",
	"07:50-08:40",
	"09:20-10:10",
	"10:10-11:00",
	"11:00-11:50",
	"11:50-12:40",
	"12:40-13:30",
	"13:30-14:20",
	"14:20-15:10",
}

// Valid reports whether s is part of the period catalogue.
func (s TimeSlot) Valid() bool {
	for _, slot := range TimeSlots {
		if slot == s {
			return true
		}
	}
	return false
}

// Course represents a class taught by at most one teacher in a single time slot.
type Course struct {
	ID          int64    `json:"id" db:"id"`
	Name        string   `json:"name" db:"name"`
	Description string   `json:"description" db:"description"`
	TeacherID   *int64   `json:"teacherId,omitempty" db:"teacher_id"`
	TimeSlot    TimeSlot `json:"timeSlot" db:"time_slot"`

	// Populated by listing queries that join the teacher.
	TeacherName *string `json:"teacherName,omitempty"`
}

// CourseUpdate carries the course fields to change. ClearTeacher unassigns
// the teacher and takes precedence over TeacherID.
type CourseUpdate struct {
	Name         *string
	Description  *string
	TeacherID    *int64
	ClearTeacher bool
	TimeSlot     *TimeSlot
}

// Empty reports an update that changes nothing.
func (u CourseUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.TeacherID == nil && !u.ClearTeacher && u.TimeSlot == nil
}

// Apply returns a copy of c with the update applied.
func (u CourseUpdate) Apply(c Course) Course {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.ClearTeacher {
		c.TeacherID = nil
	} else if u.TeacherID != nil {
		id := *u.TeacherID
		c.TeacherID = &id
	}
	if u.TimeSlot != nil {
		c.TimeSlot = *u.TimeSlot
	}
	return c
}

// CourseRoster is a course together with its enrolled students.
type CourseRoster struct {
	Course   Course    `json:"course"`
	Students []Student `json:"students"`
}
