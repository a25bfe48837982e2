package dto

import "github.com/yigit/attendance/internal/app/models"

// PersonRequest creates a student or teacher.
type PersonRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
}

// UpdatePersonRequest changes a student or teacher; omitted fields stay.
type UpdatePersonRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100"`
}

// ToUpdate converts the request into the model update.
func (r UpdatePersonRequest) ToUpdate() models.PersonUpdate {
	return models.PersonUpdate{FirstName: r.FirstName, LastName: r.LastName}
}

// CreateCourseRequest creates a course.
type CreateCourseRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Description string `json:"description" binding:"max=1000"`
	TeacherID   *int64 `json:"teacherId" binding:"omitempty,min=1"`
	TimeSlot    string `json:"timeSlot" binding:"required,timeslot"`
}

// ToModel converts the request into a course.
func (r CreateCourseRequest) ToModel() models.Course {
	return models.Course{
		Name:        r.Name,
		Description: r.Description,
		TeacherID:   r.TeacherID,
		TimeSlot:    models.TimeSlot(r.TimeSlot),
	}
}

// UpdateCourseRequest changes a course; omitted fields stay. Set
// unassignTeacher to remove the current teacher.
type UpdateCourseRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=150"`
	Description     *string `json:"description" binding:"omitempty,max=1000"`
	TeacherID       *int64  `json:"teacherId" binding:"omitempty,min=1"`
	UnassignTeacher bool    `json:"unassignTeacher"`
	TimeSlot        *string `json:"timeSlot" binding:"omitempty,timeslot"`
}

// ToUpdate converts the request into the model update.
func (r UpdateCourseRequest) ToUpdate() models.CourseUpdate {
	u := models.CourseUpdate{
		Name:         r.Name,
		Description:  r.Description,
		TeacherID:    r.TeacherID,
		ClearTeacher: r.UnassignTeacher,
	}
	if r.TimeSlot != nil {
		slot := models.TimeSlot(*r.TimeSlot)
		u.TimeSlot = &slot
	}
	return u
}

// EnrollRequest enrolls a student in the course of the path.
type EnrollRequest struct {
	StudentID int64 `json:"studentId" binding:"required,min=1"`
}

// EnrollResponse reports the enrollment outcome.
type EnrollResponse struct {
	Outcome models.EnrollOutcome `json:"outcome"`
}
