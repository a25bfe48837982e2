package dto

// RecordAttendanceRequest is a manual attendance entry. Date uses the
// YYYY-MM-DD layout and defaults to today (UTC).
type RecordAttendanceRequest struct {
	StudentID int64  `json:"studentId" binding:"required,min=1"`
	CourseID  int64  `json:"courseId" binding:"required,min=1"`
	Date      string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Status    string `json:"status" binding:"required,attendancestatus"`
}

// AttendanceQuery holds the query string filters of attendance listings.
type AttendanceQuery struct {
	StudentID *int64 `form:"studentId" binding:"omitempty,min=1"`
	TeacherID *int64 `form:"teacherId" binding:"omitempty,min=1"`
	CourseID  *int64 `form:"courseId" binding:"omitempty,min=1"`
	Status    string `form:"status" binding:"omitempty,attendancestatus"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}
