package models

import "time"

// DashboardStats aggregates the numbers shown on the admin dashboard.
type DashboardStats struct {
	Students          int64              `json:"students"`
	Teachers          int64              `json:"teachers"`
	Courses           int64              `json:"courses"`
	AttendanceRecords int64              `json:"attendanceRecords"`
	ByStatus          AttendanceSummary  `json:"byStatus"`
	Daily             []DailyCount       `json:"daily"`
	CoursesPerTeacher []TeacherCourseCnt `json:"coursesPerTeacher"`
}

// DailyCount is the number of attendance records on one date.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// TeacherCourseCnt is the number of courses assigned to a teacher.
type TeacherCourseCnt struct {
	TeacherID int64  `json:"teacherId"`
	Name      string `json:"name"`
	Courses   int64  `json:"courses"`
}
