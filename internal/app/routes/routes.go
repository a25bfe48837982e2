package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/controllers"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/middleware"
	"github.com/yigit/attendance/internal/pkg/websocket"
)

// Controllers groups every HTTP handler the router mounts.
type Controllers struct {
	Auth       *controllers.AuthController
	Roster     *controllers.RosterController
	Attendance *controllers.AttendanceController
	Qr         *controllers.QrController
	Stats      *controllers.StatsController
	Feed       *websocket.Handler
}

// Limits holds the rate limiters of the abuse-prone public endpoints.
type Limits struct {
	Login  middleware.Limiter
	Redeem middleware.Limiter
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware, limits Limits) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", middleware.RateLimit(limits.Login, "login"), c.Auth.Login)
	}
	v1.GET("/time-slots", c.Roster.TimeSlots)
	v1.GET("/health", c.Stats.Health)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	adminOnly := authMiddleware.RoleRequired(models.RoleAdmin)
	staff := authMiddleware.RoleRequired(models.RoleAdmin, models.RoleTeacher)

	authenticated.GET("/auth/me", c.Auth.Me)

	accounts := authenticated.Group("/accounts", adminOnly)
	{
		accounts.GET("", c.Auth.ListAccounts)
		accounts.PUT("/:id/links", c.Auth.UpdateLinks)
	}

	students := authenticated.Group("/students")
	{
		students.GET("", c.Roster.ListStudents)
		students.GET("/:id", c.Roster.GetStudent)
		students.POST("", adminOnly, c.Roster.CreateStudent)
		students.PUT("/:id", adminOnly, c.Roster.UpdateStudent)
		students.DELETE("/:id", adminOnly, c.Roster.DeleteStudent)
	}

	teachers := authenticated.Group("/teachers")
	{
		teachers.GET("", c.Roster.ListTeachers)
		teachers.GET("/:id", c.Roster.GetTeacher)
		teachers.POST("", adminOnly, c.Roster.CreateTeacher)
		teachers.PUT("/:id", adminOnly, c.Roster.UpdateTeacher)
		teachers.DELETE("/:id", adminOnly, c.Roster.DeleteTeacher)
	}

	courses := authenticated.Group("/courses")
	{
		courses.GET("", c.Roster.ListCourses)
		courses.GET("/:id", c.Roster.GetCourse)
		courses.GET("/:id/students", c.Roster.CourseStudents)
		courses.POST("", adminOnly, c.Roster.CreateCourse)
		courses.PUT("/:id", adminOnly, c.Roster.UpdateCourse)
		courses.DELETE("/:id", adminOnly, c.Roster.DeleteCourse)
		courses.POST("/:id/enrollments", adminOnly, c.Roster.Enroll)
		courses.DELETE("/:id/enrollments/:studentId", adminOnly, c.Roster.Unenroll)
		courses.GET("/:id/checkins/ws", staff, c.Feed.HandleCheckInFeed)
	}

	me := authenticated.Group("/me")
	{
		me.GET("/classes", authMiddleware.RoleRequired(models.RoleTeacher), c.Roster.MyClasses)
		me.GET("/courses", authMiddleware.RoleRequired(models.RoleStudent), c.Roster.MyCourses)
	}

	attendance := authenticated.Group("/attendance")
	{
		attendance.GET("", c.Attendance.List)
		attendance.GET("/summary", c.Attendance.Summary)
		attendance.POST("", staff, c.Attendance.Record)
		attendance.DELETE("/:id", staff, c.Attendance.Delete)
	}

	qrTokens := authenticated.Group("/qr-tokens", staff)
	{
		qrTokens.POST("", c.Qr.Issue)
		qrTokens.GET("", c.Qr.List)
		qrTokens.POST("/sweep", c.Qr.Sweep)
	}

	redeem := authenticated.Group("/qr", authMiddleware.RoleRequired(models.RoleStudent), middleware.RateLimit(limits.Redeem, "redeem"))
	{
		redeem.GET("/redeem", c.Qr.Redeem)
		redeem.POST("/redeem", c.Qr.Redeem)
	}

	authenticated.GET("/stats", adminOnly, c.Stats.Dashboard)
}
