package services

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/pkg/auth"
	"github.com/yigit/attendance/internal/pkg/metrics"
	"github.com/yigit/attendance/internal/pkg/qrcode"
	"github.com/yigit/attendance/internal/pkg/tokengen"
)

// Services defined in this package:
// - AuthService: registration, credential checks and login
// - RosterService: students, teachers, courses and enrollments
// - AttendanceService: manual attendance entry and reporting
// - QrTokenService: QR check-in token issue, redemption and sweeping
// - StatsService: admin dashboard aggregates

// Dependencies groups what the service constructors need.
type Dependencies struct {
	Repos      *repositories.Repositories
	JWT        *auth.JWTService
	Generator  tokengen.Generator
	Renderer   *qrcode.Renderer
	Notifier   CheckInNotifier
	Metrics    *metrics.Metrics
	QrPolicy   QrPolicy
	AuthPolicy AuthPolicy
	Logger     zerolog.Logger
}

// Services holds all service instances
type Services struct {
	AuthService       *AuthService
	RosterService     *RosterService
	AttendanceService *AttendanceService
	QrTokenService    *QrTokenService
	StatsService      *StatsService
}

// NewServices wires every service against the postgres repositories.
func NewServices(deps Dependencies) *Services {
	r := deps.Repos
	qrTokenService := NewQrTokenService(
		r.QrTokenRepository,
		r.CourseRepository,
		deps.Generator,
		deps.Renderer,
		deps.Notifier,
		deps.Metrics,
		deps.QrPolicy,
		deps.Logger.With().Str("service", "qr").Logger(),
	)

	return &Services{
		AuthService: NewAuthService(
			r.AccountRepository,
			r.StudentRepository,
			r.TeacherRepository,
			deps.JWT,
			qrTokenService,
			deps.AuthPolicy,
			deps.Logger.With().Str("service", "auth").Logger(),
		),
		RosterService: NewRosterService(
			r.StudentRepository,
			r.TeacherRepository,
			r.CourseRepository,
			r.EnrollmentRepository,
			deps.Logger.With().Str("service", "roster").Logger(),
		),
		AttendanceService: NewAttendanceService(
			r.AttendanceRepository,
			r.CourseRepository,
			deps.Metrics,
			deps.Logger.With().Str("service", "attendance").Logger(),
		),
		QrTokenService: qrTokenService,
		StatsService:   NewStatsService(r.StatsRepository, 30*24*time.Hour),
	}
}
