package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/metrics"
	"github.com/yigit/attendance/internal/pkg/qrcode"
	"github.com/yigit/attendance/internal/pkg/tokengen"
)

const (
	issueAttempts  = 3
	tokenListLimit = 200
)

// CheckInNotifier receives every successful redemption. The websocket hub
// implements it to feed live check-in screens.
type CheckInNotifier interface {
	PublishCheckIn(checkIn models.CheckIn)
}

// QrPolicy bounds token lifetimes in minutes.
type QrPolicy struct {
	DefaultValidityMinutes int
	MaxValidityMinutes     int
}

// QrTokenService issues and redeems attendance check-in tokens.
type QrTokenService struct {
	tokenRepo  repositories.IQrTokenRepository
	courseRepo repositories.ICourseRepository
	generator  tokengen.Generator
	renderer   *qrcode.Renderer
	notifier   CheckInNotifier
	metrics    *metrics.Metrics
	policy     QrPolicy
	logger     zerolog.Logger
	nowFunc    func() time.Time
}

// NewQrTokenService creates a new QrTokenService. renderer, notifier and
// metrics may be nil.
func NewQrTokenService(
	tokenRepo repositories.IQrTokenRepository,
	courseRepo repositories.ICourseRepository,
	generator tokengen.Generator,
	renderer *qrcode.Renderer,
	notifier CheckInNotifier,
	m *metrics.Metrics,
	policy QrPolicy,
	logger zerolog.Logger,
) *QrTokenService {
	return &QrTokenService{
		tokenRepo:  tokenRepo,
		courseRepo: courseRepo,
		generator:  generator,
		renderer:   renderer,
		notifier:   notifier,
		metrics:    m,
		policy:     policy,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

func (s *QrTokenService) now() time.Time {
	return s.nowFunc().UTC()
}

// resolveIssuer returns the teacher a token for course is issued under.
// Teachers may only issue for their own courses; admins issue on behalf of
// the course owner.
func (s *QrTokenService) resolveIssuer(identity models.Identity, course *models.Course) (int64, error) {
	switch identity.Role {
	case models.RoleAdmin:
		if course.TeacherID == nil {
			return 0, apperrors.NewValidationError("course has no teacher assigned")
		}
		return *course.TeacherID, nil
	case models.RoleTeacher:
		teacherID, err := identity.TeacherRef()
		if err != nil {
			return 0, err
		}
		if course.TeacherID == nil || *course.TeacherID != teacherID {
			return 0, apperrors.NewForbiddenError("you do not teach this course")
		}
		return teacherID, nil
	case models.RoleStudent:
		return 0, apperrors.NewForbiddenError("students cannot issue check-in codes")
	default:
		return 0, fmt.Errorf("%w: unknown role %q", apperrors.ErrPermissionDenied, identity.Role)
	}
}

// Issue creates a fresh token for courseID valid for validityMinutes (the
// configured default when zero).
func (s *QrTokenService) Issue(ctx context.Context, identity models.Identity, courseID int64, validityMinutes int, singleUse bool) (*dto.QrTokenResponse, error) {
	if validityMinutes == 0 {
		validityMinutes = s.policy.DefaultValidityMinutes
	}
	if validityMinutes < 1 || validityMinutes > s.policy.MaxValidityMinutes {
		return nil, apperrors.NewValidationError(fmt.Sprintf("validity must be between 1 and %d minutes", s.policy.MaxValidityMinutes))
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	teacherID, err := s.resolveIssuer(identity, course)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token := &models.QrToken{
		CourseID:  course.ID,
		TeacherID: teacherID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(validityMinutes) * time.Minute),
		Active:    true,
		SingleUse: singleUse,
	}

	for attempt := 1; ; attempt++ {
		token.Token, err = s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("error generating qr token: %w", err)
		}
		_, err = s.tokenRepo.Create(ctx, token)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) || attempt >= issueAttempts {
			return nil, err
		}
		s.logger.Warn().Int("attempt", attempt).Msg("QR token collision, drawing a new value")
	}

	s.metrics.TokenIssued()
	s.logger.Info().
		Int64("courseID", token.CourseID).
		Int64("teacherID", token.TeacherID).
		Time("expiresAt", token.ExpiresAt).
		Bool("singleUse", token.SingleUse).
		Msg("QR token issued")

	resp := &dto.QrTokenResponse{
		Token:     token.Token,
		CourseID:  token.CourseID,
		TeacherID: token.TeacherID,
		ExpiresAt: token.ExpiresAt,
		SingleUse: token.SingleUse,
	}
	if s.renderer != nil {
		link, image, err := s.renderer.Render(token.Token)
		if err != nil {
			return nil, fmt.Errorf("error rendering qr code: %w", err)
		}
		resp.URL = link
		resp.ImageBase64 = image
	}
	return resp, nil
}

// Redeem checks the caller in with token. Every entry path (scan URL,
// pasted code, login continuation) goes through here.
//
// An expired token is deactivated and that change is committed before
// ErrQrTokenExpired is returned.
func (s *QrTokenService) Redeem(ctx context.Context, identity models.Identity, token string) (*models.RecordResult, error) {
	studentID, err := identity.StudentRef()
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		s.metrics.Redemption("invalid")
		return nil, apperrors.ErrQrTokenInvalid
	}

	var (
		result  *models.RecordResult
		expired bool
	)
	err = s.tokenRepo.RunRedemption(ctx, func(ctx context.Context, tx repositories.RedemptionTx) error {
		result, expired = nil, false

		qt, err := tx.LockToken(ctx, token)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				return apperrors.ErrQrTokenInvalid
			}
			return err
		}

		now := s.now()
		if qt.ExpiredAt(now) {
			expired = true
			if qt.Active {
				return tx.DeactivateToken(ctx, qt.ID)
			}
			return nil
		}
		if !qt.Active {
			return apperrors.ErrQrTokenInvalid
		}

		teacherID := qt.TeacherID
		record := &models.AttendanceRecord{
			StudentID: studentID,
			TeacherID: &teacherID,
			CourseID:  qt.CourseID,
			Date:      models.DateOf(now),
			Status:    models.StatusPresent,
			CreatedAt: now,
		}
		inserted, err := tx.InsertAttendanceIfAbsent(ctx, record)
		if err != nil {
			return err
		}
		if qt.SingleUse {
			if err := tx.DeactivateToken(ctx, qt.ID); err != nil {
				return err
			}
		}

		if inserted {
			result = &models.RecordResult{Outcome: models.Registered, Record: record}
		} else {
			result = &models.RecordResult{Outcome: models.AlreadyRegistered}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrQrTokenInvalid):
			s.metrics.Redemption("invalid")
		default:
			s.metrics.Redemption("error")
			s.logger.Error().Err(err).Int64("studentID", studentID).Msg("QR redemption failed")
		}
		return nil, err
	}
	if expired {
		s.metrics.Redemption("expired")
		return nil, apperrors.ErrQrTokenExpired
	}

	if result.Outcome == models.Registered {
		s.metrics.Redemption("registered")
		s.metrics.AttendanceWritten(string(models.Registered))
		if s.notifier != nil {
			s.notifier.PublishCheckIn(models.CheckIn{
				CourseID:  result.Record.CourseID,
				StudentID: studentID,
				Outcome:   result.Outcome,
				At:        result.Record.CreatedAt,
			})
		}
	} else {
		s.metrics.Redemption("already_registered")
	}

	s.logger.Info().Int64("studentID", studentID).Str("outcome", string(result.Outcome)).Msg("QR token redeemed")
	return result, nil
}

// AuthorizeFeed checks that identity may watch live check-ins of courseID:
// admins for any existing course, teachers for their own.
func (s *QrTokenService) AuthorizeFeed(ctx context.Context, identity models.Identity, courseID int64) error {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if identity.IsAdmin() {
		return nil
	}
	teacherID, err := identity.TeacherRef()
	if err != nil {
		return err
	}
	if course.TeacherID == nil || *course.TeacherID != teacherID {
		return apperrors.NewForbiddenError("you do not teach this course")
	}
	return nil
}

// List returns the latest tokens: all of them for admins, the caller's own
// for teachers.
func (s *QrTokenService) List(ctx context.Context, identity models.Identity) ([]*models.QrToken, error) {
	teacherID, err := s.scopeTeacher(identity)
	if err != nil {
		return nil, err
	}
	return s.tokenRepo.ListRecent(ctx, teacherID, tokenListLimit)
}

// Sweep deactivates expired tokens. Admins sweep everything, teachers only
// their own tokens.
func (s *QrTokenService) Sweep(ctx context.Context, identity models.Identity) (int64, error) {
	teacherID, err := s.scopeTeacher(identity)
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, teacherID)
}

// SweepAll is used by the background job.
func (s *QrTokenService) SweepAll(ctx context.Context) (int64, error) {
	return s.sweep(ctx, nil)
}

func (s *QrTokenService) sweep(ctx context.Context, teacherID *int64) (int64, error) {
	n, err := s.tokenRepo.DeactivateExpired(ctx, s.now(), teacherID)
	if err != nil {
		return 0, err
	}
	s.metrics.TokensSwept(n)
	if n > 0 {
		s.logger.Debug().Int64("deactivated", n).Msg("Expired QR tokens deactivated")
	}
	return n, nil
}

func (s *QrTokenService) scopeTeacher(identity models.Identity) (*int64, error) {
	if identity.IsAdmin() {
		return nil, nil
	}
	teacherID, err := identity.TeacherRef()
	if err != nil {
		return nil, err
	}
	return &teacherID, nil
}
