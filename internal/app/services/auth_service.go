package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/auth"
)

// AuthPolicy controls self-service registration.
type AuthPolicy struct {
	AllowAdminSignup bool
	// AllowLinkedSignup lets Register attach a teacher or student profile.
	// Otherwise profiles are linked by an admin through UpdateLinks.
	AllowLinkedSignup bool
}

// Redeemer is the part of QrTokenService used for the post-login check-in.
type Redeemer interface {
	Redeem(ctx context.Context, identity models.Identity, token string) (*models.RecordResult, error)
}

// AuthService handles authentication operations
type AuthService struct {
	accountRepo repositories.IAccountRepository
	studentRepo repositories.IStudentRepository
	teacherRepo repositories.ITeacherRepository
	jwtService  *auth.JWTService
	redeemer    Redeemer
	policy      AuthPolicy
	logger      zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	accountRepo repositories.IAccountRepository,
	studentRepo repositories.IStudentRepository,
	teacherRepo repositories.ITeacherRepository,
	jwtService *auth.JWTService,
	redeemer Redeemer,
	policy AuthPolicy,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		studentRepo: studentRepo,
		teacherRepo: teacherRepo,
		jwtService:  jwtService,
		redeemer:    redeemer,
		policy:      policy,
		logger:      logger,
	}
}

// validateLinks checks that the profile links fit the role and point at
// existing rows.
func (s *AuthService) validateLinks(ctx context.Context, role models.Role, links models.AccountLinks) error {
	switch role {
	case models.RoleAdmin:
		if links.TeacherID != nil || links.StudentID != nil {
			return apperrors.NewValidationError("admin accounts cannot be linked to a teacher or student")
		}
	case models.RoleTeacher:
		if links.StudentID != nil {
			return apperrors.NewValidationError("teacher accounts can only be linked to a teacher")
		}
		if links.TeacherID != nil {
			if _, err := s.teacherRepo.GetByID(ctx, *links.TeacherID); err != nil {
				return err
			}
		}
	case models.RoleStudent:
		if links.TeacherID != nil {
			return apperrors.NewValidationError("student accounts can only be linked to a student")
		}
		if links.StudentID != nil {
			if _, err := s.studentRepo.GetByID(ctx, *links.StudentID); err != nil {
				return err
			}
		}
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown role %q", role))
	}
	return nil
}

// Register creates a login account. Usernames are unique; a taken name
// yields apperrors.ErrUsernameTaken. A profile already owned by another
// account yields apperrors.ErrProfileLinked.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*models.Account, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("username and password are required")
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, apperrors.NewValidationError("role must be ADMIN, TEACHER or STUDENT")
	}
	if role == models.RoleAdmin && !s.policy.AllowAdminSignup {
		return nil, apperrors.NewForbiddenError("admin self-registration is disabled")
	}

	links := models.AccountLinks{TeacherID: req.TeacherID, StudentID: req.StudentID}
	if (links.TeacherID != nil || links.StudentID != nil) && !s.policy.AllowLinkedSignup {
		return nil, apperrors.NewForbiddenError("profile links are assigned by an administrator")
	}
	if err := s.validateLinks(ctx, role, links); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		TeacherID:    links.TeacherID,
		StudentID:    links.StudentID,
	}
	if _, err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("accountID", account.ID).Str("role", string(role)).Msg("Account registered")
	return account, nil
}

// Authenticate verifies a username and password. Unknown usernames and wrong
// passwords both yield apperrors.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := s.accountRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return account, nil
}

// Login authenticates and issues an access token. A QR token in the request
// is redeemed afterwards; its failure is reported in the response without
// failing the login.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	account, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		s.logger.Debug().Str("username", req.Username).Msg("Login failed")
		return nil, err
	}

	accessToken, expiresIn, err := s.jwtService.GenerateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	resp := &dto.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Account:     dto.NewAccountResponse(account),
	}

	if qrToken := strings.TrimSpace(req.QrToken); qrToken != "" && s.redeemer != nil {
		result, err := s.redeemer.Redeem(ctx, account.Identity(), qrToken)
		if err != nil {
			_, detail := dto.MapError(err)
			resp.CheckInErr = detail
		} else {
			resp.CheckIn = result
		}
	}

	s.logger.Info().Int64("accountID", account.ID).Msg("Account logged in")
	return resp, nil
}

// GetAccount loads an account by id.
func (s *AuthService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func (s *AuthService) ListAccounts(ctx context.Context, identity models.Identity) ([]*models.Account, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.accountRepo.List(ctx)
}

// UpdateLinks relinks an account. The new links must fit the account role.
func (s *AuthService) UpdateLinks(ctx context.Context, identity models.Identity, accountID int64, links models.AccountLinks) (*models.Account, error) {
	if err := identity.RequireAdmin(); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.validateLinks(ctx, account.Role, links); err != nil {
		return nil, err
	}
	if err := s.accountRepo.UpdateLinks(ctx, accountID, links); err != nil {
		return nil, err
	}

	account.TeacherID = links.TeacherID
	account.StudentID = links.StudentID
	s.logger.Info().Int64("accountID", accountID).Msg("Account links updated")
	return account, nil
}
