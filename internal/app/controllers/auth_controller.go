package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/middleware"
)

// AuthService is the credential store as seen by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context, identity models.Identity) ([]*models.Account, error)
	UpdateLinks(ctx context.Context, identity models.Identity, accountID int64, links models.AccountLinks) (*models.Account, error)
}

// AuthController handles authentication and account operations
type AuthController struct {
	authService AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Register handles account registration
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(ctx, &req) {
		return
	}

	account, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", req.Username).Msg("Registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewAccountResponse(account), "Account created"))
}

// Login handles account login. A qrToken in the body checks the student in
// right after authentication; its outcome is reported next to the token.
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", req.Username).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Login successful"))
}

// Me returns the caller's account.
func (c *AuthController) Me(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}

	account, err := c.authService.GetAccount(ctx.Request.Context(), identity.AccountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewAccountResponse(account), ""))
}

// ListAccounts lists every account. Admin only.
func (c *AuthController) ListAccounts(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}

	accounts, err := c.authService.ListAccounts(ctx.Request.Context(), identity)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, dto.NewAccountResponse(a))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// UpdateLinks replaces the teacher/student links of an account. Admin only.
func (c *AuthController) UpdateLinks(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateLinksRequest
	if !bindJSON(ctx, &req) {
		return
	}

	account, err := c.authService.UpdateLinks(ctx.Request.Context(), identity, accountID, models.AccountLinks{
		TeacherID: req.TeacherID,
		StudentID: req.StudentID,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("accountID", accountID).Int64("by", identity.AccountID).Msg("Account links updated")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewAccountResponse(account), "Account links updated"))
}
