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

// QrTokenService is the QR token service as seen by the HTTP layer.
type QrTokenService interface {
	Issue(ctx context.Context, identity models.Identity, courseID int64, validityMinutes int, singleUse bool) (*dto.QrTokenResponse, error)
	Redeem(ctx context.Context, identity models.Identity, token string) (*models.RecordResult, error)
	List(ctx context.Context, identity models.Identity) ([]*models.QrToken, error)
	Sweep(ctx context.Context, identity models.Identity) (int64, error)
}

// QrController handles QR token issuing and check-in
type QrController struct {
	qr     QrTokenService
	logger zerolog.Logger
}

// NewQrController creates a new QrController
func NewQrController(qr QrTokenService, logger zerolog.Logger) *QrController {
	return &QrController{
		qr:     qr,
		logger: logger,
	}
}

// Issue creates a check-in token for one of the caller's courses.
func (c *QrController) Issue(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	var req dto.IssueQrTokenRequest
	if !bindJSON(ctx, &req) {
		return
	}

	token, err := c.qr.Issue(ctx.Request.Context(), identity, req.CourseID, req.ValidityMinutes, req.SingleUse)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(token, "QR token issued"))
}

// Redeem checks the calling student in. The token comes from the qr_token
// query parameter (scan URL) or from the JSON body (pasted code).
func (c *QrController) Redeem(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}

	var req dto.RedeemRequest
	var err error
	if ctx.Request.Method == http.MethodGet {
		err = ctx.ShouldBindQuery(&req)
	} else {
		err = ctx.ShouldBindJSON(&req)
	}
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	result, err := c.qr.Redeem(ctx.Request.Context(), identity, req.QrToken)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	status := http.StatusOK
	message := "Attendance already registered for today"
	if result.Outcome == models.Registered {
		status = http.StatusCreated
		message = "Attendance registered"
	}
	ctx.JSON(status, dto.NewSuccessResponse(result, message))
}

// List returns the latest tokens visible to the caller.
func (c *QrController) List(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	tokens, err := c.qr.List(ctx.Request.Context(), identity)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.QrTokenList{Tokens: tokens}, ""))
}

// Sweep deactivates expired tokens: all for admins, own for teachers.
func (c *QrController) Sweep(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	n, err := c.qr.Sweep(ctx.Request.Context(), identity)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SweepResponse{Deactivated: n}, ""))
}
