package websocket

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/middleware"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// FeedAuthorizer decides who may watch a course's check-ins.
type FeedAuthorizer interface {
	AuthorizeFeed(ctx context.Context, identity models.Identity, courseID int64) error
}

// Handler upgrades authorized requests to check-in feed connections.
type Handler struct {
	hub        *Hub
	authorizer FeedAuthorizer
	logger     zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authorizer FeedAuthorizer, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		authorizer: authorizer,
		logger:     logger,
	}
}

// HandleCheckInFeed streams check-ins of the course in the :id path
// parameter. Only the owning teacher and admins are admitted.
func (h *Handler) HandleCheckInFeed(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || courseID < 1 {
		middleware.HandleAPIError(c, apperrors.NewValidationError("invalid course id"))
		return
	}

	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.HandleAPIError(c, apperrors.ErrPermissionDenied)
		return
	}

	if err := h.authorizer.AuthorizeFeed(c.Request.Context(), identity, courseID); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("courseID", courseID).
			Int64("accountID", identity.AccountID).
			Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := newClient(h.hub, conn, identity.AccountID, courseID, h.logger)
	if !h.hub.join(client) {
		rejectShutdown(conn)
		return
	}

	go client.writePump()
	go client.readPump()
}
