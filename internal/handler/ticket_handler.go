package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tixgate/internal/model"
	"tixgate/internal/service"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

type TicketHandler struct {
	tickets service.TicketService
}

func NewTicketHandler(tickets service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

func (h *TicketHandler) RegisterRoutes(r *gin.Engine, auth, callbackAuth gin.HandlerFunc) {
	r.POST("/api/v1/tickets/checkin", auth, h.CheckIn)
	r.POST("/api/v1/internal/mint-callback", callbackAuth, h.MintCallback)
}

func (h *TicketHandler) CheckIn(c *gin.Context) {
	var req model.CheckInRequest

	if err := BindJson(c, &req); err != nil {
		return
	}

	if err := h.tickets.CheckIn(c, req.ScanCode); err != nil {
		h.handleTicketError(c, err, "CheckIn")
		return
	}

	c.Status(http.StatusOK)
}

// MintCallback receives the external worker's result and labels the tickets
// with their token ids.
func (h *TicketHandler) MintCallback(c *gin.Context) {
	var result model.MintResult

	if err := BindJson(c, &result); err != nil {
		return
	}

	if err := h.tickets.ApplyMintResult(c, &result); err != nil {
		h.handleTicketError(c, err, "MintCallback")
		return
	}

	c.Status(http.StatusOK)
}

func (h *TicketHandler) handleTicketError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Ticket not found",
		})
	case errors.Is(err, apperrors.ErrTicketNotCheckable):
		log.Warn("Ticket not checkable")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Ticket already used or not valid for entry",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
