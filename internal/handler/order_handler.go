package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tixgate/internal/model"
	"tixgate/internal/service"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

type OrderHandler struct {
	reservation service.ReservationService
	settlement  service.SettlementService
	tickets     service.TicketService
}

func NewOrderHandler(
	reservation service.ReservationService,
	settlement service.SettlementService,
	tickets service.TicketService,
) *OrderHandler {
	return &OrderHandler{reservation: reservation, settlement: settlement, tickets: tickets}
}

func (h *OrderHandler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	router := r.Group("/api/v1", auth)
	{
		router.POST("orders", h.CreateOrder)
		router.GET("orders/:id", h.GetOrder)
		router.GET("orders/:id/tickets", h.GetOrderTickets)
		router.POST("orders/:id/refund", h.RefundOrder)
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req model.ReserveRequest

	if err := BindJson(c, &req); err != nil {
		return
	}

	buyerID, wallet := buyerFromContext(c)
	order, err := h.reservation.Reserve(c, buyerID, wallet, req)
	if err != nil {
		h.handleOrderError(c, err, "CreateOrder")
		return
	}

	c.JSON(http.StatusCreated, model.ReserveResponse{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		ExpiresAt:   order.ExpiresAt,
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	idInt, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleOrderError(c, apperrors.ErrOrderNotFound, "GetOrder")
		return
	}

	buyerID, _ := buyerFromContext(c)
	order, err := h.reservation.GetOrder(c, buyerID, idInt)
	if err != nil {
		h.handleOrderError(c, err, "GetOrder")
		return
	}

	txns, err := h.settlement.ListTransactions(c, order.ID)
	if err != nil {
		h.handleOrderError(c, err, "GetOrder")
		return
	}

	c.JSON(http.StatusOK, model.OrderStatusResponse{
		OrderID:      order.ID,
		Status:       order.Status,
		TotalAmount:  order.TotalAmount,
		ExpiresAt:    order.ExpiresAt,
		Transactions: txns,
	})
}

func (h *OrderHandler) GetOrderTickets(c *gin.Context) {
	idInt, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleOrderError(c, apperrors.ErrOrderNotFound, "GetOrderTickets")
		return
	}

	buyerID, _ := buyerFromContext(c)
	tickets, err := h.tickets.ListByOrder(c, buyerID, idInt)
	if err != nil {
		h.handleOrderError(c, err, "GetOrderTickets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *OrderHandler) RefundOrder(c *gin.Context) {
	idInt, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.handleOrderError(c, apperrors.ErrOrderNotFound, "RefundOrder")
		return
	}

	// Ownership check first, then the ledger flip.
	buyerID, _ := buyerFromContext(c)
	if _, err := h.reservation.GetOrder(c, buyerID, idInt); err != nil {
		h.handleOrderError(c, err, "RefundOrder")
		return
	}

	if err := h.settlement.Refund(c, idInt); err != nil {
		h.handleOrderError(c, err, "RefundOrder")
		return
	}

	c.Status(http.StatusOK)
}

func (h *OrderHandler) handleOrderError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrInsufficientStock):
		log.Warn("Insufficient stock")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Insufficient stock",
		})
	case errors.Is(err, apperrors.ErrConflict):
		log.Warn("Reservation conflict")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Too much contention, please retry",
		})
	case errors.Is(err, apperrors.ErrBelowMinPurchase),
		errors.Is(err, apperrors.ErrExceedsMaxPurchase),
		errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid reservation request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid reservation request",
		})
	case errors.Is(err, apperrors.ErrShowStarted):
		log.Warn("Show already started")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Show already started",
		})
	case errors.Is(err, apperrors.ErrShowNotFound):
		log.Warn("Show not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Show not found",
		})
	case errors.Is(err, apperrors.ErrTicketTypeNotFound):
		log.Warn("Ticket type not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Ticket type not found",
		})
	case errors.Is(err, apperrors.ErrOrderNotFound):
		log.Warn("Order not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, apperrors.ErrNoSuccessfulTxn):
		log.Warn("Nothing to refund")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Order has no successful payment",
		})
	case errors.Is(err, apperrors.ErrAlreadyRefunded):
		log.Warn("Already refunded")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Order already refunded",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
