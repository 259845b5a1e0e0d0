package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tixgate/internal/gateway"
	"tixgate/internal/model"
	"tixgate/internal/service"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

// PaymentHandler hosts the two confirmation transports: the gateway's
// server-to-server webhook and the buyer's finalize redirect. Both verify and
// parse the same payload and funnel into the same settlement call; they only
// render the acknowledgement differently.
type PaymentHandler struct {
	verifier   *gateway.Verifier
	settlement service.SettlementService
}

func NewPaymentHandler(verifier *gateway.Verifier, settlement service.SettlementService) *PaymentHandler {
	return &PaymentHandler{verifier: verifier, settlement: settlement}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1/payments")
	{
		router.GET("webhook", h.Webhook)
		router.GET("finalize", h.Finalize)
	}
}

// Webhook answers with the gateway's ack vocabulary. Every code except retry
// tells the gateway to stop re-delivering.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	result, err := h.settle(c)
	ack := ackFor(result, err)
	c.JSON(http.StatusOK, ack)
}

// Finalize serves the buyer returning from the payment page. Same settlement
// path as the webhook; the response carries the recorded order status so the
// client can render the outcome.
func (h *PaymentHandler) Finalize(c *gin.Context) {
	result, err := h.settle(c)
	ack := ackFor(result, err)
	if result != nil {
		c.JSON(http.StatusOK, gin.H{
			"rsp_code": ack.RspCode,
			"message":  ack.Message,
			"order_id": result.OrderID,
			"status":   result.Status,
		})
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (h *PaymentHandler) settle(c *gin.Context) (*model.SettlementResult, error) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	conf, err := h.verifier.ParseConfirmation(params)
	if err != nil {
		logger.WithComponent("payment").Warn("confirmation rejected", zap.Error(err))
		return nil, err
	}

	return h.settlement.Settle(c, conf)
}

// ackFor maps a settlement outcome onto the gateway's acknowledgement codes.
func ackFor(result *model.SettlementResult, err error) gateway.Ack {
	switch {
	case errors.Is(err, apperrors.ErrInvalidSignature):
		return gateway.Ack{RspCode: gateway.AckBadSignature, Message: "Invalid signature"}
	case errors.Is(err, apperrors.ErrOrderNotFound):
		return gateway.Ack{RspCode: gateway.AckOrderNotFound, Message: "Order not found"}
	case errors.Is(err, apperrors.ErrAmountMismatch):
		return gateway.Ack{RspCode: gateway.AckAmountMismatch, Message: "Amount mismatch"}
	case err != nil:
		return gateway.Ack{RspCode: gateway.AckRetry, Message: "Temporary failure"}
	case result.Duplicate:
		return gateway.Ack{RspCode: gateway.AckAlreadyDone, Message: "Order already confirmed"}
	default:
		return gateway.Ack{RspCode: gateway.AckRecorded, Message: "Confirm success"}
	}
}
