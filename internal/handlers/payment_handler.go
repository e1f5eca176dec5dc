package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"voltage-backend/internal/models"
	"voltage-backend/internal/service"
)

type PaymentHandler struct {
	paymentService service.PaymentUseCase
}

func NewPaymentHandler(paymentService service.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.paymentService == nil {
		serviceUnavailable(c, "payment")
		return false
	}
	return true
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.paymentService.CreateOrder(c.Request.Context(), userID, req.LectureID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkout)
}

func (h *PaymentHandler) Status(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	order, err := h.paymentService.Status(c.Request.Context(), userID, c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *PaymentHandler) ListOrders(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	orders, err := h.paymentService.ListOrders(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ListByStatus serves the admin queue, pending orders by default.
func (h *PaymentHandler) ListByStatus(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	status := models.PaymentStatus(c.DefaultQuery("status", string(models.PaymentStatusPending)))
	orders, err := h.paymentService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *PaymentHandler) Confirm(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	h.decide(c, h.paymentService.Confirm)
}

func (h *PaymentHandler) Expire(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	h.decide(c, h.paymentService.Expire)
}

func (h *PaymentHandler) Fail(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	h.decide(c, h.paymentService.Fail)
}

type orderDecision func(ctx context.Context, orderID uint, notes string) (*models.PaymentOrder, error)

func (h *PaymentHandler) decide(c *gin.Context, apply orderDecision) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.OrderDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	order, err := apply(c.Request.Context(), orderID, req.AdminNotes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *PaymentHandler) SetWallet(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.SetWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.paymentService.SetWallet(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}
