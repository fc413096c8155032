package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/fundbridge/fundbridge/internal/payment"
	log "github.com/sirupsen/logrus"
)

// PaymentHandler serves gateway order creation and callback verification.
type PaymentHandler struct {
	orders     *payment.OrderService
	verifier   *payment.VerificationService
	production bool
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(orders *payment.OrderService, verifier *payment.VerificationService, production bool) *PaymentHandler {
	return &PaymentHandler{orders: orders, verifier: verifier, production: production}
}

// createOrderRequest defines the request body for order creation.
type createOrderRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Amount    int64  `json:"amount"`
	Tip       int    `json:"tip"`
	Anonymous bool   `json:"anonymous"`
}

// CreateOrder computes the total and creates a gateway order. Authentication
// is optional: a valid session attaches ownership, a guest order is claimed
// later through the contributions endpoint.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var body createOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}

	req := payment.OrderRequest{
		Name:      body.Name,
		Email:     body.Email,
		Phone:     body.Phone,
		Address:   body.Address,
		Amount:    body.Amount,
		Tip:       body.Tip,
		Anonymous: body.Anonymous,
	}
	if userID := currentUserID(c); userID != 0 {
		req.UserID = &userID
	}

	result, errCreate := h.orders.CreateOrder(c.Request.Context(), req)
	if errCreate != nil {
		switch {
		case errors.Is(errCreate, payment.ErrInvalidAmount):
			respondError(c, http.StatusBadRequest, "valid amount is required")
		case errors.Is(errCreate, payment.ErrGateway):
			respondError(c, http.StatusBadGateway, "failed to create order")
		default:
			respondErrorDetail(c, http.StatusInternalServerError, "failed to create order", errCreate, h.production)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "order created",
		"id":           result.OrderID,
		"amount":       result.AmountMinor,
		"currency":     result.Currency,
		"key":          result.KeyID,
		"tip_amount":   result.TipAmount,
		"total_amount": result.TotalAmount,
	})
}

// verifyRequest defines the callback body the checkout widget posts back.
type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Verify recomputes the callback signature and finalizes the contribution.
// The response never says which part of a bad signature was wrong.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(body.OrderID) == "" || strings.TrimSpace(body.PaymentID) == "" || strings.TrimSpace(body.Signature) == "" {
		respondError(c, http.StatusBadRequest, "payment verification fields are required")
		return
	}

	errVerify := h.verifier.Verify(c.Request.Context(), body.OrderID, body.PaymentID, body.Signature)
	if errVerify != nil {
		switch {
		case errors.Is(errVerify, payment.ErrSignatureMismatch):
			log.Warnf("payment verification failed for order=%s", body.OrderID)
			respondError(c, http.StatusBadRequest, "payment verification failed")
		case errors.Is(errVerify, payment.ErrOrderNotFound):
			respondError(c, http.StatusNotFound, "contribution not found")
		case errors.Is(errVerify, payment.ErrTerminalState):
			respondError(c, http.StatusConflict, "payment already finalized")
		default:
			respondErrorDetail(c, http.StatusInternalServerError, "failed to verify payment", errVerify, h.production)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "payment verified successfully",
		"order_id":   body.OrderID,
		"payment_id": body.PaymentID,
	})
}
