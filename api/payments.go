package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/service/payment"
	"github.com/gin-gonic/gin"
)

const webhookSecretHeader = "X-Webhook-Secret"

type PaymentHandler struct {
	service       payment.PaymentUseCase
	webhookSecret string
}

type webhookRequest struct {
	Reference string `json:"reference" binding:"required"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
}

func NewPaymentHandler(service payment.PaymentUseCase, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{service: service, webhookSecret: webhookSecret}
}

// Register mounts the customer-facing capture route under the bookings group.
func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/:id/payments", h.capture)
}

// RegisterWebhook mounts the provider callback. It is authenticated by shared secret, not JWT.
func (h *PaymentHandler) RegisterWebhook(router gin.IRoutes) {
	router.POST("/webhooks/payments", h.webhook)
}

func (h *PaymentHandler) capture(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req payment.CaptureInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	p, err := h.service.Capture(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if p.Status != domain.PaymentStatusCompleted {
		status = http.StatusAccepted
	}
	c.JSON(status, p)
}

func (h *PaymentHandler) webhook(c *gin.Context) {
	got := c.GetHeader(webhookSecretHeader)
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid webhook secret", Code: "UNAUTHORIZED"})
		return
	}
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	p, err := h.service.HandleWebhook(c.Request.Context(), payment.WebhookInput{
		Reference: req.Reference,
		Success:   req.Success,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
