package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/checkout"
	"checkout-service/internal/fees"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const identityKey = "identity"

// ConfirmationPublisher forwards processor charge outcomes onto the event
// stream the settlement worker consumes. Satisfied by *broker.EventPublisher.
type ConfirmationPublisher interface {
	PublishPaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// OrderLookup resolves orders by their checkout draft UUID. Satisfied by
// *store.Store.
type OrderLookup interface {
	GetOrderByDraftID(ctx context.Context, draftID string) (*models.Order, error)
}

// Handler contains HTTP handlers
type Handler struct {
	orchestrator  *checkout.Orchestrator
	feeTable      *fees.Table
	verifier      *auth.Verifier
	publisher     ConfirmationPublisher
	orders        OrderLookup
	webhookSecret string
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orchestrator *checkout.Orchestrator,
	feeTable *fees.Table,
	verifier *auth.Verifier,
	publisher ConfirmationPublisher,
	orders OrderLookup,
	webhookSecret string,
) *Handler {
	return &Handler{
		orchestrator:  orchestrator,
		feeTable:      feeTable,
		verifier:      verifier,
		publisher:     publisher,
		orders:        orders,
		webhookSecret: webhookSecret,
		logger:        util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/fees/quote", h.quoteFees)
		v1.POST("/payments/webhook", h.paymentWebhook)

		authed := v1.Group("")
		authed.Use(h.authMiddleware())
		{
			authed.POST("/checkout", h.createCheckout)
			authed.GET("/orders/:id", h.getOrder)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// authMiddleware validates the bearer token and attaches the caller identity
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing bearer token",
			})
			return
		}

		identity, err := h.verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func callerID(c *gin.Context) int64 {
	identity := c.MustGet(identityKey).(*auth.Identity)
	return identity.UserID
}

// createCheckout handles a purchase attempt
func (h *Handler) createCheckout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	resp, err := h.orchestrator.Checkout(c.Request.Context(), callerID(c), &req)
	if err != nil {
		h.renderCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	detail, err := h.orchestrator.GetOrder(c.Request.Context(), callerID(c), orderID)
	if err != nil {
		h.renderCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// quoteFees returns the fee breakdown for a hypothetical price, so clients
// can show totals before the buyer commits
func (h *Handler) quoteFees(c *gin.Context) {
	price, err := strconv.ParseInt(c.Query("price"), 10, 64)
	if err != nil || price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "price must be a non-negative integer in minor units",
		})
		return
	}
	currency := c.DefaultQuery("currency", h.feeTable.BaseCurrency)

	buyer := h.feeTable.ComputeFee(fees.SideBuyer, price, currency)
	seller := h.feeTable.ComputeFee(fees.SideSeller, price, currency)

	c.JSON(http.StatusOK, gin.H{
		"schedule_version": h.feeTable.Version,
		"currency":         currency,
		"item_price":       price,
		"buyer_fee":        buyer,
		"seller_fee":       seller,
		"buyer_total":      price + buyer.Total,
		"seller_net":       price - seller.Total,
	})
}

// paymentWebhook receives signed charge outcomes from the processor and
// republishes them as domain events for the settlement worker
func (h *Handler) paymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("Rejected webhook with bad signature", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
		return
	}

	orderID, err := strconv.ParseInt(intent.Metadata["order_id"], 10, 64)
	if err != nil {
		orderID = h.resolveOrderByDraft(c.Request.Context(), intent.Metadata["draft_id"])
	}
	if orderID == 0 {
		// A charge this service did not create; acknowledge and move on
		h.logger.Warn("Webhook intent without order metadata",
			zap.String("intent", intent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	base := models.BaseEvent{
		EventID:   string(event.ID),
		EventType: models.EventTypePaymentSucceeded,
		Timestamp: time.Now(),
	}
	if base.EventID == "" {
		base.EventID = uuid.New().String()
	}

	ctx := c.Request.Context()
	if event.Type == "payment_intent.succeeded" {
		err = h.publisher.PublishPaymentSucceeded(ctx, &models.PaymentSucceededEvent{
			BaseEvent:   base,
			OrderID:     orderID,
			ProviderRef: intent.ID,
			Amount:      intent.Amount,
		})
	} else {
		base.EventType = models.EventTypePaymentFailed
		reason := "payment_failed"
		if intent.LastPaymentError != nil {
			reason = string(intent.LastPaymentError.Code)
		}
		err = h.publisher.PublishPaymentFailed(ctx, &models.PaymentFailedEvent{
			BaseEvent:   base,
			OrderID:     orderID,
			ProviderRef: intent.ID,
			Reason:      reason,
		})
	}
	if err != nil {
		// A non-2xx response makes the processor redeliver later
		h.logger.Error("Failed to publish payment event",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// resolveOrderByDraft maps an intent's draft UUID back to its order id,
// returning 0 when the draft is unknown
func (h *Handler) resolveOrderByDraft(ctx context.Context, draftID string) int64 {
	if draftID == "" || h.orders == nil {
		return 0
	}
	order, err := h.orders.GetOrderByDraftID(ctx, draftID)
	if err != nil || order == nil {
		return 0
	}
	return order.ID
}

// renderCheckoutError maps a checkout rejection kind to an HTTP status
func (h *Handler) renderCheckoutError(c *gin.Context, err error) {
	kind := checkout.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case checkout.KindInvalidRequest:
		status = http.StatusBadRequest
	case checkout.KindUnauthenticated:
		status = http.StatusForbidden
	case checkout.KindSelfPurchaseForbidden:
		status = http.StatusForbidden
	case checkout.KindListingUnavailable,
		checkout.KindVariantUnavailable,
		checkout.KindVariantAlreadySold,
		checkout.KindNoInventoryAvailable,
		checkout.KindOfferNotAccepted:
		status = http.StatusConflict
	case checkout.KindSellerPaymentNotConfigured,
		checkout.KindSellerOnboardingIncomplete,
		checkout.KindSellerPayoutsDisabled:
		status = http.StatusUnprocessableEntity
	case checkout.KindPaymentProcessorError:
		status = http.StatusBadGateway
	}

	body := gin.H{"error": string(kind)}
	var ce *checkout.Error
	if e, ok := err.(*checkout.Error); ok {
		ce = e
	}
	if ce != nil {
		body["message"] = ce.Message
	}
	c.JSON(status, body)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
