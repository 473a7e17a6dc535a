package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"checkout-service/internal/fees"
	"checkout-service/internal/models"
	"checkout-service/internal/payment"
	"checkout-service/internal/pricing"
	"checkout-service/internal/shipping"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Purchase types
const (
	PurchaseTypeSingle = "single"
	PurchaseTypeBundle = "bundle"
)

// Store is the persistence surface the orchestrator needs. Satisfied by
// *store.Store.
type Store interface {
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	GetSellerAccount(ctx context.Context, sellerID int64) (*models.SellerAccount, error)
	ReserveAndRecord(ctx context.Context, in *store.ReservationInput) (int64, error)
	ReleaseReservation(ctx context.Context, orderID int64) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error)
}

// EventPublisher publishes checkout domain events. Satisfied by
// *broker.EventPublisher.
type EventPublisher interface {
	PublishOrderRecorded(ctx context.Context, event *models.OrderRecordedEvent) error
	PublishReservationReleased(ctx context.Context, event *models.ReservationReleasedEvent) error
}

// IdempotencyStore remembers which order a request-level idempotency key
// produced. Satisfied by *redisclient.Client.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (int64, bool, error)
	Remember(ctx context.Context, key string, orderID int64, ttl time.Duration) error
}

// Address is the buyer's shipping destination snapshot
type Address struct {
	Name       string `json:"name" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required,len=2"`
}

// Request is one checkout attempt, schema-validated at the boundary
type Request struct {
	ListingID       int64   `json:"listing_id" binding:"required"`
	ShippingAddress Address `json:"shipping_address" binding:"required"`
	OfferID         *int64  `json:"offer_id,omitempty"`
	PurchaseType    string  `json:"purchase_type,omitempty" binding:"omitempty,oneof=single bundle"`
	VariantID       *int64  `json:"variant_id,omitempty"`
	IdempotencyKey  string  `json:"-"`
}

// Response is returned on a recorded checkout: the order plus the handle
// the caller's payment UI uses to complete authorization
type Response struct {
	OrderID      int64  `json:"order_id"`
	DraftID      string `json:"draft_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	ItemPrice    int64  `json:"item_price"`
	BuyerFee     int64  `json:"buyer_fee"`
	ShippingCost int64  `json:"shipping_cost"`
	TotalCharge  int64  `json:"total_charge"`
	Currency     string `json:"currency"`
}

// Orchestrator runs a checkout end to end: validate, resolve price, reserve
// inventory, issue the split payment, record the payment handle.
type Orchestrator struct {
	store     Store
	resolver  *pricing.Resolver
	feeTable  *fees.Table
	issuer    *payment.Issuer
	publisher EventPublisher
	idem      IdempotencyStore
	logger    *zap.Logger
}

// NewOrchestrator creates a new checkout orchestrator. idem may be nil to
// disable request-level idempotency.
func NewOrchestrator(
	st Store,
	resolver *pricing.Resolver,
	feeTable *fees.Table,
	issuer *payment.Issuer,
	publisher EventPublisher,
	idem IdempotencyStore,
) *Orchestrator {
	return &Orchestrator{
		store:     st,
		resolver:  resolver,
		feeTable:  feeTable,
		issuer:    issuer,
		publisher: publisher,
		idem:      idem,
		logger:    util.GetLogger(),
	}
}

// Checkout processes one purchase attempt for the authenticated buyer.
// Every failure returns a *Error; on success the returned response carries
// the processor's client secret and the recorded order id.
func (o *Orchestrator) Checkout(ctx context.Context, buyerID int64, req *Request) (*Response, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.Checkout")
	defer span.End()

	util.CheckoutAttemptsTotal.Inc()

	if req.VariantID != nil && req.PurchaseType == PurchaseTypeBundle {
		return nil, o.reject(E(KindInvalidRequest,
			"variant_id and purchase_type=bundle are mutually exclusive", nil))
	}

	if req.IdempotencyKey != "" && o.idem != nil {
		if orderID, ok, err := o.idem.Lookup(ctx, req.IdempotencyKey); err == nil && ok {
			order, err := o.store.GetOrderByID(ctx, orderID)
			if err == nil {
				o.logger.Info("Duplicate checkout request",
					zap.String("idempotency_key", req.IdempotencyKey),
					zap.Int64("order_id", orderID))
				return &Response{OrderID: order.ID, DraftID: order.DraftID, Status: order.Status,
					TotalCharge: order.TotalAmount, Currency: order.Currency}, nil
			}
		}
	}

	listing, err := o.store.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, o.reject(E(KindListingUnavailable, "listing not found", err))
	}
	if listing.Status != models.ListingStatusActive {
		return nil, o.reject(E(KindListingUnavailable, "listing is not active", nil))
	}
	if listing.SellerID == buyerID {
		return nil, o.reject(E(KindSelfPurchaseForbidden, "cannot purchase your own listing", nil))
	}
	seller, err := o.store.GetSellerAccount(ctx, listing.SellerID)
	if err != nil {
		return nil, o.reject(E(KindInternal, "failed to load seller account", err))
	}

	resolution, err := o.resolver.Resolve(ctx, &pricing.Request{
		Listing:   listing,
		BuyerID:   buyerID,
		OfferID:   req.OfferID,
		VariantID: req.VariantID,
		Bundle:    req.PurchaseType == PurchaseTypeBundle,
	})
	if err != nil {
		return nil, o.reject(mapPricingError(err))
	}

	shippingCost := shipping.Cost(listing, req.ShippingAddress.Country)
	buyerFee := o.feeTable.ComputeFee(fees.SideBuyer, resolution.ItemPrice, listing.Currency)
	sellerFee := o.feeTable.ComputeFee(fees.SideSeller, resolution.ItemPrice, listing.Currency)

	totalCharge := resolution.ItemPrice + buyerFee.Total + shippingCost
	platformFee := buyerFee.Total + sellerFee.Total
	sellerAmount := resolution.ItemPrice - sellerFee.Total

	draftID := uuid.New().String()
	addressJSON, err := json.Marshal(req.ShippingAddress)
	if err != nil {
		return nil, o.reject(E(KindInvalidRequest, "invalid shipping address", err))
	}

	// The conditional flips, the order header and all lines commit in one
	// transaction
	start := time.Now()
	orderID, err := o.store.ReserveAndRecord(ctx, &store.ReservationInput{
		DraftID:         draftID,
		BuyerID:         buyerID,
		SellerID:        listing.SellerID,
		ListingID:       listing.ID,
		VariantIDs:      variantIDs(resolution),
		ItemPrice:       resolution.ItemPrice,
		TotalAmount:     totalCharge,
		PlatformFee:     platformFee,
		SellerAmount:    sellerAmount,
		ShippingCost:    shippingCost,
		Currency:        listing.Currency,
		ShippingAddress: string(addressJSON),
		Lines:           orderLines(resolution),
	})
	util.ReservationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, o.reject(mapReservationError(err))
	}

	// Any failure from here on compensates the reservation so no variant
	// stays sold without a live order
	charge, err := o.issuer.Issue(ctx, &payment.IssueInput{
		TotalCharge: totalCharge,
		PlatformFee: platformFee,
		Currency:    listing.Currency,
		Seller:      seller,
		DraftID:     draftID,
		Metadata: map[string]string{
			"order_id": strconv.FormatInt(orderID, 10),
			"draft_id": draftID,
		},
	})
	if err != nil {
		o.compensate(ctx, orderID, listing.ID, err)
		return nil, o.reject(mapPaymentError(err))
	}

	if err := o.store.CreatePayment(ctx, &models.Payment{
		OrderID:     orderID,
		Status:      models.PaymentStatusPending,
		ProviderRef: charge.Reference,
		Amount:      totalCharge,
	}); err != nil {
		// The charge and order both exist; reconciliation finds the
		// payment row through the processor reference in metadata.
		o.logger.Error("Failed to record payment row",
			zap.Int64("order_id", orderID),
			zap.String("provider_ref", charge.Reference),
			zap.Error(err))
	}

	util.OrdersRecordedTotal.Inc()
	o.logger.Info("Checkout recorded",
		zap.Int64("order_id", orderID),
		zap.Int64("buyer_id", buyerID),
		zap.Int64("listing_id", listing.ID),
		zap.String("kind", resolution.Kind),
		zap.Int64("total_charge", totalCharge),
		zap.String("currency", listing.Currency))

	event := &models.OrderRecordedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderRecorded),
		OrderID:     orderID,
		DraftID:     draftID,
		BuyerID:     buyerID,
		SellerID:    listing.SellerID,
		ListingID:   listing.ID,
		TotalAmount: totalCharge,
		PlatformFee: platformFee,
		Currency:    listing.Currency,
	}
	if err := o.publisher.PublishOrderRecorded(ctx, event); err != nil {
		o.logger.Error("Failed to publish OrderRecorded event", zap.Error(err))
	}

	if req.IdempotencyKey != "" && o.idem != nil {
		if err := o.idem.Remember(ctx, req.IdempotencyKey, orderID, 24*time.Hour); err != nil {
			o.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	return &Response{
		OrderID:      orderID,
		DraftID:      draftID,
		ClientSecret: charge.ClientSecret,
		Status:       models.OrderStatusPending,
		ItemPrice:    resolution.ItemPrice,
		BuyerFee:     buyerFee.Total,
		ShippingCost: shippingCost,
		TotalCharge:  totalCharge,
		Currency:     listing.Currency,
	}, nil
}

// OrderDetail is the read model for one order: the header, its lines and
// the latest payment attempt if one was recorded
type OrderDetail struct {
	Order   *models.Order      `json:"order"`
	Lines   []models.OrderLine `json:"lines"`
	Payment *models.Payment    `json:"payment,omitempty"`
}

// GetOrder returns an order with its lines and payment, restricted to its
// buyer or seller
func (o *Orchestrator) GetOrder(ctx context.Context, callerID, orderID int64) (*OrderDetail, error) {
	order, err := o.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, E(KindInvalidRequest, "order not found", err)
	}
	if order.BuyerID != callerID && order.SellerID != callerID {
		return nil, E(KindUnauthenticated, "not a party to this order", nil)
	}

	lines, err := o.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, E(KindInternal, "failed to load order lines", err)
	}

	// An order can legitimately have no payment row when issuance failed
	pay, err := o.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		pay = nil
	}
	return &OrderDetail{Order: order, Lines: lines, Payment: pay}, nil
}

// compensate releases the reservation committed for orderID after a
// payment-issuance failure
func (o *Orchestrator) compensate(ctx context.Context, orderID, listingID int64, cause error) {
	o.logger.Warn("Releasing reservation after payment failure",
		zap.Int64("order_id", orderID),
		zap.Error(cause))

	if err := o.store.ReleaseReservation(ctx, orderID); err != nil {
		o.logger.Error("Failed to release reservation",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return
	}

	util.ReservationsReleasedTotal.Inc()
	util.OrdersCancelledTotal.Inc()

	event := &models.ReservationReleasedEvent{
		BaseEvent: newBaseEvent(models.EventTypeReservationReleased),
		OrderID:   orderID,
		ListingID: listingID,
		Reason:    string(KindOf(mapPaymentError(cause))),
	}
	if err := o.publisher.PublishReservationReleased(ctx, event); err != nil {
		o.logger.Error("Failed to publish ReservationReleased event", zap.Error(err))
	}
}

func (o *Orchestrator) reject(err *Error) *Error {
	util.CheckoutRejectedTotal.WithLabelValues(string(err.Kind)).Inc()
	o.logger.Info("Checkout rejected",
		zap.String("kind", string(err.Kind)),
		zap.String("message", err.Message))
	return err
}

func variantIDs(res *pricing.Resolution) []int64 {
	ids := make([]int64, 0, len(res.Variants))
	for _, v := range res.Variants {
		ids = append(ids, v.ID)
	}
	return ids
}

// orderLines builds the lines the reservation transaction inserts: one per
// bundle variant at its own price, otherwise a single line at the charged
// item price.
func orderLines(res *pricing.Resolution) []store.LineInput {
	if res.Kind == pricing.KindBundle {
		lines := make([]store.LineInput, 0, len(res.Variants))
		for _, v := range res.Variants {
			lines = append(lines, store.LineInput{VariantID: v.ID, UnitPrice: v.Price})
		}
		return lines
	}

	line := store.LineInput{UnitPrice: res.ItemPrice}
	if len(res.Variants) == 1 {
		line.VariantID = res.Variants[0].ID
	}
	return []store.LineInput{line}
}

func mapPricingError(err error) *Error {
	switch {
	case errors.Is(err, pricing.ErrOfferNotAccepted):
		return E(KindOfferNotAccepted, "offer is not accepted for this buyer and listing", err)
	case errors.Is(err, pricing.ErrVariantUnavailable):
		return E(KindVariantUnavailable, "variant is not available", err)
	case errors.Is(err, pricing.ErrNoInventory):
		return E(KindNoInventoryAvailable, "no variants remain for bundle purchase", err)
	default:
		return E(KindInternal, "price resolution failed", err)
	}
}

func mapReservationError(err error) *Error {
	switch {
	case errors.Is(err, store.ErrListingUnavailable):
		return E(KindListingUnavailable, "listing is no longer available", err)
	case errors.Is(err, store.ErrVariantAlreadySold):
		util.ReservationConflictsTotal.WithLabelValues("variant_sold").Inc()
		return E(KindVariantAlreadySold, "variant was claimed by another buyer", err)
	default:
		return E(KindInternal, "reservation failed", err)
	}
}

func mapPaymentError(err error) *Error {
	switch {
	case errors.Is(err, payment.ErrPaymentNotConfigured):
		return E(KindSellerPaymentNotConfigured, "seller has not set up payments", err)
	case errors.Is(err, payment.ErrOnboardingIncomplete):
		return E(KindSellerOnboardingIncomplete, "seller payment onboarding is incomplete", err)
	case errors.Is(err, payment.ErrPayoutsDisabled):
		return E(KindSellerPayoutsDisabled, "seller cannot currently receive payouts", err)
	case errors.Is(err, payment.ErrProcessor):
		return E(KindPaymentProcessorError, "payment processor rejected the charge", err)
	default:
		return E(KindInternal, "payment issuance failed", err)
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
