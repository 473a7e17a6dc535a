package models

import (
	"database/sql"
	"time"
)

// Listing represents a sellable catalog entry owned by a seller
type Listing struct {
	ID                int64     `db:"id" json:"id"`
	SellerID          int64     `db:"seller_id" json:"seller_id"`
	Title             string    `db:"title" json:"title"`
	SellerPrice       int64     `db:"seller_price" json:"seller_price"`
	Currency          string    `db:"currency" json:"currency"`
	Status            string    `db:"status" json:"status"`
	Country           string    `db:"country" json:"country"`
	FreeShipping      bool      `db:"free_shipping" json:"free_shipping"`
	ShipDomestic      int64     `db:"ship_domestic" json:"ship_domestic"`
	ShipRegional      int64     `db:"ship_regional" json:"ship_regional"`
	ShipInternational int64     `db:"ship_international" json:"ship_international"`
	BundleDiscountPct int64     `db:"bundle_discount_pct" json:"bundle_discount_pct"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Variant represents a separately priced, separately sellable unit within a listing
type Variant struct {
	ID          int64        `db:"id" json:"id"`
	ListingID   int64        `db:"listing_id" json:"listing_id"`
	Label       string       `db:"label" json:"label"`
	Price       int64        `db:"price" json:"price"`
	IsAvailable bool         `db:"is_available" json:"is_available"`
	IsSold      bool         `db:"is_sold" json:"is_sold"`
	SoldAt      sql.NullTime `db:"sold_at" json:"sold_at,omitempty"`
}

// Offer represents a negotiated price proposal between buyer and seller
type Offer struct {
	ID              int64         `db:"id" json:"id"`
	ListingID       int64         `db:"listing_id" json:"listing_id"`
	BuyerID         int64         `db:"buyer_id" json:"buyer_id"`
	Amount          int64         `db:"amount" json:"amount"`
	Status          string        `db:"status" json:"status"`
	CountersOfferID sql.NullInt64 `db:"counters_offer_id" json:"counters_offer_id,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// SellerAccount holds a seller's payment-processor onboarding state
type SellerAccount struct {
	UserID           int64          `db:"user_id" json:"user_id"`
	ProcessorAccount sql.NullString `db:"processor_account" json:"processor_account,omitempty"`
	DetailsSubmitted bool           `db:"details_submitted" json:"details_submitted"`
	PayoutsEnabled   bool           `db:"payouts_enabled" json:"payouts_enabled"`
}

// Order is the transactional record of a purchase. All monetary fields are
// integer minor units of Currency and satisfy
// TotalAmount == SellerAmount + PlatformFee + ShippingCost at creation.
type Order struct {
	ID              int64     `db:"id" json:"id"`
	DraftID         string    `db:"draft_id" json:"draft_id"`
	BuyerID         int64     `db:"buyer_id" json:"buyer_id"`
	SellerID        int64     `db:"seller_id" json:"seller_id"`
	ListingID       int64     `db:"listing_id" json:"listing_id"`
	TotalAmount     int64     `db:"total_amount" json:"total_amount"`
	PlatformFee     int64     `db:"platform_fee" json:"platform_fee"`
	SellerAmount    int64     `db:"seller_amount" json:"seller_amount"`
	ShippingCost    int64     `db:"shipping_cost" json:"shipping_cost"`
	Currency        string    `db:"currency" json:"currency"`
	Status          string    `db:"status" json:"status"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	ShippingStatus  string    `db:"shipping_status" json:"shipping_status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderLine is one purchased unit within an order. VariantID is null for a
// whole-listing purchase; bundle orders carry one line per reserved variant.
type OrderLine struct {
	ID        int64         `db:"id" json:"id"`
	OrderID   int64         `db:"order_id" json:"order_id"`
	ListingID int64         `db:"listing_id" json:"listing_id"`
	VariantID sql.NullInt64 `db:"variant_id" json:"variant_id,omitempty"`
	UnitPrice int64         `db:"unit_price" json:"unit_price"`
}

// Payment links an order to the payment processor's charge
type Payment struct {
	ID          int64     `db:"id" json:"id"`
	OrderID     int64     `db:"order_id" json:"order_id"`
	Status      string    `db:"status" json:"status"`
	ProviderRef string    `db:"provider_ref" json:"provider_ref,omitempty"`
	Amount      int64     `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Listing statuses
const (
	ListingStatusDraft     = "draft"
	ListingStatusActive    = "active"
	ListingStatusReserved  = "reserved"
	ListingStatusSold      = "sold"
	ListingStatusCancelled = "cancelled"
	ListingStatusDisputed  = "disputed"
)

// Offer statuses
const (
	OfferStatusPending   = "pending"
	OfferStatusAccepted  = "accepted"
	OfferStatusRejected  = "rejected"
	OfferStatusCountered = "countered"
	OfferStatusExpired   = "expired"
)

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusDisputed  = "DISPUTED"
)

// Shipping statuses
const (
	ShippingStatusPending = "PENDING"
	ShippingStatusShipped = "SHIPPED"
)

// Payment statuses
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
