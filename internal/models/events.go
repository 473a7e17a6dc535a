package models

import "time"

// Event types
const (
	EventTypeOrderRecorded       = "ORDER_RECORDED"
	EventTypePaymentSucceeded    = "PAYMENT_SUCCEEDED"
	EventTypePaymentFailed       = "PAYMENT_FAILED"
	EventTypeReservationReleased = "RESERVATION_RELEASED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderRecordedEvent published when a checkout produced a recorded order
// with its inventory reserved and a pending charge issued
type OrderRecordedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	DraftID     string `json:"draft_id"`
	BuyerID     int64  `json:"buyer_id"`
	SellerID    int64  `json:"seller_id"`
	ListingID   int64  `json:"listing_id"`
	TotalAmount int64  `json:"total_amount"`
	PlatformFee int64  `json:"platform_fee"`
	Currency    string `json:"currency"`
}

// PaymentSucceededEvent published when the processor confirms the charge
type PaymentSucceededEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	ProviderRef string `json:"provider_ref"`
	Amount      int64  `json:"amount"`
}

// PaymentFailedEvent published when the processor reports a failed charge
type PaymentFailedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	ProviderRef string `json:"provider_ref"`
	Reason      string `json:"reason"`
}

// ReservationReleasedEvent published after a compensating release of
// reserved inventory
type ReservationReleasedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	ListingID int64  `json:"listing_id"`
	Reason    string `json:"reason"`
}
