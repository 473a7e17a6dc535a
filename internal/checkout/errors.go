package checkout

import (
	"errors"
	"fmt"
)

// Kind classifies a checkout rejection. Every failure of the current
// attempt maps to exactly one kind; none are retried automatically.
type Kind string

const (
	KindUnauthenticated            Kind = "UNAUTHENTICATED"
	KindSelfPurchaseForbidden      Kind = "SELF_PURCHASE_FORBIDDEN"
	KindListingUnavailable         Kind = "LISTING_UNAVAILABLE"
	KindVariantUnavailable         Kind = "VARIANT_UNAVAILABLE"
	KindVariantAlreadySold         Kind = "VARIANT_ALREADY_SOLD"
	KindNoInventoryAvailable       Kind = "NO_INVENTORY_AVAILABLE"
	KindOfferNotAccepted           Kind = "OFFER_NOT_ACCEPTED"
	KindSellerPaymentNotConfigured Kind = "SELLER_PAYMENT_NOT_CONFIGURED"
	KindSellerOnboardingIncomplete Kind = "SELLER_ONBOARDING_INCOMPLETE"
	KindSellerPayoutsDisabled      Kind = "SELLER_PAYOUTS_DISABLED"
	KindPaymentProcessorError      Kind = "PAYMENT_PROCESSOR_ERROR"
	KindInvalidRequest             Kind = "INVALID_REQUEST"
	KindInternal                   Kind = "INTERNAL"
)

// Error is the caller-visible structured rejection: a kind plus a human
// message, wrapping the underlying cause so callers never depend on a
// third-party library's error shape.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a checkout error
func E(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error returned by this package.
// Anything else is internal.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
