package payment

import (
	"context"
	"errors"
)

// Seller-eligibility failures, each distinct so the client can render a
// precise message, plus the wrapper for anything the processor itself
// rejects. Callers never see the processor SDK's error shape.
var (
	ErrPaymentNotConfigured = errors.New("seller has no payout account")
	ErrOnboardingIncomplete = errors.New("seller payout onboarding incomplete")
	ErrPayoutsDisabled      = errors.New("seller payout account cannot receive funds")
	ErrProcessor            = errors.New("payment processor error")
)

// SplitChargeInput describes one destination charge. Amounts are integer
// minor units of Currency: the buyer is charged Amount, the platform
// retains ApplicationFee, and the remainder transfers to Destination.
type SplitChargeInput struct {
	Amount         int64
	ApplicationFee int64
	Currency       string
	Destination    string
	IdempotencyKey string
	Metadata       map[string]string
}

// SplitCharge is the processor's handle for a created charge
type SplitCharge struct {
	ClientSecret string
	Reference    string
	Status       string
}

// AccountStatus reflects a connected account's eligibility to receive funds
type AccountStatus struct {
	DetailsSubmitted bool
	ChargesEnabled   bool
	PayoutsEnabled   bool
}

// Processor is the payment-processor surface this service consumes
type Processor interface {
	CreateSplitCharge(ctx context.Context, in *SplitChargeInput) (*SplitCharge, error)
	AccountStatus(ctx context.Context, accountID string) (*AccountStatus, error)
}
