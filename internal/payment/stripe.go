package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProcessor issues destination charges through Stripe Connect
type StripeProcessor struct {
	api *client.API
}

// NewStripeProcessor creates a Stripe-backed processor
func NewStripeProcessor(apiKey string) *StripeProcessor {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeProcessor{api: api}
}

// CreateSplitCharge creates a PaymentIntent whose application fee stays with
// the platform and whose remainder transfers to the seller's connected
// account. The idempotency key makes client retries safe.
func (p *StripeProcessor) CreateSplitCharge(ctx context.Context, in *SplitChargeInput) (*SplitCharge, error) {
	params := &stripe.PaymentIntentParams{
		Params:               stripe.Params{Context: ctx},
		Amount:               stripe.Int64(in.Amount),
		Currency:             stripe.String(strings.ToLower(in.Currency)),
		ApplicationFeeAmount: stripe.Int64(in.ApplicationFee),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(in.Destination),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment intent: %v", ErrProcessor, err)
	}

	return &SplitCharge{
		ClientSecret: pi.ClientSecret,
		Reference:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// AccountStatus reads a connected account's eligibility flags
func (p *StripeProcessor) AccountStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	acct, err := p.api.Accounts.GetByID(accountID, &stripe.AccountParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch account %s: %v", ErrProcessor, accountID, err)
	}

	return &AccountStatus{
		DetailsSubmitted: acct.DetailsSubmitted,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
	}, nil
}
