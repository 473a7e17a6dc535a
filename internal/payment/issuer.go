package payment

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Issuer creates the split payment for a checkout: the buyer is charged the
// full total, the platform keeps its fee, and the remainder transfers to
// the seller's connected account.
type Issuer struct {
	processor Processor
	logger    *zap.Logger
}

// NewIssuer creates a new split-payment issuer
func NewIssuer(processor Processor) *Issuer {
	return &Issuer{
		processor: processor,
		logger:    util.GetLogger(),
	}
}

// IssueInput describes the charge to create. TotalCharge and PlatformFee
// are integer minor units of Currency.
type IssueInput struct {
	TotalCharge int64
	PlatformFee int64
	Currency    string
	Seller      *models.SellerAccount
	DraftID     string
	Metadata    map[string]string
}

// Issue verifies the seller can receive funds and creates the pending
// charge. The idempotency key is derived from the checkout draft id, so a
// retried request cannot create a duplicate charge.
func (i *Issuer) Issue(ctx context.Context, in *IssueInput) (*SplitCharge, error) {
	ctx, span := util.StartSpan(ctx, "Issuer.Issue")
	defer span.End()

	if !in.Seller.ProcessorAccount.Valid || in.Seller.ProcessorAccount.String == "" {
		return nil, ErrPaymentNotConfigured
	}
	destination := in.Seller.ProcessorAccount.String

	status, err := i.processor.AccountStatus(ctx, destination)
	if err != nil {
		return nil, err
	}
	if !status.DetailsSubmitted {
		return nil, ErrOnboardingIncomplete
	}
	if !status.ChargesEnabled || !status.PayoutsEnabled {
		return nil, ErrPayoutsDisabled
	}

	util.PaymentChargesTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentChargeLatency.Observe(time.Since(start).Seconds())
	}()

	charge, err := i.processor.CreateSplitCharge(ctx, &SplitChargeInput{
		Amount:         in.TotalCharge,
		ApplicationFee: in.PlatformFee,
		Currency:       in.Currency,
		Destination:    destination,
		IdempotencyKey: fmt.Sprintf("checkout-%s", in.DraftID),
		Metadata:       in.Metadata,
	})
	if err != nil {
		util.PaymentChargeFailedTotal.WithLabelValues("processor").Inc()
		i.logger.Error("Split charge creation failed",
			zap.String("draft_id", in.DraftID),
			zap.Error(err))
		return nil, err
	}

	i.logger.Info("Split charge created",
		zap.String("draft_id", in.DraftID),
		zap.String("provider_ref", charge.Reference),
		zap.Int64("amount", in.TotalCharge),
		zap.Int64("application_fee", in.PlatformFee))

	return charge, nil
}
