package checkout

import (
	"context"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settledFixture(t *testing.T) (*fixture, *Settlement, *Response) {
	t.Helper()
	fx := newFixture()
	resp, err := fx.orch.Checkout(context.Background(), 2, &Request{
		ListingID:       1,
		ShippingAddress: buyerAddress(),
	})
	require.NoError(t, err)
	return fx, NewSettlement(fx.store), resp
}

func TestSettlementPaymentSucceeded(t *testing.T) {
	fx, settlement, resp := settledFixture(t)

	event := &models.PaymentSucceededEvent{
		BaseEvent:   newBaseEvent(models.EventTypePaymentSucceeded),
		OrderID:     resp.OrderID,
		ProviderRef: "pi_confirmed",
		Amount:      resp.TotalCharge,
	}
	require.NoError(t, settlement.HandlePaymentSucceeded(context.Background(), event))

	order := fx.store.orders[resp.OrderID]
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, models.PaymentStatusSuccess, fx.store.payments[resp.OrderID].Status)
	assert.Equal(t, "pi_confirmed", fx.store.payments[resp.OrderID].ProviderRef)

	// Whole-listing order: confirmation moves the listing to sold
	assert.Equal(t, models.ListingStatusSold, fx.store.listings[1].Status)
}

func TestSettlementPaymentSucceededIsIdempotent(t *testing.T) {
	fx, settlement, resp := settledFixture(t)

	event := &models.PaymentSucceededEvent{
		BaseEvent:   newBaseEvent(models.EventTypePaymentSucceeded),
		OrderID:     resp.OrderID,
		ProviderRef: "pi_confirmed",
	}
	require.NoError(t, settlement.HandlePaymentSucceeded(context.Background(), event))
	require.NoError(t, settlement.HandlePaymentSucceeded(context.Background(), event))

	assert.Equal(t, models.OrderStatusPaid, fx.store.orders[resp.OrderID].Status)
}

func TestSettlementPaymentSucceededNonPendingOrder(t *testing.T) {
	fx, settlement, resp := settledFixture(t)
	fx.store.orders[resp.OrderID].Status = models.OrderStatusCancelled

	event := &models.PaymentSucceededEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentSucceeded),
		OrderID:   resp.OrderID,
	}
	require.NoError(t, settlement.HandlePaymentSucceeded(context.Background(), event))

	// A late confirmation never resurrects a cancelled order
	assert.Equal(t, models.OrderStatusCancelled, fx.store.orders[resp.OrderID].Status)
	assert.True(t, fx.store.processed[event.EventID])
}

func TestSettlementPaymentFailedReleasesReservation(t *testing.T) {
	fx, settlement, resp := settledFixture(t)

	event := &models.PaymentFailedEvent{
		BaseEvent:   newBaseEvent(models.EventTypePaymentFailed),
		OrderID:     resp.OrderID,
		ProviderRef: "pi_declined",
		Reason:      "card_declined",
	}
	require.NoError(t, settlement.HandlePaymentFailed(context.Background(), event))

	assert.Equal(t, models.OrderStatusCancelled, fx.store.orders[resp.OrderID].Status)
	assert.Equal(t, models.PaymentStatusFailed, fx.store.payments[resp.OrderID].Status)
	// The whole-listing hold is lifted so the listing can sell again
	assert.Equal(t, models.ListingStatusActive, fx.store.listings[1].Status)
}

func TestSettlementVariantOrderFinalizesWhenInventoryExhausted(t *testing.T) {
	fx := newFixture()
	fx.store.variants[1] = &models.Variant{ID: 1, ListingID: 1, Price: 2500, IsAvailable: true}
	settlement := NewSettlement(fx.store)

	variantID := int64(1)
	resp, err := fx.orch.Checkout(context.Background(), 2, &Request{
		ListingID:       1,
		ShippingAddress: buyerAddress(),
		VariantID:       &variantID,
	})
	require.NoError(t, err)

	event := &models.PaymentSucceededEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentSucceeded),
		OrderID:   resp.OrderID,
	}
	require.NoError(t, settlement.HandlePaymentSucceeded(context.Background(), event))

	// The last sellable variant was sold, so the listing closes
	assert.Equal(t, models.ListingStatusSold, fx.store.listings[1].Status)
}
