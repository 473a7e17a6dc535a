package checkout

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// SettlementStore is the persistence surface settlement needs. Satisfied
// by *store.Store.
type SettlementStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status, providerRef string) error
	ReleaseReservation(ctx context.Context, orderID int64) error
	FinalizeListing(ctx context.Context, listingID int64, wholeListing bool) error
}

// Settlement applies the processor's asynchronous charge outcome to a
// recorded order: success settles it, failure compensates the reservation.
type Settlement struct {
	store  SettlementStore
	logger *zap.Logger
}

// NewSettlement creates a new settlement handler
func NewSettlement(store SettlementStore) *Settlement {
	return &Settlement{
		store:  store,
		logger: util.GetLogger(),
	}
}

// HandlePaymentSucceeded marks the order paid and settles the listing row
func (s *Settlement) HandlePaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	ctx, span := util.StartSpan(ctx, "Settlement.HandlePaymentSucceeded")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := s.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %d: %w", event.OrderID, err)
	}
	if order.Status != models.OrderStatusPending {
		s.logger.Warn("Payment confirmation for non-pending order",
			zap.Int64("order_id", order.ID),
			zap.String("status", order.Status))
		return s.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}

	if err := s.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPaid); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if err := s.store.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusSuccess, event.ProviderRef); err != nil {
		s.logger.Error("Failed to update payment status", zap.Error(err))
	}

	lines, err := s.store.GetOrderLines(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}
	wholeListing := true
	for _, line := range lines {
		if line.VariantID.Valid {
			wholeListing = false
			break
		}
	}
	if err := s.store.FinalizeListing(ctx, order.ListingID, wholeListing); err != nil {
		s.logger.Error("Failed to finalize listing",
			zap.Int64("listing_id", order.ListingID),
			zap.Error(err))
	}

	util.OrdersPaidTotal.Inc()

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	s.logger.Info("Order settled", zap.Int64("order_id", order.ID))
	return nil
}

// HandlePaymentFailed compensates a pending order whose charge the
// processor ultimately rejected
func (s *Settlement) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "Settlement.HandlePaymentFailed")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := s.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %d: %w", event.OrderID, err)
	}

	if order.Status == models.OrderStatusPending {
		s.logger.Warn("Payment failed - releasing reservation",
			zap.Int64("order_id", order.ID),
			zap.String("reason", event.Reason))

		if err := s.store.ReleaseReservation(ctx, order.ID); err != nil {
			return fmt.Errorf("failed to release reservation: %w", err)
		}
		util.ReservationsReleasedTotal.Inc()
		util.OrdersCancelledTotal.Inc()
	}

	if err := s.store.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusFailed, event.ProviderRef); err != nil {
		s.logger.Error("Failed to update payment status", zap.Error(err))
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		s.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	s.logger.Info("Order cancelled after payment failure", zap.Int64("order_id", order.ID))
	return nil
}
