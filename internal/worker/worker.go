package worker

import (
	"context"

	"checkout-service/internal/broker"
	"checkout-service/internal/checkout"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// SettlementWorker consumes payment outcome events and applies them to
// recorded orders
type SettlementWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(consumer *broker.Consumer, settlement *checkout.Settlement) *SettlementWorker {
	logger := util.GetLogger()

	eventHandler := broker.NewEventHandler(logger)
	eventHandler.OnPaymentSucceeded(settlement.HandlePaymentSucceeded)
	eventHandler.OnPaymentFailed(settlement.HandlePaymentFailed)

	return &SettlementWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       logger,
	}
}

// Start starts the worker
func (w *SettlementWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting settlement worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SettlementWorker) Stop() error {
	w.logger.Info("Stopping settlement worker")
	return w.consumer.Close()
}
