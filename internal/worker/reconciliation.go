package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/repo"
)

// SpendRecorder settles an order into its customer's aggregates.
type SpendRecorder interface {
	RecordOrderSpend(ctx context.Context, order domain.Order) error
}

// ReconciliationWorker finds orders whose customer spend was never recorded
// and records it.
type ReconciliationWorker struct {
	orderRepo repo.OrderRepo
	recorder  SpendRecorder
	interval  time.Duration
	grace     time.Duration
}

func NewReconciliationWorker(
	orderRepo repo.OrderRepo,
	recorder SpendRecorder,
	interval time.Duration,
	grace time.Duration,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		orderRepo: orderRepo,
		recorder:  recorder,
		interval:  interval,
		grace:     grace,
	}
}

// Run blocks until ctx is done.
func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	log.WithField("interval", rw.interval).Info("reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if _, err := rw.Process(ctx); err != nil {
				log.WithError(err).Error("reconciliation failed")
			}
		}
	}
}

// Process runs one reconciliation pass and returns how many orders it settled.
// Orders older than the grace period are considered stuck; younger ones may
// still be in the middle of PlaceOrder.
func (rw *ReconciliationWorker) Process(ctx context.Context) (int, error) {
	stuck := rw.orderRepo.FindSpendPending(ctx, rw.grace)
	if len(stuck) == 0 {
		return 0, nil
	}

	log.WithField("count", len(stuck)).Warn("found orders with unrecorded customer spend")

	fixed := 0
	for _, order := range stuck {
		if ctx.Err() != nil {
			return fixed, ctx.Err()
		}
		entry := log.WithFields(log.Fields{"order_id": order.ID, "customer_id": order.CustomerID})

		err := rw.recorder.RecordOrderSpend(ctx, order)
		switch {
		case err == nil:
			entry.Info("customer spend recorded")
			fixed++
		case errors.Is(err, domain.ErrNotFound):
			// The customer is gone; nothing left to settle.
			entry.Warn("customer not found, dropping pending spend")
			if err := rw.orderRepo.ClearSpendPending(ctx, order.ID); err != nil {
				return fixed, err
			}
		case errors.Is(err, domain.ErrStorage):
			return fixed, err
		default:
			entry.WithError(err).Error("failed to record customer spend")
		}
	}
	return fixed, nil
}
