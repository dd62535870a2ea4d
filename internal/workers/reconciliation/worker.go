// Package reconciliation periodically checks that the escrow account
// balance covers the sum of outstanding locked transfer amounts. Any drift
// means the ledger and the balances disagree and needs investigation.
package reconciliation

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	"github.com/bridge-service/bridge_service/internal/domain/repositories"
	"github.com/bridge-service/bridge_service/pkg/logger"
	"github.com/bridge-service/bridge_service/pkg/metrics"
)

// Worker runs the escrow reconciliation check on a cron schedule
type Worker struct {
	store  repositories.BridgeStore
	logger *logger.Logger
	cron   *cron.Cron
	spec   string
}

// NewWorker creates a reconciliation worker. spec is a cron expression,
// for example "@every 15m".
func NewWorker(store repositories.BridgeStore, log *logger.Logger, spec string) *Worker {
	return &Worker{
		store:  store,
		logger: log,
		cron:   cron.New(),
		spec:   spec,
	}
}

// Start schedules the reconciliation job and runs one check immediately
func (w *Worker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.spec, func() { w.Reconcile(ctx) }); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("Reconciliation worker started", "schedule", w.spec)

	go w.Reconcile(ctx)
	return nil
}

// Stop halts the cron scheduler and waits for a running job to finish
func (w *Worker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info("Reconciliation worker stopped")
}

// Reconcile compares the escrow balance against the outstanding locked
// total and publishes both to metrics
func (w *Worker) Reconcile(ctx context.Context) {
	escrow, err := w.store.SystemAccount(ctx, entities.AccountTypeEscrow)
	if err != nil {
		w.logger.Error("Reconciliation failed to read escrow account", "error", err)
		return
	}

	outstanding, err := w.store.OutstandingLocked(ctx)
	if err != nil {
		w.logger.Error("Reconciliation failed to sum outstanding transfers", "error", err)
		return
	}

	drift := escrow.Balance.Sub(outstanding)
	metrics.EscrowBalance.Set(escrow.Balance.InexactFloat64())
	metrics.ReconciliationDrift.Set(drift.InexactFloat64())

	if drift.IsNegative() {
		w.logger.Error("Escrow balance below outstanding locked total",
			"escrow_balance", escrow.Balance,
			"outstanding_locked", outstanding,
			"drift", drift,
		)
		return
	}

	w.logger.Debug("Reconciliation check passed",
		"escrow_balance", escrow.Balance,
		"outstanding_locked", outstanding,
		"drift", drift,
	)
}
