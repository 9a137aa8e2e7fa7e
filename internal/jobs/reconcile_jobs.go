package jobs

import (
	"context"

	"tourledger-backend/internal/logger"
)

// ReconcileWallets folds every wallet's committed history and compares it
// with the stored balance. Mismatches are alerted by the service and never
// corrected here.
func (jr *JobRunner) ReconcileWallets() {
	jr.runWithRecovery("ReconcileWallets", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
		defer cancel()

		summary, err := jr.services.Reconciliation.ReconcileAll(ctx)
		if err != nil {
			logger.Error("Wallet reconciliation aborted", "error", err)
			return
		}

		if summary.Mismatched > 0 || summary.Failed > 0 {
			logger.Warn("Wallet reconciliation found problems",
				"checked", summary.Checked,
				"mismatched", summary.Mismatched,
				"failed", summary.Failed,
			)
			return
		}
		logger.Info("All wallets reconciled", "checked", summary.Checked)
	})
}
