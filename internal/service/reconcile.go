package service

import (
	"context"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/repository"
)

const defaultReconcilePageSize = 500

type reconciliationService struct {
	core
	alerter  Alerter
	pageSize int
}

func NewReconciliationService(d Deps, pageSize int) ReconciliationService {
	if pageSize <= 0 {
		pageSize = defaultReconcilePageSize
	}
	return &reconciliationService{core: newCore(d), alerter: d.Alerter, pageSize: pageSize}
}

// ReconcileWallet folds the committed ledger rows from zero and compares the
// result with the stored balance. A mismatch is reported, never repaired.
func (s *reconciliationService) ReconcileWallet(ctx context.Context, walletID string) (*domain.ReconciliationResult, error) {
	if err := validateWalletID(walletID); err != nil {
		return nil, err
	}

	var result *domain.ReconciliationResult
	// The wallet lock keeps a concurrent mutation from landing between the
	// balance read and the fold.
	err := s.runInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		w, err := repos.Wallets.GetWalletForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		sum, count, err := repos.Transactions.SumCommitted(ctx, walletID)
		if err != nil {
			return err
		}
		result = &domain.ReconciliationResult{
			WalletID:         w.ID,
			Matches:          sum == w.Balance,
			StoredBalance:    w.Balance,
			ComputedBalance:  sum,
			Drift:            w.Balance - sum,
			TransactionCount: count,
			CheckedAt:        s.clock.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveReconcile(result.WalletID, result.Matches, result.Drift)
	if !result.Matches {
		logger.WarnContext(ctx, "Wallet balance drift detected",
			"wallet_id", result.WalletID,
			"stored", result.StoredBalance,
			"computed", result.ComputedBalance,
			"drift", result.Drift)
		if s.alerter != nil {
			if err := s.alerter.ReportDiscrepancy(ctx, *result); err != nil {
				logger.WarnContext(ctx, "Failed to report discrepancy", "wallet_id", result.WalletID, "error", err)
			}
		}
	}
	return result, nil
}

// ReconcileAll walks every wallet. A wallet that cannot be checked is counted
// as failed; the walk continues.
func (s *reconciliationService) ReconcileAll(ctx context.Context) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{StartedAt: s.clock.Now()}
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		wallets, err := s.store.Repos().Wallets.ListWallets(ctx, after, s.pageSize)
		if err != nil {
			return summary, err
		}
		for _, w := range wallets {
			res, err := s.ReconcileWallet(ctx, w.ID)
			summary.Checked++
			if err != nil {
				summary.Failed++
				logger.ErrorContext(ctx, "Failed to reconcile wallet", "wallet_id", w.ID, "error", err)
				continue
			}
			if !res.Matches {
				summary.Mismatched++
				summary.Mismatches = append(summary.Mismatches, *res)
			}
		}
		if len(wallets) < s.pageSize {
			break
		}
		after = wallets[len(wallets)-1].ID
	}
	summary.FinishedAt = s.clock.Now()
	s.metrics.ObserveReconcileRun(summary.FinishedAt)

	logger.InfoContext(ctx, "Reconciliation run finished",
		"checked", summary.Checked, "mismatched", summary.Mismatched, "failed", summary.Failed)
	return summary, nil
}
