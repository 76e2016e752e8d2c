package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/data/postgres"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

func newPurchasesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchases",
		Short: "Inspect and repair data purchases",
	}

	var (
		staleAfter time.Duration
		batch      int
	)
	resolve := &cobra.Command{
		Use:   "resolve",
		Short: "Settle or refund purchases stuck in PENDING",
		Long: "Settles stale PENDING purchases as SUCCESS when the provider reference was recorded, " +
			"and refunds the rest. Exits non-zero if any purchase could not be finished.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if staleAfter == 0 {
				staleAfter = a.cfg.Recovery.StaleAfter
			}
			if staleAfter <= a.cfg.Provider.Timeout {
				return fmt.Errorf("--stale-after must be greater than the provider timeout (%s)", a.cfg.Provider.Timeout)
			}
			if batch <= 0 {
				batch = a.cfg.Recovery.BatchSize
			}

			ctx := cmd.Context()
			db, err := a.openPostgres(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			wallets := postgres.NewWalletRepository(a.logger, db)
			recovery := purchase.NewRecovery(
				a.logger,
				db,
				accounting.NewEngine(a.logger, wallets, postgres.NewLedgerRepository(a.logger, db)),
				postgres.NewTransactionRepository(a.logger, db),
				postgres.NewOutboxRepository(a.logger, db),
				purchase.RecoveryConfig{StaleAfter: staleAfter, BatchSize: batch},
			)

			summary, err := recovery.ResolveStale(ctx)
			if err != nil {
				return err
			}
			writeRecoverySummary(cmd.OutOrStdout(), summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d purchases could not be resolved", summary.Failed)
			}
			return nil
		},
	}
	resolve.Flags().DurationVar(&staleAfter, "stale-after", 0, "minimum age of a PENDING purchase (defaults to RECOVERY_STALE_AFTER)")
	resolve.Flags().IntVar(&batch, "batch-size", 0, "maximum purchases to resolve (defaults to RECOVERY_BATCH_SIZE)")

	cmd.AddCommand(resolve)
	return cmd
}

func writeRecoverySummary(w io.Writer, s *purchase.RecoverySummary) {
	fmt.Fprintf(w, "settled:  %d\nrefunded: %d\nskipped:  %d\nfailed:   %d\n", s.Settled, s.Refunded, s.Skipped, s.Failed)
}
