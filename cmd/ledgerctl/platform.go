package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/data/postgres"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
)

func newPlatformCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Manage the platform wallets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create any missing platform wallet and print balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := a.openPostgres(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			wallets := postgres.NewWalletRepository(a.logger, db)
			if err := accounting.NewPlatformRegistry(a.logger, wallets).Initialize(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range wallet.PlatformNames {
				w, err := wallets.GetByName(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-10s %s %s\n", name, w.ID, w.Balance.StringFixed(2))
			}
			return nil
		},
	})
	return cmd
}
