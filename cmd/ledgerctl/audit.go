package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vtu-wallet-ledger/internal/audit"
	"github.com/vtu-wallet-ledger/internal/data/postgres"
)

func (a *app) auditService(cmd *cobra.Command) (*audit.Service, func(), error) {
	db, err := a.openPostgres(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	svc := audit.NewService(a.logger,
		postgres.NewWalletRepository(a.logger, db),
		postgres.NewLedgerRepository(a.logger, db),
	)
	return svc, db.Close, nil
}

// newAuditCommand exits non-zero when balances do not reconcile, so it can gate deploys.
func newAuditCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Compare the sum of user balances with the liability wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := a.auditService(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			report, err := svc.AuditBalances(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "users %s  liability %s  difference %s\n",
				report.UserTotal.StringFixed(2),
				report.LiabilityTotal.StringFixed(2),
				report.Difference.StringFixed(2),
			)
			return report.Err()
		},
	}
}

func newFlowsCommand(a *app) *cobra.Command {
	var timeframe, from, to string

	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Print platform inflow and outflow per time bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fromTime, err := parseBound(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toTime, err := parseBound(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			svc, closeDB, err := a.auditService(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			report, err := svc.InflowOutflow(cmd.Context(), timeframe, fromTime, toTime)
			if err != nil {
				return err
			}
			return writeFlows(cmd, report)
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", string(audit.Day), "bucket width: minute, hour, day or month")
	cmd.Flags().StringVar(&from, "from", "", "inclusive lower bound, RFC3339")
	cmd.Flags().StringVar(&to, "to", "", "inclusive upper bound, RFC3339")
	return cmd
}

func writeFlows(cmd *cobra.Command, report *audit.FlowReport) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tINFLOW\tOUTFLOW")
	for _, b := range report.Buckets {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Date.UTC().Format(time.RFC3339), b.Inflow.StringFixed(2), b.Outflow.StringFixed(2))
	}
	fmt.Fprintf(w, "TOTAL\t%s\t%s\n", report.TotalInflow.StringFixed(2), report.TotalOutflow.StringFixed(2))
	return w.Flush()
}

func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
