package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/vtu-wallet-ledger/internal/platform/metrics"
)

type Auditor interface {
	AuditBalances(ctx context.Context) (*Report, error)
}

// Monitor runs the balance audit on an interval and exports the result. A mismatch is
// logged at error level; it never stops the monitor.
type Monitor struct {
	auditor  Auditor
	interval time.Duration
	logger   *slog.Logger
}

func NewMonitor(logger *slog.Logger, auditor Auditor, interval time.Duration) *Monitor {
	return &Monitor{
		auditor:  auditor,
		interval: interval,
		logger:   logger,
	}
}

// Run audits once immediately and then on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Starting balance audit monitor", "interval", m.interval.String())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Balance audit monitor stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	report, err := m.auditor.AuditBalances(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("Balance audit failed", "error", err)
		}
		return
	}

	metrics.RecordAudit(report.Matches, report.Difference.InexactFloat64())
	if err := report.Err(); err != nil {
		m.logger.Error("Ledger inconsistency detected",
			"user_total", report.UserTotal.String(),
			"liability_total", report.LiabilityTotal.String(),
			"difference", report.Difference.String(),
			"error", err,
		)
		return
	}
	m.logger.Debug("Balance audit passed", "total", report.UserTotal.String())
}
