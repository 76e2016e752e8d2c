// Package audit reconciles user balances against the platform liability and reports
// money flowing through the platform's revenue and profit wallets.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
)

var (
	// ErrInconsistent is reported by a Report whose totals disagree. It is never returned
	// from a request path.
	ErrInconsistent     = errors.New("user balances do not match platform liability")
	ErrInvalidTimeframe = errors.New("timeframe must be one of minute, hour, day, month")
	ErrInvalidRange     = errors.New("from must not be after to")
)

// Timeframe is the bucket width of a flow report. Values double as date_trunc units.
type Timeframe string

const (
	Minute Timeframe = "minute"
	Hour   Timeframe = "hour"
	Day    Timeframe = "day"
	Month  Timeframe = "month"
)

func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case Minute, Hour, Day, Month:
		return tf, nil
	default:
		return "", ErrInvalidTimeframe
	}
}

type WalletReader interface {
	GetByName(ctx context.Context, name string) (*wallet.Wallet, error)
	SumUserBalances(ctx context.Context) (decimal.Decimal, error)
}

type FlowSource interface {
	FlowTotals(ctx context.Context, walletIDs []uuid.UUID, unit string, from, to *time.Time) ([]ledger.FlowTotal, error)
}

// Report is a point-in-time reconciliation. Postings in flight while it is taken can make
// a single report disagree; a persistent mismatch cannot come from them.
type Report struct {
	Matches        bool            `json:"matches"`
	UserTotal      decimal.Decimal `json:"user_total"`
	LiabilityTotal decimal.Decimal `json:"liability_total"`
	Difference     decimal.Decimal `json:"difference"`
	CheckedAt      time.Time       `json:"checked_at"`
}

// Err returns ErrInconsistent with both totals when the report does not match.
func (r *Report) Err() error {
	if r.Matches {
		return nil
	}
	return fmt.Errorf("%w: users %s, liability %s", ErrInconsistent, r.UserTotal.String(), r.LiabilityTotal.String())
}

// FlowBucket is the CREDIT (inflow) and DEBIT (outflow) total of one time bucket.
type FlowBucket struct {
	Date    time.Time       `json:"date"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
}

type FlowReport struct {
	Timeframe    Timeframe       `json:"timeframe"`
	Buckets      []FlowBucket    `json:"buckets"`
	TotalInflow  decimal.Decimal `json:"total_inflow"`
	TotalOutflow decimal.Decimal `json:"total_outflow"`
}

type Service struct {
	wallets WalletReader
	flows   FlowSource
	logger  *slog.Logger
}

func NewService(logger *slog.Logger, wallets WalletReader, flows FlowSource) *Service {
	return &Service{
		wallets: wallets,
		flows:   flows,
		logger:  logger,
	}
}

// AuditBalances compares the sum of user balances with the liability wallet. It reads
// only and may be called at any time.
func (s *Service) AuditBalances(ctx context.Context) (*Report, error) {
	userTotal, err := s.wallets.SumUserBalances(ctx)
	if err != nil {
		return nil, err
	}
	liability, err := s.wallets.GetByName(ctx, wallet.LiabilityWallet)
	if err != nil {
		return nil, err
	}

	diff := userTotal.Sub(liability.Balance)
	return &Report{
		Matches:        diff.IsZero(),
		UserTotal:      userTotal,
		LiabilityTotal: liability.Balance,
		Difference:     diff,
		CheckedAt:      time.Now().UTC(),
	}, nil
}

// InflowOutflow buckets the entries posted against the revenue and profit wallets.
// Buckets without entries of one direction report zero for it.
func (s *Service) InflowOutflow(ctx context.Context, timeframe string, from, to *time.Time) (*FlowReport, error) {
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, ErrInvalidRange
	}

	walletIDs := []uuid.UUID{
		wallet.PlatformID(wallet.RevenueWallet),
		wallet.PlatformID(wallet.ProfitWallet),
	}
	totals, err := s.flows.FlowTotals(ctx, walletIDs, string(tf), from, to)
	if err != nil {
		return nil, err
	}

	report := &FlowReport{
		Timeframe:    tf,
		Buckets:      []FlowBucket{},
		TotalInflow:  decimal.Zero,
		TotalOutflow: decimal.Zero,
	}
	index := make(map[time.Time]int)
	for _, total := range totals {
		key := total.Bucket.UTC()
		i, ok := index[key]
		if !ok {
			i = len(report.Buckets)
			index[key] = i
			report.Buckets = append(report.Buckets, FlowBucket{Date: key, Inflow: decimal.Zero, Outflow: decimal.Zero})
		}
		if total.Type == ledger.Credit {
			report.Buckets[i].Inflow = report.Buckets[i].Inflow.Add(total.Total)
			report.TotalInflow = report.TotalInflow.Add(total.Total)
		} else {
			report.Buckets[i].Outflow = report.Buckets[i].Outflow.Add(total.Total)
			report.TotalOutflow = report.TotalOutflow.Add(total.Total)
		}
	}
	sort.Slice(report.Buckets, func(a, b int) bool {
		return report.Buckets[a].Date.Before(report.Buckets[b].Date)
	})

	s.logger.Debug("Computed platform flows", "timeframe", string(tf), "buckets", len(report.Buckets))
	return report, nil
}
