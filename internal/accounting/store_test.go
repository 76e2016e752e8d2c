package accounting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
)

var errInjected = errors.New("injected failure")

// fakeTx stands in for an open transaction; the in-memory store never calls it.
type fakeTx struct{ pgx.Tx }

// memStore keeps wallets and journal rows in memory. atomically snapshots state and
// restores it when the unit fails, mirroring a rollback.
type memStore struct {
	mu            sync.Mutex
	wallets       map[uuid.UUID]*wallet.Wallet
	ledgers       map[uuid.UUID]*ledger.Ledger
	entries       []*ledger.Entry
	locks         []string
	failEntryCall int
	entryCalls    int
}

type memSnapshot struct {
	wallets map[uuid.UUID]*wallet.Wallet
	ledgers map[uuid.UUID]*ledger.Ledger
	entries []*ledger.Entry
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[uuid.UUID]*wallet.Wallet),
		ledgers: make(map[uuid.UUID]*ledger.Ledger),
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func copyWallet(w *wallet.Wallet) *wallet.Wallet {
	c := *w
	return &c
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		wallets: make(map[uuid.UUID]*wallet.Wallet, len(s.wallets)),
		ledgers: make(map[uuid.UUID]*ledger.Ledger, len(s.ledgers)),
		entries: append([]*ledger.Entry(nil), s.entries...),
	}
	for id, w := range s.wallets {
		snap.wallets[id] = copyWallet(w)
	}
	for id, l := range s.ledgers {
		snap.ledgers[id] = l
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = snap.wallets
	s.ledgers = snap.ledgers
	s.entries = snap.entries
}

func (s *memStore) atomically(fn func(tx pgx.Tx) error) error {
	snap := s.snapshot()
	s.mu.Lock()
	s.entryCalls = 0
	s.locks = nil
	s.mu.Unlock()

	if err := fn(fakeTx{}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) addUser(balance string) uuid.UUID {
	userID := uuid.New()
	w := wallet.NewUserWallet(userID)
	w.Balance = decimal.RequireFromString(balance)
	s.wallets[w.ID] = w
	return userID
}

func (s *memStore) balanceOf(name string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.Name == name {
			return w.Balance
		}
	}
	return decimal.Zero
}

func (s *memStore) userBalance(userID uuid.UUID) decimal.Decimal {
	return s.balanceOf(wallet.UserWalletName(userID))
}

func (s *memStore) balances() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(s.wallets))
	for _, w := range s.wallets {
		out[w.Name] = w.Balance
	}
	return out
}

func (s *memStore) sumUserBalances() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, w := range s.wallets {
		if !w.IsPlatform() {
			total = total.Add(w.Balance)
		}
	}
	return total
}

// entryNet returns the signed sum of every entry posted against walletID.
func (s *memStore) entryNet(walletID uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, e := range s.entries {
		if e.WalletID == walletID {
			total = total.Add(e.Signed())
		}
	}
	return total
}

type memWallets struct{ s *memStore }

func (r memWallets) WithTx(pgx.Tx) wallet.Repository { return r }

func (r memWallets) Create(_ context.Context, w *wallet.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.wallets[w.ID] = copyWallet(w)
	return nil
}

func (r memWallets) GetByID(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, wallet.ErrWalletNotFound{WalletID: id}
	}
	return copyWallet(w), nil
}

func (r memWallets) GetByUserID(_ context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.wallets {
		if w.UserID != nil && *w.UserID == userID {
			return copyWallet(w), nil
		}
	}
	return nil, wallet.ErrWalletNotFound{UserID: userID}
}

func (r memWallets) GetByName(_ context.Context, name string) (*wallet.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.wallets {
		if w.Name == name {
			return copyWallet(w), nil
		}
	}
	return nil, wallet.ErrWalletNotFound{Name: name}
}

func (r memWallets) LockByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	w, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	r.s.locks = append(r.s.locks, "user")
	r.s.mu.Unlock()
	return w, nil
}

func (r memWallets) LockByName(ctx context.Context, name string) (*wallet.Wallet, error) {
	w, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	r.s.locks = append(r.s.locks, name)
	r.s.mu.Unlock()
	return w, nil
}

func (r memWallets) Credit(_ context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return decimal.Zero, wallet.ErrWalletNotFound{WalletID: id}
	}
	w.Balance = w.Balance.Add(amount)
	return w.Balance, nil
}

func (r memWallets) Debit(_ context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return decimal.Zero, wallet.ErrWalletNotFound{WalletID: id}
	}
	if !w.CanDebit(amount) {
		return decimal.Zero, wallet.ErrInsufficientFunds{WalletID: id, Balance: w.Balance, Required: amount}
	}
	w.Balance = w.Balance.Sub(amount)
	return w.Balance, nil
}

func (r memWallets) UpsertPlatform(_ context.Context, w *wallet.Wallet) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.ID]; ok {
		return false, nil
	}
	r.s.wallets[w.ID] = copyWallet(w)
	return true, nil
}

func (r memWallets) CountPlatform(context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, w := range r.s.wallets {
		if w.IsPlatform() {
			count++
		}
	}
	return count, nil
}

func (r memWallets) SumUserBalances(context.Context) (decimal.Decimal, error) {
	return r.s.sumUserBalances(), nil
}

type memLedgers struct{ s *memStore }

func (r memLedgers) WithTx(pgx.Tx) ledger.Repository { return r }

func (r memLedgers) OpenLedger(_ context.Context, l *ledger.Ledger) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ledgers[l.ID] = l
	return nil
}

func (r memLedgers) RecordEntry(_ context.Context, e *ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entryCalls++
	if r.s.failEntryCall > 0 && r.s.entryCalls == r.s.failEntryCall {
		return errInjected
	}
	r.s.entries = append(r.s.entries, e)
	return nil
}

func (r memLedgers) GetLedger(_ context.Context, id uuid.UUID) (*ledger.Ledger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.ledgers[id]
	if !ok {
		return nil, ledger.ErrLedgerNotFound{LedgerID: id}
	}
	return l, nil
}

func (r memLedgers) ListEntriesByLedger(_ context.Context, ledgerID uuid.UUID) ([]*ledger.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.s.entries {
		if e.LedgerID == ledgerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memLedgers) FlowTotals(context.Context, []uuid.UUID, string, *time.Time, *time.Time) ([]ledger.FlowTotal, error) {
	return nil, nil
}
