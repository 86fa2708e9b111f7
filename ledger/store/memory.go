// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.Store and ledger.CategoryAccessCheck in memory.
// AdjustBalance is applied under the store mutex, which satisfies the
// atomicity precondition of the Store contract.
//
// The Fail* hooks inject failures for compensation tests. When a hook
// returns a non-nil error the corresponding write is rejected without
// applying.
type Memory struct {
	mu           sync.RWMutex
	wallets      map[ledger.WalletID]ledger.Wallet
	transactions map[ledger.TransactionID]ledger.Transaction
	recurrences  map[ledger.RecurrenceID]ledger.Recurrence
	goals        map[ledger.GoalID]ledger.Goal
	categories   map[ledger.CategoryID]ledger.Category

	// Test hooks. Nil means never fail.
	FailAdjustBalance     func(id ledger.WalletID, delta decimal.Decimal) error
	FailDeleteTransaction func(id ledger.TransactionID) error
	FailSetGoalSaved      func(id ledger.GoalID) error
}

func NewMemory() *Memory {
	return &Memory{
		wallets:      make(map[ledger.WalletID]ledger.Wallet),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		recurrences:  make(map[ledger.RecurrenceID]ledger.Recurrence),
		goals:        make(map[ledger.GoalID]ledger.Goal),
		categories:   make(map[ledger.CategoryID]ledger.Category),
	}
}

// =============================================================================
// WALLETS
// =============================================================================

func (m *Memory) GetWallet(_ context.Context, id ledger.WalletID) (*ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[id]
	if !ok {
		return nil, ledger.ErrWalletNotFound
	}
	out := w
	return &out, nil
}

func (m *Memory) InsertWallet(_ context.Context, w ledger.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[w.ID] = w
	return nil
}

func (m *Memory) UpdateWallet(_ context.Context, w ledger.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[w.ID]; !ok {
		return ledger.ErrWalletNotFound
	}
	m.wallets[w.ID] = w
	return nil
}

func (m *Memory) ListWallets(_ context.Context, owner ledger.OwnerID) ([]ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Wallet
	for _, w := range m.wallets {
		if owner == "" || w.OwnerID == owner {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// AdjustBalance increments the wallet balance by delta under the store
// mutex. It either applies fully or not at all.
func (m *Memory) AdjustBalance(_ context.Context, id ledger.WalletID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAdjustBalance != nil {
		if err := m.FailAdjustBalance(id, delta); err != nil {
			return err
		}
	}

	w, ok := m.wallets[id]
	if !ok {
		return ledger.ErrWalletNotFound
	}
	next := w.CurrentBalance().Add(delta)
	w.Balance = &next
	m.wallets[id] = w
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) InsertTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	out := tx
	return &out, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[tx.ID]; !ok {
		return ledger.ErrTransactionNotFound
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDeleteTransaction != nil {
		if err := m.FailDeleteTransaction(id); err != nil {
			return err
		}
	}
	if _, ok := m.transactions[id]; !ok {
		return ledger.ErrTransactionNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range m.transactions {
		if f.Matches(tx) {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// RECURRENCES
// =============================================================================

func (m *Memory) GetRecurrence(_ context.Context, id ledger.RecurrenceID) (*ledger.Recurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recurrences[id]
	if !ok {
		return nil, ledger.ErrRecurrenceNotFound
	}
	out := rec
	return &out, nil
}

func (m *Memory) InsertRecurrence(_ context.Context, rec ledger.Recurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recurrences[rec.ID] = rec
	return nil
}

func (m *Memory) UpdateRecurrence(_ context.Context, rec ledger.Recurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recurrences[rec.ID]; !ok {
		return ledger.ErrRecurrenceNotFound
	}
	m.recurrences[rec.ID] = rec
	return nil
}

func (m *Memory) ListActiveRecurrences(_ context.Context, owner ledger.OwnerID) ([]ledger.Recurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Recurrence
	for _, rec := range m.recurrences {
		if !rec.IsActive {
			continue
		}
		if owner != "" && rec.OwnerID != owner {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// GOALS
// =============================================================================

func (m *Memory) GetGoal(_ context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.goals[id]
	if !ok {
		return nil, ledger.ErrGoalNotFound
	}
	out := g
	return &out, nil
}

func (m *Memory) InsertGoal(_ context.Context, g ledger.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.ID] = g
	return nil
}

func (m *Memory) SetGoalSaved(_ context.Context, id ledger.GoalID, saved decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSetGoalSaved != nil {
		if err := m.FailSetGoalSaved(id); err != nil {
			return err
		}
	}
	g, ok := m.goals[id]
	if !ok {
		return ledger.ErrGoalNotFound
	}
	g.AmountSaved = saved
	m.goals[id] = g
	return nil
}

func (m *Memory) ListGoals(_ context.Context, owner ledger.OwnerID) ([]ledger.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Goal
	for _, g := range m.goals {
		if owner == "" || g.OwnerID == owner {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// CATEGORIES (ledger.CategoryAccessCheck)
// =============================================================================

func (m *Memory) InsertCategory(_ context.Context, c ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

// IsAccessible reports whether the category is global or owned by owner.
func (m *Memory) IsAccessible(_ context.Context, id ledger.CategoryID, owner ledger.OwnerID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.categories[id]
	if !ok {
		return false, nil
	}
	return c.OwnerID == "" || c.OwnerID == owner, nil
}
