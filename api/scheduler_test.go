package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/api"
	"github.com/warp/finance-ledger/currency"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/ledger/store"
	"github.com/warp/finance-ledger/recurrence"
)

func newTestScheduler(t *testing.T) (*api.RecurrenceScheduler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mutator := ledger.NewMutator(mem, currency.NewStatic(), mem, zerolog.Nop())
	materializer := recurrence.NewMaterializer(mem, mutator, zerolog.Nop())
	return api.NewRecurrenceScheduler(mem, materializer, zerolog.Nop()), mem
}

func TestScheduler_RunNowMaterializesEveryActiveRecurrence(t *testing.T) {
	// GIVEN: Two owners with active past-dated recurrences
	// WHEN: Triggering a run directly
	// THEN: Both recurrences get their due transactions

	sched, mem := newTestScheduler(t)
	ctx := context.Background()

	for _, w := range []struct{ id, owner string }{{"w1", "u1"}, {"w2", "u2"}} {
		require.NoError(t, mem.InsertWallet(ctx, ledger.Wallet{
			ID:             ledger.WalletID(w.id),
			OwnerID:        ledger.OwnerID(w.owner),
			Name:           w.id,
			Currency:       "EUR",
			InitialBalance: decimal.NewFromInt(100),
			IsActive:       true,
		}))
	}

	start := ledger.Today().AddDays(-3)
	for i, rec := range []ledger.Recurrence{
		{ID: "rec-1", OwnerID: "u1", WalletID: "w1", Type: ledger.TxIncome,
			Amount: decimal.NewFromInt(10), Frequency: ledger.FreqDaily, StartDate: start, IsActive: true},
		{ID: "rec-2", OwnerID: "u2", WalletID: "w2", Type: ledger.TxExpense,
			Amount: decimal.NewFromInt(5), Frequency: ledger.FreqDaily, StartDate: start, IsActive: true},
	} {
		require.NoError(t, mem.InsertRecurrence(ctx, rec), "recurrence %d", i)
	}

	sched.RunNow()

	for _, id := range []ledger.RecurrenceID{"rec-1", "rec-2"} {
		txs, err := mem.ListTransactions(ctx, ledger.TransactionFilter{RecurrenceID: id})
		require.NoError(t, err)
		assert.Len(t, txs, 4)
	}

	// A second run finds everything materialized already.
	sched.RunNow()
	txs, err := mem.ListTransactions(ctx, ledger.TransactionFilter{RecurrenceID: "rec-1"})
	require.NoError(t, err)
	assert.Len(t, txs, 4)
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	sched, mem := newTestScheduler(t)
	sched.Enabled = false
	sched.CheckInterval = time.Millisecond

	sched.Start()
	defer sched.Stop()
	time.Sleep(20 * time.Millisecond)

	txs, err := mem.ListTransactions(context.Background(), ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestScheduler_StartStopIsClean(t *testing.T) {
	sched, _ := newTestScheduler(t)
	sched.CheckInterval = 10 * time.Millisecond

	sched.Start()
	time.Sleep(25 * time.Millisecond)
	sched.Stop()
}
