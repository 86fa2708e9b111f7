package recurrence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/currency"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/ledger/store"
	"github.com/warp/finance-ledger/recurrence"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestMaterializer(t *testing.T) (*recurrence.Materializer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mutator := ledger.NewMutator(mem, currency.NewStatic(), mem, zerolog.Nop())
	mat := recurrence.NewMaterializer(mem, mutator, zerolog.Nop())
	return mat, mem
}

func seedWallet(t *testing.T, mem *store.Memory, id, owner string, balance float64) {
	t.Helper()
	require.NoError(t, mem.InsertWallet(context.Background(), ledger.Wallet{
		ID:             ledger.WalletID(id),
		OwnerID:        ledger.OwnerID(owner),
		Name:           id,
		Currency:       "EUR",
		InitialBalance: decimal.NewFromFloat(balance),
		IsActive:       true,
	}))
}

func seedRecurrence(t *testing.T, mem *store.Memory, rec ledger.Recurrence) ledger.Recurrence {
	t.Helper()
	if rec.ID == "" {
		rec.ID = "rec-1"
	}
	rec.IsActive = true
	require.NoError(t, mem.InsertRecurrence(context.Background(), rec))
	return rec
}

func generated(t *testing.T, mem *store.Memory, id ledger.RecurrenceID) []ledger.Transaction {
	t.Helper()
	txs, err := mem.ListTransactions(context.Background(), ledger.TransactionFilter{RecurrenceID: id})
	require.NoError(t, err)
	return txs
}

func balance(t *testing.T, mem *store.Memory, id string) decimal.Decimal {
	t.Helper()
	w, err := mem.GetWallet(context.Background(), ledger.WalletID(id))
	require.NoError(t, err)
	return w.CurrentBalance()
}

// =============================================================================
// PROCESS DUE
// =============================================================================

func TestProcessDue_CreatesOneTransactionPerDueDate(t *testing.T) {
	// GIVEN: A monthly 50 EUR expense recurrence started three months ago
	// WHEN: Processing due occurrences
	// THEN: Three transactions exist, each tagged with the recurrence,
	//       and the wallet lost 150

	mat, mem := newTestMaterializer(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 1000)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxExpense,
		Amount:    decimal.NewFromInt(50),
		Frequency: ledger.FreqMonthly,
		StartDate: ledger.NewDate(2025, 1, 15),
	})

	report, err := mat.ProcessDue(ctx, rec, ledger.NewDate(2025, 3, 20))
	require.NoError(t, err)

	assert.Len(t, report.Created, 3)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Errors)

	txs := generated(t, mem, rec.ID)
	require.Len(t, txs, 3)
	for _, tx := range txs {
		assert.Equal(t, rec.ID, tx.RecurrenceID)
		assert.Equal(t, ledger.TxExpense, tx.Type)
	}
	assert.True(t, balance(t, mem, "w1").Equal(decimal.NewFromInt(850)))
}

func TestProcessDue_SecondRunSkipsEverything(t *testing.T) {
	// GIVEN: A recurrence whose due occurrences were already materialized
	// WHEN: Processing again on the same day
	// THEN: Every date is reported as skipped and nothing new is created

	mat, mem := newTestMaterializer(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 1000)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxIncome,
		Amount:    decimal.NewFromInt(100),
		Frequency: ledger.FreqWeekly,
		StartDate: ledger.NewDate(2025, 3, 3),
	})
	today := ledger.NewDate(2025, 3, 17)

	first, err := mat.ProcessDue(ctx, rec, today)
	require.NoError(t, err)
	require.Len(t, first.Created, 3)

	second, err := mat.ProcessDue(ctx, rec, today)
	require.NoError(t, err)

	assert.Empty(t, second.Created)
	assert.Len(t, second.Skipped, 3)
	assert.Len(t, generated(t, mem, rec.ID), 3)
	assert.True(t, balance(t, mem, "w1").Equal(decimal.NewFromInt(1300)))
}

func TestProcessDue_InactiveRecurrenceRejected(t *testing.T) {
	mat, mem := newTestMaterializer(t)
	seedWallet(t, mem, "w1", "u1", 100)
	rec := ledger.Recurrence{
		ID:        "rec-paused",
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxExpense,
		Amount:    decimal.NewFromInt(10),
		Frequency: ledger.FreqDaily,
		StartDate: ledger.NewDate(2025, 1, 1),
		IsActive:  false,
	}
	require.NoError(t, mem.InsertRecurrence(context.Background(), rec))

	_, err := mat.ProcessDue(context.Background(), rec, ledger.NewDate(2025, 1, 5))
	assert.ErrorIs(t, err, ledger.ErrRecurrenceInactive)
}

func TestProcessDue_FailedOccurrenceDoesNotAbortBatch(t *testing.T) {
	// GIVEN: Balance adjustment fails exactly once mid-batch
	// WHEN: Processing three due occurrences
	// THEN: Two are created, one is reported as an error, and a later run
	//       picks up the failed date

	mat, mem := newTestMaterializer(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 1000)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxExpense,
		Amount:    decimal.NewFromInt(25),
		Frequency: ledger.FreqMonthly,
		StartDate: ledger.NewDate(2025, 1, 10),
	})

	boom := errors.New("ledger offline")
	calls := 0
	mem.FailAdjustBalance = func(ledger.WalletID, decimal.Decimal) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}

	report, err := mat.ProcessDue(ctx, rec, ledger.NewDate(2025, 3, 15))
	require.NoError(t, err)

	assert.Len(t, report.Created, 2)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "2025-02-10", report.Errors[0].Date.String())
	assert.ErrorIs(t, report.Errors[0].Err, boom)
	assert.Len(t, generated(t, mem, rec.ID), 2)

	// The failed date is still due next time around.
	mem.FailAdjustBalance = nil
	retry, err := mat.ProcessDue(ctx, rec, ledger.NewDate(2025, 3, 15))
	require.NoError(t, err)
	require.Len(t, retry.Created, 1)
	assert.Equal(t, "2025-02-10", retry.Created[0].Date.String())
}

func TestProcessDue_TransferRecurrenceCreatesBothLegs(t *testing.T) {
	// GIVEN: A monthly transfer recurrence between two same-currency wallets
	// WHEN: Processing one due occurrence
	// THEN: An out leg and an in leg exist, both tagged with the recurrence

	mat, mem := newTestMaterializer(t)
	ctx := context.Background()
	seedWallet(t, mem, "checking", "u1", 500)
	seedWallet(t, mem, "savings", "u1", 100)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:             "u1",
		WalletID:            "checking",
		DestinationWalletID: "savings",
		Type:                ledger.TxTransfer,
		Amount:              decimal.NewFromInt(60),
		Frequency:           ledger.FreqMonthly,
		StartDate:           ledger.NewDate(2025, 4, 1),
	})

	report, err := mat.ProcessDue(ctx, rec, ledger.NewDate(2025, 4, 1))
	require.NoError(t, err)
	require.Len(t, report.Created, 2)

	txs := generated(t, mem, rec.ID)
	require.Len(t, txs, 2)
	types := map[ledger.TransactionType]bool{}
	for _, tx := range txs {
		types[tx.Type] = true
		assert.Equal(t, rec.ID, tx.RecurrenceID)
	}
	assert.True(t, types[ledger.TxTransferOut])
	assert.True(t, types[ledger.TxTransferIn])
	assert.True(t, balance(t, mem, "checking").Equal(decimal.NewFromInt(440)))
	assert.True(t, balance(t, mem, "savings").Equal(decimal.NewFromInt(160)))
}

func TestProcessDue_RespectsPerRunCap(t *testing.T) {
	// GIVEN: A daily recurrence with a ten-day backlog and a cap of 4
	// WHEN: Processing due occurrences
	// THEN: Only the four oldest dates are materialized

	mat, mem := newTestMaterializer(t)
	mat.MaxPerRun = 4
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 1000)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxExpense,
		Amount:    decimal.NewFromInt(5),
		Frequency: ledger.FreqDaily,
		StartDate: ledger.NewDate(2025, 6, 1),
	})

	report, err := mat.ProcessDue(ctx, rec, ledger.NewDate(2025, 6, 10))
	require.NoError(t, err)

	require.Len(t, report.Created, 4)
	assert.Equal(t, "2025-06-01", report.Created[0].Date.String())
	assert.Equal(t, "2025-06-04", report.Created[3].Date.String())
}

// =============================================================================
// GAP DETECTION / BACKFILL
// =============================================================================

func TestCheckMissing_ReportsGaps(t *testing.T) {
	// GIVEN: A materialized recurrence with one generated transaction removed
	// WHEN: Checking for missing occurrences
	// THEN: Exactly the removed date is reported

	mat, mem := newTestMaterializer(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 1000)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxIncome,
		Amount:    decimal.NewFromInt(20),
		Frequency: ledger.FreqWeekly,
		StartDate: ledger.NewDate(2025, 5, 5),
	})
	today := ledger.NewDate(2025, 5, 19)

	_, err := mat.ProcessDue(ctx, rec, today)
	require.NoError(t, err)

	txs := generated(t, mem, rec.ID)
	require.Len(t, txs, 3)
	var removed ledger.Transaction
	for _, tx := range txs {
		if tx.Date.String() == "2025-05-12" {
			removed = tx
		}
	}
	require.NotEmpty(t, removed.ID)
	require.NoError(t, mem.DeleteTransaction(ctx, removed.ID))

	missing, err := mat.CheckMissing(ctx, "u1", today)
	require.NoError(t, err)

	require.Len(t, missing, 1)
	assert.Equal(t, rec.ID, missing[0].Recurrence.ID)
	require.Len(t, missing[0].MissingDates, 1)
	assert.Equal(t, "2025-05-12", missing[0].MissingDates[0].String())
}

func TestCheckMissing_FullyMaterializedIsSilent(t *testing.T) {
	mat, mem := newTestMaterializer(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 1000)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxIncome,
		Amount:    decimal.NewFromInt(20),
		Frequency: ledger.FreqMonthly,
		StartDate: ledger.NewDate(2025, 2, 1),
	})
	today := ledger.NewDate(2025, 4, 1)

	_, err := mat.ProcessDue(ctx, rec, today)
	require.NoError(t, err)

	missing, err := mat.CheckMissing(ctx, "u1", today)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestGenerateMissing_BackfillsRequestedDates(t *testing.T) {
	// GIVEN: Two never-materialized past dates and one already generated
	// WHEN: Generating exactly those three dates
	// THEN: The two gaps are created and the existing date is skipped

	mat, mem := newTestMaterializer(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 1000)
	rec := seedRecurrence(t, mem, ledger.Recurrence{
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxExpense,
		Amount:    decimal.NewFromInt(30),
		Frequency: ledger.FreqMonthly,
		StartDate: ledger.NewDate(2025, 1, 20),
	})

	first, err := mat.GenerateMissing(ctx, rec, []ledger.Date{ledger.NewDate(2025, 2, 20)})
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	report, err := mat.GenerateMissing(ctx, rec, []ledger.Date{
		ledger.NewDate(2025, 1, 20),
		ledger.NewDate(2025, 2, 20),
		ledger.NewDate(2025, 3, 20),
	})
	require.NoError(t, err)

	assert.Len(t, report.Created, 2)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "2025-02-20", report.Skipped[0].String())
	assert.Len(t, generated(t, mem, rec.ID), 3)
	assert.True(t, balance(t, mem, "w1").Equal(decimal.NewFromInt(910)))
}

func TestGenerateMissing_InactiveRecurrenceRejected(t *testing.T) {
	mat, mem := newTestMaterializer(t)
	seedWallet(t, mem, "w1", "u1", 100)
	rec := ledger.Recurrence{
		ID:        "rec-off",
		OwnerID:   "u1",
		WalletID:  "w1",
		Type:      ledger.TxExpense,
		Amount:    decimal.NewFromInt(10),
		Frequency: ledger.FreqMonthly,
		StartDate: ledger.NewDate(2025, 1, 1),
	}
	require.NoError(t, mem.InsertRecurrence(context.Background(), rec))

	_, err := mat.GenerateMissing(context.Background(), rec, []ledger.Date{ledger.NewDate(2025, 1, 1)})
	assert.ErrorIs(t, err, ledger.ErrRecurrenceInactive)
}
