package receipt_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/currency"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/ledger/store"
	"github.com/warp/finance-ledger/receipt"
)

func newTestImporter(t *testing.T) (*receipt.Importer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mutator := ledger.NewMutator(mem, currency.NewStatic(), mem, zerolog.Nop())
	return receipt.NewImporter(mutator, zerolog.Nop()), mem
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

func TestImportBatch_CommitsEveryEntryAsExpense(t *testing.T) {
	// GIVEN: Two parsed receipt lines for one wallet
	// WHEN: Importing the batch
	// THEN: Two expense transactions exist and the balance dropped by the sum

	importer, mem := newTestImporter(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 200)

	result := importer.ImportBatch(ctx, "u1", []receipt.Entry{
		{WalletID: "w1", Date: ledger.NewDate(2025, 7, 2), Amount: decimal.NewFromFloat(12.40), Merchant: "Bakery"},
		{WalletID: "w1", Date: ledger.NewDate(2025, 7, 2), Amount: decimal.NewFromFloat(31.10), Merchant: "Grocery"},
	})

	require.Len(t, result.Imported, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, "Bakery", result.Imported[0].Description)
	assert.Equal(t, ledger.TxExpense, result.Imported[0].Type)

	w, err := mem.GetWallet(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, w.CurrentBalance().Equal(decimal.NewFromFloat(156.50)))
}

func TestImportBatch_BadEntryDoesNotBlockTheRest(t *testing.T) {
	// GIVEN: A batch with a zero-amount line between two valid lines
	// WHEN: Importing
	// THEN: The valid lines commit, the bad line is reported with its index

	importer, mem := newTestImporter(t)
	ctx := context.Background()
	seedWallet(t, mem, "w1", "u1", 100)

	result := importer.ImportBatch(ctx, "u1", []receipt.Entry{
		{WalletID: "w1", Date: ledger.NewDate(2025, 7, 2), Amount: decimal.NewFromInt(10), Merchant: "Cafe"},
		{WalletID: "w1", Date: ledger.NewDate(2025, 7, 2), Amount: decimal.Zero, Merchant: "Glitch"},
		{WalletID: "w1", Date: ledger.NewDate(2025, 7, 2), Amount: decimal.NewFromInt(5), Merchant: "Kiosk"},
	})

	assert.Len(t, result.Imported, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Equal(t, "Glitch", result.Failed[0].Entry.Merchant)
	assert.ErrorIs(t, result.Failed[0].Err, ledger.ErrInvalidAmount)

	w, err := mem.GetWallet(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, w.CurrentBalance().Equal(decimal.NewFromInt(85)))
}

func TestImportBatch_ForeignWalletEntryFails(t *testing.T) {
	// GIVEN: An entry pointing at another owner's wallet
	// WHEN: Importing
	// THEN: The entry fails and the foreign wallet is untouched

	importer, mem := newTestImporter(t)
	ctx := context.Background()
	seedWallet(t, mem, "mine", "u1", 50)
	seedWallet(t, mem, "theirs", "u2", 50)

	result := importer.ImportBatch(ctx, "u1", []receipt.Entry{
		{WalletID: "theirs", Date: ledger.NewDate(2025, 7, 3), Amount: decimal.NewFromInt(20), Merchant: "Shop"},
	})

	assert.Empty(t, result.Imported)
	require.Len(t, result.Failed, 1)
	assert.ErrorIs(t, result.Failed[0].Err, ledger.ErrWalletNotOwned)

	w, err := mem.GetWallet(ctx, "theirs")
	require.NoError(t, err)
	assert.True(t, w.CurrentBalance().Equal(decimal.NewFromInt(50)))
}

func TestImportBatch_EmptyBatchIsNoop(t *testing.T) {
	importer, _ := newTestImporter(t)

	result := importer.ImportBatch(context.Background(), "u1", nil)

	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Failed)
}
