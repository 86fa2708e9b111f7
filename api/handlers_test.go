package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/api"
	"github.com/warp/finance-ledger/currency"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/ledger/store"
	"github.com/warp/finance-ledger/receipt"
	"github.com/warp/finance-ledger/recurrence"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	gateway := currency.NewStatic()
	mutator := ledger.NewMutator(mem, gateway, mem, zerolog.Nop())
	materializer := recurrence.NewMaterializer(mem, mutator, zerolog.Nop())
	importer := receipt.NewImporter(mutator, zerolog.Nop())
	h := api.NewHandler(mem, mem, mutator, materializer, importer, zerolog.Nop())

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, mem
}

// do sends a JSON request and decodes the JSON response into out (when
// out is non-nil).
func do(t *testing.T, srv *httptest.Server, method, path string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createWallet(t *testing.T, srv *httptest.Server, owner, name, cur, initial string) api.WalletDTO {
	t.Helper()
	var dto api.WalletDTO
	resp := do(t, srv, http.MethodPost, "/api/wallets", api.CreateWalletRequest{
		OwnerID:        owner,
		Name:           name,
		Currency:       cur,
		InitialBalance: initial,
	}, &dto)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return dto
}

// =============================================================================
// WALLETS
// =============================================================================

func TestWalletLifecycle(t *testing.T) {
	// GIVEN: A freshly created wallet
	// WHEN: Renaming, deactivating and restoring it over the API
	// THEN: Each step is visible on the next read

	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "250")
	assert.Equal(t, "250", w.Balance)
	assert.True(t, w.IsActive)

	var renamed api.WalletDTO
	resp := do(t, srv, http.MethodPut, "/api/wallets/"+w.ID+"?owner_id=u1",
		api.UpdateWalletRequest{Name: "Main"}, &renamed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Main", renamed.Name)

	var deactivated api.WalletDTO
	resp = do(t, srv, http.MethodDelete, "/api/wallets/"+w.ID+"?owner_id=u1", nil, &deactivated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, deactivated.IsActive)

	var restored api.WalletDTO
	resp = do(t, srv, http.MethodPost, "/api/wallets/"+w.ID+"/restore?owner_id=u1", nil, &restored)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, restored.IsActive)
}

func TestGetWallet_ForeignOwnerGets404(t *testing.T) {
	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "100")

	resp := do(t, srv, http.MethodGet, "/api/wallets/"+w.ID+"?owner_id=intruder", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestCreateEntry_AdjustsBalance(t *testing.T) {
	// GIVEN: A wallet with 100 EUR
	// WHEN: Posting a 30 EUR expense
	// THEN: The entry comes back with 201 and the wallet shows 70

	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "100")

	var tx api.TransactionDTO
	resp := do(t, srv, http.MethodPost, "/api/transactions", api.CreateEntryRequest{
		OwnerID:     "u1",
		WalletID:    w.ID,
		Type:        "expense",
		Amount:      "30",
		Date:        "2025-08-01",
		Description: "Groceries",
	}, &tx)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "expense", tx.Type)
	assert.Equal(t, "2025-08-01", tx.Date)

	var after api.WalletDTO
	do(t, srv, http.MethodGet, "/api/wallets/"+w.ID+"?owner_id=u1", nil, &after)
	assert.Equal(t, "70", after.Balance)
}

func TestCreateEntry_InvalidAmountIs400(t *testing.T) {
	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "100")

	var errResp api.ErrorResponse
	resp := do(t, srv, http.MethodPost, "/api/transactions", api.CreateEntryRequest{
		OwnerID:  "u1",
		WalletID: w.ID,
		Type:     "income",
		Amount:   "0",
	}, &errResp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, errResp.Error)
}

func TestCreateTransfer_ReturnsBothLegs(t *testing.T) {
	// GIVEN: Two wallets of the same owner and currency
	// WHEN: Transferring 40 between them
	// THEN: The response holds the out and in legs sharing a group ID

	srv, _ := newTestServer(t)
	origin := createWallet(t, srv, "u1", "Checking", "EUR", "100")
	dest := createWallet(t, srv, "u1", "Savings", "EUR", "10")

	var legs []api.TransactionDTO
	resp := do(t, srv, http.MethodPost, "/api/transactions/transfer", api.CreateTransferRequest{
		OwnerID:             "u1",
		OriginWalletID:      origin.ID,
		DestinationWalletID: dest.ID,
		Amount:              "40",
		Date:                "2025-08-02",
	}, &legs)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, legs, 2)
	assert.NotEmpty(t, legs[0].TransferGroupID)
	assert.Equal(t, legs[0].TransferGroupID, legs[1].TransferGroupID)

	var originAfter, destAfter api.WalletDTO
	do(t, srv, http.MethodGet, "/api/wallets/"+origin.ID+"?owner_id=u1", nil, &originAfter)
	do(t, srv, http.MethodGet, "/api/wallets/"+dest.ID+"?owner_id=u1", nil, &destAfter)
	assert.Equal(t, "60", originAfter.Balance)
	assert.Equal(t, "50", destAfter.Balance)
}

func TestDeleteTransaction_RestoresBalance(t *testing.T) {
	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "100")

	var tx api.TransactionDTO
	do(t, srv, http.MethodPost, "/api/transactions", api.CreateEntryRequest{
		OwnerID:  "u1",
		WalletID: w.ID,
		Type:     "expense",
		Amount:   "25",
		Date:     "2025-08-03",
	}, &tx)

	resp := do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID+"?owner_id=u1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var after api.WalletDTO
	do(t, srv, http.MethodGet, "/api/wallets/"+w.ID+"?owner_id=u1", nil, &after)
	assert.Equal(t, "100", after.Balance)
}

// =============================================================================
// GOALS
// =============================================================================

func TestGoalTopUp_ClampsAtTarget(t *testing.T) {
	// GIVEN: A 500 EUR goal with 480 already saved
	// WHEN: Topping up 50 from a wallet
	// THEN: Only the remaining 20 is deducted and the goal reads 500

	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "1000")

	var goal api.GoalDTO
	resp := do(t, srv, http.MethodPost, "/api/goals", api.CreateGoalRequest{
		OwnerID:  "u1",
		Name:     "Vacation",
		Amount:   "500",
		Currency: "EUR",
	}, &goal)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	do(t, srv, http.MethodPost, "/api/goals/"+goal.ID+"/topup", api.TopUpRequest{
		OwnerID:  "u1",
		WalletID: w.ID,
		Amount:   "480",
		Date:     "2025-08-04",
	}, nil)

	var result struct {
		Transaction api.TransactionDTO `json:"transaction"`
		Goal        api.GoalDTO        `json:"goal"`
	}
	resp = do(t, srv, http.MethodPost, "/api/goals/"+goal.ID+"/topup", api.TopUpRequest{
		OwnerID:  "u1",
		WalletID: w.ID,
		Amount:   "50",
		Date:     "2025-08-05",
	}, &result)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "20", result.Transaction.Amount)
	assert.Equal(t, "500", result.Goal.AmountSaved)
	assert.Equal(t, "0", result.Goal.Remaining)
}

// =============================================================================
// RECURRENCES
// =============================================================================

func TestRecurrenceCreateAndProcess(t *testing.T) {
	// GIVEN: A monthly income recurrence started in the past
	// WHEN: Triggering processing over the API
	// THEN: The report lists created transactions carrying the recurrence ID

	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "0")

	var rec api.RecurrenceDTO
	resp := do(t, srv, http.MethodPost, "/api/recurrences", api.CreateRecurrenceRequest{
		OwnerID:   "u1",
		WalletID:  w.ID,
		Type:      "income",
		Amount:    "100",
		Frequency: "monthly",
		StartDate: "2026-07-01",
	}, &rec)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, rec.IsActive)

	var report api.MaterializeReportDTO
	resp = do(t, srv, http.MethodPost, "/api/recurrences/"+rec.ID+"/process?owner_id=u1", nil, &report)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotEmpty(t, report.Created)
	assert.Equal(t, rec.ID, report.Created[0].RecurrenceID)

	// Processing again creates nothing new.
	var again api.MaterializeReportDTO
	resp = do(t, srv, http.MethodPost, "/api/recurrences/"+rec.ID+"/process?owner_id=u1", nil, &again)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, again.Created)
	assert.Len(t, again.Skipped, len(report.Created))
}

func TestCreateRecurrence_EndBeforeStartIs400(t *testing.T) {
	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "0")

	resp := do(t, srv, http.MethodPost, "/api/recurrences", api.CreateRecurrenceRequest{
		OwnerID:   "u1",
		WalletID:  w.ID,
		Type:      "expense",
		Amount:    "10",
		Frequency: "monthly",
		StartDate: "2026-07-01",
		EndDate:   "2026-06-01",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// RECEIPTS
// =============================================================================

func TestImportReceipt_ReportsPerItemResults(t *testing.T) {
	// GIVEN: A receipt batch with one good and one zero-amount line
	// WHEN: Importing over the API
	// THEN: One transaction is imported and the bad line is reported

	srv, _ := newTestServer(t)
	w := createWallet(t, srv, "u1", "Checking", "EUR", "100")

	var result api.ImportReceiptResponse
	resp := do(t, srv, http.MethodPost, "/api/receipts/import", api.ImportReceiptRequest{
		OwnerID: "u1",
		Entries: []api.ReceiptEntryDTO{
			{WalletID: w.ID, Date: "2025-08-06", Amount: "12.50", Merchant: "Bakery"},
			{WalletID: w.ID, Date: "2025-08-06", Amount: "0", Merchant: "Glitch"},
		},
	}, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, result.Imported, 1)
	assert.Equal(t, "Bakery", result.Imported[0].Description)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
}
