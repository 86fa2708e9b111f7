/*
handlers.go - HTTP API handlers for the finance ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Wallets:
    GET    /api/wallets                  List wallets for an owner
    POST   /api/wallets                  Create wallet
    GET    /api/wallets/{id}             Get wallet details
    PUT    /api/wallets/{id}             Rename wallet
    DELETE /api/wallets/{id}             Deactivate wallet (history survives)
    POST   /api/wallets/{id}/restore     Reactivate wallet
    GET    /api/wallets/{id}/transactions History for one wallet

  Transactions:
    GET    /api/transactions             Filtered history
    POST   /api/transactions             Record income/expense
    POST   /api/transactions/transfer    Move between wallets
    GET    /api/transactions/{id}        Get one entry
    PUT    /api/transactions/{id}        Edit entry (balance re-applied)
    DELETE /api/transactions/{id}        Delete entry (balance reversed)

  Goals:
    GET    /api/goals                    List goals with progress
    POST   /api/goals                    Create goal
    GET    /api/goals/{id}               Get goal
    POST   /api/goals/{id}/topup         Fund goal from a wallet

  Recurrences:
    GET    /api/recurrences              List active recurrences
    POST   /api/recurrences              Create recurrence
    GET    /api/recurrences/{id}         Get recurrence
    POST   /api/recurrences/{id}/toggle  Activate/deactivate
    POST   /api/recurrences/{id}/process Materialize due occurrences
    GET    /api/recurrences/missing      Gaps across all active recurrences
    POST   /api/recurrences/{id}/generate Backfill selected gap dates

  Receipts:
    POST   /api/receipts/import          Batch-import parsed receipt lines

  Categories:
    POST   /api/categories               Create category

OWNERSHIP:
  There is no authentication layer; callers identify the acting owner via
  the owner_id query parameter (GET/DELETE) or request body (POST/PUT).
  Ownership checks still apply: one owner cannot touch another's rows.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, insufficient balance, invalid input
  - 404: Resource not found
  - 500: Internal errors, including failed compensation

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/mutator.go: Where the balance consistency lives
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/receipt"
	"github.com/warp/finance-ledger/recurrence"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// CategoryWriter is the category persistence the handlers need.
type CategoryWriter interface {
	ledger.CategoryAccessCheck
	InsertCategory(ctx context.Context, c ledger.Category) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        ledger.Store
	Categories   CategoryWriter
	Mutator      *ledger.Mutator
	Materializer *recurrence.Materializer
	Importer     *receipt.Importer
	Log          zerolog.Logger

	// now is swappable in tests.
	now func() ledger.Date
}

// NewHandler creates a new handler with the given collaborators.
func NewHandler(store ledger.Store, categories CategoryWriter, mutator *ledger.Mutator,
	materializer *recurrence.Materializer, importer *receipt.Importer, log zerolog.Logger) *Handler {
	return &Handler{
		Store:        store,
		Categories:   categories,
		Mutator:      mutator,
		Materializer: materializer,
		Importer:     importer,
		Log:          log.With().Str("component", "api").Logger(),
		now:          ledger.Today,
	}
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// ListWallets returns the owner's wallets, active and inactive.
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	owner := ledger.OwnerID(r.URL.Query().Get("owner_id"))

	wallets, err := h.Store.ListWallets(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list wallets", err)
		return
	}

	dtos := make([]WalletDTO, len(wallets))
	for i, wallet := range wallets {
		dtos[i] = toWalletDTO(wallet)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWallet creates a wallet with an optional starting balance.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OwnerID == "" || req.Name == "" || req.Currency == "" {
		writeError(w, http.StatusBadRequest, "owner_id, name and currency are required", nil)
		return
	}

	initial := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		initial, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid initial_balance", err)
			return
		}
	}

	wallet := ledger.Wallet{
		ID:             ledger.WalletID(uuid.NewString()),
		OwnerID:        ledger.OwnerID(req.OwnerID),
		Name:           req.Name,
		Currency:       req.Currency,
		InitialBalance: initial,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Store.InsertWallet(r.Context(), wallet); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create wallet", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTO(wallet))
}

// GetWallet returns a single wallet.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownedWallet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// UpdateWallet renames a wallet.
func (h *Handler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	var req UpdateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	wallet, ok := h.ownedWallet(w, r)
	if !ok {
		return
	}
	wallet.Name = req.Name
	if err := h.Store.UpdateWallet(r.Context(), *wallet); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// DeactivateWallet soft-deletes a wallet. Its transactions remain visible
// in history; new mutations against it are rejected.
func (h *Handler) DeactivateWallet(w http.ResponseWriter, r *http.Request) {
	h.setWalletActive(w, r, false)
}

// RestoreWallet reactivates a soft-deleted wallet.
func (h *Handler) RestoreWallet(w http.ResponseWriter, r *http.Request) {
	h.setWalletActive(w, r, true)
}

func (h *Handler) setWalletActive(w http.ResponseWriter, r *http.Request, active bool) {
	wallet, ok := h.ownedWallet(w, r)
	if !ok {
		return
	}
	wallet.IsActive = active
	if err := h.Store.UpdateWallet(r.Context(), *wallet); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// GetWalletTransactions returns the history touching one wallet, including
// transfer legs where the wallet is origin or destination.
func (h *Handler) GetWalletTransactions(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownedWallet(w, r)
	if !ok {
		return
	}

	filter := ledger.TransactionFilter{
		OwnerID:  wallet.OwnerID,
		WalletID: wallet.ID,
	}
	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}
	filter.From, filter.To = from, to

	txs, err := h.Store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) ownedWallet(w http.ResponseWriter, r *http.Request) (*ledger.Wallet, bool) {
	id := ledger.WalletID(chi.URLParam(r, "id"))
	owner := ledger.OwnerID(r.URL.Query().Get("owner_id"))

	wallet, err := h.Store.GetWallet(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if owner != "" && wallet.OwnerID != owner {
		writeError(w, http.StatusNotFound, "Wallet not found", ledger.ErrWalletNotFound)
		return nil, false
	}
	return wallet, true
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns filtered history across all of an owner's wallets.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.TransactionFilter{
		OwnerID:      ledger.OwnerID(q.Get("owner_id")),
		WalletID:     ledger.WalletID(q.Get("wallet_id")),
		RecurrenceID: ledger.RecurrenceID(q.Get("recurrence_id")),
		GoalID:       ledger.GoalID(q.Get("goal_id")),
	}
	if t := q.Get("type"); t != "" {
		filter.Types = []ledger.TransactionType{ledger.TransactionType(t)}
	}
	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}
	filter.From, filter.To = from, to

	txs, err := h.Store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateEntry records an income or expense.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}

	result, err := h.Mutator.Execute(r.Context(), ledger.SimpleEntry{
		OwnerID:     ledger.OwnerID(req.OwnerID),
		WalletID:    ledger.WalletID(req.WalletID),
		Type:        ledger.TransactionType(req.Type),
		Amount:      amount,
		Date:        date,
		Description: req.Description,
		CategoryID:  ledger.CategoryID(req.CategoryID),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(result.Primary()))
}

// CreateTransfer moves an amount between two wallets. Both legs come back
// in the response.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}

	result, err := h.Mutator.Execute(r.Context(), ledger.Transfer{
		OwnerID:             ledger.OwnerID(req.OwnerID),
		OriginWalletID:      ledger.WalletID(req.OriginWalletID),
		DestinationWalletID: ledger.WalletID(req.DestinationWalletID),
		Amount:              amount,
		Date:                date,
		Description:         req.Description,
		CategoryID:          ledger.CategoryID(req.CategoryID),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTOs(result.Transactions))
}

// GetTransaction returns one ledger entry.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	tx, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if owner := r.URL.Query().Get("owner_id"); owner != "" && tx.OwnerID != ledger.OwnerID(owner) {
		writeError(w, http.StatusNotFound, "Transaction not found", ledger.ErrTransactionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// UpdateTransaction edits an entry; amount edits re-apply the balance delta.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	change := ledger.Change{}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		change.Amount = &amount
	}
	if req.Date != nil {
		date, err := ledger.ParseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
			return
		}
		change.Date = &date
	}
	if req.Description != nil {
		change.Description = req.Description
	}
	if req.CategoryID != nil {
		cat := ledger.CategoryID(*req.CategoryID)
		change.CategoryID = &cat
	}

	id := ledger.TransactionID(chi.URLParam(r, "id"))
	owner := ledger.OwnerID(r.URL.Query().Get("owner_id"))

	tx, err := h.Mutator.Update(r.Context(), id, owner, change)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteTransaction removes an entry, reversing its balance effect first.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	owner := ledger.OwnerID(r.URL.Query().Get("owner_id"))

	if err := h.Mutator.Delete(r.Context(), id, owner); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// =============================================================================
// GOAL HANDLERS
// =============================================================================

// ListGoals returns the owner's goals with progress.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	owner := ledger.OwnerID(r.URL.Query().Get("owner_id"))

	goals, err := h.Store.ListGoals(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list goals", err)
		return
	}

	dtos := make([]GoalDTO, len(goals))
	for i, g := range goals {
		dtos[i] = toGoalDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGoal creates a savings goal.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OwnerID == "" || req.Name == "" || req.Currency == "" {
		writeError(w, http.StatusBadRequest, "owner_id, name and currency are required", nil)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	goal := ledger.Goal{
		ID:          ledger.GoalID(uuid.NewString()),
		OwnerID:     ledger.OwnerID(req.OwnerID),
		Name:        req.Name,
		AmountGoal:  amount,
		AmountSaved: decimal.Zero,
		Currency:    req.Currency,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.InsertGoal(r.Context(), goal); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(goal))
}

// GetGoal returns one goal with progress.
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id := ledger.GoalID(chi.URLParam(r, "id"))
	goal, err := h.Store.GetGoal(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if owner := r.URL.Query().Get("owner_id"); owner != "" && goal.OwnerID != ledger.OwnerID(owner) {
		writeError(w, http.StatusNotFound, "Goal not found", ledger.ErrGoalNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(*goal))
}

// TopUpGoal funds a goal from a wallet; the amount is clamped so saved
// never exceeds the target.
func (h *Handler) TopUpGoal(w http.ResponseWriter, r *http.Request) {
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}

	result, err := h.Mutator.Execute(r.Context(), ledger.GoalTopUp{
		OwnerID:     ledger.OwnerID(req.OwnerID),
		GoalID:      ledger.GoalID(chi.URLParam(r, "id")),
		WalletID:    ledger.WalletID(req.WalletID),
		DeltaAmount: amount,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	goal, err := h.Store.GetGoal(r.Context(), ledger.GoalID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionDTO(result.Primary()),
		"goal":        toGoalDTO(*goal),
	})
}

// =============================================================================
// RECURRENCE HANDLERS
// =============================================================================

// ListRecurrences returns the owner's active recurrences with their next
// occurrence date.
func (h *Handler) ListRecurrences(w http.ResponseWriter, r *http.Request) {
	owner := ledger.OwnerID(r.URL.Query().Get("owner_id"))

	recs, err := h.Store.ListActiveRecurrences(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recurrences", err)
		return
	}

	today := h.now()
	dtos := make([]RecurrenceDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toRecurrenceDTO(rec, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRecurrence creates a recurrence template.
func (h *Handler) CreateRecurrence(w http.ResponseWriter, r *http.Request) {
	var req CreateRecurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	start, err := ledger.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD", err)
		return
	}

	rec := ledger.Recurrence{
		ID:                  ledger.RecurrenceID(uuid.NewString()),
		OwnerID:             ledger.OwnerID(req.OwnerID),
		WalletID:            ledger.WalletID(req.WalletID),
		DestinationWalletID: ledger.WalletID(req.DestinationWalletID),
		Type:                ledger.TransactionType(req.Type),
		Amount:              amount,
		Frequency:           ledger.Frequency(req.Frequency),
		StartDate:           start,
		CategoryID:          ledger.CategoryID(req.CategoryID),
		Description:         req.Description,
		IsActive:            true,
		CreatedAt:           time.Now().UTC(),
	}
	if req.EndDate != "" {
		end, err := ledger.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD", err)
			return
		}
		if end.Before(start) {
			writeError(w, http.StatusBadRequest, "end_date must not precede start_date", nil)
			return
		}
		rec.EndDate = &end
	}

	switch rec.Type {
	case ledger.TxIncome, ledger.TxExpense:
		if rec.DestinationWalletID != "" {
			writeError(w, http.StatusBadRequest, "destination_wallet_id is only valid for transfers", nil)
			return
		}
	case ledger.TxTransfer:
		if rec.DestinationWalletID == "" {
			writeError(w, http.StatusBadRequest, "destination_wallet_id is required for transfers", nil)
			return
		}
		if rec.DestinationWalletID == rec.WalletID {
			writeError(w, http.StatusBadRequest, "Cannot transfer to the same wallet", ledger.ErrSameWallet)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "type must be income, expense, or transfer", nil)
		return
	}
	switch rec.Frequency {
	case ledger.FreqDaily, ledger.FreqWeekly, ledger.FreqMonthly, ledger.FreqYearly:
	default:
		writeError(w, http.StatusBadRequest, "frequency must be daily, weekly, monthly, or yearly", nil)
		return
	}

	if err := h.Store.InsertRecurrence(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create recurrence", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecurrenceDTO(rec, h.now()))
}

// GetRecurrence returns one recurrence.
func (h *Handler) GetRecurrence(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ownedRecurrence(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRecurrenceDTO(*rec, h.now()))
}

// ToggleRecurrence flips a recurrence between active and inactive. An
// inactive recurrence stops materializing but keeps its history.
func (h *Handler) ToggleRecurrence(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ownedRecurrence(w, r)
	if !ok {
		return
	}
	rec.IsActive = !rec.IsActive
	if err := h.Store.UpdateRecurrence(r.Context(), *rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update recurrence", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurrenceDTO(*rec, h.now()))
}

// ProcessRecurrence materializes every due occurrence of one recurrence.
// Running it twice is safe: already-materialized dates are skipped.
func (h *Handler) ProcessRecurrence(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ownedRecurrence(w, r)
	if !ok {
		return
	}

	report, err := h.Materializer.ProcessDue(r.Context(), *rec, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// ListMissing reports occurrence dates that have no generated transaction,
// across all of the owner's active recurrences.
func (h *Handler) ListMissing(w http.ResponseWriter, r *http.Request) {
	owner := ledger.OwnerID(r.URL.Query().Get("owner_id"))

	missing, err := h.Materializer.CheckMissing(r.Context(), owner, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check missing occurrences", err)
		return
	}

	today := h.now()
	dtos := make([]MissingDTO, len(missing))
	for i, m := range missing {
		dates := make([]string, len(m.MissingDates))
		for j, d := range m.MissingDates {
			dates[j] = d.String()
		}
		dtos[i] = MissingDTO{
			Recurrence:   toRecurrenceDTO(m.Recurrence, today),
			MissingDates: dates,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateMissing backfills selected gap dates for one recurrence. With no
// dates in the body, every missing occurrence up to today is generated.
func (h *Handler) GenerateMissing(w http.ResponseWriter, r *http.Request) {
	var req GenerateMissingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, ok := h.ownedRecurrence(w, r)
	if !ok {
		return
	}

	var dates []ledger.Date
	if len(req.Dates) == 0 {
		dates = recurrence.OccurrencesBetween(*rec, rec.StartDate, h.now())
	} else {
		for _, s := range req.Dates {
			d, err := ledger.ParseDate(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
				return
			}
			dates = append(dates, d)
		}
	}

	report, err := h.Materializer.GenerateMissing(r.Context(), *rec, dates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

func (h *Handler) ownedRecurrence(w http.ResponseWriter, r *http.Request) (*ledger.Recurrence, bool) {
	id := ledger.RecurrenceID(chi.URLParam(r, "id"))
	rec, err := h.Store.GetRecurrence(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	owner := r.URL.Query().Get("owner_id")
	if owner != "" && rec.OwnerID != ledger.OwnerID(owner) {
		writeError(w, http.StatusNotFound, "Recurrence not found", ledger.ErrRecurrenceNotFound)
		return nil, false
	}
	return rec, true
}

// =============================================================================
// RECEIPT HANDLERS
// =============================================================================

// ImportReceipt records a batch of parsed receipt lines as expenses.
// Entries are independent; failures come back per-item.
func (h *Handler) ImportReceipt(w http.ResponseWriter, r *http.Request) {
	var req ImportReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OwnerID == "" || len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "owner_id and entries are required", nil)
		return
	}

	entries := make([]receipt.Entry, len(req.Entries))
	for i, e := range req.Entries {
		amount, err := decimal.NewFromString(e.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount in entry", err)
			return
		}
		date, ok := parseOptionalDate(w, e.Date)
		if !ok {
			return
		}
		entries[i] = receipt.Entry{
			WalletID:   ledger.WalletID(e.WalletID),
			Date:       date,
			Amount:     amount,
			Merchant:   e.Merchant,
			CategoryID: ledger.CategoryID(e.CategoryID),
		}
	}

	result := h.Importer.ImportBatch(r.Context(), ledger.OwnerID(req.OwnerID), entries)
	writeJSON(w, http.StatusOK, toImportResponse(result))
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// CreateCategory creates a category. Empty owner_id makes it global.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	c := ledger.Category{
		ID:      ledger.CategoryID(uuid.NewString()),
		OwnerID: ledger.OwnerID(req.OwnerID),
		Name:    req.Name,
	}
	if err := h.Categories.InsertCategory(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, CategoryDTO{
		ID:      string(c.ID),
		OwnerID: string(c.OwnerID),
		Name:    c.Name,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseOptionalDate(w http.ResponseWriter, s string) (ledger.Date, bool) {
	if s == "" {
		return ledger.Date{}, true
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return ledger.Date{}, false
	}
	return d, true
}

func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (*ledger.Date, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name+", expected YYYY-MM-DD", err)
		return nil, false
	}
	return &d, true
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrLedgerInconsistent):
		writeError(w, http.StatusInternalServerError, "Ledger inconsistent, manual reconciliation required", err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
