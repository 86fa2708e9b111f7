/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ON THE WIRE:
  Amounts travel as decimal strings ("40.50"), never floats. Dates travel
  as "2006-01-02". Parsing happens in the handlers.

VALIDATION:
  Validation is done in handlers and intents, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/intent.go: The domain-side shapes these map onto
*/
package api

import (
	"time"

	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/receipt"
	"github.com/warp/finance-ledger/recurrence"
)

// =============================================================================
// WALLETS
// =============================================================================

// WalletDTO represents a wallet in API responses.
type WalletDTO struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	Balance        string `json:"balance"`
	InitialBalance string `json:"initial_balance"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at,omitempty"`
}

func toWalletDTO(w ledger.Wallet) WalletDTO {
	return WalletDTO{
		ID:             string(w.ID),
		OwnerID:        string(w.OwnerID),
		Name:           w.Name,
		Currency:       w.Currency,
		Balance:        w.CurrentBalance().String(),
		InitialBalance: w.InitialBalance.String(),
		IsActive:       w.IsActive,
		CreatedAt:      w.CreatedAt.Format(time.RFC3339),
	}
}

// CreateWalletRequest is the request to create a wallet.
type CreateWalletRequest struct {
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	InitialBalance string `json:"initial_balance"`
}

// UpdateWalletRequest renames a wallet. Currency and balances are not
// editable through this endpoint.
type UpdateWalletRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// ConversionDTO is the audit trail of a currency conversion.
type ConversionDTO struct {
	Rate                string `json:"rate"`
	OriginalAmount      string `json:"original_amount"`
	OriginalCurrency    string `json:"original_currency"`
	ConvertedAmount     string `json:"converted_amount"`
	DestinationCurrency string `json:"destination_currency"`
}

// TransactionDTO represents a committed ledger entry in API responses.
type TransactionDTO struct {
	ID                  string         `json:"id"`
	OwnerID             string         `json:"owner_id"`
	WalletID            string         `json:"wallet_id,omitempty"`
	OriginWalletID      string         `json:"origin_wallet_id,omitempty"`
	DestinationWalletID string         `json:"destination_wallet_id,omitempty"`
	TransferGroupID     string         `json:"transfer_group_id,omitempty"`
	Type                string         `json:"type"`
	Amount              string         `json:"amount"`
	Date                string         `json:"date"`
	Description         string         `json:"description,omitempty"`
	CategoryID          string         `json:"category_id,omitempty"`
	RecurrenceID        string         `json:"recurrence_id,omitempty"`
	GoalID              string         `json:"goal_id,omitempty"`
	Conversion          *ConversionDTO `json:"conversion,omitempty"`
	CreatedAt           string         `json:"created_at,omitempty"`
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                  string(tx.ID),
		OwnerID:             string(tx.OwnerID),
		WalletID:            string(tx.WalletID),
		OriginWalletID:      string(tx.OriginWalletID),
		DestinationWalletID: string(tx.DestinationWalletID),
		TransferGroupID:     tx.TransferGroupID,
		Type:                string(tx.Type),
		Amount:              tx.Amount.String(),
		Date:                tx.Date.String(),
		Description:         tx.Description,
		CategoryID:          string(tx.CategoryID),
		RecurrenceID:        string(tx.RecurrenceID),
		GoalID:              string(tx.GoalID),
		CreatedAt:           tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.Conversion != nil {
		dto.Conversion = &ConversionDTO{
			Rate:                tx.Conversion.Rate.String(),
			OriginalAmount:      tx.Conversion.OriginalAmount.String(),
			OriginalCurrency:    tx.Conversion.OriginalCurrency,
			ConvertedAmount:     tx.Conversion.ConvertedAmount.String(),
			DestinationCurrency: tx.Conversion.DestinationCurrency,
		}
	}
	return dto
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

// CreateEntryRequest records an income or expense against one wallet.
type CreateEntryRequest struct {
	OwnerID     string `json:"owner_id"`
	WalletID    string `json:"wallet_id"`
	Type        string `json:"type"` // "income" or "expense"
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"` // empty = today
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
}

// CreateTransferRequest moves an amount between two wallets, converting
// currency when they differ.
type CreateTransferRequest struct {
	OwnerID             string `json:"owner_id"`
	OriginWalletID      string `json:"origin_wallet_id"`
	DestinationWalletID string `json:"destination_wallet_id"`
	Amount              string `json:"amount"` // in origin-wallet currency
	Date                string `json:"date,omitempty"`
	Description         string `json:"description,omitempty"`
	CategoryID          string `json:"category_id,omitempty"`
}

// UpdateTransactionRequest edits an existing transaction. Nil fields are
// left unchanged.
type UpdateTransactionRequest struct {
	Amount      *string `json:"amount,omitempty"`
	Date        *string `json:"date,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
}

// =============================================================================
// GOALS
// =============================================================================

// GoalDTO represents a savings goal in API responses.
type GoalDTO struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	AmountGoal  string `json:"amount_goal"`
	AmountSaved string `json:"amount_saved"`
	Remaining   string `json:"remaining"`
	Currency    string `json:"currency"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func toGoalDTO(g ledger.Goal) GoalDTO {
	return GoalDTO{
		ID:          string(g.ID),
		OwnerID:     string(g.OwnerID),
		Name:        g.Name,
		AmountGoal:  g.AmountGoal.String(),
		AmountSaved: g.AmountSaved.String(),
		Remaining:   g.Remaining().String(),
		Currency:    g.Currency,
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
}

// CreateGoalRequest is the request to create a savings goal.
type CreateGoalRequest struct {
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// TopUpRequest funds a goal from a wallet. Amount is in goal currency.
type TopUpRequest struct {
	OwnerID     string `json:"owner_id"`
	WalletID    string `json:"wallet_id"`
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

// =============================================================================
// RECURRENCES
// =============================================================================

// RecurrenceDTO represents a recurrence in API responses.
type RecurrenceDTO struct {
	ID                  string `json:"id"`
	OwnerID             string `json:"owner_id"`
	WalletID            string `json:"wallet_id"`
	DestinationWalletID string `json:"destination_wallet_id,omitempty"`
	Type                string `json:"type"`
	Amount              string `json:"amount"`
	Frequency           string `json:"frequency"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date,omitempty"`
	CategoryID          string `json:"category_id,omitempty"`
	Description         string `json:"description,omitempty"`
	IsActive            bool   `json:"is_active"`
	NextOccurrence      string `json:"next_occurrence,omitempty"`
	CreatedAt           string `json:"created_at,omitempty"`
}

func toRecurrenceDTO(rec ledger.Recurrence, today ledger.Date) RecurrenceDTO {
	dto := RecurrenceDTO{
		ID:                  string(rec.ID),
		OwnerID:             string(rec.OwnerID),
		WalletID:            string(rec.WalletID),
		DestinationWalletID: string(rec.DestinationWalletID),
		Type:                string(rec.Type),
		Amount:              rec.Amount.String(),
		Frequency:           string(rec.Frequency),
		StartDate:           rec.StartDate.String(),
		CategoryID:          string(rec.CategoryID),
		Description:         rec.Description,
		IsActive:            rec.IsActive,
		CreatedAt:           rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.EndDate != nil {
		dto.EndDate = rec.EndDate.String()
	}
	if rec.IsActive {
		if next := recurrence.UpcomingOccurrences(rec, today, today.AddDays(366)); len(next) > 0 {
			dto.NextOccurrence = next[0].String()
		}
	}
	return dto
}

// CreateRecurrenceRequest is the request to create a recurrence.
type CreateRecurrenceRequest struct {
	OwnerID             string `json:"owner_id"`
	WalletID            string `json:"wallet_id"`
	DestinationWalletID string `json:"destination_wallet_id,omitempty"` // transfers only
	Type                string `json:"type"`                            // income | expense | transfer
	Amount              string `json:"amount"`
	Frequency           string `json:"frequency"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date,omitempty"`
	CategoryID          string `json:"category_id,omitempty"`
	Description         string `json:"description,omitempty"`
}

// MaterializeReportDTO summarizes one materialization batch.
type MaterializeReportDTO struct {
	RecurrenceID string           `json:"recurrence_id"`
	Created      []TransactionDTO `json:"created"`
	Skipped      []string         `json:"skipped"`
	Errors       []string         `json:"errors,omitempty"`
}

func toReportDTO(r *recurrence.Report) MaterializeReportDTO {
	dto := MaterializeReportDTO{
		RecurrenceID: string(r.RecurrenceID),
		Created:      toTransactionDTOs(r.Created),
		Skipped:      make([]string, len(r.Skipped)),
	}
	for i, d := range r.Skipped {
		dto.Skipped[i] = d.String()
	}
	for _, e := range r.Errors {
		dto.Errors = append(dto.Errors, e.Date.String()+": "+e.Err.Error())
	}
	return dto
}

// MissingDTO pairs a recurrence with the dates it has not yet materialized.
type MissingDTO struct {
	Recurrence   RecurrenceDTO `json:"recurrence"`
	MissingDates []string      `json:"missing_dates"`
}

// GenerateMissingRequest selects which gap dates to materialize. Empty
// means every missing date.
type GenerateMissingRequest struct {
	Dates []string `json:"dates,omitempty"`
}

// =============================================================================
// RECEIPTS
// =============================================================================

// ReceiptEntryDTO is one parsed line of a receipt.
type ReceiptEntryDTO struct {
	WalletID   string `json:"wallet_id"`
	Date       string `json:"date,omitempty"`
	Amount     string `json:"amount"`
	Merchant   string `json:"merchant"`
	CategoryID string `json:"category_id,omitempty"`
}

// ImportReceiptRequest imports a batch of parsed receipt entries.
type ImportReceiptRequest struct {
	OwnerID string            `json:"owner_id"`
	Entries []ReceiptEntryDTO `json:"entries"`
}

// ImportReceiptResponse reports a completed import batch.
type ImportReceiptResponse struct {
	Imported []TransactionDTO `json:"imported"`
	Failed   []ImportFailure  `json:"failed,omitempty"`
}

// ImportFailure records one entry that could not be imported.
type ImportFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

func toImportResponse(r *receipt.BatchResult) ImportReceiptResponse {
	resp := ImportReceiptResponse{Imported: toTransactionDTOs(r.Imported)}
	for _, f := range r.Failed {
		resp.Failed = append(resp.Failed, ImportFailure{Index: f.Index, Error: f.Err.Error()})
	}
	return resp
}

// =============================================================================
// CATEGORIES AND ERRORS
// =============================================================================

// CreateCategoryRequest creates a category. Empty owner_id makes it global.
type CreateCategoryRequest struct {
	OwnerID string `json:"owner_id,omitempty"`
	Name    string `json:"name"`
}

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id,omitempty"`
	Name    string `json:"name"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
