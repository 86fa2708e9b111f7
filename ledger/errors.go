/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (HTTP layer, batch runners) classify with errors.Is and the
  helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors - Bad input, rejected before any write
  2. Conversion errors - Currency lookup failed, rejected before any write
  3. Integrity errors  - A write failed mid-protocol; compensation ran,
     and if compensation itself failed the error is LedgerInconsistent

USAGE:
  if errors.Is(err, ledger.ErrInsufficientBalance) {
      // reject with 400, show shortfall to the user
  }

SEE ALSO:
  - mutator.go: Where these errors are produced
  - saga.go: LedgerInconsistentError on compensation failure
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an intent carries a zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrWalletNotFound is returned when a referenced wallet doesn't exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletNotOwned is returned when the caller does not own a referenced wallet.
	ErrWalletNotOwned = errors.New("wallet not owned by caller")

	// ErrWalletInactive is returned when a soft-deleted wallet is targeted.
	ErrWalletInactive = errors.New("wallet is inactive")

	// ErrSameWallet is returned when a transfer targets its own origin.
	ErrSameWallet = errors.New("transfer origin and destination must differ")

	// ErrInsufficientBalance is returned when a transfer or goal top-up would
	// overdraw the origin wallet. Plain income/expense do not block on balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCategoryInvalid is returned when a category is neither global nor
	// owned by the caller.
	ErrCategoryInvalid = errors.New("category not accessible")

	// ErrCurrencyConversion is returned when the exchange-rate lookup fails.
	// Always raised before any write occurs.
	ErrCurrencyConversion = errors.New("currency conversion failed")

	// ErrGoalNotFound is returned when a referenced goal doesn't exist.
	ErrGoalNotFound = errors.New("goal not found")

	// ErrGoalNotOwned is returned when the caller does not own the goal.
	ErrGoalNotOwned = errors.New("goal not owned by caller")

	// ErrGoalReached is returned when a top-up targets an already-full goal.
	ErrGoalReached = errors.New("goal already reached")

	// ErrTransactionNotFound is returned when a referenced transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrRecurrenceNotFound is returned when a referenced recurrence doesn't exist.
	ErrRecurrenceNotFound = errors.New("recurrence not found")

	// ErrRecurrenceInactive is returned when materialization is requested for
	// an inactive recurrence.
	ErrRecurrenceInactive = errors.New("recurrence is inactive")

	// ErrLedgerInconsistent is returned when a balance adjustment failed AND
	// the compensation that should have restored consistency also failed.
	// This is a fatal data-integrity event requiring manual reconciliation.
	ErrLedgerInconsistent = errors.New("ledger inconsistent: compensation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	WalletID  WalletID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on wallet %s: available %s, requested %s",
		e.WalletID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// ConversionError provides details about a failed currency conversion.
type ConversionError struct {
	From, To string
	Cause    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s to %s: %v", e.From, e.To, e.Cause)
}

func (e *ConversionError) Unwrap() error {
	return ErrCurrencyConversion
}

// LedgerInconsistentError is raised when LIFO compensation could not fully
// undo a partially applied mutation. The fields describe what was left
// un-compensated so an operator can reconcile by hand.
type LedgerInconsistentError struct {
	Step         string // forward step that originally failed
	FailedUndo   string // compensation step that failed
	Cause        error  // original forward failure
	UndoCause    error  // compensation failure
}

func (e *LedgerInconsistentError) Error() string {
	return fmt.Sprintf("ledger inconsistent: step %q failed (%v) and undo of %q failed (%v)",
		e.Step, e.Cause, e.FailedUndo, e.UndoCause)
}

func (e *LedgerInconsistentError) Unwrap() error {
	return ErrLedgerInconsistent
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
// These errors are raised before any write and need no compensation.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrWalletNotOwned) ||
		errors.Is(err, ErrWalletInactive) ||
		errors.Is(err, ErrSameWallet) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrCategoryInvalid) ||
		errors.Is(err, ErrGoalNotOwned) ||
		errors.Is(err, ErrGoalReached) ||
		errors.Is(err, ErrRecurrenceInactive)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrGoalNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrRecurrenceNotFound)
}

// IsIntegrityError returns true for failures that require operator attention.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrLedgerInconsistent)
}
