/*
intent.go - Closed tagged union of mutation intents

PURPOSE:
  Callers describe WHAT they want (an income entry, a transfer, a goal
  top-up) as an Intent; the Mutator decides HOW to apply it. Each variant
  carries only the fields it needs and validates itself exhaustively
  before any I/O happens.

WHY A CLOSED UNION?
  There are exactly three shapes of balance-affecting operation. A sealed
  interface plus a type switch in the Mutator means the compiler knows the
  dispatch is exhaustive and no dynamic payload can sneak in unvalidated.

SEE ALSO:
  - mutator.go: Execute dispatches on the concrete intent type
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// Intent is a request to mutate the ledger. The concrete types are
// SimpleEntry, Transfer, and GoalTopUp; no other implementations exist.
type Intent interface {
	// Validate checks the intent's own fields. Cross-row checks (ownership,
	// existence, balance) happen in the Mutator against the store.
	Validate() error

	intent() // seals the union
}

// =============================================================================
// SIMPLE ENTRY - Income or expense against one wallet
// =============================================================================

type SimpleEntry struct {
	OwnerID     OwnerID
	WalletID    WalletID
	Type        TransactionType // TxIncome or TxExpense
	Amount      decimal.Decimal // always positive
	Date        Date
	Description string
	CategoryID  CategoryID

	// RecurrenceID is set when this entry is materialized from a recurrence.
	RecurrenceID RecurrenceID
}

func (e SimpleEntry) intent() {}

func (e SimpleEntry) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.Type != TxIncome && e.Type != TxExpense {
		return ErrInvalidAmount
	}
	if e.WalletID == "" {
		return ErrWalletNotFound
	}
	return nil
}

// BalanceDelta returns the signed effect on the wallet balance.
func (e SimpleEntry) BalanceDelta() decimal.Decimal {
	if e.Type == TxExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// =============================================================================
// TRANSFER - Move an amount between two wallets
// =============================================================================

type Transfer struct {
	OwnerID             OwnerID
	OriginWalletID      WalletID
	DestinationWalletID WalletID
	Amount              decimal.Decimal // in origin-wallet currency, positive
	Date                Date
	Description         string
	CategoryID          CategoryID
	RecurrenceID        RecurrenceID
}

func (t Transfer) intent() {}

func (t Transfer) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.OriginWalletID == "" || t.DestinationWalletID == "" {
		return ErrWalletNotFound
	}
	if t.OriginWalletID == t.DestinationWalletID {
		return ErrSameWallet
	}
	return nil
}

// =============================================================================
// GOAL TOP-UP - Fund a savings goal from a wallet
// =============================================================================

// GoalTopUp moves DeltaAmount (in goal currency) into the goal's saved
// total, deducting the converted amount from the chosen wallet. The saved
// total is clamped at the goal target.
type GoalTopUp struct {
	OwnerID     OwnerID
	GoalID      GoalID
	WalletID    WalletID
	DeltaAmount decimal.Decimal // in goal currency, positive
	Date        Date
	Description string
}

func (g GoalTopUp) intent() {}

func (g GoalTopUp) Validate() error {
	if !g.DeltaAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.GoalID == "" {
		return ErrGoalNotFound
	}
	if g.WalletID == "" {
		return ErrWalletNotFound
	}
	return nil
}
