/*
store.go - Persistence collaborator interface

PURPOSE:
  Defines the interface between the ledger core and the database. The core
  deliberately assumes very little of the storage engine: row-level CRUD
  plus ONE atomic numeric increment. No multi-statement transactions.

THE ATOMICITY PRECONDITION:
  AdjustBalance(walletID, delta) MUST be atomic and serializable with
  respect to concurrent calls on the same wallet - e.g. a single
  "UPDATE ... SET balance = balance + ?" statement. The core never
  read-modify-writes a balance; it relies on this primitive for per-wallet
  consistency. This is a documented precondition of the contract, not
  something the core can enforce.

WHY NO WithTx?
  The whole point of the mutation protocol (see mutator.go) is to stay
  correct when the store CANNOT wrap multiple writes atomically. Offering
  a transactional escape hatch here would hide that constraint.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing, with failure injection

SEE ALSO:
  - mutator.go: The only writer of transactions and balances
  - saga.go: Compensation when a later write fails
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - CRUD plus one atomic increment
// =============================================================================

// Store is the persistence collaborator for the ledger core.
//
// PRECONDITION: AdjustBalance must be atomic per wallet (single-statement
// increment). Everything else is plain row CRUD.
type Store interface {
	// Wallets. Balance is never written directly by business logic except
	// on creation/restore; use AdjustBalance for all balance changes.
	GetWallet(ctx context.Context, id WalletID) (*Wallet, error)
	InsertWallet(ctx context.Context, w Wallet) error
	UpdateWallet(ctx context.Context, w Wallet) error
	ListWallets(ctx context.Context, owner OwnerID) ([]Wallet, error)

	// AdjustBalance atomically increments a wallet's balance by delta
	// (negative delta decrements). It cannot partially apply.
	AdjustBalance(ctx context.Context, id WalletID, delta decimal.Decimal) error

	// Transactions.
	InsertTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)

	// Recurrences.
	GetRecurrence(ctx context.Context, id RecurrenceID) (*Recurrence, error)
	InsertRecurrence(ctx context.Context, rec Recurrence) error
	UpdateRecurrence(ctx context.Context, rec Recurrence) error
	ListActiveRecurrences(ctx context.Context, owner OwnerID) ([]Recurrence, error)

	// Goals. SetGoalSaved overwrites AmountSaved; the Mutator is the only
	// caller and always pairs it with a committed wallet-side transaction.
	GetGoal(ctx context.Context, id GoalID) (*Goal, error)
	InsertGoal(ctx context.Context, g Goal) error
	SetGoalSaved(ctx context.Context, id GoalID, saved decimal.Decimal) error
	ListGoals(ctx context.Context, owner OwnerID) ([]Goal, error)
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	OwnerID         OwnerID
	WalletID        WalletID // matches wallet_id, origin, or destination
	RecurrenceID    RecurrenceID
	GoalID          GoalID
	TransferGroupID string
	Types           []TransactionType
	From            *Date
	To              *Date
}

// Matches reports whether tx passes the filter. Store implementations may
// use it directly or push the predicates into SQL.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.OwnerID != "" && tx.OwnerID != f.OwnerID {
		return false
	}
	if f.WalletID != "" &&
		tx.WalletID != f.WalletID &&
		tx.OriginWalletID != f.WalletID &&
		tx.DestinationWalletID != f.WalletID {
		return false
	}
	if f.RecurrenceID != "" && tx.RecurrenceID != f.RecurrenceID {
		return false
	}
	if f.GoalID != "" && tx.GoalID != f.GoalID {
		return false
	}
	if f.TransferGroupID != "" && tx.TransferGroupID != f.TransferGroupID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if tx.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// CATEGORY ACCESS - Trivial collaborator, not core
// =============================================================================

// CategoryAccessCheck answers whether a category may be used by an owner.
// A category is accessible when it is global or owned by the caller.
type CategoryAccessCheck interface {
	IsAccessible(ctx context.Context, id CategoryID, owner OwnerID) (bool, error)
}
