/*
Package ledger provides the core personal-finance ledger engine.

PURPOSE:
  This package contains the data model and mutation logic for wallets,
  transactions, recurrences, and savings goals. Every balance change flows
  through the Mutator, which keeps the transaction log and wallet balances
  consistent even though the storage layer offers no multi-row atomicity.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An amount with a currency code (e.g., 40 EUR)
  - Date: A day-granularity point in time (used for occurrence math)
  - Wallet: A balance container, mutated only via Store.AdjustBalance
  - Transaction: A committed ledger entry (income, expense, transfer leg)
  - Recurrence: A template that materializes transactions on a schedule
  - Goal: A savings target funded by top-up transactions

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing wallet/goal IDs
  3. Explicitness: No ambient state; every operation takes explicit IDs
  4. Auditability: Currency conversions leave a full audit trail

USAGE:
  amount := ledger.NewMoney(40, "EUR")
  intent := ledger.Transfer{
      OwnerID:             "user-1",
      OriginWalletID:      "w1",
      DestinationWalletID: "w2",
      Amount:              amount.Amount,
  }

SEE ALSO:
  - mutator.go: The mutation protocol (saga with compensation)
  - store.go: Persistence collaborator interface
  - errors.go: Sentinel and structured errors
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Amount with currency
// =============================================================================

type Money struct {
	Amount   decimal.Decimal
	Currency string // ISO 4217 code, e.g. "EUR"
}

func NewMoney(value float64, currency string) Money {
	return Money{Amount: decimal.NewFromFloat(value), Currency: currency}
}

func NewMoneyFromDecimal(value decimal.Decimal, currency string) Money {
	return Money{Amount: value, Currency: currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (m Money) Add(d decimal.Decimal) Money  { return Money{Amount: m.Amount.Add(d), Currency: m.Currency} }
func (m Money) Sub(d decimal.Decimal) Money  { return Money{Amount: m.Amount.Sub(d), Currency: m.Currency} }
func (m Money) Neg() Money                   { return Money{Amount: m.Amount.Neg(), Currency: m.Currency} }
func (m Money) IsZero() bool                 { return m.Amount.IsZero() }
func (m Money) IsNegative() bool             { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool             { return m.Amount.IsPositive() }
func (m Money) LessThan(d decimal.Decimal) bool { return m.Amount.LessThan(d) }

func (m Money) String() string { return m.Amount.String() + " " + m.Currency }

// =============================================================================
// DATE - Day-granularity point in time (UTC)
// =============================================================================

// Date is a calendar day. All occurrence math and transaction dates use
// day granularity; intra-day ordering is irrelevant to balance consistency.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OwnerID string
type WalletID string
type TransactionID string
type RecurrenceID string
type GoalID string
type CategoryID string

// =============================================================================
// WALLET - Balance container
// =============================================================================

// Wallet holds a balance in a single currency.
//
// INVARIANT: Balance is only ever mutated through Store.AdjustBalance.
// Business logic never read-modify-writes it; that is what makes concurrent
// mutations on the same wallet safe without cross-call locking.
//
// Balance is nullable: a wallet that has never been adjusted falls back to
// InitialBalance. Use CurrentBalance() rather than reading Balance directly.
type Wallet struct {
	ID             WalletID
	OwnerID        OwnerID
	Name           string
	Currency       string // ISO 4217
	Balance        *decimal.Decimal
	InitialBalance decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
}

// CurrentBalance returns the effective balance, falling back to the initial
// balance when no adjustment has ever been recorded.
func (w Wallet) CurrentBalance() decimal.Decimal {
	if w.Balance != nil {
		return *w.Balance
	}
	return w.InitialBalance
}

// =============================================================================
// TRANSACTION - Committed ledger entry
// =============================================================================

type TransactionType string

const (
	TxIncome      TransactionType = "income"
	TxExpense     TransactionType = "expense"
	TxTransfer    TransactionType = "transfer" // intent/template kind; stored rows use the leg types
	TxTransferIn  TransactionType = "transfer_in"
	TxTransferOut TransactionType = "transfer_out"
)

// ConversionAudit records a currency conversion applied to a transaction.
// Nil on the Transaction unless a conversion actually occurred.
type ConversionAudit struct {
	Rate                decimal.Decimal
	OriginalAmount      decimal.Decimal
	OriginalCurrency    string
	ConvertedAmount     decimal.Decimal
	DestinationCurrency string
}

// Transaction is a committed ledger entry.
//
// Sign convention: income/expense/transfer_in rows store a positive
// magnitude; transfer_out rows store a negative amount to reflect direction.
// Balance-affecting fields (Amount, Type, wallet references) are immutable
// except through Mutator.Update, which re-applies the balance delta.
type Transaction struct {
	ID      TransactionID
	OwnerID OwnerID

	// WalletID is set for income/expense/goal top-up rows.
	// Origin/Destination are set on both legs of a transfer.
	WalletID            WalletID
	OriginWalletID      WalletID
	DestinationWalletID WalletID

	// TransferGroupID links the two legs of one transfer.
	TransferGroupID string

	Type        TransactionType
	Amount      decimal.Decimal
	Date        Date
	Description string

	CategoryID   CategoryID   // empty = uncategorized
	RecurrenceID RecurrenceID // back-reference to the generating recurrence
	GoalID       GoalID       // set on goal top-up rows

	Conversion *ConversionAudit

	CreatedAt time.Time
}

// =============================================================================
// RECURRENCE - Transaction template with a schedule
// =============================================================================

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Recurrence is a template that materializes one transaction per occurrence.
// It owns its generated transactions via RecurrenceID but never touches
// wallet balance directly; each materialized transaction does, through the
// normal Mutator path.
//
// State machine: Active <-> Inactive (toggle). Materialization only runs
// for Active; both states permit historical queries.
type Recurrence struct {
	ID       RecurrenceID
	OwnerID  OwnerID
	WalletID WalletID

	// DestinationWalletID is set when Type is transfer.
	DestinationWalletID WalletID

	Type        TransactionType // income | expense | transfer
	Amount      decimal.Decimal
	Frequency   Frequency
	StartDate   Date
	EndDate     *Date // nil = open-ended
	CategoryID  CategoryID
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

// =============================================================================
// GOAL - Savings target
// =============================================================================

// Goal tracks progress toward a savings target. AmountSaved is only
// adjustable through a top-up that has a corresponding committed
// wallet-deducting transaction, clamped so AmountSaved <= AmountGoal.
type Goal struct {
	ID          GoalID
	OwnerID     OwnerID
	Name        string
	AmountGoal  decimal.Decimal
	AmountSaved decimal.Decimal
	Currency    string
	CreatedAt   time.Time
}

// Remaining returns how much is still needed to reach the target.
func (g Goal) Remaining() decimal.Decimal {
	r := g.AmountGoal.Sub(g.AmountSaved)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// =============================================================================
// CATEGORY
// =============================================================================

// Category labels transactions. OwnerID is empty for global categories.
type Category struct {
	ID      CategoryID
	OwnerID OwnerID
	Name    string
}
