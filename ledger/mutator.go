/*
mutator.go - The ledger mutation protocol

PURPOSE:
  The Mutator is the ONLY component that writes transactions and adjusts
  wallet balances. Every call site - direct entry creation, transfers,
  goal top-ups, recurrence materialization, receipt batch import - goes
  through Execute/Update/Delete so the protocol is applied uniformly.

THE PROTOCOL (per mutation):
  1. Validate inputs (amount, ownership, category). No writes yet.
  2. Convert currency if the two sides differ. Failure aborts before
     any write - no partial state.
  3. Insert the transaction row(s) first, so the audit trail exists
     even if a later step fails.
  4. Apply balance adjustment(s) via Store.AdjustBalance in a fixed
     order: for transfers, origin first (debit), then destination.
  5. On any failure, compensate every already-applied step in reverse
     order (see saga.go).

UPDATE / DELETE:
  An amount update applies a signed AdjustBalance equal to the delta with
  the same directional rules as creation. A delete applies the exact
  inverse of the original creation deltas, then removes the row(s).

BALANCE PRE-CHECKS:
  Transfers and goal top-ups pre-check the origin balance and reject with
  InsufficientBalanceError. Plain income/expense do not block on balance.
  The pre-check is advisory under concurrency: it reads a snapshot, and a
  concurrent debit can still win the race. Per-wallet consistency is
  guaranteed by the atomic AdjustBalance primitive, not by this check.

SEE ALSO:
  - intent.go: The closed intent union
  - saga.go: LIFO compensation engine
  - recurrence/materialize.go: Scheduled call site
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/currency"
)

// =============================================================================
// MUTATOR
// =============================================================================

// Mutator applies mutation intents against the store, keeping the
// transaction log and wallet balances consistent via compensation.
type Mutator struct {
	store      Store
	gateway    currency.Gateway
	categories CategoryAccessCheck
	log        zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewMutator(store Store, gateway currency.Gateway, categories CategoryAccessCheck, log zerolog.Logger) *Mutator {
	return &Mutator{
		store:      store,
		gateway:    gateway,
		categories: categories,
		log:        log.With().Str("component", "mutator").Logger(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// MutationResult holds the transaction rows a mutation committed.
// A transfer commits two legs; everything else commits one row.
type MutationResult struct {
	Transactions []Transaction
}

// Primary returns the first committed row (the transfer_out leg for transfers).
func (r *MutationResult) Primary() Transaction {
	return r.Transactions[0]
}

// Execute applies an intent. On success the returned result holds every
// committed row; on failure no trace of the intent remains in the store.
func (m *Mutator) Execute(ctx context.Context, intent Intent) (*MutationResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	switch it := intent.(type) {
	case SimpleEntry:
		return m.executeSimple(ctx, it)
	case Transfer:
		return m.executeTransfer(ctx, it)
	case GoalTopUp:
		return m.executeTopUp(ctx, it)
	default:
		return nil, fmt.Errorf("unknown intent type %T", intent)
	}
}

// =============================================================================
// SIMPLE ENTRY
// =============================================================================

func (m *Mutator) executeSimple(ctx context.Context, e SimpleEntry) (*MutationResult, error) {
	if _, err := m.ownedWallet(ctx, e.WalletID, e.OwnerID); err != nil {
		return nil, err
	}
	if err := m.checkCategory(ctx, e.CategoryID, e.OwnerID); err != nil {
		return nil, err
	}

	tx := Transaction{
		ID:           TransactionID(m.newID()),
		OwnerID:      e.OwnerID,
		WalletID:     e.WalletID,
		Type:         e.Type,
		Amount:       e.Amount,
		Date:         m.dateOrToday(e.Date),
		Description:  e.Description,
		CategoryID:   e.CategoryID,
		RecurrenceID: e.RecurrenceID,
		CreatedAt:    m.now().UTC(),
	}
	delta := e.BalanceDelta()

	saga := NewSaga(m.log)
	saga.Step("insert-transaction",
		func(ctx context.Context) error { return m.store.InsertTransaction(ctx, tx) },
		func(ctx context.Context) error { return m.store.DeleteTransaction(ctx, tx.ID) },
	)
	saga.Step("adjust-balance",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, e.WalletID, delta) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, e.WalletID, delta.Neg()) },
	)
	if err := saga.Run(ctx); err != nil {
		return nil, err
	}

	m.log.Debug().
		Str("tx_id", string(tx.ID)).
		Str("wallet_id", string(e.WalletID)).
		Str("type", string(e.Type)).
		Str("amount", e.Amount.String()).
		Msg("entry committed")

	return &MutationResult{Transactions: []Transaction{tx}}, nil
}

// =============================================================================
// TRANSFER
// =============================================================================

func (m *Mutator) executeTransfer(ctx context.Context, t Transfer) (*MutationResult, error) {
	origin, err := m.ownedWallet(ctx, t.OriginWalletID, t.OwnerID)
	if err != nil {
		return nil, err
	}
	dest, err := m.ownedWallet(ctx, t.DestinationWalletID, t.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := m.checkCategory(ctx, t.CategoryID, t.OwnerID); err != nil {
		return nil, err
	}

	if origin.CurrentBalance().LessThan(t.Amount) {
		return nil, &InsufficientBalanceError{
			WalletID:  origin.ID,
			Available: origin.CurrentBalance(),
			Requested: t.Amount,
		}
	}

	// Resolve the destination-side amount before any write; a conversion
	// failure must leave no partial state.
	credited := t.Amount
	var audit *ConversionAudit
	if origin.Currency != dest.Currency {
		conv, err := m.gateway.Convert(ctx, t.Amount, origin.Currency, dest.Currency)
		if err != nil {
			return nil, &ConversionError{From: origin.Currency, To: dest.Currency, Cause: err}
		}
		credited = conv.ConvertedAmount
		audit = &ConversionAudit{
			Rate:                conv.Rate,
			OriginalAmount:      t.Amount,
			OriginalCurrency:    origin.Currency,
			ConvertedAmount:     credited,
			DestinationCurrency: dest.Currency,
		}
	}

	group := m.newID()
	date := m.dateOrToday(t.Date)
	now := m.now().UTC()

	outTx := Transaction{
		ID:                  TransactionID(m.newID()),
		OwnerID:             t.OwnerID,
		OriginWalletID:      origin.ID,
		DestinationWalletID: dest.ID,
		TransferGroupID:     group,
		Type:                TxTransferOut,
		Amount:              t.Amount.Neg(), // signed to reflect direction
		Date:                date,
		Description:         t.Description,
		CategoryID:          t.CategoryID,
		RecurrenceID:        t.RecurrenceID,
		Conversion:          audit,
		CreatedAt:           now,
	}
	inTx := Transaction{
		ID:                  TransactionID(m.newID()),
		OwnerID:             t.OwnerID,
		OriginWalletID:      origin.ID,
		DestinationWalletID: dest.ID,
		TransferGroupID:     group,
		Type:                TxTransferIn,
		Amount:              credited,
		Date:                date,
		Description:         t.Description,
		CategoryID:          t.CategoryID,
		RecurrenceID:        t.RecurrenceID,
		Conversion:          audit,
		CreatedAt:           now,
	}

	saga := NewSaga(m.log)
	saga.Step("insert-out-leg",
		func(ctx context.Context) error { return m.store.InsertTransaction(ctx, outTx) },
		func(ctx context.Context) error { return m.store.DeleteTransaction(ctx, outTx.ID) },
	)
	saga.Step("insert-in-leg",
		func(ctx context.Context) error { return m.store.InsertTransaction(ctx, inTx) },
		func(ctx context.Context) error { return m.store.DeleteTransaction(ctx, inTx.ID) },
	)
	saga.Step("debit-origin",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, origin.ID, t.Amount.Neg()) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, origin.ID, t.Amount) },
	)
	saga.Step("credit-destination",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, dest.ID, credited) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, dest.ID, credited.Neg()) },
	)
	if err := saga.Run(ctx); err != nil {
		return nil, err
	}

	m.log.Debug().
		Str("group", group).
		Str("origin", string(origin.ID)).
		Str("destination", string(dest.ID)).
		Str("debited", t.Amount.String()).
		Str("credited", credited.String()).
		Msg("transfer committed")

	return &MutationResult{Transactions: []Transaction{outTx, inTx}}, nil
}

// =============================================================================
// GOAL TOP-UP
// =============================================================================

func (m *Mutator) executeTopUp(ctx context.Context, g GoalTopUp) (*MutationResult, error) {
	goal, err := m.store.GetGoal(ctx, g.GoalID)
	if err != nil {
		return nil, err
	}
	if goal.OwnerID != g.OwnerID {
		return nil, ErrGoalNotOwned
	}
	wallet, err := m.ownedWallet(ctx, g.WalletID, g.OwnerID)
	if err != nil {
		return nil, err
	}

	remaining := goal.Remaining()
	if remaining.IsZero() {
		return nil, ErrGoalReached
	}

	// Clamp so AmountSaved never exceeds AmountGoal.
	saved := g.DeltaAmount
	if saved.GreaterThan(remaining) {
		saved = remaining
	}
	newSaved := goal.AmountSaved.Add(saved)
	oldSaved := goal.AmountSaved

	// Wallet is deducted in its own currency.
	deducted := saved
	var audit *ConversionAudit
	if goal.Currency != wallet.Currency {
		conv, err := m.gateway.Convert(ctx, saved, goal.Currency, wallet.Currency)
		if err != nil {
			return nil, &ConversionError{From: goal.Currency, To: wallet.Currency, Cause: err}
		}
		deducted = conv.ConvertedAmount
		audit = &ConversionAudit{
			Rate:                conv.Rate,
			OriginalAmount:      saved,
			OriginalCurrency:    goal.Currency,
			ConvertedAmount:     deducted,
			DestinationCurrency: wallet.Currency,
		}
	}

	if wallet.CurrentBalance().LessThan(deducted) {
		return nil, &InsufficientBalanceError{
			WalletID:  wallet.ID,
			Available: wallet.CurrentBalance(),
			Requested: deducted,
		}
	}

	tx := Transaction{
		ID:          TransactionID(m.newID()),
		OwnerID:     g.OwnerID,
		WalletID:    wallet.ID,
		Type:        TxExpense,
		Amount:      deducted,
		Date:        m.dateOrToday(g.Date),
		Description: g.Description,
		GoalID:      goal.ID,
		Conversion:  audit,
		CreatedAt:   m.now().UTC(),
	}

	saga := NewSaga(m.log)
	saga.Step("advance-goal",
		func(ctx context.Context) error { return m.store.SetGoalSaved(ctx, goal.ID, newSaved) },
		func(ctx context.Context) error { return m.store.SetGoalSaved(ctx, goal.ID, oldSaved) },
	)
	saga.Step("insert-transaction",
		func(ctx context.Context) error { return m.store.InsertTransaction(ctx, tx) },
		func(ctx context.Context) error { return m.store.DeleteTransaction(ctx, tx.ID) },
	)
	saga.Step("deduct-wallet",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, wallet.ID, deducted.Neg()) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, wallet.ID, deducted) },
	)
	if err := saga.Run(ctx); err != nil {
		return nil, err
	}

	m.log.Debug().
		Str("goal_id", string(goal.ID)).
		Str("wallet_id", string(wallet.ID)).
		Str("saved", saved.String()).
		Str("deducted", deducted.String()).
		Msg("goal top-up committed")

	return &MutationResult{Transactions: []Transaction{tx}}, nil
}

// =============================================================================
// UPDATE - Delta re-application
// =============================================================================

// Change describes an update to an existing transaction. Nil fields are
// left untouched. Amount is the new positive magnitude.
type Change struct {
	Amount      *decimal.Decimal
	Date        *Date
	Description *string
	CategoryID  *CategoryID
}

// Update edits a transaction. When the amount changes, the balance delta
// (new - old) is re-applied with the same directional rules as creation:
// income +delta, expense -delta, transfer legs -delta origin / +delta
// destination.
func (m *Mutator) Update(ctx context.Context, id TransactionID, owner OwnerID, change Change) (*Transaction, error) {
	tx, err := m.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.OwnerID != owner {
		return nil, ErrTransactionNotFound
	}
	if change.CategoryID != nil {
		if err := m.checkCategory(ctx, *change.CategoryID, owner); err != nil {
			return nil, err
		}
	}

	if change.Amount != nil {
		if !change.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		if tx.GoalID != "" {
			return nil, fmt.Errorf("goal top-up amounts cannot be edited, delete and re-create: %w", ErrInvalidAmount)
		}
		switch tx.Type {
		case TxTransferIn, TxTransferOut:
			return m.updateTransferAmount(ctx, *tx, change)
		}
	}

	old := *tx
	updated := applyChange(*tx, change)

	if change.Amount == nil || updated.Amount.Equal(old.Amount) {
		// Non-balance-affecting edit: single row write, nothing to compensate.
		if err := m.store.UpdateTransaction(ctx, updated); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	delta := updated.Amount.Sub(old.Amount)
	if tx.Type == TxExpense {
		delta = delta.Neg()
	}

	saga := NewSaga(m.log)
	saga.Step("update-transaction",
		func(ctx context.Context) error { return m.store.UpdateTransaction(ctx, updated) },
		func(ctx context.Context) error { return m.store.UpdateTransaction(ctx, old) },
	)
	saga.Step("adjust-balance",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, tx.WalletID, delta) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, tx.WalletID, delta.Neg()) },
	)
	if err := saga.Run(ctx); err != nil {
		return nil, err
	}
	return &updated, nil
}

// updateTransferAmount edits both legs of a transfer. The destination-side
// delta is derived from the stored exchange rate, so no gateway call is
// needed and the audit trail stays consistent with the original conversion.
func (m *Mutator) updateTransferAmount(ctx context.Context, leg Transaction, change Change) (*Transaction, error) {
	legs, err := m.store.ListTransactions(ctx, TransactionFilter{TransferGroupID: leg.TransferGroupID})
	if err != nil {
		return nil, err
	}
	var outOld, inOld *Transaction
	for i := range legs {
		switch legs[i].Type {
		case TxTransferOut:
			outOld = &legs[i]
		case TxTransferIn:
			inOld = &legs[i]
		}
	}
	if outOld == nil || inOld == nil {
		return nil, fmt.Errorf("transfer group %s incomplete: %w", leg.TransferGroupID, ErrTransactionNotFound)
	}

	rate := decimal.NewFromInt(1)
	if leg.Conversion != nil {
		rate = leg.Conversion.Rate
	}

	newMagnitude := *change.Amount
	oldMagnitude := outOld.Amount.Neg() // out leg stores a negative amount
	delta := newMagnitude.Sub(oldMagnitude)
	creditedDelta := delta.Mul(rate)

	outNew := applyChange(*outOld, change)
	outNew.Amount = newMagnitude.Neg()
	inNew := applyChange(*inOld, change)
	inNew.Amount = inOld.Amount.Add(creditedDelta)
	if outNew.Conversion != nil {
		audit := *outNew.Conversion
		audit.OriginalAmount = newMagnitude
		audit.ConvertedAmount = inNew.Amount
		outNew.Conversion = &audit
		inNew.Conversion = &audit
	}

	outSnapshot, inSnapshot := *outOld, *inOld
	saga := NewSaga(m.log)
	saga.Step("update-out-leg",
		func(ctx context.Context) error { return m.store.UpdateTransaction(ctx, outNew) },
		func(ctx context.Context) error { return m.store.UpdateTransaction(ctx, outSnapshot) },
	)
	saga.Step("update-in-leg",
		func(ctx context.Context) error { return m.store.UpdateTransaction(ctx, inNew) },
		func(ctx context.Context) error { return m.store.UpdateTransaction(ctx, inSnapshot) },
	)
	saga.Step("adjust-origin",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, leg.OriginWalletID, delta.Neg()) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, leg.OriginWalletID, delta) },
	)
	saga.Step("adjust-destination",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, leg.DestinationWalletID, creditedDelta) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, leg.DestinationWalletID, creditedDelta.Neg()) },
	)
	if err := saga.Run(ctx); err != nil {
		return nil, err
	}

	if leg.Type == TxTransferIn {
		return &inNew, nil
	}
	return &outNew, nil
}

// =============================================================================
// DELETE - Exact inverse of creation
// =============================================================================

// Delete removes a transaction, first applying the exact inverse of its
// creation deltas. Deleting either leg of a transfer removes both legs.
// Deleting a goal top-up also rolls back the goal's saved amount.
func (m *Mutator) Delete(ctx context.Context, id TransactionID, owner OwnerID) error {
	tx, err := m.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if tx.OwnerID != owner {
		return ErrTransactionNotFound
	}

	switch tx.Type {
	case TxTransferIn, TxTransferOut:
		return m.deleteTransfer(ctx, *tx)
	}

	delta := tx.Amount // inverse of the original effect
	if tx.Type == TxIncome {
		delta = tx.Amount.Neg()
	}

	snapshot := *tx
	saga := NewSaga(m.log)

	if tx.GoalID != "" {
		goal, err := m.store.GetGoal(ctx, tx.GoalID)
		if err != nil {
			return err
		}
		savedDelta := tx.Amount
		if tx.Conversion != nil {
			savedDelta = tx.Conversion.OriginalAmount
		}
		oldSaved := goal.AmountSaved
		newSaved := oldSaved.Sub(savedDelta)
		if newSaved.IsNegative() {
			newSaved = decimal.Zero
		}
		saga.Step("rollback-goal",
			func(ctx context.Context) error { return m.store.SetGoalSaved(ctx, tx.GoalID, newSaved) },
			func(ctx context.Context) error { return m.store.SetGoalSaved(ctx, tx.GoalID, oldSaved) },
		)
	}

	saga.Step("reverse-balance",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, tx.WalletID, delta) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, tx.WalletID, delta.Neg()) },
	)
	saga.Step("delete-transaction",
		func(ctx context.Context) error { return m.store.DeleteTransaction(ctx, tx.ID) },
		func(ctx context.Context) error { return m.store.InsertTransaction(ctx, snapshot) },
	)
	return saga.Run(ctx)
}

func (m *Mutator) deleteTransfer(ctx context.Context, leg Transaction) error {
	legs, err := m.store.ListTransactions(ctx, TransactionFilter{TransferGroupID: leg.TransferGroupID})
	if err != nil {
		return err
	}
	var out, in *Transaction
	for i := range legs {
		switch legs[i].Type {
		case TxTransferOut:
			out = &legs[i]
		case TxTransferIn:
			in = &legs[i]
		}
	}
	if out == nil || in == nil {
		return fmt.Errorf("transfer group %s incomplete: %w", leg.TransferGroupID, ErrTransactionNotFound)
	}

	debited := out.Amount.Neg() // stored negative
	credited := in.Amount
	outSnapshot, inSnapshot := *out, *in

	saga := NewSaga(m.log)
	saga.Step("refund-origin",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, out.OriginWalletID, debited) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, out.OriginWalletID, debited.Neg()) },
	)
	saga.Step("reclaim-destination",
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, out.DestinationWalletID, credited.Neg()) },
		func(ctx context.Context) error { return m.store.AdjustBalance(ctx, out.DestinationWalletID, credited) },
	)
	saga.Step("delete-out-leg",
		func(ctx context.Context) error { return m.store.DeleteTransaction(ctx, out.ID) },
		func(ctx context.Context) error { return m.store.InsertTransaction(ctx, outSnapshot) },
	)
	saga.Step("delete-in-leg",
		func(ctx context.Context) error { return m.store.DeleteTransaction(ctx, in.ID) },
		func(ctx context.Context) error { return m.store.InsertTransaction(ctx, inSnapshot) },
	)
	return saga.Run(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Mutator) ownedWallet(ctx context.Context, id WalletID, owner OwnerID) (*Wallet, error) {
	w, err := m.store.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != owner {
		return nil, ErrWalletNotOwned
	}
	if !w.IsActive {
		return nil, ErrWalletInactive
	}
	return w, nil
}

func (m *Mutator) checkCategory(ctx context.Context, id CategoryID, owner OwnerID) error {
	if id == "" || m.categories == nil {
		return nil
	}
	ok, err := m.categories.IsAccessible(ctx, id, owner)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryInvalid
	}
	return nil
}

func (m *Mutator) dateOrToday(d Date) Date {
	if d.IsZero() {
		return DateOf(m.now().UTC())
	}
	return d
}

func applyChange(tx Transaction, change Change) Transaction {
	if change.Amount != nil {
		tx.Amount = *change.Amount
	}
	if change.Date != nil {
		tx.Date = *change.Date
	}
	if change.Description != nil {
		tx.Description = *change.Description
	}
	if change.CategoryID != nil {
		tx.CategoryID = *change.CategoryID
	}
	return tx
}
