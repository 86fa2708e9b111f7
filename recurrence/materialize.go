/*
materialize.go - Turning due occurrences into committed transactions

PURPOSE:
  Orchestrates the pure schedule math against the store: find which
  occurrence dates are due (or were missed), check which already have a
  generated transaction, and feed each missing one into the ledger Mutator.

IDEMPOTENCY:
  At most one generated transaction exists per (recurrence, date). The
  check is a lookup of existing transactions by recurrence_id before
  creating anything, so running ProcessDue twice for the same "now" creates
  nothing the second time.

PARTIAL-FAILURE SEMANTICS:
  Batches are best-effort. A failed occurrence is recorded in the report
  and does not abort the remaining occurrences; the wallet and ledger stay
  untouched for that date (the Mutator compensates internally).

BOUNDED WORK:
  Each invocation caps the number of occurrences it will materialize
  (MaxPerRun) so a recurrence with a long-forgotten start date cannot run
  unbounded.

SEE ALSO:
  - schedule.go: Pure occurrence math
  - ledger/mutator.go: Where each occurrence is committed
*/
package recurrence

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/warp/finance-ledger/ledger"
)

// DefaultMaxPerRun caps occurrences materialized in one invocation.
// A daily recurrence neglected for a year stays within one run.
const DefaultMaxPerRun = 366

// =============================================================================
// MATERIALIZER
// =============================================================================

// Materializer creates the transactions a recurrence is due to generate.
type Materializer struct {
	store   ledger.Store
	mutator *ledger.Mutator
	log     zerolog.Logger

	// MaxPerRun bounds work per invocation. Zero means DefaultMaxPerRun.
	MaxPerRun int
}

func NewMaterializer(store ledger.Store, mutator *ledger.Mutator, log zerolog.Logger) *Materializer {
	return &Materializer{
		store:   store,
		mutator: mutator,
		log:     log.With().Str("component", "materializer").Logger(),
	}
}

// Report summarizes one materialization batch.
type Report struct {
	RecurrenceID ledger.RecurrenceID
	Created      []ledger.Transaction
	Skipped      []ledger.Date // already materialized
	Errors       []OccurrenceError
}

// OccurrenceError records a single occurrence that failed to materialize.
type OccurrenceError struct {
	Date ledger.Date
	Err  error
}

// Missing pairs a recurrence with the occurrence dates it has not yet
// materialized.
type Missing struct {
	Recurrence   ledger.Recurrence
	MissingDates []ledger.Date
}

// =============================================================================
// PROCESS DUE
// =============================================================================

// ProcessDue materializes every occurrence of rec from its start date up to
// today that does not already have a generated transaction. Individual
// failures are collected in the report; they do not abort the batch.
func (m *Materializer) ProcessDue(ctx context.Context, rec ledger.Recurrence, today ledger.Date) (*Report, error) {
	if !rec.IsActive {
		return nil, ledger.ErrRecurrenceInactive
	}

	due := OccurrencesBetween(rec, rec.StartDate, today)
	existing, err := m.materializedDates(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	var missing []ledger.Date
	report := &Report{RecurrenceID: rec.ID}
	for _, d := range due {
		if existing[d.String()] {
			report.Skipped = append(report.Skipped, d)
			continue
		}
		missing = append(missing, d)
	}

	m.materialize(ctx, rec, missing, report)

	m.log.Info().
		Str("recurrence_id", string(rec.ID)).
		Int("created", len(report.Created)).
		Int("skipped", len(report.Skipped)).
		Int("errors", len(report.Errors)).
		Msg("processed due occurrences")

	return report, nil
}

// =============================================================================
// GAP DETECTION / BACKFILL
// =============================================================================

// CheckMissing compares, for each of the owner's active recurrences, the
// expected occurrence set (start date through today) against the existing
// generated transactions, and reports the gaps (e.g. from a missed
// scheduled run). It creates nothing.
func (m *Materializer) CheckMissing(ctx context.Context, owner ledger.OwnerID, today ledger.Date) ([]Missing, error) {
	recs, err := m.store.ListActiveRecurrences(ctx, owner)
	if err != nil {
		return nil, err
	}

	var result []Missing
	for _, rec := range recs {
		expected := OccurrencesBetween(rec, rec.StartDate, today)
		existing, err := m.materializedDates(ctx, rec.ID)
		if err != nil {
			return nil, err
		}

		var gaps []ledger.Date
		for _, d := range expected {
			if !existing[d.String()] {
				gaps = append(gaps, d)
			}
		}
		if len(gaps) > 0 {
			result = append(result, Missing{Recurrence: rec, MissingDates: gaps})
		}
	}
	return result, nil
}

// GenerateMissing materializes exactly the requested dates, each
// independently. Dates already materialized are reported as skipped, so a
// retried backfill cannot double-generate.
func (m *Materializer) GenerateMissing(ctx context.Context, rec ledger.Recurrence, dates []ledger.Date) (*Report, error) {
	if !rec.IsActive {
		return nil, ledger.ErrRecurrenceInactive
	}

	existing, err := m.materializedDates(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	var missing []ledger.Date
	report := &Report{RecurrenceID: rec.ID}
	for _, d := range dates {
		if existing[d.String()] {
			report.Skipped = append(report.Skipped, d)
			continue
		}
		missing = append(missing, d)
	}

	m.materialize(ctx, rec, missing, report)
	return report, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *Materializer) materialize(ctx context.Context, rec ledger.Recurrence, dates []ledger.Date, report *Report) {
	limit := m.MaxPerRun
	if limit <= 0 {
		limit = DefaultMaxPerRun
	}
	if len(dates) > limit {
		m.log.Warn().
			Str("recurrence_id", string(rec.ID)).
			Int("due", len(dates)).
			Int("cap", limit).
			Msg("occurrence backlog exceeds per-run cap, truncating")
		dates = dates[:limit]
	}

	for _, d := range dates {
		result, err := m.mutator.Execute(ctx, intentFor(rec, d))
		if err != nil {
			report.Errors = append(report.Errors, OccurrenceError{Date: d, Err: err})
			m.log.Warn().
				Str("recurrence_id", string(rec.ID)).
				Str("date", d.String()).
				Err(err).
				Msg("occurrence failed to materialize")
			continue
		}
		report.Created = append(report.Created, result.Transactions...)
	}
}

// intentFor builds the mutation intent a recurrence template describes.
func intentFor(rec ledger.Recurrence, date ledger.Date) ledger.Intent {
	if rec.Type == ledger.TxTransfer {
		return ledger.Transfer{
			OwnerID:             rec.OwnerID,
			OriginWalletID:      rec.WalletID,
			DestinationWalletID: rec.DestinationWalletID,
			Amount:              rec.Amount,
			Date:                date,
			Description:         rec.Description,
			CategoryID:          rec.CategoryID,
			RecurrenceID:        rec.ID,
		}
	}
	return ledger.SimpleEntry{
		OwnerID:      rec.OwnerID,
		WalletID:     rec.WalletID,
		Type:         rec.Type,
		Amount:       rec.Amount,
		Date:         date,
		Description:  rec.Description,
		CategoryID:   rec.CategoryID,
		RecurrenceID: rec.ID,
	}
}

// materializedDates returns the set of dates (as strings) for which rec
// already has a generated transaction. Transfer legs come in pairs; the
// set collapses them to one entry per date.
func (m *Materializer) materializedDates(ctx context.Context, id ledger.RecurrenceID) (map[string]bool, error) {
	txs, err := m.store.ListTransactions(ctx, ledger.TransactionFilter{RecurrenceID: id})
	if err != nil {
		return nil, err
	}
	dates := make(map[string]bool, len(txs))
	for _, tx := range txs {
		dates[tx.Date.String()] = true
	}
	return dates, nil
}
