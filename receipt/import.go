/*
Package receipt imports OCR-derived receipt entries into the ledger.

PURPOSE:
  Receipt text extraction happens elsewhere (an OCR/AI service); this
  package is the import call site. It takes already-parsed entries and
  commits each one as an expense through the ledger Mutator, so batch
  import gets the exact same consistency protocol as manual entry.

PARTIAL-FAILURE SEMANTICS:
  A batch is best-effort: each entry is committed independently, failures
  are reported per item, and one bad line never blocks the rest of the
  receipt.

SEE ALSO:
  - ledger/mutator.go: The mutation protocol every entry goes through
*/
package receipt

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/ledger"
)

// Entry is one parsed line of a receipt, ready to import.
type Entry struct {
	WalletID   ledger.WalletID
	Date       ledger.Date
	Amount     decimal.Decimal
	Merchant   string
	CategoryID ledger.CategoryID
}

// ItemError records one entry that failed to import.
type ItemError struct {
	Index int
	Entry Entry
	Err   error
}

// BatchResult reports a completed import batch.
type BatchResult struct {
	Imported []ledger.Transaction
	Failed   []ItemError
}

// Importer commits parsed receipt entries through the Mutator.
type Importer struct {
	mutator *ledger.Mutator
	log     zerolog.Logger
}

func NewImporter(mutator *ledger.Mutator, log zerolog.Logger) *Importer {
	return &Importer{
		mutator: mutator,
		log:     log.With().Str("component", "receipt_importer").Logger(),
	}
}

// ImportBatch commits each entry as an expense for owner. Entries are
// independent: a failed entry is recorded and the batch continues.
func (i *Importer) ImportBatch(ctx context.Context, owner ledger.OwnerID, entries []Entry) *BatchResult {
	result := &BatchResult{}

	for idx, e := range entries {
		res, err := i.mutator.Execute(ctx, ledger.SimpleEntry{
			OwnerID:     owner,
			WalletID:    e.WalletID,
			Type:        ledger.TxExpense,
			Amount:      e.Amount,
			Date:        e.Date,
			Description: e.Merchant,
			CategoryID:  e.CategoryID,
		})
		if err != nil {
			result.Failed = append(result.Failed, ItemError{Index: idx, Entry: e, Err: err})
			i.log.Warn().
				Int("index", idx).
				Str("merchant", e.Merchant).
				Err(err).
				Msg("receipt entry failed to import")
			continue
		}
		result.Imported = append(result.Imported, res.Primary())
	}

	i.log.Info().
		Str("owner", string(owner)).
		Int("imported", len(result.Imported)).
		Int("failed", len(result.Failed)).
		Msg("receipt batch imported")

	return result
}
