/*
saga.go - Ordered forward steps with LIFO compensation

PURPOSE:
  The storage layer offers no multi-statement atomicity, so every mutation
  that touches more than one row is modeled as an explicit saga: a list of
  {run, compensate} pairs executed in order, with compensations replayed in
  reverse when a forward step fails.

CRITICAL INVARIANTS:
  1. ORDERED:   Forward steps run strictly in the order they were added.
  2. LIFO UNDO: On failure, compensations for already-completed steps run
     in reverse order.
  3. NOT CANCELLABLE: Compensation ignores caller cancellation. If the
     caller's context dies after a row was inserted, the orphan must still
     be deleted.

FAILURE OF COMPENSATION ITSELF:
  If an undo fails, the ledger is genuinely inconsistent: a row or balance
  delta exists without its counterpart. That is surfaced as a
  LedgerInconsistentError and logged at error level with everything an
  operator needs to reconcile by hand. It is never silently dropped.

CONCURRENT READERS:
  A reader can observe the intermediate state between forward steps (e.g.
  a transfer's origin debited but destination not yet credited). This is an
  accepted tradeoff; each individual AdjustBalance is atomic and
  compensation restores the invariant.

EXAMPLE:
  s := ledger.NewSaga(log)
  s.Step("insert-row", insert, deleteRow)
  s.Step("debit-origin", debit, credit)
  if err := s.Run(ctx); err != nil { ... }

SEE ALSO:
  - mutator.go: Builds sagas for each intent type
  - errors.go: LedgerInconsistentError
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// =============================================================================
// SAGA
// =============================================================================

// SagaStep is one forward action paired with its compensation.
// Compensate may be nil when the action has nothing to undo.
type SagaStep struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga executes steps in order and compensates completed steps in reverse
// on failure. A fresh Saga is built per mutation; it is not reusable.
type Saga struct {
	steps []SagaStep
	log   zerolog.Logger
}

func NewSaga(log zerolog.Logger) *Saga {
	return &Saga{log: log}
}

// Step appends a forward action with its compensation.
func (s *Saga) Step(name string, run, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, SagaStep{Name: name, Run: run, Compensate: compensate})
}

// Run executes all steps in order. On the first failure it compensates every
// already-completed step in reverse order and returns the original error.
// If compensation itself fails, it returns a LedgerInconsistentError instead.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			return s.compensate(ctx, i, err)
		}
	}
	return nil
}

// compensate undoes steps [0, failedIdx) in reverse order. Compensation must
// complete even when the caller's context is already cancelled.
func (s *Saga) compensate(ctx context.Context, failedIdx int, cause error) error {
	undoCtx := context.WithoutCancel(ctx)

	s.log.Warn().
		Str("failed_step", s.steps[failedIdx].Name).
		Err(cause).
		Int("steps_to_undo", failedIdx).
		Msg("mutation step failed, compensating")

	for i := failedIdx - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if undoErr := step.Compensate(undoCtx); undoErr != nil {
			inconsistent := &LedgerInconsistentError{
				Step:       s.steps[failedIdx].Name,
				FailedUndo: step.Name,
				Cause:      cause,
				UndoCause:  undoErr,
			}
			s.log.Error().
				Str("failed_step", s.steps[failedIdx].Name).
				Str("failed_undo", step.Name).
				AnErr("cause", cause).
				AnErr("undo_cause", undoErr).
				Msg("COMPENSATION FAILED - manual reconciliation required")
			return inconsistent
		}
	}
	return fmt.Errorf("%s: %w", s.steps[failedIdx].Name, cause)
}
