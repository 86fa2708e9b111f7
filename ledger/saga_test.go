package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-ledger/ledger"
)

// =============================================================================
// ORDERING
// =============================================================================

func TestSaga_AllStepsSucceed_RunInOrder(t *testing.T) {
	var order []string
	s := ledger.NewSaga(zerolog.Nop())
	for _, name := range []string{"a", "b", "c"} {
		name := name
		s.Step(name,
			func(context.Context) error { order = append(order, name); return nil },
			func(context.Context) error { order = append(order, "undo-"+name); return nil },
		)
	}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, order, "no compensation on success")
}

func TestSaga_MiddleStepFails_CompensatesInReverse(t *testing.T) {
	// GIVEN: Steps a, b, c where c fails
	// WHEN: Running the saga
	// THEN: b then a are compensated, in that order

	var order []string
	boom := errors.New("c failed")

	s := ledger.NewSaga(zerolog.Nop())
	s.Step("a",
		func(context.Context) error { order = append(order, "a"); return nil },
		func(context.Context) error { order = append(order, "undo-a"); return nil },
	)
	s.Step("b",
		func(context.Context) error { order = append(order, "b"); return nil },
		func(context.Context) error { order = append(order, "undo-b"); return nil },
	)
	s.Step("c",
		func(context.Context) error { return boom },
		func(context.Context) error { order = append(order, "undo-c"); return nil },
	)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b", "undo-b", "undo-a"}, order,
		"compensation runs LIFO and never undoes the failed step itself")
}

func TestSaga_NilCompensation_Skipped(t *testing.T) {
	var order []string
	boom := errors.New("fail")

	s := ledger.NewSaga(zerolog.Nop())
	s.Step("a",
		func(context.Context) error { order = append(order, "a"); return nil },
		nil,
	)
	s.Step("b",
		func(context.Context) error { return boom },
		nil,
	)

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, order)
}

// =============================================================================
// COMPENSATION FAILURE
// =============================================================================

func TestSaga_CompensationFails_ReturnsInconsistency(t *testing.T) {
	cause := errors.New("forward failed")
	undoCause := errors.New("undo failed")

	s := ledger.NewSaga(zerolog.Nop())
	s.Step("write",
		func(context.Context) error { return nil },
		func(context.Context) error { return undoCause },
	)
	s.Step("apply",
		func(context.Context) error { return cause },
		nil,
	)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrLedgerInconsistent)

	var inconsistent *ledger.LedgerInconsistentError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, "apply", inconsistent.Step)
	assert.Equal(t, "write", inconsistent.FailedUndo)
	assert.Equal(t, cause, inconsistent.Cause)
	assert.Equal(t, undoCause, inconsistent.UndoCause)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestSaga_CancelledCaller_CompensationStillRuns(t *testing.T) {
	// GIVEN: The caller's context is cancelled after the first step
	// WHEN: The second step fails (it observes the cancellation)
	// THEN: Compensation still runs with a live context

	ctx, cancel := context.WithCancel(context.Background())

	compensated := false
	var undoCtxErr error

	s := ledger.NewSaga(zerolog.Nop())
	s.Step("write",
		func(context.Context) error { cancel(); return nil },
		func(undoCtx context.Context) error {
			compensated = true
			undoCtxErr = undoCtx.Err()
			return nil
		},
	)
	s.Step("apply",
		func(ctx context.Context) error { return ctx.Err() },
		nil,
	)

	err := s.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, compensated, "compensation must run despite cancellation")
	assert.NoError(t, undoCtxErr, "compensation context must not inherit the cancellation")
}
