/*
scheduler.go - Background recurrence runner

PURPOSE:
  Periodically materializes due occurrences for every active recurrence,
  so scheduled income/expenses/transfers land without anyone opening the
  app. Manual processing via POST /api/recurrences/{id}/process does the
  same work on demand.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Processes each active recurrence independently; one failure never
    blocks the rest
  - Idempotent by construction: the materializer skips dates that already
    have a generated transaction, so overlapping runs are harmless

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecurrenceScheduler(store, materializer, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - recurrence/materialize.go: The idempotent materialization itself
  - handlers.go: ProcessRecurrence endpoint (manual trigger)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/recurrence"
)

// RecurrenceScheduler materializes due recurrences on a timer.
type RecurrenceScheduler struct {
	Store         ledger.Store
	Materializer  *recurrence.Materializer
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRecurrenceScheduler creates a new scheduler.
func NewRecurrenceScheduler(store ledger.Store, materializer *recurrence.Materializer, log zerolog.Logger) *RecurrenceScheduler {
	return &RecurrenceScheduler{
		Store:         store,
		Materializer:  materializer,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log.With().Str("component", "scheduler").Logger(),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RecurrenceScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.log.Info().Msg("scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.log.Info().Dur("interval", rs.CheckInterval).Msg("scheduler started")
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (rs *RecurrenceScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.log.Info().Msg("scheduler stopped")
	}
}

func (rs *RecurrenceScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecurrenceScheduler) checkAndProcess() {
	ctx := context.Background()
	today := ledger.Today()

	// Empty owner means all owners.
	recs, err := rs.Store.ListActiveRecurrences(ctx, "")
	if err != nil {
		rs.log.Error().Err(err).Msg("failed to list recurrences")
		return
	}

	created, skipped, failed := 0, 0, 0
	for _, rec := range recs {
		report, err := rs.Materializer.ProcessDue(ctx, rec, today)
		if err != nil {
			rs.log.Error().Err(err).
				Str("recurrence_id", string(rec.ID)).
				Msg("failed to process recurrence")
			failed++
			continue
		}
		created += len(report.Created)
		skipped += len(report.Skipped)
		failed += len(report.Errors)
	}

	if created > 0 || failed > 0 {
		rs.log.Info().
			Int("recurrences", len(recs)).
			Int("created", created).
			Int("skipped", skipped).
			Int("failed", failed).
			Msg("scheduler run completed")
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RecurrenceScheduler) RunNow() {
	rs.checkAndProcess()
}
