/*
scheduler.go - Periodic work-entry generation

PURPOSE:
  Keeps the stored work entries of the current month up to date: every
  tick, the contracts running during the month are regenerated and
  stored, replacing the previous rows.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Each tick is a generation run with trigger "scheduler"
  - The month is the calendar month of the current UTC date

USAGE:
  scheduler := NewGenerationScheduler(generator)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - generate.go: Generator.Run
  - handlers.go: Generate endpoint (manual generation)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/store/sqlite"
)

// GenerationScheduler regenerates the current month periodically.
type GenerationScheduler struct {
	Generator     *Generator
	CheckInterval time.Duration
	Enabled       bool

	// now is replaced in tests.
	now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewGenerationScheduler(gen *Generator) *GenerationScheduler {
	return &GenerationScheduler{
		Generator:     gen,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           time.Now,
	}
}

// Start begins the scheduler.
func (gs *GenerationScheduler) Start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.Enabled {
		gs.Generator.Log.Info("Scheduler disabled, not starting")
		return
	}
	if gs.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	gs.cancel = cancel
	gs.stop = make(chan struct{})
	gs.ticker = time.NewTicker(gs.CheckInterval)
	gs.wg.Add(1)

	go gs.run(ctx)

	gs.Generator.Log.WithField("interval", gs.CheckInterval.String()).Info("Scheduler started")
}

// Stop stops the scheduler. A generation in progress is canceled.
func (gs *GenerationScheduler) Stop() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker == nil {
		return
	}
	gs.ticker.Stop()
	gs.cancel()
	close(gs.stop)
	gs.wg.Wait()
	gs.ticker = nil
	gs.Generator.Log.Info("Scheduler stopped")
}

func (gs *GenerationScheduler) run(ctx context.Context) {
	defer gs.wg.Done()

	gs.RunNow(ctx)
	for {
		select {
		case <-gs.ticker.C:
			gs.RunNow(ctx)
		case <-gs.stop:
			return
		}
	}
}

// RunNow generates the current month. It returns nil when no contract
// runs during the month.
func (gs *GenerationScheduler) RunNow(ctx context.Context) (*sqlite.GenerationRun, error) {
	from, to := monthOf(gs.now())
	log := gs.Generator.Log.WithField("month", from.String()[:7])

	contracts, err := gs.Generator.Store.RunningContracts(ctx, from, to)
	if err != nil {
		log.WithError(err).Error("Failed to list running contracts")
		return nil, err
	}
	if len(contracts) == 0 {
		log.Debug("No running contract")
		return nil, nil
	}

	run, _, err := gs.Generator.Run(ctx, "scheduler", contracts, from, to, true)
	return run, err
}

// NextRunTime returns when the next scheduled check will occur.
func (gs *GenerationScheduler) NextRunTime() time.Time {
	return gs.now().Add(gs.CheckInterval)
}

// monthOf returns the first and last day of t's month, in UTC.
func monthOf(t time.Time) (generic.Date, generic.Date) {
	t = t.UTC()
	first := generic.NewDate(t.Year(), t.Month(), 1)
	last := generic.LocalDate(time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC))
	return first, last
}
