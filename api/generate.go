/*
generate.go - Generation runs shared by the API, the scheduler and the CLI

PURPOSE:
  Wraps one engine call with its bookkeeping: the run record, the
  persistence of the produced rows and the log lines.

PERSISTENCE:
  Rows replace what was stored for the same contracts and dates. Contracts
  the engine skipped keep their previous rows. A canceled run stores
  nothing; its partial result is still returned to the caller.

RUN STATUSES:
  running    Recorded before the engine starts
  completed  Engine finished (per-contract errors are listed on the run)
  canceled   Context canceled mid-run
  failed     Input, capability or storage error
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/store/sqlite"
	"github.com/warp/workentry-engine/workentry"
)

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCanceled  = "canceled"
	RunFailed    = "failed"
)

var ErrUnknownContract = errors.New("unknown contract")

// Generator runs the engine against the SQLite host.
type Generator struct {
	Store   *sqlite.Store
	Options []workentry.Option
	Log     logrus.FieldLogger
}

func NewGenerator(store *sqlite.Store, log logrus.FieldLogger, opts ...workentry.Option) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{Store: store, Options: opts, Log: log}
}

// Contracts resolves contract ids. No ids means every contract running
// somewhere in [from, to].
func (g *Generator) Contracts(ctx context.Context, ids []workentry.ContractID, from, to generic.Date) ([]workentry.Contract, error) {
	if len(ids) == 0 {
		return g.Store.RunningContracts(ctx, from, to)
	}
	contracts := make([]workentry.Contract, 0, len(ids))
	for _, id := range ids {
		c, err := g.Store.GetContract(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("%s: %w", id, ErrUnknownContract)
		}
		contracts = append(contracts, *c)
	}
	return contracts, nil
}

// Run generates contracts over [from, to]. With persist, the run and its
// rows are stored. The run is returned even when err is not nil.
func (g *Generator) Run(ctx context.Context, trigger string, contracts []workentry.Contract, from, to generic.Date, persist bool) (*sqlite.GenerationRun, *workentry.Result, error) {
	run := &sqlite.GenerationRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		DateStart: from,
		DateStop:  to,
		Status:    RunRunning,
		Contracts: len(contracts),
		StartedAt: time.Now().UTC(),
	}
	log := g.Log.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"trigger":    trigger,
		"date_start": from.String(),
		"date_stop":  to.String(),
		"contracts":  len(contracts),
	})

	if persist {
		if err := g.Store.SaveGenerationRun(ctx, *run); err != nil {
			return run, nil, fmt.Errorf("failed to save run record: %w", err)
		}
	}

	res, err := workentry.New(g.Store, g.Options...).Generate(ctx, contracts, from, to)
	if err != nil {
		g.fail(ctx, run, err, persist)
		log.WithError(err).Error("Generation failed")
		return run, nil, err
	}

	run.Entries = len(res.Entries)
	run.Errors = res.Errors
	run.Canceled = res.Canceled
	run.Status = RunCompleted
	if res.Canceled {
		run.Status = RunCanceled
	}

	if persist && !res.Canceled {
		skipped := make(map[workentry.ContractID]bool, len(res.Errors))
		for _, ce := range res.Errors {
			skipped[ce.ContractID] = true
		}
		var ids []workentry.ContractID
		for _, c := range contracts {
			if !skipped[c.ID] {
				ids = append(ids, c.ID)
			}
		}
		if err := g.Store.SaveWorkEntries(ctx, run.ID, ids, from, to, res.Entries); err != nil {
			g.fail(ctx, run, err, persist)
			log.WithError(err).Error("Failed to store work entries")
			return run, res, err
		}
	}

	g.complete(ctx, run, persist)
	for _, ce := range res.Errors {
		log.WithField("contract_id", ce.ContractID).Warn(ce.Reason)
	}
	log.WithFields(logrus.Fields{
		"entries": run.Entries,
		"status":  run.Status,
		"persist": persist,
		"skipped": len(res.Errors),
	}).Info("Generation finished")
	return run, res, nil
}

func (g *Generator) fail(ctx context.Context, run *sqlite.GenerationRun, err error, persist bool) {
	run.Status = RunFailed
	run.Error = err.Error()
	g.complete(ctx, run, persist)
}

// complete stamps the run and stores it. The context may already be
// canceled at this point.
func (g *Generator) complete(ctx context.Context, run *sqlite.GenerationRun, persist bool) {
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if !persist {
		return
	}
	if err := g.Store.SaveGenerationRun(context.WithoutCancel(ctx), *run); err != nil {
		g.Log.WithError(err).WithField("run_id", run.ID).Error("Failed to update run record")
	}
}
