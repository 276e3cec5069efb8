// Package job wraps one dealership's processing run: pull candidates,
// consult the decision engine, and commit the resulting history entries.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lotsign/vinflow/internal/common"
	"github.com/lotsign/vinflow/internal/decision"
	"github.com/lotsign/vinflow/internal/export"
	"github.com/lotsign/vinflow/internal/model"
	"github.com/lotsign/vinflow/internal/service"
)

// State tracks a job's lifecycle. failed is reachable from any
// non-terminal state.
type State string

// Job states.
const (
	StateCreated    State = "created"
	StateFiltering  State = "filtering"
	StateDeciding   State = "deciding"
	StateReporting  State = "reporting"
	StateCommitting State = "committing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Result is what a job run reports. Counts are always populated, even on
// partial failure, so "nothing new today" and "the pipeline is broken" look
// different to an operator.
type Result struct {
	AsOf            time.Time
	SkippedByRule   map[decision.Rule]int
	ProcessedByRule map[decision.Rule]int
	ID              string
	Dealership      string
	State           State
	ToProcess       []export.Item
	Candidates      int
	Processed       int
	Skipped         int
	DryRun          bool
}

// Orchestrator runs dealership jobs over the storage and export boundary.
type Orchestrator struct {
	storage service.Storage
	sink    export.Sink
	dealers map[string]*model.DealershipConfig

	// commitLocks serializes the history-commit step per dealership so a
	// live job's latest-entry lookup never races another in-flight commit
	// for the same dealership. Dry runs never take these.
	mu          sync.Mutex
	commitLocks map[string]*sync.Mutex
}

// NewOrchestrator creates an orchestrator over the given storage, export
// sink, and dealership config set.
func NewOrchestrator(storage service.Storage, sink export.Sink, dealers map[string]*model.DealershipConfig) *Orchestrator {
	return &Orchestrator{
		storage:     storage,
		sink:        sink,
		dealers:     dealers,
		commitLocks: make(map[string]*sync.Mutex),
	}
}

// RunJob executes one dealership run as of the given date. With dryRun set
// it computes and reports decisions but never writes history or emits to the
// export boundary, so repeated dry runs are side-effect-free.
func (o *Orchestrator) RunJob(ctx context.Context, dealership string, asOf time.Time, dryRun bool) (*Result, error) {
	asOf = dateOf(asOf)
	result := &Result{
		ID:              uuid.NewString(),
		Dealership:      dealership,
		AsOf:            asOf,
		DryRun:          dryRun,
		State:           StateCreated,
		SkippedByRule:   make(map[decision.Rule]int),
		ProcessedByRule: make(map[decision.Rule]int),
	}

	// Config problems fail fast, before any storage access.
	cfg, ok := o.dealers[dealership]
	if !ok {
		result.State = StateFailed
		return result, fmt.Errorf("%w: %s", common.ErrConfigNotFound, dealership)
	}
	if !cfg.Active {
		result.State = StateFailed
		return result, fmt.Errorf("%w: %s", common.ErrDealerInactive, dealership)
	}

	slog.Info("Starting job",
		"job_id", result.ID,
		"dealership", dealership,
		"as_of", asOf.Format("2006-01-02"),
		"dry_run", dryRun)

	result.State = StateFiltering
	candidates, err := o.storage.GetActiveInventory(ctx, dealership, filterFromConfig(cfg))
	if err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("failed to load inventory: %w", err)
	}
	result.Candidates = len(candidates)

	if len(candidates) == 0 {
		result.State = StateCompleted
		slog.Info("No candidates for job", "job_id", result.ID, "dealership", dealership)
		return result, nil
	}

	vins := make([]string, len(candidates))
	for i, rec := range candidates {
		vins[i] = rec.VIN
	}

	histories, err := o.storage.GetHistoryForVINs(ctx, vins)
	if err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("failed to load history: %w", err)
	}

	result.State = StateDeciding
	var entries []model.HistoryEntry
	for i := range candidates {
		rec := &candidates[i]
		candidateType := rec.Condition.VehicleType()

		d, decideErr := decision.Decide(rec.VIN, dealership, candidateType, histories[rec.VIN], asOf)
		if decideErr != nil {
			// Ledger integrity violations are fatal, not correctable.
			result.State = StateFailed
			return result, fmt.Errorf("decision failed for VIN %s: %w", rec.VIN, decideErr)
		}

		if d.Verdict == decision.VerdictSkip {
			result.Skipped++
			result.SkippedByRule[d.Rule]++
			continue
		}

		result.Processed++
		result.ProcessedByRule[d.Rule]++
		result.ToProcess = append(result.ToProcess, export.NewItem(rec, cfg.QRPathTemplate))
		entries = append(entries, model.HistoryEntry{
			Dealership: dealership,
			VIN:        rec.VIN,
			Type:       candidateType,
			OrderDate:  asOf,
		})
	}

	if dryRun {
		result.State = StateReporting
		o.logResult(result)
		result.State = StateCompleted
		return result, nil
	}

	if len(entries) > 0 {
		result.State = StateCommitting
		if err := o.commitHistory(ctx, dealership, entries); err != nil {
			result.State = StateFailed
			return result, err
		}
	}

	if len(result.ToProcess) > 0 {
		if err := o.sink.Emit(ctx, dealership, result.ToProcess); err != nil {
			// History is already committed; the collaborator can re-pull the
			// processed set, so an emit failure fails the job without rollback.
			result.State = StateFailed
			return result, fmt.Errorf("failed to emit processed set: %w", err)
		}
	}

	o.logResult(result)
	result.State = StateCompleted
	return result, nil
}

// commitHistory writes the job's history entries in one transaction under
// the dealership's commit lock: either all entries commit or none do.
func (o *Orchestrator) commitHistory(ctx context.Context, dealership string, entries []model.HistoryEntry) error {
	lock := o.lockFor(dealership)
	lock.Lock()
	defer lock.Unlock()

	tx, err := o.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrCommitFailed, err)
	}

	if err := tx.SaveHistoryEntries(ctx, entries); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %v", common.ErrCommitFailed, err)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %v", common.ErrCommitFailed, err)
	}

	return nil
}

func (o *Orchestrator) lockFor(dealership string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.commitLocks[dealership]
	if !ok {
		lock = &sync.Mutex{}
		o.commitLocks[dealership] = lock
	}
	return lock
}

func (o *Orchestrator) logResult(result *Result) {
	slog.Info("Job decisions complete",
		"job_id", result.ID,
		"dealership", result.Dealership,
		"dry_run", result.DryRun,
		"candidates", result.Candidates,
		"processed", result.Processed,
		"skipped", result.Skipped)
}

// filterFromConfig translates the dealership document into a storage filter.
func filterFromConfig(cfg *model.DealershipConfig) service.InventoryFilter {
	return service.InventoryFilter{
		ExcludeConditions: cfg.ExcludedConditions,
		MinPrice:          cfg.MinPrice,
		MinYear:           cfg.MinYear,
		RequireStock:      cfg.RequireStock,
	}
}

// dateOf truncates a timestamp to its UTC calendar date. Order dates and the
// reference date compare as whole days.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
