package job

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotsign/vinflow/internal/common"
	"github.com/lotsign/vinflow/internal/decision"
	"github.com/lotsign/vinflow/internal/export"
	"github.com/lotsign/vinflow/internal/model"
	"github.com/lotsign/vinflow/internal/service"
	"github.com/lotsign/vinflow/internal/storage"
)

const (
	testDealer  = "Sunset Honda"
	otherDealer = "Downtown Toyota"
)

func setupStorage(t *testing.T) service.Storage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDealers() map[string]*model.DealershipConfig {
	return map[string]*model.DealershipConfig{
		testDealer: {
			Name:           testDealer,
			QRPathTemplate: "/qr/{dealer}/{vin}.png",
			Active:         true,
		},
		"Closed Motors": {
			Name:   "Closed Motors",
			Active: false,
		},
	}
}

func seedVehicle(t *testing.T, store service.Storage, vin string, cond model.Condition) {
	t.Helper()
	err := store.UpsertVehicle(context.Background(), &model.NormalizedRecord{
		VIN:        vin,
		Stock:      "S" + vin[len(vin)-4:],
		Condition:  cond,
		Year:       2022,
		Make:       "Honda",
		Model:      "Civic",
		Price:      21000,
		Dealership: testDealer,
		LastSeen:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		ScanCount:  1,
	})
	require.NoError(t, err)
}

// captureSink records emitted items for assertions.
type captureSink struct {
	calls int
	items []export.Item
}

func (s *captureSink) Emit(_ context.Context, _ string, items []export.Item) error {
	s.calls++
	s.items = append(s.items, items...)
	return nil
}

// failingSink always rejects the emitted batch.
type failingSink struct{}

func (failingSink) Emit(context.Context, string, []export.Item) error {
	return errors.New("export collaborator unreachable")
}

// brokenTxStorage wraps a real storage but refuses to open transactions.
type brokenTxStorage struct {
	service.Storage
}

func (brokenTxStorage) BeginTx(context.Context) (service.Transaction, error) {
	return nil, errors.New("database is locked")
}

func TestRunJobConfigErrors(t *testing.T) {
	store := setupStorage(t)
	o := NewOrchestrator(store, &captureSink{}, testDealers())
	ctx := context.Background()
	asOf := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	result, err := o.RunJob(ctx, "No Such Dealer", asOf, false)
	require.ErrorIs(t, err, common.ErrConfigNotFound)
	assert.Equal(t, StateFailed, result.State)

	result, err = o.RunJob(ctx, "Closed Motors", asOf, false)
	require.ErrorIs(t, err, common.ErrDealerInactive)
	assert.Equal(t, StateFailed, result.State)
}

func TestRunJobNoCandidates(t *testing.T) {
	store := setupStorage(t)
	sink := &captureSink{}
	o := NewOrchestrator(store, sink, testDealers())

	result, err := o.RunJob(context.Background(), testDealer,
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Zero(t, result.Candidates)
	assert.Zero(t, sink.calls)
}

func TestRunJobFirstSighting(t *testing.T) {
	store := setupStorage(t)
	sink := &captureSink{}
	o := NewOrchestrator(store, sink, testDealers())
	ctx := context.Background()
	asOf := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	seedVehicle(t, store, "1HGCM82633A004352", model.ConditionNew)
	seedVehicle(t, store, "5YJSA1DG9DFP14705", model.ConditionUsed)

	result, err := o.RunJob(ctx, testDealer, asOf, false)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 2, result.Processed)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, 2, result.ProcessedByRule[decision.RuleFirstSighting])
	assert.NotEmpty(t, result.ID)

	require.Len(t, sink.items, 2)
	assert.Equal(t, "/qr/Sunset Honda/1HGCM82633A004352.png", sink.items[0].ExpectedQRPath)

	// Each processed VIN got a ledger entry dated asOf.
	history, err := store.GetHistoryForVIN(ctx, "1HGCM82633A004352")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, testDealer, history[0].Dealership)
	assert.Equal(t, model.TypeNew, history[0].Type)
	assert.True(t, history[0].OrderDate.Equal(asOf))
}

func TestRunJobCooldownAfterLiveRun(t *testing.T) {
	store := setupStorage(t)
	sink := &captureSink{}
	o := NewOrchestrator(store, sink, testDealers())
	ctx := context.Background()

	seedVehicle(t, store, "1HGCM82633A004352", model.ConditionUsed)

	day0 := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	result, err := o.RunJob(ctx, testDealer, day0, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)

	// Same day again: suppressed.
	result, err = o.RunJob(ctx, testDealer, day0, false)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.Equal(t, 1, result.SkippedByRule[decision.RuleSameDaySuppression])

	// Three days later, same type: cooldown.
	result, err = o.RunJob(ctx, testDealer, day0.AddDate(0, 0, 3), false)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.Equal(t, 1, result.SkippedByRule[decision.RuleCooldown])

	// Eight days later: stale relist, processed again.
	result, err = o.RunJob(ctx, testDealer, day0.AddDate(0, 0, 8), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.ProcessedByRule[decision.RuleStaleRelist])
}

func TestRunJobCrossDealership(t *testing.T) {
	store := setupStorage(t)
	sink := &captureSink{}
	o := NewOrchestrator(store, sink, testDealers())
	ctx := context.Background()

	vin := "1HGCM82633A004352"
	seedVehicle(t, store, vin, model.ConditionUsed)
	// The VIN was processed at another dealership two days ago.
	require.NoError(t, store.SaveHistoryEntries(ctx, []model.HistoryEntry{
		{Dealership: otherDealer, VIN: vin, Type: model.TypeUsed,
			OrderDate: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},
	}))

	result, err := o.RunJob(ctx, testDealer,
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.ProcessedByRule[decision.RuleCrossDealership])
}

func TestRunJobDryRunIsPure(t *testing.T) {
	store := setupStorage(t)
	sink := &captureSink{}
	o := NewOrchestrator(store, sink, testDealers())
	ctx := context.Background()
	asOf := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	seedVehicle(t, store, "1HGCM82633A004352", model.ConditionNew)

	before, err := store.GetHistoryCount(ctx)
	require.NoError(t, err)

	// Repeated dry runs report the same decisions and write nothing.
	for i := 0; i < 3; i++ {
		result, runErr := o.RunJob(ctx, testDealer, asOf, true)
		require.NoError(t, runErr)
		assert.Equal(t, StateCompleted, result.State)
		assert.True(t, result.DryRun)
		assert.Equal(t, 1, result.Processed)
		assert.Len(t, result.ToProcess, 1)
	}

	after, err := store.GetHistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, sink.calls)
}

func TestRunJobCommitFailure(t *testing.T) {
	store := setupStorage(t)
	sink := &captureSink{}
	o := NewOrchestrator(brokenTxStorage{store}, sink, testDealers())
	ctx := context.Background()

	seedVehicle(t, store, "1HGCM82633A004352", model.ConditionNew)

	result, err := o.RunJob(ctx, testDealer,
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCommitFailed)
	assert.True(t, common.IsRetryable(err))
	assert.Equal(t, StateFailed, result.State)

	// Nothing reached the ledger or the sink.
	count, err := store.GetHistoryCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, sink.calls)
}

func TestRunJobEmitFailureAfterCommit(t *testing.T) {
	store := setupStorage(t)
	o := NewOrchestrator(store, failingSink{}, testDealers())
	ctx := context.Background()

	seedVehicle(t, store, "1HGCM82633A004352", model.ConditionNew)

	result, err := o.RunJob(ctx, testDealer,
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false)
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)

	// History stays committed; the emit step does not roll it back.
	count, err := store.GetHistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunJobTruncatesAsOf(t *testing.T) {
	store := setupStorage(t)
	o := NewOrchestrator(store, &captureSink{}, testDealers())
	ctx := context.Background()

	seedVehicle(t, store, "1HGCM82633A004352", model.ConditionNew)

	// A mid-day timestamp is truncated to its calendar date.
	result, err := o.RunJob(ctx, testDealer,
		time.Date(2024, 3, 10, 15, 42, 7, 0, time.UTC), false)
	require.NoError(t, err)
	assert.True(t, result.AsOf.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))

	history, err := store.GetHistoryForVIN(ctx, "1HGCM82633A004352")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].OrderDate.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}
