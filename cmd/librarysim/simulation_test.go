package main

import (
	"bytes"
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-go/config"
	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/memengine"
	. "github.com/AntonStoeckl/library-lending-go/testutil/helper"
)

func simulationConfig() config.Config {
	cfg := config.Default()
	cfg.Simulation.Books = 20
	cfg.Simulation.Borrowers = 10
	cfg.Simulation.Workers = 6
	cfg.Simulation.Days = 40
	cfg.Simulation.BorrowsPerDay = 15
	cfg.Simulation.ReturnPercentage = 10
	cfg.Lending.LoanPeriodDays = 7

	return cfg
}

func Test_Simulation_Run_KeepsTheAvailabilityInvariant(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := memengine.NewEngine()
	metrics := NewMetricsCollectorSpy()
	cfg := simulationConfig()

	sim, err := NewSimulation(engine, cfg, observers{metrics: metrics})
	require.NoError(t, err)

	// act
	report, err := sim.Run(ctx)

	// assert
	require.NoError(t, err)
	assert.True(t, report.Invariant.Holds)
	assert.Empty(t, report.Invariant.Violations)
	AssertAvailabilityInvariant(t, ctx, engine)

	assert.Equal(t, int64(cfg.Simulation.Days*cfg.Simulation.BorrowsPerDay), report.Borrows.Attempted)
	assert.Equal(t, report.Borrows.Attempted, report.Borrows.Succeeded+report.Borrows.Unavailable)
	assert.Positive(t, report.Borrows.Succeeded)
	assert.Positive(t, report.MarkedOverdue, "with a 7 day loan period and rare returns some loans must run late")

	total := 0
	for _, count := range report.LoansByStatus {
		total += count
	}
	assert.Equal(t, int(report.Borrows.Succeeded), total)
	assert.Equal(t, report.Returns.OnTime, int64(report.LoansByStatus[lending.LoanStatusReturned.String()]))
	assert.Equal(t, report.Returns.Late, int64(report.LoansByStatus[lending.LoanStatusReturnedLate.String()]))
	assert.Equal(t, report.Invariant.ActiveLoans,
		report.LoansByStatus[lending.LoanStatusBorrowed.String()]+report.LoansByStatus[lending.LoanStatusOverdue.String()])

	assert.Equal(t, cfg.Simulation.Days, metrics.Count(SpyValue, metricBooksOnLoan, nil))
	assert.Equal(t, lending.NewDate(2025, 1, 6).AddDays(cfg.Simulation.Days-1), report.EndDate)
}

func Test_Simulation_Run_WithEmptyCatalog(t *testing.T) {
	cfg := simulationConfig()
	cfg.Simulation.Books = 0
	cfg.Simulation.Days = 3

	sim, err := NewSimulation(memengine.NewEngine(), cfg, observers{})
	require.NoError(t, err)

	report, err := sim.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Invariant.Holds)
	assert.Zero(t, report.Borrows.Attempted)
}

func Test_Simulation_Run_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim, err := NewSimulation(memengine.NewEngine(), simulationConfig(), observers{})
	require.NoError(t, err)

	_, err = sim.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func Test_NewSimulation_ShouldFail_WithInvalidStartDate(t *testing.T) {
	cfg := simulationConfig()
	cfg.Simulation.StartDate = "06.01.2025"

	_, err := NewSimulation(memengine.NewEngine(), cfg, observers{})

	assert.Error(t, err)
}

func Test_writeReport(t *testing.T) {
	// arrange
	sim, err := NewSimulation(memengine.NewEngine(), simulationConfig(), observers{})
	require.NoError(t, err)
	report, err := sim.Run(context.Background())
	require.NoError(t, err)

	// act
	var buf bytes.Buffer
	err = writeReport(&buf, report)

	// assert
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "memory", decoded["engine"])
	assert.Equal(t, "2025-01-06", decoded["start_date"])
	assert.NotContains(t, decoded, "adapter")
	assert.Contains(t, decoded, "invariant")
	assert.Contains(t, decoded, "loans_by_status")
}

func Test_seedCatalog_NumbersRepeatedTitles(t *testing.T) {
	ctx := context.Background()
	engine := memengine.NewEngine()

	ids, err := seedCatalog(ctx, engine.Catalog(), len(sampleBooks)+2)
	require.NoError(t, err)

	assert.Len(t, ids, len(sampleBooks)+2)
	editions, err := engine.Catalog().Search(ctx, "(edition 2)")
	require.NoError(t, err)
	assert.Len(t, editions, 2)

	available, err := engine.Catalog().GetAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, available, len(sampleBooks)+2)
}
