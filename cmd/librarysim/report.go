package main

import (
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-lending-go/config"
	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lifecycle"
)

// Report is the JSON summary printed after a run.
type Report struct {
	Engine         string           `json:"engine"`
	Adapter        string           `json:"adapter,omitempty"`
	StartDate      lending.Date     `json:"start_date"`
	EndDate        lending.Date     `json:"end_date"`
	Days           int              `json:"days"`
	Books          int              `json:"books"`
	Borrowers      int              `json:"borrowers"`
	Workers        int              `json:"workers"`
	LoanPeriodDays int              `json:"loan_period_days"`
	Borrows        BorrowSummary    `json:"borrows"`
	Returns        ReturnSummary    `json:"returns"`
	MarkedOverdue  int64            `json:"marked_overdue"`
	Retries        int64            `json:"retries"`
	LoansByStatus  map[string]int   `json:"loans_by_status"`
	Invariant      InvariantSummary `json:"invariant"`
	ElapsedMS      int64            `json:"elapsed_ms"`
}

type BorrowSummary struct {
	Attempted   int64 `json:"attempted"`
	Succeeded   int64 `json:"succeeded"`
	Unavailable int64 `json:"unavailable"`
}

type ReturnSummary struct {
	OnTime int64 `json:"on_time"`
	Late   int64 `json:"late"`
}

type InvariantSummary struct {
	Holds       bool                           `json:"holds"`
	Books       int                            `json:"books"`
	ActiveLoans int                            `json:"active_loans"`
	Violations  []lifecycle.InvariantViolation `json:"violations"`
}

func (s *Simulation) report(invariant lifecycle.InvariantReport, loans lending.LoanRecords, elapsed time.Duration) Report {
	byStatus := make(map[string]int)
	for _, loan := range loans {
		byStatus[loan.Status.String()]++
	}

	adapter := ""
	if s.cfg.Postgres.Engine == config.EnginePostgres {
		adapter = string(s.cfg.Postgres.Adapter)
	}

	return Report{
		Engine:         s.cfg.Postgres.Engine,
		Adapter:        adapter,
		StartDate:      s.start,
		EndDate:        s.start.AddDays(max(s.cfg.Simulation.Days-1, 0)),
		Days:           s.cfg.Simulation.Days,
		Books:          len(s.books),
		Borrowers:      len(s.borrowers),
		Workers:        s.cfg.Simulation.Workers,
		LoanPeriodDays: s.manager.LoanPeriodDays(),
		Borrows: BorrowSummary{
			Attempted:   s.counters.borrowAttempts.Load(),
			Succeeded:   s.counters.borrowed.Load(),
			Unavailable: s.counters.unavailable.Load(),
		},
		Returns: ReturnSummary{
			OnTime: s.counters.returnedOnTime.Load(),
			Late:   s.counters.returnedLate.Load(),
		},
		MarkedOverdue: s.counters.markedOverdue.Load(),
		Retries:       s.counters.retries.Load(),
		LoansByStatus: byStatus,
		Invariant: InvariantSummary{
			Holds:       invariant.Holds(),
			Books:       invariant.Books,
			ActiveLoans: invariant.ActiveLoans,
			Violations:  invariant.Violations,
		},
		ElapsedMS: elapsed.Milliseconds(),
	}
}

func writeReport(w io.Writer, report Report) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	_, err = w.Write(append(data, '\n'))

	return err
}
