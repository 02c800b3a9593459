package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/library-lending-go/config"
	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lifecycle"
)

const metricBooksOnLoan = "librarysim_books_on_loan"

type taskKind int

const (
	taskBorrow taskKind = iota
	taskReturn
)

type task struct {
	kind       taskKind
	borrowerID uuid.UUID
	bookID     uuid.UUID
	loanID     uuid.UUID
}

type counters struct {
	borrowAttempts atomic.Int64
	borrowed       atomic.Int64
	unavailable    atomic.Int64
	returnedOnTime atomic.Int64
	returnedLate   atomic.Int64
	retries        atomic.Int64
	markedOverdue  atomic.Int64
}

// Simulation runs the day-by-day workload against one engine.
type Simulation struct {
	engine    lending.Engine
	manager   *lifecycle.Manager
	clock     *lending.FixedClock
	cfg       config.Config
	metrics   lending.MetricsCollector
	rng       *rand.Rand
	start     lending.Date
	books     []uuid.UUID
	borrowers []uuid.UUID
	counters  counters
}

// NewSimulation prepares a simulation. The clock starts at the configured start date.
func NewSimulation(engine lending.Engine, cfg config.Config, obs observers) (*Simulation, error) {
	start, err := lending.ParseDate(cfg.Simulation.StartDate)
	if err != nil {
		return nil, fmt.Errorf("simulation.start_date: %w", err)
	}

	clock := lending.NewFixedClock(start)

	manager, err := lifecycle.NewManager(engine, managerOptions(cfg, clock, obs)...)
	if err != nil {
		return nil, err
	}

	seed := cfg.Simulation.Seed

	return &Simulation{
		engine:  engine,
		manager: manager,
		clock:   clock,
		cfg:     cfg,
		metrics: obs.metrics,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // workload randomness
		start:   start,
	}, nil
}

// Run seeds the catalog, simulates the configured number of days and verifies the invariant.
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	began := time.Now()

	books, err := seedCatalog(ctx, s.engine.Catalog(), s.cfg.Simulation.Books)
	if err != nil {
		return Report{}, err
	}

	s.books = books
	s.borrowers = make([]uuid.UUID, s.cfg.Simulation.Borrowers)
	for i := range s.borrowers {
		s.borrowers[i] = uuid.New()
	}

	for day := 0; day < s.cfg.Simulation.Days; day++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		if err := s.runDay(ctx); err != nil {
			return Report{}, fmt.Errorf("day %s: %w", s.clock.Today(), err)
		}

		s.clock.Advance(1)
	}

	invariant, err := lifecycle.VerifyAvailability(ctx, s.engine)
	if err != nil {
		return Report{}, err
	}

	loans, err := s.manager.GetAll(ctx)
	if err != nil {
		return Report{}, err
	}

	return s.report(invariant, loans, time.Since(began)), nil
}

// runDay executes the day's borrows and returns concurrently, then sweeps.
func (s *Simulation) runDay(ctx context.Context) error {
	tasks, err := s.planDay(ctx)
	if err != nil {
		return err
	}

	queue := make(chan task)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)

		for _, t := range tasks {
			select {
			case queue <- t:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		return nil
	})

	for range s.cfg.Simulation.Workers {
		g.Go(func() error {
			for t := range queue {
				if err := s.execute(gctx, t); err != nil {
					return err
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	swept, err := s.manager.SweepOverdue(ctx)
	if err != nil {
		return err
	}

	s.counters.markedOverdue.Add(int64(len(swept.Marked)))

	active, err := s.activeLoans(ctx)
	if err != nil {
		return err
	}

	lending.RecordValue(ctx, s.metrics, metricBooksOnLoan, float64(len(active)), nil)

	log.Printf("%s: %d tasks, %d marked overdue, %d books on loan",
		s.clock.Today(), len(tasks), len(swept.Marked), len(active))

	return nil
}

// planDay draws the day's work on the calling goroutine so that the random stream stays reproducible.
func (s *Simulation) planDay(ctx context.Context) ([]task, error) {
	active, err := s.activeLoans(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]task, 0, len(active)+s.cfg.Simulation.BorrowsPerDay)

	for _, loan := range active {
		if s.rng.IntN(100) < s.cfg.Simulation.ReturnPercentage {
			tasks = append(tasks, task{kind: taskReturn, loanID: loan.ID})
		}
	}

	if len(s.books) > 0 && len(s.borrowers) > 0 {
		for range s.cfg.Simulation.BorrowsPerDay {
			tasks = append(tasks, task{
				kind:       taskBorrow,
				borrowerID: s.borrowers[s.rng.IntN(len(s.borrowers))],
				bookID:     s.books[s.rng.IntN(len(s.books))],
			})
		}
	}

	s.rng.Shuffle(len(tasks), func(i, j int) {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	})

	return tasks, nil
}

func (s *Simulation) execute(ctx context.Context, t task) error {
	switch t.kind {
	case taskBorrow:
		s.counters.borrowAttempts.Add(1)

		result, err := s.manager.Borrow(ctx, t.borrowerID, t.bookID)
		s.countRetries(result.RetryAttempts)

		switch {
		case err == nil:
			s.counters.borrowed.Add(1)
		case errors.Is(err, lending.ErrBookUnavailable):
			s.counters.unavailable.Add(1)
		default:
			return err
		}

	case taskReturn:
		result, err := s.manager.ReturnLoan(ctx, t.loanID)
		s.countRetries(result.RetryAttempts)

		if err != nil {
			return err
		}

		if result.Value.Status == lending.LoanStatusReturnedLate {
			s.counters.returnedLate.Add(1)
		} else {
			s.counters.returnedOnTime.Add(1)
		}
	}

	return nil
}

func (s *Simulation) countRetries(attempts int) {
	if attempts > 1 {
		s.counters.retries.Add(int64(attempts - 1))
	}
}

func (s *Simulation) activeLoans(ctx context.Context) (lending.LoanRecords, error) {
	loans, err := s.manager.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	active := make(lending.LoanRecords, 0, len(loans))
	for _, loan := range loans {
		if loan.Status.IsActive() {
			active = append(active, loan)
		}
	}

	return active, nil
}
