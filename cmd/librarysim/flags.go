package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/AntonStoeckl/library-lending-go/config"
)

// cliOptions holds the parsed command line. Only explicitly set flags override the configuration.
type cliOptions struct {
	configPath    string
	verbose       bool
	set           map[string]bool
	engine        string
	adapter       string
	books         int
	borrowers     int
	workers       int
	days          int
	borrowsPerDay int
	returnPct     int
	loanPeriod    int
	seed          uint64
	startDate     string
	observability bool
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions

	fs := flag.NewFlagSet("librarysim", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to a TOML configuration file")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log engine and lifecycle operations to stderr")
	fs.StringVar(&opts.engine, "engine", config.EngineMemory, "Storage engine: memory or postgres (postgres tables are truncated)")
	fs.StringVar(&opts.adapter, "adapter", string(config.AdapterPGXPool), "Postgres adapter: pgx.pool, sql.db or sqlx.db")
	fs.IntVar(&opts.books, "books", 0, "Number of catalog entries")
	fs.IntVar(&opts.borrowers, "borrowers", 0, "Number of borrowers")
	fs.IntVar(&opts.workers, "workers", 0, "Number of concurrent workers")
	fs.IntVar(&opts.days, "days", 0, "Number of simulated days")
	fs.IntVar(&opts.borrowsPerDay, "borrows-per-day", 0, "Borrow attempts per day")
	fs.IntVar(&opts.returnPct, "return-percentage", 0, "Chance in percent that an active loan is returned on a given day")
	fs.IntVar(&opts.loanPeriod, "loan-period", 0, "Loan period in days")
	fs.Uint64Var(&opts.seed, "seed", 0, "Random seed")
	fs.StringVar(&opts.startDate, "start-date", "", "First simulated day, YYYY-MM-DD")
	fs.BoolVar(&opts.observability, "observability-enabled", false, "Export traces and metrics via OTLP gRPC")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})

	return opts, nil
}

// resolve layers the configuration: defaults, then the TOML file, then the environment, then flags.
func (o cliOptions) resolve() (config.Config, error) {
	cfg := config.Default()

	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath, cfg)
		if err != nil {
			return config.Config{}, err
		}

		cfg = loaded
	}

	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return config.Config{}, err
	}

	if o.set["engine"] {
		cfg.Postgres.Engine = strings.ToLower(strings.TrimSpace(o.engine))
	}

	if o.set["adapter"] {
		adapter, parseErr := config.ParseAdapterType(o.adapter)
		if parseErr != nil {
			return config.Config{}, parseErr
		}

		cfg.Postgres.Adapter = adapter
	}

	o.override("books", &cfg.Simulation.Books, o.books)
	o.override("borrowers", &cfg.Simulation.Borrowers, o.borrowers)
	o.override("workers", &cfg.Simulation.Workers, o.workers)
	o.override("days", &cfg.Simulation.Days, o.days)
	o.override("borrows-per-day", &cfg.Simulation.BorrowsPerDay, o.borrowsPerDay)
	o.override("return-percentage", &cfg.Simulation.ReturnPercentage, o.returnPct)
	o.override("loan-period", &cfg.Lending.LoanPeriodDays, o.loanPeriod)

	if o.set["seed"] {
		cfg.Simulation.Seed = o.seed
	}

	if o.set["start-date"] {
		cfg.Simulation.StartDate = o.startDate
	}

	if o.set["observability-enabled"] {
		cfg.Observability.Enabled = o.observability
	}

	return cfg, cfg.Validate()
}

func (o cliOptions) override(name string, target *int, value int) {
	if o.set[name] {
		*target = value
	}
}
