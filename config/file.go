package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Engine names accepted in the configuration.
const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"
)

// Config is the complete configuration of the lending tools.
type Config struct {
	Postgres      PostgresConfig
	Lending       LendingConfig
	Observability ObservabilityConfig
	Simulation    SimulationConfig
}

// PostgresConfig selects and addresses the database.
type PostgresConfig struct {
	Engine     string
	Adapter    AdapterType
	DSN        string
	ReplicaDSN string
}

// LendingConfig holds the lifecycle manager settings.
type LendingConfig struct {
	LoanPeriodDays int
	RetryAttempts  int
}

// ObservabilityConfig holds the OpenTelemetry exporter settings.
type ObservabilityConfig struct {
	Enabled        bool
	ServiceName    string
	TraceEndpoint  string
	MetricEndpoint string
}

// SimulationConfig holds the simulator workload.
type SimulationConfig struct {
	Books            int
	Borrowers        int
	Workers          int
	Days             int
	BorrowsPerDay    int
	ReturnPercentage int
	Seed             uint64
	StartDate        string
}

type fileConfig struct {
	Postgres struct {
		Engine     string `toml:"engine"`
		Adapter    string `toml:"adapter"`
		DSN        string `toml:"dsn"`
		ReplicaDSN string `toml:"replica_dsn"`
	} `toml:"postgres"`
	Lending struct {
		LoanPeriodDays int `toml:"loan_period_days"`
		RetryAttempts  int `toml:"retry_attempts"`
	} `toml:"lending"`
	Observability struct {
		Enabled        bool   `toml:"enabled"`
		ServiceName    string `toml:"service_name"`
		TraceEndpoint  string `toml:"trace_endpoint"`
		MetricEndpoint string `toml:"metric_endpoint"`
	} `toml:"observability"`
	Simulation struct {
		Books            int    `toml:"books"`
		Borrowers        int    `toml:"borrowers"`
		Workers          int    `toml:"workers"`
		Days             int    `toml:"days"`
		BorrowsPerDay    int    `toml:"borrows_per_day"`
		ReturnPercentage int    `toml:"return_percentage"`
		Seed             uint64 `toml:"seed"`
		StartDate        string `toml:"start_date"`
	} `toml:"simulation"`
}

// Default returns the built-in configuration: memory engine, 14 day loans, a small simulation.
func Default() Config {
	return Config{
		Postgres: PostgresConfig{
			Engine:  EngineMemory,
			Adapter: AdapterPGXPool,
			DSN:     defaultPostgresDSN,
		},
		Lending: LendingConfig{
			LoanPeriodDays: 14,
			RetryAttempts:  6,
		},
		Observability: ObservabilityConfig{
			ServiceName:    "library-lending",
			TraceEndpoint:  "localhost:4317",
			MetricEndpoint: "localhost:4317",
		},
		Simulation: SimulationConfig{
			Books:            25,
			Borrowers:        40,
			Workers:          8,
			Days:             60,
			BorrowsPerDay:    20,
			ReturnPercentage: 15,
			Seed:             1,
			StartDate:        "2025-01-06",
		},
	}
}

// FromEnv returns base with the environment overrides applied.
func FromEnv(base Config) (Config, error) {
	cfg := base

	if dsn := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); dsn != "" {
		cfg.Postgres.DSN = dsn
	}

	if dsn := PostgresReplicaDSN(); dsn != "" {
		cfg.Postgres.ReplicaDSN = dsn
	}

	if adapter := strings.TrimSpace(os.Getenv(EnvAdapterType)); adapter != "" {
		parsed, err := ParseAdapterType(adapter)
		if err != nil {
			return Config{}, err
		}

		cfg.Postgres.Adapter = parsed
	}

	return cfg, nil
}

// LoadFile reads a TOML file and applies every key it defines on top of base.
func LoadFile(path string, base Config) (Config, error) {
	cfg := base

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("postgres", "engine") {
		cfg.Postgres.Engine = strings.ToLower(strings.TrimSpace(raw.Postgres.Engine))
	}

	if meta.IsDefined("postgres", "adapter") {
		adapter, adapterErr := ParseAdapterType(raw.Postgres.Adapter)
		if adapterErr != nil {
			return Config{}, fmt.Errorf("parse postgres.adapter: %w", adapterErr)
		}
		cfg.Postgres.Adapter = adapter
	}

	if meta.IsDefined("postgres", "dsn") {
		cfg.Postgres.DSN = strings.TrimSpace(raw.Postgres.DSN)
	}

	if meta.IsDefined("postgres", "replica_dsn") {
		cfg.Postgres.ReplicaDSN = strings.TrimSpace(raw.Postgres.ReplicaDSN)
	}

	if meta.IsDefined("lending", "loan_period_days") {
		cfg.Lending.LoanPeriodDays = raw.Lending.LoanPeriodDays
	}

	if meta.IsDefined("lending", "retry_attempts") {
		cfg.Lending.RetryAttempts = raw.Lending.RetryAttempts
	}

	if meta.IsDefined("observability", "enabled") {
		cfg.Observability.Enabled = raw.Observability.Enabled
	}

	if meta.IsDefined("observability", "service_name") {
		cfg.Observability.ServiceName = strings.TrimSpace(raw.Observability.ServiceName)
	}

	if meta.IsDefined("observability", "trace_endpoint") {
		cfg.Observability.TraceEndpoint = strings.TrimSpace(raw.Observability.TraceEndpoint)
	}

	if meta.IsDefined("observability", "metric_endpoint") {
		cfg.Observability.MetricEndpoint = strings.TrimSpace(raw.Observability.MetricEndpoint)
	}

	applySimulation(meta, raw, &cfg.Simulation)

	return cfg, cfg.Validate()
}

func applySimulation(meta toml.MetaData, raw fileConfig, sim *SimulationConfig) {
	if meta.IsDefined("simulation", "books") {
		sim.Books = raw.Simulation.Books
	}

	if meta.IsDefined("simulation", "borrowers") {
		sim.Borrowers = raw.Simulation.Borrowers
	}

	if meta.IsDefined("simulation", "workers") {
		sim.Workers = raw.Simulation.Workers
	}

	if meta.IsDefined("simulation", "days") {
		sim.Days = raw.Simulation.Days
	}

	if meta.IsDefined("simulation", "borrows_per_day") {
		sim.BorrowsPerDay = raw.Simulation.BorrowsPerDay
	}

	if meta.IsDefined("simulation", "return_percentage") {
		sim.ReturnPercentage = raw.Simulation.ReturnPercentage
	}

	if meta.IsDefined("simulation", "seed") {
		sim.Seed = raw.Simulation.Seed
	}

	if meta.IsDefined("simulation", "start_date") {
		sim.StartDate = strings.TrimSpace(raw.Simulation.StartDate)
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Postgres.Engine {
	case EngineMemory, EnginePostgres:
	default:
		return fmt.Errorf("unsupported engine: %q", c.Postgres.Engine)
	}

	if c.Lending.LoanPeriodDays < 1 {
		return fmt.Errorf("lending.loan_period_days must be positive, got %d", c.Lending.LoanPeriodDays)
	}

	if c.Lending.RetryAttempts < 1 {
		return fmt.Errorf("lending.retry_attempts must be positive, got %d", c.Lending.RetryAttempts)
	}

	if c.Simulation.Books < 0 || c.Simulation.Borrowers < 0 || c.Simulation.Workers < 1 || c.Simulation.Days < 0 {
		return fmt.Errorf("invalid simulation sizes: %+v", c.Simulation)
	}

	if c.Simulation.ReturnPercentage < 0 || c.Simulation.ReturnPercentage > 100 {
		return fmt.Errorf("simulation.return_percentage must be within 0..100, got %d", c.Simulation.ReturnPercentage)
	}

	return nil
}
