// Package config provides configuration for the lending engine and its tools:
// DSNs and adapter selection from the environment, a TOML configuration file,
// connection factories for pgxpool, database/sql and sqlx, and OpenTelemetry provider setup.
package config
