// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"code.cloudfoundry.org/lager/v3"
	"github.com/caarlos0/env/v11"

	"github.com/simaogato/auction-backend/internal/domain"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the server reads at start-up
type Config struct {
	SquadCap       int   `env:"SQUAD_CAP" envDefault:"8"`
	BasePriceFloor int64 `env:"BASE_PRICE_FLOOR" envDefault:"2000"`
	InitialPurse   int64 `env:"INITIAL_PURSE" envDefault:"50000"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	DBConnStr   string `env:"DB_CONN_STR"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName      string `env:"DB_NAME" envDefault:"auction"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"auction.db"`

	GRPCAddr    string   `env:"GRPC_ADDR" envDefault:":8080"`
	APIToken    string   `env:"API_TOKEN" envDefault:"dev-token"`
	SeedBidders []string `env:"SEED_BIDDERS" envDefault:"Team A,Team B,Team C,Team D" envSeparator:","`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures the configuration is usable
func (c Config) Validate() error {
	if err := c.Rules().Validate(); err != nil {
		return err
	}

	switch c.StoreDriver {
	case DriverMemory, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %s, %s or %s", DriverMemory, DriverPostgres, DriverSQLite)
	}
	if c.StoreDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return errors.New("SQLITE_PATH is required for the sqlite driver")
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return errors.New("API_TOKEN cannot be empty")
	}
	if _, err := c.LagerLevel(); err != nil {
		return err
	}
	return nil
}

// Rules returns the auction rules
func (c Config) Rules() domain.Rules {
	return domain.Rules{
		SquadCap:       c.SquadCap,
		BasePriceFloor: c.BasePriceFloor,
		InitialPurse:   c.InitialPurse,
	}
}

// PostgresConnString returns DB_CONN_STR, or builds it from the individual DB_* variables
func (c Config) PostgresConnString() string {
	if c.DBConnStr != "" {
		return c.DBConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// LagerLevel converts LOG_LEVEL to a lager log level
func (c Config) LagerLevel() (lager.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return lager.DEBUG, nil
	case "info", "":
		return lager.INFO, nil
	case "error":
		return lager.ERROR, nil
	case "fatal":
		return lager.FATAL, nil
	default:
		return lager.INFO, fmt.Errorf("LOG_LEVEL must be debug, info, error or fatal, got %q", c.LogLevel)
	}
}
