package config

import (
	"testing"

	"code.cloudfoundry.org/lager/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/auction-backend/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultRules(), cfg.Rules())
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Equal(t, "dev-token", cfg.APIToken)
	assert.Equal(t, []string{"Team A", "Team B", "Team C", "Team D"}, cfg.SeedBidders)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=auction sslmode=disable", cfg.PostgresConnString())

	level, err := cfg.LagerLevel()
	require.NoError(t, err)
	assert.Equal(t, lager.INFO, level)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SQUAD_CAP", "11")
	t.Setenv("BASE_PRICE_FLOOR", "1500")
	t.Setenv("INITIAL_PURSE", "90000")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/auction.db")
	t.Setenv("DB_CONN_STR", "postgres://auction@db/auction")
	t.Setenv("SEED_BIDDERS", "Royals,Kings")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.Rules{SquadCap: 11, BasePriceFloor: 1500, InitialPurse: 90000}, cfg.Rules())
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/auction.db", cfg.SQLitePath)
	assert.Equal(t, "postgres://auction@db/auction", cfg.PostgresConnString())
	assert.Equal(t, []string{"Royals", "Kings"}, cfg.SeedBidders)

	level, err := cfg.LagerLevel()
	require.NoError(t, err)
	assert.Equal(t, lager.DEBUG, level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Zero Squad Cap", key: "SQUAD_CAP", value: "0"},
		{name: "Negative Purse", key: "INITIAL_PURSE", value: "-1"},
		{name: "Negative Floor", key: "BASE_PRICE_FLOOR", value: "-100"},
		{name: "Unknown Driver", key: "STORE_DRIVER", value: "mongo"},
		{name: "Unknown Log Level", key: "LOG_LEVEL", value: "verbose"},
		{name: "Not A Number", key: "SQUAD_CAP", value: "eight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
