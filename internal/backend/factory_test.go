package backend

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projex/internal/config"
	applog "projex/internal/log"
	"projex/internal/sheets/memory"
)

func testFactory() *Factory {
	cfg := applog.DefaultConfig()
	cfg.Output = &bytes.Buffer{}
	return NewFactory(applog.New(cfg))
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DBDriver:     "postgres",
		DatabaseURL:  "postgres://localhost/projex",
		AMQPURL:      "amqp://localhost",
		AMQPExchange: "projex",
		AMQPQueue:    "projex_ledger",
	})
	require.NoError(t, err)
	assert.Equal(t, PostgresDriver, cfg.Driver)
	assert.Equal(t, "postgres://localhost/projex", cfg.DatabaseURL)
	assert.Equal(t, "projex_ledger", cfg.AMQPQueue)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "sqlite", cfg: Config{Driver: SQLiteDriver, SQLiteDBPath: "x.db"}},
		{name: "sqlite without path", cfg: Config{Driver: SQLiteDriver}, wantErr: true},
		{name: "postgres", cfg: Config{Driver: PostgresDriver, DatabaseURL: "postgres://db"}},
		{name: "postgres without url", cfg: Config{Driver: PostgresDriver}, wantErr: true},
		{name: "unknown", cfg: Config{Driver: "oracle"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestLedgerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LedgerConfig
		wantErr bool
	}{
		{name: "memory", cfg: LedgerConfig{Type: MemoryLedger}},
		{name: "unknown", cfg: LedgerConfig{Type: "csv"}, wantErr: true},
		{name: "sheets without id", cfg: LedgerConfig{Type: SheetsLedger}, wantErr: true},
		{
			name: "sheets complete",
			cfg: LedgerConfig{
				Type: SheetsLedger, GoogleSpreadsheetID: "id", GoogleSheetName: "Ledger",
				GoogleOAuthClientJSON: "{}", GoogleOAuthTokenJSON: "{}",
			},
		},
		{
			name: "sheets without token",
			cfg: LedgerConfig{
				Type: SheetsLedger, GoogleSpreadsheetID: "id", GoogleSheetName: "Ledger",
				GoogleOAuthClientJSON: "{}",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestFactoryOpenSQLite(t *testing.T) {
	f := testFactory()
	res, err := f.Open(context.Background(), Config{
		Driver:       SQLiteDriver,
		SQLiteDBPath: filepath.Join(t.TempDir(), "data", "projex.db"),
	})
	require.NoError(t, err)

	assert.Nil(t, res.Publisher, "no broker configured")
	require.NoError(t, res.Store.Ping(context.Background()))
	require.NoError(t, res.Cleanup())
}

func TestFactoryOpenLedgerMemory(t *testing.T) {
	res, err := testFactory().OpenLedger(context.Background(), LedgerConfig{Type: MemoryLedger})
	require.NoError(t, err)
	assert.IsType(t, &memory.Ledger{}, res.Ledger)
}
