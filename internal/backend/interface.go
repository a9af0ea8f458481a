package backend

import (
	"projex/internal/amqp"
	"projex/internal/services"
	"projex/internal/sheets"
	"projex/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is the persistence stack of the API: the store and, when a broker
// is configured, the event publisher.
type Result struct {
	Store     *storage.Repository
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// LedgerResult is the export target of the worker.
type LedgerResult struct {
	Ledger  sheets.LedgerWriter
	Cleanup CleanupFunc
}

// Config holds configuration for backend creation.
type Config struct {
	Driver       Driver
	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// LedgerConfig holds configuration for the worker's ledger.
type LedgerConfig struct {
	Type LedgerType

	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string
}

// Driver names a database driver.
type Driver string

const (
	SQLiteDriver   Driver = "sqlite"
	PostgresDriver Driver = "postgres"
)

func (d Driver) String() string {
	return string(d)
}

// IsValid returns true if the driver is supported.
func (d Driver) IsValid() bool {
	switch d {
	case SQLiteDriver, PostgresDriver:
		return true
	default:
		return false
	}
}

// LedgerType names a ledger implementation.
type LedgerType string

const (
	MemoryLedger LedgerType = "memory"
	SheetsLedger LedgerType = "sheets"
)

func (t LedgerType) IsValid() bool {
	return t == MemoryLedger || t == SheetsLedger
}

var _ services.EventPublisher = (*amqp.Client)(nil)
