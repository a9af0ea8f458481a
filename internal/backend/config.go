package backend

import (
	"fmt"

	"projex/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	driver := Driver(appConfig.DBDriver)
	if !driver.IsValid() {
		return Config{}, fmt.Errorf("invalid database driver in config: %s", appConfig.DBDriver)
	}

	return Config{
		Driver:       driver,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// LedgerFromAppConfig converts the application config to ledger config.
func LedgerFromAppConfig(appConfig *config.Config) (LedgerConfig, error) {
	if appConfig == nil {
		return LedgerConfig{}, fmt.Errorf("app config is nil")
	}
	t := LedgerType(appConfig.LedgerBackend)
	if !t.IsValid() {
		return LedgerConfig{}, fmt.Errorf("invalid ledger backend in config: %s", appConfig.LedgerBackend)
	}
	return LedgerConfig{
		Type:                  t,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleSheetName:       appConfig.GoogleSheetName,
		GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON: appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:  appConfig.GoogleOAuthTokenJSON,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Driver.IsValid() {
		return fmt.Errorf("invalid database driver: %s", c.Driver)
	}

	switch c.Driver {
	case SQLiteDriver:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite driver")
		}
	case PostgresDriver:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres driver")
		}
	}
	// AMQP is optional.
	return nil
}

// Validate validates the ledger configuration.
func (c LedgerConfig) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid ledger type: %s", c.Type)
	}
	if c.Type != SheetsLedger {
		return nil
	}
	if c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required for sheets ledger")
	}
	if c.GoogleSheetName == "" {
		return fmt.Errorf("Google Sheet name is required for sheets ledger")
	}
	if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
		return fmt.Errorf("either GoogleOAuthClientFile or GoogleOAuthClientJSON must be provided for sheets ledger")
	}
	if c.GoogleOAuthTokenFile == "" && c.GoogleOAuthTokenJSON == "" {
		return fmt.Errorf("either GoogleOAuthTokenFile or GoogleOAuthTokenJSON must be provided for sheets ledger")
	}
	return nil
}
