package backend

import (
	"context"
	"errors"
	"fmt"

	"projex/internal/amqp"
	applog "projex/internal/log"
	gsheet "projex/internal/sheets/google"
	"projex/internal/sheets/memory"
	"projex/internal/storage"
)

// Factory opens the persistence and export backends.
type Factory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *applog.Logger) *Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// Open connects the store for the configured driver, applying migrations,
// and the AMQP publisher when a broker URL is set. A broker that cannot
// be reached disables publishing instead of failing startup.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		repo *storage.Repository
		err  error
	)
	switch cfg.Driver {
	case SQLiteDriver:
		repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	case PostgresDriver:
		repo, err = storage.NewPostgresRepository(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", cfg.Driver, err)
	}

	result := &Result{Store: repo}
	closers := []func() error{repo.Close}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			result.Publisher = client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized store",
		"driver", cfg.Driver,
		"events_enabled", result.Publisher != nil)
	return result, nil
}

// OpenLedger builds the worker's export target.
func (f *Factory) OpenLedger(ctx context.Context, cfg LedgerConfig) (*LedgerResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SheetsLedger:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
			ClientFile:    cfg.GoogleOAuthClientFile,
			ClientJSON:    cfg.GoogleOAuthClientJSON,
			TokenFile:     cfg.GoogleOAuthTokenFile,
			TokenJSON:     cfg.GoogleOAuthTokenJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets ledger",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
		return &LedgerResult{Ledger: client}, nil
	case MemoryLedger:
		f.logger.InfoContext(ctx, "Initialized memory ledger")
		return &LedgerResult{Ledger: memory.New()}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", cfg.Type)
	}
}
