package interfaces

import (
	"context"
	"time"

	"github.com/MatheusEger/fiisync/internal/models"
)

// PersistOutcome reports what an upsert did. A duplicate is a normal
// outcome, never an error.
type PersistOutcome int

const (
	Inserted PersistOutcome = iota
	SkippedDuplicate
)

// Store is the persistence contract for the sync engine. The store is
// the only writer of time-series rows; the dashboard reads them.
type Store interface {
	// Catalog
	GetOrCreateSector(ctx context.Context, name string) (int64, error)
	UpsertFund(ctx context.Context, fund *models.Fund) error
	ListActiveFunds(ctx context.Context) ([]models.Fund, error)
	GetFundByTicker(ctx context.Context, ticker string) (*models.Fund, error)

	// Indicators
	GetOrCreateIndicator(ctx context.Context, name, description string) (int64, error)

	// Time series. LatestReferenceDate is the watermark: the max
	// reference date already persisted for (fund, indicator), queried
	// fresh per run so it is always consistent with the row set.
	LatestReferenceDate(ctx context.Context, fundID, indicatorID int64) (time.Time, bool, error)
	InsertIndicatorValue(ctx context.Context, value models.IndicatorValue) (PersistOutcome, error)

	// Quotes
	LatestQuoteDate(ctx context.Context, fundID int64) (time.Time, bool, error)
	InsertQuote(ctx context.Context, quote models.Quote) (PersistOutcome, error)

	// Portfolio detail
	InsertProperty(ctx context.Context, property models.Property) (PersistOutcome, error)

	Close() error
}
