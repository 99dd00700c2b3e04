package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MatheusEger/fiisync/internal/clients/fundamentus"
	"github.com/MatheusEger/fiisync/internal/clients/plexa"
	"github.com/MatheusEger/fiisync/internal/common"
	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
	"github.com/MatheusEger/fiisync/internal/storage/sqlite"
)

// fixedNow keeps every test on one clock: cutoff is 2024-05-31.
var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return fixedNow }

type stubAdapter struct {
	name     string
	snapshot bool
	records  map[string][]models.RawRecord
	errs     map[string]error
	calls    int
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Snapshot() bool { return a.snapshot }

func (a *stubAdapter) Fetch(_ context.Context, fund models.Fund, _ interfaces.Lookback) ([]models.RawRecord, error) {
	a.calls++
	if err := a.errs[fund.Ticker]; err != nil {
		return nil, err
	}
	return a.records[fund.Ticker], nil
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "fiis.db"), common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedFund(t *testing.T, store *sqlite.Store, ticker string) models.Fund {
	t.Helper()
	fund := models.Fund{Ticker: ticker, Active: true}
	require.NoError(t, store.UpsertFund(context.Background(), &fund))
	return fund
}

func TestRunInsertsAndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")

	adapter := &stubAdapter{
		name: "dividends",
		records: map[string][]models.RawRecord{
			"ABCD11": {
				{Indicator: "Dividendos", DateLiteral: "29/02/2024", ValueLiteral: "1,00"},
				{Indicator: "Dividendos", DateLiteral: "31/03/2024", ValueLiteral: "0,95"},
				{Indicator: "Dividendos", DateLiteral: "30/04/2024", ValueLiteral: "1,10"},
			},
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FundsProcessed)
	assert.Equal(t, 0, report.FundsFailed)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 0, report.Duplicates)

	// Re-running the same window inserts nothing.
	report, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 3, report.Duplicates)
}

func TestRunExcludesProvisionalMonth(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")

	adapter := &stubAdapter{
		name: "dividends",
		records: map[string][]models.RawRecord{
			"ABCD11": {
				{Indicator: "Dividendos", DateLiteral: "30/04/2024", ValueLiteral: "1,00"},
				// Dated inside the running month, still subject to revision.
				{Indicator: "Dividendos", DateLiteral: "05/06/2024", ValueLiteral: "1,05"},
			},
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Provisional)
}

func TestRunPersistsSnapshotRecordsDatedRunDay(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")

	// Scrape sources date their records at the run day, inside the
	// running month.
	adapter := &stubAdapter{
		name:     "caprate",
		snapshot: true,
		records: map[string][]models.RawRecord{
			"ABCD11": {
				{Indicator: "Cap Rate", DateLiteral: fixedNow.Format("02/01/2006"), ValueLiteral: "5,00"},
			},
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 0, report.Provisional)

	// Same run day again is a duplicate, not a new row.
	report, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Duplicates)
}

func TestRunKeepsMonthlyCutoffForSeriesAdapters(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")

	// The same run-day date on a monthly-series adapter is still
	// provisional until the month closes.
	adapter := &stubAdapter{
		name: "dividends",
		records: map[string][]models.RawRecord{
			"ABCD11": {
				{Indicator: "Dividendos", DateLiteral: fixedNow.Format("02/01/2006"), ValueLiteral: "1,00"},
			},
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Provisional)
}

func TestRunAbortsOnCredentialFailure(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")
	seedFund(t, store, "WXYZ11")

	loginErr := fmt.Errorf("failed to obtain bearer token: %w", plexa.ErrLogin)
	adapter := &stubAdapter{
		name: "dividends",
		errs: map[string]error{
			"ABCD11": loginErr,
			"WXYZ11": loginErr,
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, plexa.ErrLogin)

	// The run stops on the first fund instead of re-attempting login
	// for every remaining one.
	assert.Equal(t, 1, adapter.calls)
	assert.Equal(t, 1, report.FundsProcessed)
	assert.Equal(t, 1, report.FundsFailed)
}

func TestRunIsolatesFundFailures(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")
	seedFund(t, store, "WXYZ11")

	adapter := &stubAdapter{
		name: "dividends",
		errs: map[string]error{"ABCD11": errors.New("upstream down")},
		records: map[string][]models.RawRecord{
			"WXYZ11": {
				{Indicator: "Dividendos", DateLiteral: "30/04/2024", ValueLiteral: "0,80"},
			},
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FundsProcessed)
	assert.Equal(t, 1, report.FundsFailed)
	assert.Equal(t, 1, report.Inserted)
}

func TestRunCountsMalformedAndSkipsAbsent(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")

	adapter := &stubAdapter{
		name: "dividends",
		records: map[string][]models.RawRecord{
			"ABCD11": {
				{Indicator: "Dividendos", DateLiteral: "30/04/2024", ValueLiteral: "abc"},
				{Indicator: "Dividendos", DateLiteral: "30/04/2024", ValueLiteral: "N/D"},
				{Indicator: "Dividendos", DateLiteral: "banana", ValueLiteral: "1,00"},
				{Indicator: "Dividendos", DateLiteral: "30/04/2024", ValueLiteral: "1,00"},
			},
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, 2, report.Malformed)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 0, report.FundsFailed)
}

func TestRunSkipsRecordsAtOrBelowWatermark(t *testing.T) {
	store := newTestStore(t)
	fund := seedFund(t, store, "ABCD11")

	ctx := context.Background()
	indicatorID, err := store.GetOrCreateIndicator(ctx, "Dividendos", "")
	require.NoError(t, err)
	_, err = store.InsertIndicatorValue(ctx, models.IndicatorValue{
		FundID:        fund.ID,
		IndicatorID:   indicatorID,
		ReferenceDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Value:         0.95,
	})
	require.NoError(t, err)

	adapter := &stubAdapter{
		name: "dividends",
		records: map[string][]models.RawRecord{
			"ABCD11": {
				{Indicator: "Dividendos", DateLiteral: "29/02/2024", ValueLiteral: "1,00"},
				{Indicator: "Dividendos", DateLiteral: "31/03/2024", ValueLiteral: "0,95"},
				{Indicator: "Dividendos", DateLiteral: "30/04/2024", ValueLiteral: "1,10"},
			},
		},
	}
	svc := NewService(store, common.NewSilentLogger(),
		WithAdapters(adapter), WithClock(testClock))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 1, report.Inserted)
}

type stubCatalog struct {
	funds []plexa.FundSummary
	err   error
}

func (c *stubCatalog) ListFunds(context.Context) ([]plexa.FundSummary, error) {
	return c.funds, c.err
}

func TestSyncCatalog(t *testing.T) {
	store := newTestStore(t)

	catalog := &stubCatalog{funds: []plexa.FundSummary{
		{
			Ticker:          "ABCD11",
			Name:            "Fundo ABCD",
			Segment:         "Logística",
			Manager:         "GESTORA X",
			LastDividend:    "1,10",
			LastYield:       "0,85",
			PriceToBook:     "98,12",
			ShareCount:      "12.345.678",
			NetAssetValue:   "1.211.234.567,89",
			NetAssetDateRef: "04/2024",
			HolderCount:     "250.000",
			HolderCountRef:  "04/2024",
		},
	}}

	svc := NewService(store, common.NewSilentLogger(),
		WithCatalogSource(catalog), WithClock(testClock))

	report, err := svc.SyncCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FundsProcessed)
	assert.Equal(t, 6, report.Inserted)

	fund, err := store.GetFundByTicker(context.Background(), "ABCD11")
	require.NoError(t, err)
	require.NotNil(t, fund)
	assert.Equal(t, "Logistica", fund.Sector)
	assert.Equal(t, "Gestora X", fund.Manager)
	assert.True(t, fund.Active)

	// Re-running refreshes the catalog but inserts no new facts.
	report, err = svc.SyncCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 6, report.Duplicates)
}

func TestSyncCatalogWithoutSource(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, common.NewSilentLogger())

	_, err := svc.SyncCatalog(context.Background())
	assert.Error(t, err)
}

type stubQuotes struct {
	bars map[string][]plexa.HistoryBar
}

func (q *stubQuotes) GetHistory(_ context.Context, ticker string, _ int) ([]plexa.HistoryBar, error) {
	return q.bars[ticker], nil
}

func TestSyncQuotes(t *testing.T) {
	store := newTestStore(t)
	fund := seedFund(t, store, "ABCD11")

	quotes := &stubQuotes{bars: map[string][]plexa.HistoryBar{
		"ABCD11": {
			{Date: "01/04/2024", Close: "100,50", Open: "100,00", High: "101,00", Low: "99,90", Trades: "1.200", Volume: "4.500.000,00"},
			{Date: "02/04/2024", Close: "101,10"},
			{Date: "not-a-date", Close: "101,10"},
		},
	}}

	svc := NewService(store, common.NewSilentLogger(),
		WithQuoteSource(quotes), WithClock(testClock))

	report, err := svc.SyncQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Malformed)

	latest, ok, err := store.LatestQuoteDate(context.Background(), fund.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), latest)

	// Second run: both valid bars are at or below the watermark.
	report, err = svc.SyncQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 2, report.Duplicates)
}

type stubProperties struct {
	rows map[string][]fundamentus.PropertyRow
}

func (p *stubProperties) GetProperties(_ context.Context, ticker string) ([]fundamentus.PropertyRow, error) {
	return p.rows[ticker], nil
}

func TestSyncProperties(t *testing.T) {
	store := newTestStore(t)
	seedFund(t, store, "ABCD11")

	properties := &stubProperties{rows: map[string][]fundamentus.PropertyRow{
		"ABCD11": {
			{Name: "Galpão Cajamar", Address: "Rod. Anhanguera km 40", AreaM2: "77.000,00", Units: "1", OccupancyRate: "94,05%", DefaultRate: "0,00%", RevenueShare: "35,20%"},
			{Name: "CD Extrema", AreaM2: "55.500,00", Units: "2", OccupancyRate: "100,00%"},
		},
	}}

	svc := NewService(store, common.NewSilentLogger(),
		WithPropertySource(properties), WithClock(testClock))

	report, err := svc.SyncProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)

	report, err = svc.SyncProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 2, report.Duplicates)
}
