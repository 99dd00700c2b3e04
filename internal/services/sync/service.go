// Package sync implements the incremental synchronization engine:
// fetch raw records per fund, normalize them, filter against the
// stored watermark, and persist with duplicate absorption. A run
// always completes; failures are isolated at the fund boundary and
// surface only in the report counters.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MatheusEger/fiisync/internal/clients/plexa"
	"github.com/MatheusEger/fiisync/internal/common"
	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
	"github.com/MatheusEger/fiisync/internal/normalize"
)

// Service orchestrates sync runs over a set of source adapters.
type Service struct {
	store      interfaces.Store
	adapters   []interfaces.SourceAdapter
	catalog    CatalogSource
	quotes     QuoteSource
	properties PropertySource
	pacing     time.Duration
	lookback   interfaces.Lookback
	logger     *common.Logger
	now        func() time.Time // injectable clock for testing

	indicatorIDs map[string]int64
}

// Option configures a Service.
type Option func(*Service)

// WithAdapters sets the indicator source adapters to run.
func WithAdapters(adapters ...interfaces.SourceAdapter) Option {
	return func(s *Service) {
		s.adapters = adapters
	}
}

// WithCatalogSource sets the upstream used by SyncCatalog.
func WithCatalogSource(source CatalogSource) Option {
	return func(s *Service) {
		s.catalog = source
	}
}

// WithQuoteSource sets the upstream used by SyncQuotes.
func WithQuoteSource(source QuoteSource) Option {
	return func(s *Service) {
		s.quotes = source
	}
}

// WithPropertySource sets the upstream used by SyncProperties.
func WithPropertySource(source PropertySource) Option {
	return func(s *Service) {
		s.properties = source
	}
}

// WithPacing sets the delay between consecutive fund fetches.
func WithPacing(d time.Duration) Option {
	return func(s *Service) {
		s.pacing = d
	}
}

// WithLookback sets the upstream history window.
func WithLookback(lb interfaces.Lookback) Option {
	return func(s *Service) {
		s.lookback = lb
	}
}

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a sync service over the given store.
func NewService(store interfaces.Store, logger *common.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	s := &Service{
		store:        store,
		lookback:     interfaces.Lookback{Months: 3600, Days: 3650},
		logger:       logger,
		now:          time.Now,
		indicatorIDs: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one indicator sync pass over all active funds. It
// returns an error only when the run cannot proceed at all (store
// unavailable, credentials rejected, context cancelled); per-fund
// failures are counted and logged, never propagated.
func (s *Service) Run(ctx context.Context) (models.SyncReport, error) {
	var report models.SyncReport

	funds, err := s.store.ListActiveFunds(ctx)
	if err != nil {
		return report, err
	}

	// Monthly series wait for the month to close; snapshot sources
	// date records at the run day and stay valid through the running
	// month.
	seriesCutoff := normalize.CutoffDate(s.now())
	snapshotCutoff := normalize.EndOfMonth(s.now())
	s.logger.Info().
		Int("funds", len(funds)).
		Int("adapters", len(s.adapters)).
		Time("cutoff", seriesCutoff).
		Msg("Starting indicator sync")

	for i, fund := range funds {
		if i > 0 {
			if err := s.pace(ctx); err != nil {
				return report, err
			}
		}

		failed := false
		for _, adapter := range s.adapters {
			records, err := adapter.Fetch(ctx, fund, s.lookback)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				// A failed credential exchange cannot heal on the
				// next fund; continuing would re-attempt login for
				// every remaining fund against a rate-limited
				// upstream. The run aborts instead.
				if errors.Is(err, plexa.ErrLogin) {
					report.FundsProcessed++
					report.FundsFailed++
					return report, fmt.Errorf("credential failure: %w", err)
				}
				s.logger.Warn().Err(err).
					Str("ticker", fund.Ticker).
					Str("source", adapter.Name()).
					Msg("Fetch failed, skipping fund for this source")
				failed = true
				continue
			}

			cutoff := seriesCutoff
			if adapter.Snapshot() {
				cutoff = snapshotCutoff
			}
			if err := s.persistRecords(ctx, fund, records, cutoff, &report); err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				s.logger.Warn().Err(err).
					Str("ticker", fund.Ticker).
					Str("source", adapter.Name()).
					Msg("Persist failed, skipping fund for this source")
				failed = true
			}
		}

		report.FundsProcessed++
		if failed {
			report.FundsFailed++
		}
	}

	s.logger.Info().Str("report", report.Summary()).Msg("Indicator sync finished")
	return report, nil
}

type candidate struct {
	indicatorID int64
	refDate     time.Time
	value       float64
}

// persistRecords normalizes raw records and writes the survivors in
// oldest-first order, so a partial failure leaves the watermark
// consistent with what was actually stored.
func (s *Service) persistRecords(ctx context.Context, fund models.Fund, records []models.RawRecord, cutoff time.Time, report *models.SyncReport) error {
	report.Fetched += len(records)

	watermarks := make(map[int64]time.Time)
	var candidates []candidate

	for _, rec := range records {
		value, err := normalize.ParseNumber(rec.ValueLiteral)
		if err != nil {
			if errors.Is(err, normalize.ErrValueAbsent) {
				continue
			}
			report.Malformed++
			s.logger.Debug().
				Str("ticker", fund.Ticker).
				Str("indicator", rec.Indicator).
				Str("value", rec.ValueLiteral).
				Msg("Malformed value literal")
			continue
		}

		refDate, err := normalize.ParseReferenceDate(rec.DateLiteral, rec.DateFallback)
		if err != nil {
			report.Malformed++
			s.logger.Debug().
				Str("ticker", fund.Ticker).
				Str("indicator", rec.Indicator).
				Str("date", rec.DateLiteral).
				Msg("Malformed reference date")
			continue
		}

		if normalize.Provisional(refDate, cutoff) {
			report.Provisional++
			continue
		}

		indicatorID, err := s.indicatorID(ctx, rec.Indicator, rec.Description)
		if err != nil {
			return err
		}

		latest, ok, ferr := s.watermark(ctx, watermarks, fund.ID, indicatorID)
		if ferr != nil {
			return ferr
		}
		if ok && !refDate.After(latest) {
			report.Duplicates++
			continue
		}

		candidates = append(candidates, candidate{indicatorID, refDate, value})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].refDate.Before(candidates[j].refDate)
	})

	for _, c := range candidates {
		outcome, err := s.store.InsertIndicatorValue(ctx, models.IndicatorValue{
			FundID:        fund.ID,
			IndicatorID:   c.indicatorID,
			ReferenceDate: c.refDate,
			Value:         c.value,
		})
		if err != nil {
			return err
		}
		switch outcome {
		case interfaces.Inserted:
			report.Inserted++
		case interfaces.SkippedDuplicate:
			report.Duplicates++
		}
	}

	return nil
}

func (s *Service) indicatorID(ctx context.Context, name, description string) (int64, error) {
	if id, ok := s.indicatorIDs[name]; ok {
		return id, nil
	}
	id, err := s.store.GetOrCreateIndicator(ctx, name, description)
	if err != nil {
		return 0, err
	}
	s.indicatorIDs[name] = id
	return id, nil
}

func (s *Service) watermark(ctx context.Context, cache map[int64]time.Time, fundID, indicatorID int64) (time.Time, bool, error) {
	if latest, ok := cache[indicatorID]; ok {
		return latest, true, nil
	}
	latest, ok, err := s.store.LatestReferenceDate(ctx, fundID, indicatorID)
	if err != nil {
		return time.Time{}, false, err
	}
	if ok {
		cache[indicatorID] = latest
	}
	return latest, ok, nil
}

// pace blocks for the configured inter-fund delay, honoring ctx.
func (s *Service) pace(ctx context.Context) error {
	if s.pacing <= 0 {
		return nil
	}
	timer := time.NewTimer(s.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
