package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/MatheusEger/fiisync/internal/clients/plexa"
	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
	"github.com/MatheusEger/fiisync/internal/normalize"
)

// QuoteSource fetches daily price history for a ticker.
type QuoteSource interface {
	GetHistory(ctx context.Context, ticker string, days int) ([]plexa.HistoryBar, error)
}

// SyncQuotes pulls daily price bars for all active funds, keeping only
// bars newer than each fund's stored quote watermark.
func (s *Service) SyncQuotes(ctx context.Context) (models.SyncReport, error) {
	var report models.SyncReport

	if s.quotes == nil {
		return report, fmt.Errorf("no quote source configured")
	}

	funds, err := s.store.ListActiveFunds(ctx)
	if err != nil {
		return report, err
	}
	s.logger.Info().Int("funds", len(funds)).Int("days", s.lookback.Days).Msg("Starting quote sync")

	for i, fund := range funds {
		if i > 0 {
			if err := s.pace(ctx); err != nil {
				return report, err
			}
		}

		report.FundsProcessed++
		if err := s.syncFundQuotes(ctx, fund, &report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("ticker", fund.Ticker).Msg("Quote sync failed for fund")
			report.FundsFailed++
		}
	}

	s.logger.Info().Str("report", report.Summary()).Msg("Quote sync finished")
	return report, nil
}

func (s *Service) syncFundQuotes(ctx context.Context, fund models.Fund, report *models.SyncReport) error {
	bars, err := s.quotes.GetHistory(ctx, fund.Ticker, s.lookback.Days)
	if err != nil {
		return err
	}
	report.Fetched += len(bars)

	latest, hasLatest, err := s.store.LatestQuoteDate(ctx, fund.ID)
	if err != nil {
		return err
	}

	var quotes []models.Quote
	for _, bar := range bars {
		quote, err := normalizeBar(fund.ID, bar)
		if err != nil {
			report.Malformed++
			s.logger.Debug().
				Str("ticker", fund.Ticker).
				Str("date", bar.Date).
				Msg("Malformed quote bar")
			continue
		}
		if hasLatest && !quote.Date.After(latest) {
			report.Duplicates++
			continue
		}
		quotes = append(quotes, quote)
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Date.Before(quotes[j].Date)
	})

	for _, quote := range quotes {
		outcome, err := s.store.InsertQuote(ctx, quote)
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

// normalizeBar converts one upstream bar to a quote. Close and the
// date are required; the remaining fields default to zero when absent.
func normalizeBar(fundID int64, bar plexa.HistoryBar) (models.Quote, error) {
	date, err := normalize.ParseDate(bar.Date)
	if err != nil {
		return models.Quote{}, err
	}
	closePrice, err := normalize.ParseNumber(bar.Close)
	if err != nil {
		return models.Quote{}, err
	}

	quote := models.Quote{
		FundID: fundID,
		Date:   date,
		Close:  closePrice,
	}
	quote.Open = optionalNumber(bar.Open)
	quote.High = optionalNumber(bar.High)
	quote.Low = optionalNumber(bar.Low)
	quote.Volume = optionalNumber(bar.Volume)
	quote.Trades = int64(optionalNumber(bar.Trades))
	quote.Quantity = int64(optionalNumber(bar.Quantity))
	return quote, nil
}

func optionalNumber(literal string) float64 {
	v, err := normalize.ParseNumber(literal)
	if err != nil {
		return 0
	}
	return v
}
