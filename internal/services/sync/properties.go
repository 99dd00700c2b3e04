package sync

import (
	"context"
	"fmt"

	"github.com/MatheusEger/fiisync/internal/clients/fundamentus"
	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
)

// PropertySource fetches the real-estate portfolio detail for a
// ticker. Paper funds legitimately report no rows.
type PropertySource interface {
	GetProperties(ctx context.Context, ticker string) ([]fundamentus.PropertyRow, error)
}

// SyncProperties refreshes the per-fund property portfolio for all
// active funds. Rows are keyed by (fund, property name), so re-running
// absorbs unchanged rows as duplicates.
func (s *Service) SyncProperties(ctx context.Context) (models.SyncReport, error) {
	var report models.SyncReport

	if s.properties == nil {
		return report, fmt.Errorf("no property source configured")
	}

	funds, err := s.store.ListActiveFunds(ctx)
	if err != nil {
		return report, err
	}
	s.logger.Info().Int("funds", len(funds)).Msg("Starting property sync")

	for i, fund := range funds {
		if i > 0 {
			if err := s.pace(ctx); err != nil {
				return report, err
			}
		}

		report.FundsProcessed++
		if err := s.syncFundProperties(ctx, fund, &report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("ticker", fund.Ticker).Msg("Property sync failed for fund")
			report.FundsFailed++
		}
	}

	s.logger.Info().Str("report", report.Summary()).Msg("Property sync finished")
	return report, nil
}

func (s *Service) syncFundProperties(ctx context.Context, fund models.Fund, report *models.SyncReport) error {
	rows, err := s.properties.GetProperties(ctx, fund.Ticker)
	if err != nil {
		return err
	}
	report.Fetched += len(rows)

	for _, row := range rows {
		property, err := row.Normalize(fund.ID)
		if err != nil {
			report.Malformed++
			s.logger.Debug().
				Str("ticker", fund.Ticker).
				Str("property", row.Name).
				Msg("Malformed property row")
			continue
		}

		outcome, err := s.store.InsertProperty(ctx, property)
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
