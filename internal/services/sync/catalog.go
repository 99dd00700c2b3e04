package sync

import (
	"context"
	"fmt"

	"github.com/MatheusEger/fiisync/internal/clients/plexa"
	"github.com/MatheusEger/fiisync/internal/models"
	"github.com/MatheusEger/fiisync/internal/normalize"
)

// CatalogSource lists the upstream fund universe with its latest
// snapshot fields.
type CatalogSource interface {
	ListFunds(ctx context.Context) ([]plexa.FundSummary, error)
}

// Catalog snapshot indicator names. These are created lazily on first
// sync, like any adapter-reported indicator.
const (
	IndicatorLastDividend = "Último Rendimento"
	IndicatorLastYield    = "Último Yield"
	IndicatorBookValue    = "Cota Patrimonial"
	IndicatorShareCount   = "Quantidade de Cotas"
	IndicatorNetAssets    = "Patrimônio Líquido"
	IndicatorHolderCount  = "Quantidade de Cotistas"
)

// SyncCatalog refreshes the fund universe from the catalog source and
// records each fund's snapshot indicators through the normal
// normalize-filter-persist path. New funds are created active;
// existing funds have their descriptive fields refreshed.
func (s *Service) SyncCatalog(ctx context.Context) (models.SyncReport, error) {
	var report models.SyncReport

	if s.catalog == nil {
		return report, fmt.Errorf("no catalog source configured")
	}

	summaries, err := s.catalog.ListFunds(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list fund catalog: %w", err)
	}

	// Snapshot indicators are point-in-time values dated to the run
	// day, not a monthly series still open for revision, so the
	// provisional window extends through the running month.
	cutoff := normalize.EndOfMonth(s.now())
	runDay := s.now().Format("02/01/2006")
	s.logger.Info().Int("funds", len(summaries)).Msg("Starting catalog sync")

	for _, summary := range summaries {
		fund := models.Fund{
			Ticker:  summary.Ticker,
			Name:    summary.Name,
			Manager: normalize.CleanText(summary.Manager),
			Admin:   normalize.CleanText(summary.Admin),
			Sector:  normalize.CleanText(summary.Segment),
			Active:  true,
		}
		if err := s.store.UpsertFund(ctx, &fund); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("ticker", summary.Ticker).Msg("Failed to upsert fund")
			report.FundsProcessed++
			report.FundsFailed++
			continue
		}

		records := snapshotRecords(summary, runDay)
		if err := s.persistRecords(ctx, fund, records, cutoff, &report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("ticker", summary.Ticker).Msg("Failed to persist catalog snapshot")
			report.FundsProcessed++
			report.FundsFailed++
			continue
		}
		report.FundsProcessed++
	}

	s.logger.Info().Str("report", report.Summary()).Msg("Catalog sync finished")
	return report, nil
}

// snapshotRecords maps a catalog entry's latest-value fields onto raw
// records. Fields carrying their own reference month keep it; the rest
// are dated to the run day.
func snapshotRecords(summary plexa.FundSummary, runDay string) []models.RawRecord {
	return []models.RawRecord{
		{
			Indicator:    IndicatorLastDividend,
			Description:  "Último rendimento distribuído por cota",
			DateLiteral:  runDay,
			ValueLiteral: summary.LastDividend,
		},
		{
			Indicator:    IndicatorLastYield,
			Description:  "Yield do último rendimento",
			DateLiteral:  runDay,
			ValueLiteral: summary.LastYield,
		},
		{
			Indicator:    IndicatorBookValue,
			Description:  "Valor patrimonial por cota",
			DateLiteral:  runDay,
			ValueLiteral: summary.PriceToBook,
		},
		{
			Indicator:    IndicatorShareCount,
			Description:  "Quantidade de cotas emitidas",
			DateLiteral:  runDay,
			ValueLiteral: summary.ShareCount,
		},
		{
			Indicator:    IndicatorNetAssets,
			Description:  "Patrimônio líquido do fundo",
			DateLiteral:  summary.NetAssetDateRef,
			DateFallback: runDay,
			ValueLiteral: summary.NetAssetValue,
		},
		{
			Indicator:    IndicatorHolderCount,
			Description:  "Quantidade de cotistas",
			DateLiteral:  summary.HolderCountRef,
			DateFallback: runDay,
			ValueLiteral: summary.HolderCount,
		},
	}
}
