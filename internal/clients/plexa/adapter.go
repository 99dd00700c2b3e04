package plexa

import (
	"context"

	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
)

// IndicatorDividends is the indicator name dividend records persist
// under.
const IndicatorDividends = "Dividendos"

// DividendAdapter exposes the dividend history endpoint through the
// common source-adapter contract.
type DividendAdapter struct {
	client *Client
}

// NewDividendAdapter wraps a client as a SourceAdapter.
func NewDividendAdapter(client *Client) *DividendAdapter {
	return &DividendAdapter{client: client}
}

// Name identifies the adapter.
func (a *DividendAdapter) Name() string {
	return "plexa-dividends"
}

// Snapshot is false: dividends are a monthly series whose running
// month is still open for revision.
func (a *DividendAdapter) Snapshot() bool {
	return false
}

// Fetch returns one raw record per distribution, dated by its com
// date with the payment date as fallback.
func (a *DividendAdapter) Fetch(ctx context.Context, fund models.Fund, lookback interfaces.Lookback) ([]models.RawRecord, error) {
	dividends, err := a.client.GetDividends(ctx, fund.Ticker, lookback.Months)
	if err != nil {
		return nil, err
	}

	records := make([]models.RawRecord, 0, len(dividends))
	for _, d := range dividends {
		records = append(records, models.RawRecord{
			Indicator:    IndicatorDividends,
			Description:  "Rendimentos distribuídos mensalmente",
			DateLiteral:  d.ComDate,
			DateFallback: d.PaymentDate,
			ValueLiteral: d.Value,
		})
	}
	return records, nil
}

var _ interfaces.SourceAdapter = (*DividendAdapter)(nil)
