package fundamentus

import (
	"context"
	"strings"
	"time"

	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
)

// IndicatorCapRate is the indicator name cap-rate records persist
// under.
const IndicatorCapRate = "Cap Rate"

// CapRateAdapter exposes the cap-rate scrape through the common
// source-adapter contract. The page carries no reference date, so
// records are dated at the run day.
type CapRateAdapter struct {
	client *Client
	now    func() time.Time
}

// NewCapRateAdapter wraps a client as a SourceAdapter.
func NewCapRateAdapter(client *Client) *CapRateAdapter {
	return &CapRateAdapter{client: client, now: time.Now}
}

// Name identifies the adapter.
func (a *CapRateAdapter) Name() string {
	return "fundamentus-caprate"
}

// Snapshot is true: the cap rate is a current value dated at the run
// day, not a closed monthly series.
func (a *CapRateAdapter) Snapshot() bool {
	return true
}

// Fetch returns at most one record: the current cap rate. Pages
// without the metric yield an empty result.
func (a *CapRateAdapter) Fetch(ctx context.Context, fund models.Fund, _ interfaces.Lookback) ([]models.RawRecord, error) {
	value, err := a.client.GetCapRate(ctx, fund.Ticker)
	if err != nil {
		return nil, err
	}
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if value == "" {
		return nil, nil
	}

	return []models.RawRecord{{
		Indicator:    IndicatorCapRate,
		Description:  "Receita anual de aluguéis sobre o valor dos imóveis",
		DateLiteral:  a.now().Format("02/01/2006"),
		ValueLiteral: value,
	}}, nil
}

var _ interfaces.SourceAdapter = (*CapRateAdapter)(nil)
