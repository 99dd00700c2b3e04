package clubefii

import (
	"context"
	"strconv"
	"time"

	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
	"github.com/MatheusEger/fiisync/internal/normalize"
)

// Indicator names this source feeds.
const (
	IndicatorPVP          = "P/VP"
	IndicatorDY1M         = "Dividend Yield 1M"
	IndicatorDY3M         = "Dividend Yield 3M"
	IndicatorDY6M         = "Dividend Yield 6M"
	IndicatorDY12M        = "Dividend Yield 12M"
	IndicatorVacancyPct   = "Vacância Percentual"
	IndicatorVacancyM2    = "Vacância m²"
	IndicatorOccupancyPct = "Ocupação Percentual"
	IndicatorOccupancyM2  = "Ocupação m²"
)

// Adapter exposes rendered ClubeFII snapshots through the common
// source-adapter contract.
type Adapter struct {
	client *Client
	now    func() time.Time
}

// NewAdapter wraps a client as a SourceAdapter.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client, now: time.Now}
}

// Name identifies the adapter.
func (a *Adapter) Name() string {
	return "clubefii"
}

// Snapshot is true: the page reports current values dated at the run
// day (or the page's own reference date), not a closed monthly series.
func (a *Adapter) Snapshot() bool {
	return true
}

// Fetch renders the fund page and converts the extracted snapshot
// into raw records. Metrics absent from the page yield no record.
func (a *Adapter) Fetch(ctx context.Context, fund models.Fund, _ interfaces.Lookback) ([]models.RawRecord, error) {
	html, err := a.client.Render(ctx, fund.Ticker)
	if err != nil {
		return nil, err
	}

	snap, err := Parse(html)
	if err != nil {
		return nil, err
	}

	return snap.Records(a.now()), nil
}

// Records converts the snapshot into raw records dated by the page's
// reference date, falling back to the run day for pages without one.
func (s *Snapshot) Records(now time.Time) []models.RawRecord {
	fallback := now.Format("02/01/2006")

	var records []models.RawRecord
	add := func(indicator, value string) {
		if value == "" {
			return
		}
		records = append(records, models.RawRecord{
			Indicator:    indicator,
			DateLiteral:  s.RefDate,
			DateFallback: fallback,
			ValueLiteral: value,
		})
	}

	add(IndicatorPVP, s.PVP)
	add(IndicatorDY1M, s.DY1M)
	add(IndicatorDY3M, s.DY3M)
	add(IndicatorDY6M, s.DY6M)
	add(IndicatorDY12M, s.DY12M)
	add(IndicatorVacancyM2, s.VacancyM2)
	add(IndicatorOccupancyM2, s.OccupancyM2)

	// Percentages are derived from the two areas when both are known.
	vacancy, errV := normalize.ParseNumber(s.VacancyM2)
	occupancy, errO := normalize.ParseNumber(s.OccupancyM2)
	if errV == nil && errO == nil && vacancy+occupancy > 0 {
		total := vacancy + occupancy
		add(IndicatorVacancyPct, strconv.FormatFloat(vacancy/total*100, 'f', 2, 64))
		add(IndicatorOccupancyPct, strconv.FormatFloat(occupancy/total*100, 'f', 2, 64))
	}

	return records
}

var _ interfaces.SourceAdapter = (*Adapter)(nil)
