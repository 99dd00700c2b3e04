package fundamentus

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MatheusEger/fiisync/internal/models"
	"github.com/MatheusEger/fiisync/internal/normalize"
)

// PropertyRow is one entry of the portfolio table on a detail page,
// still in upstream literal encoding.
type PropertyRow struct {
	Name          string
	Address       string
	AreaM2        string
	Units         string
	OccupancyRate string
	DefaultRate   string
	RevenueShare  string
}

// GetProperties returns the portfolio breakdown rows for a ticker.
// Paper funds have no property table; that is an empty result.
func (c *Client) GetProperties(ctx context.Context, ticker string) ([]PropertyRow, error) {
	doc, err := c.fetchDocument(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return extractProperties(doc), nil
}

// extractProperties walks the imóveis table, skipping the header row.
func extractProperties(doc *goquery.Document) []PropertyRow {
	var rows []PropertyRow
	doc.Find("table#imoveis tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 7 {
			return
		}
		row := PropertyRow{
			Name:          strings.TrimSpace(cells.Eq(0).Text()),
			Address:       strings.TrimSpace(cells.Eq(1).Text()),
			AreaM2:        strings.TrimSpace(cells.Eq(2).Text()),
			Units:         strings.TrimSpace(cells.Eq(3).Text()),
			OccupancyRate: strings.TrimSpace(cells.Eq(4).Text()),
			DefaultRate:   strings.TrimSpace(cells.Eq(5).Text()),
			RevenueShare:  strings.TrimSpace(cells.Eq(6).Text()),
		}
		if row.Name != "" {
			rows = append(rows, row)
		}
	})
	return rows
}

// Normalize converts the literal row into a store-ready property for
// the given fund. Absent percentage fields normalize to zero.
func (r PropertyRow) Normalize(fundID int64) (models.Property, error) {
	area, err := normalize.ParseNumber(r.AreaM2)
	if err != nil {
		area = 0
	}

	units := 0
	if n, err := normalize.ParseNumber(r.Units); err == nil {
		units = int(n)
	}

	p := models.Property{
		FundID:  fundID,
		Name:    r.Name,
		Address: r.Address,
		AreaM2:  area,
		Units:   units,
	}
	if v, err := normalize.ParsePercent(r.OccupancyRate); err == nil {
		p.OccupancyRate = v
	}
	if v, err := normalize.ParsePercent(r.DefaultRate); err == nil {
		p.DefaultRate = v
	}
	if v, err := normalize.ParsePercent(r.RevenueShare); err == nil {
		p.RevenueShare = v
	}
	return p, nil
}
