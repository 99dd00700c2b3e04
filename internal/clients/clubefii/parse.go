package clubefii

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot holds the metric literals extracted from one rendered fund
// page. Fields the page does not show stay empty; a partially filled
// snapshot is normal, never an error.
type Snapshot struct {
	RefDate string // dd/mm/yyyy, empty when the page shows none

	PVP   string
	DY1M  string
	DY3M  string
	DY6M  string
	DY12M string

	VacancyM2   string
	OccupancyM2 string
}

var (
	refDateRe = regexp.MustCompile(`Data Referência:\s*(\d{2}/\d{2}/\d{4})`)
	areaRe    = regexp.MustCompile(`([\d\.]+,\d{2})\s*m²`)
)

// Parse extracts the indicator snapshot from a rendered document.
func Parse(html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	snap := &Snapshot{}

	// Headline table: P/VP.
	doc.Find("table#primaryTable tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(row.Find("th").First().Text()))
		value := strings.TrimSpace(row.Find("td").First().Text())
		if value == "" {
			return
		}
		if strings.Contains(name, "p/vp") {
			snap.PVP = value
		}
	})

	// Accumulated dividend-yield windows.
	doc.Find(`li[onclick*="abre_secao_proventos"] div.resp > div`).Each(func(_ int, div *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(div.Find("strong").First().Text()))
		value := strings.TrimSpace(div.Find("span").First().Text())
		if value == "" {
			return
		}
		value = strings.TrimSpace(strings.TrimSuffix(value, "%"))
		switch {
		case strings.Contains(label, "1 mês"):
			snap.DY1M = value
		case strings.Contains(label, "3 meses"):
			snap.DY3M = value
		case strings.Contains(label, "6 meses"):
			snap.DY6M = value
		case strings.Contains(label, "12 meses"):
			snap.DY12M = value
		}
	})

	// Page-level reference date next to the vacancy section.
	if span := doc.Find("div#vacancia > span").First(); span.Length() > 0 {
		if m := refDateRe.FindStringSubmatch(span.Text()); m != nil {
			snap.RefDate = m[1]
		}
	}

	// Vacancy and occupancy areas in m².
	info := doc.Find("div.info").First()
	if info.Length() > 0 {
		blocks := info.ChildrenFiltered("div")
		if blocks.Length() >= 1 {
			if m := areaRe.FindStringSubmatch(blocks.Eq(0).Find("span").Text()); m != nil {
				snap.VacancyM2 = m[1]
			}
		}
		if blocks.Length() >= 2 {
			if m := areaRe.FindStringSubmatch(blocks.Eq(1).Find("span").Text()); m != nil {
				snap.OccupancyM2 = m[1]
			}
		}
	}

	return snap, nil
}
