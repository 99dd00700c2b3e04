// Package models defines the data structures shared across fiisync
package models

import "time"

// Fund is a tracked real-estate fund. Rows are created by the catalog
// sync and are read-only to the series sync engine.
type Fund struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Manager   string    `json:"manager"`
	Admin     string    `json:"admin"`
	Sector    string    `json:"sector"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Indicator is a named metric type. Created lazily the first time an
// adapter reports a name the store has not seen.
type Indicator struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// IndicatorValue is the atomic time-series fact. The triple
// (FundID, IndicatorID, ReferenceDate) is unique in the store.
type IndicatorValue struct {
	FundID        int64     `json:"fund_id"`
	IndicatorID   int64     `json:"indicator_id"`
	ReferenceDate time.Time `json:"reference_date"`
	Value         float64   `json:"value"`
}

// Quote is a daily price bar for a fund. (FundID, Date) is unique.
type Quote struct {
	FundID   int64     `json:"fund_id"`
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Trades   int64     `json:"trades"`
	Quantity int64     `json:"quantity"`
	Volume   float64   `json:"volume"`
}

// Property is one row of a fund's real-estate portfolio detail.
// (FundID, Name) is unique; percentages are stored as 0-100 values.
type Property struct {
	FundID        int64   `json:"fund_id"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	AreaM2        float64 `json:"area_m2"`
	Units         int     `json:"units"`
	OccupancyRate float64 `json:"occupancy_rate"`
	DefaultRate   float64 `json:"default_rate"`
	RevenueShare  float64 `json:"revenue_share"`
}
