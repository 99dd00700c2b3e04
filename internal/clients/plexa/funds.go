package plexa

import (
	"context"
	"errors"
	"fmt"
)

// FundSummary is the catalog entry /json/fundo returns for one fund,
// with the latest snapshot fields still in their upstream literal
// encoding (Brazilian separators, mm/yyyy month references).
type FundSummary struct {
	Ticker  string `json:"ticker"`
	Name    string `json:"nome"`
	Segment string `json:"segmento"`
	Manager string `json:"gestao"`
	Admin   string `json:"admin"`

	LastClose       string `json:"ultimoFechamento"`
	LastDividend    string `json:"ultimoRendValor"`
	LastYield       string `json:"ultimoRendYield"`
	PriceToBook     string `json:"cotaPatr"`
	ShareCount      string `json:"ultimaCotasQtd"`
	NetAssetValue   string `json:"ultimoPatrLiquido"`
	NetAssetDateRef string `json:"ultimoPlDataRef"`
	HolderCount     string `json:"UltimaQtdCotistas"`
	HolderCountRef  string `json:"UltimaQtdCotistasData"`
}

// ListFunds retrieves the full fund catalog with latest snapshots.
func (c *Client) ListFunds(ctx context.Context) ([]FundSummary, error) {
	var env envelope
	if err := c.get(ctx, "/json/fundo", &env); err != nil {
		return nil, err
	}

	var funds []FundSummary
	if err := env.decode(&funds); err != nil {
		return nil, fmt.Errorf("failed to decode fund catalog: %w", err)
	}

	c.logger.Debug().Int("funds", len(funds)).Msg("Plexa fund catalog retrieved")
	return funds, nil
}

// Dividend is one distribution record from /json/dividendo, in
// upstream literal encoding.
type Dividend struct {
	ComDate     string `json:"dataCom"`
	PaymentDate string `json:"dataPagamento"`
	Value       string `json:"valor"`
}

// GetDividends retrieves the dividend history for a ticker, looking
// back the given number of months. An unknown ticker yields an empty
// result, not an error.
func (c *Client) GetDividends(ctx context.Context, ticker string, months int) ([]Dividend, error) {
	path := fmt.Sprintf("/json/dividendo/%s/%d", ticker, months)

	var env envelope
	if err := c.get(ctx, path, &env); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug().Str("ticker", ticker).Msg("No dividends for ticker")
			return nil, nil
		}
		return nil, err
	}

	var dividends []Dividend
	if err := env.decode(&dividends); err != nil {
		return nil, fmt.Errorf("failed to decode dividends for %s: %w", ticker, err)
	}
	return dividends, nil
}

// HistoryBar is one daily price bar from /json/historico, in upstream
// literal encoding.
type HistoryBar struct {
	Date     string `json:"data"`
	Close    string `json:"fechamento"`
	Open     string `json:"abertura"`
	High     string `json:"maxima"`
	Low      string `json:"minima"`
	Trades   string `json:"totNegocios"`
	Quantity string `json:"qtdNegociada"`
	Volume   string `json:"volume"`
}

// GetHistory retrieves the daily price history for a ticker, looking
// back the given number of days. An unknown ticker yields an empty
// result, not an error.
func (c *Client) GetHistory(ctx context.Context, ticker string, days int) ([]HistoryBar, error) {
	path := fmt.Sprintf("/json/historico/%s/%d", ticker, days)

	var env envelope
	if err := c.get(ctx, path, &env); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug().Str("ticker", ticker).Msg("No history for ticker")
			return nil, nil
		}
		return nil, err
	}

	var bars []HistoryBar
	if err := env.decode(&bars); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", ticker, err)
	}
	return bars, nil
}
