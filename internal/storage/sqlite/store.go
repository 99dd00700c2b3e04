// Package sqlite provides the SQLite-backed persistence layer for the
// sync engine. Exactly-once semantics rest on the store's uniqueness
// constraints: duplicate inserts are absorbed with INSERT OR IGNORE
// and reported as a skip outcome, never as an error.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MatheusEger/fiisync/internal/common"
	"github.com/MatheusEger/fiisync/internal/interfaces"
	"github.com/MatheusEger/fiisync/internal/models"
)

const dateLayout = "2006-01-02"

// Store implements interfaces.Store on a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *common.Logger
}

// Open opens (creating if needed) the database at path, enables WAL
// and foreign keys, and bootstraps the schema.
func Open(path string, logger *common.Logger) (*Store, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug().Str("path", path).Msg("SQLite store opened")
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateSector returns the id for a sector name, inserting it on
// first sight.
func (s *Store) GetOrCreateSector(ctx context.Context, name string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sectors (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("failed to insert sector %q: %w", name, err)
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sectors WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve sector %q: %w", name, err)
	}
	return id, nil
}

// UpsertFund inserts a fund by ticker or refreshes its catalog fields.
// The fund's ID is filled in on return.
func (s *Store) UpsertFund(ctx context.Context, fund *models.Fund) error {
	var sectorID interface{}
	if fund.Sector != "" {
		id, err := s.GetOrCreateSector(ctx, fund.Sector)
		if err != nil {
			return err
		}
		sectorID = id
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO funds (ticker, name, manager, admin, sector_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			manager = excluded.manager,
			admin = excluded.admin,
			sector_id = excluded.sector_id,
			active = excluded.active`,
		fund.Ticker, fund.Name, fund.Manager, fund.Admin, sectorID,
		boolToInt(fund.Active), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert fund %s: %w", fund.Ticker, err)
	}

	if id, err := res.LastInsertId(); err == nil && id > 0 {
		fund.ID = id
	}
	// The upsert path reports the replaced rowid inconsistently across
	// driver versions, so resolve the id by ticker.
	return s.db.QueryRowContext(ctx,
		`SELECT id FROM funds WHERE ticker = ?`, fund.Ticker).Scan(&fund.ID)
}

// ListActiveFunds returns the active funds in stable ticker order.
func (s *Store) ListActiveFunds(ctx context.Context) ([]models.Fund, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.ticker, f.name, f.manager, f.admin,
		       COALESCE(sec.name, ''), f.active
		FROM funds f
		LEFT JOIN sectors sec ON sec.id = f.sector_id
		WHERE f.active = 1
		ORDER BY f.ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var funds []models.Fund
	for rows.Next() {
		var f models.Fund
		var active int
		if err := rows.Scan(&f.ID, &f.Ticker, &f.Name, &f.Manager, &f.Admin, &f.Sector, &active); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		f.Active = active != 0
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

// GetFundByTicker returns one fund, or nil when the ticker is unknown.
func (s *Store) GetFundByTicker(ctx context.Context, ticker string) (*models.Fund, error) {
	var f models.Fund
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT f.id, f.ticker, f.name, f.manager, f.admin,
		       COALESCE(sec.name, ''), f.active
		FROM funds f
		LEFT JOIN sectors sec ON sec.id = f.sector_id
		WHERE f.ticker = ?`, ticker).
		Scan(&f.ID, &f.Ticker, &f.Name, &f.Manager, &f.Admin, &f.Sector, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund %s: %w", ticker, err)
	}
	f.Active = active != 0
	return &f, nil
}

// GetOrCreateIndicator returns the id for an indicator name, creating
// the row on first sight. INSERT OR IGNORE plus a fresh SELECT keeps
// this safe when called concurrently: the uniqueness constraint on
// name is the serialization point.
func (s *Store) GetOrCreateIndicator(ctx context.Context, name, description string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO indicators (name, description) VALUES (?, ?)`,
		name, description); err != nil {
		return 0, fmt.Errorf("failed to insert indicator %q: %w", name, err)
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM indicators WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve indicator %q: %w", name, err)
	}
	return id, nil
}

// LatestReferenceDate returns the watermark for (fund, indicator): the
// max reference date already persisted, and whether one exists.
func (s *Store) LatestReferenceDate(ctx context.Context, fundID, indicatorID int64) (time.Time, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(reference_date) FROM indicator_values
		WHERE fund_id = ? AND indicator_id = ?`, fundID, indicatorID).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query watermark: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}

	d, err := time.Parse(dateLayout, latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse stored watermark %q: %w", latest.String, err)
	}
	return d, true, nil
}

// InsertIndicatorValue writes one time-series fact. A row already
// present for the (fund, indicator, reference date) triple is a
// skip outcome, not an error.
func (s *Store) InsertIndicatorValue(ctx context.Context, value models.IndicatorValue) (interfaces.PersistOutcome, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO indicator_values (fund_id, indicator_id, reference_date, value)
		VALUES (?, ?, ?, ?)`,
		value.FundID, value.IndicatorID, value.ReferenceDate.Format(dateLayout), value.Value)
	if err != nil {
		return 0, fmt.Errorf("failed to insert indicator value: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert outcome: %w", err)
	}
	if n == 0 {
		return interfaces.SkippedDuplicate, nil
	}
	return interfaces.Inserted, nil
}

// LatestQuoteDate returns the newest stored quote date for a fund.
func (s *Store) LatestQuoteDate(ctx context.Context, fundID int64) (time.Time, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM quotes WHERE fund_id = ?`, fundID).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query quote watermark: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}

	d, err := time.Parse(dateLayout, latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse stored quote date %q: %w", latest.String, err)
	}
	return d, true, nil
}

// InsertQuote writes one daily bar, absorbing duplicates.
func (s *Store) InsertQuote(ctx context.Context, quote models.Quote) (interfaces.PersistOutcome, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO quotes
			(fund_id, date, close, open, high, low, trades, quantity, volume, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote.FundID, quote.Date.Format(dateLayout),
		quote.Close, quote.Open, quote.High, quote.Low,
		quote.Trades, quote.Quantity, quote.Volume,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert quote: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert outcome: %w", err)
	}
	if n == 0 {
		return interfaces.SkippedDuplicate, nil
	}
	return interfaces.Inserted, nil
}

// InsertProperty writes one portfolio row, absorbing duplicates.
func (s *Store) InsertProperty(ctx context.Context, property models.Property) (interfaces.PersistOutcome, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO properties
			(fund_id, name, address, area_m2, units, occupancy_rate, default_rate, revenue_share)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		property.FundID, property.Name, property.Address, property.AreaM2,
		property.Units, property.OccupancyRate, property.DefaultRate, property.RevenueShare)
	if err != nil {
		return 0, fmt.Errorf("failed to insert property: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert outcome: %w", err)
	}
	if n == 0 {
		return interfaces.SkippedDuplicate, nil
	}
	return interfaces.Inserted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ interfaces.Store = (*Store)(nil)
