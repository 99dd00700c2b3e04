package sqlite

import "fmt"

const schema = `
CREATE TABLE IF NOT EXISTS sectors (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS funds (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker     TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	manager    TEXT NOT NULL DEFAULT '',
	admin      TEXT NOT NULL DEFAULT '',
	sector_id  INTEGER REFERENCES sectors(id),
	active     INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS indicators (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS indicator_values (
	fund_id        INTEGER NOT NULL REFERENCES funds(id),
	indicator_id   INTEGER NOT NULL REFERENCES indicators(id),
	reference_date TEXT NOT NULL,
	value          REAL NOT NULL,
	UNIQUE (fund_id, indicator_id, reference_date)
);

CREATE INDEX IF NOT EXISTS idx_indicator_values_lookup
	ON indicator_values (fund_id, indicator_id, reference_date);

CREATE TABLE IF NOT EXISTS quotes (
	fund_id    INTEGER NOT NULL REFERENCES funds(id),
	date       TEXT NOT NULL,
	close      REAL NOT NULL,
	open       REAL,
	high       REAL,
	low        REAL,
	trades     INTEGER,
	quantity   INTEGER,
	volume     REAL,
	created_at TEXT NOT NULL,
	UNIQUE (fund_id, date)
);

CREATE TABLE IF NOT EXISTS properties (
	fund_id        INTEGER NOT NULL REFERENCES funds(id),
	name           TEXT NOT NULL,
	address        TEXT NOT NULL DEFAULT '',
	area_m2        REAL,
	units          INTEGER,
	occupancy_rate REAL,
	default_rate   REAL,
	revenue_share  REAL,
	UNIQUE (fund_id, name)
);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
