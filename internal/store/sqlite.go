package store

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"fvgscan/pkg/model"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists scan runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[STORE] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			start_date  TEXT,
			end_date    TEXT,
			tickers     TEXT,
			row_count   INTEGER,
			error_count INTEGER,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS labeled_candles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			date        TEXT NOT NULL,
			open        REAL,
			high        REAL,
			low         REAL,
			close       REAL,
			volume      INTEGER,
			body_size   REAL,
			upper_wick  REAL,
			lower_wick  REAL,
			direction   INTEGER,
			bullish_fvg INTEGER,
			bearish_fvg INTEGER,
			status      TEXT,
			proximity   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candles_ticker_date ON labeled_candles(ticker, date)`,
		`CREATE INDEX IF NOT EXISTS idx_candles_status ON labeled_candles(status)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run header and all of its rows in one transaction
func (r *SQLiteRecorder) RecordRun(result *model.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs
		(id, timestamp, start_date, end_date, tickers, row_count, error_count, duration_ms)
		VALUES (?,?,?,?,?,?,?,?)`,
		result.RunID, time.Now().Unix(),
		result.Start.Format(dateLayout), result.End.Format(dateLayout),
		strings.Join(result.Tickers, ","), len(result.Rows), len(result.Errors),
		result.ScanTime.Milliseconds(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO labeled_candles
		(run_id, ticker, date, open, high, low, close, volume,
		 body_size, upper_wick, lower_wick, direction,
		 bullish_fvg, bearish_fvg, status, proximity)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range result.Rows {
		if _, err := stmt.Exec(
			result.RunID, c.Ticker, c.Time.Format(dateLayout),
			c.Open, c.High, c.Low, c.Close, c.Volume,
			c.BodySize, c.UpperWick, c.LowerWick, c.Direction,
			c.BullishFVG, c.BearishFVG, c.Status.String(), c.Proximity.String(),
		); err != nil {
			return fmt.Errorf("insert %s %s: %w", c.Ticker, c.Time.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[STORE] recorded run %s (%d rows)", result.RunID, len(result.Rows))
	return nil
}

// RecentGaps returns gap candles newest first. A candle seen by several runs
// is judged by its latest row only, so a later relabel to No FVG hides it.
func (r *SQLiteRecorder) RecentGaps(ticker string, limit int) ([]Gap, error) {
	if limit <= 0 {
		limit = 20
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	rows, err := r.db.Query(`SELECT c.id, c.run_id, c.ticker, c.date, c.open, c.high, c.low, c.close, c.status, c.proximity
		FROM labeled_candles c
		JOIN (
			SELECT MAX(id) AS id FROM labeled_candles
			WHERE (? = '' OR ticker = ?)
			GROUP BY ticker, date
		) latest ON latest.id = c.id
		WHERE c.status != ?
		ORDER BY c.date DESC, c.ticker
		LIMIT ?`,
		ticker, ticker, model.NoFVG.String(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gaps []Gap
	for rows.Next() {
		var (
			id                int64
			g                 Gap
			date, status, prx string
		)
		if err := rows.Scan(&id, &g.RunID, &g.Ticker, &date, &g.Open, &g.High, &g.Low, &g.Close, &status, &prx); err != nil {
			return nil, err
		}
		if g.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, err
		}
		if err := g.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, err
		}
		if err := g.Proximity.UnmarshalText([]byte(prx)); err != nil {
			return nil, err
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

// Close closes the database
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
