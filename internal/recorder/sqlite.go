package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"market-stats/internal/asset"
	"market-stats/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
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
	slog.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started     INTEGER NOT NULL,
			finished    INTEGER NOT NULL,
			provider    TEXT,
			range_from  TEXT,
			range_to    TEXT,
			instruments INTEGER,
			assets      INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started)`,

		`CREATE TABLE IF NOT EXISTS fetch_failures (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     INTEGER NOT NULL REFERENCES runs(id),
			symbol     TEXT NOT NULL,
			range_from TEXT,
			range_to   TEXT,
			reason     TEXT,
			fell_back  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_symbol ON fetch_failures(symbol)`,

		`CREATE TABLE IF NOT EXISTS asset_stats (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id           INTEGER NOT NULL REFERENCES runs(id),
			symbol           TEXT NOT NULL,
			frequency        TEXT,
			period_start     TEXT,
			period_end       TEXT,
			observations     INTEGER,
			start_price      REAL,
			end_price        REAL,
			total_return     REAL,
			cagr             REAL,
			volatility       REAL,
			max_drawdown     REAL,
			autocorr_daily   REAL,
			autocorr_monthly REAL,
			autocorr_yearly  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_symbol ON asset_stats(symbol)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord, stats []asset.MetricResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rs, err := tx.Exec(`INSERT INTO runs
		(started, finished, provider, range_from, range_to, instruments, assets, failed)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.Started.Unix(), run.Finished.Unix(), run.Provider,
		dateText(run.Range.From), dateText(run.Range.To),
		run.Instruments, run.Assets, len(run.Failures),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := rs.LastInsertId()
	if err != nil {
		return err
	}

	for _, f := range run.Failures {
		if _, err := tx.Exec(`INSERT INTO fetch_failures
			(run_id, symbol, range_from, range_to, reason, fell_back)
			VALUES (?,?,?,?,?,?)`,
			runID, f.Symbol, dateText(f.Range.From), dateText(f.Range.To), f.Reason, f.FellBack,
		); err != nil {
			return fmt.Errorf("insert failure %s: %w", f.Symbol, err)
		}
	}

	for _, s := range stats {
		if _, err := tx.Exec(`INSERT INTO asset_stats
			(run_id, symbol, frequency, period_start, period_end, observations,
			 start_price, end_price, total_return, cagr, volatility, max_drawdown,
			 autocorr_daily, autocorr_monthly, autocorr_yearly)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			runID, s.Symbol, string(s.Frequency), dateText(s.Start), dateText(s.End), s.Observations,
			nullFloat(s.StartPrice), nullFloat(s.EndPrice), nullFloat(s.TotalReturn), nullFloat(s.CAGR),
			nullFloat(s.Volatility), nullFloat(s.MaxDrawdown),
			nullFloat(s.AutocorrDaily), nullFloat(s.AutocorrMonthly), nullFloat(s.AutocorrYearly),
		); err != nil {
			return fmt.Errorf("insert stats %s: %w", s.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	slog.Info("closing sqlite recorder")
	return r.db.Close()
}

// nullFloat maps NaN and infinities to NULL.
func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func dateText(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(model.DateFormat), Valid: true}
}
