package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"StockLens/internal/cache"
	"StockLens/internal/model"
)

// SQLiteRecorder persists bars and signal history to a SQLite database.
// Stored series older than maxAge are reported as misses.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	maxAge time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, maxAge time.Duration, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read while a scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, maxAge: maxAge, log: log, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			code   TEXT NOT NULL,
			period TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume REAL,
			PRIMARY KEY (code, period, date)
		)`,

		`CREATE TABLE IF NOT EXISTS series_meta (
			code       TEXT NOT NULL,
			period     TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			bar_count  INTEGER NOT NULL,
			PRIMARY KEY (code, period)
		)`,

		`CREATE TABLE IF NOT EXISTS signal_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			code      TEXT NOT NULL,
			period    TEXT NOT NULL,
			bar_date  TEXT NOT NULL,
			kind      TEXT,
			source    TEXT,
			text      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_code_ts ON signal_history(code, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Name() string { return "sqlite" }

// Load returns the stored series, or cache.ErrMiss when it is absent or stale.
func (r *SQLiteRecorder) Load(ctx context.Context, code string, period model.Period) ([]model.OHLCV, error) {
	var fetchedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM series_meta WHERE code = ? AND period = ?`,
		code, string(period)).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("query series meta: %w", err)
	}
	if r.maxAge > 0 && r.now().Sub(time.Unix(fetchedAt, 0)) > r.maxAge {
		return nil, cache.ErrMiss
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT date, open, high, low, close, volume FROM bars
		 WHERE code = ? AND period = ? ORDER BY date`,
		code, string(period))
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var date string
		var b model.OHLCV
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		t, err := time.ParseInLocation(model.TimestampLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse bar date %q: %w", date, err)
		}
		b.Time = t
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, cache.ErrMiss
	}
	return bars, nil
}

// Store replaces the stored series for (code, period).
func (r *SQLiteRecorder) Store(ctx context.Context, code string, period model.Period, bars []model.OHLCV) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE code = ? AND period = ?`, code, string(period)); err != nil {
		return fmt.Errorf("clear bars: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bars
		(code, period, date, open, high, low, close, volume) VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, code, string(period), b.Time.Format(model.TimestampLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO series_meta
		(code, period, fetched_at, bar_count) VALUES (?,?,?,?)`,
		code, string(period), r.now().Unix(), len(bars)); err != nil {
		return fmt.Errorf("upsert meta: %w", err)
	}
	return tx.Commit()
}

// RecordSignals appends signal events to the history table.
func (r *SQLiteRecorder) RecordSignals(ctx context.Context, recs []SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().Unix()
	for _, rec := range recs {
		_, err := r.db.ExecContext(ctx, `INSERT INTO signal_history
			(timestamp, code, period, bar_date, kind, source, text)
			VALUES (?,?,?,?,?,?,?)`,
			now, rec.Code, string(rec.Period), rec.BarDate,
			string(rec.Event.Kind), rec.Event.Source, rec.Event.Text,
		)
		if err != nil {
			return fmt.Errorf("insert signal: %w", err)
		}
	}
	return nil
}

// SignalHistory returns the signals recorded for code since the given time, oldest first.
func (r *SQLiteRecorder) SignalHistory(ctx context.Context, code string, since time.Time) ([]SignalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT period, bar_date, kind, source, text
		FROM signal_history WHERE code = ? AND timestamp >= ? ORDER BY id`,
		code, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		rec := SignalRecord{Code: code}
		var period, kind string
		if err := rows.Scan(&period, &rec.BarDate, &kind, &rec.Event.Source, &rec.Event.Text); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		rec.Period = model.Period(period)
		rec.Event.Kind = model.SignalKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
