package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"polymarket-trader/internal/models"
	"polymarket-trader/internal/performance"
)

// decisionBatchSize is how many buffered decisions trigger a write.
const decisionBatchSize = 32

// SQLiteJournal implements Journal on a local SQLite file. Decision
// writes are buffered and land in one transaction per batch; Flush and
// Close push out whatever is still pending.
type SQLiteJournal struct {
	db    *sql.DB
	batch *performance.BatchProcessor[Decision]
}

// NewSQLiteJournal opens (or creates) the journal database.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	j := &SQLiteJournal{db: db}
	j.batch = performance.NewBatchProcessor(decisionBatchSize, j.insertDecisions)

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

// initSchema creates all required tables and indexes.
func (j *SQLiteJournal) initSchema() error {
	schema := `
	-- Sessions table: one row per agent run
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		mode TEXT NOT NULL,
		model TEXT,
		state TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		tool_calls INTEGER NOT NULL,
		trade_count INTEGER NOT NULL,
		total_staked REAL NOT NULL,
		final_balance REAL NOT NULL,
		final_text TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Decisions table: tool calls the model issued, in call order
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		tool TEXT NOT NULL,
		arguments TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, seq)
	);

	-- Bets table: orders placed during a run, simulated or live
	CREATE TABLE IF NOT EXISTS bets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		placed_at DATETIME NOT NULL,
		market_slug TEXT NOT NULL,
		outcome TEXT NOT NULL,
		side TEXT NOT NULL,
		amount_usd REAL NOT NULL,
		price REAL NOT NULL,
		shares REAL NOT NULL,
		order_id TEXT,
		dry_run INTEGER DEFAULT 0,
		reasoning TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_mode ON sessions(mode);
	CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);
	CREATE INDEX IF NOT EXISTS idx_bets_session ON bets(session_id);
	CREATE INDEX IF NOT EXISTS idx_bets_market ON bets(market_slug);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Close flushes buffered decisions and closes the database connection.
func (j *SQLiteJournal) Close() error {
	if err := j.batch.Flush(); err != nil {
		j.db.Close()
		return err
	}
	return j.db.Close()
}

// ============================================================================
// Sessions Methods
// ============================================================================

// SaveSession writes one completed run. Saving the same session id again
// replaces the earlier row.
func (j *SQLiteJournal) SaveSession(ctx context.Context, rec *SessionRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, started_at, finished_at, mode, model, state, iterations, tool_calls, trade_count, total_staked, final_balance, final_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.StartedAt, rec.FinishedAt, rec.Mode, rec.Model, rec.State, rec.Iterations, rec.ToolCalls, rec.TradeCount, rec.TotalStaked, rec.FinalBalance, rec.FinalText)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Sessions retrieves journaled runs, newest first.
func (j *SQLiteJournal) Sessions(ctx context.Context, filter SessionFilter) ([]SessionRecord, error) {
	query := "SELECT id, started_at, finished_at, mode, model, state, iterations, tool_calls, trade_count, total_staked, final_balance, final_text FROM sessions WHERE 1=1"
	args := []interface{}{}

	if filter.Mode != "" {
		query += " AND mode = ?"
		args = append(args, filter.Mode)
	}
	if !filter.StartDate.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND started_at <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Mode, &r.Model, &r.State, &r.Iterations, &r.ToolCalls, &r.TradeCount, &r.TotalStaked, &r.FinalBalance, &r.FinalText); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// ============================================================================
// Decisions Methods
// ============================================================================

// LogDecision buffers one decision. A full batch lands in a single
// transaction; Flush or Close writes out the remainder.
func (j *SQLiteJournal) LogDecision(d Decision) error {
	return j.batch.Add(d)
}

// Flush writes any buffered decisions.
func (j *SQLiteJournal) Flush() error {
	return j.batch.Flush()
}

// insertDecisions is the batch processor sink.
func (j *SQLiteJournal) insertDecisions(decisions []Decision) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO decisions (session_id, seq, tool, arguments)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		if _, err := stmt.Exec(d.SessionID, d.Seq, d.Tool, d.Arguments); err != nil {
			return fmt.Errorf("failed to insert decision: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Decisions retrieves the decision trail of one session in call order.
func (j *SQLiteJournal) Decisions(ctx context.Context, sessionID string) ([]Decision, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, seq, tool, arguments
		FROM decisions
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.SessionID, &d.Seq, &d.Tool, &d.Arguments); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

// ============================================================================
// Bets Methods
// ============================================================================

// SaveBets writes the bets of one session.
func (j *SQLiteJournal) SaveBets(ctx context.Context, sessionID string, bets []models.SessionTrade) error {
	if len(bets) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bets (session_id, placed_at, market_slug, outcome, side, amount_usd, price, shares, order_id, dry_run, reasoning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bets {
		dryRun := 0
		if b.DryRun {
			dryRun = 1
		}
		_, err := stmt.ExecContext(ctx, sessionID, b.Timestamp, b.MarketSlug, b.Outcome, string(b.Side), b.AmountUSD, b.Price, b.Shares, b.OrderID, dryRun, b.Reasoning)
		if err != nil {
			return fmt.Errorf("failed to insert bet: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Bets retrieves journaled bets, newest first.
func (j *SQLiteJournal) Bets(ctx context.Context, filter BetFilter) ([]models.SessionTrade, error) {
	query := "SELECT placed_at, market_slug, outcome, side, amount_usd, price, shares, order_id, dry_run, reasoning FROM bets WHERE 1=1"
	args := []interface{}{}

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.MarketSlug != "" {
		query += " AND market_slug = ?"
		args = append(args, filter.MarketSlug)
	}
	if filter.DryRun != nil {
		dryRun := 0
		if *filter.DryRun {
			dryRun = 1
		}
		query += " AND dry_run = ?"
		args = append(args, dryRun)
	}

	query += " ORDER BY placed_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []models.SessionTrade
	for rows.Next() {
		var b models.SessionTrade
		var side string
		var dryRun int
		if err := rows.Scan(&b.Timestamp, &b.MarketSlug, &b.Outcome, &side, &b.AmountUSD, &b.Price, &b.Shares, &b.OrderID, &dryRun, &b.Reasoning); err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		b.Side = models.Side(side)
		b.DryRun = dryRun == 1
		bets = append(bets, b)
	}

	return bets, rows.Err()
}
