package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// maxDegradedRows caps the persisted degraded-question log.
const maxDegradedRows = 100

const schema = `
CREATE TABLE IF NOT EXISTS answer_kind_stats (
	date TEXT NOT NULL,
	kind TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, kind)
);

CREATE TABLE IF NOT EXISTS answer_latency_stats (
	date TEXT NOT NULL,
	bucket TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, bucket)
);

CREATE TABLE IF NOT EXISTS intent_counts (
	intent TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0,
	last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS degraded_questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	asked_at TIMESTAMP NOT NULL
);
`

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create telemetry schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) upsertDaily(table, column, date string, counts map[string]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (date, %s, count) VALUES (?, ?, ?)
		ON CONFLICT(date, %s) DO UPDATE SET count = count + excluded.count
	`, table, column, column))
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for key, n := range counts {
		if _, err := stmt.Exec(date, key, n); err != nil {
			return fmt.Errorf("upsert %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveKindCounts adds counts to the day's per-kind totals.
func (s *SQLiteStore) SaveKindCounts(date string, counts map[string]int64) error {
	return s.upsertDaily("answer_kind_stats", "kind", date, counts)
}

// SaveLatencyCounts adds counts to the day's latency histogram.
func (s *SQLiteStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	m := make(map[string]int64, len(counts))
	for b, n := range counts {
		m[string(b)] = n
	}
	return s.upsertDaily("answer_latency_stats", "bucket", date, m)
}

// UpsertIntentCounts adds to the all-time intent totals.
func (s *SQLiteStore) UpsertIntentCounts(counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO intent_counts (intent, count, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(intent) DO UPDATE SET count = count + excluded.count, last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for intent, n := range counts {
		if _, err := stmt.Exec(intent, n); err != nil {
			return fmt.Errorf("upsert intent count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddDegradedQuestion logs a question whose answer was degraded, keeping
// the newest maxDegradedRows.
func (s *SQLiteStore) AddDegradedQuestion(question string, at time.Time) error {
	if _, err := s.db.Exec(`INSERT INTO degraded_questions (question, asked_at) VALUES (?, ?)`, question, at.UTC()); err != nil {
		return fmt.Errorf("insert degraded question: %w", err)
	}
	_, err := s.db.Exec(`
		DELETE FROM degraded_questions
		WHERE id NOT IN (SELECT id FROM degraded_questions ORDER BY id DESC LIMIT ?)
	`, maxDegradedRows)
	if err != nil {
		return fmt.Errorf("trim degraded questions: %w", err)
	}
	return nil
}

// KindCounts sums per-kind counts over [from, to] (YYYY-MM-DD, inclusive).
func (s *SQLiteStore) KindCounts(from, to string) (map[string]int64, error) {
	return s.sumDaily("answer_kind_stats", "kind", from, to)
}

// LatencyCounts sums the latency histogram over [from, to].
func (s *SQLiteStore) LatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	raw, err := s.sumDaily("answer_latency_stats", "bucket", from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[LatencyBucket]int64, len(raw))
	for k, n := range raw {
		out[LatencyBucket(k)] = n
	}
	return out, nil
}

func (s *SQLiteStore) sumDaily(table, column, from, to string) (map[string]int64, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s, SUM(count) FROM %s
		WHERE date >= ? AND date <= ?
		GROUP BY %s
	`, column, table, column), from, to)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

// TopIntents returns the limit most asked intents.
func (s *SQLiteStore) TopIntents(limit int) ([]IntentCount, error) {
	rows, err := s.db.Query(`SELECT intent, count FROM intent_counts ORDER BY count DESC, intent LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top intents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []IntentCount
	for rows.Next() {
		var ic IntentCount
		if err := rows.Scan(&ic.Intent, &ic.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}

// DegradedQuestions returns up to limit logged questions, newest first.
func (s *SQLiteStore) DegradedQuestions(limit int) ([]string, error) {
	rows, err := s.db.Query(`SELECT question FROM degraded_questions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query degraded questions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
