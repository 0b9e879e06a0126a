// Package store persists embedding vectors and match-run outputs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aue-natural/pricewatch/internal/model"
)

// SQLiteStore implements run persistence and the embedding cache's backing
// store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS embeddings (
	key        TEXT PRIMARY KEY,
	vector     BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS match_runs (
	id         TEXT PRIMARY KEY,
	summary    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS match_pairs (
	run_id  TEXT NOT NULL REFERENCES match_runs(id),
	seq     INTEGER NOT NULL,
	pair    TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS unmatched_products (
	run_id  TEXT NOT NULL REFERENCES match_runs(id),
	seq     INTEGER NOT NULL,
	record  TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_match_runs_created_at ON match_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements embed.Store.
func (s *SQLiteStore) Get(key string) ([]float32, bool, error) {
	row := s.db.QueryRow(`SELECT vector FROM embeddings WHERE key = ?`, key)

	var blob []byte
	err := row.Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get embedding")
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put implements embed.Store.
func (s *SQLiteStore) Put(key string, vec []float32) error {
	_, err := s.db.Exec(
		`INSERT INTO embeddings (key, vector, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET vector = excluded.vector`,
		key, encodeVector(vec), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: put embedding")
}

// Flush implements embed.Store. SQLite commits per statement, so there is
// nothing buffered to write.
func (s *SQLiteStore) Flush() error { return nil }

// EmbeddingCount returns the number of cached embedding vectors.
func (s *SQLiteStore) EmbeddingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count embeddings")
}

// SaveRun persists a completed match run atomically: the summary, every
// pair, and every unmatched record commit together or not at all.
func (s *SQLiteStore) SaveRun(ctx context.Context, summary model.RunSummary, pairs []model.MatchPair, unmatched []model.UnmatchedRecord) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin run transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO match_runs (id, summary, created_at) VALUES (?, ?, ?)`,
		summary.RunID, string(summaryJSON), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	for i, p := range pairs {
		pairJSON, err := json.Marshal(p)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal pair")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_pairs (run_id, seq, pair) VALUES (?, ?, ?)`,
			summary.RunID, i, string(pairJSON),
		); err != nil {
			return eris.Wrap(err, "sqlite: insert pair")
		}
	}

	for i, u := range unmatched {
		recordJSON, err := json.Marshal(u)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal unmatched record")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unmatched_products (run_id, seq, record) VALUES (?, ?, ?)`,
			summary.RunID, i, string(recordJSON),
		); err != nil {
			return eris.Wrap(err, "sqlite: insert unmatched record")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

// LatestRunID returns the ID of the most recent run, or "" when none exist.
func (s *SQLiteStore) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM match_runs ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, eris.Wrap(err, "sqlite: latest run id")
}

// LoadRun reads a persisted run back in full.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (model.RunSummary, []model.MatchPair, []model.UnmatchedRecord, error) {
	var summary model.RunSummary

	var summaryJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT summary FROM match_runs WHERE id = ?`, runID,
	).Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return summary, nil, nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	if err != nil {
		return summary, nil, nil, eris.Wrap(err, "sqlite: load run")
	}
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return summary, nil, nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}

	pairs, err := s.loadPairs(ctx, runID)
	if err != nil {
		return summary, nil, nil, err
	}
	unmatched, err := s.loadUnmatched(ctx, runID)
	if err != nil {
		return summary, nil, nil, err
	}
	return summary, pairs, unmatched, nil
}

func (s *SQLiteStore) loadPairs(ctx context.Context, runID string) ([]model.MatchPair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pair FROM match_pairs WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query pairs")
	}
	defer rows.Close()

	var pairs []model.MatchPair
	for rows.Next() {
		var pairJSON string
		if err := rows.Scan(&pairJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pair")
		}
		var p model.MatchPair
		if err := json.Unmarshal([]byte(pairJSON), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal pair")
		}
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "sqlite: iterate pairs")
}

func (s *SQLiteStore) loadUnmatched(ctx context.Context, runID string) ([]model.UnmatchedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM unmatched_products WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query unmatched")
	}
	defer rows.Close()

	var unmatched []model.UnmatchedRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan unmatched record")
		}
		var u model.UnmatchedRecord
		if err := json.Unmarshal([]byte(recordJSON), &u); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal unmatched record")
		}
		unmatched = append(unmatched, u)
	}
	return unmatched, eris.Wrap(rows.Err(), "sqlite: iterate unmatched")
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, eris.Errorf("sqlite: malformed vector blob of %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
