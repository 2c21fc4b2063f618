// Package history provides SQLite-based storage for agent queries and tool calls.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Schema is the SQLite schema for the agent history.
const Schema = `
CREATE TABLE IF NOT EXISTS queries (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    query       TEXT NOT NULL,
    response    TEXT,
    model       TEXT,
    tokens_in   INTEGER DEFAULT 0,
    tokens_out  INTEGER DEFAULT 0,
    cost        REAL DEFAULT 0,
    created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tool_calls (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    query_id    INTEGER NOT NULL REFERENCES queries(id),
    server      TEXT NOT NULL,
    tool        TEXT NOT NULL,
    arguments   TEXT,
    result      TEXT,
    is_error    INTEGER DEFAULT 0,
    created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_queries_created ON queries(created_at);
CREATE INDEX IF NOT EXISTS idx_tool_calls_query ON tool_calls(query_id);
`

// QueryRecord is a logged agent query with its final response.
type QueryRecord struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	TokensIn  int       `json:"tokens_in"`
	TokensOut int       `json:"tokens_out"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}

// ToolCallRecord is a single tool invocation made while answering a query.
type ToolCallRecord struct {
	ID        int64          `json:"id"`
	QueryID   int64          `json:"query_id"`
	Server    string         `json:"server"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    string         `json:"result"`
	IsError   bool           `json:"is_error"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store provides agent history persistence.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveQuery stores a completed query and returns its id.
func (s *Store) SaveQuery(ctx context.Context, rec *QueryRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO queries (query, response, model, tokens_in, tokens_out, cost)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Query, rec.Response, rec.Model, rec.TokensIn, rec.TokensOut, rec.Cost)
	if err != nil {
		return 0, fmt.Errorf("save query: %w", err)
	}
	return result.LastInsertId()
}

// SaveToolCall stores a tool invocation under a query.
func (s *Store) SaveToolCall(ctx context.Context, rec *ToolCallRecord) error {
	args, _ := json.Marshal(rec.Arguments)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (query_id, server, tool, arguments, result, is_error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.QueryID, rec.Server, rec.Tool, string(args), rec.Result, rec.IsError)
	if err != nil {
		return fmt.Errorf("save tool call: %w", err)
	}
	return nil
}

// RecentQueries returns the most recent queries, newest first.
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, response, model, tokens_in, tokens_out, cost, created_at
		FROM queries ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Response, &rec.Model,
			&rec.TokensIn, &rec.TokensOut, &rec.Cost, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ToolCallsFor returns the tool invocations recorded for a query.
func (s *Store) ToolCallsFor(ctx context.Context, queryID int64) ([]ToolCallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query_id, server, tool, arguments, result, is_error, created_at
		FROM tool_calls WHERE query_id = ? ORDER BY id
	`, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToolCallRecord
	for rows.Next() {
		var rec ToolCallRecord
		var argsJSON string
		var isError int
		if err := rows.Scan(&rec.ID, &rec.QueryID, &rec.Server, &rec.Tool,
			&argsJSON, &rec.Result, &isError, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.IsError = isError != 0
		json.Unmarshal([]byte(argsJSON), &rec.Arguments)
		out = append(out, rec)
	}
	return out, rows.Err()
}
