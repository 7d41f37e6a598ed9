package tape

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBTape はインメモリの DuckDB に記録を保持するテープ
type DuckDBTape struct {
	db         *sql.DB
	perSession int
}

// NewDuckDBTape は新しい DuckDB テープを作成する
//
// DSN が空なのでデータベースはプロセスのメモリ上にのみ作られる。
func NewDuckDBTape(perSession int) (*DuckDBTape, error) {
	if perSession <= 0 {
		perSession = DefaultLimit
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	// インメモリDBを全ての接続で共有する
	db.SetMaxOpenConns(1)

	tape := &DuckDBTape{
		db:         db,
		perSession: perSession,
	}

	if err := tape.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return tape, nil
}

// initSchema はテーブルを作成する
func (t *DuckDBTape) initSchema() error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS tape_seq START 1`,
		`CREATE TABLE IF NOT EXISTS tape (
			seq BIGINT DEFAULT nextval('tape_seq'),
			session VARCHAR NOT NULL,
			expression VARCHAR NOT NULL,
			result VARCHAR NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tape_session ON tape(session)`,
	}
	for _, stmt := range statements {
		if _, err := t.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append は記録を追加し、上限を超えた古い記録を削除する
func (t *DuckDBTape) Append(ctx context.Context, entry Entry) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO tape (session, expression, result, recorded_at) VALUES (?, ?, ?, ?)`,
		entry.Session, entry.Expression, entry.Result, entry.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert tape entry: %w", err)
	}

	_, err = t.db.ExecContext(ctx,
		`DELETE FROM tape WHERE session = ? AND seq NOT IN (
			SELECT seq FROM tape WHERE session = ? ORDER BY seq DESC LIMIT ?
		)`,
		entry.Session, entry.Session, t.perSession)
	if err != nil {
		log.Printf("Warning: failed to prune tape for session: %v", err)
	}
	return nil
}

// Recent は新しい順に記録を返す
func (t *DuckDBTape) Recent(ctx context.Context, session string, limit int) ([]Entry, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT expression, result, recorded_at FROM tape
		 WHERE session = ? ORDER BY seq DESC LIMIT ?`,
		session, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query tape: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry := Entry{Session: session}
		if err := rows.Scan(&entry.Expression, &entry.Result, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tape entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Forget はセッションの記録を削除する
func (t *DuckDBTape) Forget(ctx context.Context, session string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM tape WHERE session = ?`, session); err != nil {
		return fmt.Errorf("failed to delete tape entries: %w", err)
	}
	return nil
}

// Close はデータベースを閉じる
func (t *DuckDBTape) Close() error {
	return t.db.Close()
}
