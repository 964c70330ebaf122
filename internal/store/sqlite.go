package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store 容器状态库：最近一次状态 + 状态变化记录
type Store struct {
	db *sql.DB
}

// ContainerState 某容器最近一次轮询到的状态
type ContainerState struct {
	Endpoint  string `json:"endpoint"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updated_at"`
}

// Transition 一次状态变化
type Transition struct {
	Endpoint string `json:"endpoint"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	From     string `json:"from"`
	To       string `json:"to"`
	At       int64  `json:"at"`
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// 单连接，避免 "database is locked"
	db.SetMaxOpenConns(1)
	_, _ = db.Exec("PRAGMA journal_mode=WAL;")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL;")

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS container_state (
  endpoint TEXT NOT NULL,
  id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (endpoint, id)
);

CREATE TABLE IF NOT EXISTS transitions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  endpoint TEXT NOT NULL,
  id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  from_state TEXT NOT NULL DEFAULT '',
  to_state TEXT NOT NULL DEFAULT '',
  at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);
`
	_, err := s.db.Exec(schema)
	return err
}

// LastStates 某 endpoint 下各容器最近状态，按容器 ID 索引
func (s *Store) LastStates(ctx context.Context, endpoint string) (map[string]ContainerState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT endpoint, id, name, state, status, updated_at FROM container_state WHERE endpoint = ?`, endpoint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]ContainerState{}
	for rows.Next() {
		var c ContainerState
		if err := rows.Scan(&c.Endpoint, &c.ID, &c.Name, &c.State, &c.Status, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// SaveStates 整体替换某 endpoint 的状态，并写入变化记录（同一事务）
func (s *Store) SaveStates(ctx context.Context, endpoint string, states []ContainerState, changes []Transition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM container_state WHERE endpoint = ?`, endpoint); err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, c := range states {
		ts := c.UpdatedAt
		if ts == 0 {
			ts = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO container_state(endpoint, id, name, state, status, updated_at) VALUES(?,?,?,?,?,?)`,
			endpoint, c.ID, c.Name, c.State, c.Status, ts); err != nil {
			return err
		}
	}
	for _, t := range changes {
		at := t.At
		if at == 0 {
			at = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transitions(endpoint, id, name, from_state, to_state, at) VALUES(?,?,?,?,?,?)`,
			endpoint, t.ID, t.Name, t.From, t.To, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentTransitions 最近的状态变化，新的在前
func (s *Store) RecentTransitions(ctx context.Context, limit int) ([]Transition, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT endpoint, id, name, from_state, to_state, at FROM transitions ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.Endpoint, &t.ID, &t.Name, &t.From, &t.To, &t.At); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
