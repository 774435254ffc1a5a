package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"geocubes.app/internal/sim/world"
)

// SQLiteIndex is a best-effort read-model index of world mutations. Writes go
// through a dedicated goroutine so the world loop never blocks on the
// database; events are dropped when the queue is backed up.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan world.AuditEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	x := &SQLiteIndex{
		db: db,
		ch: make(chan world.AuditEvent, 256),
	}
	x.wg.Add(1)
	go x.run()
	return x, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS block_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			block_id INTEGER NOT NULL,
			client_id TEXT NOT NULL,
			lat REAL,
			lon REAL,
			reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_block_events_kind ON block_events(kind)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			client_id TEXT PRIMARY KEY,
			joined_at TEXT NOT NULL,
			left_at TEXT
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// RecordEvent implements world.EventSink. It never blocks and never fails
// from the caller's point of view; indexing is advisory.
func (x *SQLiteIndex) RecordEvent(ev world.AuditEvent) error {
	if x.closed.Load() {
		return nil
	}
	select {
	case x.ch <- ev:
	default:
		// Queue backed up; drop.
	}
	return nil
}

func (x *SQLiteIndex) run() {
	defer x.wg.Done()
	for ev := range x.ch {
		x.write(ev)
	}
}

func (x *SQLiteIndex) write(ev world.AuditEvent) {
	at := ev.At.UTC().Format(time.RFC3339Nano)
	switch ev.Kind {
	case world.EventJoin:
		_, _ = x.db.Exec(
			`INSERT INTO sessions (client_id, joined_at) VALUES (?, ?)
			 ON CONFLICT(client_id) DO UPDATE SET joined_at = excluded.joined_at, left_at = NULL`,
			ev.ClientID, at)
	case world.EventLeave:
		_, _ = x.db.Exec(`UPDATE sessions SET left_at = ? WHERE client_id = ?`, at, ev.ClientID)
	default:
		_, _ = x.db.Exec(
			`INSERT INTO block_events (at, kind, block_id, client_id, lat, lon, reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			at, ev.Kind, ev.BlockID, ev.ClientID, ev.Lat, ev.Lon, ev.Reason)
	}
}

// BlockEventCount counts indexed block events, optionally filtered by kind.
func (x *SQLiteIndex) BlockEventCount(ctx context.Context, kind string) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM block_events`).Scan(&n)
	} else {
		err = x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM block_events WHERE kind = ?`, kind).Scan(&n)
	}
	return n, err
}

// OpenSessions counts sessions that have joined and not yet left.
func (x *SQLiteIndex) OpenSessions(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE left_at IS NULL`).Scan(&n)
	return n, err
}

// Close drains the write queue and closes the database.
func (x *SQLiteIndex) Close() error {
	var err error
	x.once.Do(func() {
		x.closed.Store(true)
		close(x.ch)
		x.wg.Wait()
		err = x.db.Close()
	})
	return err
}
