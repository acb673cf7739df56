//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"snoowatch/internal/watch"
	logx "snoowatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) GetState(ctx context.Context, username string) (watch.State, bool, error) {
	if s == nil || s.db == nil {
		return watch.State{}, false, ErrClosed
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return watch.State{}, false, nil
	}

	var (
		st         watch.State
		kind       string
		lastSeenID sql.NullString
		lastSeenAt sql.NullInt64
		available  sql.NullInt64
		checkedAt  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, last_seen_id, last_seen_at, available, checked_at
		 FROM watch_state WHERE username = ?`, username,
	).Scan(&kind, &lastSeenID, &lastSeenAt, &available, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return watch.State{}, false, nil
	}
	if err != nil {
		return watch.State{}, false, err
	}

	st.Kind = watch.StateKind(kind)
	if lastSeenID.Valid {
		st.LastSeenID = lastSeenID.String
	}
	if lastSeenAt.Valid {
		st.LastSeenAt = time.UnixMilli(lastSeenAt.Int64).UTC()
	}
	if available.Valid {
		st.Available = available.Int64 != 0
	}
	if checkedAt.Valid {
		st.CheckedAt = time.UnixMilli(checkedAt.Int64).UTC()
	}
	return st, true, nil
}

func (s *sqliteStore) PutState(ctx context.Context, username string, st watch.State) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	avail := 0
	if st.Available {
		avail = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_state(username, kind, last_seen_id, last_seen_at, available, checked_at, updated_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(username) DO UPDATE SET
		   kind=excluded.kind,
		   last_seen_id=excluded.last_seen_id,
		   last_seen_at=excluded.last_seen_at,
		   available=excluded.available,
		   checked_at=excluded.checked_at,
		   updated_at=excluded.updated_at`,
		username, string(st.Kind), nullStr(st.LastSeenID), nullMilli(st.LastSeenAt),
		avail, nullMilli(st.CheckedAt), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullMilli(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}
