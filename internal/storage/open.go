package storage

import (
	"context"
	"errors"
	"strings"

	"snoowatch/internal/watch"
	logx "snoowatch/pkg/logx"
)

// Store is the persistence contract the run controller depends on.
//
// PutState must be durable before it returns: the controller treats the
// notifications for a target as delivered only once the advanced marker is
// committed, and a lost marker would replay them on the next run.
type Store interface {
	GetState(ctx context.Context, username string) (watch.State, bool, error)
	PutState(ctx context.Context, username string, st watch.State) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
