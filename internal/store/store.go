// Package store persists which recipients opted into the daily digest.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "bunkbot/pkg/logx"
)

var ErrDisabled = errors.New("store disabled")

// Config configures subscription persistence.
//
// Driver values:
//   - "file": dependency-free whole-document JSON backend
//   - "sqlite": SQLite database file (build tag `sqlite`)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the subscription persistence API.
//
// Absence of an entry and an explicit false are equivalent:
// SetEnabled(r, false) removes the entry so the document stays compact.
type Store interface {
	Get(ctx context.Context, recipient int64) (bool, error)
	SetEnabled(ctx context.Context, recipient int64, enabled bool) error
	Enabled(ctx context.Context) ([]int64, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + driver)
	}
}
