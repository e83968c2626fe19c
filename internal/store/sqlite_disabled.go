//go:build !sqlite
// +build !sqlite

package store

import logx "bunkbot/pkg/logx"

// Build without -tags sqlite: the sqlite driver is unavailable.
func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, ErrDisabled
}
