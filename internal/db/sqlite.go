// Package db provides database connectivity helpers and migration support.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Hardening applied to every pool. The busy timeout covers the single write
// connection being held by a migration or a visibility cascade.
const (
	busyTimeoutMS  = 5000
	pingTimeout    = 5 * time.Second
	defaultReaders = 4
)

// OpenSQLitePair opens the two pools the service runs on: a single-connection
// write pool taking immediate transaction locks, and a read pool sized by
// readMaxOpen (0 means 4). The lone write connection serializes mutations,
// which is what keeps concurrent visibility cascades from interleaving.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = openPool(path, true, 1)
	if err != nil {
		return nil, nil, err
	}

	if readMaxOpen <= 0 {
		readMaxOpen = defaultReaders
	}
	readDB, err = openPool(path, false, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func openPool(path string, write bool, maxOpen int) (*sql.DB, error) {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", strconv.Itoa(busyTimeoutMS))
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if write {
		params.Set("_txlock", "immediate")
	}

	pool, err := sql.Open("sqlite3", path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open permissions store: %w", err)
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxOpen)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping permissions store: %w", err)
	}
	return pool, nil
}
