/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package sqlstore backs an ExchangeAuditStore collaborator interface
// with database/sql and a blank-imported MySQL driver. The engine only
// ever calls the interface; it never touches *sql.DB or the driver
// directly, matching the collaborator-interface pattern the rest of the
// domain stack follows (jose, session, ldapauth, discovery, grpcbridge).
package sqlstore

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Record is one audited exchange: its id, method/path, final status,
// and duration.
type Record struct {
	ExchangeID uint64
	Method     string
	Path       string
	Status     int
	Duration   time.Duration
}

// ExchangeAuditStore persists exchange audit records. No package in this
// module calls it; it is the seam a deployment wires its audit store
// into.
type ExchangeAuditStore interface {
	RecordExchange(ctx context.Context, rec Record) error
}

// MySQLStore is the concrete ExchangeAuditStore backed by
// database/sql + go-sql-driver/mysql.
type MySQLStore struct {
	db *sql.DB
}

// Open connects to a MySQL DSN and pings the server. It does not check
// that the exchange_audit table exists.
func Open(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Close() error { return s.db.Close() }

func (s *MySQLStore) RecordExchange(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchange_audit (exchange_id, method, path, status, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		rec.ExchangeID, rec.Method, rec.Path, rec.Status, rec.Duration.Milliseconds(),
	)
	return err
}

// NoopStore discards every record; it is the zero-config default so the
// engine never requires a live database to run.
type NoopStore struct{}

func (NoopStore) RecordExchange(context.Context, Record) error { return nil }
