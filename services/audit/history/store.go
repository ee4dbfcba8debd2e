// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists a rolling record of completed audits in an
// embedded BadgerDB store.
//
// Entries are written with a BadgerDB TTL, so retention is enforced by
// the store itself rather than by a sweeper. History is advisory: a
// write failure is logged and never fails the audit that produced it.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Record is one persisted audit outcome.
type Record struct {
	Package         string    `json:"package"`
	ResolvedVersion string    `json:"resolved_version"`
	RiskScore       int       `json:"risk_score"`
	RiskLevel       string    `json:"risk_level"`
	Degraded        bool      `json:"degraded"`
	AuditedAt       time.Time `json:"audited_at"`
}

// Store is the audit history store.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Options configures a Store.
type Options struct {
	// Path is the BadgerDB directory. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Used by tests.
	InMemory bool

	// TTL is how long records are retained. Zero keeps them forever.
	TTL time.Duration

	// Logger silences BadgerDB's internal logging when nil.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the history store, creating the directory if needed.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("path is required for persistent history")
	}

	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return &Store{db: db, ttl: opts.TTL}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key layout: audit/<package>/<unix-nanos>. Package names may contain
// "/" (scoped packages), so List matches on the full prefix rather
// than splitting.
func recordKey(pkg string, at time.Time) []byte {
	return []byte(fmt.Sprintf("audit/%s/%020d", pkg, at.UnixNano()))
}

// Append stores one audit record under the configured TTL.
func (s *Store) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(recordKey(rec.Package, rec.AuditedAt), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// List returns up to limit records for pkg, newest first.
func (s *Store) List(pkg string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	prefix := []byte("audit/" + pkg + "/")

	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.Reverse = true
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		// Reverse iteration starts past the end of the prefix range.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("failed to decode history record: %w", err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Packages returns the distinct package names with history, sorted.
func (s *Store) Packages() ([]string, error) {
	seen := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek([]byte("audit/")); it.ValidForPrefix([]byte("audit/")); it.Next() {
			key := string(it.Item().Key())
			trimmed := strings.TrimPrefix(key, "audit/")
			// Timestamp is the final path segment.
			if idx := strings.LastIndex(trimmed, "/"); idx > 0 {
				seen[trimmed[:idx]] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
