// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot persists stage state snapshots to a local BadgerDB.
//
// The draft engine itself is volatile by design; this package is the
// optional durability layer. Every committed mutation is serialized as
// one JSON document under a single key, so a restart restores exactly
// the draft + change log that were last committed.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/syncstage/services/stage"
)

// stateKey is the single key holding the serialized state document.
var stateKey = []byte("stage/state")

// Store is a BadgerDB-backed snapshot store.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// the isolation.
type Store struct {
	db *badger.DB
}

// Open creates a persistent snapshot store at the given directory,
// creating it if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("path is required for persistent snapshot store")
	}
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("create snapshot directory %s: %w", path, err)
	}
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory creates an ephemeral snapshot store for testing.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory snapshot database: %w", err)
	}
	return &Store{db: db}, nil
}

// Save implements stage.SnapshotSink.
func (s *Store) Save(state stage.StateSnapshot) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, payload)
	})
	if err != nil {
		return fmt.Errorf("write state snapshot: %w", err)
	}
	return nil
}

// Load returns the last persisted snapshot, or nil when none exists.
func (s *Store) Load() (*stage.StateSnapshot, error) {
	var state *stage.StateSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded stage.StateSnapshot
			if err := json.Unmarshal(val, &decoded); err != nil {
				return fmt.Errorf("decode state snapshot: %w", err)
			}
			state = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read state snapshot: %w", err)
	}
	return state, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements stage.SnapshotSink.
var _ stage.SnapshotSink = (*Store)(nil)
