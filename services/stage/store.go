// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stage

import (
	"log/slog"
	"sync"
	"time"
)

// SnapshotSink receives the store contents after every committed
// mutation. services/stage/snapshot provides a BadgerDB implementation;
// a nil sink disables persistence.
type SnapshotSink interface {
	Save(state StateSnapshot) error
}

// StoreConfig configures the revision store.
type StoreConfig struct {
	// Seed is the initial draft at revision 0. Required.
	Seed *Draft

	// SeedDescription is the change-log entry for the seed draft.
	SeedDescription string

	// MaxLogEntries caps the change log. Oldest entries are evicted
	// first. Zero means DefaultMaxLogEntries.
	MaxLogEntries int

	// Sink optionally persists the state after each mutation.
	Sink SnapshotSink
}

// DefaultMaxLogEntries bounds change-log growth for long-lived processes.
const DefaultMaxLogEntries = 256

// Store is the process-wide holder of the current draft and its
// append-only change log.
//
// The store serializes the read-revision → validate → write-draft
// sequence of a patch as a single critical section via Apply, so two
// concurrent patches against the same expected revision can never both
// succeed. All reads return deep copies; callers cannot mutate the
// canonical draft in place.
type Store struct {
	mu        sync.Mutex
	draft     *Draft
	changeLog []ChangeLogEntry
	maxLog    int
	sink      SnapshotSink
	logger    *slog.Logger
}

// NewStore creates a store seeded with cfg.Seed at revision 0 and a
// single "loaded" change-log entry.
func NewStore(cfg StoreConfig) *Store {
	maxLog := cfg.MaxLogEntries
	if maxLog <= 0 {
		maxLog = DefaultMaxLogEntries
	}
	desc := cfg.SeedDescription
	if desc == "" {
		desc = "Loaded initial seed draft."
	}
	s := &Store{
		draft:  cfg.Seed.Clone(),
		maxLog: maxLog,
		sink:   cfg.Sink,
		logger: slog.With("component", "store"),
	}
	s.appendLogLocked(desc, nil)
	s.persistLocked()
	return s
}

// Restore replaces the store contents wholesale from a persisted
// snapshot, keeping the snapshot's change log. Used at startup only.
func (s *Store) Restore(state StateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = state.Draft.Clone()
	s.changeLog = append([]ChangeLogEntry(nil), state.ChangeLog...)
	s.logger.Info("Restored persisted state",
		"revision", s.draft.Revision, "log_entries", len(s.changeLog))
}

// GetState returns a deep-copied snapshot of the current draft and
// change log.
func (s *Store) GetState() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CurrentRevision returns the current draft revision.
func (s *Store) CurrentRevision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Revision
}

// ReplaceDraft atomically replaces the current draft and appends a
// change-log entry. The caller must have validated newDraft; the store
// performs no validation of its own.
func (s *Store) ReplaceDraft(newDraft *Draft, description string, details *PatchDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = newDraft.Clone()
	s.appendLogLocked(description, details)
	s.persistLocked()
}

// Apply runs one conflict-checked mutation as a single critical section.
//
// Description:
//
//	The guard and the commit happen under the same lock: the current
//	revision is checked against expectedRevision (nil opts out of the
//	check), fn receives a deep copy of the current draft to transform,
//	and the result is committed together with a change-log entry. If fn
//	returns an error nothing is mutated.
//
// Inputs:
//
//	expectedRevision - Optimistic concurrency token, nil to skip checking
//	description - Change-log description for the mutation
//	fn - Transformation from a private copy of the current draft to the
//	     new draft plus structured patch details
//
// Outputs:
//
//	*Draft - Deep copy of the committed draft
//	error - *RevisionConflictError on a stale token, or fn's error
func (s *Store) Apply(expectedRevision *int, description string, fn func(current *Draft) (*Draft, *PatchDetails, error)) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return nil, ErrNoDraft
	}
	if expectedRevision != nil && *expectedRevision != s.draft.Revision {
		return nil, &RevisionConflictError{Expected: *expectedRevision, Current: s.draft.Revision}
	}

	newDraft, details, err := fn(s.draft.Clone())
	if err != nil {
		return nil, err
	}

	s.draft = newDraft
	s.appendLogLocked(description, details)
	s.persistLocked()
	return s.draft.Clone(), nil
}

func (s *Store) snapshotLocked() StateSnapshot {
	log := make([]ChangeLogEntry, len(s.changeLog))
	copy(log, s.changeLog)
	return StateSnapshot{Draft: s.draft.Clone(), ChangeLog: log}
}

func (s *Store) appendLogLocked(description string, details *PatchDetails) {
	s.changeLog = append(s.changeLog, ChangeLogEntry{
		Timestamp:    time.Now().UTC(),
		Description:  description,
		PatchDetails: details,
	})
	if len(s.changeLog) > s.maxLog {
		s.changeLog = s.changeLog[len(s.changeLog)-s.maxLog:]
	}
}

func (s *Store) persistLocked() {
	if s.sink == nil {
		return
	}
	if err := s.sink.Save(s.snapshotLocked()); err != nil {
		// Persistence is best effort; the in-memory state stays authoritative.
		s.logger.Error("Failed to persist state snapshot", "error", err)
	}
}
