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
	"errors"
	"fmt"
)

// Sentinel errors for the stage service.
var (
	// ErrNoDraft indicates a patch or visual generation was attempted
	// before any draft exists.
	ErrNoDraft = errors.New("no draft available")

	// ErrInferenceUnavailable indicates no inference client is
	// configured. Callers recover through the deterministic fallbacks.
	ErrInferenceUnavailable = errors.New("inference client unavailable")

	// ErrTooFewSegments indicates the candidate batch fell below the
	// MinSegments quality floor.
	ErrTooFewSegments = errors.New("too few usable segments")

	// ErrInvalidTimeline indicates the repaired timeline still violates
	// the draft invariants.
	ErrInvalidTimeline = errors.New("timeline violates draft invariants")
)

// RevisionConflictError rejects a stale optimistic write. Current carries
// the authoritative revision so the caller can re-fetch and retry.
type RevisionConflictError struct {
	Expected int
	Current  int
}

// Error implements the error interface.
func (e *RevisionConflictError) Error() string {
	return fmt.Sprintf("revision conflict: expected %d, current %d", e.Expected, e.Current)
}

// NormalizationError indicates untrusted candidate output could not be
// repaired into a valid draft. It always routes to the fallback draft;
// the wrapped cause is kept for the change log.
type NormalizationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalization failed: %s: %v", e.Reason, e.Err)
	}
	return "normalization failed: " + e.Reason
}

// Unwrap exposes the underlying cause for errors.Is checks.
func (e *NormalizationError) Unwrap() error { return e.Err }
