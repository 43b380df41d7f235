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
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Normalizer repairs untrusted candidate drafts into schema-valid,
// temporally contiguous drafts for a known audio duration.
//
// The coercion policy is deliberately tolerant: the upstream model
// occasionally returns wrong types, out-of-range values, or snake_case
// keys, and a coerced draft keeps the demo path alive where a strict
// parse would reject it. Structural problems that coercion cannot fix
// (too few segments, a timeline that still violates invariants) surface
// as a NormalizationError so the caller can fall back.
type Normalizer struct {
	validate    *validator.Validate
	minSegments int
	logger      *slog.Logger
}

// NewNormalizer creates a Normalizer with the standard quality floor.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		validate:    validator.New(),
		minSegments: MinSegments,
		logger:      slog.With("component", "normalizer"),
	}
}

// Normalize converts a raw candidate draft into a valid Draft covering
// exactly [0, durationMs].
//
// Description:
//
//	The repair pipeline runs in order:
//	 1. Coerce every candidate segment (fresh server-assigned IDs,
//	    clamped intensity, truncated reason, default move tag).
//	 2. Reject the whole batch when fewer than MinSegments survive.
//	 3. Uniformly rescale all timestamps by durationMs/maxEnd. The single
//	    multiplicative factor fixes both wrong time units and partial
//	    track coverage without needing to detect which one occurred.
//	 4. Pin the final segment end to durationMs to remove rounding drift.
//	 5. Re-stitch interior boundaries so each segment starts exactly
//	    where its predecessor ends.
//	 6. Validate the result against the draft invariants.
//
// Inputs:
//
//	raw - Untrusted candidate draft from the inference provider
//	durationMs - Known total audio duration in milliseconds
//
// Outputs:
//
//	*Draft - Valid draft at revision 0
//	error - *NormalizationError when repair is impossible
func (n *Normalizer) Normalize(raw RawDraft, durationMs int) (*Draft, error) {
	if durationMs <= 0 {
		durationMs = DefaultAudioDurationMs
	}

	segments := make([]Segment, 0, len(raw.Segments))
	for _, rs := range raw.Segments {
		segments = append(segments, coerceSegment(rs))
	}

	if len(segments) < n.minSegments {
		n.logger.Warn("Candidate batch below quality floor",
			"got", len(segments), "min", n.minSegments)
		return nil, &NormalizationError{
			Reason: fmt.Sprintf("%d segments, need at least %d", len(segments), n.minSegments),
			Err:    ErrTooFewSegments,
		}
	}
	if len(segments) > MaxSegments {
		segments = segments[:MaxSegments]
	}

	maxEnd := 0
	for _, s := range segments {
		if s.EndMs > maxEnd {
			maxEnd = s.EndMs
		}
	}
	if maxEnd <= 0 {
		return nil, &NormalizationError{Reason: "no positive end timestamp", Err: ErrInvalidTimeline}
	}

	if maxEnd != durationMs {
		scale := float64(durationMs) / float64(maxEnd)
		n.logger.Info("Rescaling candidate timeline",
			"max_end_ms", maxEnd, "duration_ms", durationMs, "scale", scale)
		for i := range segments {
			segments[i].StartMs = int(math.Round(float64(segments[i].StartMs) * scale))
			segments[i].EndMs = int(math.Round(float64(segments[i].EndMs) * scale))
		}
	}

	// Pin the global boundaries, then force interior contiguity. The
	// model's relative ordering is trusted; its exact boundaries are not.
	segments[0].StartMs = 0
	segments[len(segments)-1].EndMs = durationMs
	for i := 1; i < len(segments); i++ {
		segments[i].StartMs = segments[i-1].EndMs
	}

	for _, s := range segments {
		if s.EndMs <= s.StartMs {
			return nil, &NormalizationError{
				Reason: fmt.Sprintf("segment %s collapsed to zero length after repair", s.ID),
				Err:    ErrInvalidTimeline,
			}
		}
	}

	concept := coerceVisualConcept(raw.VisualConcept)

	draft := &Draft{
		Revision:      0,
		Segments:      segments,
		VisualConcept: concept,
	}
	if err := n.ValidateDraft(draft); err != nil {
		return nil, &NormalizationError{Reason: "repaired draft failed validation", Err: err}
	}
	return draft, nil
}

// ValidateDraft checks a draft against the full set of invariants:
// per-field ranges plus the cross-segment contiguity requirement.
func (n *Normalizer) ValidateDraft(d *Draft) error {
	if err := n.validate.Struct(d); err != nil {
		return err
	}
	if d.Segments[0].StartMs != 0 {
		return fmt.Errorf("%w: first segment starts at %d", ErrInvalidTimeline, d.Segments[0].StartMs)
	}
	for i := 1; i < len(d.Segments); i++ {
		if d.Segments[i].StartMs != d.Segments[i-1].EndMs {
			return fmt.Errorf("%w: gap between segments %d and %d", ErrInvalidTimeline, i-1, i)
		}
	}
	return nil
}

// coerceSegment applies the tolerant per-segment coercion rules and
// assigns a fresh server-authoritative ID.
func coerceSegment(raw RawSegment) Segment {
	clip := MoveTag(firstNonEmpty(raw.ClipID, raw.ClipIDAlt))
	if !IsValidMoveTag(clip) {
		clip = DefaultMoveTag
	}

	reason := strings.TrimSpace(raw.Reason)
	if reason == "" {
		reason = "Derived from audio analysis."
	}
	reason = truncateRunes(reason, MaxReasonLen)

	start := coerceNumber(raw.StartMs, raw.StartMsAlt, 0)
	end := coerceNumber(raw.EndMs, raw.EndMsAlt, 1000)
	if start < 0 {
		start = 0
	}

	return Segment{
		ID:        NewSegmentID(),
		StartMs:   int(math.Round(start)),
		EndMs:     int(math.Round(end)),
		ClipID:    clip,
		Intensity: ClampIntensity(coerceNumber(raw.Intensity, nil, 5)),
		Reason:    reason,
	}
}

func coerceVisualConcept(raw RawVisualConcept) VisualConcept {
	style := strings.TrimSpace(raw.Style)
	if utf8.RuneCountInString(style) < 3 {
		style = "Stage Concept"
	}
	prompt := strings.TrimSpace(raw.ImagePrompt)
	if utf8.RuneCountInString(prompt) < 10 {
		prompt = "Performers on a dramatic concert stage, cinematic lighting, wide shot."
	}
	prompt = truncateRunes(prompt, MaxImagePromptLen)
	return VisualConcept{Style: style, ImagePrompt: prompt}
}

// coerceNumber extracts a float from a JSON value that may be a number
// or a numeric string, preferring primary over alt.
func coerceNumber(primary, alt json.RawMessage, def float64) float64 {
	for _, raw := range [][]byte{primary, alt} {
		if len(raw) == 0 {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	}
	return def
}

// ClampIntensity rounds and clamps an intensity value into the valid range.
func ClampIntensity(v float64) int {
	i := int(math.Round(v))
	if i < MinIntensity {
		return MinIntensity
	}
	if i > MaxIntensity {
		return MaxIntensity
	}
	return i
}

// truncateRunes shortens s to at most n runes. Cutting on a rune
// boundary keeps Korean and other multibyte text valid UTF-8; a byte
// slice could split a rune and leak replacement characters into JSON
// output. Length bounds elsewhere count runes for the same reason.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// NewSegmentID returns a fresh server-assigned segment ID.
func NewSegmentID() string {
	return "seg_" + uuid.NewString()[:8]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
