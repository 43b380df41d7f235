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
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// rawSeg builds a well-formed raw segment for tests.
func rawSeg(startMs, endMs int, clipID string, intensity int, reason string) RawSegment {
	return RawSegment{
		StartMs:   json.RawMessage(jsonInt(startMs)),
		EndMs:     json.RawMessage(jsonInt(endMs)),
		ClipID:    clipID,
		Intensity: json.RawMessage(jsonInt(intensity)),
		Reason:    reason,
	}
}

func jsonInt(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func validRawDraft() RawDraft {
	return RawDraft{
		Segments: []RawSegment{
			rawSeg(0, 7500, "happy_idle", 3, "Quiet intro"),
			rawSeg(7500, 15000, "hiphop_dance", 6, "Groove locks in"),
			rawSeg(15000, 22500, "arms_hiphop", 10, "Beat drop"),
			rawSeg(22500, 30000, "jazz_dance", 7, "Melodic bridge"),
		},
		VisualConcept: RawVisualConcept{
			Style:       "Y2K Retro Pop",
			ImagePrompt: "Pastel windbreakers and chrome sunglasses under stadium lights.",
		},
	}
}

func TestNormalizer_Normalize_ValidInput(t *testing.T) {
	n := NewNormalizer()

	draft, err := n.Normalize(validRawDraft(), 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if draft.Revision != 0 {
		t.Errorf("expected revision 0, got %d", draft.Revision)
	}
	if len(draft.Segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(draft.Segments))
	}
	if draft.Segments[0].StartMs != 0 {
		t.Errorf("expected first segment to start at 0, got %d", draft.Segments[0].StartMs)
	}
	if got := draft.Segments[3].EndMs; got != 30000 {
		t.Errorf("expected last segment to end at 30000, got %d", got)
	}
	if draft.VisualConcept.Style != "Y2K Retro Pop" {
		t.Errorf("unexpected style %q", draft.VisualConcept.Style)
	}
	for i, s := range draft.Segments {
		if s.ID == "" {
			t.Errorf("segment %d missing server-assigned ID", i)
		}
	}
}

func TestNormalizer_Normalize_RescalesPartialCoverage(t *testing.T) {
	n := NewNormalizer()
	raw := RawDraft{
		Segments: []RawSegment{
			rawSeg(0, 6750, "happy_idle", 3, "Intro"),
			rawSeg(6750, 13500, "hiphop_dance", 6, "Verse"),
			rawSeg(13500, 20250, "arms_hiphop", 9, "Drop"),
			rawSeg(20250, 27000, "jazz_dance", 7, "Bridge"),
		},
	}

	// Candidate covers 27s of a 30s track; every boundary scales by 10/9.
	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	wantBounds := [][2]int{{0, 7500}, {7500, 15000}, {15000, 22500}, {22500, 30000}}
	for i, want := range wantBounds {
		got := draft.Segments[i]
		if got.StartMs != want[0] || got.EndMs != want[1] {
			t.Errorf("segment %d: expected [%d, %d], got [%d, %d]",
				i, want[0], want[1], got.StartMs, got.EndMs)
		}
	}
}

func TestNormalizer_Normalize_RescalesSecondsToMillis(t *testing.T) {
	n := NewNormalizer()
	// Timestamps in seconds instead of milliseconds. The uniform rescale
	// repairs the unit error without detecting it explicitly.
	raw := RawDraft{
		Segments: []RawSegment{
			rawSeg(0, 8, "happy_idle", 3, "Intro"),
			rawSeg(8, 15, "hiphop_dance", 6, "Verse"),
			rawSeg(15, 24, "arms_hiphop", 9, "Drop"),
			rawSeg(24, 30, "jazz_dance", 7, "Outro"),
		},
	}

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := draft.Segments[0].EndMs; got != 8000 {
		t.Errorf("expected first boundary 8000, got %d", got)
	}
	if got := draft.Segments[3].EndMs; got != 30000 {
		t.Errorf("expected final end 30000, got %d", got)
	}
}

func TestNormalizer_Normalize_NumericStrings(t *testing.T) {
	n := NewNormalizer()
	raw := validRawDraft()
	raw.Segments[1].StartMs = json.RawMessage(`"7500"`)
	raw.Segments[1].EndMs = json.RawMessage(`"15000"`)
	raw.Segments[1].Intensity = json.RawMessage(`"6"`)

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if draft.Segments[1].StartMs != 7500 || draft.Segments[1].EndMs != 15000 {
		t.Errorf("numeric strings not coerced: got [%d, %d]",
			draft.Segments[1].StartMs, draft.Segments[1].EndMs)
	}
	if draft.Segments[1].Intensity != 6 {
		t.Errorf("expected intensity 6, got %d", draft.Segments[1].Intensity)
	}
}

func TestNormalizer_Normalize_SnakeCaseAliases(t *testing.T) {
	n := NewNormalizer()
	raw := validRawDraft()
	raw.Segments[2] = RawSegment{
		StartMsAlt: json.RawMessage(`15000`),
		EndMsAlt:   json.RawMessage(`22500`),
		ClipIDAlt:  "arms_hiphop",
		Intensity:  json.RawMessage(`10`),
		Reason:     "Beat drop",
	}

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if draft.Segments[2].ClipID != MoveArmsHipHop {
		t.Errorf("snake_case clip_id not honored, got %q", draft.Segments[2].ClipID)
	}
	if draft.Segments[2].StartMs != 15000 {
		t.Errorf("snake_case start_ms not honored, got %d", draft.Segments[2].StartMs)
	}
}

func TestNormalizer_Normalize_CoercionRules(t *testing.T) {
	n := NewNormalizer()
	longReason := strings.Repeat("x", 500)
	raw := validRawDraft()
	raw.Segments[0].ClipID = "breakdance_9000" // not in the enum
	raw.Segments[1].Intensity = json.RawMessage(`42`)
	raw.Segments[2].Reason = longReason
	raw.Segments[3].Reason = "   "

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if draft.Segments[0].ClipID != DefaultMoveTag {
		t.Errorf("invalid clip not defaulted: got %q", draft.Segments[0].ClipID)
	}
	if draft.Segments[1].Intensity != MaxIntensity {
		t.Errorf("intensity not clamped: got %d", draft.Segments[1].Intensity)
	}
	if len(draft.Segments[2].Reason) != MaxReasonLen {
		t.Errorf("reason not truncated: got %d chars", len(draft.Segments[2].Reason))
	}
	if draft.Segments[3].Reason == "" || draft.Segments[3].Reason == "   " {
		t.Errorf("blank reason not defaulted: got %q", draft.Segments[3].Reason)
	}
}

func TestNormalizer_Normalize_KoreanReasonTruncatesOnRuneBoundary(t *testing.T) {
	n := NewNormalizer()
	raw := validRawDraft()
	raw.Segments[0].Reason = strings.Repeat("강렬한 비트 ", 40)

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	reason := draft.Segments[0].Reason
	if !utf8.ValidString(reason) {
		t.Fatalf("truncated reason is not valid UTF-8: %q", reason)
	}
	if got := utf8.RuneCountInString(reason); got != MaxReasonLen {
		t.Errorf("expected %d runes, got %d", MaxReasonLen, got)
	}

	encoded, err := json.Marshal(draft.Segments[0])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.ContainsRune(string(encoded), '�') {
		t.Errorf("JSON output contains replacement characters: %s", encoded)
	}
}

func TestNormalizer_Normalize_TooFewSegments(t *testing.T) {
	n := NewNormalizer()
	raw := RawDraft{
		Segments: []RawSegment{
			rawSeg(0, 15000, "happy_idle", 5, "Half"),
			rawSeg(15000, 30000, "arms_hiphop", 9, "Other half"),
		},
	}

	_, err := n.Normalize(raw, 30000)
	if err == nil {
		t.Fatal("expected error for batch below quality floor")
	}
	if !errors.Is(err, ErrTooFewSegments) {
		t.Errorf("expected ErrTooFewSegments, got %v", err)
	}
	var nErr *NormalizationError
	if !errors.As(err, &nErr) {
		t.Errorf("expected *NormalizationError, got %T", err)
	}
}

func TestNormalizer_Normalize_EmptyBatch(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(RawDraft{}, 30000)
	if !errors.Is(err, ErrTooFewSegments) {
		t.Errorf("expected ErrTooFewSegments, got %v", err)
	}
}

func TestNormalizer_Normalize_TruncatesOversizedBatch(t *testing.T) {
	n := NewNormalizer()
	raw := RawDraft{}
	for i := 0; i < 15; i++ {
		raw.Segments = append(raw.Segments,
			rawSeg(i*2000, (i+1)*2000, "hiphop_dance", 5, "Chunk"))
	}

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(draft.Segments) != MaxSegments {
		t.Errorf("expected %d segments, got %d", MaxSegments, len(draft.Segments))
	}
	if got := draft.Segments[len(draft.Segments)-1].EndMs; got != 30000 {
		t.Errorf("truncated batch not re-pinned to duration: final end %d", got)
	}
}

func TestNormalizer_Normalize_NoPositiveEnd(t *testing.T) {
	n := NewNormalizer()
	raw := RawDraft{
		Segments: []RawSegment{
			rawSeg(0, 0, "happy_idle", 5, "a"),
			rawSeg(0, 0, "happy_idle", 5, "b"),
			rawSeg(0, 0, "happy_idle", 5, "c"),
			rawSeg(0, 0, "happy_idle", 5, "d"),
		},
	}
	_, err := n.Normalize(raw, 30000)
	if !errors.Is(err, ErrInvalidTimeline) {
		t.Errorf("expected ErrInvalidTimeline, got %v", err)
	}
}

func TestNormalizer_Normalize_StitchesInteriorGaps(t *testing.T) {
	n := NewNormalizer()
	// Gap between segments 1 and 2, overlap between 2 and 3.
	raw := RawDraft{
		Segments: []RawSegment{
			rawSeg(0, 7000, "happy_idle", 3, "Intro"),
			rawSeg(8000, 14000, "hiphop_dance", 6, "Verse"),
			rawSeg(13000, 22000, "arms_hiphop", 9, "Drop"),
			rawSeg(22000, 30000, "jazz_dance", 7, "Outro"),
		},
	}

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if err := n.ValidateDraft(draft); err != nil {
		t.Errorf("stitched draft fails validation: %v", err)
	}
	for i := 1; i < len(draft.Segments); i++ {
		if draft.Segments[i].StartMs != draft.Segments[i-1].EndMs {
			t.Errorf("gap between segments %d and %d", i-1, i)
		}
	}
}

func TestNormalizer_Normalize_DefaultsVisualConcept(t *testing.T) {
	n := NewNormalizer()
	raw := validRawDraft()
	raw.VisualConcept = RawVisualConcept{Style: "a", ImagePrompt: "short"}

	draft, err := n.Normalize(raw, 30000)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if draft.VisualConcept.Style == "a" {
		t.Error("undersized style not defaulted")
	}
	if len(draft.VisualConcept.ImagePrompt) < 10 {
		t.Errorf("undersized image prompt not defaulted: %q", draft.VisualConcept.ImagePrompt)
	}
}

func TestNormalizer_Normalize_ZeroDurationUsesDefault(t *testing.T) {
	n := NewNormalizer()
	draft, err := n.Normalize(validRawDraft(), 0)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := draft.DurationMs(); got != DefaultAudioDurationMs {
		t.Errorf("expected default duration %d, got %d", DefaultAudioDurationMs, got)
	}
}

func TestClampIntensity(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"below range", -3, 1},
		{"zero", 0, 1},
		{"lower bound", 1, 1},
		{"mid", 5.4, 5},
		{"rounds up", 7.5, 8},
		{"upper bound", 10, 10},
		{"above range", 42, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampIntensity(tt.in); got != tt.want {
				t.Errorf("ClampIntensity(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateDraft_RejectsGaps(t *testing.T) {
	n := NewNormalizer()
	draft := SeedDraft()
	draft.Segments[2].StartMs = 21000 // detach from segment 1's end

	if err := n.ValidateDraft(draft); err == nil {
		t.Error("expected validation error for interior gap")
	}
}
