// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stage implements the SyncStage draft engine: the versioned
// choreography-timeline document, the normalization pass that repairs
// untrusted model output into a valid timeline, and the patch protocol
// that applies natural-language edits with optimistic concurrency control.
//
// The package is deliberately self-contained. It consumes the inference
// provider through the InferenceClient interface and never imports a
// provider SDK directly; services/llm supplies the production client.
package stage

import (
	"encoding/json"
	"time"
)

// ServiceVersion is the stage service version.
const ServiceVersion = "0.1.0"

// Timeline bounds. A draft outside these limits is rejected by the
// normalizer and replaced with the golden-path fallback.
const (
	// MinSegments is the quality floor for model-produced timelines.
	// Fewer surviving segments than this triggers the fallback draft
	// instead of stretching too little material over the whole track.
	MinSegments = 4

	// MaxSegments bounds the timeline length.
	MaxSegments = 10

	// MaxReasonLen bounds the per-segment rationale string, in runes.
	MaxReasonLen = 140

	// MaxImagePromptLen bounds the visual concept prompt, in runes.
	MaxImagePromptLen = 600

	// MinIntensity and MaxIntensity bound segment intensity.
	MinIntensity = 1
	MaxIntensity = 10

	// DefaultAudioDurationMs is assumed when the caller does not supply
	// a track duration.
	DefaultAudioDurationMs = 30000
)

// MoveTag is a closed-enumeration choreography move identifier.
//
// Tags name animation clips on the rendering side, so free-form strings
// are never allowed through; unrecognized tags coerce to DefaultMoveTag.
type MoveTag string

const (
	MoveHappyIdle   MoveTag = "happy_idle"
	MoveHipHopDance MoveTag = "hiphop_dance"
	MoveArmsHipHop  MoveTag = "arms_hiphop"
	MoveJazzDance   MoveTag = "jazz_dance"

	// DefaultMoveTag is substituted for unrecognized tags.
	DefaultMoveTag = MoveHappyIdle
)

// AllMoveTags lists every valid move tag, in canonical order.
var AllMoveTags = []MoveTag{MoveHappyIdle, MoveHipHopDance, MoveArmsHipHop, MoveJazzDance}

// IsValidMoveTag reports whether tag is a member of the closed enumeration.
func IsValidMoveTag(tag MoveTag) bool {
	for _, t := range AllMoveTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Segment is one timed choreography unit of the draft timeline.
//
// IDs are server-assigned and stable for the lifetime of the draft; they
// are the handles targeted patches use.
type Segment struct {
	ID        string  `json:"id"`
	StartMs   int     `json:"startMs" validate:"min=0"`
	EndMs     int     `json:"endMs" validate:"gtfield=StartMs"`
	ClipID    MoveTag `json:"clipId" validate:"required"`
	Intensity int     `json:"intensity" validate:"min=1,max=10"`
	Reason    string  `json:"reason" validate:"required,max=140"`
}

// VisualConcept is the stage-wardrobe concept attached to a draft.
type VisualConcept struct {
	Style       string `json:"style" validate:"min=3"`
	ImagePrompt string `json:"imagePrompt" validate:"min=10,max=600"`
}

// Draft is the versioned choreography document.
//
// The revision counter starts at 0 and is incremented by exactly one on
// every accepted mutation. The Store owns the canonical value; callers
// only ever see deep copies.
type Draft struct {
	Revision      int           `json:"revision"`
	Segments      []Segment     `json:"segments" validate:"min=1,max=10,dive"`
	VisualConcept VisualConcept `json:"visualConcept"`
	LastAction    string        `json:"lastAction,omitempty"`
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	out.Segments = make([]Segment, len(d.Segments))
	copy(out.Segments, d.Segments)
	return &out
}

// DurationMs returns the end of the final segment, which for a valid
// draft equals the audio duration.
func (d *Draft) DurationMs() int {
	if len(d.Segments) == 0 {
		return 0
	}
	return d.Segments[len(d.Segments)-1].EndMs
}

// PatchDetails records structured metadata about a mutation for the
// change log. Degraded operations carry the absorbed error so operators
// can tell healthy commits from recovered ones.
type PatchDetails struct {
	ToolsUsed    []string `json:"toolsUsed,omitempty"`
	UsedFallback bool     `json:"usedFallback,omitempty"`
	Cause        string   `json:"cause,omitempty"`
}

// ChangeLogEntry is one append-only record of a draft mutation.
type ChangeLogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Description  string        `json:"description"`
	PatchDetails *PatchDetails `json:"patchDetails,omitempty"`
}

// StateSnapshot is a point-in-time copy of the store contents.
// Mutating a snapshot never affects the store.
type StateSnapshot struct {
	Draft     *Draft           `json:"draft"`
	ChangeLog []ChangeLogEntry `json:"changeLog"`
}

// =============================================================================
// Untrusted candidate input
// =============================================================================

// RawSegment is a candidate segment exactly as the inference provider
// produced it: every field is optional, may use snake_case aliases, and
// numeric fields may arrive as numbers or numeric strings. Candidate IDs
// are ignored; IDs are server-authoritative.
type RawSegment struct {
	StartMs    json.RawMessage `json:"startMs,omitempty"`
	StartMsAlt json.RawMessage `json:"start_ms,omitempty"`
	EndMs      json.RawMessage `json:"endMs,omitempty"`
	EndMsAlt   json.RawMessage `json:"end_ms,omitempty"`
	ClipID     string          `json:"clipId,omitempty"`
	ClipIDAlt  string          `json:"clip_id,omitempty"`
	Intensity  json.RawMessage `json:"intensity,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// RawVisualConcept is an untrusted candidate visual concept.
type RawVisualConcept struct {
	Style       string `json:"style,omitempty"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
}

// RawDraft is the untrusted candidate document returned by audio
// analysis, before normalization.
type RawDraft struct {
	Segments      []RawSegment     `json:"segments"`
	VisualConcept RawVisualConcept `json:"visualConcept"`
}

// =============================================================================
// Structured edits
// =============================================================================

// Edit is one structured edit operation chosen by the patch planner.
//
// Edits form a small closed set of tagged variants; the merge loop in
// the patch engine dispatches on the concrete type exhaustively rather
// than on string-keyed argument bags.
type Edit interface {
	// Summary returns a short human-readable description for the change log.
	Summary() string
}

// SegmentEdit updates fields of the segment with the matching ID.
//
// Nil pointer fields mean "no change requested". This makes an explicit
// zero (intensity 0 would clamp to 1) distinguishable from an absent
// field, which the loosely-typed tool protocol cannot express on its own.
type SegmentEdit struct {
	ID        string
	ClipID    *MoveTag
	Intensity *int
	Reason    *string
}

// Summary implements Edit.
func (e SegmentEdit) Summary() string { return "Segment " + e.ID + " refined" }

// StyleEdit replaces the visual concept wholesale.
type StyleEdit struct {
	Style       string
	ImagePrompt string
}

// Summary implements Edit.
func (e StyleEdit) Summary() string { return "Style updated to " + e.Style }

// PatchPlan is the planner's response to one instruction: zero or more
// structured edits plus an optional natural-language acknowledgment.
type PatchPlan struct {
	Edits   []Edit
	Message string
}

// =============================================================================
// HTTP request/response types
// =============================================================================

// PatchRequest is the body of POST /v1/stage/patch.
//
// ExpectedRevision is the optimistic concurrency token. When omitted the
// caller opts out of conflict checking and last-write-wins applies.
type PatchRequest struct {
	Instruction      string `json:"instruction" binding:"required"`
	ExpectedRevision *int   `json:"expectedRevision"`
}

// PatchResponse is returned by a successful patch.
type PatchResponse struct {
	Draft        *Draft `json:"draft"`
	Message      string `json:"message"`
	UsedFallback bool   `json:"usedFallback"`
}

// DraftResponse wraps a freshly created draft.
type DraftResponse struct {
	Draft        *Draft `json:"draft"`
	UsedFallback bool   `json:"usedFallback"`
}

// VisualResponse is returned by POST /v1/stage/visual.
type VisualResponse struct {
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Style       string `json:"style"`
}

// HealthResponse is returned by GET /v1/stage/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Revision *int   `json:"revision,omitempty"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	CurrentRevision *int   `json:"currentRevision,omitempty"`
}
