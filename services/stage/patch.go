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
	"fmt"
	"strings"
)

// applyEdits merges structured edits into the draft in place.
//
// A SegmentEdit with no matching ID is a no-op; nil pointer fields leave
// the existing value untouched. Returns a per-edit summary for the
// change log and the number of edits that actually changed something.
func applyEdits(d *Draft, edits []Edit) (summary []string, applied int) {
	for _, edit := range edits {
		switch e := edit.(type) {
		case SegmentEdit:
			for i := range d.Segments {
				if d.Segments[i].ID != e.ID {
					continue
				}
				if e.ClipID != nil && IsValidMoveTag(*e.ClipID) {
					d.Segments[i].ClipID = *e.ClipID
				}
				if e.Intensity != nil {
					d.Segments[i].Intensity = ClampIntensity(float64(*e.Intensity))
				}
				if e.Reason != nil && *e.Reason != "" {
					d.Segments[i].Reason = truncateRunes(*e.Reason, MaxReasonLen)
				}
				applied++
				summary = append(summary, e.Summary())
				break
			}
		case StyleEdit:
			// A planner returning both fields empty asked for nothing;
			// counting it would bump the revision with no change.
			if e.Style == "" && e.ImagePrompt == "" {
				continue
			}
			if e.Style != "" {
				d.VisualConcept.Style = e.Style
			}
			if e.ImagePrompt != "" {
				d.VisualConcept.ImagePrompt = e.ImagePrompt
			}
			applied++
			summary = append(summary, e.Summary())
		default:
			// Unknown edit kinds are planner bugs, not user errors; skip.
		}
	}
	return summary, applied
}

// Keyword groups for the deterministic fallback, checked in order.
// Korean keywords mirror the bilingual demo audience.
var (
	intensityUpKeywords   = []string{"intense", "powerful", "강하", "강렬", "파워"}
	intensityDownKeywords = []string{"calm", "soft", "부드", "잔잔"}
	hipHopKeywords        = []string{"hip", "groove", "힙합"}
	popKeywords           = []string{"pop", "팝핀", "브레이크"}
	darkVisualKeywords    = []string{"cyber", "dark", "어둡", "사이버"}
	pointMoveKeywords     = []string{"y2k", "포인트", "재즈"}
)

// intensityShift is the uniform delta the fallback applies for
// intensity-related instructions.
const intensityShift = 2

// applyKeywordFallback applies the deterministic keyword policy to the
// draft in place and returns a change summary.
//
// This path runs when the inference call itself failed. It always edits
// something: an unrecognized instruction nudges the first segment rather
// than reporting an error, trading occasional off-target edits for a
// demo that never visibly fails.
func applyKeywordFallback(d *Draft, instruction string) string {
	inst := strings.ToLower(instruction)

	switch {
	case containsAny(inst, intensityUpKeywords):
		for i := range d.Segments {
			d.Segments[i].Intensity = ClampIntensity(float64(d.Segments[i].Intensity + intensityShift))
		}
		return "Raised intensity across all segments"

	case containsAny(inst, intensityDownKeywords):
		for i := range d.Segments {
			d.Segments[i].Intensity = ClampIntensity(float64(d.Segments[i].Intensity - intensityShift))
		}
		return "Lowered intensity across all segments"

	case containsAny(inst, hipHopKeywords):
		for i := range d.Segments {
			d.Segments[i].ClipID = MoveHipHopDance
		}
		return "Switched all segments to hiphop_dance"

	case containsAny(inst, popKeywords):
		for i := range d.Segments {
			d.Segments[i].ClipID = MoveArmsHipHop
		}
		return "Switched all segments to arms_hiphop"

	case containsAny(inst, darkVisualKeywords):
		d.VisualConcept = VisualConcept{
			Style:       "Cyberpunk Dark",
			ImagePrompt: "K-pop performers in black leather and chrome neon accents on a dark futuristic stage with laser beams, 8k cinematic.",
		}
		return "Visual concept set to Cyberpunk Dark"

	case containsAny(inst, pointMoveKeywords):
		last := len(d.Segments) - 1
		d.Segments[last].ClipID = MoveJazzDance
		d.Segments[last].Intensity = 9
		return fmt.Sprintf("Segment %s set to jazz_dance point choreo", d.Segments[last].ID)

	default:
		d.Segments[0].ClipID = MoveArmsHipHop
		d.Segments[0].Intensity = ClampIntensity(float64(d.Segments[0].Intensity + 1))
		return fmt.Sprintf("Nudged segment %s", d.Segments[0].ID)
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
