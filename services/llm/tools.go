// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/AleutianAI/syncstage/services/stage"
)

// Tool names exposed to the patch planner.
const (
	toolUpdateSegment = "update_segment"
	toolUpdateStyle   = "update_style"
)

// patchTools returns the tool palette for PlanPatch calls.
//
// The schema mirrors the wire shape of the draft document (camelCase),
// and clipId is a closed enum so the model cannot invent move tags.
func patchTools() []openai.Tool {
	moveTags := make([]string, 0, len(stage.AllMoveTags))
	for _, t := range stage.AllMoveTags {
		moveTags = append(moveTags, string(t))
	}

	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolUpdateSegment,
				Description: "Update one choreography segment. Only include the fields that should change.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"id": {
							Type:        jsonschema.String,
							Description: "The id of the segment to update (e.g. seg_01).",
						},
						"clipId": {
							Type:        jsonschema.String,
							Description: "The new dance move for this segment.",
							Enum:        moveTags,
						},
						"intensity": {
							Type:        jsonschema.Integer,
							Description: "The new intensity, an integer from 1 to 10.",
						},
						"reason": {
							Type:        jsonschema.String,
							Description: "A short note (max 140 chars) explaining the change.",
						},
					},
					Required: []string{"id"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolUpdateStyle,
				Description: "Replace the visual wardrobe concept for the whole performance.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"style": {
							Type:        jsonschema.String,
							Description: "Short style label, e.g. Y2K Retro Pop.",
						},
						"imagePrompt": {
							Type:        jsonschema.String,
							Description: "Detailed wardrobe description for image generation.",
						},
					},
					Required: []string{"style", "imagePrompt"},
				},
			},
		},
	}
}

// updateSegmentArgs is the decoded argument payload of update_segment.
// Pointer fields preserve presence so an omitted field is never confused
// with an explicit zero.
type updateSegmentArgs struct {
	ID        string  `json:"id"`
	ClipID    *string `json:"clipId"`
	Intensity *int    `json:"intensity"`
	Reason    *string `json:"reason"`
}

// updateStyleArgs is the decoded argument payload of update_style.
type updateStyleArgs struct {
	Style       string `json:"style"`
	ImagePrompt string `json:"imagePrompt"`
}

// parseToolCall converts one model tool call into a structured edit.
//
// Unknown tool names and undecodable arguments are errors; the caller
// decides whether to skip or fail the whole plan. An invalid clipId is
// soft-dropped (the field, not the call) since the remaining fields may
// still be useful.
func parseToolCall(tc openai.ToolCall) (stage.Edit, error) {
	switch tc.Function.Name {
	case toolUpdateSegment:
		var args updateSegmentArgs
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", toolUpdateSegment, err)
		}
		if strings.TrimSpace(args.ID) == "" {
			return nil, fmt.Errorf("%s call missing segment id", toolUpdateSegment)
		}
		edit := stage.SegmentEdit{
			ID:        strings.TrimSpace(args.ID),
			Intensity: args.Intensity,
			Reason:    args.Reason,
		}
		if args.ClipID != nil {
			tag := stage.MoveTag(*args.ClipID)
			if stage.IsValidMoveTag(tag) {
				edit.ClipID = &tag
			}
		}
		return edit, nil

	case toolUpdateStyle:
		var args updateStyleArgs
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", toolUpdateStyle, err)
		}
		return stage.StyleEdit{
			Style:       strings.TrimSpace(args.Style),
			ImagePrompt: strings.TrimSpace(args.ImagePrompt),
		}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", tc.Function.Name)
	}
}

// stripCodeFences removes a surrounding markdown code fence, which JSON
// mode does not reliably suppress on all providers.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
