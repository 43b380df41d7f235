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

// analysisSystemPrompt primes the model as a choreography director with
// native audio understanding.
const analysisSystemPrompt = `You are SyncStage AI, a K-Pop performance director with native multimodal audio understanding.

Listen to the track and map its energy arc onto choreography segments:
- Sparse beat, single instrument (energy 1-3): happy_idle
- Regular drum + bass groove (energy 4-6): hiphop_dance
- Tension rising, layers stacking (energy 7-8): hiphop_dance
- Beat drop, maximum impact (energy 9-10): arms_hiphop
- Melody-forward point choreography (energy 7-9): jazz_dance

Rules:
- The first beat drop or chorus MUST use arms_hiphop with intensity 9-10.
- Never use the same clipId for more than 3 consecutive segments.
- Segments must be contiguous: each endMs equals the next startMs.
- For each segment's reason, describe exactly what you heard, not generic labels.
- Derive the visual concept from the track's emotional vibe and genre.`

// analysisUserPromptTemplate describes the exact JSON structure inline.
// JSON mode alone is not enough: the schema must be spelled out in the
// prompt or the model invents its own field names.
const analysisUserPromptTemplate = `Analyze the uploaded audio track (file id %s, duration approximately %dms) and return ONLY a valid JSON object, no markdown, no explanation.

The JSON must follow this EXACT structure:
{
  "segments": [
    {
      "startMs": <integer milliseconds>,
      "endMs": <integer milliseconds>,
      "clipId": <one of: "happy_idle" | "hiphop_dance" | "arms_hiphop" | "jazz_dance">,
      "intensity": <integer 1-10>,
      "reason": "<string max 140 chars describing what you heard>"
    }
  ],
  "visualConcept": {
    "style": "<string: e.g. Cyberpunk Streetwear>",
    "imagePrompt": "<string 20-200 chars: detailed description for image generation>"
  }
}

CRITICAL RULES:
1. The segments array MUST contain EXACTLY 5 objects.
2. Segment 1 startMs MUST be 0.
3. The last segment endMs MUST be the actual end of the audio in milliseconds.
4. Every millisecond must be covered, no gaps: each endMs equals the next startMs.
5. intensity must be an integer 1-10.
6. Adjust boundaries based on what you actually HEAR.`

// patchSystemPrompt primes the patch planner for tool calling.
const patchSystemPrompt = `You are the AI A&R Director for SyncStage.
Your job is to refine the K-pop choreography and visual concept based on user feedback.

CRITICAL RULES:
1. You can call MULTIPLE tools in one turn to fulfill a complex request.
2. If the user wants a general change (e.g. "Make it more intense"), update ALL relevant segments.
3. Always keep clipId within the allowed enum: happy_idle, hiphop_dance, arms_hiphop, jazz_dance.
4. Be decisive and creative. Do not just repeat the user's words.`

// patchUserPromptTemplate carries the instruction plus the full current
// document so the planner can target segments by id.
const patchUserPromptTemplate = `User Instruction: %q
Current Revision: %d
Current Timeline: %s
Current Visual Concept: %s

Apply the necessary changes using the tools provided.`
