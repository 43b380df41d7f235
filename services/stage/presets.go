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

// Hand-authored drafts. These exist so the service always has something
// plausible to show: the seed draft at process start, the golden-path
// fallback whenever analysis or normalization fails, and the demo preset
// for live presentations that must not depend on the inference provider.

// SeedDraft returns the draft the store is initialized with at process
// start, covering a 60 second track.
func SeedDraft() *Draft {
	return &Draft{
		Revision: 0,
		Segments: []Segment{
			{
				ID: "seg_01", StartMs: 0, EndMs: 8000,
				ClipID: MoveHappyIdle, Intensity: 3,
				Reason: "Soft intro — minimal percussion, establishing stage presence.",
			},
			{
				ID: "seg_02", StartMs: 8000, EndMs: 20000,
				ClipID: MoveHipHopDance, Intensity: 6,
				Reason: "Pre-chorus builds momentum with syncopated groove.",
			},
			{
				ID: "seg_03", StartMs: 20000, EndMs: 34000,
				ClipID: MoveArmsHipHop, Intensity: 9,
				Reason: "Main hook — full bass drop, maximum energy, crowd moment.",
			},
			{
				ID: "seg_04", StartMs: 34000, EndMs: 46000,
				ClipID: MoveJazzDance, Intensity: 5,
				Reason: "Bridge — melodic interlude with smooth fluid transitions.",
			},
			{
				ID: "seg_05", StartMs: 46000, EndMs: 60000,
				ClipID: MoveArmsHipHop, Intensity: 8,
				Reason: "Final chorus — signature point move, iconic ending pose.",
			},
		},
		VisualConcept: VisualConcept{
			Style:       "Cyberpunk Streetwear",
			ImagePrompt: "Five K-pop performers in iridescent holographic jackets and chrome accessories on a neon-lit rain-slicked stage, dramatic fog, 8k cinematic.",
		},
	}
}

// FallbackDraft returns the fixed golden-path draft used whenever
// analysis or normalization cannot produce a trustworthy result. Tuned
// to the 30 second demo track.
func FallbackDraft() *Draft {
	return &Draft{
		Revision: 0,
		Segments: []Segment{
			{
				ID: NewSegmentID(), StartMs: 0, EndMs: 5000,
				ClipID: MoveHappyIdle, Intensity: 3,
				Reason: "Sparse hi-hat intro with vocal build-up — establishing anticipation before the drop.",
			},
			{
				ID: NewSegmentID(), StartMs: 5000, EndMs: 12000,
				ClipID: MoveHipHopDance, Intensity: 6,
				Reason: "Four-on-the-floor kick drum locks in — syncopated groove drives the verse momentum.",
			},
			{
				ID: NewSegmentID(), StartMs: 12000, EndMs: 20000,
				ClipID: MoveArmsHipHop, Intensity: 10,
				Reason: "BEAT DROP — heavy bass explosion with full band, maximum power move, crowd ignition.",
			},
			{
				ID: NewSegmentID(), StartMs: 20000, EndMs: 26000,
				ClipID: MoveJazzDance, Intensity: 7,
				Reason: "Melodic bridge — emotional highlight with fluid point choreography.",
			},
			{
				ID: NewSegmentID(), StartMs: 26000, EndMs: 30000,
				ClipID: MoveArmsHipHop, Intensity: 9,
				Reason: "FINALE — explosive ending pose with signature freeze frame.",
			},
		},
		VisualConcept: VisualConcept{
			Style:       "Cyberpunk Streetwear",
			ImagePrompt: "Five K-pop idols in iridescent holographic jackets, chrome accessories, neon-lit rain-slicked stage, dramatic fog machines, 8k cinematic wide shot.",
		},
	}
}

// DemoPreset returns the hand-crafted 15 second demo draft loaded via
// POST /v1/stage/preset. No inference call is involved.
func DemoPreset() *Draft {
	return &Draft{
		Revision: 0,
		Segments: []Segment{
			{
				ID: "preset_01", StartMs: 0, EndMs: 3000,
				ClipID: MoveHappyIdle, Intensity: 3,
				Reason: "Intro — sparse hi-hat builds anticipation before the first drop.",
			},
			{
				ID: "preset_02", StartMs: 3000, EndMs: 6500,
				ClipID: MoveHipHopDance, Intensity: 6,
				Reason: "Verse groove — syncopated kick + snare pattern locks the rhythm in.",
			},
			{
				ID: "preset_03", StartMs: 6500, EndMs: 10000,
				ClipID: MoveArmsHipHop, Intensity: 10,
				Reason: "BEAT DROP — full bass explosion, maximum power arms, crowd ignition.",
			},
			{
				ID: "preset_04", StartMs: 10000, EndMs: 13000,
				ClipID: MoveJazzDance, Intensity: 7,
				Reason: "Point choreo — melodic highlight with precise, elegant signature move.",
			},
			{
				ID: "preset_05", StartMs: 13000, EndMs: 15000,
				ClipID: MoveArmsHipHop, Intensity: 9,
				Reason: "FINALE — explosive ending pose, freeze frame, curtain call.",
			},
		},
		VisualConcept: VisualConcept{
			Style:       "Cyberpunk Streetwear",
			ImagePrompt: "Five K-pop idols in iridescent holographic jackets, chrome accessories, neon-lit rain-slicked stage, dramatic fog machines, stadium crowd, 8k cinematic wide shot.",
		},
		LastAction: "Demo preset loaded",
	}
}
