// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/syncstage/services/stage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_LoadEmpty(t *testing.T) {
	s := openTestStore(t)

	state, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, state, "empty store must load nil, not an error")
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := stage.StateSnapshot{
		Draft: &stage.Draft{
			Revision: 3,
			Segments: []stage.Segment{
				{ID: "seg_01", StartMs: 0, EndMs: 15000, ClipID: stage.MoveHipHopDance, Intensity: 7, Reason: "Verse groove"},
				{ID: "seg_02", StartMs: 15000, EndMs: 30000, ClipID: stage.MoveArmsHipHop, Intensity: 10, Reason: "Drop"},
			},
			VisualConcept: stage.VisualConcept{
				Style:       "Cyberpunk Streetwear",
				ImagePrompt: "Neon-lit rain-slicked stage with holographic jackets.",
			},
			LastAction: "make it more intense",
		},
		ChangeLog: []stage.ChangeLogEntry{
			{
				Timestamp:   time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC),
				Description: "make it more intense",
				PatchDetails: &stage.PatchDetails{
					ToolsUsed:    []string{"Segment seg_01 refined"},
					UsedFallback: false,
				},
			},
		},
	}

	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := openTestStore(t)

	first := stage.StateSnapshot{Draft: &stage.Draft{Revision: 1, Segments: stage.SeedDraft().Segments}}
	second := stage.StateSnapshot{Draft: &stage.Draft{Revision: 2, Segments: stage.SeedDraft().Segments}}

	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Draft.Revision, "latest snapshot wins")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	state := stage.StateSnapshot{Draft: stage.SeedDraft()}
	require.NoError(t, s.Save(state))
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Draft.Revision)
	assert.Len(t, got.Draft.Segments, 5)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
