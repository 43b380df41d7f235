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
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// InferenceClient is the opaque multimodal inference collaborator.
//
// Every method is treated as fallible, slow, and occasionally malformed.
// The service's job is to make sure no failure or malformed response
// ever corrupts the draft invariants; all errors from this interface are
// absorbed into local fallbacks rather than surfaced to callers.
type InferenceClient interface {
	// AnalyzeTrack turns raw audio into an untrusted candidate draft.
	AnalyzeTrack(ctx context.Context, audio []byte, mimeType string, durationMs int) (*RawDraft, error)

	// PlanPatch turns a natural-language instruction into structured edits.
	PlanPatch(ctx context.Context, instruction string, current *Draft) (*PatchPlan, error)

	// GenerateImage renders the wardrobe concept image.
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)

	// DescribeConcept writes a one-sentence mood-board description.
	DescribeConcept(ctx context.Context, concept VisualConcept) (string, error)
}

// ServiceConfig configures the stage service.
type ServiceConfig struct {
	// Client is the inference collaborator. A nil client runs the
	// service in offline mode: every draft comes from the golden-path
	// fallback and every patch from the keyword policy.
	Client InferenceClient

	// MaxLogEntries caps the change log (see StoreConfig).
	MaxLogEntries int

	// Sink optionally persists state after each mutation.
	Sink SnapshotSink
}

// DefaultServiceConfig returns the standard configuration with no
// inference client and no persistence.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{MaxLogEntries: DefaultMaxLogEntries}
}

// Service orchestrates the draft lifecycle: audio submission, state
// reads, conflict-checked patching, preset loading, and visual
// generation.
type Service struct {
	store       *Store
	client      InferenceClient
	normalizer  *Normalizer
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewService creates a Service seeded with the hand-authored seed draft
// at revision 0.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store: NewStore(StoreConfig{
			Seed:            SeedDraft(),
			SeedDescription: "Loaded initial seed draft.",
			MaxLogEntries:   cfg.MaxLogEntries,
			Sink:            cfg.Sink,
		}),
		client:      cfg.Client,
		normalizer:  NewNormalizer(),
		broadcaster: NewBroadcaster(),
		logger:      slog.With("component", "stage"),
	}
}

// Store exposes the revision store, mainly for startup restore.
func (s *Service) Store() *Store { return s.store }

// Broadcaster exposes the websocket broadcaster for route registration.
func (s *Service) Broadcaster() *Broadcaster { return s.broadcaster }

// GetState returns a deep-copied snapshot of the current draft and
// change log.
func (s *Service) GetState() StateSnapshot {
	return s.store.GetState()
}

// SubmitAudio analyzes an uploaded track and installs the resulting
// draft at revision 0.
//
// Description:
//
//	The audio is sent to the inference collaborator and the candidate
//	output repaired by the normalizer. Any failure along the way
//	(inference error, timeout, unusable candidate batch) installs the
//	golden-path fallback draft instead; the absorbed cause lands in the
//	change log, never in the response.
//
// Inputs:
//
//	ctx - Request context; a deadline here bounds the analysis wait
//	audio - Raw audio bytes
//	mimeType - Declared content type; octet-stream is coerced to audio/mpeg
//	durationMs - Known track duration, 0 for the 30s default
//
// Outputs:
//
//	*Draft - The installed draft (analyzed or fallback), revision 0
//	bool - True when the golden-path fallback was used
func (s *Service) SubmitAudio(ctx context.Context, audio []byte, mimeType string, durationMs int) (*Draft, bool) {
	if durationMs <= 0 {
		durationMs = DefaultAudioDurationMs
	}
	// Browsers often send octet-stream for drag-and-dropped mp3 files.
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "audio/mpeg"
	}

	draft, err := s.analyzeAndNormalize(ctx, audio, mimeType, durationMs)
	if err != nil {
		s.logger.Warn("Draft creation degraded to fallback", "error", err)
		uploadsTotal.WithLabelValues("fallback").Inc()
		fallback := FallbackDraft()
		s.store.ReplaceDraft(fallback,
			"[Fallback Mode] Initial draft generated from golden path audio.",
			&PatchDetails{UsedFallback: true, Cause: err.Error()})
		s.notify()
		return fallback, true
	}

	uploadsTotal.WithLabelValues("analyzed").Inc()
	s.store.ReplaceDraft(draft, "Initial draft generated from audio upload.", nil)
	s.notify()
	return draft, false
}

func (s *Service) analyzeAndNormalize(ctx context.Context, audio []byte, mimeType string, durationMs int) (*Draft, error) {
	if s.client == nil {
		return nil, ErrInferenceUnavailable
	}
	raw, err := s.client.AnalyzeTrack(ctx, audio, mimeType, durationMs)
	if err != nil {
		return nil, fmt.Errorf("audio analysis: %w", err)
	}
	return s.normalizer.Normalize(*raw, durationMs)
}

// errNoEffect aborts a store.Apply whose edits matched nothing.
var errNoEffect = errors.New("patch had no effect")

// ApplyPatch applies a natural-language instruction to the current draft.
//
// Description:
//
//	The instruction plus the current draft go to the patch planner. The
//	returned structured edits are merged into a fresh copy under the
//	store's critical section, which re-checks expectedRevision at commit
//	time, so concurrent patches against the same token cannot both win.
//	One accepted instruction bumps the revision by exactly one no matter
//	how many edits it decomposed into; a plan with zero effective edits
//	leaves the draft and revision untouched. If the planner call itself
//	fails the deterministic keyword fallback runs instead, which always
//	commits and never reports an error.
//
// Inputs:
//
//	ctx - Request context
//	instruction - Non-empty natural-language instruction
//	expectedRevision - Optimistic concurrency token, nil to skip checking
//
// Outputs:
//
//	*PatchResponse - Committed (or unchanged) draft plus a message
//	error - ErrNoDraft or *RevisionConflictError; never inference errors
func (s *Service) ApplyPatch(ctx context.Context, instruction string, expectedRevision *int) (*PatchResponse, error) {
	snapshot := s.store.GetState()
	if snapshot.Draft == nil {
		return nil, ErrNoDraft
	}
	// Fast-path guard; the store re-checks under its lock at commit.
	if expectedRevision != nil && *expectedRevision != snapshot.Draft.Revision {
		patchesTotal.WithLabelValues("conflict").Inc()
		return nil, &RevisionConflictError{Expected: *expectedRevision, Current: snapshot.Draft.Revision}
	}

	plan, planErr := s.planPatch(ctx, instruction, snapshot.Draft)
	if planErr != nil {
		return s.applyFallbackPatch(instruction, expectedRevision, planErr)
	}

	if len(plan.Edits) == 0 {
		patchesTotal.WithLabelValues("noop").Inc()
		message := plan.Message
		if message == "" {
			message = "No changes needed."
		}
		return &PatchResponse{Draft: snapshot.Draft, Message: message}, nil
	}

	var appliedCount int
	newDraft, err := s.store.Apply(expectedRevision, instruction, func(current *Draft) (*Draft, *PatchDetails, error) {
		summary, applied := applyEdits(current, plan.Edits)
		if applied == 0 {
			return nil, nil, errNoEffect
		}
		appliedCount = applied
		current.Revision++
		current.LastAction = instruction
		return current, &PatchDetails{ToolsUsed: summary}, nil
	})
	if errors.Is(err, errNoEffect) {
		patchesTotal.WithLabelValues("noop").Inc()
		message := plan.Message
		if message == "" {
			message = "No changes needed."
		}
		return &PatchResponse{Draft: snapshot.Draft, Message: message}, nil
	}
	if err != nil {
		var conflict *RevisionConflictError
		if errors.As(err, &conflict) {
			patchesTotal.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	patchesTotal.WithLabelValues("applied").Inc()
	s.notify()
	message := plan.Message
	if message == "" {
		message = fmt.Sprintf("Applied %d changes.", appliedCount)
	}
	return &PatchResponse{Draft: newDraft, Message: message}, nil
}

func (s *Service) planPatch(ctx context.Context, instruction string, current *Draft) (*PatchPlan, error) {
	if s.client == nil {
		return nil, ErrInferenceUnavailable
	}
	return s.client.PlanPatch(ctx, instruction, current)
}

// applyFallbackPatch runs the keyword policy. It always bumps the
// revision and only fails on a revision conflict.
func (s *Service) applyFallbackPatch(instruction string, expectedRevision *int, cause error) (*PatchResponse, error) {
	s.logger.Warn("Patch degraded to keyword fallback", "error", cause)
	newDraft, err := s.store.Apply(expectedRevision, "[Fallback] "+instruction, func(current *Draft) (*Draft, *PatchDetails, error) {
		summary := applyKeywordFallback(current, instruction)
		current.Revision++
		current.LastAction = instruction
		return current, &PatchDetails{
			ToolsUsed:    []string{summary},
			UsedFallback: true,
			Cause:        cause.Error(),
		}, nil
	})
	if err != nil {
		var conflict *RevisionConflictError
		if errors.As(err, &conflict) {
			patchesTotal.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	patchesTotal.WithLabelValues("fallback").Inc()
	s.notify()
	return &PatchResponse{
		Draft:        newDraft,
		Message:      "Applied pattern-based patch (AI offline fallback).",
		UsedFallback: true,
	}, nil
}

// LoadPreset installs the hand-crafted demo draft at revision 0.
func (s *Service) LoadPreset() *Draft {
	preset := DemoPreset()
	s.store.ReplaceDraft(preset, "Demo preset loaded, ready for live presentation.", nil)
	s.notify()
	return preset
}

// GenerateVisual renders the current visual concept to an image.
//
// Image generation failures degrade to a curated placeholder photo
// matched to the style keyword; a description is still attempted via
// the text model before falling back to a static one.
func (s *Service) GenerateVisual(ctx context.Context) (*VisualResponse, error) {
	snapshot := s.store.GetState()
	if snapshot.Draft == nil {
		return nil, ErrNoDraft
	}
	concept := snapshot.Draft.VisualConcept

	// Fashion editorial framing keeps image models away from safety blocks.
	prompt := "K-pop fashion editorial concept art, " + concept.ImagePrompt +
		" Professional studio lighting, fashion magazine quality, 3:4 portrait, vibrant stage aesthetic."

	if s.client != nil {
		img, err := s.client.GenerateImage(ctx, prompt)
		if err == nil && len(img) > 0 {
			visualsTotal.WithLabelValues("generated").Inc()
			return &VisualResponse{
				ImageURL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
				Description: concept.Style + " — " + truncateRunes(concept.ImagePrompt, 100),
				Source:      "generated",
				Style:       concept.Style,
			}, nil
		}
		if err != nil {
			s.logger.Warn("Image generation failed, using placeholder", "error", err)
		}
	}

	description := concept.Style + " — " + truncateRunes(concept.ImagePrompt, 80) + "..."
	if s.client != nil {
		if desc, err := s.client.DescribeConcept(ctx, concept); err == nil && strings.TrimSpace(desc) != "" {
			description = desc
		}
	}

	visualsTotal.WithLabelValues("placeholder").Inc()
	return &VisualResponse{
		ImageURL:    PlaceholderImageURL(concept.Style),
		Description: description,
		Source:      "placeholder",
		Style:       concept.Style,
	}, nil
}

func (s *Service) notify() {
	s.broadcaster.Broadcast(s.store.GetState())
}
