// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm implements the production inference client behind the
// stage service's InferenceClient interface, backed by an OpenAI-style
// API (official endpoint or any compatible gateway via base URL).
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/syncstage/services/stage"
)

// defaultPollInterval paces the uploaded-file readiness poll.
const defaultPollInterval = 2 * time.Second

// Config configures the OpenAI-backed inference client.
type Config struct {
	// APIKey authenticates against the API. Required.
	APIKey string

	// BaseURL overrides the API endpoint for compatible gateways.
	// Empty means the official endpoint.
	BaseURL string

	// Model is the chat model used for analysis and patch planning.
	Model string

	// ImageModel is the model used for wardrobe concept images.
	ImageModel string

	// PollInterval paces file-readiness polling. Zero means the default.
	PollInterval time.Duration
}

// ConfigFromEnv builds a Config from the environment, reading the API
// key from OPENAI_API_KEY or the Podman secret file as a fallback.
//
// Outputs:
//
//	Config - Populated config with model defaults applied
//	error - When no API key can be found anywhere
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		BaseURL:    os.Getenv("OPENAI_BASE_URL"),
		Model:      os.Getenv("OPENAI_MODEL"),
		ImageModel: os.Getenv("OPENAI_IMAGE_MODEL"),
	}
	if cfg.APIKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			cfg.APIKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			return Config{}, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	return cfg, nil
}

// OpenAIClient implements stage.InferenceClient against an OpenAI-style API.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	imageModel   string
	pollInterval time.Duration
}

// NewOpenAIClient creates a client from the given config.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	slog.Info("Initializing OpenAI inference client",
		"model", cfg.Model, "image_model", cfg.ImageModel)
	return &OpenAIClient{
		client:       openai.NewClientWithConfig(apiCfg),
		model:        cfg.Model,
		imageModel:   cfg.ImageModel,
		pollInterval: pollInterval,
	}, nil
}

// AnalyzeTrack uploads the audio, waits for the file to become
// available, then asks the chat model for a candidate draft in JSON
// mode. The returned document is untrusted; the stage normalizer owns
// all repair and validation.
//
// Inputs:
//
//	ctx - Bounds upload, polling, and the chat call
//	audio - Raw audio bytes
//	mimeType - Declared content type, used to pick the upload filename
//	durationMs - Known track duration, passed through to the prompt
//
// Outputs:
//
//	*stage.RawDraft - Candidate draft exactly as the model produced it
//	error - Upload, polling, API, or JSON decode failure
func (o *OpenAIClient) AnalyzeTrack(ctx context.Context, audio []byte, mimeType string, durationMs int) (*stage.RawDraft, error) {
	file, err := o.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    uploadFilename(mimeType),
		Bytes:   audio,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	// The file only matters for the duration of this analysis.
	defer func() {
		if err := o.client.DeleteFile(context.Background(), file.ID); err != nil {
			slog.Warn("Failed to delete uploaded audio file", "file_id", file.ID, "error", err)
		}
	}()

	if err := o.waitForFile(ctx, file.ID); err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(analysisUserPromptTemplate, file.ID, durationMs)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audio analysis call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("audio analysis returned no choices")
	}

	content := stripCodeFences(resp.Choices[0].Message.Content)
	var raw stage.RawDraft
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	slog.Debug("Audio analysis complete",
		"segments", len(raw.Segments), "finish_reason", resp.Choices[0].FinishReason)
	return &raw, nil
}

// waitForFile polls until the uploaded file leaves its processing
// states. The context deadline is the only timeout.
func (o *OpenAIClient) waitForFile(ctx context.Context, fileID string) error {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()
	for {
		file, err := o.client.GetFile(ctx, fileID)
		if err != nil {
			return fmt.Errorf("poll uploaded file: %w", err)
		}
		switch file.Status {
		case "processed", "uploaded", "":
			return nil
		case "error":
			return fmt.Errorf("uploaded file failed processing: %s", file.StatusDetails)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for uploaded file: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// PlanPatch asks the chat model to translate the instruction into tool
// calls against the current draft.
//
// Malformed individual tool calls are skipped with a warning rather
// than failing the plan; a response with no tool calls at all is a
// valid empty plan (the model judged no change necessary).
func (o *OpenAIClient) PlanPatch(ctx context.Context, instruction string, current *stage.Draft) (*stage.PatchPlan, error) {
	timeline, err := json.Marshal(current.Segments)
	if err != nil {
		return nil, fmt.Errorf("marshal timeline: %w", err)
	}
	concept, err := json.Marshal(current.VisualConcept)
	if err != nil {
		return nil, fmt.Errorf("marshal visual concept: %w", err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: patchSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(
				patchUserPromptTemplate, instruction, current.Revision, timeline, concept)},
		},
		Tools: patchTools(),
	})
	if err != nil {
		return nil, fmt.Errorf("patch planning call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("patch planning returned no choices")
	}

	msg := resp.Choices[0].Message
	plan := &stage.PatchPlan{Message: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		edit, err := parseToolCall(tc)
		if err != nil {
			slog.Warn("Skipping malformed tool call", "tool", tc.Function.Name, "error", err)
			continue
		}
		plan.Edits = append(plan.Edits, edit)
	}
	slog.Debug("Patch plan ready",
		"tool_calls", len(msg.ToolCalls), "edits", len(plan.Edits))
	return plan, nil
}

// GenerateImage renders the wardrobe concept via the image model and
// returns decoded PNG bytes.
func (o *OpenAIClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation call failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("image generation returned no data")
	}
	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}
	return img, nil
}

// DescribeConcept writes a one-sentence mood-board description of the
// visual concept for the placeholder path.
func (o *OpenAIClient) DescribeConcept(ctx context.Context, concept stage.VisualConcept) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a fashion editor. Answer with exactly one vivid sentence, no preamble."},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(
				"Describe a K-pop stage wardrobe concept in the style %q based on: %s", concept.Style, concept.ImagePrompt)},
		},
		MaxCompletionTokens: 120,
	})
	if err != nil {
		return "", fmt.Errorf("concept description call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("concept description returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// uploadFilename derives an upload filename from the declared mime type.
// The API infers the media format from the extension.
func uploadFilename(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return "track.wav"
	case "audio/ogg":
		return "track.ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "track.m4a"
	default:
		return "track.mp3"
	}
}

// Ensure OpenAIClient implements stage.InferenceClient.
var _ stage.InferenceClient = (*OpenAIClient)(nil)
