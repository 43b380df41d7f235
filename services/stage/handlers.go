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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxUploadBytes bounds accepted audio uploads (25 MiB).
const MaxUploadBytes = 25 << 20

// Handlers contains the HTTP handlers for the stage service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleSubmitAudio handles POST /v1/stage/draft.
//
// Description:
//
//	Accepts a multipart audio upload, runs analysis + normalization,
//	and installs the resulting draft at revision 0. Analysis failures
//	degrade to the golden-path fallback draft; only a missing or
//	oversized file is a caller error.
//
// Form fields:
//
//	file - The audio file (required)
//	durationMs - Track duration in milliseconds (optional, default 30000)
//
// Response:
//
//	200 OK: DraftResponse
//	400 Bad Request: Missing file or unreadable upload
func (h *Handlers) HandleSubmitAudio(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSubmitAudio")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		logger.Warn("No file provided", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "No file provided",
			Code:  "MISSING_FILE",
		})
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		logger.Warn("Upload too large", "size", fileHeader.Size)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Audio file exceeds the upload limit",
			Code:  "FILE_TOO_LARGE",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open upload", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Could not read uploaded file",
			Code:  "UNREADABLE_FILE",
		})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes))
	if err != nil {
		logger.Error("Failed to read upload", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Could not read uploaded file",
			Code:  "UNREADABLE_FILE",
		})
		return
	}

	durationMs := 0
	if v := c.PostForm("durationMs"); v != "" {
		durationMs, _ = strconv.Atoi(v)
	}

	logger.Info("Processing audio upload",
		"filename", fileHeader.Filename,
		"size", len(audio),
		"duration_ms", durationMs,
	)

	draft, usedFallback := h.svc.SubmitAudio(
		c.Request.Context(), audio, fileHeader.Header.Get("Content-Type"), durationMs)
	c.JSON(http.StatusOK, DraftResponse{Draft: draft, UsedFallback: usedFallback})
}

// HandleGetState handles GET /v1/stage/state.
//
// Response:
//
//	200 OK: StateSnapshot
func (h *Handlers) HandleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.GetState())
}

// HandleApplyPatch handles POST /v1/stage/patch.
//
// Description:
//
//	Applies a natural-language instruction to the current draft with
//	optional optimistic conflict checking. Planner failures degrade to
//	the deterministic keyword fallback and still return 200.
//
// Request Body:
//
//	PatchRequest
//
// Response:
//
//	200 OK: PatchResponse
//	400 Bad Request: Missing instruction or no draft
//	409 Conflict: Stale expectedRevision, body carries currentRevision
func (h *Handlers) HandleApplyPatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleApplyPatch")

	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "No instruction provided",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Applying patch",
		"instruction", req.Instruction,
		"expected_revision", req.ExpectedRevision,
	)

	resp, err := h.svc.ApplyPatch(c.Request.Context(), req.Instruction, req.ExpectedRevision)
	if err != nil {
		var conflict *RevisionConflictError
		switch {
		case errors.As(err, &conflict):
			logger.Warn("Revision conflict", "current", conflict.Current)
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:           "Revision conflict: the timeline has been updated by another action",
				Code:            "REVISION_CONFLICT",
				CurrentRevision: &conflict.Current,
			})
		case errors.Is(err, ErrNoDraft):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "No draft available to patch",
				Code:  "NO_DRAFT",
			})
		default:
			logger.Error("Patch failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "Patch failed",
				Code:  "PATCH_FAILED",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleLoadPreset handles POST /v1/stage/preset.
//
// Response:
//
//	200 OK: DraftResponse with the demo preset at revision 0
func (h *Handlers) HandleLoadPreset(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	slog.Info("Loading demo preset", "request_id", requestID)
	draft := h.svc.LoadPreset()
	c.JSON(http.StatusOK, DraftResponse{Draft: draft})
}

// HandleGenerateVisual handles POST /v1/stage/visual.
//
// Response:
//
//	200 OK: VisualResponse (generated image or placeholder)
//	400 Bad Request: No draft available
func (h *Handlers) HandleGenerateVisual(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGenerateVisual")

	resp, err := h.svc.GenerateVisual(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoDraft) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "No draft available",
				Code:  "NO_DRAFT",
			})
			return
		}
		logger.Error("Visual generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Visual generation failed",
			Code:  "VISUAL_FAILED",
		})
		return
	}

	logger.Info("Visual generated", "source", resp.Source, "style", resp.Style)
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/stage/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	revision := h.svc.Store().CurrentRevision()
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  ServiceVersion,
		Revision: &revision,
	})
}

// HandleWebsocket handles GET /v1/stage/ws.
func (h *Handlers) HandleWebsocket(c *gin.Context) {
	if err := h.svc.Broadcaster().Serve(c.Writer, c.Request); err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
	}
}

// getOrCreateRequestID returns the X-Request-ID header, generating one
// when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
