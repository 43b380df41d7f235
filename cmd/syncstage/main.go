// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command syncstage starts the SyncStage draft engine API server.
//
// SyncStage turns an uploaded K-pop track into a versioned choreography
// draft and refines it through natural-language patches:
//   - Audio analysis via a multimodal model, repaired by a strict normalizer
//   - Optimistic-concurrency patch protocol with a deterministic fallback
//   - Wardrobe concept image generation with curated placeholders
//   - Websocket state push and BadgerDB snapshot persistence
//
// Usage:
//
//	go run ./cmd/syncstage
//	go run ./cmd/syncstage -port 9090 -debug
//	go run ./cmd/syncstage -config syncstage.yaml
//
// With inference enabled:
//
//	OPENAI_API_KEY=sk-... go run ./cmd/syncstage
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8086/v1/stage/health
//
//	# Upload a track
//	curl -X POST http://localhost:8086/v1/stage/draft \
//	  -F "file=@track.mp3" -F "durationMs=30000"
//
//	# Patch the draft
//	curl -X POST http://localhost:8086/v1/stage/patch \
//	  -H "Content-Type: application/json" \
//	  -d '{"instruction": "Make the chorus more intense", "expectedRevision": 0}'
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/syncstage/pkg/config"
	"github.com/AleutianAI/syncstage/pkg/logging"
	"github.com/AleutianAI/syncstage/services/llm"
	"github.com/AleutianAI/syncstage/services/stage"
	"github.com/AleutianAI/syncstage/services/stage/snapshot"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	dataDir := flag.String("data-dir", "", "Snapshot directory (overrides config, empty keeps config value)")
	noPersist := flag.Bool("no-persist", false, "Disable snapshot persistence")
	logDir := flag.String("log-dir", "", "Directory for JSON log files (empty disables file logging)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Server.Debug = true
	}
	if *dataDir != "" {
		cfg.Stage.DataDir = *dataDir
	}
	if *noPersist {
		cfg.Stage.DataDir = ""
	}

	logger := logging.New(logging.Config{
		Debug:   cfg.Server.Debug,
		LogDir:  *logDir,
		Service: "syncstage",
		JSON:    true,
	})
	defer logger.Close()
	logger.Install()

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	svcCfg := stage.DefaultServiceConfig()
	if cfg.Stage.MaxLogEntries > 0 {
		svcCfg.MaxLogEntries = cfg.Stage.MaxLogEntries
	}

	// Snapshot persistence is optional; the engine runs fine in memory.
	var snapStore *snapshot.Store
	if cfg.Stage.DataDir != "" {
		snapStore, err = snapshot.Open(cfg.Stage.DataDir)
		if err != nil {
			slog.Error("Failed to open snapshot store", "dir", cfg.Stage.DataDir, "error", err)
			os.Exit(1)
		}
		svcCfg.Sink = snapStore
	}

	inferenceEnabled := setupInference(&svcCfg, cfg.Inference)

	svc := stage.NewService(svcCfg)
	if snapStore != nil {
		restoreSnapshot(svc, snapStore)
	}

	handlers := stage.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	stage.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(cfg.Server.Port, inferenceEnabled)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down SyncStage server")
		if snapStore != nil {
			if err := snapStore.Close(); err != nil {
				slog.Error("Failed to close snapshot store", "error", err)
			}
		}
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting SyncStage server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupInference wires the OpenAI client into the service config.
//
// Returns false when no API key is available, in which case the engine
// runs in offline mode: fallback drafts and keyword patches only.
func setupInference(svcCfg *stage.ServiceConfig, inf config.InferenceConfig) bool {
	llmCfg, err := llm.ConfigFromEnv()
	if err != nil {
		slog.Warn("Inference not available, running in offline fallback mode", "error", err)
		slog.Info("Set OPENAI_API_KEY to enable audio analysis and AI patches")
		return false
	}
	// Config file values fill gaps the environment left.
	if llmCfg.BaseURL == "" {
		llmCfg.BaseURL = inf.BaseURL
	}
	if inf.Model != "" && os.Getenv("OPENAI_MODEL") == "" {
		llmCfg.Model = inf.Model
	}
	if inf.ImageModel != "" && os.Getenv("OPENAI_IMAGE_MODEL") == "" {
		llmCfg.ImageModel = inf.ImageModel
	}

	client, err := llm.NewOpenAIClient(llmCfg)
	if err != nil {
		slog.Warn("Failed to create inference client, running in offline fallback mode", "error", err)
		return false
	}
	svcCfg.Client = client
	return true
}

// restoreSnapshot loads the last persisted state into the store. A
// corrupt or missing snapshot never blocks startup.
func restoreSnapshot(svc *stage.Service, snapStore *snapshot.Store) {
	state, err := snapStore.Load()
	if err != nil {
		slog.Warn("Failed to load snapshot, starting from seed draft", "error", err)
		return
	}
	if state == nil || state.Draft == nil {
		return
	}
	svc.Store().Restore(*state)
}

func printBanner(port int, inferenceEnabled bool) {
	aiStatus := "OFFLINE (set OPENAI_API_KEY to enable)"
	if inferenceEnabled {
		aiStatus = "ENABLED (OpenAI connected)"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                        SYNCSTAGE SERVER                           ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  AI choreography draft engine for K-pop demo stages.              ║
║  Inference: %-50s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/stage/health                  │  ║
║  │                                                             │  ║
║  │ # Upload a track                                            │  ║
║  │ curl -X POST http://localhost:%d/v1/stage/draft \         │  ║
║  │   -F "file=@track.mp3" -F "durationMs=30000"                │  ║
║  │                                                             │  ║
║  │ # Patch the draft                                           │  ║
║  │ curl -X POST http://localhost:%d/v1/stage/patch \         │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"instruction": "More intense", "expectedRevision":0}'│  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Draft: POST /draft, POST /preset, GET /state                ║
║  ├── Patch: POST /patch (optimistic concurrency via revision)    ║
║  ├── Visual: POST /visual                                        ║
║  └── Ops: GET /health, GET /ws, GET /metrics                     ║
║                                                                   ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, aiStatus, port, port, port)
}
