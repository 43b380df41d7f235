// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_ZeroConfigIsUsable(t *testing.T) {
	l := New(Config{})
	defer l.Close()

	if l.Slog() == nil {
		t.Fatal("expected a usable logger from zero config")
	}
	if l.Slog().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be filtered by default")
	}
	if !l.Slog().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled by default")
	}
}

func TestNew_DebugLowersLevel(t *testing.T) {
	l := New(Config{Debug: true, Quiet: true})
	defer l.Close()

	if !l.Slog().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug config should enable debug level")
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{LogDir: dir, Service: "syncstage", Quiet: true})

	l.Slog().Info("draft committed", "revision", 3)
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	name := "syncstage_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("file log must be JSON: %v", err)
	}
	if entry["msg"] != "draft committed" {
		t.Errorf("unexpected message %v", entry["msg"])
	}
	if entry["service"] != "syncstage" {
		t.Errorf("expected service attribute, got %v", entry["service"])
	}
	if entry["revision"] != float64(3) {
		t.Errorf("expected revision attribute, got %v", entry["revision"])
	}
}

func TestNew_UnwritableLogDirSkipsFile(t *testing.T) {
	l := New(Config{LogDir: string([]byte{0})})
	defer l.Close()

	// Construction must still yield a working logger.
	l.Slog().Info("still alive")
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	}}

	logger := slog.New(h)
	logger.Info("patch applied", "revision", 1)

	for name, buf := range map[string]*bytes.Buffer{"a": &a, "b": &b} {
		if !strings.Contains(buf.String(), "patch applied") {
			t.Errorf("destination %s missing record: %q", name, buf.String())
		}
	}
}

func TestMultiHandler_WithAttrsPropagates(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	}}

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("service", "syncstage")}))
	logger.Info("hello")

	for name, buf := range map[string]*bytes.Buffer{"a": &a, "b": &b} {
		if !strings.Contains(buf.String(), `"service":"syncstage"`) {
			t.Errorf("destination %s missing attribute: %q", name, buf.String())
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	l := New(Config{LogDir: t.TempDir(), Quiet: true})
	if err := l.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
