// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "syncstage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8086, cfg.Server.Port)
	assert.False(t, cfg.Server.Debug)
	assert.Equal(t, "data/syncstage", cfg.Stage.DataDir)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  debug: true
stage:
  max_log_entries: 32
  data_dir: /var/lib/syncstage
inference:
  model: gpt-4o
  base_url: http://localhost:11434/v1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, 32, cfg.Stage.MaxLogEntries)
	assert.Equal(t, "/var/lib/syncstage", cfg.Stage.DataDir)
	assert.Equal(t, "gpt-4o", cfg.Inference.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Inference.BaseURL)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  debug: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, 8086, cfg.Server.Port, "unset values keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9090\n")
	t.Setenv("SYNCSTAGE_PORT", "7070")
	t.Setenv("SYNCSTAGE_DEBUG", "true")
	t.Setenv("SYNCSTAGE_DATA_DIR", "/tmp/syncstage-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "/tmp/syncstage-test", cfg.Stage.DataDir)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_InvalidPortFails(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 99999\n")
	_, err := Load(path)
	require.Error(t, err)
}
