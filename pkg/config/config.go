// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config provides configuration loading for the syncstage server.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file, then environment variables. Flags in cmd/syncstage override all
// three for the values they cover.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize is the maximum allowed config file size (1MB).
const MaxYAMLFileSize = 1024 * 1024

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port  int  `yaml:"port"`
	Debug bool `yaml:"debug"`
}

// StageConfig holds draft-engine settings.
type StageConfig struct {
	// MaxLogEntries caps the change log. Zero means the engine default.
	MaxLogEntries int `yaml:"max_log_entries"`

	// DataDir is the snapshot database directory. Empty disables
	// persistence and the engine runs purely in memory.
	DataDir string `yaml:"data_dir"`
}

// InferenceConfig holds inference client settings. The API key itself
// never lives in the config file; it comes from the environment or the
// secret file (see services/llm).
type InferenceConfig struct {
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
	BaseURL    string `yaml:"base_url"`
}

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Stage     StageConfig     `yaml:"stage"`
	Inference InferenceConfig `yaml:"inference"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8086},
		Stage:  StageConfig{DataDir: "data/syncstage"},
	}
}

// Load builds the effective configuration.
//
// Description:
//
//	Starts from Default(), merges the YAML file at path when path is
//	non-empty, then applies environment overrides. A missing file at an
//	explicitly given path is an error; path == "" skips the file layer.
//
// Environment overrides:
//
//	SYNCSTAGE_PORT, SYNCSTAGE_DEBUG, SYNCSTAGE_DATA_DIR
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return Config{}, fmt.Errorf("stat config file %s: %w", path, err)
		}
		if info.Size() > MaxYAMLFileSize {
			return Config{}, fmt.Errorf("config file %s exceeds %d bytes", path, MaxYAMLFileSize)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SYNCSTAGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SYNCSTAGE_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Debug = debug
		}
	}
	if v := os.Getenv("SYNCSTAGE_DATA_DIR"); v != "" {
		cfg.Stage.DataDir = v
	}
}
