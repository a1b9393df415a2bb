package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/applyctl/internal/apply"
	"github.com/danmuck/applyctl/internal/protocol"
)

// toolConfig carries applyctl's own settings, distinct from recipes.
type toolConfig struct {
	CommitPending apply.CommitPending
	ResultFormat  protocol.Codec
	Timeout       time.Duration
	Env           map[string]string
}

// applyctl config.toml key mapping.
type fileConfig struct {
	CommitPending string            `toml:"commit_pending"`
	ResultFormat  string            `toml:"result_format"`
	Timeout       string            `toml:"timeout"`
	Env           map[string]string `toml:"env"`
}

func defaultToolConfig() toolConfig {
	return toolConfig{
		CommitPending: apply.CommitAuto,
		ResultFormat:  protocol.JSONCodec{},
	}
}

// applyctl loader for TOML config with default overlay.
func loadToolConfig(path string) (toolConfig, error) {
	cfg := defaultToolConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return toolConfig{}, fmt.Errorf("load applyctl config: %w", err)
	}

	if meta.IsDefined("commit_pending") {
		pending, err := apply.ParseCommitPending(raw.CommitPending)
		if err != nil {
			return toolConfig{}, fmt.Errorf("load applyctl config: %w", err)
		}
		cfg.CommitPending = pending
	}
	if meta.IsDefined("result_format") {
		codec, err := protocol.CodecByName(strings.TrimSpace(raw.ResultFormat))
		if err != nil {
			return toolConfig{}, fmt.Errorf("load applyctl config: %w", err)
		}
		cfg.ResultFormat = codec
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return toolConfig{}, fmt.Errorf("load applyctl config: parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("env") {
		cfg.Env = raw.Env
	}

	return cfg, nil
}
