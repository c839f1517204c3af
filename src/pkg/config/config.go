// Package config provides functionality for loading, saving, and managing
// application configuration settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"inkboard/src/pkg/model"
)

// DefaultPath is used when no configuration path is given.
const DefaultPath = "./data/config.json"

// Global variables to store the current configuration and its file path.
var (
	currentConfig *model.Config
	configPath    = DefaultPath
)

// Default returns the configuration written on first run.
func Default() *model.Config {
	return &model.Config{
		DatabaseType:      "sqlite",
		DatabaseDir:       "./data",
		DatabaseFile:      "inkboard.db",
		LogFolder:         "./logs",
		CommandLog:        "commands.log",
		ErrorLog:          "errors.log",
		InfoLog:           "info.log",
		HistoryFile:       "./data/history",
		BlobDir:           "./data/blobs",
		SaveDir:           "./data/saves",
		ExportDir:         "./data/exports",
		Participant:       "local",
		ReplicationListen: "",
		OrderEpsilon:      0.0001,
		PixelsPerUnit:     100,
		DefaultThickness:  0.01,
		DefaultColor:      "#000000ff",
		DefaultFontSize:   0.5,
	}
}

// ConfigLoad loads the configuration from path, JSON or TOML by extension.
// If the file doesn't exist, it creates a default configuration.
func ConfigLoad(path string) error {
	if path != "" {
		configPath = path
	}

	dataDir := filepath.Dir(configPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := Default()
		if err := ConfigSave(cfg); err != nil {
			return fmt.Errorf("failed to create default config: %w", err)
		}
		currentConfig = cfg
		return nil
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &model.Config{}
	if isTOML(configPath) {
		err = toml.Unmarshal(file, cfg)
	} else {
		err = json.Unmarshal(file, cfg)
	}
	if err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	if fillDefaults(cfg) {
		if err := ConfigSave(cfg); err != nil {
			return fmt.Errorf("failed to save updated config: %w", err)
		}
	}
	currentConfig = cfg
	return nil
}

// ConfigSave saves the provided configuration to the current config path.
func ConfigSave(cfg *model.Config) error {
	var data []byte
	var err error
	if isTOML(configPath) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// ConfigGet returns the current configuration.
func ConfigGet() *model.Config {
	return currentConfig
}

// ConfigPath returns the path the configuration was loaded from.
func ConfigPath() string {
	return configPath
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// fillDefaults sets empty fields from Default and reports whether any changed.
func fillDefaults(cfg *model.Config) bool {
	def := Default()
	changed := false
	setString := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
			changed = true
		}
	}
	setFloat := func(dst *float32, v float32) {
		if *dst <= 0 {
			*dst = v
			changed = true
		}
	}

	setString(&cfg.DatabaseType, def.DatabaseType)
	setString(&cfg.DatabaseDir, def.DatabaseDir)
	setString(&cfg.DatabaseFile, def.DatabaseFile)
	setString(&cfg.LogFolder, def.LogFolder)
	setString(&cfg.CommandLog, def.CommandLog)
	setString(&cfg.ErrorLog, def.ErrorLog)
	setString(&cfg.InfoLog, def.InfoLog)
	setString(&cfg.HistoryFile, def.HistoryFile)
	setString(&cfg.BlobDir, def.BlobDir)
	setString(&cfg.SaveDir, def.SaveDir)
	setString(&cfg.ExportDir, def.ExportDir)
	setString(&cfg.Participant, def.Participant)
	setString(&cfg.DefaultColor, def.DefaultColor)
	setFloat(&cfg.OrderEpsilon, def.OrderEpsilon)
	setFloat(&cfg.PixelsPerUnit, def.PixelsPerUnit)
	setFloat(&cfg.DefaultThickness, def.DefaultThickness)
	setFloat(&cfg.DefaultFontSize, def.DefaultFontSize)
	return changed
}

// DrawingContext builds the initial per-session drawing context from cfg.
func DrawingContext(cfg *model.Config) (model.DrawingContext, error) {
	dc := model.DefaultDrawingContext()
	if cfg == nil {
		return dc, nil
	}
	if cfg.DefaultColor != "" {
		c, err := model.ParseColor(cfg.DefaultColor)
		if err != nil {
			return dc, fmt.Errorf("invalid default color: %w", err)
		}
		dc.PrimaryColor = c
		dc.FontColor = c
	}
	if cfg.DefaultThickness > 0 {
		dc.Thickness = cfg.DefaultThickness
	}
	if cfg.DefaultFontSize > 0 {
		dc.FontSize = cfg.DefaultFontSize
	}
	return dc, nil
}
