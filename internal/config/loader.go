package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"agentpanel/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	AgentConfigPath   string           `json:"AgentConfigPath"`
	PluginDir         string           `json:"PluginDir"`
	UnitName          string           `json:"UnitName"`
	ProcessName       string           `json:"ProcessName"`
	FallbackScript    string           `json:"FallbackScript"`
	DefaultAPIBaseURL string           `json:"DefaultAPIBaseURL"`
	VersionPaths      []string         `json:"VersionPaths"`
	UnitDirs          []string         `json:"UnitDirs"`
	BinaryPaths       []string         `json:"BinaryPaths"`
	LogFiles          []string         `json:"LogFiles"`
	Elevate           []string         `json:"Elevate"`
	DisableElevation  bool             `json:"DisableElevation"`
	CommandTimeout    string           `json:"CommandTimeout"`
	RestartTimeout    string           `json:"RestartTimeout"`
	WatchRefresh      string           `json:"WatchRefresh"`
	TailLines         int              `json:"TailLines"`
	MaxTailLines      int              `json:"MaxTailLines"`
	MetricsTextfile   string           `json:"MetricsTextfile"`
	Logging           rawLoggingConfig `json:"Logging"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   *bool  `json:"Compress"`
	Console    bool   `json:"Console"`
	Format     string `json:"Format"`
}

// Load reads settings from path. Comments and trailing commas are allowed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
		cfg.resolve()
		return cfg, nil
	}
	return cfg, err
}

// Parse parses settings from JSON (with comments) bytes.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}

	parsed, err := convertRawConfig(&raw)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Merge(parsed)
	cfg.Logging = mergeLogging(cfg.Logging, &raw.Logging)
	cfg.resolve()
	return cfg, nil
}

func convertRawConfig(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		AgentConfigPath:   raw.AgentConfigPath,
		PluginDir:         raw.PluginDir,
		UnitName:          raw.UnitName,
		ProcessName:       raw.ProcessName,
		FallbackScript:    raw.FallbackScript,
		DefaultAPIBaseURL: raw.DefaultAPIBaseURL,
		VersionPaths:      raw.VersionPaths,
		UnitDirs:          raw.UnitDirs,
		BinaryPaths:       raw.BinaryPaths,
		LogFiles:          raw.LogFiles,
		Elevate:           raw.Elevate,
		DisableElevation:  raw.DisableElevation,
		TailLines:         raw.TailLines,
		MaxTailLines:      raw.MaxTailLines,
		MetricsTextfile:   raw.MetricsTextfile,
	}

	if raw.CommandTimeout != "" {
		d, err := time.ParseDuration(raw.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid CommandTimeout duration: %w", err)
		}
		cfg.CommandTimeout = d
	}
	if raw.RestartTimeout != "" {
		d, err := time.ParseDuration(raw.RestartTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid RestartTimeout duration: %w", err)
		}
		cfg.RestartTimeout = d
	}
	if raw.WatchRefresh != "" {
		d, err := time.ParseDuration(raw.WatchRefresh)
		if err != nil {
			return nil, fmt.Errorf("invalid WatchRefresh duration: %w", err)
		}
		cfg.WatchRefresh = d
	}
	return cfg, nil
}

func mergeLogging(def logger.Config, raw *rawLoggingConfig) logger.Config {
	if raw.Level != "" {
		def.Level = raw.Level
	}
	if raw.FilePath != "" {
		def.FilePath = raw.FilePath
	}
	if raw.MaxSizeMB != 0 {
		def.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups != 0 {
		def.MaxBackups = raw.MaxBackups
	}
	if raw.MaxAgeDays != 0 {
		def.MaxAgeDays = raw.MaxAgeDays
	}
	if raw.Compress != nil {
		def.Compress = *raw.Compress
	}
	if raw.Format != "" {
		def.Format = raw.Format
	}
	def.Console = raw.Console
	return def
}

// ApplyEnv applies environment overrides shared with the agent.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(AgentConfigEnv); v != "" {
		cfg.AgentConfigPath = v
	}
}
