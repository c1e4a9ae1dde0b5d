// Package config provides the panel's settings: where the agent lives on this
// host and how the panel talks to it.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"agentpanel/internal/logger"
	"agentpanel/internal/supervision"
)

// Defaults for an FPP show controller running the ShowOps plugin.
const (
	DefaultAgentConfigPath = "/home/fpp/media/config/fpp-monitor-agent.json"
	DefaultPluginDir       = "/home/fpp/media/plugins/showops-agent"
	DefaultUnitName        = "fpp-monitor-agent.service"
	DefaultProcessName     = "fpp-monitor-agent"
	DefaultAPIBaseURL      = "https://api.showops.io"
	DefaultSystemInstall   = "/opt/fpp-monitor-agent"

	// AgentConfigEnv is the variable the agent itself reads its config path from.
	AgentConfigEnv = "FPP_MONITOR_AGENT_CONFIG"
)

// Config is the root settings structure.
type Config struct {
	AgentConfigPath   string        `json:"AgentConfigPath"`
	PluginDir         string        `json:"PluginDir"`
	UnitName          string        `json:"UnitName"`
	ProcessName       string        `json:"ProcessName"`
	FallbackScript    string        `json:"FallbackScript"` // derived from PluginDir when empty
	DefaultAPIBaseURL string        `json:"DefaultAPIBaseURL"`
	VersionPaths      []string      `json:"VersionPaths"` // derived from PluginDir when empty
	UnitDirs          []string      `json:"UnitDirs"`
	BinaryPaths       []string      `json:"BinaryPaths"` // derived from PluginDir when empty
	LogFiles          []string      `json:"LogFiles"`
	Elevate           []string      `json:"Elevate"`
	DisableElevation  bool          `json:"DisableElevation"`
	CommandTimeout    time.Duration `json:"CommandTimeout"`
	RestartTimeout    time.Duration `json:"RestartTimeout"`
	WatchRefresh      time.Duration `json:"WatchRefresh"`
	TailLines         int           `json:"TailLines"`
	MaxTailLines      int           `json:"MaxTailLines"`
	MetricsTextfile   string        `json:"MetricsTextfile"`
	Logging           logger.Config `json:"Logging"`
}

// DefaultConfig returns a configuration with the plugin's stock layout.
func DefaultConfig() *Config {
	return &Config{
		AgentConfigPath:   DefaultAgentConfigPath,
		PluginDir:         DefaultPluginDir,
		UnitName:          DefaultUnitName,
		ProcessName:       DefaultProcessName,
		DefaultAPIBaseURL: DefaultAPIBaseURL,
		UnitDirs:          append([]string(nil), supervision.DefaultUnitDirs...),
		LogFiles:          append([]string(nil), supervision.DefaultLogFiles...),
		Elevate:           []string{"sudo", "-n"},
		CommandTimeout:    supervision.DefaultCommandTimeout,
		RestartTimeout:    supervision.DefaultRestartTimeout,
		WatchRefresh:      30 * time.Second,
		TailLines:         200,
		MaxTailLines:      5000,
		Logging:           logger.DefaultConfig(),
	}
}

// Merge applies non-zero values from other to this config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.AgentConfigPath != "" {
		c.AgentConfigPath = other.AgentConfigPath
	}
	if other.PluginDir != "" {
		c.PluginDir = other.PluginDir
	}
	if other.UnitName != "" {
		c.UnitName = other.UnitName
	}
	if other.ProcessName != "" {
		c.ProcessName = other.ProcessName
	}
	if other.FallbackScript != "" {
		c.FallbackScript = other.FallbackScript
	}
	if other.DefaultAPIBaseURL != "" {
		c.DefaultAPIBaseURL = other.DefaultAPIBaseURL
	}
	if len(other.VersionPaths) > 0 {
		c.VersionPaths = other.VersionPaths
	}
	if len(other.UnitDirs) > 0 {
		c.UnitDirs = other.UnitDirs
	}
	if len(other.BinaryPaths) > 0 {
		c.BinaryPaths = other.BinaryPaths
	}
	if len(other.LogFiles) > 0 {
		c.LogFiles = other.LogFiles
	}
	if len(other.Elevate) > 0 {
		c.Elevate = other.Elevate
	}
	c.DisableElevation = other.DisableElevation
	if other.CommandTimeout != 0 {
		c.CommandTimeout = other.CommandTimeout
	}
	if other.RestartTimeout != 0 {
		c.RestartTimeout = other.RestartTimeout
	}
	if other.WatchRefresh != 0 {
		c.WatchRefresh = other.WatchRefresh
	}
	if other.TailLines != 0 {
		c.TailLines = other.TailLines
	}
	if other.MaxTailLines != 0 {
		c.MaxTailLines = other.MaxTailLines
	}
	if other.MetricsTextfile != "" {
		c.MetricsTextfile = other.MetricsTextfile
	}
}

// resolve fills the paths that hang off PluginDir.
func (c *Config) resolve() {
	if c.FallbackScript == "" {
		c.FallbackScript = filepath.Join(c.PluginDir, "system", DefaultProcessName+".sh")
	}
	if len(c.VersionPaths) == 0 {
		c.VersionPaths = []string{
			filepath.Join(DefaultSystemInstall, "VERSION"),
			filepath.Join(c.PluginDir, "bin", "VERSION"),
		}
	}
	if len(c.BinaryPaths) == 0 {
		c.BinaryPaths = []string{
			filepath.Join(DefaultSystemInstall, DefaultProcessName),
			filepath.Join(c.PluginDir, "bin", DefaultProcessName),
		}
	}
}

// ElevateCommand returns the privilege prefix for restart, or nil when none is
// wanted or the panel already runs as root.
func (c *Config) ElevateCommand(euid int) []string {
	if c.DisableElevation || euid == 0 {
		return nil
	}
	return c.Elevate
}

// Validate checks that the settings are safe to hand to the supervision layer.
func (c *Config) Validate() error {
	if !supervision.ValidUnitName(c.UnitName) {
		return fmt.Errorf("invalid UnitName %q", c.UnitName)
	}
	if c.ProcessName == "" {
		return fmt.Errorf("ProcessName must not be empty")
	}

	paths := map[string]string{
		"AgentConfigPath": c.AgentConfigPath,
		"FallbackScript":  c.FallbackScript,
	}
	for name, p := range paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%s must be an absolute path, got %q", name, p)
		}
	}

	lists := map[string][]string{
		"VersionPaths": c.VersionPaths,
		"UnitDirs":     c.UnitDirs,
		"BinaryPaths":  c.BinaryPaths,
		"LogFiles":     c.LogFiles,
	}
	for name, list := range lists {
		for _, p := range list {
			if !filepath.IsAbs(p) {
				return fmt.Errorf("%s entries must be absolute paths, got %q", name, p)
			}
		}
	}

	if c.CommandTimeout <= 0 || c.RestartTimeout <= 0 || c.WatchRefresh <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.TailLines < 0 || c.MaxTailLines <= 0 {
		return fmt.Errorf("TailLines must be >= 0 and MaxTailLines > 0")
	}
	if c.TailLines > c.MaxTailLines {
		return fmt.Errorf("TailLines (%d) exceeds MaxTailLines (%d)", c.TailLines, c.MaxTailLines)
	}
	return nil
}
