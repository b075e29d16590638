package hub

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"chathub/internal/utils"
)

// Settings are the user preferences persisted across runs.
type Settings struct {
	AgentCommand string `json:"agentCommand,omitempty"`
	RemoteCard   string `json:"remoteCard,omitempty"`
}

// SettingsPath returns the settings file location under the data dir.
func (c Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

// LoadSettings reads persisted settings; a missing file yields zero
// settings without error.
func LoadSettings(cfg Config) (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(cfg.SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// SaveSettings persists settings atomically.
func SaveSettings(cfg Config, settings Settings) error {
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(cfg.SettingsPath(), data, 0o644)
}

// ApplySettings folds persisted preferences into a flag-derived config.
// Flags win; settings only fill fields left at their defaults.
func ApplySettings(cfg Config, settings Settings) Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(settings.AgentCommand) != "" && cfg.Agent.Command == defaults.Agent.Command {
		cfg.Agent.Command = settings.AgentCommand
	}
	if strings.TrimSpace(settings.RemoteCard) != "" && cfg.Remote.CardURL == "" {
		cfg.Remote.CardURL = settings.RemoteCard
	}
	return cfg
}
