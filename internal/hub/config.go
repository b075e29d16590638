package hub

import (
	"os"
	"path/filepath"
)

// Config holds process configuration, populated from flags.
type Config struct {
	Agent struct {
		// Command is the coding-agent CLI to run, with Args templated
		// per query; "{prompt}" expands to the user prompt.
		Command string
		Args    []string
		// UsePty runs the agent under a pseudo-terminal so CLIs that
		// detect a TTY stream incrementally.
		UsePty bool
	}
	Remote struct {
		// CardURL points at a remote A2A agent card. When set, the
		// remote backend is used instead of the local CLI.
		CardURL string
	}
	Logging struct {
		Level string
	}
	DataDir string
}

// DefaultConfig returns the defaults the flag layer starts from.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.Agent.Command = "claude"
	cfg.Agent.Args = []string{"-p", "{prompt}"}
	cfg.Agent.UsePty = true
	cfg.Logging.Level = "info"
	cfg.DataDir = defaultDataDir()
	return cfg
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chathub"
	}
	return filepath.Join(home, ".chathub")
}

// LogPath returns the interactive-mode log file path.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "chathub.log")
}

// EnsureDataDir creates the data directory when missing.
func (c Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}
