package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"chathub/internal/agents"
	"chathub/internal/bus"
	"chathub/internal/hub"
)

const version = "0.2.0"

func Run() int {
	if len(os.Args) < 2 {
		return runTUI(os.Args[1:])
	}

	cmd := os.Args[1]
	if strings.HasPrefix(cmd, "-") {
		return runTUI(os.Args[1:])
	}
	switch cmd {
	case "tui":
		return runTUI(os.Args[2:])
	case "run":
		return runHeadless(os.Args[2:])
	case "version":
		fmt.Println("chathub " + version)
		return 0
	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Println("chathub <command> [options]")
	fmt.Println("Commands: tui (default), run, version")
}

// configFlags registers the flags shared by every subcommand and
// returns a function that folds parsed values into a config.
func configFlags(fs *flag.FlagSet) func() (hub.Config, error) {
	defaults := hub.DefaultConfig()
	agentCmd := fs.String("agent", defaults.Agent.Command, "coding-agent CLI to run")
	agentArgs := fs.String("agent-args", strings.Join(defaults.Agent.Args, " "), "agent arguments; {prompt} expands to the query")
	noPty := fs.Bool("no-pty", false, "run the agent without a pseudo-terminal")
	cardURL := fs.String("card", "", "remote A2A agent card URL (replaces the local CLI)")
	dataDir := fs.String("data-dir", defaults.DataDir, "directory for logs, settings and transcripts")
	verbose := fs.Bool("verbose", false, "debug logging")

	return func() (hub.Config, error) {
		cfg := hub.DefaultConfig()
		cfg.Agent.Command = *agentCmd
		cfg.Agent.Args = strings.Fields(*agentArgs)
		cfg.Agent.UsePty = !*noPty
		cfg.Remote.CardURL = *cardURL
		cfg.DataDir = *dataDir
		if *verbose {
			cfg.Logging.Level = "debug"
		}

		settings, err := hub.LoadSettings(cfg)
		if err != nil {
			return cfg, fmt.Errorf("load settings: %w", err)
		}
		return hub.ApplySettings(cfg, settings), nil
	}
}

// newBackend picks the remote backend when a card URL is configured,
// otherwise the local CLI backend.
func newBackend(ctx context.Context, cfg hub.Config, queue *bus.Queue[bus.Response], logger *zap.Logger) (agents.Backend, error) {
	if cfg.Remote.CardURL != "" {
		return agents.NewRemoteBackend(ctx, cfg.Remote.CardURL, queue, logger)
	}
	return agents.NewCLIBackend(agents.CLIConfig{
		Command: cfg.Agent.Command,
		Args:    cfg.Agent.Args,
		UsePty:  cfg.Agent.UsePty,
	}, queue, logger), nil
}

func contextWithSignals() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
