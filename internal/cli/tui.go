package cli

import (
	"flag"
	"fmt"
	"os"

	"chathub/internal/bus"
	"chathub/internal/hub"
	"chathub/internal/tui"
	"chathub/internal/utils"
)

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	parse := configFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	if err := cfg.EnsureDataDir(); err != nil {
		fmt.Fprintln(os.Stderr, "data dir:", err.Error())
		return 1
	}

	// The frontend owns the terminal, so logs go to a file.
	logger, err := utils.NewFileLogger(cfg.Logging.Level, cfg.LogPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := contextWithSignals()
	defer cancel()

	queue := bus.NewQueue[bus.Response]()
	defer queue.Close()

	backend, err := newBackend(ctx, cfg, queue, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	registry := hub.NewRegistry(logger)
	dispatcher := hub.NewDispatcher(registry, backend, queue, logger)

	if err := tui.Run(cfg, dispatcher, logger); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}
