package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"chathub/internal/bus"
	"chathub/internal/hub"
	"chathub/internal/utils"
)

// runHeadless executes a single query without the interactive frontend
// and prints responses as they arrive. Streaming previews are skipped;
// only the final message body is printed.
func runHeadless(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	parse := configFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: chathub run [options] \"prompt\"")
		return 1
	}
	prompt := strings.Join(fs.Args(), " ")

	cfg, err := parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	logger, err := utils.NewLogger(cfg.Logging.Level)
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
	defer func() { _ = backend.Shutdown() }()

	registry := hub.NewRegistry(logger)
	dispatcher := hub.NewDispatcher(registry, backend, queue, logger)
	session := registry.CurrentUUID()

	if err := dispatcher.HandleEvent(ctx, bus.UserInput{Session: session, Text: prompt}); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	for {
		response, ok := queue.Pop(ctx)
		if !ok {
			return 1
		}
		if response.Session != session {
			continue
		}
		switch payload := response.Payload.(type) {
		case bus.ChatContent:
			if payload.Message.StreamID != "" {
				continue
			}
			fmt.Println(payload.Message.Content)
		case bus.ActivityUpdate:
			fmt.Println(">> " + payload.Text)
		case bus.BackendMessage:
			fmt.Println("Backend: " + payload.Text)
		case bus.Completed:
			return 0
		}
	}
}
