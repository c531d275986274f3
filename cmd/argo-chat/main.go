// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/argo"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/config"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
)

var (
	provider      = flag.String("provider", "", "Chat backend: openai or anthropic (default: openai)")
	baseURL       = flag.String("base-url", "", "Custom base URL for OpenAI-compatible endpoints (e.g. the Argo gateway)")
	chatModel     = flag.String("model", "", "Chat model to use (default: gpt-4o)")
	maxTools      = flag.Int("max-tools", 0, "Maximum tool schemas sent per request (default: 6)")
	maxToolCalls  = flag.Int("max-tool-calls", 0, "Maximum backend round trips per chat request (default: 10)")
	serverCommand = flag.String("server-command", "", "gem-flux server binary to spawn over stdio (default: gem-flux)")
	serverURL     = flag.String("server-url", "", "SSE URL of a running gem-flux server; overrides -server-command")
	logLevel      = flag.String("log-level", "", "Logging level: debug, info, warn, error, fatal")
	systemPrompt  = flag.String("system-prompt", "", "Override the default system prompt")
)

func main() {
	flag.Parse()

	cfg := loadConfig()

	logger := logging.New(logging.Options{
		Output: os.Stderr,
		Level:  parseLogLevel(cfg.Logging.Level),
	})
	logging.SetDefaultLogger(logger)

	// Cancel on interrupt so a spawned server shuts down with us.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("argo-chat: %v", err)
	}
}

// loadConfig loads configuration from environment and command line flags
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	config.FromEnv(cfg)

	if *provider != "" {
		cfg.Argo.Provider = *provider
	}
	if *baseURL != "" {
		cfg.Argo.BaseURL = *baseURL
	}
	if *chatModel != "" {
		cfg.Argo.Model = *chatModel
	}
	if *maxTools > 0 {
		cfg.Argo.MaxTools = *maxTools
	}
	if *maxToolCalls > 0 {
		cfg.Argo.MaxToolCalls = *maxToolCalls
	}
	if *serverCommand != "" {
		cfg.Argo.ServerCommand = *serverCommand
	}
	if *serverURL != "" {
		cfg.Argo.ServerURL = *serverURL
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if cfg.Argo.ServerCommand == "" && cfg.Argo.ServerURL == "" {
		cfg.Argo.ServerCommand = "gem-flux"
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	chatProvider, err := argo.NewChatProvider(&cfg.Argo)
	if err != nil {
		return err
	}

	// Connect to the modeling server: spawn it over stdio unless an SSE URL
	// points at a running instance.
	var registry *argo.MCPRegistry
	if cfg.Argo.ServerURL != "" {
		logger.Infof("Connecting to %s", cfg.Argo.ServerURL)
		registry, err = argo.ConnectSSE(ctx, cfg.Argo.ServerURL, logger)
	} else {
		logger.Infof("Spawning %s %s", cfg.Argo.ServerCommand, strings.Join(cfg.Argo.ServerArgs, " "))
		registry, err = argo.ConnectCommand(ctx, cfg.Argo.ServerCommand, cfg.Argo.ServerArgs, logger)
	}
	if err != nil {
		return fmt.Errorf("connect to modeling server: %w", err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warnf("Error closing server connection: %v", err)
		}
	}()

	client := argo.NewClient(cfg.Argo, chatProvider, registry, logger)
	if err := client.Initialize(ctx); err != nil {
		return err
	}

	fmt.Printf("Connected. %d tools available. Type /help for commands.\n", len(client.AvailableTools()))

	return repl(ctx, client)
}

// repl reads user lines from stdin and runs them through the chat client
// until EOF, /quit or context cancellation.
func repl(ctx context.Context, client *argo.Client) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			client.ResetConversation()
			fmt.Println("Conversation cleared.")
			continue
		case "/tools":
			for _, name := range client.AvailableTools() {
				fmt.Println("  " + name)
			}
			continue
		case "/help":
			fmt.Println("  /tools  list the server's tools")
			fmt.Println("  /reset  clear the conversation history")
			fmt.Println("  /quit   exit")
			continue
		}

		answer, err := client.Chat(ctx, line, *systemPrompt, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}
}

func parseLogLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.Debug
	case "info":
		return logging.Info
	case "warn":
		return logging.Warn
	case "error":
		return logging.Error
	case "fatal":
		return logging.Fatal
	default:
		return logging.Info
	}
}
