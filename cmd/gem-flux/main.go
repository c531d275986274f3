// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/biochem"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/config"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/modeling"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/server"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/session"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/singleton"
)

var (
	address   = flag.String("address", "", "The address to bind the server to")
	port      = flag.Int("port", 0, "The port to bind the server to")
	transport = flag.String("transport", "", "Transport mode: sse or stdio")
	logLevel  = flag.String("log-level", "", "Logging level: debug, info, warn, error, fatal")
	logFile   = flag.String("log-file", "", "Log file path (default: stdout)")
	version   = flag.Bool("version", false, "Show version information and exit")
	dbPath    = flag.String("db-path", "", "Path to the SQLite biochemistry database (default: ~/.gem-flux/biochem.db)")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg := loadConfig()

	// Show version and exit if requested
	if *version {
		log.Printf("%s version %s", cfg.Server.Name, cfg.Server.Version)
		os.Exit(0)
	}

	// Create a context that will be cancelled on interrupt signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the application
	app, err := createApp(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Start the application
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for termination signal or server exit (e.g. stdin closed in stdio mode)
	waitForShutdown(cancel, app)
}

// loadConfig loads configuration from environment and command line flags
func loadConfig() *config.Config {
	// Start with defaults
	cfg := config.DefaultConfig()

	// Override with environment variables
	config.FromEnv(cfg)

	// Override with command-line flags
	applyCommandLineFlagsToConfig(cfg)

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// applyCommandLineFlagsToConfig applies command line flags to the configuration
func applyCommandLineFlagsToConfig(cfg *config.Config) {
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *transport != "" {
		cfg.Server.TransportMode = *transport
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.FilePath = *logFile
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
	}
}

// Application represents the running application
type Application struct {
	db       *biochem.DB
	sessions *session.Store
	janitor  *session.Janitor
	server   *server.MCPServer
	lock     *singleton.Lock
	logger   *logging.Logger
}

// createApp creates a new application instance
func createApp(cfg *config.Config) (*Application, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	// Acquire the single-instance lock for the database path. Secondary
	// instances may still serve, but only the primary owns the janitor.
	lock, primary, err := singleton.TryAcquire(cfg.Store.DBPath)
	if err != nil {
		return nil, err
	}

	// Open the biochemistry database
	db, err := biochem.Open(cfg.Store.DBPath)
	if err != nil {
		if lock != nil {
			_ = lock.Release()
		}
		return nil, fmt.Errorf("open biochemistry database: %w", err)
	}

	// Create components
	sessions := session.NewStore()
	svc := modeling.NewService(db)

	// Create the MCP server
	mcpServer, err := server.NewMCPServer(cfg, db, sessions, svc)
	if err != nil {
		_ = db.Close()
		if lock != nil {
			_ = lock.Release()
		}
		return nil, err
	}

	// Get the default logger that was configured by the server
	logger := logging.GetDefaultLogger()

	app := &Application{
		db:       db,
		sessions: sessions,
		server:   mcpServer,
		lock:     lock,
		logger:   logger,
	}

	if primary {
		janitor, err := session.NewJanitor(sessions, cfg.Session.TTL, cfg.Session.SweepSchedule, logger)
		if err != nil {
			_ = db.Close()
			_ = lock.Release()
			return nil, fmt.Errorf("create session janitor: %w", err)
		}
		app.janitor = janitor
	} else {
		logger.Infof("Another instance holds the database lock; running without the session janitor")
	}

	return app, nil
}

// Start starts the application
func (a *Application) Start(ctx context.Context) error {
	// Start the session janitor on the primary instance
	if a.janitor != nil {
		a.janitor.Start()
		a.logger.Infof("Session janitor started")
	}

	// Start the MCP server
	if err := a.server.Start(ctx); err != nil {
		return err
	}
	a.logger.Infof("MCP server started")

	return nil
}

// Stop stops the application
func (a *Application) Stop() error {
	// Stop the janitor
	if a.janitor != nil {
		a.janitor.Stop()
		a.logger.Infof("Session janitor stopped")
	}

	// Stop the server (closes the database)
	if err := a.server.Stop(); err != nil {
		a.logger.Errorf("Error stopping MCP server: %v", err)
		return err
	}
	a.logger.Infof("MCP server stopped")

	// Release the single-instance lock last
	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			a.logger.Warnf("Error releasing instance lock: %v", err)
		}
	}

	return nil
}

// waitForShutdown waits for termination signals or server exit and performs cleanup
func waitForShutdown(cancel context.CancelFunc, app *Application) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signalCh:
		app.logger.Infof("Received termination signal, shutting down...")
	case <-app.server.Done():
		app.logger.Infof("Server transport exited, shutting down...")
	}

	// Cancel the context to initiate shutdown
	cancel()

	// Stop the application with a timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	shutdownDone := make(chan struct{})
	go func() {
		if err := app.Stop(); err != nil {
			app.logger.Errorf("Error during shutdown: %v", err)
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		app.logger.Infof("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		app.logger.Warnf("Shutdown timed out")
	}
}
