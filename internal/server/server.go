// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/biochem"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/config"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/errors"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/modeling"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Make os.OpenFile mockable for testing
var osOpenFile = os.OpenFile

// CompoundIDParams identifies a biochemistry compound.
type CompoundIDParams struct {
	ID string `json:"id" description:"ModelSEED compound ID (e.g. cpd00027)"`
}

// ReactionIDParams identifies a biochemistry reaction.
type ReactionIDParams struct {
	ID string `json:"id" description:"ModelSEED reaction ID (e.g. rxn00148)"`
}

// SearchParams holds parameters for the search tools.
type SearchParams struct {
	Query string `json:"query" description:"substring to match against names and aliases"`
	Limit int    `json:"limit,omitempty" description:"maximum number of results (default 10, max 100)"`
}

// BuildMediaParams holds parameters for the build_media tool.
type BuildMediaParams struct {
	ID        string   `json:"id" description:"identifier for the new media"`
	Name      string   `json:"name,omitempty" description:"human-readable media name (defaults to the ID)"`
	Compounds []string `json:"compounds" description:"ModelSEED compound IDs to include"`
}

// MediaIDParams identifies a stored media.
type MediaIDParams struct {
	ID string `json:"id" description:"the ID of the media to get/delete"`
}

// BuildModelParams holds parameters for the build_model tool.
type BuildModelParams struct {
	GenomeID string `json:"genome_id" description:"genome identifier to reconstruct from"`
	Template string `json:"template,omitempty" description:"reconstruction template: gram_negative, gram_positive or core (default gram_negative)"`
}

// ModelIDParams identifies a stored metabolic model.
type ModelIDParams struct {
	ID string `json:"id" description:"the ID of the model to get/delete"`
}

// GapfillParams holds parameters for the gapfill_model tool.
type GapfillParams struct {
	ModelID string `json:"model_id" description:"ID of the draft model to gapfill"`
	MediaID string `json:"media_id" description:"ID of the target growth media"`
}

// RunFBAParams holds parameters for the run_fba tool.
type RunFBAParams struct {
	ModelID   string `json:"model_id" description:"ID of the model to analyze"`
	MediaID   string `json:"media_id" description:"ID of the growth media"`
	Objective string `json:"objective,omitempty" description:"objective to maximize (default biomass)"`
}

// MCPServer exposes the metabolic modeling operations as MCP tools.
type MCPServer struct {
	db             *biochem.DB
	sessions       *session.Store
	modeling       *modeling.Service
	server         *mcp.Server
	httpServer     *http.Server
	cancel         context.CancelFunc
	address        string
	port           int
	stopCh         chan struct{}
	wg             sync.WaitGroup
	config         *config.Config
	logger         *logging.Logger
	shutdownMutex  sync.Mutex
	isShuttingDown bool
}

// NewMCPServer creates a new MCP modeling server over the given database and
// session store.
func NewMCPServer(cfg *config.Config, db *biochem.DB, sessions *session.Store, svc *modeling.Service) (*MCPServer, error) {
	// Create default config if not provided
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	var logger *logging.Logger

	if cfg.Logging.FilePath != "" {
		var err error
		logger, err = logging.FileLogger(cfg.Logging.FilePath, parseLogLevel(cfg.Logging.Level))
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
	} else if cfg.Server.TransportMode == "stdio" {
		// For stdio transport, all logging must go to a file to avoid
		// corrupting the JSON-RPC stream on stdout
		execPath, err := os.Executable()
		if err != nil {
			execPath = cfg.Server.Name
		}
		execDir := filepath.Dir(execPath)
		logFilename := fmt.Sprintf("%s.log", cfg.Server.Name)
		logPath := filepath.Join(execDir, logFilename)

		logFile, err := osOpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(logFile)
			logger = logging.New(logging.Options{
				Output: logFile,
				Level:  parseLogLevel(cfg.Logging.Level),
			})
		} else {
			// Fall back to stderr to avoid corrupting stdout
			log.SetOutput(os.Stderr)
			logger = logging.New(logging.Options{
				Output: os.Stderr,
				Level:  parseLogLevel(cfg.Logging.Level),
			})
		}
	} else {
		logger = logging.New(logging.Options{
			Level: parseLogLevel(cfg.Logging.Level),
		})
	}

	// Set as the default logger
	logging.SetDefaultLogger(logger)

	// Validate transport mode
	switch cfg.Server.TransportMode {
	case "stdio":
		logger.Infof("Using stdio transport")
	case "sse":
		logger.Infof("Using SSE transport on %s:%d", cfg.Server.Address, cfg.Server.Port)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported transport mode: %s", cfg.Server.TransportMode))
	}

	// Create MCP server
	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)

	return &MCPServer{
		db:       db,
		sessions: sessions,
		modeling: svc,
		server:   mcpSrv,
		address:  cfg.Server.Address,
		port:     cfg.Server.Port,
		stopCh:   make(chan struct{}),
		config:   cfg,
		logger:   logger,
	}, nil
}

// Start starts the MCP server
func (s *MCPServer) Start(ctx context.Context) error {
	// Register all tools
	s.registerToolsDeclarative()

	switch s.config.Server.TransportMode {
	case "stdio":
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.server.Run(runCtx, &mcp.StdioTransport{}); err != nil {
				s.logger.Errorf("Error running MCP server: %v", err)
			}
		}()
	case "sse":
		addr := fmt.Sprintf("%s:%d", s.address, s.port)
		handler := mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server {
			return s.server
		}, nil)
		s.httpServer = &http.Server{Addr: addr, Handler: handler}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Errorf("Error running MCP server: %v", err)
			}
		}()
	}

	// Listen for context cancellation
	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Errorf("Error stopping MCP server: %v", err)
		}
	}()

	return nil
}

// Stop stops the MCP server
func (s *MCPServer) Stop() error {
	s.shutdownMutex.Lock()
	defer s.shutdownMutex.Unlock()

	// Return early if server is already being shut down
	if s.isShuttingDown {
		s.logger.Debugf("Stop called but server is already shutting down, ignoring")
		return nil
	}

	s.isShuttingDown = true

	if s.cancel != nil {
		s.cancel()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return errors.Internal(fmt.Errorf("error shutting down MCP server: %w", err))
		}
	}

	// Close the biochemistry database
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warnf("Error closing biochemistry database: %v", err)
		}
	}

	// Only close stopCh if it hasn't been closed yet
	select {
	case <-s.stopCh:
		// Channel is already closed, do nothing
	default:
		close(s.stopCh)
	}

	s.wg.Wait()
	return nil
}

// Done returns a channel closed when the server has fully stopped.
func (s *MCPServer) Done() <-chan struct{} {
	return s.stopCh
}

// handleGetCompoundInfo returns the full record for a compound.
func (s *MCPServer) handleGetCompoundInfo(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractCompoundIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_compound_info request for %s", id)

	c, err := s.db.GetCompound(id)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(c)
}

// handleGetCompoundName resolves a compound ID to its primary name.
func (s *MCPServer) handleGetCompoundName(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractCompoundIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_compound_name request for %s", id)

	c, err := s.db.GetCompound(id)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(map[string]string{"id": c.ID, "name": c.Name})
}

// handleGetReactionInfo returns the full record for a reaction.
func (s *MCPServer) handleGetReactionInfo(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractReactionIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_reaction_info request for %s", id)

	r, err := s.db.GetReaction(id)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(r)
}

// handleGetReactionName resolves a reaction ID to its primary name.
func (s *MCPServer) handleGetReactionName(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractReactionIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_reaction_name request for %s", id)

	r, err := s.db.GetReaction(id)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(map[string]string{"id": r.ID, "name": r.Name})
}

// handleSearchCompounds searches compounds by name or alias substring.
func (s *MCPServer) handleSearchCompounds(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params SearchParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}
	if params.Query == "" {
		return createErrorResponse(errors.InvalidInput("query is required"))
	}

	s.logger.Debugf("Handling search_compounds request for %q (limit=%d)", params.Query, params.Limit)

	compounds, err := s.db.SearchCompounds(params.Query, params.Limit)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(map[string]interface{}{
		"count":     len(compounds),
		"compounds": compounds,
	})
}

// handleSearchReactions searches reactions by name substring.
func (s *MCPServer) handleSearchReactions(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params SearchParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}
	if params.Query == "" {
		return createErrorResponse(errors.InvalidInput("query is required"))
	}

	s.logger.Debugf("Handling search_reactions request for %q (limit=%d)", params.Query, params.Limit)

	reactions, err := s.db.SearchReactions(params.Query, params.Limit)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(map[string]interface{}{
		"count":     len(reactions),
		"reactions": reactions,
	})
}

// handleBuildMedia constructs a growth media and stores it in the session.
func (s *MCPServer) handleBuildMedia(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params BuildMediaParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling build_media request for %s (%d compounds)", params.ID, len(params.Compounds))

	media, err := s.modeling.BuildMedia(params.ID, params.Name, params.Compounds)
	if err != nil {
		return createErrorResponse(err)
	}
	s.sessions.PutMedia(media)

	return createJSONResponse(media)
}

// handleGetMedia returns a stored media by ID.
func (s *MCPServer) handleGetMedia(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractMediaIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_media request for %s", id)

	media, err := s.sessions.GetMedia(id)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(media)
}

// handleListMedia lists the IDs of all stored media.
func (s *MCPServer) handleListMedia(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debugf("Handling list_media request")

	ids := s.sessions.ListMedia()

	return createJSONResponse(map[string]interface{}{
		"count": len(ids),
		"ids":   ids,
	})
}

// handleDeleteMedia removes a stored media.
func (s *MCPServer) handleDeleteMedia(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractMediaIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling delete_media request for %s", id)

	if err := s.sessions.DeleteMedia(id); err != nil {
		return createErrorResponse(err)
	}

	return createSuccessResponse(fmt.Sprintf("Media %s deleted successfully", id))
}

// handleBuildModel reconstructs a draft model and stores it in the session.
func (s *MCPServer) handleBuildModel(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params BuildModelParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling build_model request for genome %s", params.GenomeID)

	m, err := s.modeling.BuildDraftModel(params.GenomeID, params.Template)
	if err != nil {
		return createErrorResponse(err)
	}
	s.sessions.PutModel(m)

	return createJSONResponse(m)
}

// handleGetModelInfo returns a stored model by ID.
func (s *MCPServer) handleGetModelInfo(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractModelIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_model_info request for %s", id)

	m, err := s.sessions.GetModel(id)
	if err != nil {
		return createErrorResponse(err)
	}

	return createJSONResponse(m)
}

// handleListModels lists the IDs of all stored models.
func (s *MCPServer) handleListModels(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debugf("Handling list_models request")

	ids := s.sessions.ListModels()

	return createJSONResponse(map[string]interface{}{
		"count": len(ids),
		"ids":   ids,
	})
}

// handleDeleteModel removes a stored model.
func (s *MCPServer) handleDeleteModel(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := extractModelIDParam(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling delete_model request for %s", id)

	if err := s.sessions.DeleteModel(id); err != nil {
		return createErrorResponse(err)
	}

	return createSuccessResponse(fmt.Sprintf("Model %s deleted successfully", id))
}

// handleGapfillModel gapfills a stored model for growth on a stored media.
// The gapfilled model replaces the stored one under the same ID.
func (s *MCPServer) handleGapfillModel(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params GapfillParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}
	if params.ModelID == "" || params.MediaID == "" {
		return createErrorResponse(errors.InvalidInput("missing required fields: model_id and media_id are required"))
	}

	s.logger.Debugf("Handling gapfill_model request for model %s on media %s", params.ModelID, params.MediaID)

	m, err := s.sessions.GetModel(params.ModelID)
	if err != nil {
		return createErrorResponse(err)
	}
	media, err := s.sessions.GetMedia(params.MediaID)
	if err != nil {
		return createErrorResponse(err)
	}

	gapfilled, err := s.modeling.Gapfill(m, media)
	if err != nil {
		return createErrorResponse(err)
	}
	s.sessions.PutModel(gapfilled)

	return createJSONResponse(gapfilled)
}

// handleRunFBA runs flux balance analysis for a stored model on a stored media.
func (s *MCPServer) handleRunFBA(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params RunFBAParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}
	if params.ModelID == "" || params.MediaID == "" {
		return createErrorResponse(errors.InvalidInput("missing required fields: model_id and media_id are required"))
	}

	s.logger.Debugf("Handling run_fba request for model %s on media %s", params.ModelID, params.MediaID)

	m, err := s.sessions.GetModel(params.ModelID)
	if err != nil {
		return createErrorResponse(err)
	}
	media, err := s.sessions.GetMedia(params.MediaID)
	if err != nil {
		return createErrorResponse(err)
	}

	sol, err := s.modeling.RunFBA(m, media, params.Objective)
	if err != nil {
		return createErrorResponse(err)
	}

	return createSolutionResponse(sol)
}

// Helper function to parse log level
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
