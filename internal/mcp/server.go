package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/osvquery/vulncontext-mcp/internal/config"
	"github.com/osvquery/vulncontext-mcp/internal/embedder"
	"github.com/osvquery/vulncontext-mcp/internal/ingest"
	"github.com/osvquery/vulncontext-mcp/internal/risk"
	"github.com/osvquery/vulncontext-mcp/internal/search"
	"github.com/osvquery/vulncontext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "vulncontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	store    *storage.SQLiteStore
	engine   *search.Engine
	lookup   *search.Lookup
	scorer   *risk.Scorer
	pipeline *ingest.Pipeline
	cfg      *config.Config
	log      *logrus.Entry
}

// NewServer wires storage, embedding, search and scoring together.
func NewServer(cfg *config.Config, log *logrus.Entry) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(context.Background(), log, embedder.Config{
		Provider:    cfg.Embedding.Provider,
		OpenAIKey:   os.Getenv(config.EnvOpenAIKey),
		OllamaURL:   cfg.Embedding.OllamaURL,
		OllamaModel: cfg.Embedding.OllamaModel,
		CacheSize:   cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// A missing keyword index is a valid permanent state; the engine
	// runs vector-only.
	keyword, err := store.NewKeywordIndex()
	if err != nil {
		keyword = nil
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    store,
		engine:   search.NewEngine(store, keyword, emb, log),
		lookup:   search.NewLookup(store),
		scorer:   risk.NewScorer(),
		pipeline: ingest.NewPipeline(store, emb, log),
		cfg:      cfg,
		log:      log,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchVulnerabilitiesTool(), s.handleSearchVulnerabilities)
	s.mcp.AddTool(getVulnerabilityByIDTool(), s.handleGetVulnerabilityByID)
	s.mcp.AddTool(prioritizeVulnerabilitiesTool(), s.handlePrioritizeVulnerabilities)
	s.mcp.AddTool(ingestOSVDataTool(), s.handleIngestOSVData)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
