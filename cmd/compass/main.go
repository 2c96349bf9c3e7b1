// Entry point for the compass HTTP service. Wires the vector store,
// embedder, and downstream APIs into the chi router, with an optional
// MCP-over-stdio mode for agent integrations.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anurag-bit/sih-tj/api"
	"github.com/anurag-bit/sih-tj/chat"
	"github.com/anurag-bit/sih-tj/chromadb"
	"github.com/anurag-bit/sih-tj/config"
	"github.com/anurag-bit/sih-tj/dashboard"
	"github.com/anurag-bit/sih-tj/embedder"
	"github.com/anurag-bit/sih-tj/github"
	"github.com/anurag-bit/sih-tj/search"
)

func main() {
	var configPaths []string
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		configPaths = append(configPaths, p)
	}
	cfg, err := config.Load(configPaths...)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := chromadb.New(chromadb.Config{
		Host:       cfg.Chroma.Host,
		Port:       cfg.Chroma.Port,
		Collection: cfg.Chroma.Collection,
		Timeout:    cfg.Chroma.Timeout,
		Logger:     logger,
	})

	emb := embedder.New(embedder.Config{
		Endpoint:  cfg.Embedder.Endpoint,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		BatchSize: cfg.Embedder.BatchSize,
		Timeout:   cfg.Embedder.Timeout,
		Logger:    logger,
	})

	searchSvc := search.New(search.Config{Store: store, Embedder: emb, Logger: logger})

	githubSvc := github.New(github.Config{
		Client: github.NewClient(github.ClientConfig{
			Token:   cfg.GitHub.Token,
			BaseURL: cfg.GitHub.BaseURL,
			Timeout: cfg.GitHub.Timeout,
			Logger:  logger,
		}),
		Searcher: searchSvc,
		Logger:   logger,
	})

	chatSvc := chat.New(chat.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
		Logger:  logger,
	})
	if !chatSvc.Configured() {
		logger.Warn("GEMINI_API_KEY not set, chat endpoints will fail")
	}

	dashSvc := dashboard.New(dashboard.Config{Store: store, Logger: logger})

	// Optional MCP over stdio. In this mode the process is the transport:
	// logs go to stderr so stdout stays clean for the protocol.
	if os.Getenv("MCP_TRANSPORT") == "stdio" {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
		slog.SetDefault(logger)

		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "compass",
			Version: "1.0.0",
		}, nil)
		searchSvc.RegisterMCP(mcpSrv)
		githubSvc.RegisterMCP(mcpSrv)
		dashSvc.RegisterMCP(mcpSrv)

		logger.Info("MCP stdio starting")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			logger.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	router := api.NewRouter(api.Config{
		Search:      searchSvc,
		GitHub:      githubSvc,
		Chat:        chatSvc,
		Dashboard:   dashSvc,
		DocgenURL:   cfg.Docgen.URL,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}
