package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/comigor/chat-relay/internal/agent"
	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/llm"
	"github.com/comigor/chat-relay/internal/logger"
	"github.com/comigor/chat-relay/internal/search"
	"github.com/comigor/chat-relay/internal/server"
	"github.com/comigor/chat-relay/internal/session"
	"github.com/comigor/chat-relay/pkg/tools"
)

func main() {
	if err := run(); err != nil {
		logger.L.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Log.Level)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	if cfg.LLM.APIKey == "" {
		logger.L.Warn("llm.api_key is empty, model calls will fail", "provider", cfg.LLM.Provider)
	}

	searcher, err := search.New(ctx, cfg.Search)
	if err != nil {
		return err
	}
	if c, ok := searcher.(io.Closer); ok {
		defer c.Close()
	}

	store, err := session.NewStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer store.Close()

	toolManager := tools.NewToolManager(tools.NewWebSearchTool(searcher))
	chatAgent := agent.New(llmClient, toolManager, cfg.LLM.SystemPrompt)

	srv := server.New(cfg.Server, chatAgent, store)
	logger.L.Info("Starting server",
		"address", cfg.Server.Addr(),
		"llm_provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"search_provider", cfg.Search.Provider,
		"session_backend", cfg.Session.Backend,
	)
	if err := srv.Run(ctx, cfg.Server.Addr()); err != nil {
		if errors.Is(err, server.ErrAddrInUse) {
			logger.L.Error("Port is already in use. Set a different PORT or stop the process using this port.", "port", cfg.Server.Port)
		}
		return err
	}
	return nil
}
