package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/audit"
	"github.com/martynov-dm/crypto-agent/internal/config"
	"github.com/martynov-dm/crypto-agent/internal/controlplane"
	"github.com/martynov-dm/crypto-agent/internal/llm"
	"github.com/martynov-dm/crypto-agent/internal/orchestrator"
	"github.com/martynov-dm/crypto-agent/internal/research"
	"github.com/martynov-dm/crypto-agent/internal/store"
	"github.com/martynov-dm/crypto-agent/internal/tools"
	"github.com/martynov-dm/crypto-agent/internal/tools/coingecko"
	"github.com/martynov-dm/crypto-agent/internal/tools/hyperliquid"
	"github.com/martynov-dm/crypto-agent/internal/tools/llamafeed"
	"github.com/martynov-dm/crypto-agent/internal/tools/protocol"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbPath     string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the crypto-agent daemon",
	Long:  `Starts the crypto-agent daemon which provides the HTTP API for chat, tasks, research, and the report archive.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (default from config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite archive database (default from config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting crypto-agent daemon...")

	cfg, err := config.LoadFromHome()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Initialize archive store
	s, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}

	// LLM service
	svc, err := llm.NewService(&cfg.LLM)
	if err != nil {
		s.Close()
		return err
	}

	// Tool registry: market data, news feeds, perps, on-chain
	registry := tools.NewRegistry()
	registry.MustRegister(coingecko.Tools(coingecko.NewClient(cfg.Keys.CoinGecko))...)
	registry.MustRegister(llamafeed.Tools(llamafeed.NewClient())...)
	registry.MustRegister(hyperliquid.Tools(hyperliquid.NewClient(cfg.Keys.WalletAddress))...)
	registry.MustRegister(protocol.Tools(protocol.NewClient(cfg.Keys.Bitquery))...)
	log.Printf("Tool registry initialized with %d tools", registry.Count())

	// Multi-agent system with audit trail and report archive
	auditor := audit.NewWriter(s, logger)
	system := orchestrator.New(svc, registry, orchestrator.Options{
		MaxHistory:    cfg.Agent.MaxHistory,
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        logger,
		Audit:         auditor,
		Archive:       s,
	})
	log.Printf("Agent system initialized with %d agents", len(system.Agents()))

	researchMgr := research.NewManager(svc, registry, logger, s)

	// Create service and server
	service := controlplane.NewService(system, researchMgr, s)
	server := controlplane.NewServer(service, cfg.Server.Addr)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Closing archive database...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
