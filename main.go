// Package main is the entry point for the pard node.
// It loads configuration, opens the ledger, assembles the node coordinator
// and serves the HTTP/websocket API.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"paradigm.network/pard/internal/api"
	"paradigm.network/pard/internal/config"
	"paradigm.network/pard/internal/identity"
	"paradigm.network/pard/internal/ledger"
	"paradigm.network/pard/internal/logger"
	"paradigm.network/pard/internal/node"
	"paradigm.network/pard/internal/types"
)

func main() {
	log.Printf("pard %s starting...", types.Version)

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	id, err := identity.LoadOrCreateIdentity(cfg.KeyFile)
	if err != nil {
		log.Fatalf("Failed to load node identity: %v", err)
	}
	log.Printf("Node address: %s", id.Address())

	store, err := ledger.NewStore(filepath.Join(cfg.DataDir, "paradigm.db"))
	if err != nil {
		log.Fatalf("Failed to open ledger store: %v", err)
	}
	defer store.Close()
	log.Println("Ledger store initialized")

	nodeLog := logger.New(cfg.LogBuffer)
	n, err := node.New(cfg, id, store, nodeLog)
	if err != nil {
		log.Fatalf("Failed to assemble node: %v", err)
	}

	port := resolvePort(cfg.Port)
	if err := ensurePortAvailable(port); err != nil {
		log.Fatalf("Port %d unavailable: %v", port, err)
	}

	server := api.NewServer(n, nodeLog, cfg.DocsDir, port)
	serverErrors := server.Start()
	go func() {
		if err := <-serverErrors; err != nil {
			log.Fatalf("API server exited: %v", err)
		}
	}()
	log.Printf("API listening on http://localhost:%d", port)

	n.Start()
	defer n.Stop()

	for _, seed := range cfg.SeedPeers {
		if err := api.DialPeer(n, server.Service(), seed); err != nil {
			log.Printf("Warning: failed to reach seed peer %s: %v", seed, err)
		}
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
}

func resolvePort(defaultPort int) int {
	portStr := os.Getenv("PORT")
	if portStr == "" {
		return defaultPort
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		log.Printf("Warning: invalid PORT value %q, using %d", portStr, defaultPort)
		return defaultPort
	}

	return port
}

func ensurePortAvailable(port int) error {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return listener.Close()
}
