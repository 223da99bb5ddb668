package api

import (
	"fmt"
	"net/http"
	"strings"

	"paradigm.network/pard/internal/docs"
	"paradigm.network/pard/internal/logger"
	"paradigm.network/pard/internal/node"
)

// Server binds the API service to an HTTP listener.
type Server struct {
	svc  *Service
	docs *docs.Service
	port int
}

// NewServer creates the HTTP front end for a node.
func NewServer(n *node.Node, log *logger.Logger, docsDir string, port int) *Server {
	return &Server{
		svc:  NewService(n, log),
		docs: docs.NewService(docsDir),
		port: port,
	}
}

// Start runs the listener in the background and reports its exit on the
// returned channel.
func (s *Server) Start() <-chan error {
	mux := http.NewServeMux()

	// Wallet routes
	mux.HandleFunc("/api/balance", s.svc.HandleBalance)
	mux.HandleFunc("/api/transactions", s.svc.HandleTransactions)
	mux.HandleFunc("/api/transaction", s.svc.HandleSubmitTransaction)
	mux.HandleFunc("/api/wallet/send", s.svc.HandleWalletSend)

	// Task routes
	mux.HandleFunc("/api/task", s.svc.HandleFetchTask)
	mux.HandleFunc("/api/task/create", s.svc.HandleCreateTask)
	mux.HandleFunc("/api/task/result", s.svc.HandleSubmitResult)

	// Network routes
	mux.HandleFunc("/api/sync", s.svc.HandleSync)
	mux.HandleFunc("/api/sync/resync", s.svc.HandleForceResync)
	mux.HandleFunc("/api/peers", s.svc.HandlePeers)
	mux.HandleFunc("/api/stats", s.svc.HandleStats)
	mux.HandleFunc("/api/peer/snapshot", s.svc.HandlePeerSnapshot)

	// Node routes
	mux.HandleFunc("/api/health", s.svc.HandleHealth)
	mux.HandleFunc("/api/version", s.svc.HandleVersion)
	mux.HandleFunc("/api/log", s.svc.HandleLog)
	mux.HandleFunc("/api/docs", s.handleDocs)
	mux.HandleFunc("/api/docs/", s.handleDocs)

	// WebSocket routes
	mux.HandleFunc("/ws/peer", s.svc.HandlePeerSocket)

	addr := fmt.Sprintf(":%d", s.port)
	errCh := make(chan error, 1)

	go func() {
		err := http.ListenAndServe(addr, mux)
		errCh <- err
		close(errCh)
	}()

	return errCh
}

// Service exposes the underlying handler set, mainly for seed peer dialing.
func (s *Server) Service() *Service {
	return s.svc
}

// @Title: Get Docs
// @Route: GET /api/docs/{file}
// @Description: Render an asciidoc document to HTML; no file lists available docs
// @Response: HTML fragment or {"docs": [...]}
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/docs")
	name = strings.TrimPrefix(name, "/")

	if name == "" {
		list, err := s.docs.ListDocs()
		if err != nil {
			s.svc.writeError(w, http.StatusInternalServerError, "Failed to list docs")
			return
		}
		s.svc.writeJSON(w, http.StatusOK, map[string][]string{"docs": list})
		return
	}

	if strings.Contains(name, "..") || strings.Contains(name, "/") {
		s.svc.writeError(w, http.StatusBadRequest, "Invalid doc name")
		return
	}

	html, err := s.docs.GetDoc(r.Context(), name)
	if err != nil {
		s.svc.writeError(w, http.StatusNotFound, "Doc not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
