// Package api exposes the node over HTTP and websocket. JSON handlers cover
// wallet, task and network operations; /ws/peer carries node-to-node gossip.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"paradigm.network/pard/internal/logger"
	"paradigm.network/pard/internal/node"
	"paradigm.network/pard/internal/types"
)

// Service handles API requests
type Service struct {
	node   *node.Node
	logger *logger.Logger
}

// NewService creates a new API service
func NewService(n *node.Node, logger *logger.Logger) *Service {
	return &Service{
		node:   n,
		logger: logger,
	}
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeNodeError maps a node error to an HTTP status and writes it.
func (s *Service) writeNodeError(w http.ResponseWriter, err error) {
	s.writeError(w, statusFor(err), err.Error())
}

// statusFor maps error kinds to HTTP status codes. Anything unrecognized is
// an internal error.
func statusFor(err error) int {
	var ne *types.NodeError
	if !errors.As(err, &ne) {
		return http.StatusInternalServerError
	}
	switch ne.Kind {
	case types.KindInvalidInput, types.KindInvalidAddress, types.KindInvalidSignature:
		return http.StatusBadRequest
	case types.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case types.KindInvalidTask:
		return http.StatusNotFound
	case types.KindConsensus:
		return http.StatusConflict
	case types.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
