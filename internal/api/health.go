package api

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"paradigm.network/pard/internal/types"
)

// @Title: Get Health
// @Route: GET /api/health
// @Description: Returns node health status
// @Response: {"status": "ok"}
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Title: Get Version
// @Route: GET /api/version
// @Description: Returns pard version and node address
// @Response: {"version": "...", "status": "ok", "address": "PAR..."}
func (s *Service) HandleVersion(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	s.writeJSON(w, http.StatusOK, map[string]string{
		"version":  types.Version,
		"protocol": types.ProtocolVersion,
		"status":   "ok",
		"address":  s.node.Address().String(),
		"hostname": hostname,
		"go_ver":   runtime.Version(),
		"os_arch":  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}
