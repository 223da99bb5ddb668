package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"paradigm.network/pard/internal/peers"
	"paradigm.network/pard/internal/types"
)

// @Title: Get Sync Status
// @Route: GET /api/sync
// @Description: Current synchronization status and progress
// @Response: SyncInfo object
func (s *Service) HandleSync(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.SyncInfo())
}

// @Title: Force Resync
// @Route: POST /api/sync/resync
// @Description: Restart synchronization from zero progress
// @Response: 204 No Content
func (s *Service) HandleForceResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.node.ForceResync()
	w.WriteHeader(http.StatusNoContent)
}

// @Title: Get Peers
// @Route: GET /api/peers
// @Description: The current peer set, dead entries included
// @Response: Array of PeerInfo objects
func (s *Service) HandlePeers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.Peers())
}

// @Title: Get Network Stats
// @Route: GET /api/stats
// @Description: Task board counters and minted reward total
// @Response: NetworkStats object
func (s *Service) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.node.Stats()
	if err != nil {
		s.writeNodeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// @Title: Receive Peer Snapshot
// @Route: POST /api/peer/snapshot
// @Description: Accept a ledger counter snapshot from a peer over plain HTTP
// @Response: 204 No Content
func (s *Service) HandlePeerSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var snap types.PeerSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid snapshot")
		return
	}
	msg := &peers.Message{Type: peers.MsgSnapshot, From: snap.PeerID, Data: data}
	if err := s.node.HandlePeerMessage(msg); err != nil {
		s.writeNodeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Title: Get Log
// @Route: GET /api/log?n=50
// @Description: Recent node log messages, newest first
// @Response: Array of log Message objects
func (s *Service) HandleLog(w http.ResponseWriter, r *http.Request) {
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	s.writeJSON(w, http.StatusOK, s.logger.GetRecent(n))
}
