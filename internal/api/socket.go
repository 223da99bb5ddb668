package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"paradigm.network/pard/internal/node"
	"paradigm.network/pard/internal/peers"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Title: Peer Socket
// @Route: GET /ws/peer?id=PAR...
// @Description: Upgrade to a websocket carrying node-to-node gossip
// @Response: websocket stream of gossip envelopes
func (s *Service) HandlePeerSocket(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("id")
	if peerID == "" {
		s.writeError(w, http.StatusBadRequest, "Missing 'id' query parameter")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := s.node.AddPeer(peerID, r.RemoteAddr, conn); err != nil {
		s.logger.Warningf("peers", "refused %s: %v", peerID, err)
		conn.Close()
		return
	}

	readPeer(s.node, s, peerID, conn)
}

// DialPeer opens an outbound gossip connection to a seed peer and pumps its
// messages into the node until the connection drops.
func DialPeer(n *node.Node, svc *Service, url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url+"?id="+n.PeerID(), nil)
	if err != nil {
		return err
	}
	if err := n.AddPeer(url, url, conn); err != nil {
		conn.Close()
		return err
	}

	go readPeer(n, svc, url, conn)
	return nil
}

// readPeer decodes gossip envelopes off the connection until it fails, then
// drops the peer.
func readPeer(n *node.Node, svc *Service, peerID string, conn *websocket.Conn) {
	defer n.RemovePeer(peerID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg peers.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			svc.logger.Warningf("peers", "malformed gossip from %s: %v", peerID, err)
			continue
		}
		if msg.From == "" {
			msg.From = peerID
		}
		if err := n.HandlePeerMessage(&msg); err != nil {
			svc.logger.Warningf("peers", "gossip from %s: %v", peerID, err)
		}
	}
}
