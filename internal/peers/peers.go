// Package peers tracks the node's active peer set and fans gossip out over
// websocket connections. The set is capacity-bounded; dead peers are evicted
// to make room for new ones rather than growing without limit.
package peers

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"paradigm.network/pard/internal/types"
)

// Gossip message types exchanged between nodes.
const (
	MsgTransaction    = "transaction"
	MsgTaskCompletion = "task_completion"
	MsgSnapshot       = "snapshot"
)

// Message is the envelope for everything gossiped between peers.
type Message struct {
	Type string          `json:"type"`
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

// NewMessage wraps a payload in a gossip envelope.
func NewMessage(msgType, from string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NetworkError("encode %s gossip: %v", msgType, err)
	}
	return &Message{Type: msgType, From: from, Data: data}, nil
}

// Conn is the write surface of a peer connection. gorilla's *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type peer struct {
	id       string
	addr     string
	conn     Conn
	alive    bool
	addedAt  time.Time
	lastSeen time.Time

	// writeMu serializes writes to conn; websocket connections do not
	// support concurrent writers.
	writeMu sync.Mutex
}

// PeerInfo is the externally visible view of one peer.
type PeerInfo struct {
	ID       string    `json:"id"`
	Addr     string    `json:"addr"`
	Alive    bool      `json:"alive"`
	AddedAt  time.Time `json:"added_at"`
	LastSeen time.Time `json:"last_seen"`
}

// Manager owns the peer set.
type Manager struct {
	mu          sync.RWMutex
	maxPeers    int
	sendTimeout time.Duration
	peers       map[string]*peer
}

// NewManager creates a peer set bounded at maxPeers connections.
func NewManager(maxPeers int, sendTimeout time.Duration) *Manager {
	if maxPeers <= 0 {
		maxPeers = types.MaxPeers
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Manager{
		maxPeers:    maxPeers,
		sendTimeout: sendTimeout,
		peers:       make(map[string]*peer),
	}
}

// AddPeer registers a connection under the given peer id. Reconnecting an
// existing id replaces its connection. When the set is full a dead peer is
// evicted to make room; if every slot holds a live peer the add is refused.
func (m *Manager) AddPeer(id, addr string, conn Conn) error {
	if id == "" {
		return types.InvalidInput("peer id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.peers[id]; ok {
		if existing.conn != nil && existing.conn != conn {
			existing.conn.Close()
		}
		existing.conn = conn
		existing.addr = addr
		existing.alive = true
		existing.lastSeen = now
		return nil
	}

	if len(m.peers) >= m.maxPeers {
		if !m.evictDead() {
			return types.NetworkError("peer set full (%d peers)", m.maxPeers)
		}
	}

	m.peers[id] = &peer{
		id:       id,
		addr:     addr,
		conn:     conn,
		alive:    true,
		addedAt:  now,
		lastSeen: now,
	}
	return nil
}

// RemovePeer drops a peer and closes its connection. Removing an unknown id
// is a no-op.
func (m *Manager) RemovePeer(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.peers[id]; ok {
		if p.conn != nil {
			p.conn.Close()
		}
		delete(m.peers, id)
	}
}

// Touch refreshes a peer's liveness after inbound traffic from it.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.peers[id]; ok {
		p.alive = true
		p.lastSeen = time.Now().UTC()
	}
}

// Count reports the number of live peers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, p := range m.peers {
		if p.alive {
			n++
		}
	}
	return n
}

// List returns a snapshot of the whole peer set, dead entries included.
func (m *Manager) List() []PeerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PeerInfo, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, PeerInfo{
			ID:       p.id,
			Addr:     p.addr,
			Alive:    p.alive,
			AddedAt:  p.addedAt,
			LastSeen: p.lastSeen,
		})
	}
	return out
}

// Broadcast sends the message to every live peer, best effort. A peer whose
// write fails is marked dead and its connection closed; the fan-out carries
// on to the remaining peers. Returns the number of successful deliveries.
//
// Writes happen outside the manager lock so a slow peer cannot stall
// AddPeer, RemovePeer, or other broadcasters; each peer's writeMu keeps the
// connection single-writer.
func (m *Manager) Broadcast(msg *Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0
	}

	type target struct {
		p    *peer
		conn Conn
	}

	m.mu.RLock()
	targets := make([]target, 0, len(m.peers))
	for _, p := range m.peers {
		if !p.alive || p.conn == nil {
			continue
		}
		targets = append(targets, target{p: p, conn: p.conn})
	}
	m.mu.RUnlock()

	delivered := 0
	var failed []target
	for _, t := range targets {
		t.p.writeMu.Lock()
		t.conn.SetWriteDeadline(time.Now().Add(m.sendTimeout))
		err := t.conn.WriteMessage(websocket.TextMessage, data)
		t.p.writeMu.Unlock()
		if err != nil {
			failed = append(failed, t)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		m.mu.Lock()
		for _, t := range failed {
			// Only mark the peer dead if it still holds the connection
			// the write went to; it may have reconnected meanwhile.
			if p, ok := m.peers[t.p.id]; ok && p == t.p && p.conn == t.conn {
				p.alive = false
				p.conn.Close()
			}
		}
		m.mu.Unlock()
	}
	return delivered
}

// evictDead removes one dead peer. Callers hold the write lock.
func (m *Manager) evictDead() bool {
	for id, p := range m.peers {
		if !p.alive {
			if p.conn != nil {
				p.conn.Close()
			}
			delete(m.peers, id)
			return true
		}
	}
	return false
}
