// Package netsync tracks how far the local ledger lags behind the network.
// Peers gossip integrity-hashed counter snapshots; the synchronizer compares
// the local counters against the peer average and derives a weighted
// progress percentage.
package netsync

import (
	"sync"

	"paradigm.network/pard/internal/types"
)

// Counters is the slice of the ledger the synchronizer reads.
type Counters interface {
	TransactionCount() (uint64, error)
	Height() (uint64, error)
}

// Progress weighting. Transaction coverage dominates because transactions
// carry the balances; height is a coarser signal.
const (
	txWeight     = 0.7
	heightWeight = 0.3
	syncedAt     = 99.5
)

// Synchronizer derives sync progress from gossiped peer snapshots.
type Synchronizer struct {
	mu       sync.RWMutex
	counters Counters

	status    types.SyncStatus
	progress  float64
	snapshots map[string]types.PeerSnapshot
}

// NewSynchronizer creates a synchronizer in the NotStarted state.
func NewSynchronizer(counters Counters) *Synchronizer {
	return &Synchronizer{
		counters:  counters,
		status:    types.SyncNotStarted,
		snapshots: make(map[string]types.PeerSnapshot),
	}
}

// Start moves the synchronizer out of NotStarted. Calling it again is a
// no-op.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == types.SyncNotStarted {
		s.status = types.SyncSyncing
	}
}

// UpdatePeerSnapshot records a peer's counter report. A snapshot whose
// integrity hash does not match its counters is rejected; a stale snapshot
// (timestamp at or behind the one already held) is ignored.
func (s *Synchronizer) UpdatePeerSnapshot(snap types.PeerSnapshot) error {
	if snap.PeerID == "" {
		return types.InvalidInput("snapshot missing peer id")
	}
	if !snap.VerifyIntegrity() {
		return types.ConsensusError("snapshot from %s failed integrity check", snap.PeerID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.snapshots[snap.PeerID]; ok && held.Timestamp >= snap.Timestamp {
		return nil
	}
	s.snapshots[snap.PeerID] = snap
	return nil
}

// DropPeer forgets the snapshot held for a departed peer.
func (s *Synchronizer) DropPeer(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, peerID)
}

// Recompute reads the local counters, compares them against the average of
// the held peer snapshots and updates status and progress. With no peer
// snapshots the node is its own network and reports fully synced. A
// successful pass recovers a Failed synchronizer; a counter read error marks
// it Failed.
func (s *Synchronizer) Recompute() (types.SyncInfo, error) {
	localTx, err := s.counters.TransactionCount()
	var localHeight uint64
	if err == nil {
		localHeight, err = s.counters.Height()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status = types.SyncFailed
		return s.infoLocked(localTx), types.StorageError(err)
	}

	if len(s.snapshots) == 0 {
		s.progress = 100
		s.status = types.SyncSynced
		return s.infoLocked(localTx), nil
	}

	var sumTx, sumHeight float64
	for _, snap := range s.snapshots {
		sumTx += float64(snap.TotalTransactions)
		sumHeight += float64(snap.LatestHeight)
	}
	count := float64(len(s.snapshots))
	avgTx := sumTx / count
	avgHeight := sumHeight / count

	s.progress = weighted(ratio(float64(localTx), avgTx), ratio(float64(localHeight), avgHeight))
	if s.progress >= syncedAt {
		s.status = types.SyncSynced
	} else {
		s.status = types.SyncSyncing
	}
	return s.infoLocked(localTx), nil
}

// ForceResync discards progress and starts over. Held snapshots are kept so
// the next recompute has peers to measure against.
func (s *Synchronizer) ForceResync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = 0
	s.status = types.SyncSyncing
}

// MarkFailed records an externally detected sync failure.
func (s *Synchronizer) MarkFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = types.SyncFailed
}

// Info returns the current sync view without recomputing.
func (s *Synchronizer) Info() types.SyncInfo {
	localTx, _ := s.counters.TransactionCount()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoLocked(localTx)
}

func (s *Synchronizer) infoLocked(localTx uint64) types.SyncInfo {
	return types.SyncInfo{
		Status:            s.status,
		Progress:          s.progress,
		PeerCount:         len(s.snapshots),
		LocalTransactions: localTx,
	}
}

// ratio maps local/avg to a 0..100 percentage, clamped. An average of zero
// means the network has nothing we lack.
func ratio(local, avg float64) float64 {
	if avg == 0 {
		return 100
	}
	pct := local / avg * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

func weighted(txPct, heightPct float64) float64 {
	p := txWeight*txPct + heightWeight*heightPct
	if p > 100 {
		p = 100
	}
	return p
}
