package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// PeerSnapshot is a peer's periodic report of its ledger counters. Snapshots
// are ephemeral: each report replaces the previous one for that peer and
// nothing here is persisted.
type PeerSnapshot struct {
	PeerID            string `json:"peer_id"`
	TotalTransactions uint64 `json:"total_transactions"`
	TotalPeers        uint64 `json:"total_peers"`
	LatestHeight      uint64 `json:"latest_height"`
	Timestamp         int64  `json:"timestamp"`
	IntegrityHash     []byte `json:"integrity_hash"`
}

// SnapshotHash computes the integrity hash over the counters a snapshot
// reports.
func SnapshotHash(totalTransactions, latestHeight uint64, timestamp int64) []byte {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:], totalTransactions)
	binary.BigEndian.PutUint64(buf[8:], latestHeight)
	binary.BigEndian.PutUint64(buf[16:], uint64(timestamp))
	sum := sha256.Sum256(buf[:])
	return sum[:]
}

// VerifyIntegrity recomputes the hash and compares it against the reported
// one.
func (s *PeerSnapshot) VerifyIntegrity() bool {
	want := SnapshotHash(s.TotalTransactions, s.LatestHeight, s.Timestamp)
	if len(s.IntegrityHash) != len(want) {
		return false
	}
	for i := range want {
		if s.IntegrityHash[i] != want[i] {
			return false
		}
	}
	return true
}

// SyncStatus is the synchronizer's state machine position.
type SyncStatus int

const (
	SyncNotStarted SyncStatus = iota
	SyncSyncing
	SyncSynced
	SyncFailed
)

func (s SyncStatus) String() string {
	switch s {
	case SyncNotStarted:
		return "Not Started"
	case SyncSyncing:
		return "Syncing"
	case SyncSynced:
		return "Synced"
	case SyncFailed:
		return "Failed"
	}
	return "Unknown"
}

// MarshalText lets the status travel as its display string in JSON.
func (s SyncStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SyncInfo is the read-only view of synchronization state consumed by
// presentation layers.
type SyncInfo struct {
	Status            SyncStatus `json:"status"`
	Progress          float64    `json:"progress_percentage"`
	PeerCount         int        `json:"peer_count"`
	LocalTransactions uint64     `json:"local_transactions"`
}
