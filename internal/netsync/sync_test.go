package netsync

import (
	"errors"
	"math"
	"testing"
	"time"

	"paradigm.network/pard/internal/types"
)

// fakeCounters is a ledger stand-in with settable totals.
type fakeCounters struct {
	tx     uint64
	height uint64
	err    error
}

func (f *fakeCounters) TransactionCount() (uint64, error) { return f.tx, f.err }
func (f *fakeCounters) Height() (uint64, error)           { return f.height, f.err }

func snapshot(peerID string, tx, height uint64) types.PeerSnapshot {
	ts := time.Now().UnixNano()
	return types.PeerSnapshot{
		PeerID:            peerID,
		TotalTransactions: tx,
		LatestHeight:      height,
		Timestamp:         ts,
		IntegrityHash:     types.SnapshotHash(tx, height, ts),
	}
}

func TestZeroPeersReportsSynced(t *testing.T) {
	s := NewSynchronizer(&fakeCounters{tx: 42, height: 42})
	s.Start()

	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if info.Status != types.SyncSynced || info.Progress != 100 {
		t.Fatalf("info = %+v, want synced at 100", info)
	}
	if info.LocalTransactions != 42 {
		t.Fatalf("local transactions = %d, want 42", info.LocalTransactions)
	}
}

func TestWeightedProgress(t *testing.T) {
	// Local node at 800 of 1000 transactions and 500 of 500 height:
	// 0.7*80 + 0.3*100 = 86, still syncing.
	s := NewSynchronizer(&fakeCounters{tx: 800, height: 500})
	s.Start()
	if err := s.UpdatePeerSnapshot(snapshot("peer-1", 1000, 500)); err != nil {
		t.Fatalf("UpdatePeerSnapshot: %v", err)
	}

	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if math.Abs(info.Progress-86.0) > 1e-9 {
		t.Fatalf("progress = %v, want 86.0", info.Progress)
	}
	if info.Status != types.SyncSyncing {
		t.Fatalf("status = %v, want Syncing", info.Status)
	}
}

func TestProgressAveragesAcrossPeers(t *testing.T) {
	// Local node at 900 tx and height 600; peers report (1000, 500) and
	// (2000, 1500). Progress measures against the peer averages, 1500 tx
	// and height 1000: 0.7*60 + 0.3*60 = 60.
	s := NewSynchronizer(&fakeCounters{tx: 900, height: 600})
	s.Start()
	if err := s.UpdatePeerSnapshot(snapshot("peer-1", 1000, 500)); err != nil {
		t.Fatalf("peer-1: %v", err)
	}
	if err := s.UpdatePeerSnapshot(snapshot("peer-2", 2000, 1500)); err != nil {
		t.Fatalf("peer-2: %v", err)
	}

	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if math.Abs(info.Progress-60.0) > 1e-9 {
		t.Fatalf("progress = %v, want 60.0 against the peer averages", info.Progress)
	}
	if info.Status != types.SyncSyncing {
		t.Fatalf("status = %v, want Syncing", info.Status)
	}
}

func TestSyncedThreshold(t *testing.T) {
	// 995 of 1000 transactions, heights equal: 0.7*99.5 + 0.3*100 = 99.65.
	s := NewSynchronizer(&fakeCounters{tx: 995, height: 500})
	s.UpdatePeerSnapshot(snapshot("peer-1", 1000, 500))
	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if info.Status != types.SyncSynced {
		t.Fatalf("status = %v at %.2f%%, want Synced", info.Status, info.Progress)
	}

	// 990 of 1000: 0.7*99 + 0.3*100 = 99.3, still syncing.
	s = NewSynchronizer(&fakeCounters{tx: 990, height: 500})
	s.UpdatePeerSnapshot(snapshot("peer-1", 1000, 500))
	info, err = s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if info.Status != types.SyncSyncing {
		t.Fatalf("status = %v at %.2f%%, want Syncing", info.Status, info.Progress)
	}
}

func TestLocalAheadOfPeersClampsToHundred(t *testing.T) {
	s := NewSynchronizer(&fakeCounters{tx: 5000, height: 900})
	s.UpdatePeerSnapshot(snapshot("peer-1", 1000, 500))

	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if info.Progress != 100 || info.Status != types.SyncSynced {
		t.Fatalf("info = %+v, want clamped to synced", info)
	}
}

func TestTamperedSnapshotRejected(t *testing.T) {
	s := NewSynchronizer(&fakeCounters{})
	snap := snapshot("peer-1", 1000, 500)
	snap.TotalTransactions = 2000

	err := s.UpdatePeerSnapshot(snap)
	if !errors.Is(err, &types.NodeError{Kind: types.KindConsensus}) {
		t.Fatalf("err = %v, want consensus error", err)
	}
	if got := s.Info().PeerCount; got != 0 {
		t.Fatalf("peer count = %d, tampered snapshot stored", got)
	}
}

func TestStaleSnapshotIgnored(t *testing.T) {
	s := NewSynchronizer(&fakeCounters{tx: 100, height: 100})

	fresh := snapshot("peer-1", 1000, 500)
	if err := s.UpdatePeerSnapshot(fresh); err != nil {
		t.Fatalf("fresh: %v", err)
	}

	stale := fresh
	stale.TotalTransactions = 1
	stale.LatestHeight = 1
	stale.Timestamp = fresh.Timestamp - int64(time.Hour)
	stale.IntegrityHash = types.SnapshotHash(1, 1, stale.Timestamp)
	if err := s.UpdatePeerSnapshot(stale); err != nil {
		t.Fatalf("stale: %v", err)
	}

	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	// Still measured against the fresh snapshot's 1000 transactions.
	if info.Progress > 50 {
		t.Fatalf("progress = %v, stale snapshot replaced fresh one", info.Progress)
	}
}

func TestCounterFailureMarksFailedAndRecovers(t *testing.T) {
	counters := &fakeCounters{tx: 100, height: 100, err: errors.New("disk gone")}
	s := NewSynchronizer(counters)
	s.Start()

	_, err := s.Recompute()
	if !errors.Is(err, &types.NodeError{Kind: types.KindStorage}) {
		t.Fatalf("err = %v, want storage error", err)
	}
	if s.Info().Status != types.SyncFailed {
		t.Fatalf("status = %v, want Failed", s.Info().Status)
	}

	// The next healthy tick recovers without intervention.
	counters.err = nil
	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute after recovery: %v", err)
	}
	if info.Status != types.SyncSynced {
		t.Fatalf("status = %v, want Synced", info.Status)
	}
}

func TestForceResync(t *testing.T) {
	s := NewSynchronizer(&fakeCounters{tx: 100, height: 100})
	s.UpdatePeerSnapshot(snapshot("peer-1", 100, 100))
	if _, err := s.Recompute(); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	s.ForceResync()
	info := s.Info()
	if info.Status != types.SyncSyncing || info.Progress != 0 {
		t.Fatalf("info = %+v, want syncing from zero", info)
	}
	// Snapshots survive the reset.
	if info.PeerCount != 1 {
		t.Fatalf("peer count = %d, want 1", info.PeerCount)
	}
}

func TestDropPeer(t *testing.T) {
	s := NewSynchronizer(&fakeCounters{tx: 5, height: 5})
	s.UpdatePeerSnapshot(snapshot("peer-1", 1000, 500))
	s.DropPeer("peer-1")

	info, err := s.Recompute()
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if info.Status != types.SyncSynced || info.PeerCount != 0 {
		t.Fatalf("info = %+v, want synced with no peers", info)
	}
}
