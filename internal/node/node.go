// Package node wires the ledger, task engine, peer set and synchronizer into
// one coordinator. The coordinator owns the periodic tick loop and is the
// only component that crosses subsystem boundaries: task acceptance in the
// engine and reward crediting in the ledger meet here.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"paradigm.network/pard/internal/compute"
	"paradigm.network/pard/internal/config"
	"paradigm.network/pard/internal/identity"
	"paradigm.network/pard/internal/ledger"
	"paradigm.network/pard/internal/logger"
	"paradigm.network/pard/internal/netsync"
	"paradigm.network/pard/internal/peers"
	"paradigm.network/pard/internal/tasks"
	"paradigm.network/pard/internal/types"
)

// DecayFunc adjusts a reward before it is credited. The default keeps the
// reward unchanged; economic decay policies plug in here.
type DecayFunc func(contributor types.Address, reward types.Amount) types.Amount

// Node is the coordinator for a single pard process.
type Node struct {
	id     *identity.Identity
	store  *ledger.Store
	engine *tasks.Engine
	peers  *peers.Manager
	sync   *netsync.Synchronizer
	log    *logger.Logger
	decay  DecayFunc

	// submitLocks serializes the accept-then-credit window per task id.
	submitLocks sync.Map

	// gossipMisses counts consecutive gossip rounds that reached no live
	// peer despite the set holding some.
	gossipMisses atomic.Int32

	tickInterval time.Duration

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New assembles a node from its parts. When the treasury seed is enabled the
// genesis allocation is applied to the node's own address; reopening an
// already seeded ledger leaves it untouched.
func New(cfg *config.Config, id *identity.Identity, store *ledger.Store, log *logger.Logger) (*Node, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.New(cfg.LogBuffer)
	}

	n := &Node{
		id:           id,
		store:        store,
		engine:       tasks.NewEngine(compute.HashProof{}, time.Duration(cfg.TaskTimeoutSecs)*time.Second),
		peers:        peers.NewManager(cfg.MaxPeers, time.Duration(cfg.PeerSendTimeoutMs)*time.Millisecond),
		sync:         netsync.NewSynchronizer(store),
		log:          log,
		decay:        func(_ types.Address, reward types.Amount) types.Amount { return reward },
		tickInterval: time.Duration(cfg.TickIntervalSecs) * time.Second,
	}

	if cfg.EnableTreasurySeed {
		if err := store.SeedGenesis(id.Address(), types.TreasurySeed); err != nil {
			return nil, fmt.Errorf("seed genesis: %w", err)
		}
	}

	n.log.Infof("node", "node %s ready", id.Address())
	return n, nil
}

// SetDecay installs a reward decay policy. Must be called before Start.
func (n *Node) SetDecay(fn DecayFunc) {
	if fn != nil {
		n.decay = fn
	}
}

// Address returns the node's own ledger address.
func (n *Node) Address() types.Address {
	return n.id.Address()
}

// PeerID is the identifier this node gossips under.
func (n *Node) PeerID() string {
	return n.id.Address().String()
}

// SubmitTransaction verifies and applies a transaction, then gossips it to
// the peer set. The ledger write is atomic; a rejected transaction leaves no
// trace.
func (n *Node) SubmitTransaction(tx *types.Transaction) error {
	if err := tx.Verify(); err != nil {
		return err
	}
	if err := n.store.ApplyTransaction(tx); err != nil {
		return err
	}
	n.log.Infof("node", "applied transaction %s (%s)", tx.ID, tx.Amount.Format())
	n.gossip(peers.MsgTransaction, tx)
	return nil
}

// Send builds a transaction from the node's own key, applies it and gossips
// it.
func (n *Node) Send(to types.Address, amount, fee types.Amount, memo string) (*types.Transaction, error) {
	tx, err := types.NewTransaction(to, amount, fee, memo, n.id.PrivateKey())
	if err != nil {
		return nil, err
	}
	if err := n.SubmitTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CreateTask registers a new work unit on the local task board.
func (n *Node) CreateTask(taskType types.TaskType, payload []byte, reward types.Amount) (*types.MLTask, error) {
	task, err := n.engine.CreateTask(taskType, payload, reward)
	if err != nil {
		return nil, err
	}
	n.log.Infof("tasks", "created %s task %s (difficulty %d)", task.Type, task.ID, task.Difficulty)
	return task, nil
}

// FetchTask assigns an open work unit to the worker. Returns (nil, nil) when
// no work is available.
func (n *Node) FetchTask(worker types.Address) (*types.MLTask, error) {
	// Another worker can take the task between the fetch and the assign;
	// retry against the next pending task.
	for attempt := 0; attempt < 8; attempt++ {
		pending := n.engine.FetchPending()
		if pending == nil {
			return nil, nil
		}
		task, err := n.engine.Assign(pending.ID, worker)
		if err == nil {
			return task, nil
		}
	}
	return nil, nil
}

// SubmitTaskResult runs a contributor's result through verification and, on
// acceptance, credits the reward exactly once. Returns whether the result
// was accepted. A failed verification is not an error: the task reopens and
// (false, nil) comes back.
func (n *Node) SubmitTaskResult(res *types.WorkResult) (bool, error) {
	key := res.TaskID.String()
	lock := n.submitLock(key)
	lock.Lock()
	defer lock.Unlock()

	accepted, reward, err := n.engine.SubmitResult(res)
	if err != nil {
		// Unknown or already finalized task: no further submission for
		// this id can succeed, so its lock entry is dropped.
		n.submitLocks.Delete(key)
		return false, err
	}
	if !accepted {
		n.log.Warningf("tasks", "rejected result for task %s from %s", res.TaskID, res.Contributor)
		return false, nil
	}

	reward = n.decay(res.Contributor, reward)
	if err := n.store.CreditReward(res.TaskID, res.Contributor, reward); err != nil {
		return false, err
	}
	var taskType types.TaskType
	if task, terr := n.engine.Get(res.TaskID); terr == nil {
		taskType = task.Type
	}
	if err := n.store.RecordTaskCompletion(res.TaskID, taskType, res.Contributor, fmt.Sprintf("%d bytes", len(res.Result))); err != nil {
		n.log.Errorf("tasks", "record completion for %s: %v", res.TaskID, err)
	}

	n.log.Infof("tasks", "task %s completed by %s, reward %s", res.TaskID, res.Contributor, reward.Format())
	n.gossip(peers.MsgTaskCompletion, map[string]interface{}{
		"task_id":     res.TaskID,
		"contributor": res.Contributor,
		"reward":      reward,
	})
	n.submitLocks.Delete(key)
	return true, nil
}

// Tick runs one maintenance pass: expire overdue tasks, recompute sync
// progress and gossip the node's own snapshot. Honors ctx between steps so
// shutdown never waits on a full pass.
func (n *Node) Tick(ctx context.Context) error {
	if swept := n.engine.SweepExpired(time.Now()); len(swept) > 0 {
		n.log.Infof("tasks", "expired %d overdue tasks", len(swept))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := n.sync.Recompute()
	if err != nil {
		n.log.Errorf("sync", "recompute: %v", err)
	} else {
		n.log.Infof("sync", "%s at %.1f%% with %d peers", info.Status, info.Progress, info.PeerCount)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n.gossipSnapshot()
	return nil
}

// Start launches the background tick loop. Starting a running node is a
// no-op.
func (n *Node) Start() {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	if n.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	n.running = true
	n.sync.Start()

	go func() {
		defer close(n.done)
		ticker := time.NewTicker(n.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := n.Tick(ctx); err != nil {
					return
				}
			}
		}
	}()
	n.log.Infof("node", "tick loop started (interval %s)", n.tickInterval)
}

// Stop cancels the tick loop and waits for it to exit.
func (n *Node) Stop() {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	if !n.running {
		return
	}
	n.cancel()
	<-n.done
	n.running = false
	n.log.Infof("node", "tick loop stopped")
}

// AddPeer registers a peer connection for gossip fan-out.
func (n *Node) AddPeer(id, addr string, conn peers.Conn) error {
	if err := n.peers.AddPeer(id, addr, conn); err != nil {
		return err
	}
	n.log.Infof("peers", "peer %s connected from %s", id, addr)
	return nil
}

// RemovePeer drops a peer and forgets its sync snapshot.
func (n *Node) RemovePeer(id string) {
	n.peers.RemovePeer(id)
	n.sync.DropPeer(id)
	n.log.Infof("peers", "peer %s removed", id)
}

// Peers lists the current peer set.
func (n *Node) Peers() []peers.PeerInfo {
	return n.peers.List()
}

// HandlePeerMessage dispatches an inbound gossip envelope.
func (n *Node) HandlePeerMessage(msg *peers.Message) error {
	n.peers.Touch(msg.From)

	switch msg.Type {
	case peers.MsgSnapshot:
		var snap types.PeerSnapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			return types.NetworkError("malformed snapshot from %s: %v", msg.From, err)
		}
		return n.sync.UpdatePeerSnapshot(snap)

	case peers.MsgTransaction:
		var tx types.Transaction
		if err := json.Unmarshal(msg.Data, &tx); err != nil {
			return types.NetworkError("malformed transaction from %s: %v", msg.From, err)
		}
		if err := tx.Verify(); err != nil {
			return err
		}
		// Mirror the peer's transaction locally. Replays and unknown
		// senders surface as ledger errors and are dropped here rather
		// than re-gossiped.
		if err := n.store.ApplyTransaction(&tx); err != nil {
			n.log.Warningf("peers", "transaction %s from %s not applied: %v", tx.ID, msg.From, err)
			return err
		}
		return nil

	case peers.MsgTaskCompletion:
		// Informational; completions settle on the node that owns the task.
		return nil

	default:
		return types.NetworkError("unknown gossip type %q from %s", msg.Type, msg.From)
	}
}

// Balance reads an address's confirmed balance.
func (n *Node) Balance(addr types.Address) (types.Amount, error) {
	return n.store.GetBalance(addr)
}

// History returns recent transactions touching the address, newest first.
func (n *Node) History(addr types.Address, limit int) ([]types.Transaction, error) {
	return n.store.TransactionsForAddress(addr, limit)
}

// SyncInfo reports the synchronizer's current view.
func (n *Node) SyncInfo() types.SyncInfo {
	return n.sync.Info()
}

// ForceResync restarts synchronization from zero progress.
func (n *Node) ForceResync() {
	n.sync.ForceResync()
	n.log.Infof("sync", "resync forced")
}

// Stats merges the task board counters with the ledger's reward totals.
func (n *Node) Stats() (types.NetworkStats, error) {
	stats := n.engine.Stats()
	minted, err := n.store.RewardsMinted()
	if err != nil {
		return stats, err
	}
	stats.RewardsMinted = minted
	return stats, nil
}

// Log exposes the node's ring-buffer logger.
func (n *Node) Log() *logger.Logger {
	return n.log
}

func (n *Node) submitLock(key string) *sync.Mutex {
	v, _ := n.submitLocks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// gossipFailureLimit is how many consecutive gossip rounds may reach zero
// live peers before synchronization is marked failed.
const gossipFailureLimit = 3

func (n *Node) gossip(msgType string, payload interface{}) {
	msg, err := peers.NewMessage(msgType, n.PeerID(), payload)
	if err != nil {
		n.log.Errorf("peers", "%v", err)
		return
	}

	live := n.peers.Count()
	delivered := n.peers.Broadcast(msg)
	if live == 0 {
		return
	}
	if delivered > 0 {
		n.gossipMisses.Store(0)
		return
	}
	if n.gossipMisses.Add(1) >= gossipFailureLimit {
		n.gossipMisses.Store(0)
		n.sync.MarkFailed()
		n.log.Warningf("sync", "gossip reached no peers %d rounds in a row, marking sync failed", gossipFailureLimit)
	}
}

func (n *Node) gossipSnapshot() {
	txCount, err := n.store.TransactionCount()
	if err != nil {
		n.log.Errorf("sync", "snapshot counters: %v", err)
		return
	}
	height, err := n.store.Height()
	if err != nil {
		n.log.Errorf("sync", "snapshot counters: %v", err)
		return
	}

	now := time.Now().UnixNano()
	snap := types.PeerSnapshot{
		PeerID:            n.PeerID(),
		TotalTransactions: txCount,
		TotalPeers:        uint64(n.peers.Count()),
		LatestHeight:      height,
		Timestamp:         now,
		IntegrityHash:     types.SnapshotHash(txCount, height, now),
	}
	n.gossip(peers.MsgSnapshot, snap)
}
