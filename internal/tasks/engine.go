// Package tasks implements the work unit registry: the task engine that
// issues, assigns, validates and expires ML work units. The engine owns its
// tasks exclusively; every MLTask handed outward is a copy, and every state
// transition happens under the engine lock so that finalization of a given
// task id behaves as if globally serialized.
package tasks

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"paradigm.network/pard/internal/types"
)

// Verifier checks a submitted result against its task. The compute
// capability satisfies this.
type Verifier interface {
	Verify(task *types.MLTask, result *types.WorkResult) bool
}

// contributor score bounds, in fixed-point hundredths (100 = 1.0x).
const (
	initialScore = 100
	maxScore     = 200
)

// Engine is the work unit registry.
type Engine struct {
	mu       sync.Mutex
	verifier Verifier
	timeout  time.Duration

	tasks  map[uuid.UUID]*types.MLTask
	scores map[types.Address]int64

	networkDifficulty uint8
	completed         int
	expired           int
}

// NewEngine creates a registry. timeout is the deadline window applied to
// newly created tasks.
func NewEngine(verifier Verifier, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Engine{
		verifier:          verifier,
		timeout:           timeout,
		tasks:             make(map[uuid.UUID]*types.MLTask),
		scores:            make(map[types.Address]int64),
		networkDifficulty: types.MinTaskDifficulty,
	}
}

// CreateTask registers a new pending work unit. The payload must decode as
// the given task type's shape; difficulty comes from the configured policy.
func (e *Engine) CreateTask(taskType types.TaskType, payload []byte, reward types.Amount) (*types.MLTask, error) {
	if _, err := types.DecodePayload(taskType, payload); err != nil {
		return nil, err
	}
	if reward == 0 {
		return nil, types.InvalidInput("task reward must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	task := &types.MLTask{
		ID:         uuid.New(),
		Type:       taskType,
		Payload:    append([]byte(nil), payload...),
		Difficulty: e.difficultyFor(taskType),
		Reward:     reward,
		CreatedAt:  now,
		Deadline:   now.Add(e.timeout),
		State:      types.TaskPending,
	}
	e.tasks[task.ID] = task
	return task.Clone(), nil
}

// FetchPending returns a copy of an open work unit, preferring the earliest
// deadline, or nil when no work is available.
func (e *Engine) FetchPending() *types.MLTask {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	var best *types.MLTask
	for _, task := range e.tasks {
		if task.State != types.TaskPending || task.Expired(now) {
			continue
		}
		if best == nil || task.Deadline.Before(best.Deadline) {
			best = task
		}
	}
	if best == nil {
		return nil
	}
	return best.Clone()
}

// Get returns a copy of the task with the given id.
func (e *Engine) Get(taskID uuid.UUID) (*types.MLTask, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil, types.ErrInvalidTask
	}
	return task.Clone(), nil
}

// Assign transitions a pending task to Assigned and records the worker.
func (e *Engine) Assign(taskID uuid.UUID, worker types.Address) (*types.MLTask, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok || task.State != types.TaskPending {
		return nil, types.ErrInvalidTask
	}
	if task.Expired(time.Now()) {
		task.State = types.TaskExpired
		e.expired++
		return nil, types.ErrInvalidTask
	}

	w := worker.Comparable()
	task.State = types.TaskAssigned
	task.AssignedTo = &w
	return task.Clone(), nil
}

// SubmitResult validates a contributor's result. The task id is resolved,
// verified and finalized under one lock acquisition, so two racing
// submissions for the same task yield exactly one acceptance.
//
// Returns (true, reward) on acceptance: the task is Completed and the caller
// must credit the reward exactly once. Returns (false, 0, nil) when
// verification fails: the task goes back to Pending for reassignment — a
// bad submission is expected traffic, not a fault. Unknown or terminal task
// ids return ErrInvalidTask.
func (e *Engine) SubmitResult(res *types.WorkResult) (bool, types.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[res.TaskID]
	if !ok || task.State.Terminal() {
		return false, 0, types.ErrInvalidTask
	}
	if task.Expired(time.Now()) {
		// Deadline passed before the sweeper ran; a late submission never
		// completes the task.
		task.State = types.TaskExpired
		task.AssignedTo = nil
		e.expired++
		return false, 0, types.ErrInvalidTask
	}

	if !e.verifier.Verify(task, res) {
		task.State = types.TaskPending
		task.AssignedTo = nil
		return false, 0, nil
	}

	task.State = types.TaskCompleted
	task.Result = append([]byte(nil), res.Result...)
	contributor := res.Contributor.Comparable()
	task.AssignedTo = &contributor
	e.completed++

	reward, err := task.Reward.MulScore(e.bumpScore(contributor, task.Difficulty))
	if err != nil {
		// Overflow on the multiplier falls back to the base reward.
		reward = task.Reward
	}
	return true, reward, nil
}

// SweepExpired transitions every live task whose deadline has passed to
// Expired and returns their ids. Already-expired tasks are skipped, so the
// sweep is idempotent and safe to resume after an interrupted tick.
func (e *Engine) SweepExpired(now time.Time) []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	var swept []uuid.UUID
	for id, task := range e.tasks {
		if task.State.Terminal() || !task.Expired(now) {
			continue
		}
		task.State = types.TaskExpired
		task.AssignedTo = nil
		e.expired++
		swept = append(swept, id)
	}
	if len(swept) > 0 {
		e.adjustDifficulty()
	}
	return swept
}

// Score returns the contributor's current multiplier in hundredths.
func (e *Engine) Score(contributor types.Address) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.scores[contributor.Comparable()]; ok {
		return s
	}
	return initialScore
}

// PendingCount reports the open task queue depth.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, task := range e.tasks {
		if task.State == types.TaskPending {
			n++
		}
	}
	return n
}

// Stats summarizes the task board.
func (e *Engine) Stats() types.NetworkStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return types.NetworkStats{
		TotalTasks:         len(e.tasks),
		CompletedTasks:     e.completed,
		ExpiredTasks:       e.expired,
		ActiveContributors: len(e.scores),
		NetworkDifficulty:  e.networkDifficulty,
	}
}

// bumpScore raises the contributor's multiplier by 0.1 per difficulty point,
// capped at 2.0x, and returns the score that applies to this acceptance.
// Callers hold the engine lock.
func (e *Engine) bumpScore(contributor types.Address, difficulty uint8) int64 {
	score, ok := e.scores[contributor]
	if !ok {
		score = initialScore
	}
	applied := score

	score += int64(difficulty) * 10
	if score > maxScore {
		score = maxScore
	}
	e.scores[contributor] = score
	return applied
}

// difficultyFor derives a task's difficulty from its type and the current
// network difficulty. Callers hold the engine lock.
func (e *Engine) difficultyFor(taskType types.TaskType) uint8 {
	base := 3
	switch taskType {
	case types.TaskOracle:
		base = 2
	case types.TaskNLP:
		base = 4
	case types.TaskImageClassification, types.TaskTimeSeries, types.TaskNetworkOptimization:
		base = 3
	}

	d := base + int(e.networkDifficulty) - types.MinTaskDifficulty
	if d < types.MinTaskDifficulty {
		d = types.MinTaskDifficulty
	}
	if d > types.MaxTaskDifficulty {
		d = types.MaxTaskDifficulty
	}
	return uint8(d)
}

// adjustDifficulty nudges the network difficulty toward a ~75% completion
// rate. Callers hold the engine lock.
func (e *Engine) adjustDifficulty() {
	finished := e.completed + e.expired
	if finished == 0 {
		return
	}
	rate := float64(e.completed) / float64(finished)
	if rate > 0.8 && e.networkDifficulty < types.MaxTaskDifficulty {
		e.networkDifficulty++
	} else if rate < 0.5 && e.networkDifficulty > types.MinTaskDifficulty {
		e.networkDifficulty--
	}
}
