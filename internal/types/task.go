package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskType tags a work unit with the shape of its payload and expected
// result. Each type has a concrete payload struct below; raw payload bytes
// only exist at the serialization boundary.
type TaskType string

const (
	TaskImageClassification TaskType = "image_classification"
	TaskNLP                 TaskType = "nlp"
	TaskTimeSeries          TaskType = "time_series"
	TaskOracle              TaskType = "oracle"
	TaskNetworkOptimization TaskType = "network_optimization"
)

// OraclePayload asks a contributor to produce a signed data-feed reading.
type OraclePayload struct {
	Feed string `json:"feed"`
}

// ImageClassificationPayload carries a content-addressed image reference and
// the candidate label set.
type ImageClassificationPayload struct {
	ImageHash string   `json:"image_hash"`
	Labels    []string `json:"labels"`
}

// NLPPayload carries text for language-model inference.
type NLPPayload struct {
	Text string `json:"text"`
}

// TimeSeriesPayload carries a series to forecast.
type TimeSeriesPayload struct {
	Series  []int64 `json:"series"`
	Horizon int     `json:"horizon"`
}

// NetworkOptimizationPayload asks for a routing-policy suggestion over the
// node's current counters.
type NetworkOptimizationPayload struct {
	Hint string `json:"hint"`
}

// DecodePayload decodes raw payload bytes into the typed shape for the given
// task type.
func DecodePayload(t TaskType, raw []byte) (interface{}, error) {
	var dst interface{}
	switch t {
	case TaskImageClassification:
		dst = &ImageClassificationPayload{}
	case TaskNLP:
		dst = &NLPPayload{}
	case TaskTimeSeries:
		dst = &TimeSeriesPayload{}
	case TaskOracle:
		dst = &OraclePayload{}
	case TaskNetworkOptimization:
		dst = &NetworkOptimizationPayload{}
	default:
		return nil, InvalidInput("unknown task type %q", t)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, InvalidInput("malformed %s payload: %v", t, err)
	}
	return dst, nil
}

// TaskState is the lifecycle state of a work unit. Pending and Assigned are
// live; Completed and Expired are terminal.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskAssigned  TaskState = "assigned"
	TaskCompleted TaskState = "completed"
	TaskExpired   TaskState = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskExpired
}

// MLTask is a unit of ML computation offered for reward. Tasks are owned
// exclusively by the task engine; everything handed outward is a copy.
type MLTask struct {
	ID         uuid.UUID       `json:"id"`
	Type       TaskType        `json:"task_type"`
	Payload    json.RawMessage `json:"payload"`
	Difficulty uint8           `json:"difficulty"`
	Reward     Amount          `json:"reward"`
	CreatedAt  time.Time       `json:"created_at"`
	Deadline   time.Time       `json:"deadline"`
	AssignedTo *Address        `json:"assigned_to,omitempty"`
	State      TaskState       `json:"state"`
	Result     []byte          `json:"result,omitempty"`
}

// Expired reports whether the deadline has passed at the given instant.
func (t *MLTask) Expired(now time.Time) bool {
	return now.After(t.Deadline)
}

// Clone returns an independent copy safe to hand outside the engine.
func (t *MLTask) Clone() *MLTask {
	cp := *t
	cp.Payload = append(json.RawMessage(nil), t.Payload...)
	cp.Result = append([]byte(nil), t.Result...)
	if t.AssignedTo != nil {
		addr := *t.AssignedTo
		cp.AssignedTo = &addr
	}
	return &cp
}

// WorkResult is a contributor's answer to a work unit. Only the first
// accepted result for a task id is ever honored.
type WorkResult struct {
	TaskID          uuid.UUID `json:"task_id"`
	Contributor     Address   `json:"contributor"`
	Result          []byte    `json:"result"`
	Proof           []byte    `json:"proof"`
	ComputationSecs uint64    `json:"computation_time"`
}

// NetworkStats summarizes the task board for operators and peers.
type NetworkStats struct {
	TotalTasks         int    `json:"total_tasks"`
	CompletedTasks     int    `json:"completed_tasks"`
	ExpiredTasks       int    `json:"expired_tasks"`
	ActiveContributors int    `json:"active_contributors"`
	NetworkDifficulty  uint8  `json:"network_difficulty"`
	RewardsMinted      Amount `json:"rewards_minted"`
}
