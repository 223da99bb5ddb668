// Package compute defines the pluggable ML computation capability. The node
// core never runs numerical inference itself; it delegates to a Capability
// for producing results and for verifying submitted proofs. The reference
// implementation here is deterministic and dependency-free so that multiple
// nodes and tests agree on what a valid proof looks like; production
// deployments swap in a real backend behind the same interface.
package compute

import (
	"bytes"
	"context"
	"crypto/sha256"
	"time"

	"paradigm.network/pard/internal/types"
)

// Capability is the pluggable compute-and-verify interface.
type Capability interface {
	// Compute produces a result and proof for the task. It honors ctx
	// cancellation; long-running backends must check it.
	Compute(ctx context.Context, task *types.MLTask) (*types.WorkResult, error)
	// Verify checks a submitted result against the task. It must be cheap
	// relative to Compute and must not mutate the task.
	Verify(task *types.MLTask, result *types.WorkResult) bool
}

// HashProof is the reference capability. The "computation" is a digest of
// the task payload and the proof binds payload and result together, so any
// party holding the task can verify a submission without redoing the work
// distribution.
type HashProof struct{}

func (HashProof) Compute(ctx context.Context, task *types.MLTask) (*types.WorkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	result := digest(task.Payload)
	res := &types.WorkResult{
		TaskID:          task.ID,
		Result:          result,
		Proof:           Proof(task, result),
		ComputationSecs: uint64(time.Since(start).Seconds()),
	}
	if task.AssignedTo != nil {
		res.Contributor = *task.AssignedTo
	}
	return res, nil
}

func (HashProof) Verify(task *types.MLTask, result *types.WorkResult) bool {
	if len(result.Result) == 0 || len(result.Proof) == 0 {
		return false
	}
	return bytes.Equal(result.Proof, Proof(task, result.Result))
}

// Proof derives the canonical proof for a task/result pair: a digest over
// the task payload followed by the result bytes.
func Proof(task *types.MLTask, result []byte) []byte {
	h := sha256.New()
	h.Write(task.Payload)
	h.Write(result)
	return h.Sum(nil)
}

func digest(payload []byte) []byte {
	sum := sha256.Sum256(payload)
	return sum[:]
}
