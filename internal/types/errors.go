package types

import (
	"errors"
	"fmt"
)

// ErrKind classifies node errors so callers can decide between retrying,
// rejecting and surfacing. Validation kinds (InvalidTask, InvalidSignature,
// InvalidAddress, InsufficientBalance, InvalidInput) are recoverable and never
// leave partial state behind. Storage errors are fatal for the current
// operation only; the node keeps serving.
type ErrKind int

const (
	KindNetwork ErrKind = iota + 1
	KindConsensus
	KindTransaction
	KindStorage
	KindInvalidTask
	KindInvalidSignature
	KindInvalidAddress
	KindInsufficientBalance
	KindInvalidInput
)

func (k ErrKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindConsensus:
		return "consensus"
	case KindTransaction:
		return "transaction"
	case KindStorage:
		return "storage"
	case KindInvalidTask:
		return "invalid task"
	case KindInvalidSignature:
		return "invalid signature"
	case KindInvalidAddress:
		return "invalid address"
	case KindInsufficientBalance:
		return "insufficient balance"
	case KindInvalidInput:
		return "invalid input"
	}
	return "unknown"
}

// NodeError is the concrete error type carried across component boundaries.
// Two NodeErrors match under errors.Is when their kinds match, so the
// sentinel values below work with wrapped and detailed instances alike.
type NodeError struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *NodeError) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *NodeError) Unwrap() error { return e.Err }

// Is matches on kind so errors.Is(err, ErrInvalidTask) holds for any
// invalid-task error regardless of its message.
func (e *NodeError) Is(target error) bool {
	t, ok := target.(*NodeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidTask         = &NodeError{Kind: KindInvalidTask}
	ErrInvalidSignature    = &NodeError{Kind: KindInvalidSignature}
	ErrInvalidAddress      = &NodeError{Kind: KindInvalidAddress}
	ErrInsufficientBalance = &NodeError{Kind: KindInsufficientBalance}
)

// NetworkError wraps a transient peer I/O failure.
func NetworkError(format string, args ...interface{}) error {
	return &NodeError{Kind: KindNetwork, Msg: fmt.Sprintf(format, args...)}
}

// ConsensusError reports a task/validation policy violation.
func ConsensusError(format string, args ...interface{}) error {
	return &NodeError{Kind: KindConsensus, Msg: fmt.Sprintf(format, args...)}
}

// TransactionError reports a malformed or unaffordable transfer.
func TransactionError(format string, args ...interface{}) error {
	return &NodeError{Kind: KindTransaction, Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps a persistence failure. The operation fails; the node
// keeps running.
func StorageError(err error) error {
	return &NodeError{Kind: KindStorage, Err: err}
}

// InvalidInput reports a generic validation failure.
func InvalidInput(format string, args ...interface{}) error {
	return &NodeError{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from any error, or zero when the error is not a
// NodeError.
func KindOf(err error) ErrKind {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return 0
}
