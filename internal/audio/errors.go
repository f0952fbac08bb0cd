package audio

import (
	"errors"
	"fmt"

	"github.com/roach88/earshot/internal/studio"
)

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// ErrCodeNotReady indicates an operation ran before the session was ready.
	ErrCodeNotReady ErrorCode = "NOT_READY"

	// ErrCodeEngineCall indicates the engine returned a non-OK result.
	ErrCodeEngineCall ErrorCode = "ENGINE_CALL_FAILED"

	// ErrCodeValidation indicates malformed input caught before any engine call.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeMissingMasterBank indicates no loaded bank was the master bank.
	ErrCodeMissingMasterBank ErrorCode = "MISSING_MASTER_BANK"

	// ErrCodeDuplicateMasterBank indicates the master bank was requested twice.
	ErrCodeDuplicateMasterBank ErrorCode = "DUPLICATE_MASTER_BANK"

	// ErrCodeEventCountMismatch indicates the master bank's event list
	// disagreed with its reported count.
	ErrCodeEventCountMismatch ErrorCode = "EVENT_COUNT_MISMATCH"

	// ErrCodeUnknownPlaybackState indicates a raw playback value outside the
	// known set.
	ErrCodeUnknownPlaybackState ErrorCode = "UNKNOWN_PLAYBACK_STATE"

	// ErrCodeTruncatedPath indicates an event path filled the query buffer.
	ErrCodeTruncatedPath ErrorCode = "TRUNCATED_PATH"

	// ErrCodeCallbackOrder indicates the bring-up capability delivered
	// lifecycle callbacks out of order.
	ErrCodeCallbackOrder ErrorCode = "CALLBACK_ORDER"
)

var (
	// ErrInstanceReleased is wrapped by the ValidationError returned for any
	// operation on a released EventInstance.
	ErrInstanceReleased = errors.New("event instance already released")

	// ErrNilHandle is wrapped by the ValidationError returned when a wrapper
	// is built around a nil engine handle.
	ErrNilHandle = errors.New("nil engine handle")
)

// NotReadyError is returned for any operation attempted outside PhaseReady.
// It is recoverable; callers typically retry on the next frame.
type NotReadyError struct {
	Op    string
	Phase Phase
}

// Error implements the error interface.
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: %s (op=%s, phase=%s)", ErrCodeNotReady, "audio session not ready", e.Op, e.Phase)
}

// EngineCallError wraps a non-OK engine result. It is never retried here.
type EngineCallError struct {
	Op     string
	Target string
	Result studio.Result
}

// Error implements the error interface.
func (e *EngineCallError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s returned %s (target=%s)", ErrCodeEngineCall, e.Op, e.Result, e.Target)
	}
	return fmt.Sprintf("%s: %s returned %s", ErrCodeEngineCall, e.Op, e.Result)
}

// ValidationError reports caller input rejected before reaching the engine.
type ValidationError struct {
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s: %s (op=%s)", ErrCodeValidation, msg, e.Op)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ConsistencyError reports a broken contract between the session layer and
// the engine. These are fatal; nothing attempts to degrade gracefully.
type ConsistencyError struct {
	Code    ErrorCode
	Op      string
	Message string
	Details map[string]string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotReady reports whether err is a NotReadyError.
func IsNotReady(err error) bool {
	var ne *NotReadyError
	return errors.As(err, &ne)
}

// IsEngineCall reports whether err is an EngineCallError.
func IsEngineCall(err error) bool {
	var ee *EngineCallError
	return errors.As(err, &ee)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConsistency reports whether err is a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// CodeOf returns the ErrorCode carried by err, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var (
		ne *NotReadyError
		ee *EngineCallError
		ve *ValidationError
		ce *ConsistencyError
	)
	switch {
	case errors.As(err, &ce):
		return ce.Code
	case errors.As(err, &ne):
		return ErrCodeNotReady
	case errors.As(err, &ee):
		return ErrCodeEngineCall
	case errors.As(err, &ve):
		return ErrCodeValidation
	}
	return ""
}

func newMissingMasterBankError(requested []string) *ConsistencyError {
	return &ConsistencyError{
		Code:    ErrCodeMissingMasterBank,
		Op:      "banks.load",
		Message: fmt.Sprintf("no %s among requested banks %v", MasterBankName, requested),
	}
}

func newEventCountMismatchError(reported, listed int) *ConsistencyError {
	return &ConsistencyError{
		Code:    ErrCodeEventCountMismatch,
		Op:      "bank.event_list",
		Message: fmt.Sprintf("master bank reported %d events but listed %d", reported, listed),
		Details: map[string]string{
			"reported": fmt.Sprintf("%d", reported),
			"listed":   fmt.Sprintf("%d", listed),
		},
	}
}
