package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Pathfinder error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrConflict         ErrorCode = "CONFLICT"          // 409
	ErrJobTerminal      ErrorCode = "JOB_TERMINAL"      // 409
	ErrNoContent        ErrorCode = "NO_CONTENT"        // 422
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED" // 502
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// PathfinderError represents a structured error with code, status, and details.
type PathfinderError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *PathfinderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PathfinderError {
	return &PathfinderError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing entity of the given kind.
func NewNotFound(kind, id string) *PathfinderError {
	return &PathfinderError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewConflict creates a 409 error for concurrent modification.
func NewConflict(msg string) *PathfinderError {
	return &PathfinderError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewVersionConflict creates a 409 error when a realm moved past the expected version.
func NewVersionConflict(realmID string, expected int) *PathfinderError {
	return &PathfinderError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("realm %s changed during synthesis (expected version %d)", realmID, expected),
		Details: map[string]any{"realm_id": realmID, "expected_version": expected},
	}
}

// NewJobTerminal creates a 409 error for operations on finished jobs.
func NewJobTerminal(jobID, status string) *PathfinderError {
	return &PathfinderError{
		Code:    ErrJobTerminal,
		Status:  409,
		Message: fmt.Sprintf("cannot cancel job in %s state", status),
		Details: map[string]any{"job_id": jobID, "status": status},
	}
}

// NewNoContent creates a 422 error when a realm has nothing to synthesize from.
func NewNoContent(realmID string) *PathfinderError {
	return &PathfinderError{
		Code:    ErrNoContent,
		Status:  422,
		Message: "no content sources found for full synthesis",
		Details: map[string]any{"realm_id": realmID},
	}
}

// NewGenerationFailed creates a 502 error for language model failures that cannot be contained.
func NewGenerationFailed(err error) *PathfinderError {
	msg := "generation failed"
	if err != nil {
		msg = fmt.Sprintf("generation failed: %v", err)
	}
	return &PathfinderError{
		Code:    ErrGenerationFailed,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *PathfinderError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &PathfinderError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err (or anything it wraps) is a PathfinderError with the given code.
func Is(err error, code ErrorCode) bool {
	var pErr *PathfinderError
	if stderrors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// As extracts a PathfinderError from err, wrapping unknown errors as INTERNAL.
func As(err error) *PathfinderError {
	if err == nil {
		return nil
	}
	var pErr *PathfinderError
	if stderrors.As(err, &pErr) {
		return pErr
	}
	return NewInternal(err)
}

// Payload renders err as the {"error": {...}} body returned to clients.
// Internal errors are reported generically so file paths and SQL never leak.
func Payload(err error) map[string]any {
	pErr := As(err)
	if pErr == nil || pErr.Code == ErrInternal {
		return map[string]any{"error": map[string]any{
			"code":    ErrInternal,
			"message": "an internal error occurred",
			"status":  500,
		}}
	}
	obj := map[string]any{
		"code":    pErr.Code,
		"message": pErr.Message,
		"status":  pErr.Status,
	}
	if pErr.Details != nil {
		obj["details"] = pErr.Details
	}
	return map[string]any{"error": obj}
}
