// Package core provides configuration, error types and logging shared by the
// smartchat packages.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageOperation indicates that loading or saving the conversation store failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates that a chat-completion call failed.
	ErrLLMOperation = errors.New("llm operation failed")

	// ErrUserNotFound indicates that no profile exists for a user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// AgentError wraps errors with operation context.
//
// Example:
//
//	err := &AgentError{
//	    Op:  "Chat",
//	    Err: ErrLLMOperation,
//	}
//	// Error() returns: "smartchat: Chat: llm operation failed"
type AgentError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "smartchat: <Op>: <Err>"
func (e *AgentError) Error() string {
	return fmt.Sprintf("smartchat: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewAgentError("AppendExchange", err)
//	}
func NewAgentError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AgentError{
		Op:  op,
		Err: err,
	}
}
