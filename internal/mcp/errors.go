// Package mcp exposes the question-answering service as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeRetrievalUnavailable indicates the regulation index is not loaded.
	ErrCodeRetrievalUnavailable = -32001

	// ErrCodeUpstream indicates an embedding or generation backend failed.
	ErrCodeUpstream = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	var se *saeserrors.SAESError
	if errors.As(err, &se) {
		return mapSAESError(se)
	}
	return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapSAESError(se *saeserrors.SAESError) *MCPError {
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s %s", se.Message, se.Suggestion)
	}

	switch {
	case se.Code == saeserrors.ErrCodeRetrievalFailed,
		se.Code == saeserrors.ErrCodeCorpusMissing,
		se.Code == saeserrors.ErrCodeIndexMissing,
		se.Code == saeserrors.ErrCodeCorruptIndex:
		return &MCPError{Code: ErrCodeRetrievalUnavailable, Message: message}
	case se.Code == saeserrors.ErrCodeGenerationTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case se.Category == saeserrors.CategoryUpstream:
		return &MCPError{Code: ErrCodeUpstream, Message: message}
	case se.Category == saeserrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
