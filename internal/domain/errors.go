package domain

import (
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeMissingField ErrorCode = "MISSING_FIELD"

	// Pipeline specific errors
	CodeGenerationFormat ErrorCode = "GENERATION_FORMAT_ERROR"
	CodeLLMService       ErrorCode = "LLM_SERVICE_ERROR"
	CodeInvalidGrouping  ErrorCode = "INVALID_GROUPING"
)

// DomainError represents a domain-specific error with an error code,
// an optional cause and optional structured context.
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithContext attaches a context value and returns the error for chaining.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Helper constructors for common errors

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

// NewGenerationFormatError signals that the model's output could not be
// parsed or validated against the requested shape. Not recoverable at the
// core level; callers surface it unchanged.
func NewGenerationFormatError(message string, cause error) *DomainError {
	return NewError(CodeGenerationFormat, message, cause)
}

// NewLLMServiceError wraps a transport-level failure from the model backend.
func NewLLMServiceError(cause error) *DomainError {
	return NewError(CodeLLMService, "failed to call language model service", cause)
}

// NewInvalidGroupingError reports a grouping result that violates the
/// skill-coverage invariant: every input skill assigned to exactly one module.
func NewInvalidGroupingError(issues []string) *DomainError {
	e := NewError(CodeInvalidGrouping,
		fmt.Sprintf("module grouping violates skill coverage: %s", strings.Join(issues, "; ")), nil)
	return e.WithContext("issues", issues)
}

// NewContentGenerationError aggregates per-skill failures from one module's
// concurrent content generation. Every failed skill is named in the context.
func NewContentGenerationError(moduleName string, failedSkills []string, cause error) *DomainError {
	e := NewError(CodeGenerationFormat,
		fmt.Sprintf("content generation failed for %d skill(s) in module %q", len(failedSkills), moduleName), cause)
	return e.WithContext("module_name", moduleName).WithContext("failed_skills", failedSkills)
}

// ValidationError represents a single request validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation failures for one request
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Message: "is required"}
}

func NewInvalidFieldError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}
