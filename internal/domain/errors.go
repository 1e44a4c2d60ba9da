package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeInvalidOperation     = "INVALID_OPERATION"
	ErrCodeProviderFailure      = "PROVIDER_FAILURE"
	ErrCodeConfigurationMissing = "CONFIGURATION_MISSING"
	ErrCodeIndexAbsent          = "INDEX_ABSENT"
	ErrCodeLimitReached         = "LIMIT_REACHED"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyMessage         = NewDomainError(ErrCodeValidation, "message content cannot be empty")
	ErrMessageTooLong       = NewDomainError(ErrCodeValidation, "message too long (max 2000 characters)")
)

// Not found errors
var (
	ErrWorkspaceNotFound    = NewDomainError(ErrCodeNotFound, "workspace not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
)

// Authorization errors
var (
	ErrInvalidChatToken   = NewDomainError(ErrCodeUnauthorized, "invalid chat token")
	ErrInvalidAccessToken = NewDomainError(ErrCodeUnauthorized, "invalid access token")
)

// Configuration errors
var (
	ErrNoProviderKey   = NewDomainError(ErrCodeConfigurationMissing, "no provider API key configured")
	ErrNoKnowledgeText = NewDomainError(ErrCodeConfigurationMissing, "no knowledge content configured")
)

// Operation errors
var (
	ErrMessageLimitReached = NewDomainError(ErrCodeLimitReached, "message limit reached")
	ErrIndexAbsent         = NewDomainError(ErrCodeIndexAbsent, "no knowledge index built for workspace")
)
