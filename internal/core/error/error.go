package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "memory store unavailable"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "memory not found"
	// PostgresErrorMessage describes database failures.
	PostgresErrorMessage = "market data store unavailable"
	// PostgresQueryMessage describes a statement the database refused.
	PostgresQueryMessage = "market data query failed"
	// TickerUnresolvedMessage is shown when no ticker could be found in the conversation.
	TickerUnresolvedMessage = "could not identify a ticker"
	// QueryRejectedMessage is shown when a generated query fails local validation.
	QueryRejectedMessage = "generated query was rejected"
	// CompletionErrorMessage describes text-completion failures.
	CompletionErrorMessage = "language model unavailable"
	// IterationCapMessage is used when a turn dispatches more often than allowed.
	IterationCapMessage = "too many dispatch steps"
	// TimeoutMessage is shown when an external call ran out of time.
	TimeoutMessage = "request timed out"
)

// Sentinel kinds. Match them with errors.Is.
var (
	ErrSpecialist       = errors.New("specialist failure")
	ErrTickerUnresolved = errors.New("ticker unresolved")
	ErrQueryRejected    = errors.New("query rejected")
	ErrCompletion       = errors.New("completion failure")
	ErrIterationCap     = errors.New("iteration cap exceeded")
)

// AppError wraps an underlying error with an HTTP-style status and a safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// TickerUnresolved reports that a specialist needed a ticker and none was resolved.
func TickerUnresolved() *AppError {
	return New(ErrTickerUnresolved, http.StatusUnprocessableEntity, TickerUnresolvedMessage)
}

// QueryRejected wraps a local validation failure of a generated query.
func QueryRejected(reason string) *AppError {
	return New(fmt.Errorf("%w: %s", ErrQueryRejected, reason), http.StatusUnprocessableEntity, QueryRejectedMessage)
}

// WrapCompletion wraps a text-completion collaborator failure.
func WrapCompletion(err error) error {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("%w: %w", ErrCompletion, err), http.StatusBadGateway, CompletionErrorMessage)
}

// IterationCap reports that the dispatch loop hit its step limit.
func IterationCap(limit int) *AppError {
	return New(fmt.Errorf("%w after %d dispatches", ErrIterationCap, limit), http.StatusInternalServerError, IterationCapMessage)
}

// SafeMessage returns the message that may be shown to a user for err.
// Errors that are not AppErrors collapse to TimeoutMessage for deadlines
// and SystemErrorMessage otherwise.
func SafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutMessage
	}
	return SystemErrorMessage
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}
