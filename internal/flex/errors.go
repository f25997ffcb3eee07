package flex

import (
	"errors"
	"fmt"
)

// Sentinel errors for every failure class the client can surface. Callers
// branch with errors.Is; structured details travel in *ProviderError.
var (
	ErrValidation   = errors.New("flex: validation error")
	ErrToken        = errors.New("flex: token error")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrToken)
	ErrRetryable    = errors.New("flex: retryable error")
	ErrRequest      = errors.New("flex: request error")
	ErrStatement    = errors.New("flex: statement error")
	ErrParse        = errors.New("flex: malformed response")
)

// Phase names the provider endpoint a failure came from.
type Phase string

const (
	PhaseSendRequest  Phase = "SendRequest"
	PhaseGetStatement Phase = "GetStatement"
)

// terminal returns the sentinel used once a phase gives up.
func (p Phase) terminal() error {
	if p == PhaseGetStatement {
		return ErrStatement
	}
	return ErrRequest
}

// ProviderError is a structured failure envelope returned by the Flex Web Service.
type ProviderError struct {
	Phase   Phase
	Code    string
	Message string
	Class   Class
}

func newProviderError(phase Phase, f *Failure) *ProviderError {
	return &ProviderError{
		Phase:   phase,
		Code:    f.Code,
		Message: f.Message,
		Class:   Classify(f.Code).Class,
	}
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Phase, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Phase, e.Code, msg)
}

// Unwrap maps the classification onto the matching sentinel so that
// errors.Is(err, ErrToken) holds for both token classes.
func (e *ProviderError) Unwrap() error {
	switch e.Class {
	case ClassTokenExpired:
		return ErrTokenExpired
	case ClassTokenInvalid:
		return ErrToken
	case ClassRetryable:
		return ErrRetryable
	default:
		return e.Phase.terminal()
	}
}
