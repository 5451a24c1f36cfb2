package routing

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("route not found")
	ErrDuplicateRoutePath  = errors.New("duplicate route path")
	ErrNoAllowedRoutePath  = errors.New("route path not allowed")
	ErrInvalidHandler      = errors.New("invalid handler")
	ErrInvalidMiddleware   = errors.New("invalid middleware")
	ErrInvalidResponseType = errors.New("invalid response type")
	ErrPipeline            = errors.New("pipeline failure")
	ErrAlreadyInitialized  = errors.New("route table already initialized")
	ErrNotInitialized      = errors.New("route table not initialized")
	ErrBuilderConsumed     = errors.New("index builder already made")
)

// ValidationError reports an unresolvable or incapable reference. Kind is
// ErrInvalidHandler or ErrInvalidMiddleware.
type ValidationError struct {
	Kind   error
	Ref    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s `%s`: %s", e.Kind, e.Ref, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Stage names the pipeline step a participant failed in.
type Stage string

const (
	StageBefore    Stage = "before"
	StageHandler   Stage = "handler"
	StageNormalize Stage = "normalize"
	StageAfter     Stage = "after"
)

// PipelineError wraps a failure raised by a middleware, the handler or the
// normalizer with the identity of the participant.
type PipelineError struct {
	Stage       Stage
	Participant string
	Err         error
}

func (e *PipelineError) Error() string {
	switch e.Stage {
	case StageBefore:
		return fmt.Sprintf("middleware `%s->before()` failed: %v", e.Participant, e.Err)
	case StageAfter:
		return fmt.Sprintf("middleware `%s->after()` failed: %v", e.Participant, e.Err)
	case StageNormalize:
		return fmt.Sprintf("invalid handler response `%s`: %v", e.Participant, e.Err)
	default:
		return fmt.Sprintf("handler `%s` failed: %v", e.Participant, e.Err)
	}
}

// Unwrap exposes both the category and the original cause to errors.Is.
func (e *PipelineError) Unwrap() []error {
	kind := ErrPipeline
	if e.Stage == StageNormalize {
		kind = ErrInvalidResponseType
	}
	return []error{kind, e.Err}
}

// ResponseTypeError is returned when the handler output is not a response
// after normalization.
type ResponseTypeError struct {
	Handler    string
	Type       string
	Normalized bool
}

func (e *ResponseTypeError) Error() string {
	hint := "no response normalizer was supplied; return *httpx.Response or pass one"
	if e.Normalized {
		hint = "the response normalizer could not convert it"
	}
	return fmt.Sprintf("handler `%s` must return a *httpx.Response but returned `%s`: %s", e.Handler, e.Type, hint)
}

func (e *ResponseTypeError) Unwrap() error { return ErrInvalidResponseType }

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
