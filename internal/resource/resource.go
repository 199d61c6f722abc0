// Package resource models the lifecycle of one asynchronous read as a
// tagged state: Loading, Success or Error.
package resource

import (
	"fmt"
	"net/http"
	"reflect"
)

// State is the active variant of a Resource
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind classifies why a read failed
type Kind int

const (
	Unknown Kind = iota
	NetworkUnavailable
	Timeout
	HTTPStatus
	Decode
	LocalStoreFailure
)

func (k Kind) String() string {
	switch k {
	case NetworkUnavailable:
		return "network_unavailable"
	case Timeout:
		return "timeout"
	case HTTPStatus:
		return "http_status"
	case Decode:
		return "decode"
	case LocalStoreFailure:
		return "local_store_failure"
	default:
		return "unknown"
	}
}

// Failure is the error carried by an Error resource. Code is only set for
// HTTPStatus failures.
type Failure struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	label := f.Kind.String()
	if f.Kind == HTTPStatus {
		label = fmt.Sprintf("%s %d", label, f.Code)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", label, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", label, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether repeating the same request can succeed without
// a code change.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case NetworkUnavailable, Timeout, LocalStoreFailure:
		return true
	case HTTPStatus:
		return f.Code == http.StatusTooManyRequests || f.Code >= 500
	default:
		return false
	}
}

// Same compares failures by classification only; the message is informational.
func (f *Failure) Same(other *Failure) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Kind == other.Kind && f.Code == other.Code
}

// NewFailure builds a failure of the given kind
func NewFailure(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// Resource is the state of one asynchronous read. The zero value is Loading.
type Resource[T any] struct {
	state   State
	data    T
	failure *Failure
	stale   bool
}

// Loading returns a resource in the Loading state
func Loading[T any]() Resource[T] {
	return Resource[T]{state: StateLoading}
}

// Success returns a resource holding data
func Success[T any](data T) Resource[T] {
	return Resource[T]{state: StateSuccess, data: data}
}

// Stale returns a Success holding cached data that is being revalidated
func Stale[T any](data T) Resource[T] {
	return Resource[T]{state: StateSuccess, data: data, stale: true}
}

// Fail returns a resource in the Error state. A nil failure is recorded as
// an Unknown failure.
func Fail[T any](failure *Failure) Resource[T] {
	if failure == nil {
		failure = NewFailure(Unknown, "unknown failure", nil)
	}
	return Resource[T]{state: StateError, failure: failure}
}

// State returns the active variant
func (r Resource[T]) State() State {
	return r.state
}

// IsLoading reports whether the resource is Loading
func (r Resource[T]) IsLoading() bool {
	return r.state == StateLoading
}

// IsTerminal reports whether the resource is Success or Error
func (r Resource[T]) IsTerminal() bool {
	return r.state == StateSuccess || r.state == StateError
}

// Data returns the payload and whether the resource is a Success
func (r Resource[T]) Data() (T, bool) {
	return r.data, r.state == StateSuccess
}

// IsStale reports whether a Success holds cached data awaiting a fresh value
func (r Resource[T]) IsStale() bool {
	return r.state == StateSuccess && r.stale
}

// IsSettled reports whether the resource is terminal and not stale
func (r Resource[T]) IsSettled() bool {
	return r.IsTerminal() && !r.IsStale()
}

// Failure returns the failure of an Error resource, nil otherwise
func (r Resource[T]) Failure() *Failure {
	if r.state != StateError {
		return nil
	}
	return r.failure
}

// Equal reports whether both resources are in the same state with equal
// payloads (Success) or the same failure classification (Error).
func (r Resource[T]) Equal(other Resource[T]) bool {
	if r.state != other.state {
		return false
	}
	switch r.state {
	case StateSuccess:
		return r.stale == other.stale && reflect.DeepEqual(r.data, other.data)
	case StateError:
		return r.failure.Same(other.failure)
	default:
		return true
	}
}

func (r Resource[T]) String() string {
	switch r.state {
	case StateSuccess:
		if r.stale {
			return fmt.Sprintf("Stale(%v)", r.data)
		}
		return fmt.Sprintf("Success(%v)", r.data)
	case StateError:
		return fmt.Sprintf("Error(%v)", r.failure)
	default:
		return "Loading"
	}
}

// Map transforms the payload of a Success; Loading and Error pass through.
func Map[T, U any](r Resource[T], f func(T) U) Resource[U] {
	switch r.state {
	case StateSuccess:
		return Resource[U]{state: StateSuccess, data: f(r.data), stale: r.stale}
	case StateError:
		return Fail[U](r.failure)
	default:
		return Loading[U]()
	}
}

// Fold handles every variant of r and returns the result of the matching
// branch.
func Fold[T, R any](r Resource[T], onLoading func() R, onSuccess func(T) R, onError func(*Failure) R) R {
	switch r.state {
	case StateSuccess:
		return onSuccess(r.data)
	case StateError:
		return onError(r.failure)
	default:
		return onLoading()
	}
}
