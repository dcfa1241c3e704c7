package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the caller's deadline expires mid-run.
	ErrTimeout = errors.New("resolution timed out")
	// ErrUnsupportedNetwork is wrapped by ValidationError for unknown networks.
	ErrUnsupportedNetwork = errors.New("unsupported network")
)

// ValidationError is a malformed input detected before any remote call.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConnectivityError means the network endpoint could not be reached.
type ConnectivityError struct {
	Network string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("network %s unreachable: %v", e.Network, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// DecodeError means response bytes did not match the expected typed shape.
type DecodeError struct {
	Method string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s result: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DiscoveryError means registry enumeration stopped on an error that is not
// one of the recognized terminal signals.
type DiscoveryError struct {
	Registry string
	Index    int
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("registry %s enumeration failed at index %d: %v", e.Registry, e.Index, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
