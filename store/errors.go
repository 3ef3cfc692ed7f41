// Package store declares the storage-backend contract shared by the hot
// and cold tiers of the cache adapter, and the controllers that scan them.
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the abstract error kinds every driver must map its
// backend-specific failures onto.
type Kind int

const (
	// KindNotExists - the bucket, object, metadata entry, or multipart
	// upload named by the call does not exist.
	KindNotExists Kind = iota
	// KindExists - the bucket or object named by the call already exists.
	KindExists
	// KindNameTooLong - a bucket or object name exceeds the driver's
	// MaxBucketNameSize/MaxObjectNameSize.
	KindNameTooLong
	// KindInvalidArgs - malformed arguments (e.g. negative offset).
	KindInvalidArgs
	// KindPermissions - the caller is not allowed to perform the call.
	KindPermissions
	// KindStore - the backend itself failed (network, disk, ...).
	KindStore
	// KindFailure - some other recoverable failure not covered above.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotExists:
		return "not-exists"
	case KindExists:
		return "exists"
	case KindNameTooLong:
		return "name-too-long"
	case KindInvalidArgs:
		return "invalid-args"
	case KindPermissions:
		return "permissions"
	case KindStore:
		return "store"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Error wraps a driver failure with its abstract Kind so that callers can
// branch on Kind() without depending on a specific driver's error types.
type Error struct {
	Kind Kind
	Op   string // the driver call that failed, e.g. "read_object"
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.err }

// NewError builds an *Error of the given Kind, optionally wrapping a
// lower-level cause with github.com/pkg/errors for additional context.
func NewError(kind Kind, op string, cause error) error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Op: op, err: cause}
}

// Is reports whether err is a *Error of the given Kind, unwrapping as
// needed (errors.Is-compatible).
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Convenience constructors used pervasively by drivers and callers.
func ErrNotExists(op string) error   { return NewError(KindNotExists, op, nil) }
func ErrExists(op string) error      { return NewError(KindExists, op, nil) }
func ErrNameTooLong(op string) error { return NewError(KindNameTooLong, op, nil) }
func ErrInvalidArgs(op, msg string) error {
	return NewError(KindInvalidArgs, op, errors.New(msg))
}
func ErrPermissions(op string) error       { return NewError(KindPermissions, op, nil) }
func ErrStore(op string, cause error) error   { return NewError(KindStore, op, cause) }
func ErrFailure(op string, cause error) error { return NewError(KindFailure, op, cause) }
