// Package rkverrors defines the error kinds the storage core reports to
// its callers. Each kind is a sentinel so callers can use errors.Is
// regardless of how much context has been wrapped around it with %w.
package rkverrors

import "errors"

var (
	// ErrIoFatal signals an unexpected short read/write, open failure, or
	// header magic/version mismatch encountered during load. The process
	// is expected to abort after a best-effort emergency sync.
	ErrIoFatal = errors.New("rkv: fatal i/o error")

	// ErrKeyNotFound is returned by GET against a missing key, or by
	// SELECT against a missing namespace.
	ErrKeyNotFound = errors.New("rkv: key not found")

	// ErrAuthDenied is returned when a private namespace's password is
	// wrong, short, missing, or a mere prefix of the real password.
	ErrAuthDenied = errors.New("rkv: authentication denied")

	// ErrReadOnly is returned when a write is attempted on a public,
	// password-protected namespace selected without its password.
	ErrReadOnly = errors.New("rkv: namespace selected read-only")

	// ErrQuotaExceeded is returned when a SET would push a namespace's
	// used_bytes over its configured maxsize.
	ErrQuotaExceeded = errors.New("rkv: quota exceeded")

	// ErrProtectedNamespace is returned when NSSET targets the immutable
	// "default" namespace.
	ErrProtectedNamespace = errors.New("rkv: default namespace is protected")

	// ErrInvalidArgument is returned for malformed key lengths, unknown
	// NSSET fields, or out-of-range integers.
	ErrInvalidArgument = errors.New("rkv: invalid argument")
)
