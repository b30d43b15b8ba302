// Package ristretto wraps Ristretto255 scalar and point arithmetic behind
// typed, constant-time-aware values used throughout the rest of this module.
package ristretto

import "errors"

var (
	// ErrInvalidScalarEncoding is returned when a 32-byte buffer is not a
	// canonical Ristretto255 scalar encoding.
	ErrInvalidScalarEncoding = errors.New("ristretto: invalid scalar encoding")

	// ErrInvalidPointEncoding is returned when a 32-byte buffer does not
	// decode to a valid Ristretto255 group element.
	ErrInvalidPointEncoding = errors.New("ristretto: invalid point encoding")

	// ErrZeroScalar is returned when an operation requires a nonzero scalar
	// (e.g. inversion) but was given zero.
	ErrZeroScalar = errors.New("ristretto: scalar is zero")

	// ErrIdentityResult is returned when a scalar multiplication that must
	// not yield the identity element did so anyway.
	ErrIdentityResult = errors.New("ristretto: scalar multiplication produced identity element")

	// ErrLengthMismatch is returned when a byte slice handed to Set/Unmarshal
	// is not exactly 32 bytes.
	ErrLengthMismatch = errors.New("ristretto: expected exactly 32 bytes")
)
