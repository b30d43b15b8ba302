// Package group implements the Lagrange-coefficient engine and Shamir /
// Feldman secret sharing used by the TOPRF and TP-DKG layers, operating on
// Ristretto255 scalars and points from group/ristretto.
package group

import "errors"

var (
	// ErrEmptyIndices is returned when an index set is empty.
	ErrEmptyIndices = errors.New("group: index set is empty")

	// ErrIndexNotInSet is returned when the target index is not a member of
	// the supplied index set.
	ErrIndexNotInSet = errors.New("group: index not present in index set")

	// ErrDuplicateIndex is returned when an index set contains a repeated
	// value.
	ErrDuplicateIndex = errors.New("group: duplicate index")

	// ErrInvalidThreshold is returned when 1 <= t <= n <= 255 is violated.
	ErrInvalidThreshold = errors.New("group: invalid threshold parameters")

	// ErrInsufficientShares is returned when fewer than t shares are
	// supplied for reconstruction.
	ErrInsufficientShares = errors.New("group: insufficient shares for reconstruction")

	// ErrShareVerificationFailed is returned when a share does not match its
	// Feldman commitment vector.
	ErrShareVerificationFailed = errors.New("group: share failed Feldman VSS verification")

	// ErrCommitmentLengthMismatch is returned when a commitment vector's
	// length does not equal the threshold.
	ErrCommitmentLengthMismatch = errors.New("group: commitment vector length does not match threshold")
)
