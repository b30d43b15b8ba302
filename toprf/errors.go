// Package toprf implements the threshold oblivious pseudo-random function:
// per-server partial evaluation and the two combiner variants described by
// https://eprint.iacr.org/2017/363 (the "TOPRF" construction).
package toprf

import "errors"

var (
	// ErrNoResponses is returned when ThresholdCombine/ThresholdMult is
	// called with zero responses.
	ErrNoResponses = errors.New("toprf: no responses supplied")

	// ErrDuplicateIndex is returned when two responses carry the same index.
	ErrDuplicateIndex = errors.New("toprf: duplicate response index")
)
