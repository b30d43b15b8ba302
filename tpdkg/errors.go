// Package tpdkg implements the Trusted-Party-mediated distributed key
// generation state machine: TPState drives n peers through the protocol,
// broadcasting and judging complaints (component G); PeerState mirrors it
// on each peer (component H); CheaterLedger records violations
// (component I).
package tpdkg

import "errors"

var (
	// ErrInvalidConfig is returned when (n,t) or other configuration is out
	// of range.
	ErrInvalidConfig = errors.New("tpdkg: invalid configuration")

	// ErrOutOfOrderStep is returned when Next is called with input for a
	// step other than the engine's current one.
	ErrOutOfOrderStep = errors.New("tpdkg: out-of-order step transition")

	// ErrAlreadyDone is returned when Next is called after the engine has
	// reached its terminal step.
	ErrAlreadyDone = errors.New("tpdkg: engine already terminated")

	// ErrMissingPeerData is returned when expected per-peer data is absent
	// from a step's input.
	ErrMissingPeerData = errors.New("tpdkg: missing data from one or more peers")

	// ErrTranscriptMismatch is returned when a peer's transcript hash does
	// not match the TP's, at final compare.
	ErrTranscriptMismatch = errors.New("tpdkg: transcript hash mismatch")

	// ErrProtocolFailed is returned when the protocol terminates with a
	// non-empty or overflowed cheater ledger.
	ErrProtocolFailed = errors.New("tpdkg: protocol failed, see cheater ledger")

	// ErrDecodePayload is returned when a step's payload fails to decode.
	ErrDecodePayload = errors.New("tpdkg: failed to decode step payload")
)
