// Package channel implements the per-pair secure-channel mesh: an
// authenticated Noise "XK" handshake establishing an ephemeral channel,
// XChaCha20-Poly1305 AEAD transport, and a key-committing HMAC-SHA256 over
// every ciphertext (defense against forced-key-reveal "invisible salamander"
// attacks: a later key reveal binds to exactly one ciphertext).
package channel

import "errors"

var (
	// ErrHandshakeIncomplete is returned by tpdkg's share delivery when a
	// pair has no established secure channel yet.
	ErrHandshakeIncomplete = errors.New("channel: handshake not yet complete")

	// ErrHandshakeFailed is returned in place of any error from the
	// underlying Noise state machine; the original error is not wrapped and
	// no HandshakeErrorCode is attached.
	ErrHandshakeFailed = errors.New("channel: handshake failed")

	// ErrDecryptionFailed is returned when AEAD decryption fails (bad tag or
	// tampered ciphertext).
	ErrDecryptionFailed = errors.New("channel: AEAD decryption failed")

	// ErrCommittingMACMismatch is returned when the key-committing HMAC does
	// not match the ciphertext.
	ErrCommittingMACMismatch = errors.New("channel: key-committing MAC mismatch")

	// ErrUnexpectedMessageSize is returned when a handshake or transport
	// message is not the expected fixed size.
	ErrUnexpectedMessageSize = errors.New("channel: unexpected message size")
)

// HandshakeErrorCode maps a handshake-layer failure to one of the 1..6
// framing-error-shaped codes referenced by spec §4.F ("failures in the
// handshake itself map to error codes 1..6").
type HandshakeErrorCode int

const (
	HandshakeOK                HandshakeErrorCode = 0
	HandshakeBadMessageSize    HandshakeErrorCode = 1
	HandshakeDecryptFailed     HandshakeErrorCode = 2
	HandshakeUnexpectedStatic  HandshakeErrorCode = 3
	HandshakeOutOfOrder        HandshakeErrorCode = 4
	HandshakeTimedOut          HandshakeErrorCode = 5
	HandshakeInternalError     HandshakeErrorCode = 6
)
