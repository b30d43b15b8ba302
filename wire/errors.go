// Package wire implements signed-message framing for the TP-DKG protocol:
// the packed header, payload codecs for msg0/msg8, and the framing-error and
// cheater-code taxonomies.
package wire

import "errors"

// FramingError is a small positive integer identifying which header check
// failed during message validation (spec §4.E / §7, "framing errors 1..6").
type FramingError int

const (
	// NoFramingError indicates validation passed.
	NoFramingError FramingError = 0
	// LenErr is returned when the header's length field does not match the
	// actual buffer size.
	LenErr FramingError = 1
	// TypeErr is returned when the message type does not match the
	// expected step.
	TypeErr FramingError = 2
	// FromErr is returned when the sender id does not match the expected
	// sender.
	FromErr FramingError = 3
	// ToErr is returned when the recipient id is neither self nor
	// broadcast.
	ToErr FramingError = 4
	// ExpiredErr is returned when the timestamp is outside the freshness
	// window or regresses relative to the sender's last accepted timestamp.
	ExpiredErr FramingError = 5
	// SigErr is returned when the signature fails to verify.
	SigErr FramingError = 6
)

func (e FramingError) String() string {
	switch e {
	case NoFramingError:
		return "ok"
	case LenErr:
		return "length mismatch"
	case TypeErr:
		return "unexpected message type"
	case FromErr:
		return "unexpected sender"
	case ToErr:
		return "unexpected recipient"
	case ExpiredErr:
		return "timestamp outside freshness window or regressed"
	case SigErr:
		return "signature verification failed"
	default:
		return "unknown framing error"
	}
}

func (e FramingError) Error() string { return "wire: " + e.String() }

var (
	// ErrBufferTooSmall is returned when a caller-supplied buffer is smaller
	// than the structure being decoded requires.
	ErrBufferTooSmall = errors.New("wire: buffer too small")

	// ErrPayloadTooLarge is returned when a payload would overflow the
	// 4-byte big-endian length field.
	ErrPayloadTooLarge = errors.New("wire: payload too large to frame")

	// ErrUnknownRecipient is returned when a recipient byte is neither a
	// valid peer index, TP (0), nor broadcast (0xff).
	ErrUnknownRecipient = errors.New("wire: unknown recipient code")
)

// CheaterCode is a typed cheater-ledger violation code (spec §7, §4.G step
// 18's adjudication outcomes).
type CheaterCode int

const (
	// CheaterUnexpectedReveal: a key reveal was provided for a pair nobody
	// complained about.
	CheaterUnexpectedReveal CheaterCode = 6
	// CheaterNoReveal: the accused failed to reveal when complained about.
	CheaterNoReveal CheaterCode = 7
	// CheaterMalformedReveal: the revealed parameters were malformed.
	CheaterMalformedReveal CheaterCode = 127
	// CheaterFalseComplaint: re-verification showed the share was valid; the
	// accuser cheated.
	CheaterFalseComplaint CheaterCode = 128
	// CheaterProvenCheat: re-verification confirmed the share was invalid;
	// the accused cheated.
	CheaterProvenCheat CheaterCode = 129
)

// ShareDeliveryCheaterCode embeds a framing-error code rc detected while
// processing a step-8 share-delivery message, per spec §4.E: "16 + rc".
func ShareDeliveryCheaterCode(rc FramingError) CheaterCode {
	return CheaterCode(16 + int(rc))
}

// KeyRevealCheaterCode embeds a framing-error code rc detected while
// processing a key-reveal message, per spec §4.E: "32 + rc".
func KeyRevealCheaterCode(rc FramingError) CheaterCode {
	return CheaterCode(32 + int(rc))
}

func (c CheaterCode) String() string {
	switch {
	case c == CheaterUnexpectedReveal:
		return "unexpected key reveal for uncomplained pair"
	case c == CheaterNoReveal:
		return "accused failed to reveal key when complained about"
	case c == CheaterMalformedReveal:
		return "malformed key reveal parameters"
	case c == CheaterFalseComplaint:
		return "false complaint: revealed share verified correctly"
	case c == CheaterProvenCheat:
		return "proven cheat: revealed share failed verification"
	case c >= 16 && c < 32:
		return "share-delivery framing error: " + FramingError(c-16).String()
	case c >= 32 && c < 48:
		return "key-reveal framing error: " + FramingError(c-32).String()
	default:
		return "unknown cheater code"
	}
}
