package wire

import (
	"crypto/ed25519"
	"encoding/binary"
)

// Message is a fully framed protocol message: header plus payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage builds and signs a message. typ is the protocol step/message
// type tag, from/to are participant ids (see RecipientTP/RecipientBroadcast),
// ts is the sender's current timestamp (seconds since epoch), sessionID
// binds the message to a DKG session, and priv signs it.
func NewMessage(typ, from, to byte, ts uint64, sessionID [SessionIDSize]byte, payload []byte, priv ed25519.PrivateKey) (*Message, error) {
	length := uint64(HeaderSize) + uint64(len(payload))
	if length > 0xffffffff {
		return nil, ErrPayloadTooLarge
	}
	h := Header{
		Type:      typ,
		Length:    uint32(length),
		From:      from,
		To:        to,
		Timestamp: ts,
		SessionID: sessionID,
	}
	h.Sign(priv, payload)
	return &Message{Header: h, Payload: payload}, nil
}

// Serialize returns the packed header followed by the payload.
func (m *Message) Serialize() []byte {
	out := m.Header.MarshalBinary()
	return append(out, m.Payload...)
}

// DeserializeMessage parses buf into a Message without performing any of
// the staged validation in Message.Validate; callers must call Validate
// before trusting the result.
func DeserializeMessage(buf []byte) (*Message, error) {
	h, err := UnmarshalHeader(buf)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, len(buf)-HeaderSize)
	copy(payload, buf[HeaderSize:])
	return &Message{Header: *h, Payload: payload}, nil
}

// ValidationContext carries the receiver-side state Message.Validate checks
// a message against.
type ValidationContext struct {
	ExpectedType      byte
	ExpectedFrom      byte
	Self              byte
	Now               uint64
	Epsilon           uint64
	LastAcceptedTS    uint64
	SenderSessionKey  ed25519.PublicKey
}

// Validate runs the six staged checks from spec §4.E, in order, returning
// the first FramingError encountered (NoFramingError if all pass).
func (m *Message) Validate(ctx ValidationContext) FramingError {
	actualLen := uint32(HeaderSize + len(m.Payload))
	if m.Header.Length != actualLen {
		return LenErr
	}
	if m.Header.Type != ctx.ExpectedType {
		return TypeErr
	}
	if m.Header.From != ctx.ExpectedFrom {
		return FromErr
	}
	if m.Header.To != ctx.Self && m.Header.To != RecipientBroadcast {
		return ToErr
	}
	if !withinFreshnessWindow(ctx.Now, m.Header.Timestamp, ctx.Epsilon) || m.Header.Timestamp < ctx.LastAcceptedTS {
		return ExpiredErr
	}
	if !m.Header.VerifySignature(ctx.SenderSessionKey, m.Payload) {
		return SigErr
	}
	return NoFramingError
}

func withinFreshnessWindow(now, ts, epsilon uint64) bool {
	var delta uint64
	if now >= ts {
		delta = now - ts
	} else {
		delta = ts - now
	}
	return delta <= epsilon
}

// PutUint32BE is a small helper for callers building payloads by hand: it
// writes v into b as a 4-byte big-endian integer. The msg0/msg8 codecs do
// not call it.
func PutUint32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
