package wire

import (
	"crypto/ed25519"
	"encoding/binary"
)

const (
	// SigSize is the byte length of the Ed25519 signature field.
	SigSize = 64
	// SessionIDSize is the byte length of the session identifier.
	SessionIDSize = 32
	// HeaderSize is the packed, no-padding header length: 64+1+4+1+1+8+32.
	HeaderSize = SigSize + 1 + 4 + 1 + 1 + 8 + SessionIDSize

	// RecipientTP addresses the Trusted Party.
	RecipientTP byte = 0x00
	// RecipientBroadcast addresses every participant.
	RecipientBroadcast byte = 0xff
	// NoReporter is the cheater record's "other_peer" sentinel meaning no
	// reporter was involved.
	NoReporter byte = 0xfe
)

// domainSeparationTag is mixed into every signature to bind messages of
// this protocol to this wire format and prevent cross-protocol signature
// reuse.
var domainSeparationTag = []byte("toprf-dkg/v1/message")

// Header is the 111-byte packed record prefixing every protocol message.
type Header struct {
	Signature [SigSize]byte
	Type      byte
	Length    uint32
	From      byte
	To        byte
	Timestamp uint64
	SessionID [SessionIDSize]byte
}

// signedBytes returns the bytes the signature is computed over: every
// header field except the signature itself, concatenated with the payload
// and the domain-separation tag.
func signedBytes(h *Header, payload []byte) []byte {
	buf := make([]byte, 0, 1+4+1+1+8+SessionIDSize+len(payload)+len(domainSeparationTag))
	buf = append(buf, h.Type)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], h.Length)
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, h.From, h.To)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], h.Timestamp)
	buf = append(buf, tsBuf[:]...)
	buf = append(buf, h.SessionID[:]...)
	buf = append(buf, payload...)
	buf = append(buf, domainSeparationTag...)
	return buf
}

// Sign fills h.Signature by signing over the rest of the header, payload,
// and domain-separation tag using priv.
func (h *Header) Sign(priv ed25519.PrivateKey, payload []byte) {
	sig := ed25519.Sign(priv, signedBytes(h, payload))
	copy(h.Signature[:], sig)
}

// VerifySignature checks h.Signature against pub over payload.
func (h *Header) VerifySignature(pub ed25519.PublicKey, payload []byte) bool {
	return ed25519.Verify(pub, signedBytes(h, payload), h.Signature[:])
}

// MarshalBinary encodes the header to its packed 111-byte wire form.
func (h *Header) MarshalBinary() []byte {
	out := make([]byte, HeaderSize)
	off := 0
	copy(out[off:off+SigSize], h.Signature[:])
	off += SigSize
	out[off] = h.Type
	off++
	binary.BigEndian.PutUint32(out[off:off+4], h.Length)
	off += 4
	out[off] = h.From
	off++
	out[off] = h.To
	off++
	binary.BigEndian.PutUint64(out[off:off+8], h.Timestamp)
	off += 8
	copy(out[off:off+SessionIDSize], h.SessionID[:])
	return out
}

// UnmarshalHeader decodes the first HeaderSize bytes of buf into a Header.
func UnmarshalHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, ErrBufferTooSmall
	}
	h := &Header{}
	off := 0
	copy(h.Signature[:], buf[off:off+SigSize])
	off += SigSize
	h.Type = buf[off]
	off++
	h.Length = binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	h.From = buf[off]
	off++
	h.To = buf[off]
	off++
	h.Timestamp = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	copy(h.SessionID[:], buf[off:off+SessionIDSize])
	return h, nil
}
