package wire

import "strconv"

// Msg8Size is the exact byte length of a step-8 share-delivery payload:
// 64B final handshake message (all-zero on the responder->initiator leg,
// which has no handshake bytes left to send), 33B ciphertext-of-share,
// 16B AEAD tag, 32B key-committing HMAC. There is no separate nonce field:
// each pair's secure channel is used for exactly one encryption per
// direction, so the AEAD nonce is fixed rather than transmitted.
const Msg8Size = 64 + 33 + 16 + 32

// Msg8 carries one peer-to-peer encrypted share delivery, bundled with the
// final message of that pair's Noise handshake.
type Msg8 struct {
	HandshakeMessage [64]byte
	ShareCiphertext  [33]byte
	AEADTag          [16]byte
	CommittingHMAC   [32]byte
}

// MarshalBinary encodes a Msg8 to its fixed Msg8Size payload.
func (m *Msg8) MarshalBinary() []byte {
	out := make([]byte, Msg8Size)
	off := 0
	copy(out[off:off+64], m.HandshakeMessage[:])
	off += 64
	copy(out[off:off+33], m.ShareCiphertext[:])
	off += 33
	copy(out[off:off+16], m.AEADTag[:])
	off += 16
	copy(out[off:off+32], m.CommittingHMAC[:])
	return out
}

// UnmarshalMsg8 decodes a Msg8Size-byte payload.
func UnmarshalMsg8(buf []byte) (*Msg8, error) {
	if len(buf) != Msg8Size {
		return nil, ErrBufferTooSmall
	}
	m := &Msg8{}
	off := 0
	copy(m.HandshakeMessage[:], buf[off:off+64])
	off += 64
	copy(m.ShareCiphertext[:], buf[off:off+33])
	off += 33
	copy(m.AEADTag[:], buf[off:off+16])
	off += 16
	copy(m.CommittingHMAC[:], buf[off:off+32])
	return m, nil
}

// CheaterRecord is a single entry in the cheater ledger (component I).
type CheaterRecord struct {
	Step         int
	Code         CheaterCode
	Peer         byte
	Reporter     byte // NoReporter if not applicable
	InvalidIndex byte
}

// String renders a human-readable line keyed by code, for post-mortem logs.
func (c CheaterRecord) String() string {
	line := "step=" + strconv.Itoa(c.Step) + " peer=" + strconv.Itoa(int(c.Peer)) +
		" code=" + strconv.Itoa(int(c.Code)) + " (" + c.Code.String() + ")"
	if c.Reporter != NoReporter {
		line += " reporter=" + strconv.Itoa(int(c.Reporter))
	}
	return line
}
