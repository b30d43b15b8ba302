package wire

import "encoding/binary"

// Msg0Size is the exact byte length of the msg0 payload: 64B DST-hash,
// 1B n, 1B t, 32B TP session signing public key.
const Msg0Size = 64 + 1 + 1 + 32

// Msg0 is the TP's opening broadcast: the protocol's domain-separation
// hash, the (n,t) configuration, and the TP's per-session Ed25519 public
// key that every subsequent TP message will be verified against.
type Msg0 struct {
	DSTHash        [64]byte
	N              byte
	T              byte
	TPSessionPubKey [32]byte
}

// MarshalBinary encodes a Msg0 to its fixed Msg0Size payload.
func (m *Msg0) MarshalBinary() []byte {
	out := make([]byte, Msg0Size)
	off := 0
	copy(out[off:off+64], m.DSTHash[:])
	off += 64
	out[off] = m.N
	off++
	out[off] = m.T
	off++
	copy(out[off:off+32], m.TPSessionPubKey[:])
	return out
}

// UnmarshalMsg0 decodes a Msg0Size-byte payload.
func UnmarshalMsg0(buf []byte) (*Msg0, error) {
	if len(buf) != Msg0Size {
		return nil, ErrBufferTooSmall
	}
	m := &Msg0{}
	off := 0
	copy(m.DSTHash[:], buf[off:off+64])
	off += 64
	m.N = buf[off]
	off++
	m.T = buf[off]
	off++
	copy(m.TPSessionPubKey[:], buf[off:off+32])
	return m, nil
}

// EncodeUint32 is a tiny helper for payload codecs that need to embed a
// length-prefixed sub-field (e.g. concatenated commitment vectors).
func EncodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// DecodeUint32 is the counterpart to EncodeUint32.
func DecodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}
