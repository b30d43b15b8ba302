package channel

import (
	"crypto/rand"
	"io"

	"github.com/flynn/noise"
)

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2b)

// StaticKeyPair is a peer's long-lived Curve25519 handshake identity,
// published during the identity-broadcast step so that every later
// initiator can run the XK pattern against a known responder key.
type StaticKeyPair struct {
	noise.DHKey
}

// GenerateStaticKeyPair creates a fresh Curve25519 keypair for the Noise
// handshake layer, independent of the Ed25519 signing identity in package
// identity.
func GenerateStaticKeyPair(rnd io.Reader) (*StaticKeyPair, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	kp, err := noise.DH25519.GenerateKeypair(rnd)
	if err != nil {
		return nil, err
	}
	return &StaticKeyPair{kp}, nil
}

// Handshake drives one side of a three-message XK handshake. The initiator
// knows the responder's static public key in advance (broadcast earlier in
// the protocol); the responder learns the initiator's static key during the
// handshake itself.
type Handshake struct {
	state       *noise.HandshakeState
	initiator   bool
	seed        []byte
	done        bool
}

// NewInitiatorHandshake starts the initiating side against a known
// responder static public key.
func NewInitiatorHandshake(self *StaticKeyPair, responderStaticPub []byte) (*Handshake, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXK,
		Initiator:     true,
		StaticKeypair: self.DHKey,
		PeerStatic:    responderStaticPub,
	})
	if err != nil {
		return nil, err
	}
	return &Handshake{state: hs, initiator: true}, nil
}

// NewResponderHandshake starts the responding side. The responder does not
// need to know the initiator's static key in advance under the XK pattern.
func NewResponderHandshake(self *StaticKeyPair) (*Handshake, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXK,
		Initiator:     false,
		StaticKeypair: self.DHKey,
	})
	if err != nil {
		return nil, err
	}
	return &Handshake{state: hs, initiator: false}, nil
}

// Step1 is the initiator's first message (-> e, es).
func (h *Handshake) Step1() ([]byte, error) {
	out, _, _, err := h.state.WriteMessage(nil, nil)
	if err != nil {
		return nil, ErrHandshakeFailed
	}
	return out, nil
}

// ReadStep1 is the responder's processing of the initiator's first message.
func (h *Handshake) ReadStep1(msg []byte) error {
	if _, _, _, err := h.state.ReadMessage(nil, msg); err != nil {
		return ErrHandshakeFailed
	}
	return nil
}

// Step2 is the responder's reply (<- e, ee). A fresh 32-byte channel seed is
// generated and carried as the handshake payload, which Noise authenticates
// but does not otherwise interpret; both sides derive their AEAD/MAC keys
// from this seed via HKDF (NewSecureChannel). The responder holds the seed
// as soon as Step2 returns, before message3 has been read.
func (h *Handshake) Step2() ([]byte, []byte, error) {
	seed := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, nil, err
	}
	out, _, _, err := h.state.WriteMessage(nil, seed)
	if err != nil {
		return nil, nil, ErrHandshakeFailed
	}
	h.seed = seed
	return out, seed, nil
}

// ReadStep2 is the initiator's processing of the responder's reply,
// recovering the channel seed from the authenticated payload.
func (h *Handshake) ReadStep2(msg []byte) ([]byte, error) {
	seed, _, _, err := h.state.ReadMessage(nil, msg)
	if err != nil {
		return nil, ErrHandshakeFailed
	}
	h.seed = seed
	return seed, nil
}

// Step3 is the initiator's final message (-> s, se), completing the
// handshake and revealing the initiator's static key to the responder.
func (h *Handshake) Step3() ([]byte, error) {
	out, _, _, err := h.state.WriteMessage(nil, nil)
	if err != nil {
		return nil, ErrHandshakeFailed
	}
	h.done = true
	return out, nil
}

// ReadStep3 is the responder's processing of the initiator's final message,
// after which the handshake is complete on both sides.
func (h *Handshake) ReadStep3(msg []byte) error {
	if _, _, _, err := h.state.ReadMessage(nil, msg); err != nil {
		return ErrHandshakeFailed
	}
	h.done = true
	return nil
}

// Done reports whether the three-message handshake has completed.
func (h *Handshake) Done() bool { return h.done }

// ChannelSeed returns the 32-byte seed both sides derive their transport
// keys from. Only valid once Done() is true.
func (h *Handshake) ChannelSeed() []byte { return h.seed }
