// Package identity manages the Ed25519 signing keypairs used to
// authenticate protocol messages: one long-term keypair per peer (input to
// the protocol) and one ephemeral per-session keypair for both the TP and
// every peer.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"io"

	"github.com/vaultkit/toprf-dkg/internal/security"
)

// KeyPair is an Ed25519 signing keypair.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Generate creates a fresh Ed25519 keypair using rnd (crypto/rand.Reader if
// nil).
func Generate(rnd io.Reader) (*KeyPair, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(rnd)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// Sign signs msg with the keypair's private key.
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// Verify checks sig over msg against pub.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(pub, msg, sig)
}

// Zeroize overwrites the private key material. Call once the keypair is no
// longer needed; safe to call more than once.
func (k *KeyPair) Zeroize() {
	security.SecureZero(k.Private)
}
