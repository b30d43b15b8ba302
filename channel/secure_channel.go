package channel

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/vaultkit/toprf-dkg/internal/security"
)

const (
	channelHKDFSalt = "toprf-dkg-channel-v1"
	encryptInfo     = "aead-send-key"
	macInfo         = "committing-mac-key"
)

// SecureChannel is the per-pair transport established after a Handshake
// completes: an XChaCha20-Poly1305 AEAD channel plus a key-committing
// HMAC-SHA256 layered over every ciphertext.
type SecureChannel struct {
	aead       interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
	macKey []byte
	mu     sync.Mutex
}

// NewSecureChannel derives the AEAD and MAC keys from a completed
// handshake's channel seed via HKDF-SHA256, mirroring the derive-keys-from-
// master-key pattern used for the rest of this module's transport layer.
func NewSecureChannel(seed []byte) (*SecureChannel, error) {
	encKey, err := deriveKey(seed, encryptInfo, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	macKey, err := deriveKey(seed, macInfo, sha256.Size)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, err
	}
	return &SecureChannel{aead: aead, macKey: macKey}, nil
}

func deriveKey(seed []byte, info string, size int) ([]byte, error) {
	kdf := hkdf.New(sha256.New, seed, []byte(channelHKDFSalt), []byte(info))
	key := make([]byte, size)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plaintext (typically a 33-byte share record) under a fresh
// nonce, returning nonce||ciphertext||tag.
func (c *SecureChannel) Encrypt(plaintext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := c.aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ciphertext...), nil
}

// Decrypt opens a nonce||ciphertext||tag blob produced by Encrypt.
func (c *SecureChannel) Decrypt(blob []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonceSize := c.aead.NonceSize()
	if len(blob) < nonceSize {
		return nil, ErrUnexpectedMessageSize
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptOnce seals plaintext under an all-zero nonce, returning
// ciphertext||tag with no nonce prefix. It is only safe for channels that
// encrypt at most one message per direction, which holds for every pairwise
// share delivery in a TP-DKG session: a pair's secure channel is derived
// fresh per session and spent on exactly one ciphertext each way, so there
// is no nonce-reuse to guard against and nothing to gain by transmitting one.
func (c *SecureChannel) EncryptOnce(plaintext []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := make([]byte, c.aead.NonceSize())
	return c.aead.Seal(nil, nonce, plaintext, nil)
}

// DecryptOnce opens a ciphertext||tag blob produced by EncryptOnce.
func (c *SecureChannel) DecryptOnce(blob []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := make([]byte, c.aead.NonceSize())
	plaintext, err := c.aead.Open(nil, nonce, blob, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// CommittingMAC computes a key-committing HMAC-SHA256 over the ciphertext
// blob, binding any later forced key reveal to exactly one ciphertext.
func (c *SecureChannel) CommittingMAC(ciphertextBlob []byte) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(ciphertextBlob)
	return mac.Sum(nil)
}

// VerifyCommittingMAC checks a CommittingMAC output in constant time.
func (c *SecureChannel) VerifyCommittingMAC(ciphertextBlob, mac []byte) bool {
	return hmac.Equal(c.CommittingMAC(ciphertextBlob), mac)
}

// MACKey exposes the derived committing-MAC key for the TP-DKG key-reveal
// adjudication path (spec §4.G step 18): once a peer reveals its handshake
// session key, the TP must be able to recompute this same MAC key to
// re-verify the recorded share.
func (c *SecureChannel) MACKey() []byte {
	out := make([]byte, len(c.macKey))
	copy(out, c.macKey)
	return out
}

// Close zeroizes the committing-MAC key. The AEAD cipher's own copy of the
// encryption key is not wiped. Safe to call more than once.
func (c *SecureChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	security.SecureZero(c.macKey)
}
