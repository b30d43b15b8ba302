package channel

import (
	"bytes"
	"testing"
)

func runHandshake(t *testing.T) (*SecureChannel, *SecureChannel) {
	t.Helper()

	responderStatic, err := GenerateStaticKeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateStaticKeyPair: %v", err)
	}
	initiatorStatic, err := GenerateStaticKeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateStaticKeyPair: %v", err)
	}

	initiator, err := NewInitiatorHandshake(initiatorStatic, responderStatic.Public)
	if err != nil {
		t.Fatalf("NewInitiatorHandshake: %v", err)
	}
	responder, err := NewResponderHandshake(responderStatic)
	if err != nil {
		t.Fatalf("NewResponderHandshake: %v", err)
	}

	msg1, err := initiator.Step1()
	if err != nil {
		t.Fatalf("Step1: %v", err)
	}
	if err := responder.ReadStep1(msg1); err != nil {
		t.Fatalf("ReadStep1: %v", err)
	}

	msg2, _, err := responder.Step2()
	if err != nil {
		t.Fatalf("Step2: %v", err)
	}
	seed, err := initiator.ReadStep2(msg2)
	if err != nil {
		t.Fatalf("ReadStep2: %v", err)
	}

	msg3, err := initiator.Step3()
	if err != nil {
		t.Fatalf("Step3: %v", err)
	}
	if err := responder.ReadStep3(msg3); err != nil {
		t.Fatalf("ReadStep3: %v", err)
	}

	if !initiator.Done() || !responder.Done() {
		t.Fatalf("expected both sides done after 3 messages")
	}
	if !bytes.Equal(seed, responder.ChannelSeed()) {
		t.Fatalf("initiator and responder disagree on channel seed")
	}

	initChan, err := NewSecureChannel(seed)
	if err != nil {
		t.Fatalf("NewSecureChannel (initiator): %v", err)
	}
	respChan, err := NewSecureChannel(responder.ChannelSeed())
	if err != nil {
		t.Fatalf("NewSecureChannel (responder): %v", err)
	}
	return initChan, respChan
}

func TestHandshakeAndSecureChannelRoundTrip(t *testing.T) {
	initChan, respChan := runHandshake(t)

	share := []byte("0123456789012345678901234567890123")
	blob, err := initChan.Encrypt(share)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	mac := initChan.CommittingMAC(blob)

	if !respChan.VerifyCommittingMAC(blob, mac) {
		t.Fatalf("responder failed to verify committing MAC")
	}
	plaintext, err := respChan.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(plaintext, share) {
		t.Fatalf("decrypted plaintext does not match original share")
	}
}

func TestEncryptOnceDecryptOnceRoundTrip(t *testing.T) {
	initChan, respChan := runHandshake(t)

	share := []byte("0123456789012345678901234567890123")
	blob := initChan.EncryptOnce(share)
	mac := initChan.CommittingMAC(blob)

	if !respChan.VerifyCommittingMAC(blob, mac) {
		t.Fatalf("responder failed to verify committing MAC")
	}
	plaintext, err := respChan.DecryptOnce(blob)
	if err != nil {
		t.Fatalf("DecryptOnce: %v", err)
	}
	if !bytes.Equal(plaintext, share) {
		t.Fatalf("decrypted plaintext does not match original share")
	}
}

func TestDecryptOnceRejectsTamperedBlob(t *testing.T) {
	initChan, respChan := runHandshake(t)

	blob := initChan.EncryptOnce([]byte("share-bytes"))
	tampered := append([]byte{}, blob...)
	tampered[len(tampered)-1] ^= 0x01

	if _, err := respChan.DecryptOnce(tampered); err == nil {
		t.Fatalf("expected DecryptOnce to reject a tampered blob")
	}
}

func TestTamperedCiphertextFailsMAC(t *testing.T) {
	initChan, respChan := runHandshake(t)

	blob, err := initChan.Encrypt([]byte("share-bytes"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	mac := initChan.CommittingMAC(blob)

	tampered := append([]byte{}, blob...)
	tampered[len(tampered)-1] ^= 0x01

	if respChan.VerifyCommittingMAC(tampered, mac) {
		t.Fatalf("tampered ciphertext should fail committing MAC check")
	}
}
