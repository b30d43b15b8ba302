package tpdkg

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/vaultkit/toprf-dkg/group"
	"github.com/vaultkit/toprf-dkg/identity"
	"github.com/vaultkit/toprf-dkg/wire"
)

// session bundles a TP and its n peers for a single in-process run, wiring
// the byte-level messages the way a real transport would carry them.
type session struct {
	tp    *TPState
	peers []*PeerState
}

func newSession(t *testing.T, n, thresh int) *session {
	t.Helper()

	longTerm := make([]*identity.KeyPair, n)
	pubKeys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		kp, err := identity.Generate(nil)
		if err != nil {
			t.Fatalf("identity.Generate: %v", err)
		}
		longTerm[i] = kp
		pubKeys[i] = kp.Public
	}

	tp, err := NewTPState(TPConfig{
		N:                   n,
		T:                   thresh,
		Epsilon:             300,
		DST:                 []byte("tpdkg-test-session"),
		PeerLongTermPubKeys: pubKeys,
	})
	if err != nil {
		t.Fatalf("NewTPState: %v", err)
	}

	peers := make([]*PeerState, n)
	for i := 0; i < n; i++ {
		p, err := NewPeerState(PeerConfig{
			Index:               byte(i + 1),
			N:                   n,
			T:                   thresh,
			Epsilon:             300,
			DST:                 []byte("tpdkg-test-session"),
			LongTermKey:         longTerm[i],
			PeerLongTermPubKeys: pubKeys,
		})
		if err != nil {
			t.Fatalf("NewPeerState(%d): %v", i+1, err)
		}
		peers[i] = p
	}

	return &session{tp: tp, peers: peers}
}

// runToAdjudication drives the session through share delivery, complaint
// collection, and cheater adjudication, applying corrupt to the raw
// share-delivery payloads each peer sends (identity function for a clean
// run). It returns the decoded cheater records and every peer's final
// transcript hash input for the caller to finish the run.
func (s *session) runToAdjudication(t *testing.T, corrupt func(from, to byte, raw []byte) []byte) []wire.CheaterRecord {
	t.Helper()
	n := len(s.peers)

	msg0, _, err := s.tp.Next(nil)
	if err != nil {
		t.Fatalf("tp.Next(start): %v", err)
	}

	identityMsgs := map[byte][]byte{}
	for i, p := range s.peers {
		out, err := p.Start(msg0)
		if err != nil {
			t.Fatalf("peer %d Start: %v", i+1, err)
		}
		identityMsgs[byte(i+1)] = out
	}

	identitiesBroadcast, _, err := s.tp.Next(identityMsgs)
	if err != nil {
		t.Fatalf("tp.Next(identities): %v", err)
	}

	commitMsgs := map[byte][]byte{}
	for i, p := range s.peers {
		out, err := p.HandleIdentities(identitiesBroadcast)
		if err != nil {
			t.Fatalf("peer %d HandleIdentities: %v", i+1, err)
		}
		commitMsgs[byte(i+1)] = out
	}

	commitsBroadcast, _, err := s.tp.Next(commitMsgs)
	if err != nil {
		t.Fatalf("tp.Next(commitments): %v", err)
	}

	roundA := map[byte][]byte{}
	for i, p := range s.peers {
		out, err := p.HandleCommitments(commitsBroadcast)
		if err != nil {
			t.Fatalf("peer %d HandleCommitments: %v", i+1, err)
		}
		roundA[byte(i+1)] = out
	}

	_, perPeerA, err := s.tp.Next(roundA)
	if err != nil {
		t.Fatalf("tp.Next(handshake round A): %v", err)
	}

	roundB := map[byte][]byte{}
	for i, p := range s.peers {
		in := perPeerA[byte(i+1)]
		out, err := p.HandleHandshakeRound1(in)
		if err != nil {
			t.Fatalf("peer %d HandleHandshakeRound1: %v", i+1, err)
		}
		roundB[byte(i+1)] = out
	}

	_, perPeerB, err := s.tp.Next(roundB)
	if err != nil {
		t.Fatalf("tp.Next(handshake round B): %v", err)
	}

	for i, p := range s.peers {
		in := perPeerB[byte(i+1)]
		if err := p.HandleHandshakeRound2(in); err != nil {
			t.Fatalf("peer %d HandleHandshakeRound2: %v", i+1, err)
		}
	}

	shareMsgs := map[byte][]byte{}
	for i, p := range s.peers {
		out, err := p.BuildShareDeliveries()
		if err != nil {
			t.Fatalf("peer %d BuildShareDeliveries: %v", i+1, err)
		}
		if corrupt != nil {
			var entries []ShareDeliveryEntry
			if err := gobDecode(out, &entries); err != nil {
				t.Fatalf("peer %d decode own deliveries: %v", i+1, err)
			}
			for j := range entries {
				entries[j].Payload = corrupt(entries[j].From, entries[j].To, entries[j].Payload)
			}
			out = gobEncode(entries)
		}
		shareMsgs[byte(i+1)] = out
	}

	_, perPeerShares, err := s.tp.Next(shareMsgs)
	if err != nil {
		t.Fatalf("tp.Next(share delivery): %v", err)
	}

	complaintMsgs := map[byte][]byte{}
	for i, p := range s.peers {
		in := perPeerShares[byte(i+1)]
		out, err := p.HandleShareDeliveries(in)
		if err != nil {
			t.Fatalf("peer %d HandleShareDeliveries: %v", i+1, err)
		}
		complaintMsgs[byte(i+1)] = out
	}

	complaintsBroadcast, _, err := s.tp.Next(complaintMsgs)
	if err != nil {
		t.Fatalf("tp.Next(complaints): %v", err)
	}
	for i, p := range s.peers {
		if err := p.HandleComplaintAggregate(complaintsBroadcast); err != nil {
			t.Fatalf("peer %d HandleComplaintAggregate: %v", i+1, err)
		}
	}

	_, perPeerDemand, err := s.tp.Next(nil)
	if err != nil {
		t.Fatalf("tp.Next(key reveal demand): %v", err)
	}

	revealMsgs := map[byte][]byte{}
	for i, p := range s.peers {
		in := perPeerDemand[byte(i+1)]
		if in == nil {
			in = gobEncode([]byte{})
		}
		out, err := p.HandleKeyRevealDemand(in)
		if err != nil {
			t.Fatalf("peer %d HandleKeyRevealDemand: %v", i+1, err)
		}
		revealMsgs[byte(i+1)] = out
	}

	if _, _, err := s.tp.Next(revealMsgs); err != nil {
		t.Fatalf("tp.Next(key reveal submit): %v", err)
	}

	ledgerBroadcast, _, err := s.tp.Next(nil)
	if err != nil {
		t.Fatalf("tp.Next(adjudication): %v", err)
	}

	var records []wire.CheaterRecord
	for i, p := range s.peers {
		got, err := p.HandleAdjudicationResult(ledgerBroadcast)
		if err != nil {
			t.Fatalf("peer %d HandleAdjudicationResult: %v", i+1, err)
		}
		records = got
	}
	_ = n
	return records
}

func (s *session) finishTranscriptCompare(t *testing.T) {
	t.Helper()
	transcriptMsgs := map[byte][]byte{}
	for i, p := range s.peers {
		transcriptMsgs[byte(i+1)] = p.FinalizeTranscript()
	}
	if _, _, err := s.tp.Next(transcriptMsgs); err != nil {
		t.Fatalf("tp.Next(transcript compare): %v", err)
	}
	if s.tp.NotDone() {
		t.Fatalf("expected TP to reach StepDone")
	}
}

func TestHappyPathReachesAgreementWithNoCheaters(t *testing.T) {
	s := newSession(t, 5, 3)

	records := s.runToAdjudication(t, nil)
	if len(records) != 0 {
		t.Fatalf("expected no cheater records, got %v", records)
	}
	if !s.tp.Ledger().Empty() {
		t.Fatalf("expected empty TP ledger")
	}

	s.finishTranscriptCompare(t)
	if err := s.tp.Outcome(); err != nil {
		t.Fatalf("expected successful outcome, got %v", err)
	}

	shares := make([]*group.Share, len(s.peers))
	for i, p := range s.peers {
		sh, err := p.FinalShare()
		if err != nil {
			t.Fatalf("peer %d FinalShare: %v", i+1, err)
		}
		shares[i] = sh
	}

	joint, err := s.peers[0].JointCommitmentVector()
	if err != nil {
		t.Fatalf("JointCommitmentVector: %v", err)
	}
	for _, p := range s.peers[1:] {
		other, err := p.JointCommitmentVector()
		if err != nil {
			t.Fatalf("JointCommitmentVector: %v", err)
		}
		for k := range joint {
			if !joint[k].Equal(other[k]) {
				t.Fatalf("peers disagree on joint commitment vector")
			}
		}
	}

	// Any 3 of the 5 final shares must be consistent with the same joint
	// public key commitment.
	subset := []*group.Share{shares[0], shares[2], shares[4]}
	for _, sh := range subset {
		if !group.VerifyShare(sh, joint) {
			t.Fatalf("final share %d failed joint-commitment verification", sh.Index)
		}
	}

	for _, p := range s.peers {
		p.Close()
	}
}

func TestCorruptedShareProducesProvenCheat(t *testing.T) {
	s := newSession(t, 4, 2)

	records := s.runToAdjudication(t, func(from, to byte, raw []byte) []byte {
		if from == 1 && to == 2 {
			tampered := append([]byte{}, raw...)
			tampered[len(tampered)-1] ^= 0x01
			return tampered
		}
		return raw
	})

	found := false
	for _, r := range records {
		if r.Code == wire.CheaterProvenCheat && r.Peer == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a proven-cheat record against peer 1, got %v", records)
	}
	if err := s.tp.Outcome(); err == nil {
		t.Fatalf("expected protocol outcome to be failure")
	}
}

func TestMismatchedConfigRejectedAtStart(t *testing.T) {
	s := newSession(t, 3, 2)
	msg0, _, err := s.tp.Next(nil)
	if err != nil {
		t.Fatalf("tp.Next(start): %v", err)
	}

	bad, err := NewPeerState(PeerConfig{
		Index:               1,
		N:                   3,
		T:                   1, // wrong threshold
		Epsilon:             300,
		DST:                 []byte("tpdkg-test-session"),
		LongTermKey:         mustGenerate(t),
		PeerLongTermPubKeys: []ed25519.PublicKey{mustGenerate(t).Public, mustGenerate(t).Public, mustGenerate(t).Public},
	})
	if err != nil {
		t.Fatalf("NewPeerState: %v", err)
	}
	if _, err := bad.Start(msg0); err != ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func mustGenerate(t *testing.T) *identity.KeyPair {
	t.Helper()
	kp, err := identity.Generate(nil)
	if err != nil {
		t.Fatalf("identity.Generate: %v", err)
	}
	return kp
}

func TestLedgerOverflowFailsProtocol(t *testing.T) {
	l := NewCheaterLedger(2) // capacity 3
	for i := 0; i < 5; i++ {
		l.Record(18, wire.CheaterNoReveal, byte(i+1), wire.NoReporter, byte(i+1))
	}
	if !l.Full() {
		t.Fatalf("expected ledger to report full after overflow")
	}
	if len(l.Records()) != 3 {
		t.Fatalf("expected records truncated at capacity 3, got %d", len(l.Records()))
	}
}

func TestTranscriptMismatchDetected(t *testing.T) {
	s := newSession(t, 3, 2)
	s.runToAdjudication(t, nil)

	transcriptMsgs := map[byte][]byte{}
	for i, p := range s.peers {
		if i == 0 {
			forged, err := wire.NewMessage(byte(StepTranscriptCompare), p.cfg.Index, wire.RecipientTP, 0, p.sessionID, bytes.Repeat([]byte{0xAA}, 32), p.sessionKP.Private)
			if err != nil {
				t.Fatalf("NewMessage: %v", err)
			}
			transcriptMsgs[byte(i+1)] = forged.Serialize()
			continue
		}
		transcriptMsgs[byte(i+1)] = p.FinalizeTranscript()
	}

	if _, _, err := s.tp.Next(transcriptMsgs); err != ErrTranscriptMismatch && err != wire.ExpiredErr {
		t.Fatalf("expected a transcript mismatch or framing rejection, got %v", err)
	}
}
